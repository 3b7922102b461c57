package repository

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func writeCatalogDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.TrimSpace(body)+"\n"), 0o600))
	}
	return dir
}

func baseCatalogFiles() map[string]string {
	return map[string]string{
		RoomsFile: `
room_code,room_type,capacity,building,bound_course
R1,lecture,120,Main,
L1,lab,30,Annex,
LAB-NET,lab,20,Annex,NET301L`,
		GroupsFile: `
group_id,level,group_number,department,section_count
L1G1,1,1,,3
L3-CS,3,1,CS,2`,
		ProfessorsFile: `
professor_id,professor_name
P1,Dr. Hana
P2,Dr. Karim`,
		LecturesFile: `
course_code,course_name,group_id,professor_id,weekly_slots,full_day,room_code
CS101,Intro to Computing,L1G1,P1,2,false,
GP399,Graduation Project,L3-CS,P2,,true,R1`,
		LabInstructorsFile: `
instructor_id,instructor_name,type,max_hours_per_week,qualified_labs
I1,Omar,Full-Time,12,CS101L; NET301L
I2,Lina,part-time,4.5,CS101L`,
		LabsFile: `
course_code,course_name,level,department,room_code,sessions_per_section
CS101L,Intro Lab,1,,,1
NET301L,Networks Lab,3,CS,LAB-NET,2`,
	}
}

func TestCSVCatalogRepositoryLoad(t *testing.T) {
	dir := writeCatalogDir(t, baseCatalogFiles())

	catalog, err := NewCSVCatalogRepository(dir).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.DefaultGrid(), catalog.Grid)
	require.Len(t, catalog.Rooms, 3)
	assert.Equal(t, models.RoomKindLab, catalog.Rooms[2].Kind)
	assert.Equal(t, "NET301L", catalog.Rooms[2].BoundCourse)

	require.Len(t, catalog.Groups, 2)
	assert.Equal(t, []string{"L1G1-S1", "L1G1-S2", "L1G1-S3"}, catalog.Groups[0].SectionIDs())
	assert.Equal(t, "CS", catalog.Groups[1].Sections[1].Department)
	assert.Equal(t, 3, catalog.Groups[1].Sections[1].Level)

	require.Len(t, catalog.Lectures, 2)
	assert.Equal(t, 2, catalog.Lectures[0].WeeklySlots)
	assert.True(t, catalog.Lectures[1].FullDay)
	assert.Equal(t, "R1", catalog.Lectures[1].RoomID)

	require.Len(t, catalog.LabInstructors, 2)
	assert.Equal(t, models.InstructorFullTime, catalog.LabInstructors[0].Type)
	assert.Equal(t, []string{"CS101L", "NET301L"}, catalog.LabInstructors[0].QualifiedLabs)
	assert.Equal(t, 4.5, catalog.LabInstructors[1].MaxHoursPerWeek)

	require.Len(t, catalog.Labs, 2)
	assert.Equal(t, 2, catalog.Labs[1].SessionsPerSection)
	assert.Equal(t, []int{1, 3}, catalog.LevelOrder())
}

func TestCSVCatalogRepositoryOptionalFiles(t *testing.T) {
	files := baseCatalogFiles()
	delete(files, LabsFile)
	delete(files, LabInstructorsFile)
	files[TimeslotsFile] = `
slot_number,start,end
1,08:00,09:30
2,09:45,11:15`
	dir := writeCatalogDir(t, files)

	catalog, err := NewCSVCatalogRepository(dir).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, catalog.Labs)
	assert.Empty(t, catalog.LabInstructors)
	require.Len(t, catalog.Grid.Slots, 2)
	assert.Equal(t, "09:45", catalog.Grid.Slots[1].Start)
	assert.Len(t, catalog.Grid.Days, 5)
}

func TestCSVCatalogRepositoryMissingRequiredFile(t *testing.T) {
	files := baseCatalogFiles()
	delete(files, RoomsFile)
	dir := writeCatalogDir(t, files)

	_, err := NewCSVCatalogRepository(dir).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open rooms.csv")
}

func TestCSVCatalogRepositoryMalformedFile(t *testing.T) {
	files := baseCatalogFiles()
	files[GroupsFile] = `
group_id,level,group_number,department,section_count
L1G1,one,1,,3`
	dir := writeCatalogDir(t, files)

	_, err := NewCSVCatalogRepository(dir).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse groups.csv")
}

func TestWriteAssignmentsAndConflicts(t *testing.T) {
	grid := models.DefaultGrid()
	assignments := []models.Assignment{
		{ID: "A0001", Kind: models.SessionLecture, CourseCode: "CS101", CourseName: "Intro", Slot: models.TimeSlotKey{Day: 1, Slot: 2}, RoomID: "R1", InstructorID: "P1", InstructorName: "Dr. Hana", TargetKind: models.TargetGroup, TargetID: "L1G1"},
		{ID: "A0002", Kind: models.SessionLab, CourseCode: "CS101L", Slot: models.TimeSlotKey{Day: 0, Slot: 4}, RoomID: "L1", InstructorID: "I1", TargetKind: models.TargetSection, TargetID: "L1G1-S1"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAssignments(&buf, grid, assignments))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "assignment_id,type,course_code,course_name,day,slot,start,end,room,instructor,target_kind,assigned_to", lines[0])
	assert.Equal(t, "A0001,lecture,CS101,Intro,Monday,2,10:45,12:15,R1,Dr. Hana,group,L1G1", lines[1])
	assert.Equal(t, "A0002,lab,CS101L,,Sunday,4,14:15,15:45,L1,I1,section,L1G1-S1", lines[2])

	buf.Reset()
	conflicts := []models.Conflict{{CourseCode: "CS101L", Kind: models.SessionLab, TargetKind: models.TargetSection, TargetID: "L1G1-S2", Reason: models.ConflictNoInstructor, Detail: "busy"}}
	require.NoError(t, WriteConflicts(&buf, conflicts))
	assert.Contains(t, buf.String(), "CS101L,lab,section,L1G1-S2,NO_INSTRUCTOR,busy")
}
