package scheduler

import (
	"fmt"

	"github.com/noah-isme/timetable-api/internal/models"
)

func sections(groupID string, level, count int, department string) []models.Section {
	out := make([]models.Section, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, models.Section{
			ID:         fmt.Sprintf("%s-S%d", groupID, i),
			GroupID:    groupID,
			Level:      level,
			Number:     i,
			Department: department,
		})
	}
	return out
}

func group(id string, level, sectionCount int, department string) models.Group {
	return models.Group{
		ID:         id,
		Level:      level,
		Number:     1,
		Department: department,
		Sections:   sections(id, level, sectionCount, department),
	}
}

// scenarioCatalog is one level, one group of three sections, one lecture,
// two lecture rooms, one lab with a single qualified instructor and two labs.
func scenarioCatalog(maxHours float64) *models.Catalog {
	return &models.Catalog{
		Grid:   models.DefaultGrid(),
		Levels: []int{1},
		Rooms: []models.Room{
			{ID: "R1", Kind: models.RoomKindLecture, Capacity: 120},
			{ID: "R2", Kind: models.RoomKindLecture, Capacity: 120},
			{ID: "L1", Kind: models.RoomKindLab, Capacity: 30},
			{ID: "L2", Kind: models.RoomKindLab, Capacity: 30},
		},
		Groups:     []models.Group{group("G1", 1, 3, "")},
		Professors: []models.Professor{{ID: "P1", Name: "Dr. Hana"}},
		LabInstructors: []models.LabInstructor{
			{ID: "I1", Name: "Omar", Type: models.InstructorFullTime, MaxHoursPerWeek: maxHours, QualifiedLabs: []string{"CS101L"}},
		},
		Lectures: []models.LectureCourse{
			{Code: "CS101", Name: "Intro to Computing", GroupID: "G1", ProfessorID: "P1", WeeklySlots: 1},
		},
		Labs: []models.LabCourse{
			{Code: "CS101L", Name: "Intro to Computing Lab", Level: 1, SessionsPerSection: 1},
		},
	}
}

// campusCatalog is a larger mixed catalog with foundation groups, upper level
// departments, shared professors, bound rooms and a mix of instructor types.
func campusCatalog() *models.Catalog {
	return &models.Catalog{
		Grid:   models.DefaultGrid(),
		Levels: []int{1, 2, 3},
		Rooms: []models.Room{
			{ID: "H1", Kind: models.RoomKindLecture, Capacity: 200},
			{ID: "H2", Kind: models.RoomKindLecture, Capacity: 150},
			{ID: "H3", Kind: models.RoomKindLecture, Capacity: 80},
			{ID: "LAB-A", Kind: models.RoomKindLab, Capacity: 25},
			{ID: "LAB-B", Kind: models.RoomKindLab, Capacity: 25},
			{ID: "LAB-NET", Kind: models.RoomKindLab, Capacity: 20, BoundCourse: "NET301L"},
		},
		Groups: []models.Group{
			group("L1G1", 1, 3, ""),
			group("L1G2", 1, 3, ""),
			group("L2G1", 2, 4, ""),
			group("L3-CS", 3, 2, "CS"),
			group("L3-IS", 3, 3, "IS"),
		},
		Professors: []models.Professor{
			{ID: "P1", Name: "Dr. Hana"},
			{ID: "P2", Name: "Dr. Karim"},
			{ID: "P3", Name: "Dr. Lina"},
			{ID: "I2", Name: "Dr. Sami"},
		},
		LabInstructors: []models.LabInstructor{
			{ID: "I1", Name: "Omar", Type: models.InstructorPartTime, MaxHoursPerWeek: 6, QualifiedLabs: []string{"CS101L", "MA201L"}},
			{ID: "I2", Name: "Sami", Type: models.InstructorFullTime, MaxHoursPerWeek: 8, QualifiedLabs: []string{"CS101L", "NET301L"}},
			{ID: "I3", Name: "Rana", Type: models.InstructorFullTime, MaxHoursPerWeek: 10, QualifiedLabs: []string{"CS101L", "MA201L", "DB301L"}},
			{ID: "I4", Name: "Yara", Type: models.InstructorPartTime, MaxHoursPerWeek: 4, QualifiedLabs: []string{"DB301L", "NET301L"}},
		},
		Lectures: []models.LectureCourse{
			{Code: "CS101", Name: "Intro to Computing", GroupID: "L1G1", ProfessorID: "P1", WeeklySlots: 2},
			{Code: "CS101", Name: "Intro to Computing", GroupID: "L1G2", ProfessorID: "P1", WeeklySlots: 2},
			{Code: "MA101", Name: "Calculus", GroupID: "L1G1", ProfessorID: "P2"},
			{Code: "MA101", Name: "Calculus", GroupID: "L1G2", ProfessorID: "P2"},
			{Code: "MA201", Name: "Linear Algebra", GroupID: "L2G1", ProfessorID: "P2", WeeklySlots: 2},
			{Code: "DB301", Name: "Databases", GroupID: "L3-CS", ProfessorID: "P3"},
			{Code: "NET301", Name: "Networks", GroupID: "L3-IS", ProfessorID: "I2"},
			{Code: "GP399", Name: "Graduation Project", GroupID: "L3-CS", ProfessorID: "P1", FullDay: true},
		},
		Labs: []models.LabCourse{
			{Code: "CS101L", Name: "Intro to Computing Lab", Level: 1, SessionsPerSection: 2},
			{Code: "MA201L", Name: "Linear Algebra Lab", Level: 2},
			{Code: "DB301L", Name: "Databases Lab", Level: 3, Department: "CS"},
			{Code: "NET301L", Name: "Networks Lab", Level: 3, RoomID: "LAB-NET"},
		},
	}
}

func labAssignments(assignments []models.Assignment) []models.Assignment {
	var out []models.Assignment
	for _, a := range assignments {
		if a.Kind == models.SessionLab {
			out = append(out, a)
		}
	}
	return out
}
