package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Catalog file names expected inside a CSV catalog directory.
const (
	RoomsFile          = "rooms.csv"
	GroupsFile         = "groups.csv"
	ProfessorsFile     = "professors.csv"
	LabInstructorsFile = "lab_instructors.csv"
	LecturesFile       = "lectures.csv"
	LabsFile           = "labs.csv"
	TimeslotsFile      = "timeslots.csv"
)

type groupRecord struct {
	ID           string `csv:"group_id"`
	Level        int    `csv:"level"`
	Number       int    `csv:"group_number"`
	Department   string `csv:"department"`
	SectionCount int    `csv:"section_count"`
}

type labInstructorRecord struct {
	ID              string  `csv:"instructor_id"`
	Name            string  `csv:"instructor_name"`
	Type            string  `csv:"type"`
	MaxHoursPerWeek float64 `csv:"max_hours_per_week"`
	QualifiedLabs   string  `csv:"qualified_labs"`
}

type timeslotRecord struct {
	Number int    `csv:"slot_number"`
	Start  string `csv:"start"`
	End    string `csv:"end"`
}

// CSVCatalogRepository loads a catalog snapshot from a directory of CSV files.
type CSVCatalogRepository struct {
	dir string
}

// NewCSVCatalogRepository constructs a repository rooted at dir.
func NewCSVCatalogRepository(dir string) *CSVCatalogRepository {
	return &CSVCatalogRepository{dir: dir}
}

// Load reads every catalog file. Lab instructor, lab and timeslot files are
// optional; the default weekly grid is used when no timeslots are given.
func (r *CSVCatalogRepository) Load(ctx context.Context) (*models.Catalog, error) {
	catalog := &models.Catalog{Grid: models.DefaultGrid()}

	if err := r.read(RoomsFile, true, &catalog.Rooms); err != nil {
		return nil, err
	}
	if err := r.read(ProfessorsFile, true, &catalog.Professors); err != nil {
		return nil, err
	}
	if err := r.read(LecturesFile, true, &catalog.Lectures); err != nil {
		return nil, err
	}
	if err := r.read(LabsFile, false, &catalog.Labs); err != nil {
		return nil, err
	}

	var groups []groupRecord
	if err := r.read(GroupsFile, true, &groups); err != nil {
		return nil, err
	}
	catalog.Groups = buildGroups(groups)

	var instructors []labInstructorRecord
	if err := r.read(LabInstructorsFile, false, &instructors); err != nil {
		return nil, err
	}
	for _, rec := range instructors {
		catalog.LabInstructors = append(catalog.LabInstructors, models.LabInstructor{
			ID:              strings.TrimSpace(rec.ID),
			Name:            strings.TrimSpace(rec.Name),
			Type:            models.InstructorType(strings.ToLower(strings.TrimSpace(rec.Type))),
			MaxHoursPerWeek: rec.MaxHoursPerWeek,
			QualifiedLabs:   splitList(rec.QualifiedLabs),
		})
	}

	var slots []timeslotRecord
	if err := r.read(TimeslotsFile, false, &slots); err != nil {
		return nil, err
	}
	if len(slots) > 0 {
		catalog.Grid.Slots = make([]models.SlotWindow, 0, len(slots))
		for _, s := range slots {
			catalog.Grid.Slots = append(catalog.Grid.Slots, models.SlotWindow{Number: s.Number, Start: s.Start, End: s.End})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (r *CSVCatalogRepository) read(name string, required bool, out interface{}) error {
	file, err := os.Open(filepath.Join(r.dir, name))
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close() //nolint:errcheck

	if err := gocsv.Unmarshal(file, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func buildGroups(records []groupRecord) []models.Group {
	groups := make([]models.Group, 0, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.ID)
		dept := strings.TrimSpace(rec.Department)
		group := models.Group{ID: id, Level: rec.Level, Number: rec.Number, Department: dept}
		for n := 1; n <= rec.SectionCount; n++ {
			group.Sections = append(group.Sections, models.Section{
				ID:         fmt.Sprintf("%s-S%d", id, n),
				GroupID:    id,
				Level:      rec.Level,
				Number:     n,
				Department: dept,
			})
		}
		groups = append(groups, group)
	}
	return groups
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '|' }) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// AssignmentRecord is the flat CSV shape of one assignment.
type AssignmentRecord struct {
	ID         string `csv:"assignment_id"`
	Type       string `csv:"type"`
	CourseCode string `csv:"course_code"`
	CourseName string `csv:"course_name"`
	Day        string `csv:"day"`
	Slot       int    `csv:"slot"`
	Start      string `csv:"start"`
	End        string `csv:"end"`
	Room       string `csv:"room"`
	Instructor string `csv:"instructor"`
	TargetKind string `csv:"target_kind"`
	AssignedTo string `csv:"assigned_to"`
}

// ConflictRecord is the flat CSV shape of one conflict.
type ConflictRecord struct {
	CourseCode string `csv:"course_code"`
	Type       string `csv:"type"`
	TargetKind string `csv:"target_kind"`
	Target     string `csv:"target"`
	Reason     string `csv:"reason"`
	Detail     string `csv:"detail"`
}

// AssignmentRecords flattens assignments using the grid for day names and times.
func AssignmentRecords(grid models.Grid, assignments []models.Assignment) []*AssignmentRecord {
	records := make([]*AssignmentRecord, 0, len(assignments))
	for _, a := range assignments {
		window := grid.Window(a.Slot.Slot)
		instructor := a.InstructorName
		if instructor == "" {
			instructor = a.InstructorID
		}
		records = append(records, &AssignmentRecord{
			ID:         a.ID,
			Type:       string(a.Kind),
			CourseCode: a.CourseCode,
			CourseName: a.CourseName,
			Day:        grid.DayName(a.Slot.Day),
			Slot:       a.Slot.Slot,
			Start:      window.Start,
			End:        window.End,
			Room:       a.RoomID,
			Instructor: instructor,
			TargetKind: string(a.TargetKind),
			AssignedTo: a.TargetID,
		})
	}
	return records
}

// WriteAssignments writes the assignments CSV to w.
func WriteAssignments(w io.Writer, grid models.Grid, assignments []models.Assignment) error {
	records := AssignmentRecords(grid, assignments)
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("write assignments csv: %w", err)
	}
	return nil
}

// WriteConflicts writes the conflicts CSV to w.
func WriteConflicts(w io.Writer, conflicts []models.Conflict) error {
	records := make([]*ConflictRecord, 0, len(conflicts))
	for _, c := range conflicts {
		records = append(records, &ConflictRecord{
			CourseCode: c.CourseCode,
			Type:       string(c.Kind),
			TargetKind: string(c.TargetKind),
			Target:     c.TargetID,
			Reason:     string(c.Reason),
			Detail:     c.Detail,
		})
	}
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("write conflicts csv: %w", err)
	}
	return nil
}
