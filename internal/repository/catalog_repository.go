package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// CatalogRepository reads and replaces the scheduling catalog stored in Postgres.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

type gridDayRow struct {
	Position int    `db:"position"`
	Name     string `db:"name"`
}

type gridSlotRow struct {
	Number int    `db:"number"`
	Start  string `db:"start_time"`
	End    string `db:"end_time"`
}

type levelRow struct {
	Level    int `db:"level"`
	Position int `db:"position"`
}

type qualificationRow struct {
	InstructorID string `db:"instructor_id"`
	CourseCode   string `db:"course_code"`
}

// catalogTables lists tables in delete order, children first.
var catalogTables = []string{
	"lab_instructor_qualifications",
	"lecture_courses",
	"lab_courses",
	"lab_instructors",
	"professors",
	"sections",
	"student_groups",
	"levels",
	"rooms",
	"grid_slots",
	"grid_days",
}

// Load assembles a catalog snapshot. Empty grid tables fall back to the default week.
func (r *CatalogRepository) Load(ctx context.Context) (*models.Catalog, error) {
	catalog := &models.Catalog{Grid: models.DefaultGrid()}

	var days []gridDayRow
	if err := r.db.SelectContext(ctx, &days, `SELECT position, name FROM grid_days ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("list grid days: %w", err)
	}
	if len(days) > 0 {
		catalog.Grid.Days = make([]string, 0, len(days))
		for _, d := range days {
			catalog.Grid.Days = append(catalog.Grid.Days, d.Name)
		}
	}

	var slots []gridSlotRow
	if err := r.db.SelectContext(ctx, &slots, `SELECT number, start_time, end_time FROM grid_slots ORDER BY number ASC`); err != nil {
		return nil, fmt.Errorf("list grid slots: %w", err)
	}
	if len(slots) > 0 {
		catalog.Grid.Slots = make([]models.SlotWindow, 0, len(slots))
		for _, s := range slots {
			catalog.Grid.Slots = append(catalog.Grid.Slots, models.SlotWindow{Number: s.Number, Start: s.Start, End: s.End})
		}
	}

	var levels []levelRow
	if err := r.db.SelectContext(ctx, &levels, `SELECT level, position FROM levels ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	for _, l := range levels {
		catalog.Levels = append(catalog.Levels, l.Level)
	}

	if err := r.db.SelectContext(ctx, &catalog.Rooms, `SELECT id, kind, capacity, building, bound_course FROM rooms ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	if err := r.db.SelectContext(ctx, &catalog.Groups, `SELECT id, level, number, department FROM student_groups ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, `SELECT id, group_id, level, number, department FROM sections ORDER BY group_id ASC, number ASC`); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	groupIndex := make(map[string]int, len(catalog.Groups))
	for i, g := range catalog.Groups {
		groupIndex[g.ID] = i
	}
	for _, s := range sections {
		if i, ok := groupIndex[s.GroupID]; ok {
			catalog.Groups[i].Sections = append(catalog.Groups[i].Sections, s)
		}
	}

	if err := r.db.SelectContext(ctx, &catalog.Professors, `SELECT id, name FROM professors ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}

	if err := r.db.SelectContext(ctx, &catalog.LabInstructors, `SELECT id, name, type, max_hours_per_week FROM lab_instructors ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("list lab instructors: %w", err)
	}
	var quals []qualificationRow
	if err := r.db.SelectContext(ctx, &quals, `SELECT instructor_id, course_code FROM lab_instructor_qualifications ORDER BY instructor_id ASC, course_code ASC`); err != nil {
		return nil, fmt.Errorf("list lab instructor qualifications: %w", err)
	}
	instructorIndex := make(map[string]int, len(catalog.LabInstructors))
	for i, inst := range catalog.LabInstructors {
		instructorIndex[inst.ID] = i
	}
	for _, q := range quals {
		if i, ok := instructorIndex[q.InstructorID]; ok {
			catalog.LabInstructors[i].QualifiedLabs = append(catalog.LabInstructors[i].QualifiedLabs, q.CourseCode)
		}
	}

	if err := r.db.SelectContext(ctx, &catalog.Lectures, `SELECT code, name, group_id, professor_id, weekly_slots, full_day, room_id
FROM lecture_courses ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("list lecture courses: %w", err)
	}
	if err := r.db.SelectContext(ctx, &catalog.Labs, `SELECT code, name, level, department, room_id, sessions_per_section
FROM lab_courses ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("list lab courses: %w", err)
	}

	return catalog, nil
}

// Replace swaps the stored catalog for the provided one inside a single transaction.
func (r *CatalogRepository) Replace(ctx context.Context, catalog *models.Catalog) error {
	if catalog == nil {
		return fmt.Errorf("catalog payload is nil")
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	if err := replaceCatalog(ctx, tx, catalog); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog tx: %w", err)
	}
	return nil
}

func replaceCatalog(ctx context.Context, tx *sqlx.Tx, catalog *models.Catalog) error {
	for _, table := range catalogTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, day := range catalog.Grid.Days {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO grid_days (position, name) VALUES (:position, :name)`, gridDayRow{Position: i, Name: day}); err != nil {
			return fmt.Errorf("insert grid day: %w", err)
		}
	}
	for _, s := range catalog.Grid.Slots {
		row := gridSlotRow{Number: s.Number, Start: s.Start, End: s.End}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO grid_slots (number, start_time, end_time) VALUES (:number, :start_time, :end_time)`, row); err != nil {
			return fmt.Errorf("insert grid slot: %w", err)
		}
	}
	for i, level := range catalog.Levels {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO levels (level, position) VALUES (:level, :position)`, levelRow{Level: level, Position: i}); err != nil {
			return fmt.Errorf("insert level: %w", err)
		}
	}
	for _, room := range catalog.Rooms {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO rooms (id, kind, capacity, building, bound_course)
VALUES (:id, :kind, :capacity, :building, :bound_course)`, room); err != nil {
			return fmt.Errorf("insert room %s: %w", room.ID, err)
		}
	}
	for _, group := range catalog.Groups {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO student_groups (id, level, number, department)
VALUES (:id, :level, :number, :department)`, group); err != nil {
			return fmt.Errorf("insert group %s: %w", group.ID, err)
		}
		for _, section := range group.Sections {
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO sections (id, group_id, level, number, department)
VALUES (:id, :group_id, :level, :number, :department)`, section); err != nil {
				return fmt.Errorf("insert section %s: %w", section.ID, err)
			}
		}
	}
	for _, prof := range catalog.Professors {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO professors (id, name) VALUES (:id, :name)`, prof); err != nil {
			return fmt.Errorf("insert professor %s: %w", prof.ID, err)
		}
	}
	for _, inst := range catalog.LabInstructors {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO lab_instructors (id, name, type, max_hours_per_week)
VALUES (:id, :name, :type, :max_hours_per_week)`, inst); err != nil {
			return fmt.Errorf("insert lab instructor %s: %w", inst.ID, err)
		}
		for _, code := range inst.QualifiedLabs {
			row := qualificationRow{InstructorID: inst.ID, CourseCode: code}
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO lab_instructor_qualifications (instructor_id, course_code)
VALUES (:instructor_id, :course_code) ON CONFLICT DO NOTHING`, row); err != nil {
				return fmt.Errorf("insert qualification %s/%s: %w", inst.ID, code, err)
			}
		}
	}
	for _, lecture := range catalog.Lectures {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO lecture_courses (code, name, group_id, professor_id, weekly_slots, full_day, room_id)
VALUES (:code, :name, :group_id, :professor_id, :weekly_slots, :full_day, :room_id)`, lecture); err != nil {
			return fmt.Errorf("insert lecture %s: %w", lecture.Code, err)
		}
	}
	for _, lab := range catalog.Labs {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO lab_courses (code, name, level, department, room_id, sessions_per_section)
VALUES (:code, :name, :level, :department, :room_id, :sessions_per_section)`, lab); err != nil {
			return fmt.Errorf("insert lab %s: %w", lab.Code, err)
		}
	}
	return nil
}
