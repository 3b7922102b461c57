package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-api/internal/models"
)

// TimetableRepository persists generated timetables. Only one run is
// PUBLISHED at a time; saving a new run archives the previous one.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

type assignmentRow struct {
	RunID          string `db:"run_id"`
	ID             string `db:"id"`
	Kind           string `db:"kind"`
	CourseCode     string `db:"course_code"`
	CourseName     string `db:"course_name"`
	Day            int    `db:"day"`
	Slot           int    `db:"slot"`
	RoomID         string `db:"room_id"`
	InstructorID   string `db:"instructor_id"`
	InstructorName string `db:"instructor_name"`
	TargetKind     string `db:"target_kind"`
	TargetID       string `db:"target_id"`
	SectionIDs     string `db:"section_ids"`
}

type conflictRow struct {
	RunID      string `db:"run_id"`
	Position   int    `db:"position"`
	CourseCode string `db:"course_code"`
	Kind       string `db:"kind"`
	TargetKind string `db:"target_kind"`
	TargetID   string `db:"target_id"`
	Reason     string `db:"reason"`
	Detail     string `db:"detail"`
}

func toAssignmentRow(runID string, a models.Assignment) assignmentRow {
	return assignmentRow{
		RunID:          runID,
		ID:             a.ID,
		Kind:           string(a.Kind),
		CourseCode:     a.CourseCode,
		CourseName:     a.CourseName,
		Day:            a.Slot.Day,
		Slot:           a.Slot.Slot,
		RoomID:         a.RoomID,
		InstructorID:   a.InstructorID,
		InstructorName: a.InstructorName,
		TargetKind:     string(a.TargetKind),
		TargetID:       a.TargetID,
		SectionIDs:     strings.Join(a.SectionIDs, ","),
	}
}

func (row assignmentRow) model() models.Assignment {
	a := models.Assignment{
		ID:             row.ID,
		Kind:           models.SessionKind(row.Kind),
		CourseCode:     row.CourseCode,
		CourseName:     row.CourseName,
		Slot:           models.TimeSlotKey{Day: row.Day, Slot: row.Slot},
		RoomID:         row.RoomID,
		InstructorID:   row.InstructorID,
		InstructorName: row.InstructorName,
		TargetKind:     models.TargetKind(row.TargetKind),
		TargetID:       row.TargetID,
	}
	if row.SectionIDs != "" {
		a.SectionIDs = strings.Split(row.SectionIDs, ",")
	}
	return a
}

// Save stores the timetable as the published run and archives its predecessor.
func (r *TimetableRepository) Save(ctx context.Context, timetable *models.Timetable) error {
	if timetable == nil || timetable.RunID == "" {
		return fmt.Errorf("timetable run id is required")
	}
	stats, err := json.Marshal(timetable.Stats)
	if err != nil {
		return fmt.Errorf("marshal timetable stats: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timetable tx: %w", err)
	}

	run := models.TimetableRun{
		ID:          timetable.RunID,
		Seed:        timetable.Seed,
		Status:      models.TimetableRunPublished,
		Assignments: len(timetable.Assignments),
		Conflicts:   len(timetable.Conflicts),
		Stats:       types.JSONText(stats),
		GeneratedAt: timetable.GeneratedAt,
	}
	if err := saveRun(ctx, tx, run, timetable); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable tx: %w", err)
	}
	return nil
}

func saveRun(ctx context.Context, tx *sqlx.Tx, run models.TimetableRun, timetable *models.Timetable) error {
	const archiveQuery = `UPDATE timetable_runs SET status = $1 WHERE status = $2`
	if _, err := tx.ExecContext(ctx, archiveQuery, models.TimetableRunArchived, models.TimetableRunPublished); err != nil {
		return fmt.Errorf("archive timetable runs: %w", err)
	}

	const runQuery = `INSERT INTO timetable_runs (id, seed, status, assignment_count, conflict_count, stats, generated_at)
VALUES (:id, :seed, :status, :assignment_count, :conflict_count, :stats, :generated_at)`
	if _, err := tx.NamedExecContext(ctx, runQuery, run); err != nil {
		return fmt.Errorf("insert timetable run: %w", err)
	}

	const assignmentQuery = `INSERT INTO timetable_assignments (run_id, id, kind, course_code, course_name, day, slot, room_id, instructor_id, instructor_name, target_kind, target_id, section_ids)
VALUES (:run_id, :id, :kind, :course_code, :course_name, :day, :slot, :room_id, :instructor_id, :instructor_name, :target_kind, :target_id, :section_ids)`
	for _, a := range timetable.Assignments {
		if _, err := tx.NamedExecContext(ctx, assignmentQuery, toAssignmentRow(run.ID, a)); err != nil {
			return fmt.Errorf("insert assignment %s: %w", a.ID, err)
		}
	}

	const conflictQuery = `INSERT INTO timetable_conflicts (run_id, position, course_code, kind, target_kind, target_id, reason, detail)
VALUES (:run_id, :position, :course_code, :kind, :target_kind, :target_id, :reason, :detail)`
	for i, c := range timetable.Conflicts {
		row := conflictRow{
			RunID:      run.ID,
			Position:   i,
			CourseCode: c.CourseCode,
			Kind:       string(c.Kind),
			TargetKind: string(c.TargetKind),
			TargetID:   c.TargetID,
			Reason:     string(c.Reason),
			Detail:     c.Detail,
		}
		if _, err := tx.NamedExecContext(ctx, conflictQuery, row); err != nil {
			return fmt.Errorf("insert conflict: %w", err)
		}
	}
	return nil
}

// LatestPublished loads the currently published run. Returns sql.ErrNoRows when none exists.
func (r *TimetableRepository) LatestPublished(ctx context.Context) (*models.Timetable, error) {
	const runQuery = `SELECT id, seed, status, assignment_count, conflict_count, stats, generated_at
FROM timetable_runs WHERE status = $1 ORDER BY generated_at DESC LIMIT 1`
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, runQuery, models.TimetableRunPublished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get published timetable run: %w", err)
	}

	timetable := &models.Timetable{
		RunID:       run.ID,
		Seed:        run.Seed,
		GeneratedAt: run.GeneratedAt,
		Assignments: []models.Assignment{},
		Conflicts:   []models.Conflict{},
	}
	if len(run.Stats) > 0 {
		if err := json.Unmarshal(run.Stats, &timetable.Stats); err != nil {
			return nil, fmt.Errorf("unmarshal timetable stats: %w", err)
		}
	}

	const assignmentQuery = `SELECT run_id, id, kind, course_code, course_name, day, slot, room_id, instructor_id, instructor_name, target_kind, target_id, section_ids
FROM timetable_assignments WHERE run_id = $1 ORDER BY id ASC`
	var rows []assignmentRow
	if err := r.db.SelectContext(ctx, &rows, assignmentQuery, run.ID); err != nil {
		return nil, fmt.Errorf("list timetable assignments: %w", err)
	}
	for _, row := range rows {
		timetable.Assignments = append(timetable.Assignments, row.model())
	}

	const conflictQuery = `SELECT run_id, position, course_code, kind, target_kind, target_id, reason, detail
FROM timetable_conflicts WHERE run_id = $1 ORDER BY position ASC`
	var conflicts []conflictRow
	if err := r.db.SelectContext(ctx, &conflicts, conflictQuery, run.ID); err != nil {
		return nil, fmt.Errorf("list timetable conflicts: %w", err)
	}
	for _, c := range conflicts {
		timetable.Conflicts = append(timetable.Conflicts, models.Conflict{
			CourseCode: c.CourseCode,
			Kind:       models.SessionKind(c.Kind),
			TargetKind: models.TargetKind(c.TargetKind),
			TargetID:   c.TargetID,
			Reason:     models.ConflictReason(c.Reason),
			Detail:     c.Detail,
		})
	}
	return timetable, nil
}

// ListRuns returns stored run headers, newest first.
func (r *TimetableRepository) ListRuns(ctx context.Context, limit int) ([]models.TimetableRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, seed, status, assignment_count, conflict_count, stats, generated_at
FROM timetable_runs ORDER BY generated_at DESC LIMIT $1`
	var runs []models.TimetableRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list timetable runs: %w", err)
	}
	return runs, nil
}
