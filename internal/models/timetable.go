package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimeSlotKey identifies one (day, period) cell of the weekly grid. Day is a
// zero-based index into Grid.Days, Slot is the 1-based period number.
type TimeSlotKey struct {
	Day  int `db:"day" json:"day"`
	Slot int `db:"slot" json:"slot"`
}

// Less orders keys day-major.
func (k TimeSlotKey) Less(other TimeSlotKey) bool {
	if k.Day == other.Day {
		return k.Slot < other.Slot
	}
	return k.Day < other.Day
}

// SessionKind distinguishes lectures from lab sessions.
type SessionKind string

const (
	SessionLecture SessionKind = "lecture"
	SessionLab     SessionKind = "lab"
)

// TargetKind names what an assignment or conflict is attached to.
type TargetKind string

const (
	TargetGroup   TargetKind = "group"
	TargetSection TargetKind = "section"
)

// Assignment is one placed session. Immutable once emitted.
type Assignment struct {
	ID             string      `db:"id" json:"id" csv:"assignment_id"`
	Kind           SessionKind `db:"kind" json:"kind" csv:"type"`
	CourseCode     string      `db:"course_code" json:"course_code" csv:"course_code"`
	CourseName     string      `db:"course_name" json:"course_name" csv:"course_name"`
	Slot           TimeSlotKey `db:"-" json:"slot" csv:"-"`
	RoomID         string      `db:"room_id" json:"room_id" csv:"room"`
	InstructorID   string      `db:"instructor_id" json:"instructor_id" csv:"instructor_id"`
	InstructorName string      `db:"instructor_name" json:"instructor_name" csv:"instructor"`
	TargetKind     TargetKind  `db:"target_kind" json:"target_kind" csv:"target_kind"`
	TargetID       string      `db:"target_id" json:"target_id" csv:"assigned_to"`
	SectionIDs     []string    `db:"-" json:"section_ids,omitempty" csv:"-"`
}

// ConflictReason classifies why a placement failed.
type ConflictReason string

const (
	ConflictNoSlot                ConflictReason = "NO_SLOT"
	ConflictNoRoom                ConflictReason = "NO_ROOM"
	ConflictNoInstructor          ConflictReason = "NO_INSTRUCTOR"
	ConflictNoQualifiedInstructor ConflictReason = "NO_QUALIFIED_INSTRUCTOR"
	ConflictNoFullDay             ConflictReason = "NO_FULL_DAY"
)

// Conflict records a course/target pair that could not be placed.
type Conflict struct {
	CourseCode string         `db:"course_code" json:"course_code"`
	Kind       SessionKind    `db:"kind" json:"kind"`
	TargetKind TargetKind     `db:"target_kind" json:"target_kind"`
	TargetID   string         `db:"target_id" json:"target_id"`
	Reason     ConflictReason `db:"reason" json:"reason"`
	Detail     string         `db:"detail" json:"detail"`
}

// InstructorLoad summarises the hours bound to one lab instructor.
type InstructorLoad struct {
	InstructorID string  `json:"instructor_id"`
	Hours        float64 `json:"hours"`
	MaxHours     float64 `json:"max_hours"`
}

// TimetableStats aggregates placement coverage for a run.
type TimetableStats struct {
	LecturesRequested int              `json:"lectures_requested"`
	LecturesPlaced    int              `json:"lectures_placed"`
	LabsRequested     int              `json:"labs_requested"`
	LabsPlaced        int              `json:"labs_placed"`
	InstructorLoads   []InstructorLoad `json:"instructor_loads"`
}

// Timetable is a complete, validated generation result.
type Timetable struct {
	RunID       string         `db:"id" json:"run_id"`
	Seed        int64          `db:"seed" json:"seed"`
	GeneratedAt time.Time      `db:"generated_at" json:"generated_at"`
	Grid        Grid           `db:"-" json:"grid"`
	Assignments []Assignment   `db:"-" json:"assignments"`
	Conflicts   []Conflict     `db:"-" json:"conflicts"`
	Stats       TimetableStats `db:"-" json:"stats"`
}

// TimetableRunStatus tracks whether a stored run is the live one.
type TimetableRunStatus string

const (
	TimetableRunPublished TimetableRunStatus = "PUBLISHED"
	TimetableRunArchived  TimetableRunStatus = "ARCHIVED"
)

// TimetableRun is the persisted header row of a generation.
type TimetableRun struct {
	ID          string             `db:"id" json:"id"`
	Seed        int64              `db:"seed" json:"seed"`
	Status      TimetableRunStatus `db:"status" json:"status"`
	Assignments int                `db:"assignment_count" json:"assignment_count"`
	Conflicts   int                `db:"conflict_count" json:"conflict_count"`
	Stats       types.JSONText     `db:"stats" json:"stats"`
	GeneratedAt time.Time          `db:"generated_at" json:"generated_at"`
}
