package dto

import (
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
)

// RegenerateRequest triggers a new generation run. A nil seed uses the configured default.
type RegenerateRequest struct {
	Seed  *int64 `json:"seed" validate:"omitempty,min=0"`
	Async bool   `json:"async"`
}

// TimetableSummary describes the published timetable without its assignments.
type TimetableSummary struct {
	RunID       string                `json:"runId"`
	Seed        int64                 `json:"seed"`
	GeneratedAt time.Time             `json:"generatedAt"`
	Assignments int                   `json:"assignments"`
	Conflicts   int                   `json:"conflicts"`
	Grid        models.Grid           `json:"grid"`
	Stats       models.TimetableStats `json:"stats"`
}

// RegenerateJobResponse acknowledges a queued regeneration.
type RegenerateJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// ExportQuery selects the rendering of a full timetable export.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf xlsx"`
}

// RunsQuery bounds the run history listing.
type RunsQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=100"`
}

// ViewEntry is one assignment placed on a view's weekly grid.
type ViewEntry struct {
	AssignmentID string             `json:"assignmentId"`
	Kind         models.SessionKind `json:"kind"`
	Day          string             `json:"day"`
	DayIndex     int                `json:"dayIndex"`
	Slot         int                `json:"slot"`
	Start        string             `json:"start"`
	End          string             `json:"end"`
	CourseCode   string             `json:"courseCode"`
	CourseName   string             `json:"courseName"`
	RoomID       string             `json:"roomId"`
	InstructorID string             `json:"instructorId"`
	Instructor   string             `json:"instructor"`
	TargetKind   models.TargetKind  `json:"targetKind"`
	TargetID     string             `json:"targetId"`
}

// SectionView lists everything a section attends: its group's lectures and its own labs.
type SectionView struct {
	SectionID string      `json:"sectionId"`
	GroupID   string      `json:"groupId"`
	Level     int         `json:"level"`
	Entries   []ViewEntry `json:"entries"`
}

// LevelView groups section views by academic level.
type LevelView struct {
	Level    int           `json:"level"`
	Sections []SectionView `json:"sections"`
}

// ResourceView lists the sessions bound to a professor, lab instructor or room.
type ResourceView struct {
	ID      string      `json:"id"`
	Name    string      `json:"name,omitempty"`
	Kind    string      `json:"kind"`
	Hours   float64     `json:"hours,omitempty"`
	Entries []ViewEntry `json:"entries"`
}
