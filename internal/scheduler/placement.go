package scheduler

import "github.com/noah-isme/timetable-api/internal/models"

// Placement is the outcome of one placement attempt: either the assignments
// it produced or the conflict explaining why nothing was placed.
type Placement struct {
	Assignments []models.Assignment
	Conflict    *models.Conflict
}

// Placed reports whether the attempt produced assignments.
func (p Placement) Placed() bool {
	return p.Conflict == nil
}

func placed(assignments ...models.Assignment) Placement {
	return Placement{Assignments: assignments}
}

func unplaced(conflict models.Conflict) Placement {
	return Placement{Conflict: &conflict}
}

// Result carries everything a run produced, in emission order.
type Result struct {
	Seed        int64
	Assignments []models.Assignment
	Conflicts   []models.Conflict
	Stats       models.TimetableStats
}

func (r *Result) add(p Placement) {
	if p.Placed() {
		r.Assignments = append(r.Assignments, p.Assignments...)
		return
	}
	r.Conflicts = append(r.Conflicts, *p.Conflict)
}
