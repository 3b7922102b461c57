package scheduler

import (
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Matcher binds lab sessions to qualified lab instructors, balancing load.
type Matcher struct {
	tracker      *Tracker
	instructors  []models.LabInstructor
	qualified    map[string][]int
	sessionHours float64
}

// NewMatcher builds the qualification index from the catalog roster.
func NewMatcher(catalog *models.Catalog, tracker *Tracker, sessionHours float64) *Matcher {
	m := &Matcher{
		tracker:      tracker,
		instructors:  catalog.LabInstructors,
		qualified:    make(map[string][]int),
		sessionHours: sessionHours,
	}
	for i, inst := range catalog.LabInstructors {
		seen := make(map[string]bool, len(inst.QualifiedLabs))
		for _, code := range inst.QualifiedLabs {
			if seen[code] {
				continue
			}
			seen[code] = true
			m.qualified[code] = append(m.qualified[code], i)
		}
	}
	return m
}

// QualifiedCount returns how many catalog instructors may teach the course.
func (m *Matcher) QualifiedCount(courseCode string) int {
	return len(m.qualified[courseCode])
}

// FreeQualified counts qualified instructors not booked at slot.
func (m *Matcher) FreeQualified(courseCode string, slot models.TimeSlotKey) int {
	free := 0
	for _, i := range m.qualified[courseCode] {
		if m.tracker.IsInstructorFree(m.instructors[i].ID, slot) {
			free++
		}
	}
	return free
}

// Candidates lists instructors that are qualified, free at slot and have room
// for one more session, best first: lowest load, full-time before part-time,
// then roster order.
func (m *Matcher) Candidates(courseCode string, slot models.TimeSlotKey) []models.LabInstructor {
	var picks []int
	for _, i := range m.qualified[courseCode] {
		inst := m.instructors[i]
		if !m.tracker.IsInstructorFree(inst.ID, slot) {
			continue
		}
		if m.tracker.LabLoad(inst.ID)+m.sessionHours > inst.MaxHoursPerWeek {
			continue
		}
		picks = append(picks, i)
	}

	sort.SliceStable(picks, func(a, b int) bool {
		left, right := m.instructors[picks[a]], m.instructors[picks[b]]
		leftLoad, rightLoad := m.tracker.LabLoad(left.ID), m.tracker.LabLoad(right.ID)
		if leftLoad != rightLoad {
			return leftLoad < rightLoad
		}
		if left.Type != right.Type {
			return left.Type == models.InstructorFullTime
		}
		return picks[a] < picks[b]
	})

	out := make([]models.LabInstructor, 0, len(picks))
	for _, i := range picks {
		out = append(out, m.instructors[i])
	}
	return out
}

// Match returns the best candidate, or false when nobody can take the session.
func (m *Matcher) Match(courseCode string, slot models.TimeSlotKey) (models.LabInstructor, bool) {
	candidates := m.Candidates(courseCode, slot)
	if len(candidates) == 0 {
		return models.LabInstructor{}, false
	}
	return candidates[0], true
}
