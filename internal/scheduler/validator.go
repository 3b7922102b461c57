package scheduler

import (
	"fmt"
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Violation is one broken invariant together with the assignments involved.
type Violation struct {
	Rule          string             `json:"rule"`
	Slot          models.TimeSlotKey `json:"slot"`
	Resource      string             `json:"resource"`
	AssignmentIDs []string           `json:"assignment_ids"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s at day %d slot %d: %s", v.Rule, v.Resource, v.Day(), v.Slot.Slot, strings.Join(v.AssignmentIDs, ","))
}

// Day returns the violation's day index.
func (v Violation) Day() int {
	return v.Slot.Day
}

// ValidationError reports every invariant the assignment set breaks.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return "timetable validation failed: " + strings.Join(parts, "; ")
}

type occupancyKey struct {
	resource string
	slot     models.TimeSlotKey
}

type occupancy struct {
	rule  string
	cells map[occupancyKey]string
	out   *[]Violation
}

func (o *occupancy) claim(resource string, slot models.TimeSlotKey, assignmentID string) {
	key := occupancyKey{resource: resource, slot: slot}
	if owner, taken := o.cells[key]; taken {
		if owner == assignmentID {
			return
		}
		*o.out = append(*o.out, Violation{
			Rule:          o.rule,
			Slot:          slot,
			Resource:      resource,
			AssignmentIDs: []string{owner, assignmentID},
		})
		return
	}
	o.cells[key] = assignmentID
}

// Validate re-derives occupancy from the assignments alone and checks that no
// room, instructor, group or section is double booked, that labs are taught by
// qualified instructors within their weekly hours, and that no lab course runs
// more sessions at once than it has qualified instructors.
func Validate(catalog *models.Catalog, assignments []models.Assignment, opts ...Option) error {
	cfg := newSettings(opts)
	var violations []Violation

	newOccupancy := func(rule string) *occupancy {
		return &occupancy{rule: rule, cells: make(map[occupancyKey]string), out: &violations}
	}
	rooms := newOccupancy("room double booked")
	instructors := newOccupancy("instructor double booked")
	groups := newOccupancy("group double booked")
	sections := newOccupancy("section double booked")

	groupSections := make(map[string][]string, len(catalog.Groups))
	for _, group := range catalog.Groups {
		groupSections[group.ID] = group.SectionIDs()
	}
	labInstructors := make(map[string]models.LabInstructor, len(catalog.LabInstructors))
	qualified := make(map[string]int)
	for _, inst := range catalog.LabInstructors {
		labInstructors[inst.ID] = inst
		for _, code := range inst.QualifiedLabs {
			qualified[code]++
		}
	}

	hours := make(map[string]float64)
	concurrent := make(map[occupancyKey][]string)
	ids := make(map[string]bool, len(assignments))

	for _, a := range assignments {
		if ids[a.ID] {
			violations = append(violations, Violation{Rule: "duplicate assignment id", Slot: a.Slot, Resource: a.ID, AssignmentIDs: []string{a.ID}})
		}
		ids[a.ID] = true

		if !catalog.Grid.Contains(a.Slot) {
			violations = append(violations, Violation{Rule: "slot outside grid", Slot: a.Slot, Resource: a.CourseCode, AssignmentIDs: []string{a.ID}})
			continue
		}

		rooms.claim(a.RoomID, a.Slot, a.ID)
		instructors.claim(a.InstructorID, a.Slot, a.ID)

		switch a.TargetKind {
		case models.TargetGroup:
			groups.claim(a.TargetID, a.Slot, a.ID)
			for _, id := range groupSections[a.TargetID] {
				sections.claim(id, a.Slot, a.ID)
			}
		case models.TargetSection:
			sections.claim(a.TargetID, a.Slot, a.ID)
			for _, id := range a.SectionIDs {
				sections.claim(id, a.Slot, a.ID)
			}
		}

		if a.Kind != models.SessionLab {
			continue
		}
		inst, ok := labInstructors[a.InstructorID]
		if !ok || !inst.IsQualified(a.CourseCode) {
			violations = append(violations, Violation{Rule: "unqualified lab instructor", Slot: a.Slot, Resource: a.InstructorID, AssignmentIDs: []string{a.ID}})
		}
		hours[a.InstructorID] += cfg.sessionHours
		key := occupancyKey{resource: a.CourseCode, slot: a.Slot}
		concurrent[key] = append(concurrent[key], a.ID)
	}

	for _, inst := range catalog.LabInstructors {
		if hours[inst.ID] > inst.MaxHoursPerWeek {
			violations = append(violations, Violation{
				Rule:     fmt.Sprintf("weekly hours %.1f exceed %.1f", hours[inst.ID], inst.MaxHoursPerWeek),
				Resource: inst.ID,
			})
		}
	}
	for _, slot := range catalog.Grid.Keys() {
		for _, lab := range catalog.Labs {
			running := concurrent[occupancyKey{resource: lab.Code, slot: slot}]
			if len(running) > qualified[lab.Code] {
				violations = append(violations, Violation{
					Rule:          "concurrency cap exceeded",
					Slot:          slot,
					Resource:      lab.Code,
					AssignmentIDs: running,
				})
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
