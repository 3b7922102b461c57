package scheduler

import (
	"github.com/noah-isme/timetable-api/internal/models"
)

// Tracker is the occupancy store of a single generation run. Every room,
// instructor, group and section gets a dense index and one row of cells per
// weekly slot; a cell holds the ordinal of the reserving assignment plus one,
// so zero means free.
//
// Tracker performs no legality checks of its own. Callers consult the Checker
// before calling Reserve.
type Tracker struct {
	grid  models.Grid
	width int

	rooms       map[string]int
	instructors map[string]int
	groups      map[string]int
	sections    map[string]int

	groupSections [][]int

	roomCells       []int32
	instructorCells []int32
	groupCells      []int32
	sectionCells    []int32

	loads      []float64
	concurrent map[string][]int
	reserved   int32
}

// NewTracker indexes every resource of the catalog. Professors and lab
// instructors share one instructor namespace.
func NewTracker(catalog *models.Catalog) *Tracker {
	t := &Tracker{
		grid:        catalog.Grid,
		width:       catalog.Grid.Size(),
		rooms:       make(map[string]int, len(catalog.Rooms)),
		instructors: make(map[string]int, len(catalog.Professors)+len(catalog.LabInstructors)),
		groups:      make(map[string]int, len(catalog.Groups)),
		sections:    make(map[string]int),
		concurrent:  make(map[string][]int),
	}

	for _, room := range catalog.Rooms {
		if _, ok := t.rooms[room.ID]; !ok {
			t.rooms[room.ID] = len(t.rooms)
		}
	}
	for _, prof := range catalog.Professors {
		t.indexInstructor(prof.ID)
	}
	for _, inst := range catalog.LabInstructors {
		t.indexInstructor(inst.ID)
	}
	for _, group := range catalog.Groups {
		if _, ok := t.groups[group.ID]; ok {
			continue
		}
		t.groups[group.ID] = len(t.groups)
		members := make([]int, 0, len(group.Sections))
		for _, section := range group.Sections {
			idx, ok := t.sections[section.ID]
			if !ok {
				idx = len(t.sections)
				t.sections[section.ID] = idx
			}
			members = append(members, idx)
		}
		t.groupSections = append(t.groupSections, members)
	}

	t.roomCells = make([]int32, len(t.rooms)*t.width)
	t.instructorCells = make([]int32, len(t.instructors)*t.width)
	t.groupCells = make([]int32, len(t.groups)*t.width)
	t.sectionCells = make([]int32, len(t.sections)*t.width)
	t.loads = make([]float64, len(t.instructors))
	return t
}

func (t *Tracker) indexInstructor(id string) {
	if _, ok := t.instructors[id]; !ok {
		t.instructors[id] = len(t.instructors)
	}
}

func (t *Tracker) cell(row int, slot models.TimeSlotKey) (int, bool) {
	if row < 0 || !t.grid.Contains(slot) {
		return 0, false
	}
	return row*t.width + t.grid.Index(slot), true
}

func (t *Tracker) isFree(cells []int32, index map[string]int, id string, slot models.TimeSlotKey) bool {
	row, ok := index[id]
	if !ok {
		return false
	}
	pos, ok := t.cell(row, slot)
	if !ok {
		return false
	}
	return cells[pos] == 0
}

// IsRoomFree reports whether the room has no reservation at slot. Unknown
// rooms are never free.
func (t *Tracker) IsRoomFree(roomID string, slot models.TimeSlotKey) bool {
	return t.isFree(t.roomCells, t.rooms, roomID, slot)
}

// IsInstructorFree reports whether the professor or lab instructor is unbooked at slot.
func (t *Tracker) IsInstructorFree(instructorID string, slot models.TimeSlotKey) bool {
	return t.isFree(t.instructorCells, t.instructors, instructorID, slot)
}

// IsGroupFree reports whether no lecture occupies the group at slot.
func (t *Tracker) IsGroupFree(groupID string, slot models.TimeSlotKey) bool {
	return t.isFree(t.groupCells, t.groups, groupID, slot)
}

// IsSectionFree reports whether the section is unoccupied at slot, either by
// one of its labs or by a lecture of its group.
func (t *Tracker) IsSectionFree(sectionID string, slot models.TimeSlotKey) bool {
	return t.isFree(t.sectionCells, t.sections, sectionID, slot)
}

// GroupSectionsFree reports whether every section of the group is free at slot.
func (t *Tracker) GroupSectionsFree(groupID string, slot models.TimeSlotKey) bool {
	row, ok := t.groups[groupID]
	if !ok {
		return false
	}
	for _, section := range t.groupSections[row] {
		pos, ok := t.cell(section, slot)
		if !ok || t.sectionCells[pos] != 0 {
			return false
		}
	}
	return true
}

func (t *Tracker) mark(cells []int32, index map[string]int, id string, slot models.TimeSlotKey, ordinal int32) {
	row, ok := index[id]
	if !ok {
		return
	}
	if pos, ok := t.cell(row, slot); ok {
		cells[pos] = ordinal
	}
}

// Reserve marks the room, instructor and target of the assignment as occupied.
// A group-targeted lecture also occupies every section of the group. Lab
// reservations count toward the course's concurrency at the slot.
func (t *Tracker) Reserve(a models.Assignment) {
	t.reserved++
	ordinal := t.reserved

	t.mark(t.roomCells, t.rooms, a.RoomID, a.Slot, ordinal)
	t.mark(t.instructorCells, t.instructors, a.InstructorID, a.Slot, ordinal)

	switch a.TargetKind {
	case models.TargetGroup:
		t.mark(t.groupCells, t.groups, a.TargetID, a.Slot, ordinal)
		if row, ok := t.groups[a.TargetID]; ok {
			for _, section := range t.groupSections[row] {
				if pos, ok := t.cell(section, a.Slot); ok {
					t.sectionCells[pos] = ordinal
				}
			}
		}
	case models.TargetSection:
		t.mark(t.sectionCells, t.sections, a.TargetID, a.Slot, ordinal)
		for _, id := range a.SectionIDs {
			t.mark(t.sectionCells, t.sections, id, a.Slot, ordinal)
		}
	}

	if a.Kind == models.SessionLab && t.grid.Contains(a.Slot) {
		counts, ok := t.concurrent[a.CourseCode]
		if !ok {
			counts = make([]int, t.width)
			t.concurrent[a.CourseCode] = counts
		}
		counts[t.grid.Index(a.Slot)]++
	}
}

// LabLoad returns the hours already bound to the instructor this week.
func (t *Tracker) LabLoad(instructorID string) float64 {
	row, ok := t.instructors[instructorID]
	if !ok {
		return 0
	}
	return t.loads[row]
}

// IncrementLoad adds hours to the instructor's weekly load.
func (t *Tracker) IncrementLoad(instructorID string, hours float64) {
	if row, ok := t.instructors[instructorID]; ok {
		t.loads[row] += hours
	}
}

// ConcurrentLabs counts lab sessions of the course already reserved at slot.
func (t *Tracker) ConcurrentLabs(courseCode string, slot models.TimeSlotKey) int {
	counts, ok := t.concurrent[courseCode]
	if !ok || !t.grid.Contains(slot) {
		return 0
	}
	return counts[t.grid.Index(slot)]
}

// Reservations returns the number of assignments reserved so far.
func (t *Tracker) Reservations() int {
	return int(t.reserved)
}
