package scheduler

import (
	"github.com/noah-isme/timetable-api/internal/models"
)

// Checker answers legality questions against the tracker without mutating it.
type Checker struct {
	tracker *Tracker
	matcher *Matcher
	rooms   []models.Room
}

// NewChecker wires a checker over the run's tracker and matcher.
func NewChecker(catalog *models.Catalog, tracker *Tracker, matcher *Matcher) *Checker {
	return &Checker{tracker: tracker, matcher: matcher, rooms: catalog.Rooms}
}

// LectureLegal reports whether the professor, the group and every section of
// the group are free at slot.
func (c *Checker) LectureLegal(course models.LectureCourse, slot models.TimeSlotKey) bool {
	return c.tracker.IsInstructorFree(course.ProfessorID, slot) &&
		c.tracker.IsGroupFree(course.GroupID, slot) &&
		c.tracker.GroupSectionsFree(course.GroupID, slot)
}

// ConcurrencyCap is the number of simultaneous sessions of the lab allowed at
// slot: sessions already running there plus qualified instructors still free.
func (c *Checker) ConcurrencyCap(courseCode string, slot models.TimeSlotKey) int {
	return c.tracker.ConcurrentLabs(courseCode, slot) + c.matcher.FreeQualified(courseCode, slot)
}

// LabLegal reports whether the section is free and the course has not hit
// its concurrency cap at slot.
func (c *Checker) LabLegal(lab models.LabCourse, section models.Section, slot models.TimeSlotKey) bool {
	if !c.tracker.IsSectionFree(section.ID, slot) {
		return false
	}
	return c.tracker.ConcurrentLabs(lab.Code, slot) < c.ConcurrencyCap(lab.Code, slot)
}

// EligibleRoom picks a room for the course at slot. A required room is the
// only candidate; otherwise the first free room of the kind in catalog order
// wins, skipping rooms bound to another course.
func (c *Checker) EligibleRoom(kind models.RoomKind, requiredRoom, courseCode string, slot models.TimeSlotKey) (string, bool) {
	if requiredRoom != "" {
		return requiredRoom, c.tracker.IsRoomFree(requiredRoom, slot)
	}
	for _, room := range c.rooms {
		if room.Kind != kind {
			continue
		}
		if room.BoundCourse != "" && room.BoundCourse != courseCode {
			continue
		}
		if c.tracker.IsRoomFree(room.ID, slot) {
			return room.ID, true
		}
	}
	return "", false
}

// EligibleRoomForDay finds a single room free at every slot of the day.
func (c *Checker) EligibleRoomForDay(kind models.RoomKind, requiredRoom, courseCode string, slots []models.TimeSlotKey) (string, bool) {
	free := func(roomID string) bool {
		for _, slot := range slots {
			if !c.tracker.IsRoomFree(roomID, slot) {
				return false
			}
		}
		return true
	}
	if requiredRoom != "" {
		return requiredRoom, free(requiredRoom)
	}
	for _, room := range c.rooms {
		if room.Kind != kind {
			continue
		}
		if room.BoundCourse != "" && room.BoundCourse != courseCode {
			continue
		}
		if free(room.ID) {
			return room.ID, true
		}
	}
	return "", false
}
