package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ErrInvalidCatalog marks a catalog that cannot be scheduled at all.
var ErrInvalidCatalog = errors.New("invalid catalog")

var structValidator = validator.New()

// ValidateCatalog checks struct constraints and cross references. It returns
// an error wrapping ErrInvalidCatalog listing every problem found.
func ValidateCatalog(catalog *models.Catalog) error {
	if catalog == nil {
		return fmt.Errorf("%w: catalog is nil", ErrInvalidCatalog)
	}

	var problems []string
	if err := structValidator.Struct(catalog); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	for i, window := range catalog.Grid.Slots {
		if window.Number != i+1 {
			problems = append(problems, fmt.Sprintf("grid slot %d is numbered %d", i+1, window.Number))
		}
	}

	rooms := make(map[string]models.Room, len(catalog.Rooms))
	for _, room := range catalog.Rooms {
		if _, dup := rooms[room.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate room %q", room.ID))
		}
		rooms[room.ID] = room
	}

	groups := make(map[string]models.Group, len(catalog.Groups))
	sections := make(map[string]bool)
	for _, group := range catalog.Groups {
		if _, dup := groups[group.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate group %q", group.ID))
		}
		groups[group.ID] = group
		for _, section := range group.Sections {
			if sections[section.ID] {
				problems = append(problems, fmt.Sprintf("duplicate section %q", section.ID))
			}
			sections[section.ID] = true
			if section.GroupID != group.ID || section.Level != group.Level {
				problems = append(problems, fmt.Sprintf("section %q does not match group %q", section.ID, group.ID))
			}
		}
	}

	professors := make(map[string]bool, len(catalog.Professors))
	for _, prof := range catalog.Professors {
		if professors[prof.ID] {
			problems = append(problems, fmt.Sprintf("duplicate professor %q", prof.ID))
		}
		professors[prof.ID] = true
	}

	instructors := make(map[string]bool, len(catalog.LabInstructors))
	for _, inst := range catalog.LabInstructors {
		if instructors[inst.ID] {
			problems = append(problems, fmt.Sprintf("duplicate lab instructor %q", inst.ID))
		}
		instructors[inst.ID] = true
	}

	lectures := make(map[string]bool, len(catalog.Lectures))
	for _, course := range catalog.Lectures {
		key := course.Code + "/" + course.GroupID
		if lectures[key] {
			problems = append(problems, fmt.Sprintf("lecture %q listed twice for group %q", course.Code, course.GroupID))
		}
		lectures[key] = true
		if _, ok := groups[course.GroupID]; !ok {
			problems = append(problems, fmt.Sprintf("lecture %q references unknown group %q", course.Code, course.GroupID))
		}
		if !professors[course.ProfessorID] {
			problems = append(problems, fmt.Sprintf("lecture %q references unknown professor %q", course.Code, course.ProfessorID))
		}
		problems = append(problems, checkRequiredRoom(rooms, course.Code, course.RoomID, models.RoomKindLecture)...)
	}

	labs := make(map[string]bool, len(catalog.Labs))
	for _, lab := range catalog.Labs {
		if labs[lab.Code] {
			problems = append(problems, fmt.Sprintf("duplicate lab course %q", lab.Code))
		}
		labs[lab.Code] = true
		problems = append(problems, checkRequiredRoom(rooms, lab.Code, lab.RoomID, models.RoomKindLab)...)
	}

	problems = append(problems, checkLevels(catalog)...)

	if len(catalog.Lectures) > 0 && !hasRoomKind(catalog.Rooms, models.RoomKindLecture) {
		problems = append(problems, fmt.Sprintf("no lecture rooms for %d lectures", len(catalog.Lectures)))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return nil
}

func checkRequiredRoom(rooms map[string]models.Room, code, roomID string, kind models.RoomKind) []string {
	if roomID == "" {
		return nil
	}
	room, ok := rooms[roomID]
	if !ok {
		return []string{fmt.Sprintf("course %q requires unknown room %q", code, roomID)}
	}
	if room.Kind != kind {
		return []string{fmt.Sprintf("course %q requires %s room but %q is %s", code, kind, roomID, room.Kind)}
	}
	if room.BoundCourse != "" && room.BoundCourse != code {
		return []string{fmt.Sprintf("course %q requires room %q bound to %q", code, roomID, room.BoundCourse)}
	}
	return nil
}

// checkLevels rejects repeated levels and, when the level order is explicit,
// groups whose level it omits. Either would replay or skip a unit of work.
func checkLevels(catalog *models.Catalog) []string {
	var problems []string
	listed := make(map[int]bool, len(catalog.Levels))
	for _, level := range catalog.Levels {
		if listed[level] {
			problems = append(problems, fmt.Sprintf("duplicate level %d", level))
		}
		listed[level] = true
	}
	if len(catalog.Levels) == 0 {
		return problems
	}
	for _, group := range catalog.Groups {
		if !listed[group.Level] {
			problems = append(problems, fmt.Sprintf("group %q has level %d missing from levels", group.ID, group.Level))
		}
	}
	return problems
}

func hasRoomKind(rooms []models.Room, kind models.RoomKind) bool {
	for _, room := range rooms {
		if room.Kind == kind {
			return true
		}
	}
	return false
}
