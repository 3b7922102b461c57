package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
)

// DefaultSessionHours is the weekly load one lab session adds to an instructor.
const DefaultSessionHours = 1.0

// Option tunes a generation run.
type Option func(*settings)

type settings struct {
	logger       *zap.Logger
	sessionHours float64
}

// WithLogger routes per-unit progress logs to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionHours overrides the hours charged per lab session.
func WithSessionHours(hours float64) Option {
	return func(s *settings) {
		if hours > 0 {
			s.sessionHours = hours
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{logger: zap.NewNop(), sessionHours: DefaultSessionHours}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Generate builds a timetable for the catalog. Lab slot candidates are
// shuffled with a source seeded from seed, so the same catalog and seed always
// produce the same assignments and conflicts.
//
// Unplaceable sessions are reported as conflicts. A malformed catalog fails
// with ErrInvalidCatalog and a broken invariant with *ValidationError; in both
// cases no result is returned. The context is checked between scheduling units.
func Generate(ctx context.Context, catalog *models.Catalog, seed int64, opts ...Option) (*Result, error) {
	cfg := newSettings(opts)
	if err := ValidateCatalog(catalog); err != nil {
		return nil, err
	}

	r := newRun(catalog, seed, cfg)
	for _, u := range r.units() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		before := len(r.result.Assignments)
		conflictsBefore := len(r.result.Conflicts)
		r.scheduleLectures(u)
		r.scheduleLabs(u)
		cfg.logger.Debug("scheduling unit completed",
			zap.Int("level", u.level),
			zap.String("department", u.department),
			zap.Int("assignments", len(r.result.Assignments)-before),
			zap.Int("conflicts", len(r.result.Conflicts)-conflictsBefore),
		)
	}

	r.collectStats()
	if err := Validate(catalog, r.result.Assignments, opts...); err != nil {
		return nil, err
	}
	return r.result, nil
}

type unit struct {
	level      int
	department string
	groups     []models.Group
}

type run struct {
	catalog *models.Catalog
	cfg     settings
	rng     *rand.Rand

	tracker *Tracker
	matcher *Matcher
	checker *Checker

	keys       []models.TimeSlotKey
	professors map[string]models.Professor
	groupOrder map[string]int
	shareCount map[string]int

	result *Result
	nextID int
}

func newRun(catalog *models.Catalog, seed int64, cfg settings) *run {
	tracker := NewTracker(catalog)
	matcher := NewMatcher(catalog, tracker, cfg.sessionHours)
	r := &run{
		catalog:    catalog,
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(seed)),
		tracker:    tracker,
		matcher:    matcher,
		checker:    NewChecker(catalog, tracker, matcher),
		keys:       catalog.Grid.Keys(),
		professors: make(map[string]models.Professor, len(catalog.Professors)),
		groupOrder: make(map[string]int, len(catalog.Groups)),
		shareCount: make(map[string]int),
		result:     &Result{Seed: seed},
	}
	for _, prof := range catalog.Professors {
		r.professors[prof.ID] = prof
	}
	for i, group := range catalog.Groups {
		r.groupOrder[group.ID] = i
	}
	for _, course := range catalog.Lectures {
		r.shareCount[course.ProfessorID]++
	}
	return r
}

// units splits every level into its foundation unit (groups without a
// department) followed by one unit per department, in catalog order.
func (r *run) units() []unit {
	var out []unit
	for _, level := range r.catalog.LevelOrder() {
		base := unit{level: level}
		var departments []string
		byDepartment := make(map[string][]models.Group)
		for _, group := range r.catalog.Groups {
			if group.Level != level {
				continue
			}
			if group.Department == "" {
				base.groups = append(base.groups, group)
				continue
			}
			if _, ok := byDepartment[group.Department]; !ok {
				departments = append(departments, group.Department)
			}
			byDepartment[group.Department] = append(byDepartment[group.Department], group)
		}
		if len(base.groups) > 0 {
			out = append(out, base)
		}
		for _, dept := range departments {
			out = append(out, unit{level: level, department: dept, groups: byDepartment[dept]})
		}
	}
	return out
}

func (r *run) newID() string {
	r.nextID++
	return fmt.Sprintf("A%04d", r.nextID)
}

func (r *run) scheduleLectures(u unit) {
	inUnit := make(map[string]bool, len(u.groups))
	for _, group := range u.groups {
		inUnit[group.ID] = true
	}

	var courses []models.LectureCourse
	for _, course := range r.catalog.Lectures {
		if inUnit[course.GroupID] {
			courses = append(courses, course)
		}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		if r.shareCount[a.ProfessorID] != r.shareCount[b.ProfessorID] {
			return r.shareCount[a.ProfessorID] > r.shareCount[b.ProfessorID]
		}
		if a.ProfessorID != b.ProfessorID {
			return a.ProfessorID < b.ProfessorID
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return r.groupOrder[a.GroupID] < r.groupOrder[b.GroupID]
	})

	for _, course := range courses {
		if course.FullDay {
			r.result.Stats.LecturesRequested++
			p := r.placeFullDay(course)
			if p.Placed() {
				r.result.Stats.LecturesPlaced++
			}
			r.result.add(p)
			continue
		}
		for i := 0; i < course.Sessions(); i++ {
			r.result.Stats.LecturesRequested++
			p := r.placeLecture(course)
			if p.Placed() {
				r.result.Stats.LecturesPlaced++
			}
			r.result.add(p)
		}
	}
}

func (r *run) placeLecture(course models.LectureCourse) Placement {
	sawLegal := false
	for _, slot := range r.keys {
		if !r.checker.LectureLegal(course, slot) {
			continue
		}
		sawLegal = true
		roomID, ok := r.checker.EligibleRoom(models.RoomKindLecture, course.RoomID, course.Code, slot)
		if !ok {
			continue
		}
		a := r.lectureAssignment(course, slot, roomID)
		r.tracker.Reserve(a)
		return placed(a)
	}

	conflict := lectureConflict(course, models.ConflictNoSlot, "no slot with professor and group free")
	if sawLegal {
		conflict = lectureConflict(course, models.ConflictNoRoom, "no lecture room free in any legal slot")
	}
	return unplaced(conflict)
}

func (r *run) placeFullDay(course models.LectureCourse) Placement {
	for day := range r.catalog.Grid.Days {
		slots := make([]models.TimeSlotKey, 0, r.catalog.Grid.SlotsPerDay())
		legal := true
		for _, window := range r.catalog.Grid.Slots {
			slot := models.TimeSlotKey{Day: day, Slot: window.Number}
			if !r.checker.LectureLegal(course, slot) {
				legal = false
				break
			}
			slots = append(slots, slot)
		}
		if !legal {
			continue
		}
		roomID, ok := r.checker.EligibleRoomForDay(models.RoomKindLecture, course.RoomID, course.Code, slots)
		if !ok {
			continue
		}
		assignments := make([]models.Assignment, 0, len(slots))
		for _, slot := range slots {
			a := r.lectureAssignment(course, slot, roomID)
			r.tracker.Reserve(a)
			assignments = append(assignments, a)
		}
		return placed(assignments...)
	}
	return unplaced(lectureConflict(course, models.ConflictNoFullDay, "no day with every slot free for group, professor and one room"))
}

func (r *run) lectureAssignment(course models.LectureCourse, slot models.TimeSlotKey, roomID string) models.Assignment {
	group := r.catalog.Groups[r.groupOrder[course.GroupID]]
	return models.Assignment{
		ID:             r.newID(),
		Kind:           models.SessionLecture,
		CourseCode:     course.Code,
		CourseName:     course.Name,
		Slot:           slot,
		RoomID:         roomID,
		InstructorID:   course.ProfessorID,
		InstructorName: r.professors[course.ProfessorID].Name,
		TargetKind:     models.TargetGroup,
		TargetID:       course.GroupID,
		SectionIDs:     group.SectionIDs(),
	}
}

func lectureConflict(course models.LectureCourse, reason models.ConflictReason, detail string) models.Conflict {
	return models.Conflict{
		CourseCode: course.Code,
		Kind:       models.SessionLecture,
		TargetKind: models.TargetGroup,
		TargetID:   course.GroupID,
		Reason:     reason,
		Detail:     detail,
	}
}

// sortedLabs orders labs with a required room first, then by course code.
func sortedLabs(labs []models.LabCourse) []models.LabCourse {
	out := append([]models.LabCourse(nil), labs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.RoomID != "") != (b.RoomID != "") {
			return a.RoomID != ""
		}
		return a.Code < b.Code
	})
	return out
}

func (r *run) scheduleLabs(u unit) {
	var sections []models.Section
	for _, group := range u.groups {
		sections = append(sections, group.Sections...)
	}

	for _, lab := range sortedLabs(r.catalog.Labs) {
		for _, section := range sections {
			if !lab.Targets(section) {
				continue
			}
			for i := 0; i < lab.Sessions(); i++ {
				r.result.Stats.LabsRequested++
				p := r.placeLab(lab, section)
				if p.Placed() {
					r.result.Stats.LabsPlaced++
				}
				r.result.add(p)
			}
		}
	}
}

type labStage int

const (
	stageSlot labStage = iota
	stageRoom
	stageInstructor
)

func (r *run) placeLab(lab models.LabCourse, section models.Section) Placement {
	if r.matcher.QualifiedCount(lab.Code) == 0 {
		return unplaced(labConflict(lab, section, models.ConflictNoQualifiedInstructor, "no lab instructor is qualified for this course"))
	}

	slots := append([]models.TimeSlotKey(nil), r.keys...)
	r.rng.Shuffle(len(slots), func(i, j int) {
		slots[i], slots[j] = slots[j], slots[i]
	})

	reached := stageSlot
	for _, slot := range slots {
		if !r.checker.LabLegal(lab, section, slot) {
			continue
		}
		if reached < stageRoom {
			reached = stageRoom
		}
		roomID, ok := r.checker.EligibleRoom(models.RoomKindLab, lab.RoomID, lab.Code, slot)
		if !ok {
			continue
		}
		if reached < stageInstructor {
			reached = stageInstructor
		}
		instructor, ok := r.matcher.Match(lab.Code, slot)
		if !ok {
			continue
		}

		a := models.Assignment{
			ID:             r.newID(),
			Kind:           models.SessionLab,
			CourseCode:     lab.Code,
			CourseName:     lab.Name,
			Slot:           slot,
			RoomID:         roomID,
			InstructorID:   instructor.ID,
			InstructorName: instructor.Name,
			TargetKind:     models.TargetSection,
			TargetID:       section.ID,
			SectionIDs:     []string{section.ID},
		}
		r.tracker.Reserve(a)
		r.tracker.IncrementLoad(instructor.ID, r.cfg.sessionHours)
		return placed(a)
	}

	switch reached {
	case stageInstructor:
		return unplaced(labConflict(lab, section, models.ConflictNoInstructor, "qualified instructors are booked or at weekly capacity"))
	case stageRoom:
		return unplaced(labConflict(lab, section, models.ConflictNoRoom, "no lab room free in any legal slot"))
	default:
		return unplaced(labConflict(lab, section, models.ConflictNoSlot, "section busy or concurrency cap reached in every slot"))
	}
}

func labConflict(lab models.LabCourse, section models.Section, reason models.ConflictReason, detail string) models.Conflict {
	return models.Conflict{
		CourseCode: lab.Code,
		Kind:       models.SessionLab,
		TargetKind: models.TargetSection,
		TargetID:   section.ID,
		Reason:     reason,
		Detail:     detail,
	}
}

func (r *run) collectStats() {
	loads := make([]models.InstructorLoad, 0, len(r.catalog.LabInstructors))
	for _, inst := range r.catalog.LabInstructors {
		loads = append(loads, models.InstructorLoad{
			InstructorID: inst.ID,
			Hours:        r.tracker.LabLoad(inst.ID),
			MaxHours:     inst.MaxHoursPerWeek,
		})
	}
	r.result.Stats.InstructorLoads = loads
}
