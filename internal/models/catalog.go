package models

// RoomKind distinguishes lecture halls from lab rooms.
type RoomKind string

const (
	RoomKindLecture RoomKind = "lecture"
	RoomKindLab     RoomKind = "lab"
)

// InstructorType captures the employment type of a lab instructor.
type InstructorType string

const (
	InstructorFullTime InstructorType = "full-time"
	InstructorPartTime InstructorType = "part-time"
)

// SlotWindow describes the wall-clock bounds of one daily teaching period.
type SlotWindow struct {
	Number int    `json:"number" validate:"required,min=1"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// Grid is the weekly day/slot layout shared by every resource.
type Grid struct {
	Days  []string     `json:"days" validate:"required,min=1,dive,required"`
	Slots []SlotWindow `json:"slots" validate:"required,min=1,dive"`
}

// DefaultGrid returns the institution's fixed Sunday–Thursday, four period week.
func DefaultGrid() Grid {
	return Grid{
		Days: []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday"},
		Slots: []SlotWindow{
			{Number: 1, Start: "09:00", End: "10:30"},
			{Number: 2, Start: "10:45", End: "12:15"},
			{Number: 3, Start: "12:30", End: "14:00"},
			{Number: 4, Start: "14:15", End: "15:45"},
		},
	}
}

// SlotsPerDay returns the number of periods in a day.
func (g Grid) SlotsPerDay() int {
	return len(g.Slots)
}

// Size returns the number of time slot keys in one week.
func (g Grid) Size() int {
	return len(g.Days) * len(g.Slots)
}

// Keys enumerates every time slot key in day-major order.
func (g Grid) Keys() []TimeSlotKey {
	keys := make([]TimeSlotKey, 0, g.Size())
	for day := range g.Days {
		for _, slot := range g.Slots {
			keys = append(keys, TimeSlotKey{Day: day, Slot: slot.Number})
		}
	}
	return keys
}

// Index maps a key to its dense position in [0, Size()).
func (g Grid) Index(key TimeSlotKey) int {
	return key.Day*len(g.Slots) + key.Slot - 1
}

// Contains reports whether the key lies within the grid.
func (g Grid) Contains(key TimeSlotKey) bool {
	return key.Day >= 0 && key.Day < len(g.Days) && key.Slot >= 1 && key.Slot <= len(g.Slots)
}

// DayName returns the display name of a day index.
func (g Grid) DayName(day int) string {
	if day < 0 || day >= len(g.Days) {
		return ""
	}
	return g.Days[day]
}

// Window returns the wall-clock window for a slot number.
func (g Grid) Window(slot int) SlotWindow {
	for _, w := range g.Slots {
		if w.Number == slot {
			return w
		}
	}
	return SlotWindow{Number: slot}
}

// Room is a bookable lecture hall or lab.
type Room struct {
	ID          string   `db:"id" json:"id" csv:"room_code" validate:"required"`
	Kind        RoomKind `db:"kind" json:"kind" csv:"room_type" validate:"required,oneof=lecture lab"`
	Capacity    int      `db:"capacity" json:"capacity,omitempty" csv:"capacity"`
	Building    string   `db:"building" json:"building,omitempty" csv:"building"`
	BoundCourse string   `db:"bound_course" json:"bound_course,omitempty" csv:"bound_course"`
}

// Section is the smallest unit for lab sessions.
type Section struct {
	ID         string `db:"id" json:"id" csv:"section_id" validate:"required"`
	GroupID    string `db:"group_id" json:"group_id" csv:"group_id" validate:"required"`
	Level      int    `db:"level" json:"level" csv:"level"`
	Number     int    `db:"number" json:"number" csv:"section_number"`
	Department string `db:"department" json:"department,omitempty" csv:"department"`
}

// Group is a cohort sharing lectures. Upper levels use one group per department.
type Group struct {
	ID         string    `db:"id" json:"id" validate:"required"`
	Level      int       `db:"level" json:"level" validate:"required,min=1"`
	Number     int       `db:"number" json:"number"`
	Department string    `db:"department" json:"department,omitempty"`
	Sections   []Section `db:"-" json:"sections" validate:"dive"`
}

// SectionIDs lists the identifiers of the group's sections in order.
func (g Group) SectionIDs() []string {
	ids := make([]string, 0, len(g.Sections))
	for _, s := range g.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}

// Professor teaches lectures and has no weekly cap.
type Professor struct {
	ID   string `db:"id" json:"id" csv:"professor_id" validate:"required"`
	Name string `db:"name" json:"name" csv:"professor_name"`
}

// LabInstructor runs lab sessions for the courses they are qualified for.
type LabInstructor struct {
	ID              string         `db:"id" json:"id" validate:"required"`
	Name            string         `db:"name" json:"name"`
	Type            InstructorType `db:"type" json:"type" validate:"required,oneof=full-time part-time"`
	MaxHoursPerWeek float64        `db:"max_hours_per_week" json:"max_hours_per_week" validate:"gt=0"`
	QualifiedLabs   []string       `db:"-" json:"qualified_labs"`
}

// IsQualified reports whether the instructor may teach the lab course.
func (i LabInstructor) IsQualified(courseCode string) bool {
	for _, code := range i.QualifiedLabs {
		if code == courseCode {
			return true
		}
	}
	return false
}

// LectureCourse is a group-wide lecture bound to one professor.
type LectureCourse struct {
	Code        string `db:"code" json:"code" csv:"course_code" validate:"required"`
	Name        string `db:"name" json:"name" csv:"course_name"`
	GroupID     string `db:"group_id" json:"group_id" csv:"group_id" validate:"required"`
	ProfessorID string `db:"professor_id" json:"professor_id" csv:"professor_id" validate:"required"`
	WeeklySlots int    `db:"weekly_slots" json:"weekly_slots" csv:"weekly_slots" validate:"min=0"`
	FullDay     bool   `db:"full_day" json:"full_day" csv:"full_day"`
	RoomID      string `db:"room_id" json:"room_id,omitempty" csv:"room_code"`
}

// Sessions returns the weekly slot requirement, defaulting to one.
func (c LectureCourse) Sessions() int {
	if c.WeeklySlots <= 0 {
		return 1
	}
	return c.WeeklySlots
}

// LabCourse is a per-section lab requirement for a level or a department.
type LabCourse struct {
	Code               string `db:"code" json:"code" csv:"course_code" validate:"required"`
	Name               string `db:"name" json:"name" csv:"course_name"`
	Level              int    `db:"level" json:"level" csv:"level" validate:"required,min=1"`
	Department         string `db:"department" json:"department,omitempty" csv:"department"`
	RoomID             string `db:"room_id" json:"room_id,omitempty" csv:"room_code"`
	SessionsPerSection int    `db:"sessions_per_section" json:"sessions_per_section" csv:"sessions_per_section" validate:"min=0"`
}

// Sessions returns the weekly per-section requirement, defaulting to one.
func (c LabCourse) Sessions() int {
	if c.SessionsPerSection <= 0 {
		return 1
	}
	return c.SessionsPerSection
}

// Targets reports whether the lab applies to the section.
func (c LabCourse) Targets(s Section) bool {
	if s.Level != c.Level {
		return false
	}
	return c.Department == "" || c.Department == s.Department
}

// Catalog is the fully resolved, read-only input of one generation run.
type Catalog struct {
	Grid           Grid            `json:"grid"`
	Levels         []int           `json:"levels"`
	Rooms          []Room          `json:"rooms" validate:"dive"`
	Groups         []Group         `json:"groups" validate:"dive"`
	Professors     []Professor     `json:"professors" validate:"dive"`
	LabInstructors []LabInstructor `json:"lab_instructors" validate:"dive"`
	Lectures       []LectureCourse `json:"lectures" validate:"dive"`
	Labs           []LabCourse     `json:"labs" validate:"dive"`
}

// Sections flattens all sections in group order.
func (c *Catalog) Sections() []Section {
	var out []Section
	for _, g := range c.Groups {
		out = append(out, g.Sections...)
	}
	return out
}

// LevelOrder returns the explicit level order or, when absent, levels in
// order of first appearance among groups.
func (c *Catalog) LevelOrder() []int {
	if len(c.Levels) > 0 {
		return c.Levels
	}
	seen := make(map[int]bool)
	var levels []int
	for _, g := range c.Groups {
		if !seen[g.Level] {
			seen[g.Level] = true
			levels = append(levels, g.Level)
		}
	}
	return levels
}
