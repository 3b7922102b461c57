package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// View names, also used as cache key suffixes.
const (
	ViewLevels         = "levels"
	ViewProfessors     = "professors"
	ViewLabInstructors = "lab-instructors"
	ViewRooms          = "rooms"
)

type timetableSnapshot interface {
	Snapshot() (*models.Timetable, *models.Catalog, error)
}

// ViewService regroups the published timetable by level, section, professor,
// lab instructor and room.
type ViewService struct {
	source timetableSnapshot
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewViewService constructs the view service.
func NewViewService(source timetableSnapshot, cache *CacheService, ttl time.Duration, logger *zap.Logger) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{source: source, cache: cache, ttl: ttl, logger: logger}
}

// Levels returns every section's weekly entries grouped by level in level order.
func (s *ViewService) Levels(ctx context.Context) ([]dto.LevelView, error) {
	var views []dto.LevelView
	err := s.cached(ctx, ViewLevels, &views, func(tt *models.Timetable, catalog *models.Catalog) interface{} {
		views = buildLevelViews(tt, catalog)
		return views
	})
	return views, err
}

// Section returns the weekly entries of one section.
func (s *ViewService) Section(ctx context.Context, sectionID string) (*dto.SectionView, error) {
	tt, catalog, err := s.source.Snapshot()
	if err != nil {
		return nil, err
	}
	for _, group := range catalog.Groups {
		for _, section := range group.Sections {
			if section.ID == sectionID {
				view := buildSectionView(tt, group, section)
				return &view, nil
			}
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
}

// Professors returns the lectures of every professor in roster order.
func (s *ViewService) Professors(ctx context.Context) ([]dto.ResourceView, error) {
	var views []dto.ResourceView
	err := s.cached(ctx, ViewProfessors, &views, func(tt *models.Timetable, catalog *models.Catalog) interface{} {
		byInstructor := groupEntries(tt, func(a models.Assignment) (string, bool) {
			return a.InstructorID, a.Kind == models.SessionLecture
		})
		views = make([]dto.ResourceView, 0, len(catalog.Professors))
		for _, p := range catalog.Professors {
			views = append(views, dto.ResourceView{ID: p.ID, Name: p.Name, Kind: "professor", Entries: nonNil(byInstructor[p.ID])})
		}
		return views
	})
	return views, err
}

// LabInstructors returns the lab sessions of every lab instructor with their weekly hours.
func (s *ViewService) LabInstructors(ctx context.Context) ([]dto.ResourceView, error) {
	var views []dto.ResourceView
	err := s.cached(ctx, ViewLabInstructors, &views, func(tt *models.Timetable, catalog *models.Catalog) interface{} {
		byInstructor := groupEntries(tt, func(a models.Assignment) (string, bool) {
			return a.InstructorID, a.Kind == models.SessionLab
		})
		hours := make(map[string]float64, len(tt.Stats.InstructorLoads))
		for _, load := range tt.Stats.InstructorLoads {
			hours[load.InstructorID] = load.Hours
		}
		views = make([]dto.ResourceView, 0, len(catalog.LabInstructors))
		for _, inst := range catalog.LabInstructors {
			views = append(views, dto.ResourceView{
				ID:      inst.ID,
				Name:    inst.Name,
				Kind:    string(inst.Type),
				Hours:   hours[inst.ID],
				Entries: nonNil(byInstructor[inst.ID]),
			})
		}
		return views
	})
	return views, err
}

// Rooms returns the occupancy of every room in catalog order.
func (s *ViewService) Rooms(ctx context.Context) ([]dto.ResourceView, error) {
	var views []dto.ResourceView
	err := s.cached(ctx, ViewRooms, &views, func(tt *models.Timetable, catalog *models.Catalog) interface{} {
		byRoom := groupEntries(tt, func(a models.Assignment) (string, bool) {
			return a.RoomID, true
		})
		views = make([]dto.ResourceView, 0, len(catalog.Rooms))
		for _, room := range catalog.Rooms {
			views = append(views, dto.ResourceView{ID: room.ID, Name: room.Building, Kind: string(room.Kind), Entries: nonNil(byRoom[room.ID])})
		}
		return views
	})
	return views, err
}

// cached serves dest from the cache or builds it and stores the result.
func (s *ViewService) cached(ctx context.Context, view string, dest interface{}, build func(*models.Timetable, *models.Catalog) interface{}) error {
	tt, catalog, err := s.source.Snapshot()
	if err != nil {
		return err
	}
	key := ViewKey(tt.RunID, view)
	if hit, err := s.cache.Get(ctx, key, dest); err == nil && hit {
		return nil
	}
	value := build(tt, catalog)
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Debug("view not cached", zap.String("view", view), zap.Error(err))
	}
	return nil
}

func buildLevelViews(tt *models.Timetable, catalog *models.Catalog) []dto.LevelView {
	byLevel := make(map[int][]dto.SectionView)
	for _, group := range catalog.Groups {
		for _, section := range group.Sections {
			byLevel[group.Level] = append(byLevel[group.Level], buildSectionView(tt, group, section))
		}
	}
	levels := catalog.LevelOrder()
	views := make([]dto.LevelView, 0, len(levels))
	for _, level := range levels {
		views = append(views, dto.LevelView{Level: level, Sections: nonNilSections(byLevel[level])})
	}
	return views
}

func buildSectionView(tt *models.Timetable, group models.Group, section models.Section) dto.SectionView {
	var entries []dto.ViewEntry
	for _, a := range tt.Assignments {
		if attends(a, group, section) {
			entries = append(entries, toViewEntry(tt.Grid, a))
		}
	}
	sortEntries(entries)
	return dto.SectionView{SectionID: section.ID, GroupID: group.ID, Level: section.Level, Entries: nonNil(entries)}
}

func attends(a models.Assignment, group models.Group, section models.Section) bool {
	switch a.TargetKind {
	case models.TargetGroup:
		return a.TargetID == group.ID
	case models.TargetSection:
		if a.TargetID == section.ID {
			return true
		}
		for _, id := range a.SectionIDs {
			if id == section.ID {
				return true
			}
		}
	}
	return false
}

func groupEntries(tt *models.Timetable, keyOf func(models.Assignment) (string, bool)) map[string][]dto.ViewEntry {
	out := make(map[string][]dto.ViewEntry)
	for _, a := range tt.Assignments {
		key, ok := keyOf(a)
		if !ok || key == "" {
			continue
		}
		out[key] = append(out[key], toViewEntry(tt.Grid, a))
	}
	for key := range out {
		sortEntries(out[key])
	}
	return out
}

func toViewEntry(grid models.Grid, a models.Assignment) dto.ViewEntry {
	window := grid.Window(a.Slot.Slot)
	return dto.ViewEntry{
		AssignmentID: a.ID,
		Kind:         a.Kind,
		Day:          grid.DayName(a.Slot.Day),
		DayIndex:     a.Slot.Day,
		Slot:         a.Slot.Slot,
		Start:        window.Start,
		End:          window.End,
		CourseCode:   a.CourseCode,
		CourseName:   a.CourseName,
		RoomID:       a.RoomID,
		InstructorID: a.InstructorID,
		Instructor:   a.InstructorName,
		TargetKind:   a.TargetKind,
		TargetID:     a.TargetID,
	}
}

func sortEntries(entries []dto.ViewEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DayIndex != entries[j].DayIndex {
			return entries[i].DayIndex < entries[j].DayIndex
		}
		if entries[i].Slot != entries[j].Slot {
			return entries[i].Slot < entries[j].Slot
		}
		return entries[i].AssignmentID < entries[j].AssignmentID
	})
}

func nonNil(entries []dto.ViewEntry) []dto.ViewEntry {
	if entries == nil {
		return []dto.ViewEntry{}
	}
	return entries
}

func nonNilSections(sections []dto.SectionView) []dto.SectionView {
	if sections == nil {
		return []dto.SectionView{}
	}
	return sections
}
