package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func testCatalog() *models.Catalog {
	return &models.Catalog{
		Grid:   models.DefaultGrid(),
		Levels: []int{1},
		Rooms: []models.Room{
			{ID: "R1", Kind: models.RoomKindLecture, Capacity: 120, Building: "Main"},
			{ID: "L1", Kind: models.RoomKindLab, Capacity: 30, Building: "Annex"},
		},
		Groups: []models.Group{{
			ID:    "G1",
			Level: 1,
			Sections: []models.Section{
				{ID: "G1-S1", GroupID: "G1", Level: 1, Number: 1},
				{ID: "G1-S2", GroupID: "G1", Level: 1, Number: 2},
			},
		}},
		Professors: []models.Professor{{ID: "P1", Name: "Dr. Hana"}},
		LabInstructors: []models.LabInstructor{
			{ID: "I1", Name: "Omar", Type: models.InstructorFullTime, MaxHoursPerWeek: 10, QualifiedLabs: []string{"CS101L"}},
		},
		Lectures: []models.LectureCourse{
			{Code: "CS101", Name: "Intro to Computing", GroupID: "G1", ProfessorID: "P1", WeeklySlots: 2},
		},
		Labs: []models.LabCourse{
			{Code: "CS101L", Name: "Intro to Computing Lab", Level: 1, SessionsPerSection: 1},
		},
	}
}

type catalogSourceStub struct {
	mu      sync.Mutex
	catalog *models.Catalog
	err     error
	calls   int
}

func (s *catalogSourceStub) Load(ctx context.Context) (*models.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.catalog, nil
}

type timetableStoreStub struct {
	mu      sync.Mutex
	saved   []*models.Timetable
	latest  *models.Timetable
	runs    []models.TimetableRun
	saveErr error
}

func (s *timetableStoreStub) Save(ctx context.Context, timetable *models.Timetable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, timetable)
	return nil
}

func (s *timetableStoreStub) LatestPublished(ctx context.Context) (*models.Timetable, error) {
	if s.latest == nil {
		return nil, sql.ErrNoRows
	}
	return s.latest, nil
}

func (s *timetableStoreStub) ListRuns(ctx context.Context, limit int) ([]models.TimetableRun, error) {
	if limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

// memoryCache is an in-memory CacheRepository keeping JSON payloads.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets++
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memoryCache) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
