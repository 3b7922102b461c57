package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func matcherCatalog() *models.Catalog {
	catalog := scenarioCatalog(10)
	catalog.LabInstructors = []models.LabInstructor{
		{ID: "PT1", Name: "Part Timer", Type: models.InstructorPartTime, MaxHoursPerWeek: 4, QualifiedLabs: []string{"CS101L"}},
		{ID: "FT1", Name: "Full Timer", Type: models.InstructorFullTime, MaxHoursPerWeek: 4, QualifiedLabs: []string{"CS101L"}},
		{ID: "FT2", Name: "Second Full Timer", Type: models.InstructorFullTime, MaxHoursPerWeek: 4, QualifiedLabs: []string{"CS101L", "CS101L"}},
		{ID: "OTHER", Name: "Other", Type: models.InstructorFullTime, MaxHoursPerWeek: 4, QualifiedLabs: []string{"MA101L"}},
	}
	return catalog
}

func candidateIDs(candidates []models.LabInstructor) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestMatcherOrdersByLoadThenTypeThenRoster(t *testing.T) {
	catalog := matcherCatalog()
	tracker := NewTracker(catalog)
	matcher := NewMatcher(catalog, tracker, 1)
	slot := models.TimeSlotKey{Day: 0, Slot: 2}

	assert.Equal(t, 3, matcher.QualifiedCount("CS101L"))
	assert.Equal(t, []string{"FT1", "FT2", "PT1"}, candidateIDs(matcher.Candidates("CS101L", slot)))

	tracker.IncrementLoad("FT1", 1)
	assert.Equal(t, []string{"FT2", "PT1", "FT1"}, candidateIDs(matcher.Candidates("CS101L", slot)))

	best, ok := matcher.Match("CS101L", slot)
	require.True(t, ok)
	assert.Equal(t, "FT2", best.ID)
}

func TestMatcherSkipsBusyAndFullInstructors(t *testing.T) {
	catalog := matcherCatalog()
	tracker := NewTracker(catalog)
	matcher := NewMatcher(catalog, tracker, 2)
	slot := models.TimeSlotKey{Day: 4, Slot: 1}

	tracker.Reserve(models.Assignment{ID: "A0001", Kind: models.SessionLab, CourseCode: "CS101L", Slot: slot, RoomID: "L1", InstructorID: "FT1", TargetKind: models.TargetSection, TargetID: "G1-S1"})
	tracker.IncrementLoad("FT2", 3)

	assert.Equal(t, []string{"PT1"}, candidateIDs(matcher.Candidates("CS101L", slot)))
	assert.Equal(t, 2, matcher.FreeQualified("CS101L", slot))

	tracker.IncrementLoad("PT1", 3)
	_, ok := matcher.Match("CS101L", slot)
	assert.False(t, ok)
	_, ok = matcher.Match("UNKNOWN", slot)
	assert.False(t, ok)
}
