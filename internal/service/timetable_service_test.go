package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
)

type stubScheduleReader struct {
	schedules map[string]*models.Schedule
}

func (s *stubScheduleReader) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, ok := s.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *schedule
	return &copied, nil
}

type stubEntryStore struct {
	entries     []models.TimetableEntry
	lastFilter  models.TimetableFilter
	listCalls   int
	total       int
	utilisation []models.RoomUtilisation
	load        []models.ProfessorLoad
}

func (s *stubEntryStore) ListEntries(ctx context.Context, scheduleID string, filter models.TimetableFilter) ([]models.TimetableEntry, error) {
	s.listCalls++
	s.lastFilter = filter
	if len(filter.GroupIDs) > 0 {
		allowed := make(map[string]bool, len(filter.GroupIDs))
		for _, id := range filter.GroupIDs {
			allowed[id] = true
		}
		var out []models.TimetableEntry
		for _, e := range s.entries {
			if allowed[e.GroupID] {
				out = append(out, e)
			}
		}
		return out, nil
	}
	return append([]models.TimetableEntry(nil), s.entries...), nil
}

func (s *stubEntryStore) CountBySchedule(ctx context.Context, scheduleID string) (int, error) {
	return s.total, nil
}

func (s *stubEntryStore) RoomUtilisation(ctx context.Context, scheduleID string) ([]models.RoomUtilisation, error) {
	return append([]models.RoomUtilisation(nil), s.utilisation...), nil
}

func (s *stubEntryStore) ProfessorLoad(ctx context.Context, scheduleID string) ([]models.ProfessorLoad, error) {
	return append([]models.ProfessorLoad(nil), s.load...), nil
}

func completedScheduleFixture() *models.Schedule {
	return &models.Schedule{
		ID:            "s1",
		InstitutionID: "inst-1",
		Status:        models.ScheduleStatusCompleted,
		TimeGridConfig: models.TimeGridConfig{
			Weeks:                      14,
			Days:                       5,
			TimeslotsPerDay:            12,
			MaxTimeslotsPerDayPerGroup: 8,
		},
	}
}

func timetableFixture(schedule *models.Schedule, entries *stubEntryStore, groups map[string]*models.Group) *TimetableService {
	schedules := &stubScheduleReader{schedules: map[string]*models.Schedule{}}
	if schedule != nil {
		schedules.schedules[schedule.ID] = schedule
	}
	groupStore := &mockGroupStore{groups: groups}
	return NewTimetableService(schedules, entries, groupStore, nil, zap.NewNop())
}

func TestTimetableGroupViewIncludesAncestors(t *testing.T) {
	entries := &stubEntryStore{entries: []models.TimetableEntry{
		{ActivityID: "a1", GroupID: "groupA", StartTimeslot: 13, DurationSlots: 2, ActiveWeeks: pq.Int64Array{0, 1}},
		{ActivityID: "a2", GroupID: "series", StartTimeslot: 0, DurationSlots: 2, ActiveWeeks: pq.Int64Array{0}},
		{ActivityID: "a3", GroupID: "groupB", StartTimeslot: 5, DurationSlots: 1},
	}}
	groups := map[string]*models.Group{
		"series": {ID: "series", InstitutionID: "inst-1"},
		"groupA": {ID: "groupA", InstitutionID: "inst-1", ParentGroupID: strPtr("series")},
		"groupB": {ID: "groupB", InstitutionID: "inst-1", ParentGroupID: strPtr("series")},
	}
	svc := timetableFixture(completedScheduleFixture(), entries, groups)

	view, err := svc.GroupView(context.Background(), "s1", "groupA")
	require.NoError(t, err)
	assert.Equal(t, []string{"groupA", "series"}, entries.lastFilter.GroupIDs)
	require.Len(t, view.Entries, 2)

	// Start index 13 on a 12-slot day is day 1, slot 1.
	for _, e := range view.Entries {
		if e.ActivityID == "a1" {
			assert.Equal(t, 1, e.Day)
			assert.Equal(t, 1, e.Slot)
		}
		if e.ActivityID == "a2" {
			assert.Equal(t, 0, e.Day)
			assert.Equal(t, 0, e.Slot)
		}
	}
}

func TestTimetableGroupViewUnknownGroup(t *testing.T) {
	svc := timetableFixture(completedScheduleFixture(), &stubEntryStore{}, map[string]*models.Group{})

	_, err := svc.GroupView(context.Background(), "s1", "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestTimetableViewRequiresCompletedSchedule(t *testing.T) {
	schedule := completedScheduleFixture()
	schedule.Status = models.ScheduleStatusRunning
	svc := timetableFixture(schedule, &stubEntryStore{}, map[string]*models.Group{})

	_, err := svc.RoomView(context.Background(), "s1", "room-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestTimetableProfessorViewFilter(t *testing.T) {
	entries := &stubEntryStore{entries: []models.TimetableEntry{
		{ActivityID: "a1", GroupID: "g1", StartTimeslot: 24},
	}}
	svc := timetableFixture(completedScheduleFixture(), entries, map[string]*models.Group{})

	view, err := svc.ProfessorView(context.Background(), "s1", "prof-1")
	require.NoError(t, err)
	assert.Equal(t, "prof-1", entries.lastFilter.ProfessorID)
	assert.Equal(t, "prof-1", view.ProfessorID)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, 2, view.Entries[0].Day)
	assert.Equal(t, 0, view.Entries[0].Slot)
}

func TestTimetableViewServedFromCache(t *testing.T) {
	entries := &stubEntryStore{entries: []models.TimetableEntry{{ActivityID: "a1", GroupID: "g1"}}}
	schedules := &stubScheduleReader{schedules: map[string]*models.Schedule{"s1": completedScheduleFixture()}}
	cache := newMockCache()
	svc := NewTimetableService(schedules, entries, &mockGroupStore{groups: map[string]*models.Group{}}, cache, zap.NewNop())

	_, err := svc.RoomView(context.Background(), "s1", "room-1")
	require.NoError(t, err)
	require.Equal(t, 1, entries.listCalls)

	_, err = svc.RoomView(context.Background(), "s1", "room-1")
	require.NoError(t, err)
	assert.Equal(t, 1, entries.listCalls, "second view must come from cache")
}

func TestTimetableStatsUtilisation(t *testing.T) {
	entries := &stubEntryStore{
		total: 3,
		utilisation: []models.RoomUtilisation{
			{RoomID: "room-1", RoomName: "A101", OccupiedSlotWeeks: 420},
		},
		load: []models.ProfessorLoad{
			{ProfessorID: "prof-1", ProfessorName: "Ada", SlotWeeks: 84, Activities: 2},
		},
	}
	svc := timetableFixture(completedScheduleFixture(), entries, map[string]*models.Group{})

	stats, err := svc.Stats(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPlacements)
	require.Len(t, stats.RoomUtilisation, 1)
	// 420 occupied slot-weeks over a 5x12 grid across 14 weeks.
	assert.InDelta(t, 0.5, stats.RoomUtilisation[0].Utilisation, 1e-9)
	require.Len(t, stats.ProfessorLoad, 1)
	assert.Equal(t, 84, stats.ProfessorLoad[0].SlotWeeks)
}

func TestTimetableStatsNotFound(t *testing.T) {
	svc := timetableFixture(nil, &stubEntryStore{}, map[string]*models.Group{})

	_, err := svc.Stats(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}
