package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
)

type timetableScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type timetableEntryStore interface {
	ListEntries(ctx context.Context, scheduleID string, filter models.TimetableFilter) ([]models.TimetableEntry, error)
	CountBySchedule(ctx context.Context, scheduleID string) (int, error)
	RoomUtilisation(ctx context.Context, scheduleID string) ([]models.RoomUtilisation, error)
	ProfessorLoad(ctx context.Context, scheduleID string) ([]models.ProfessorLoad, error)
}

type ancestryGroupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

const timetableCacheTTL = 10 * time.Minute

// TimetableService serves per-scope week-grid views over a completed schedule.
// A group view includes placements inherited from every ancestor group, since
// students of a subgroup attend the parent's activities too.
type TimetableService struct {
	schedules timetableScheduleReader
	entries   timetableEntryStore
	groups    ancestryGroupReader
	cache     cacheStore
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(schedules timetableScheduleReader, entries timetableEntryStore, groups ancestryGroupReader, cache cacheStore, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{schedules: schedules, entries: entries, groups: groups, cache: cache, logger: logger}
}

// GroupView returns the timetable seen by one group's students.
func (s *TimetableService) GroupView(ctx context.Context, scheduleID, groupID string) (*models.TimetableView, error) {
	schedule, err := s.completedSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	cacheKey := "timetable:" + scheduleID + ":group:" + groupID
	if view := s.cached(ctx, cacheKey); view != nil {
		return view, nil
	}

	chain, err := s.attendanceChain(ctx, schedule.InstitutionID, groupID)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.ListEntries(ctx, scheduleID, models.TimetableFilter{GroupIDs: chain})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
	}

	view := &models.TimetableView{
		ScheduleID: scheduleID,
		GroupID:    groupID,
		TimeGrid:   schedule.TimeGridConfig,
		Entries:    positionEntries(entries, schedule.TimeGridConfig),
	}
	s.store(ctx, cacheKey, view)
	return view, nil
}

// ProfessorView returns the timetable of one professor.
func (s *TimetableService) ProfessorView(ctx context.Context, scheduleID, professorID string) (*models.TimetableView, error) {
	schedule, err := s.completedSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	cacheKey := "timetable:" + scheduleID + ":professor:" + professorID
	if view := s.cached(ctx, cacheKey); view != nil {
		return view, nil
	}

	entries, err := s.entries.ListEntries(ctx, scheduleID, models.TimetableFilter{ProfessorID: professorID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
	}

	view := &models.TimetableView{
		ScheduleID:  scheduleID,
		ProfessorID: professorID,
		TimeGrid:    schedule.TimeGridConfig,
		Entries:     positionEntries(entries, schedule.TimeGridConfig),
	}
	s.store(ctx, cacheKey, view)
	return view, nil
}

// RoomView returns the occupancy timetable of one room.
func (s *TimetableService) RoomView(ctx context.Context, scheduleID, roomID string) (*models.TimetableView, error) {
	schedule, err := s.completedSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	cacheKey := "timetable:" + scheduleID + ":room:" + roomID
	if view := s.cached(ctx, cacheKey); view != nil {
		return view, nil
	}

	entries, err := s.entries.ListEntries(ctx, scheduleID, models.TimetableFilter{RoomID: roomID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries")
	}

	view := &models.TimetableView{
		ScheduleID: scheduleID,
		RoomID:     roomID,
		TimeGrid:   schedule.TimeGridConfig,
		Entries:    positionEntries(entries, schedule.TimeGridConfig),
	}
	s.store(ctx, cacheKey, view)
	return view, nil
}

// Stats summarises a completed schedule: placement count, room utilisation and
// professor load.
func (s *TimetableService) Stats(ctx context.Context, scheduleID string) (*models.ScheduleStats, error) {
	schedule, err := s.completedSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	total, err := s.entries.CountBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count placements")
	}
	rooms, err := s.entries.RoomUtilisation(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute room utilisation")
	}
	professors, err := s.entries.ProfessorLoad(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute professor load")
	}

	capacity := schedule.TimeGridConfig.SlotsPerWeek() * schedule.TimeGridConfig.Weeks
	for i := range rooms {
		if capacity > 0 {
			rooms[i].Utilisation = float64(rooms[i].OccupiedSlotWeeks) / float64(capacity)
		}
	}

	return &models.ScheduleStats{
		ScheduleID:      scheduleID,
		TotalPlacements: total,
		RoomUtilisation: rooms,
		ProfessorLoad:   professors,
	}, nil
}

func (s *TimetableService) completedSchedule(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if schedule.Status != models.ScheduleStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "schedule is not completed")
	}
	return schedule, nil
}

// attendanceChain resolves the group plus all its ancestors, inner first.
func (s *TimetableService) attendanceChain(ctx context.Context, institutionID, groupID string) ([]string, error) {
	chain := make([]string, 0, 4)
	seen := map[string]bool{}
	current := groupID
	for current != "" && !seen[current] {
		seen[current] = true
		group, err := s.groups.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				if current == groupID {
					return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
				}
				break
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
		}
		if group.InstitutionID != institutionID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		chain = append(chain, group.ID)
		if group.ParentGroupID == nil {
			break
		}
		current = *group.ParentGroupID
	}
	return chain, nil
}

// positionEntries derives the day/slot coordinates from the linear start index.
func positionEntries(entries []models.TimetableEntry, grid models.TimeGridConfig) []models.TimetableEntry {
	if entries == nil {
		return []models.TimetableEntry{}
	}
	perDay := grid.TimeslotsPerDay
	if perDay <= 0 {
		perDay = 1
	}
	for i := range entries {
		entries[i].Day = entries[i].StartTimeslot / perDay
		entries[i].Slot = entries[i].StartTimeslot % perDay
	}
	return entries
}

func (s *TimetableService) cached(ctx context.Context, key string) *models.TimetableView {
	if s.cache == nil {
		return nil
	}
	var view models.TimetableView
	if err := s.cache.Get(ctx, key, &view); err != nil {
		return nil
	}
	return &view
}

func (s *TimetableService) store(ctx context.Context, key string, view *models.TimetableView) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, view, timetableCacheTTL); err != nil {
		s.logger.Sugar().Debugw("timetable cache set failed", "key", key, "error", err)
	}
}
