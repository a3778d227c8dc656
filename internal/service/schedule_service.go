package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/jobs"
)

type scheduleStore interface {
	Create(ctx context.Context, schedule *models.Schedule) error
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus, errorMessage *string) error
	Delete(ctx context.Context, institutionID, id string) error
}

type placementStore interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduledActivity, error)
}

type institutionReader interface {
	FindByID(ctx context.Context, id string) (*models.Institution, error)
}

type activityLister interface {
	ListByInstitution(ctx context.Context, institutionID string, filter models.ActivityFilter) ([]models.Activity, error)
}

type scheduleEnqueuer interface {
	Enqueue(ctx context.Context, msg jobs.Message) error
}

// ScheduleService is the control-plane side of generation: it creates draft
// schedules, hands them to the queue, and serves read views. The worker owns
// all other transitions.
type ScheduleService struct {
	schedules    scheduleStore
	placements   placementStore
	institutions institutionReader
	activities   activityLister
	queue        scheduleEnqueuer
	logger       *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(schedules scheduleStore, placements placementStore, institutions institutionReader, activities activityLister, queue scheduleEnqueuer, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules:    schedules,
		placements:   placements,
		institutions: institutions,
		activities:   activities,
		queue:        queue,
		logger:       logger,
	}
}

// Generate creates a draft schedule for the institution and enqueues the job.
// The institution's grid is copied onto the schedule so later edits cannot
// retroactively change this run.
func (s *ScheduleService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*models.Schedule, error) {
	institution, err := s.institutions.FindByID(ctx, req.InstitutionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}

	activities, err := s.activities.ListByInstitution(ctx, institution.ID, models.ActivityFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activities")
	}
	if len(activities) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "institution has no activities")
	}

	schedule := &models.Schedule{
		InstitutionID:  institution.ID,
		TimeGridConfig: institution.TimeGridConfig,
		Timestamp:      time.Now().UTC(),
		Status:         models.ScheduleStatusDraft,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to create schedule")
	}

	if err := s.queue.Enqueue(ctx, jobs.Message{
		TaskName:      jobs.TaskGenerateSchedule,
		ScheduleID:    schedule.ID,
		InstitutionID: institution.ID,
	}); err != nil {
		// A draft no job will ever pick up is noise; drop it before failing.
		if delErr := s.schedules.Delete(ctx, institution.ID, schedule.ID); delErr != nil {
			s.logger.Sugar().Warnw("failed to remove unenqueued draft", "schedule_id", schedule.ID, "error", delErr)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation job")
	}

	s.logger.Sugar().Infow("schedule generation enqueued", "schedule_id", schedule.ID, "institution_id", institution.ID)
	return schedule, nil
}

// List returns schedules for an institution, newest first.
func (s *ScheduleService) List(ctx context.Context, query dto.ScheduleListQuery) ([]models.Schedule, *models.Pagination, error) {
	filter := models.ScheduleFilter{
		InstitutionID: query.InstitutionID,
		Page:          query.Page,
		PageSize:      query.PageSize,
		SortBy:        query.SortBy,
		SortOrder:     query.SortOrder,
	}
	if query.Status != "" {
		status := models.ScheduleStatus(query.Status)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown schedule status")
		}
		filter.Status = &status
	}

	schedules, total, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return schedules, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one schedule.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// Placements returns the scheduled activities of a schedule. The rows exist
// only once the schedule is completed; earlier states yield an empty list.
func (s *ScheduleService) Placements(ctx context.Context, id string) ([]models.ScheduledActivity, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	placements, err := s.placements.ListBySchedule(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list placements")
	}
	return placements, nil
}

// Update applies a manual status or error-message override. Terminal schedules
// never re-enter running and running cannot be forced from the API.
func (s *ScheduleService) Update(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	status := schedule.Status
	if req.Status != nil {
		next := *req.Status
		if !next.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown schedule status")
		}
		if next != schedule.Status {
			if schedule.Status.Terminal() || next == models.ScheduleStatusRunning {
				return nil, appErrors.Clone(appErrors.ErrValidation, "illegal status transition")
			}
		}
		status = next
	}

	errorMessage := schedule.ErrorMessage
	if req.ErrorMessage != nil {
		errorMessage = req.ErrorMessage
	}

	if err := s.schedules.UpdateStatus(ctx, id, status, errorMessage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to update schedule")
	}

	schedule.Status = status
	schedule.ErrorMessage = errorMessage
	return schedule, nil
}

// Delete removes a schedule together with its placements. The row is matched
// against its own institution so a concurrent re-parenting cannot widen the
// delete.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.schedules.Delete(ctx, schedule.InstitutionID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to delete schedule")
	}
	return nil
}
