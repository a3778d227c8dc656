package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
)

type activityStore interface {
	ListByInstitution(ctx context.Context, institutionID string, filter models.ActivityFilter) ([]models.Activity, error)
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity) error
	Delete(ctx context.Context, institutionID, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type professorReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ActivityService manages schedulable activities. References are checked at
// write time so generation only ever deals with solver-level infeasibility,
// not dangling ids.
type ActivityService struct {
	activities activityStore
	courses    courseReader
	groups     groupReader
	users      professorReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(activities activityStore, courses courseReader, groups groupReader, users professorReader, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ActivityService{
		activities: activities,
		courses:    courses,
		groups:     groups,
		users:      users,
		validator:  validate,
		logger:     logger,
	}
}

// Create registers an activity under the institution.
func (s *ActivityService) Create(ctx context.Context, institutionID string, req dto.CreateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	if err := s.checkReferences(ctx, institutionID, req.CourseID, req.GroupID, req.ProfessorID, req.ActivityType, req.Frequency, req.SelectedTimeslot); err != nil {
		return nil, err
	}

	activity := &models.Activity{
		InstitutionID:        institutionID,
		CourseID:             req.CourseID,
		ActivityType:         req.ActivityType,
		DurationSlots:        req.DurationSlots,
		GroupID:              req.GroupID,
		ProfessorID:          req.ProfessorID,
		RequiredRoomFeatures: pq.StringArray(req.RequiredRoomFeatures),
		Frequency:            req.Frequency,
		SelectedTimeslot:     req.SelectedTimeslot,
	}
	activity.FlattenPin()
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to create activity")
	}
	return activity, nil
}

// List returns the institution's activities matching the query.
func (s *ActivityService) List(ctx context.Context, institutionID string, query dto.ActivityListQuery) ([]models.Activity, error) {
	activities, err := s.activities.ListByInstitution(ctx, institutionID, models.ActivityFilter{
		GroupID:     query.GroupID,
		CourseID:    query.CourseID,
		ProfessorID: query.ProfessorID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	return activities, nil
}

// Get returns one activity scoped to the institution.
func (s *ActivityService) Get(ctx context.Context, institutionID, id string) (*models.Activity, error) {
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if activity.InstitutionID != institutionID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	}
	return activity, nil
}

// Update replaces an activity's mutable fields.
func (s *ActivityService) Update(ctx context.Context, institutionID, id string, req dto.UpdateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	activity, err := s.Get(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, institutionID, req.CourseID, req.GroupID, req.ProfessorID, req.ActivityType, req.Frequency, req.SelectedTimeslot); err != nil {
		return nil, err
	}

	activity.CourseID = req.CourseID
	activity.ActivityType = req.ActivityType
	activity.DurationSlots = req.DurationSlots
	activity.GroupID = req.GroupID
	activity.ProfessorID = req.ProfessorID
	activity.RequiredRoomFeatures = pq.StringArray(req.RequiredRoomFeatures)
	activity.Frequency = req.Frequency
	activity.SelectedTimeslot = req.SelectedTimeslot
	activity.FlattenPin()
	if err := s.activities.Update(ctx, activity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to update activity")
	}
	return activity, nil
}

// Delete removes an activity.
func (s *ActivityService) Delete(ctx context.Context, institutionID, id string) error {
	if err := s.activities.Delete(ctx, institutionID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to delete activity")
	}
	return nil
}

func (s *ActivityService) checkReferences(ctx context.Context, institutionID, courseID, groupID string, professorID *string, activityType models.ActivityType, frequency models.Frequency, pin *models.SelectedTimeslot) error {
	if !activityType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown activity type")
	}
	if !frequency.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown frequency")
	}
	if pin != nil {
		if pin.StartTimeslot < 0 {
			return appErrors.Clone(appErrors.ErrValidation, "pinned start timeslot must not be negative")
		}
		for _, week := range pin.ActiveWeeks {
			if week < 0 {
				return appErrors.Clone(appErrors.ErrValidation, "pinned active weeks must not be negative")
			}
		}
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.InstitutionID != institutionID {
		return appErrors.Clone(appErrors.ErrValidation, "course belongs to another institution")
	}

	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if group.InstitutionID != institutionID {
		return appErrors.Clone(appErrors.ErrValidation, "group belongs to another institution")
	}

	if professorID != nil {
		if _, err := s.users.FindByID(ctx, *professorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "professor not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
		}
	}
	return nil
}
