package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
)

type courseStore interface {
	ListByInstitution(ctx context.Context, institutionID string) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, institutionID, id string) error
}

// CourseService manages courses within an institution.
type CourseService struct {
	courses      courseStore
	institutions institutionReader
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(courses courseStore, institutions institutionReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{courses: courses, institutions: institutions, validator: validate, logger: logger}
}

// Create registers a course under the institution.
func (s *CourseService) Create(ctx context.Context, institutionID string, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if _, err := s.institutions.FindByID(ctx, institutionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	course := &models.Course{
		InstitutionID:           institutionID,
		Name:                    req.Name,
		ActivitiesDurationSlots: req.ActivitiesDurationSlots,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to create course")
	}
	return course, nil
}

// List returns all courses of the institution.
func (s *CourseService) List(ctx context.Context, institutionID string) ([]models.Course, error) {
	courses, err := s.courses.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Get returns one course scoped to the institution.
func (s *CourseService) Get(ctx context.Context, institutionID, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.InstitutionID != institutionID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}

// Update replaces a course's mutable fields.
func (s *CourseService) Update(ctx context.Context, institutionID, id string, req dto.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	course.Name = req.Name
	course.ActivitiesDurationSlots = req.ActivitiesDurationSlots
	if err := s.courses.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, institutionID, id string) error {
	if err := s.courses.Delete(ctx, institutionID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to delete course")
	}
	return nil
}
