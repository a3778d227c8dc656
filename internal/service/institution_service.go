package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
)

type institutionStore interface {
	List(ctx context.Context, filter models.InstitutionFilter) ([]models.Institution, int, error)
	FindByID(ctx context.Context, id string) (*models.Institution, error)
	Create(ctx context.Context, institution *models.Institution) error
	Update(ctx context.Context, institution *models.Institution) error
	Delete(ctx context.Context, id string) error
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const institutionCacheTTL = 5 * time.Minute

// InstitutionService manages institutions and their time grids. Reads go
// through the cache; any write for an institution drops its cached entries.
type InstitutionService struct {
	institutions institutionStore
	cache        cacheStore
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewInstitutionService constructs an InstitutionService.
func NewInstitutionService(institutions institutionStore, cache cacheStore, validate *validator.Validate, logger *zap.Logger) *InstitutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InstitutionService{institutions: institutions, cache: cache, validator: validate, logger: logger}
}

func institutionCacheKey(id string) string {
	return "institution:" + id
}

// Create registers a new institution. The grid must be fully positive so that
// generation never sees a degenerate grid.
func (s *InstitutionService) Create(ctx context.Context, req dto.CreateInstitutionRequest) (*models.Institution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid institution payload")
	}
	institution := &models.Institution{
		Name:           req.Name,
		TimeGridConfig: req.TimeGridConfig.Grid(),
	}
	if err := s.institutions.Create(ctx, institution); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to create institution")
	}
	return institution, nil
}

// Get returns one institution, served from cache when possible.
func (s *InstitutionService) Get(ctx context.Context, id string) (*models.Institution, error) {
	if s.cache != nil {
		var cached models.Institution
		if err := s.cache.Get(ctx, institutionCacheKey(id), &cached); err == nil {
			return &cached, nil
		}
	}

	institution, err := s.institutions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, institutionCacheKey(id), institution, institutionCacheTTL); err != nil {
			s.logger.Sugar().Debugw("institution cache set failed", "institution_id", id, "error", err)
		}
	}
	return institution, nil
}

// List returns institutions matching the filter.
func (s *InstitutionService) List(ctx context.Context, filter models.InstitutionFilter) ([]models.Institution, *models.Pagination, error) {
	institutions, total, err := s.institutions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list institutions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return institutions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Update renames an institution.
func (s *InstitutionService) Update(ctx context.Context, id string, req dto.UpdateInstitutionRequest) (*models.Institution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid institution payload")
	}
	institution, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	institution.Name = req.Name
	if err := s.institutions.Update(ctx, institution); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to update institution")
	}
	s.invalidate(ctx, id)
	return institution, nil
}

// UpdateTimeGrid replaces the institution's grid. Existing schedules keep the
// grid copy taken at their creation.
func (s *InstitutionService) UpdateTimeGrid(ctx context.Context, id string, req dto.TimeGridRequest) (*models.Institution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time grid payload")
	}
	institution, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	institution.TimeGridConfig = req.Grid()
	if err := s.institutions.Update(ctx, institution); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to update time grid")
	}
	s.invalidate(ctx, id)
	return institution, nil
}

// Delete removes an institution.
func (s *InstitutionService) Delete(ctx context.Context, id string) error {
	if err := s.institutions.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to delete institution")
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *InstitutionService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, institutionCacheKey(id)+"*"); err != nil {
		s.logger.Sugar().Debugw("institution cache invalidation failed", "institution_id", id, "error", err)
	}
}
