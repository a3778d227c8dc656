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

type groupStore interface {
	ListByInstitution(ctx context.Context, institutionID string) ([]models.Group, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, institutionID, id string) error
	HasChildren(ctx context.Context, id string) (bool, error)
}

// GroupService manages the student-group forest of an institution. Parent links
// must stay within the institution and must never form a cycle, since scheduling
// conflict sets walk the ancestor chain.
type GroupService struct {
	groups       groupStore
	institutions institutionReader
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewGroupService constructs a GroupService.
func NewGroupService(groups groupStore, institutions institutionReader, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GroupService{groups: groups, institutions: institutions, validator: validate, logger: logger}
}

// Create registers a group, optionally under a parent of the same institution.
func (s *GroupService) Create(ctx context.Context, institutionID string, req dto.CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if _, err := s.institutions.FindByID(ctx, institutionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	if req.ParentGroupID != nil {
		if err := s.checkParent(ctx, institutionID, *req.ParentGroupID, ""); err != nil {
			return nil, err
		}
	}
	group := &models.Group{
		InstitutionID: institutionID,
		Name:          req.Name,
		ParentGroupID: req.ParentGroupID,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to create group")
	}
	return group, nil
}

// List returns all groups of the institution.
func (s *GroupService) List(ctx context.Context, institutionID string) ([]models.Group, error) {
	groups, err := s.groups.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// Get returns one group scoped to the institution.
func (s *GroupService) Get(ctx context.Context, institutionID, id string) (*models.Group, error) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if group.InstitutionID != institutionID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	return group, nil
}

// Update replaces a group's mutable fields, re-checking the parent link.
func (s *GroupService) Update(ctx context.Context, institutionID, id string, req dto.UpdateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	group, err := s.Get(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	if req.ParentGroupID != nil {
		if err := s.checkParent(ctx, institutionID, *req.ParentGroupID, id); err != nil {
			return nil, err
		}
	}
	group.Name = req.Name
	group.ParentGroupID = req.ParentGroupID
	if err := s.groups.Update(ctx, group); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to update group")
	}
	return group, nil
}

// Delete removes a group. Groups with children stay until the children move.
func (s *GroupService) Delete(ctx context.Context, institutionID, id string) error {
	hasChildren, err := s.groups.HasChildren(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group children")
	}
	if hasChildren {
		return appErrors.Clone(appErrors.ErrConflict, "group has child groups")
	}
	if err := s.groups.Delete(ctx, institutionID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to delete group")
	}
	return nil
}

// checkParent verifies the parent exists in the same institution and that
// linking selfID under it would not close a cycle.
func (s *GroupService) checkParent(ctx context.Context, institutionID, parentID, selfID string) error {
	if selfID != "" && parentID == selfID {
		return appErrors.Clone(appErrors.ErrValidation, "group cannot be its own parent")
	}

	seen := map[string]bool{}
	current := parentID
	for current != "" {
		if seen[current] {
			return appErrors.Clone(appErrors.ErrValidation, "group hierarchy contains a cycle")
		}
		seen[current] = true

		parent, err := s.groups.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "parent group not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent group")
		}
		if parent.InstitutionID != institutionID {
			return appErrors.Clone(appErrors.ErrValidation, "parent group belongs to another institution")
		}
		if selfID != "" && parent.ID == selfID {
			return appErrors.Clone(appErrors.ErrValidation, "group hierarchy contains a cycle")
		}
		if parent.ParentGroupID == nil {
			break
		}
		current = *parent.ParentGroupID
	}
	return nil
}
