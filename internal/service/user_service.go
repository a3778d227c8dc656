package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
)

type userStore interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	UpdatePassword(ctx context.Context, id, hashedPassword string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// UserService manages user accounts and their per-institution roles.
type UserService struct {
	users     userStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users userStore, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, validator: validate, logger: logger}
}

// Register creates a new user account with no roles.
func (s *UserService) Register(ctx context.Context, req dto.RegisterUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:          req.Email,
		FullName:       req.FullName,
		HashedPassword: string(hash),
		UserRoles:      models.RoleMap{},
		GroupIDs:       pq.StringArray(req.GroupIDs),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to create user")
	}
	return user, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns users matching the query.
func (s *UserService) List(ctx context.Context, query dto.UserListQuery) ([]models.User, *models.Pagination, error) {
	filter := models.UserFilter{
		InstitutionID: query.InstitutionID,
		Search:        query.Search,
		Page:          query.Page,
		PageSize:      query.PageSize,
	}
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Update replaces a user's profile fields.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.FullName = req.FullName
	user.GroupIDs = pq.StringArray(req.GroupIDs)
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to update user")
	}
	return user, nil
}

// ChangePassword replaces a user's password after verifying the current one.
// All refresh tokens are revoked so stolen sessions die with the old password.
func (s *UserService) ChangePassword(ctx context.Context, id string, req dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "current password does not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to update password")
	}
	if err := s.users.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Sugar().Warnw("failed to revoke sessions after password change", "user_id", id, "error", err)
	}
	return nil
}

// Delete removes a user and revokes their sessions.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Sugar().Warnw("failed to revoke sessions of deleted user", "user_id", id, "error", err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to delete user")
	}
	return nil
}

// GrantRole adds a per-institution role to a user.
func (s *UserService) GrantRole(ctx context.Context, institutionID, userID string, role models.UserRole) (*models.User, error) {
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.UserRoles = user.UserRoles.Grant(institutionID, role)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to grant role")
	}
	return user, nil
}

// RevokeRole removes a per-institution role from a user.
func (s *UserService) RevokeRole(ctx context.Context, institutionID, userID string, role models.UserRole) (*models.User, error) {
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.UserRoles.Has(institutionID, role) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "role not held")
	}
	user.UserRoles.Revoke(institutionID, role)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersist.Code, appErrors.ErrPersist.Status, "failed to revoke role")
	}
	return user, nil
}
