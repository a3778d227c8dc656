package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
)

type mockUserStore struct {
	users     map[string]*models.User
	nextID    int
	listUsers []models.User
	listCount int

	listErr     error
	findErr     error
	createErr   error
	updateErr   error
	deleteErr   error
	existsErr   error
	revokeErr   error
	revokedUser string
}

func (m *mockUserStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listUsers, m.listCount, nil
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	m.nextID++
	user.ID = fmt.Sprintf("u%d", m.nextID)
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserStore) Update(ctx context.Context, user *models.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserStore) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserStore) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for id, user := range m.users {
		if user.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id, hashedPassword string, updatedAt time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.HashedPassword = hashedPassword
	return nil
}

func (m *mockUserStore) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	if m.revokeErr != nil {
		return m.revokeErr
	}
	m.revokedUser = userID
	return nil
}

func newUserService(store *mockUserStore) *UserService {
	return NewUserService(store, validator.New(), zap.NewNop())
}

func TestUserServiceRegister(t *testing.T) {
	store := &mockUserStore{users: map[string]*models.User{}}
	svc := newUserService(store)

	user, err := svc.Register(context.Background(), dto.RegisterUserRequest{
		Email:    "user@example.com",
		FullName: "User",
		Password: "password123",
		GroupIDs: []string{"g1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("password123")))
	assert.Equal(t, []string{"g1"}, []string(user.GroupIDs))
	assert.NotNil(t, user.UserRoles)
}

func TestUserServiceRegisterDuplicateEmail(t *testing.T) {
	store := &mockUserStore{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "user@example.com"},
	}}
	svc := newUserService(store)

	_, err := svc.Register(context.Background(), dto.RegisterUserRequest{
		Email:    "user@example.com",
		FullName: "User",
		Password: "password123",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestUserServiceRegisterInvalidPayload(t *testing.T) {
	svc := newUserService(&mockUserStore{users: map[string]*models.User{}})

	_, err := svc.Register(context.Background(), dto.RegisterUserRequest{Email: "not-an-email", FullName: "User", Password: "short"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestUserServiceList(t *testing.T) {
	store := &mockUserStore{listUsers: []models.User{{ID: "u1"}}, listCount: 7}
	svc := newUserService(store)

	users, pagination, err := svc.List(context.Background(), dto.UserListQuery{Page: 0, PageSize: 0})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 7, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}

func TestUserServiceUpdate(t *testing.T) {
	store := &mockUserStore{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "user@example.com", FullName: "Old"},
	}}
	svc := newUserService(store)

	user, err := svc.Update(context.Background(), "u1", dto.UpdateUserRequest{FullName: "New", GroupIDs: []string{"g2"}})
	require.NoError(t, err)
	assert.Equal(t, "New", user.FullName)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, []string{"g2"}, []string(store.users["u1"].GroupIDs))
}

func TestUserServiceDeleteRevokesSessions(t *testing.T) {
	store := &mockUserStore{users: map[string]*models.User{"u1": {ID: "u1"}}}
	svc := newUserService(store)

	require.NoError(t, svc.Delete(context.Background(), "u1"))
	assert.Equal(t, "u1", store.revokedUser)
	assert.Empty(t, store.users)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestUserServiceChangePassword(t *testing.T) {
	oldHash, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &mockUserStore{users: map[string]*models.User{
		"u1": {ID: "u1", HashedPassword: string(oldHash)},
	}}
	svc := newUserService(store)

	err = svc.ChangePassword(context.Background(), "u1", dto.ChangePasswordRequest{
		CurrentPassword: "old-password",
		NewPassword:     "new-password-1",
	})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.users["u1"].HashedPassword), []byte("new-password-1")))
	assert.Equal(t, "u1", store.revokedUser, "old sessions must die with the old password")
}

func TestUserServiceChangePasswordWrongCurrent(t *testing.T) {
	oldHash, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &mockUserStore{users: map[string]*models.User{
		"u1": {ID: "u1", HashedPassword: string(oldHash)},
	}}
	svc := newUserService(store)

	err = svc.ChangePassword(context.Background(), "u1", dto.ChangePasswordRequest{
		CurrentPassword: "guess",
		NewPassword:     "new-password-1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
	assert.Empty(t, store.revokedUser)
}

func TestUserServiceGrantRole(t *testing.T) {
	store := &mockUserStore{users: map[string]*models.User{
		"u1": {ID: "u1", UserRoles: models.RoleMap{}},
	}}
	svc := newUserService(store)

	user, err := svc.GrantRole(context.Background(), "inst-1", "u1", models.RoleProfessor)
	require.NoError(t, err)
	assert.True(t, user.UserRoles.Has("inst-1", models.RoleProfessor))
	assert.True(t, store.users["u1"].UserRoles.Has("inst-1", models.RoleProfessor))

	_, err = svc.GrantRole(context.Background(), "inst-1", "u1", models.UserRole("janitor"))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestUserServiceRevokeRole(t *testing.T) {
	store := &mockUserStore{users: map[string]*models.User{
		"u1": {ID: "u1", UserRoles: models.RoleMap{"inst-1": {models.RoleAdmin, models.RoleProfessor}}},
	}}
	svc := newUserService(store)

	user, err := svc.RevokeRole(context.Background(), "inst-1", "u1", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, user.UserRoles.Has("inst-1", models.RoleAdmin))
	assert.True(t, user.UserRoles.Has("inst-1", models.RoleProfessor))

	_, err = svc.RevokeRole(context.Background(), "inst-2", "u1", models.RoleAdmin)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}
