package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
)

type mockUserRepo struct {
	users      map[string]*models.User
	deletedIDs []string
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) FindByIDs(ctx context.Context, ids []string) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			profiles = append(profiles, models.UserProfile{ID: u.ID, Name: u.Name, Email: u.Email})
		}
	}
	return profiles, nil
}

func (m *mockUserRepo) FindByRole(ctx context.Context, role models.UserRole) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	for _, u := range m.users {
		if u.Role == role {
			profiles = append(profiles, models.UserProfile{ID: u.ID, Name: u.Name, Email: u.Email})
		}
	}
	return profiles, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	if user.ID == "" {
		user.ID = "generated-id"
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) (int64, error) {
	if _, ok := m.users[id]; !ok {
		return 0, nil
	}
	delete(m.users, id)
	m.deletedIDs = append(m.deletedIDs, id)
	return 1, nil
}

func (m *mockUserRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.users, id)
		m.deletedIDs = append(m.deletedIDs, id)
	}
	return nil
}

func TestUserCreateHashesPassword(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	profile, err := svc.Create(context.Background(), CreateUserRequest{Name: "Alice", Email: "alice@example.com", Password: "supersecret"}, models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)

	stored := repo.users[profile.ID]
	require.NotNil(t, stored)
	assert.Equal(t, models.RoleStudent, stored.Role)
	assert.NotEqual(t, "supersecret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("supersecret")))
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "taken@example.com", Role: models.RoleAdmin},
	}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateUserRequest{Name: "Dup", Email: "taken@example.com", Password: "supersecret"}, models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, "user with mail taken@example.com already exists", appErrors.FromError(err).Message)
}

func TestUserCreateRejectsShortPassword(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateUserRequest{Name: "A", Email: "a@example.com", Password: "short"}, models.RoleStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserFindByIDAbsentIsNil(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop())

	user, err := svc.FindByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserDeleteByIDMissing(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop())

	err := svc.DeleteByID(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, "couldn't delete user", appErrors.FromError(err).Message)
}

func TestUserDeleteByIDsToleratesAbsence(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"u1": {ID: "u1"}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	err := svc.DeleteByIDs(context.Background(), []string{"u1", "ghost"})
	require.NoError(t, err)
	assert.NotContains(t, repo.users, "u1")
}
