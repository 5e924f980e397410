package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
)

type mockAuthUsers struct {
	users map[string]*models.User
}

func (m *mockAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.users[email]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func newAuthService(t *testing.T, users map[string]*models.User) *AuthService {
	t.Helper()
	return NewAuthService(&mockAuthUsers{users: users}, validator.New(), zap.NewNop(), AuthConfig{
		Secret:            "test-secret",
		SessionExpiration: time.Hour,
		Issuer:            "schoolyard-api",
	})
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginIssuesSessionToken(t *testing.T) {
	svc := newAuthService(t, map[string]*models.User{
		"admin@example.com": {ID: "u1", Email: "admin@example.com", Role: models.RoleAdmin, PasswordHash: hashPassword(t, "correct-horse")},
	})

	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotEmpty(t, session.SessionToken)

	claims, err := svc.ValidateToken(session.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService(t, map[string]*models.User{
		"admin@example.com": {ID: "u1", Email: "admin@example.com", Role: models.RoleAdmin, PasswordHash: hashPassword(t, "correct-horse")},
	})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "email or password incorrect.", appErrors.FromError(err).Message)
}

func TestLoginUnknownEmailSameMessage(t *testing.T) {
	svc := newAuthService(t, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, "email or password incorrect.", appErrors.FromError(err).Message)
}

func TestLoginRejectsInvalidPayload(t *testing.T) {
	svc := newAuthService(t, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := newAuthService(t, map[string]*models.User{
		"admin@example.com": {ID: "u1", Email: "admin@example.com", Role: models.RoleAdmin, PasswordHash: hashPassword(t, "correct-horse")},
	})

	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(session.SessionToken + "x")
	assert.Error(t, err)
}
