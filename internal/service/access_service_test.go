package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
)

type mockAccessSchools struct {
	schools  map[string]*models.School
	admins   map[string][]string
	students map[string][]string
}

func (m *mockAccessSchools) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.schools[id]
	return ok, nil
}

func (m *mockAccessSchools) ExistsWithAdmin(ctx context.Context, schoolID, userID string) (bool, error) {
	for _, id := range m.admins[schoolID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAccessSchools) ExistsWithStudent(ctx context.Context, schoolID, userID string) (bool, error) {
	for _, id := range m.students[schoolID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAccessSchools) FindByStudent(ctx context.Context, studentID string) (*models.School, error) {
	for schoolID, roster := range m.students {
		for _, id := range roster {
			if id == studentID {
				return m.schools[schoolID], nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func newAccessFixture() *mockAccessSchools {
	return &mockAccessSchools{
		schools:  map[string]*models.School{"s1": {ID: "s1", Name: "North"}},
		admins:   map[string][]string{"s1": {"admin-1"}},
		students: map[string][]string{"s1": {"stu-1"}},
	}
}

func TestHasAccessSuperadmin(t *testing.T) {
	svc := NewAccessService(newAccessFixture(), zap.NewNop())

	err := svc.HasAccess(context.Background(), models.Caller{UserID: "root", Role: models.RoleSuperAdmin}, "s1")
	assert.NoError(t, err)

	err = svc.HasAccess(context.Background(), models.Caller{UserID: "root", Role: models.RoleSuperAdmin}, "missing")
	require.Error(t, err)
	assert.Equal(t, "unauthorized", appErrors.FromError(err).Message)
}

func TestHasAccessAdminMembership(t *testing.T) {
	svc := NewAccessService(newAccessFixture(), zap.NewNop())

	assert.NoError(t, svc.HasAccess(context.Background(), models.Caller{UserID: "admin-1", Role: models.RoleAdmin}, "s1"))

	err := svc.HasAccess(context.Background(), models.Caller{UserID: "admin-2", Role: models.RoleAdmin}, "s1")
	require.Error(t, err)
	assert.Equal(t, "unauthorized", appErrors.FromError(err).Message)
}

func TestHasAccessStudentMembership(t *testing.T) {
	svc := NewAccessService(newAccessFixture(), zap.NewNop())

	assert.NoError(t, svc.HasAccess(context.Background(), models.Caller{UserID: "stu-1", Role: models.RoleStudent}, "s1"))

	err := svc.HasAccess(context.Background(), models.Caller{UserID: "stu-2", Role: models.RoleStudent}, "s1")
	assert.Error(t, err)
}

func TestHasAccessUnknownRole(t *testing.T) {
	svc := NewAccessService(newAccessFixture(), zap.NewNop())

	err := svc.HasAccess(context.Background(), models.Caller{UserID: "x", Role: "teacher"}, "s1")
	require.Error(t, err)
	assert.Equal(t, "unauthorized", appErrors.FromError(err).Message)
}

func TestHasAccessByStudentID(t *testing.T) {
	svc := NewAccessService(newAccessFixture(), zap.NewNop())

	assert.NoError(t, svc.HasAccessByStudentID(context.Background(), models.Caller{UserID: "root", Role: models.RoleSuperAdmin}, "stu-1"))
	assert.NoError(t, svc.HasAccessByStudentID(context.Background(), models.Caller{UserID: "admin-1", Role: models.RoleAdmin}, "stu-1"))

	err := svc.HasAccessByStudentID(context.Background(), models.Caller{UserID: "admin-2", Role: models.RoleAdmin}, "stu-1")
	require.Error(t, err)
	assert.Equal(t, "unauthorized", appErrors.FromError(err).Message)
}

func TestHasAccessByStudentIDUnregistered(t *testing.T) {
	svc := NewAccessService(newAccessFixture(), zap.NewNop())

	err := svc.HasAccessByStudentID(context.Background(), models.Caller{UserID: "root", Role: models.RoleSuperAdmin}, "ghost")
	require.Error(t, err)
	assert.Equal(t, "unauthorized", appErrors.FromError(err).Message)
}
