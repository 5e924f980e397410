package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
)

type mockExportStudents struct {
	students []models.UserProfile
}

func (m *mockExportStudents) List(ctx context.Context, caller models.Caller, schoolID string) ([]models.UserProfile, error) {
	return m.students, nil
}

type mockExportSchools struct {
	schools map[string]*models.School
}

func (m *mockExportSchools) GetByID(ctx context.Context, schoolID string) (*models.School, error) {
	if school, ok := m.schools[schoolID]; ok {
		copy := *school
		return &copy, nil
	}
	return nil, nil
}

func newExportFixture() *ExportService {
	students := &mockExportStudents{students: []models.UserProfile{
		{ID: "stu-1", Name: "Alice", Email: "alice@example.com"},
		{ID: "stu-2", Name: "Bob", Email: "bob@example.com"},
	}}
	schools := &mockExportSchools{schools: map[string]*models.School{
		"s1": {ID: "s1", Name: "North High"},
	}}
	return NewExportService(students, schools, zap.NewNop())
}

func TestRosterCSV(t *testing.T) {
	svc := newExportFixture()

	file, err := svc.Roster(context.Background(), models.Caller{UserID: "root", Role: models.RoleSuperAdmin}, "s1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.FileName, "roster_north_high_"))

	content := string(file.Content)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Email", lines[0])
	assert.Equal(t, "Alice,alice@example.com", lines[1])
}

func TestRosterPDF(t *testing.T) {
	svc := newExportFixture()

	file, err := svc.Roster(context.Background(), models.Caller{UserID: "root", Role: models.RoleSuperAdmin}, "s1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestRosterUnsupportedFormat(t *testing.T) {
	svc := newExportFixture()

	_, err := svc.Roster(context.Background(), models.Caller{UserID: "root", Role: models.RoleSuperAdmin}, "s1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRosterMissingSchool(t *testing.T) {
	svc := newExportFixture()

	_, err := svc.Roster(context.Background(), models.Caller{UserID: "root", Role: models.RoleSuperAdmin}, "ghost", "csv")
	require.Error(t, err)
	assert.Equal(t, "school not found.", appErrors.FromError(err).Message)
}
