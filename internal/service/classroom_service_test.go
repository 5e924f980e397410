package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
)

type mockClassroomRepo struct {
	classrooms        map[string]*models.Classroom
	members           map[string][]string
	listStudentFilter string
}

func (m *mockClassroomRepo) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	if classroom, ok := m.classrooms[id]; ok {
		copy := *classroom
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassroomRepo) ListBySchool(ctx context.Context, schoolID, studentID string) ([]models.Classroom, error) {
	m.listStudentFilter = studentID
	var classrooms []models.Classroom
	for _, c := range m.classrooms {
		if c.SchoolID == schoolID {
			classrooms = append(classrooms, *c)
		}
	}
	return classrooms, nil
}

func (m *mockClassroomRepo) Create(ctx context.Context, classroom *models.Classroom) error {
	if m.classrooms == nil {
		m.classrooms = make(map[string]*models.Classroom)
	}
	if classroom.ID == "" {
		classroom.ID = "generated-id"
	}
	copy := *classroom
	m.classrooms[classroom.ID] = &copy
	return nil
}

func (m *mockClassroomRepo) Delete(ctx context.Context, id string) (int64, error) {
	if _, ok := m.classrooms[id]; !ok {
		return 0, nil
	}
	delete(m.classrooms, id)
	return 1, nil
}

func (m *mockClassroomRepo) DeleteBySchoolID(ctx context.Context, schoolID string) error {
	for id, c := range m.classrooms {
		if c.SchoolID == schoolID {
			delete(m.classrooms, id)
		}
	}
	return nil
}

func (m *mockClassroomRepo) IsMember(ctx context.Context, classroomID, userID string) (bool, error) {
	for _, id := range m.members[classroomID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockClassroomRepo) AddStudent(ctx context.Context, classroomID, userID string) (int64, error) {
	for _, id := range m.members[classroomID] {
		if id == userID {
			return 0, nil
		}
	}
	if m.members == nil {
		m.members = make(map[string][]string)
	}
	m.members[classroomID] = append(m.members[classroomID], userID)
	return 1, nil
}

func (m *mockClassroomRepo) RemoveStudent(ctx context.Context, classroomID, userID string) (int64, error) {
	roster := m.members[classroomID]
	for i, id := range roster {
		if id == userID {
			m.members[classroomID] = append(roster[:i], roster[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockClassroomRepo) RemoveStudentEverywhere(ctx context.Context, userID string) error {
	for classroomID, roster := range m.members {
		for i, id := range roster {
			if id == userID {
				m.members[classroomID] = append(roster[:i], roster[i+1:]...)
				break
			}
		}
	}
	return nil
}

type mockClassroomSchools struct {
	studentSchool map[string]*models.School
	admins        map[string][]string
}

func (m *mockClassroomSchools) FindByStudent(ctx context.Context, studentID string) (*models.School, error) {
	if school, ok := m.studentSchool[studentID]; ok {
		copy := *school
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassroomSchools) IsAdmin(ctx context.Context, schoolID, userID string) (bool, error) {
	for _, id := range m.admins[schoolID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type mockClassroomUsers struct {
	users map[string]*models.User
}

func (m *mockClassroomUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, nil
}

type allowAllAccess struct{}

func (allowAllAccess) HasAccess(ctx context.Context, caller models.Caller, schoolID string) error {
	return nil
}

var (
	rootCaller  = models.Caller{UserID: "root", Role: models.RoleSuperAdmin}
	adminCaller = models.Caller{UserID: "admin-1", Role: models.RoleAdmin}
)

func newClassroomFixture() (*ClassroomService, *mockClassroomRepo) {
	school := &models.School{ID: "s1", Name: "North"}
	repo := &mockClassroomRepo{
		classrooms: map[string]*models.Classroom{
			"c1":    {ID: "c1", Name: "Algebra", SchoolID: "s1"},
			"other": {ID: "other", Name: "Biology", SchoolID: "s2"},
		},
		members: map[string][]string{"c1": {"stu-2"}},
	}
	schools := &mockClassroomSchools{
		studentSchool: map[string]*models.School{"stu-1": school, "stu-2": school},
		admins:        map[string][]string{"s1": {"admin-1"}},
	}
	users := &mockClassroomUsers{users: map[string]*models.User{
		"stu-1":   {ID: "stu-1", Role: models.RoleStudent},
		"stu-2":   {ID: "stu-2", Role: models.RoleStudent},
		"drifter": {ID: "drifter", Role: models.RoleStudent},
		"admin-1": {ID: "admin-1", Role: models.RoleAdmin},
	}}
	svc := NewClassroomService(repo, schools, users, allowAllAccess{}, nil, 0, validator.New(), zap.NewNop())
	return svc, repo
}

func TestEnrollStudentChecksOrder(t *testing.T) {
	svc, _ := newClassroomFixture()

	// Every lookup fails here; the student check is reported first.
	err := svc.EnrollStudent(context.Background(), rootCaller, "ghost-classroom", "ghost")
	require.Error(t, err)
	assert.Equal(t, "student not found.", appErrors.FromError(err).Message)

	err = svc.EnrollStudent(context.Background(), rootCaller, "c1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, "studentId must be an id of school student user.", appErrors.FromError(err).Message)

	err = svc.EnrollStudent(context.Background(), rootCaller, "ghost-classroom", "stu-1")
	require.Error(t, err)
	assert.Equal(t, "classroom not found.", appErrors.FromError(err).Message)

	err = svc.EnrollStudent(context.Background(), rootCaller, "c1", "drifter")
	require.Error(t, err)
	assert.Equal(t, "student not registered to any school.", appErrors.FromError(err).Message)

	err = svc.EnrollStudent(context.Background(), rootCaller, "other", "stu-1")
	require.Error(t, err)
	assert.Equal(t, "classroom not belong to user school.", appErrors.FromError(err).Message)
}

func TestEnrollStudentAdminOfOtherSchool(t *testing.T) {
	svc, _ := newClassroomFixture()

	outsider := models.Caller{UserID: "admin-9", Role: models.RoleAdmin}
	err := svc.EnrollStudent(context.Background(), outsider, "c1", "stu-1")
	require.Error(t, err)
	assert.Equal(t, "unauthorized.", appErrors.FromError(err).Message)
}

func TestEnrollStudentAlreadyEnrolled(t *testing.T) {
	svc, _ := newClassroomFixture()

	err := svc.EnrollStudent(context.Background(), adminCaller, "c1", "stu-2")
	require.Error(t, err)
	assert.Equal(t, "student already enrolled to classroom", appErrors.FromError(err).Message)
}

func TestEnrollStudentSuccess(t *testing.T) {
	svc, repo := newClassroomFixture()

	err := svc.EnrollStudent(context.Background(), adminCaller, "c1", "stu-1")
	require.NoError(t, err)
	assert.Contains(t, repo.members["c1"], "stu-1")
}

func TestUnenrollStudentNotEnrolled(t *testing.T) {
	svc, _ := newClassroomFixture()

	err := svc.UnenrollStudent(context.Background(), rootCaller, "c1", "stu-1")
	require.Error(t, err)
	assert.Equal(t, "student already not enrolled to classroom", appErrors.FromError(err).Message)
}

func TestUnenrollStudentSuccess(t *testing.T) {
	svc, repo := newClassroomFixture()

	err := svc.UnenrollStudent(context.Background(), rootCaller, "c1", "stu-2")
	require.NoError(t, err)
	assert.NotContains(t, repo.members["c1"], "stu-2")
}

func TestClassroomDeleteMissing(t *testing.T) {
	svc, _ := newClassroomFixture()

	err := svc.Delete(context.Background(), rootCaller, "ghost")
	require.Error(t, err)
	assert.Equal(t, "classroom not found.", appErrors.FromError(err).Message)
}

func TestClassroomListScopesStudents(t *testing.T) {
	svc, repo := newClassroomFixture()

	_, err := svc.List(context.Background(), models.Caller{UserID: "stu-1", Role: models.RoleStudent}, "s1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", repo.listStudentFilter)

	_, err = svc.List(context.Background(), rootCaller, "s1")
	require.NoError(t, err)
	assert.Empty(t, repo.listStudentFilter)
}

func TestClassroomCreate(t *testing.T) {
	svc, repo := newClassroomFixture()

	classroom, err := svc.Create(context.Background(), rootCaller, CreateClassroomRequest{
		SchoolID: "s1",
		Name:     "Chemistry",
		Schedule: models.Schedule{Day: "Tuesday", StartTime: "10:00", EndTime: "11:30"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, classroom.ID)
	assert.Contains(t, repo.classrooms, classroom.ID)
}
