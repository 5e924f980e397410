package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
)

type studentUserManager interface {
	Create(ctx context.Context, req CreateUserRequest, role models.UserRole) (*models.UserProfile, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.UserProfile, error)
	DeleteByID(ctx context.Context, id string) error
}

type studentSchoolManager interface {
	GetByID(ctx context.Context, schoolID string) (*models.School, error)
	ListStudentIDs(ctx context.Context, schoolID string) ([]string, error)
	AddStudent(ctx context.Context, schoolID, studentID string) error
	RemoveStudentByID(ctx context.Context, studentID string) error
}

type studentClassroomManager interface {
	UnenrollStudentByID(ctx context.Context, studentID string) error
}

type studentAccessChecker interface {
	HasAccess(ctx context.Context, caller models.Caller, schoolID string) error
	HasAccessByStudentID(ctx context.Context, caller models.Caller, studentID string) error
}

// StudentService manages student accounts within a school. Every operation
// is scoped by the caller's access to the school the student belongs to.
type StudentService struct {
	users      studentUserManager
	schools    studentSchoolManager
	classrooms studentClassroomManager
	access     studentAccessChecker
	logger     *zap.Logger
}

func NewStudentService(users studentUserManager, schools studentSchoolManager, classrooms studentClassroomManager, access studentAccessChecker, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		users:      users,
		schools:    schools,
		classrooms: classrooms,
		access:     access,
		logger:     logger,
	}
}

// List returns the students registered to a school.
func (s *StudentService) List(ctx context.Context, caller models.Caller, schoolID string) ([]models.UserProfile, error) {
	if err := s.access.HasAccess(ctx, caller, schoolID); err != nil {
		return nil, err
	}

	school, err := s.schools.GetByID(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if school == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found.")
	}

	ids, err := s.schools.ListStudentIDs(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.UserProfile{}, nil
	}

	return s.users.FindByIDs(ctx, ids)
}

// Create registers a new student account and adds it to the school roster.
// The two writes are not transactional: if the roster write fails the
// account still exists, unattached to any school.
func (s *StudentService) Create(ctx context.Context, caller models.Caller, schoolID string, req CreateUserRequest) (*models.UserProfile, error) {
	if err := s.access.HasAccess(ctx, caller, schoolID); err != nil {
		return nil, err
	}

	student, err := s.users.Create(ctx, req, models.RoleStudent)
	if err != nil {
		return nil, err
	}

	if err := s.schools.AddStudent(ctx, schoolID, student.ID); err != nil {
		return nil, err
	}

	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("school_id", schoolID))
	return student, nil
}

// Delete removes a student account along with its school and classroom
// memberships. The three removals run concurrently and the first error
// wins; there is no rollback, so a partial failure can leave the other
// removals applied.
func (s *StudentService) Delete(ctx context.Context, caller models.Caller, studentID string) error {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		return err
	}
	if student == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found.")
	}

	if err := s.access.HasAccessByStudentID(ctx, caller, student.ID); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.users.DeleteByID(gctx, student.ID)
	})
	g.Go(func() error {
		return s.classrooms.UnenrollStudentByID(gctx, student.ID)
	})
	g.Go(func() error {
		return s.schools.RemoveStudentByID(gctx, student.ID)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("student deleted", zap.String("student_id", student.ID))
	return nil
}
