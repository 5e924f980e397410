package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
)

type classroomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ListBySchool(ctx context.Context, schoolID, studentID string) ([]models.Classroom, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Delete(ctx context.Context, id string) (int64, error)
	DeleteBySchoolID(ctx context.Context, schoolID string) error
	IsMember(ctx context.Context, classroomID, userID string) (bool, error)
	AddStudent(ctx context.Context, classroomID, userID string) (int64, error)
	RemoveStudent(ctx context.Context, classroomID, userID string) (int64, error)
	RemoveStudentEverywhere(ctx context.Context, userID string) error
}

type classroomSchoolReader interface {
	FindByStudent(ctx context.Context, studentID string) (*models.School, error)
	IsAdmin(ctx context.Context, schoolID, userID string) (bool, error)
}

type classroomUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type schoolAccessChecker interface {
	HasAccess(ctx context.Context, caller models.Caller, schoolID string) error
}

// CreateClassroomRequest is the classroom creation payload.
type CreateClassroomRequest struct {
	SchoolID string          `json:"schoolId" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Schedule models.Schedule `json:"schedule" validate:"required"`
}

// EnrollStudentRequest identifies the student to enroll into or unenroll
// from a classroom.
type EnrollStudentRequest struct {
	StudentID string `json:"studentId" validate:"required"`
}

// ClassroomService owns classroom records and per-classroom student
// enrollment. Tenant access checks are delegated to the access service.
type ClassroomService struct {
	repo      classroomRepository
	schools   classroomSchoolReader
	users     classroomUserReader
	access    schoolAccessChecker
	cache     listCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs a ClassroomService. The cache may be nil.
func NewClassroomService(repo classroomRepository, schools classroomSchoolReader, users classroomUserReader, access schoolAccessChecker, cache listCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassroomService{
		repo:      repo,
		schools:   schools,
		users:     users,
		access:    access,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// List returns the classrooms of a school visible to the caller. Student
// callers only see classrooms they are enrolled in.
func (s *ClassroomService) List(ctx context.Context, caller models.Caller, schoolID string) ([]models.Classroom, error) {
	if err := s.access.HasAccess(ctx, caller, schoolID); err != nil {
		return nil, err
	}

	studentFilter := ""
	if caller.Role == models.RoleStudent {
		studentFilter = caller.UserID
	}

	cacheKey := fmt.Sprintf("classrooms:list:%s:%s:%s", schoolID, caller.Role, studentFilter)
	if s.cache != nil {
		var cached []models.Classroom
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("classroom list cache read failed", zap.Error(err))
		}
	}

	classrooms, err := s.repo.ListBySchool(ctx, schoolID, studentFilter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, classrooms, s.cacheTTL); err != nil {
			s.logger.Warn("classroom list cache write failed", zap.Error(err))
		}
	}

	return classrooms, nil
}

// Create inserts a classroom under a school the caller has access to.
func (s *ClassroomService) Create(ctx context.Context, caller models.Caller, req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create classroom payload")
	}
	if err := s.access.HasAccess(ctx, caller, req.SchoolID); err != nil {
		return nil, err
	}

	classroom := &models.Classroom{Name: req.Name, SchoolID: req.SchoolID, Schedule: req.Schedule}
	if err := s.repo.Create(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}

	s.invalidateListCache(ctx)
	s.logger.Info("classroom created", zap.String("classroom_id", classroom.ID), zap.String("school_id", classroom.SchoolID))

	return classroom, nil
}

// Delete removes a classroom after checking the caller may act on its school.
func (s *ClassroomService) Delete(ctx context.Context, caller models.Caller, classroomID string) error {
	classroom, err := s.repo.FindByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "classroom not found.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}

	if err := s.access.HasAccess(ctx, caller, classroom.SchoolID); err != nil {
		return err
	}

	rows, err := s.repo.Delete(ctx, classroom.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	if rows <= 0 {
		return appErrors.Clone(appErrors.ErrNotModified, "couldn't delete classroom")
	}

	s.invalidateListCache(ctx)
	return nil
}

// validateEnrollment resolves the student, the classroom and the school the
// student is registered to. The three reads run concurrently; the checks on
// the results are ordered and the first failure wins, so a request naming
// both a missing student and a missing classroom always reports the student.
func (s *ClassroomService) validateEnrollment(ctx context.Context, caller models.Caller, classroomID, studentID string) (*models.User, *models.Classroom, *models.School, error) {
	var (
		student   *models.User
		classroom *models.Classroom
		school    *models.School
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.users.FindByID(gctx, studentID)
		if err != nil {
			return err
		}
		student = found
		return nil
	})
	g.Go(func() error {
		found, err := s.repo.FindByID(gctx, classroomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
		}
		classroom = found
		return nil
	})
	g.Go(func() error {
		found, err := s.schools.FindByStudent(gctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student school")
		}
		school = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	if student == nil {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found.")
	}
	if student.Role != models.RoleStudent {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "studentId must be an id of school student user.")
	}
	if classroom == nil {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found.")
	}
	if school == nil {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "student not registered to any school.")
	}
	if classroom.SchoolID != school.ID {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "classroom not belong to user school.")
	}
	if caller.Role == models.RoleAdmin {
		isAdmin, err := s.schools.IsAdmin(ctx, school.ID, caller.UserID)
		if err != nil {
			return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school access")
		}
		if !isAdmin {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized.")
		}
	}

	return student, classroom, school, nil
}

// EnrollStudent adds a student to a classroom. The student must already be
// registered to the classroom's school: classroom rosters are always a
// subset of the school roster.
func (s *ClassroomService) EnrollStudent(ctx context.Context, caller models.Caller, classroomID, studentID string) error {
	student, classroom, _, err := s.validateEnrollment(ctx, caller, classroomID, studentID)
	if err != nil {
		return err
	}

	enrolled, err := s.repo.IsMember(ctx, classroom.ID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom enrollment")
	}
	if enrolled {
		return appErrors.Clone(appErrors.ErrConflict, "student already enrolled to classroom")
	}

	rows, err := s.repo.AddStudent(ctx, classroom.ID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	if rows <= 0 {
		return appErrors.Clone(appErrors.ErrNotModified, "couldn't enroll student to classroom")
	}

	s.invalidateListCache(ctx)
	return nil
}

// UnenrollStudent removes a student from a classroom's set. Unenrolling an
// id that is not present fails without touching anything.
func (s *ClassroomService) UnenrollStudent(ctx context.Context, caller models.Caller, classroomID, studentID string) error {
	student, classroom, _, err := s.validateEnrollment(ctx, caller, classroomID, studentID)
	if err != nil {
		return err
	}

	enrolled, err := s.repo.IsMember(ctx, classroom.ID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrConflict, "student already not enrolled to classroom")
	}

	rows, err := s.repo.RemoveStudent(ctx, classroom.ID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll student")
	}
	if rows <= 0 {
		return appErrors.Clone(appErrors.ErrNotModified, "couldn't unenroll student from classroom")
	}

	s.invalidateListCache(ctx)
	return nil
}

// UnenrollStudentByID pulls a student from every classroom. Bulk cascade
// helper; zero matching classrooms is success.
func (s *ClassroomService) UnenrollStudentByID(ctx context.Context, studentID string) error {
	if err := s.repo.RemoveStudentEverywhere(ctx, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student from classrooms")
	}
	s.invalidateListCache(ctx)
	return nil
}

// DeleteBySchoolID removes every classroom under a school. Bulk cascade
// helper; zero matching classrooms is success.
func (s *ClassroomService) DeleteBySchoolID(ctx context.Context, schoolID string) error {
	if err := s.repo.DeleteBySchoolID(ctx, schoolID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school classrooms")
	}
	s.invalidateListCache(ctx)
	return nil
}

func (s *ClassroomService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "classrooms:list:*"); err != nil {
		s.logger.Warn("classroom list cache invalidation failed", zap.Error(err))
	}
}
