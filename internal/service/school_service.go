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

type schoolRepository interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	List(ctx context.Context, adminID string) ([]models.School, error)
	Create(ctx context.Context, school *models.School) error
	Delete(ctx context.Context, id string) (int64, error)
	IsAdmin(ctx context.Context, schoolID, userID string) (bool, error)
	ListStudentIDs(ctx context.Context, schoolID string) ([]string, error)
	AddAdmin(ctx context.Context, schoolID, userID string) (int64, error)
	RemoveAdmin(ctx context.Context, schoolID, userID string) (int64, error)
	AddStudent(ctx context.Context, schoolID, userID string) (int64, error)
	RemoveStudentByUser(ctx context.Context, userID string) (int64, error)
}

type schoolUserDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

type classroomCascader interface {
	DeleteBySchoolID(ctx context.Context, schoolID string) error
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateSchoolRequest is the school creation payload.
type CreateSchoolRequest struct {
	Name        string             `json:"name" validate:"required"`
	Address     models.Address     `json:"address" validate:"required"`
	ContactInfo models.ContactInfo `json:"contactInfo" validate:"required"`
}

// EnrollAdminRequest identifies the admin to enroll into or unenroll from a
// school.
type EnrollAdminRequest struct {
	AdminID string `json:"adminId" validate:"required"`
}

// SchoolService owns school records and their admin/student enrollment sets.
type SchoolService struct {
	repo       schoolRepository
	users      schoolUserDirectory
	classrooms classroomCascader
	cache      listCache
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSchoolService constructs a SchoolService. The cache may be nil.
func NewSchoolService(repo schoolRepository, users schoolUserDirectory, classrooms classroomCascader, cache listCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SchoolService{
		repo:       repo,
		users:      users,
		classrooms: classrooms,
		cache:      cache,
		cacheTTL:   cacheTTL,
		validator:  validate,
		logger:     logger,
	}
}

// List returns the schools visible to the caller: all of them for a
// superadmin, only administered ones for an admin. The outer role gate keeps
// students off this endpoint.
func (s *SchoolService) List(ctx context.Context, caller models.Caller) ([]models.School, error) {
	adminFilter := ""
	if caller.Role == models.RoleAdmin {
		adminFilter = caller.UserID
	}

	cacheKey := fmt.Sprintf("schools:list:%s:%s", caller.Role, adminFilter)
	if s.cache != nil {
		var cached []models.School
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("school list cache read failed", zap.Error(err))
		}
	}

	schools, err := s.repo.List(ctx, adminFilter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, schools, s.cacheTTL); err != nil {
			s.logger.Warn("school list cache write failed", zap.Error(err))
		}
	}

	return schools, nil
}

// Create inserts a new school and returns its reduced projection.
func (s *SchoolService) Create(ctx context.Context, req CreateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create school payload")
	}

	school := &models.School{Name: req.Name, Address: req.Address, ContactInfo: req.ContactInfo}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}

	s.invalidateListCache(ctx)
	s.logger.Info("school created", zap.String("school_id", school.ID), zap.String("name", school.Name))

	return school, nil
}

// Delete removes a school together with its classrooms and enrolled student
// accounts. The three cascade steps run concurrently and are not
// transactional: the first error wins but already committed steps stay
// committed.
func (s *SchoolService) Delete(ctx context.Context, schoolID string) error {
	school, err := s.repo.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school not found.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	studentIDs, err := s.repo.ListStudentIDs(ctx, school.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school roster")
	}

	var deleted int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.classrooms.DeleteBySchoolID(gctx, school.ID)
	})
	g.Go(func() error {
		return s.users.DeleteByIDs(gctx, studentIDs)
	})
	g.Go(func() error {
		rows, err := s.repo.Delete(gctx, school.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school")
		}
		deleted = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if deleted <= 0 {
		return appErrors.Clone(appErrors.ErrNotModified, "couldn't delete school")
	}

	s.invalidateListCache(ctx)
	s.logger.Info("school deleted",
		zap.String("school_id", school.ID),
		zap.Int("students_removed", len(studentIDs)),
	)

	return nil
}

// GetByID is a raw lookup used by other components. Returns nil when the
// school does not exist.
func (s *SchoolService) GetByID(ctx context.Context, schoolID string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

// validateEnrolling checks that an admin can be enrolled into or unenrolled
// from a school. Both lookups run concurrently; the checks on the results are
// ordered and the first failure wins.
func (s *SchoolService) validateEnrolling(ctx context.Context, adminID, schoolID string) (*models.User, *models.School, error) {
	var (
		admin  *models.User
		school *models.School
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.users.FindByID(gctx, adminID)
		if err != nil {
			return err
		}
		admin = found
		return nil
	})
	g.Go(func() error {
		found, err := s.repo.FindByID(gctx, schoolID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
		}
		school = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if admin == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "admin not found.")
	}
	if admin.Role != models.RoleAdmin {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "adminId must be an id of school admin user.")
	}
	if school == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "school not found.")
	}

	return admin, school, nil
}

// EnrollAdmin adds an admin to the school's admin set.
func (s *SchoolService) EnrollAdmin(ctx context.Context, adminID, schoolID string) error {
	admin, school, err := s.validateEnrolling(ctx, adminID, schoolID)
	if err != nil {
		return err
	}

	enrolled, err := s.repo.IsAdmin(ctx, school.ID, admin.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admin enrollment")
	}
	if enrolled {
		return appErrors.Clone(appErrors.ErrConflict, "admin already enrolled to school")
	}

	rows, err := s.repo.AddAdmin(ctx, school.ID, admin.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll admin")
	}
	if rows <= 0 {
		// A concurrent enroll can slip between the membership check and the
		// insert; the add-to-set insert then touches zero rows.
		return appErrors.Clone(appErrors.ErrNotModified, "couldn't enroll admin to school")
	}

	s.invalidateListCache(ctx)
	return nil
}

// UnenrollAdmin removes an admin from the school's admin set.
func (s *SchoolService) UnenrollAdmin(ctx context.Context, adminID, schoolID string) error {
	admin, school, err := s.validateEnrolling(ctx, adminID, schoolID)
	if err != nil {
		return err
	}

	enrolled, err := s.repo.IsAdmin(ctx, school.ID, admin.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admin enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrConflict, "admin not enrolled to school")
	}

	rows, err := s.repo.RemoveAdmin(ctx, school.ID, admin.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll admin")
	}
	if rows <= 0 {
		return appErrors.Clone(appErrors.ErrNotModified, "couldn't unenroll admin from school")
	}

	s.invalidateListCache(ctx)
	return nil
}

// AddStudent places a student id into the school's roster. Internal helper
// for the student creation flow.
func (s *SchoolService) AddStudent(ctx context.Context, schoolID, studentID string) error {
	rows, err := s.repo.AddStudent(ctx, schoolID, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add student")
	}
	if rows <= 0 {
		return appErrors.Clone(appErrors.ErrNotModified, "couldn't add student to school")
	}
	return nil
}

// RemoveStudentByID pulls a student id from whichever school enrolled it.
// Internal helper for the student deletion cascade.
func (s *SchoolService) RemoveStudentByID(ctx context.Context, studentID string) error {
	rows, err := s.repo.RemoveStudentByUser(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student")
	}
	if rows <= 0 {
		return appErrors.Clone(appErrors.ErrNotModified, "couldn't remove student from school")
	}
	return nil
}

// ListStudentIDs exposes the school roster ids for sibling services.
func (s *SchoolService) ListStudentIDs(ctx context.Context, schoolID string) ([]string, error) {
	ids, err := s.repo.ListStudentIDs(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school roster")
	}
	return ids, nil
}

func (s *SchoolService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "schools:list:*"); err != nil {
		s.logger.Warn("school list cache invalidation failed", zap.Error(err))
	}
}
