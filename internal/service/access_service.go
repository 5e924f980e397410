package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
)

type accessSchoolRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	ExistsWithAdmin(ctx context.Context, schoolID, userID string) (bool, error)
	ExistsWithStudent(ctx context.Context, schoolID, userID string) (bool, error)
	FindByStudent(ctx context.Context, studentID string) (*models.School, error)
}

// AccessService decides whether a caller may act on a school. It is a pure
// predicate over current store state and performs no writes.
type AccessService struct {
	schools accessSchoolRepository
	logger  *zap.Logger
}

// NewAccessService constructs an AccessService.
func NewAccessService(schools accessSchoolRepository, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{schools: schools, logger: logger}
}

// HasAccess reports whether the caller may act on the given school.
// Superadmins pass whenever the school exists; admins must appear in the
// school's admin set; students must appear in its student roster. Anything
// else, including an unknown school, is unauthorized.
func (s *AccessService) HasAccess(ctx context.Context, caller models.Caller, schoolID string) error {
	var (
		ok  bool
		err error
	)
	switch caller.Role {
	case models.RoleSuperAdmin:
		ok, err = s.schools.Exists(ctx, schoolID)
	case models.RoleAdmin:
		ok, err = s.schools.ExistsWithAdmin(ctx, schoolID, caller.UserID)
	case models.RoleStudent:
		ok, err = s.schools.ExistsWithStudent(ctx, schoolID, caller.UserID)
	default:
		return appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school access")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}
	return nil
}

// HasAccessByStudentID authorizes operations whose target is identified by a
// student id rather than a school id. The school is resolved through the
// student's enrollment; admins must additionally administer that school.
func (s *AccessService) HasAccessByStudentID(ctx context.Context, caller models.Caller, studentID string) error {
	school, err := s.schools.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student school")
	}

	switch caller.Role {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleAdmin:
		ok, err := s.schools.ExistsWithAdmin(ctx, school.ID, caller.UserID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school access")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
		}
		return nil
	default:
		return appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized")
	}
}
