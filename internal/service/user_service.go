package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.UserProfile, error)
	FindByRole(ctx context.Context, role models.UserRole) ([]models.UserProfile, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) (int64, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

// CreateUserRequest is the identity creation payload. The role is fixed by
// the orchestrating flow, never by the client.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserService owns user records and role assignment.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Create adds a user with the given role. The email must be globally unique;
// the password is stored only as a bcrypt hash and the returned projection
// never includes it.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, role models.UserRole) (*models.UserProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid user role")
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("user with mail %s already exists", req.Email))
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		Role:         role,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(role)))

	return &models.UserProfile{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

// FindByID returns a user record, or nil when no user holds the id.
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// FindByIDs returns reduced projections for the given ids.
func (s *UserService) FindByIDs(ctx context.Context, ids []string) ([]models.UserProfile, error) {
	users, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load users")
	}
	return users, nil
}

// FindByRole returns reduced projections for every user holding the role.
func (s *UserService) FindByRole(ctx context.Context, role models.UserRole) ([]models.UserProfile, error) {
	users, err := s.repo.FindByRole(ctx, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load users")
	}
	return users, nil
}

// DeleteByID removes a single user record.
func (s *UserService) DeleteByID(ctx context.Context, id string) error {
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	if rows <= 0 {
		return appErrors.Clone(appErrors.ErrNotModified, "couldn't delete user")
	}
	return nil
}

// DeleteByIDs removes every listed user. Absence of matches is success; the
// cascade that calls this must not fail because a roster was already empty.
func (s *UserService) DeleteByIDs(ctx context.Context, ids []string) error {
	if err := s.repo.DeleteByIDs(ctx, ids); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete users")
	}
	return nil
}
