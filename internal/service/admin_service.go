package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
)

type adminUserManager interface {
	Create(ctx context.Context, req CreateUserRequest, role models.UserRole) (*models.UserProfile, error)
	FindByRole(ctx context.Context, role models.UserRole) ([]models.UserProfile, error)
	DeleteByID(ctx context.Context, id string) error
}

// AdminService manages admin accounts. Creation does not attach the admin
// to any school; enrollment is a separate school operation.
type AdminService struct {
	users  adminUserManager
	logger *zap.Logger
}

func NewAdminService(users adminUserManager, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{users: users, logger: logger}
}

// List returns every admin account across all tenants.
func (s *AdminService) List(ctx context.Context) ([]models.UserProfile, error) {
	return s.users.FindByRole(ctx, models.RoleAdmin)
}

// Create registers a new unenrolled admin account.
func (s *AdminService) Create(ctx context.Context, req CreateUserRequest) (*models.UserProfile, error) {
	admin, err := s.users.Create(ctx, req, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin created", zap.String("admin_id", admin.ID))
	return admin, nil
}

// Delete removes an admin account. School admin sets referencing the id are
// cleaned up by the membership store's cascade.
func (s *AdminService) Delete(ctx context.Context, adminID string) error {
	return s.users.DeleteByID(ctx, adminID)
}
