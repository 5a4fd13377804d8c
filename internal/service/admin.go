package service

import (
	"context"
	"strings"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminService handles the global configuration table and the system
// administrator registry. Every operation here is gated on the registry,
// never on organization roles.
type AdminService struct {
	configs   repository.IAdminConfigRepository
	sysAdmins repository.ISysAdminRepository
	users     repository.IUserRepository
	authz     *Authorizer
}

// NewAdminService creates a new admin service
func NewAdminService(
	configs repository.IAdminConfigRepository,
	sysAdmins repository.ISysAdminRepository,
	users repository.IUserRepository,
	authz *Authorizer,
) *AdminService {
	return &AdminService{configs: configs, sysAdmins: sysAdmins, users: users, authz: authz}
}

// ListConfig returns all configuration entries.
func (s *AdminService) ListConfig(ctx context.Context, callerID primitive.ObjectID) ([]model.AdminConfigResponse, error) {
	if err := s.authz.RequireSysAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	configs, err := s.configs.List(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list config", err)
	}

	result := make([]model.AdminConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		result = append(result, cfg.ToResponse())
	}
	return result, nil
}

// UpsertConfig creates or replaces the entry for a key.
func (s *AdminService) UpsertConfig(ctx context.Context, callerID primitive.ObjectID, req *model.AdminConfigRequest) error {
	if err := s.authz.RequireSysAdmin(ctx, callerID); err != nil {
		return err
	}

	keyName := strings.TrimSpace(req.KeyName)
	if keyName == "" {
		return apperrors.InvalidInput("Key name is required")
	}

	err := s.configs.Upsert(ctx, &model.AdminConfig{
		KeyName:   keyName,
		Value:     req.Value,
		IsSecret:  req.IsSecret,
		UpdatedBy: callerID,
	})
	if err != nil {
		return apperrors.Internal("Failed to update config", err)
	}
	return nil
}

// DeleteConfig removes the entry for a key.
func (s *AdminService) DeleteConfig(ctx context.Context, callerID primitive.ObjectID, keyName string) error {
	if err := s.authz.RequireSysAdmin(ctx, callerID); err != nil {
		return err
	}

	deleted, err := s.configs.DeleteByKey(ctx, keyName)
	if err != nil {
		return apperrors.Internal("Failed to delete config", err)
	}
	if !deleted {
		return apperrors.NotFound("Config not found")
	}
	return nil
}

// PromoteSysAdmin adds a user to the system administrator registry.
func (s *AdminService) PromoteSysAdmin(ctx context.Context, callerID, userID primitive.ObjectID) error {
	if err := s.authz.RequireSysAdmin(ctx, callerID); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return apperrors.Internal("Failed to load user", err)
	}
	if user == nil {
		return apperrors.NotFound("User not found")
	}

	exists, err := s.sysAdmins.ExistsByUserID(ctx, userID)
	if err != nil {
		return apperrors.Internal("Failed to check system admin registry", err)
	}
	if exists {
		return apperrors.Conflict("User is already a system admin")
	}

	err = s.sysAdmins.Create(ctx, &model.SysAdmin{
		UserID:    userID,
		CreatedBy: callerID,
	})
	if err != nil {
		return apperrors.Internal("Failed to promote user", err)
	}
	return nil
}
