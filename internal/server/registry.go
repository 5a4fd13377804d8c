package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/gateway"
	"taskflow/internal/handler"
	"taskflow/internal/logger"
	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/service"
	"taskflow/pkg/util"

	"go.mongodb.org/mongo-driver/mongo"
)

// Repositories bundles the persistence layer
type Repositories struct {
	Users        repository.IUserRepository
	Orgs         repository.IOrgRepository
	Memberships  repository.IMembershipRepository
	Tasks        repository.ITaskRepository
	Payments     repository.IPaymentRepository
	SysAdmins    repository.ISysAdminRepository
	AdminConfigs repository.IAdminConfigRepository
}

// Services bundles the business logic layer
type Services struct {
	Tokens   *auth.TokenService
	Authz    *service.Authorizer
	Auth     *service.AuthService
	Orgs     *service.OrgService
	Tasks    *service.TaskService
	Payments *service.PaymentService
	Admin    *service.AdminService
}

// Handlers bundles the HTTP layer
type Handlers struct {
	Auth    *handler.AuthHandler
	Org     *handler.OrgHandler
	Task    *handler.TaskHandler
	Payment *handler.PaymentHandler
	Admin   *handler.AdminHandler
}

// InitRepositories wires repositories to their collections
func InitRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Users:        repository.NewUserRepository(db),
		Orgs:         repository.NewOrgRepository(db),
		Memberships:  repository.NewMembershipRepository(db),
		Tasks:        repository.NewTaskRepository(db),
		Payments:     repository.NewPaymentRepository(db),
		SysAdmins:    repository.NewSysAdminRepository(db),
		AdminConfigs: repository.NewAdminConfigRepository(db),
	}
}

// InitServices wires services to repositories and external collaborators
func InitServices(cfg *config.Config, repos *Repositories) *Services {
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLHours)
	authz := service.NewAuthorizer(repos.Memberships, repos.SysAdmins)
	stripeGateway := gateway.NewStripeGateway(cfg.Stripe.APIKey, cfg.Stripe.WebhookSecret)

	return &Services{
		Tokens:   tokens,
		Authz:    authz,
		Auth:     service.NewAuthService(repos.Users, tokens),
		Orgs:     service.NewOrgService(repos.Orgs, repos.Memberships, repos.Users, repos.Tasks, authz),
		Tasks:    service.NewTaskService(repos.Tasks, repos.Users, repos.Memberships, authz),
		Payments: service.NewPaymentService(repos.Payments, repos.Orgs, stripeGateway, config.Packages(), authz),
		Admin:    service.NewAdminService(repos.AdminConfigs, repos.SysAdmins, repos.Users, authz),
	}
}

// InitHandlers wires handlers to services
func InitHandlers(services *Services) *Handlers {
	return &Handlers{
		Auth:    handler.NewAuthHandler(services.Auth),
		Org:     handler.NewOrgHandler(services.Orgs),
		Task:    handler.NewTaskHandler(services.Tasks),
		Payment: handler.NewPaymentHandler(services.Payments),
		Admin:   handler.NewAdminHandler(services.Admin),
	}
}

// PopulateInitialData prepares the database on boot: unique indexes backing
// the duplicate checks, and the bootstrap system administrators without
// which no one could reach the admin endpoints.
func PopulateInitialData(cfg *config.Config, db *mongo.Database, repos *Repositories) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}

	return seedSysAdmins(ctx, cfg, repos)
}

// seedSysAdmins grants sys-admin to each configured email. An unregistered
// email gets a bootstrap account when SYS_ADMIN_PASSWORD is set, and is
// skipped with a warning otherwise.
func seedSysAdmins(ctx context.Context, cfg *config.Config, repos *Repositories) error {
	for _, email := range cfg.Auth.SysAdminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}

		user, err := repos.Users.FindByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to look up sys admin %s: %w", email, err)
		}

		if user == nil {
			if cfg.Auth.BootstrapPasswd == "" {
				logger.Warn("sys admin email not registered and no bootstrap password set", "email", email)
				continue
			}
			hash, err := util.HashPassword(cfg.Auth.BootstrapPasswd)
			if err != nil {
				return fmt.Errorf("failed to hash bootstrap password: %w", err)
			}
			user, err = repos.Users.Create(ctx, &model.User{
				Email:        email,
				PasswordHash: hash,
				FullName:     strings.SplitN(email, "@", 2)[0],
			})
			if err != nil {
				return fmt.Errorf("failed to create sys admin user %s: %w", email, err)
			}
			logger.Info("bootstrap sys admin user created", "email", email)
		}

		exists, err := repos.SysAdmins.ExistsByUserID(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to check sys admin registry: %w", err)
		}
		if exists {
			continue
		}

		if err := repos.SysAdmins.Create(ctx, &model.SysAdmin{UserID: user.ID}); err != nil {
			return fmt.Errorf("failed to grant sys admin to %s: %w", email, err)
		}
		logger.Info("sys admin granted", "email", email)
	}
	return nil
}
