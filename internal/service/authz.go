package service

import (
	"context"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/pkg/apperrors"
	"taskflow/pkg/timer"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Authorizer makes every per-organization access decision. It re-reads the
// caller's membership on each call, so a role change takes effect on the
// next request; role claims are never cached in tokens or in memory.
type Authorizer struct {
	memberships repository.IMembershipRepository
	sysAdmins   repository.ISysAdminRepository
}

// NewAuthorizer creates a new authorizer
func NewAuthorizer(memberships repository.IMembershipRepository, sysAdmins repository.ISysAdminRepository) *Authorizer {
	return &Authorizer{memberships: memberships, sysAdmins: sysAdmins}
}

// Authorize resolves the caller's role in the organization and checks it
// against the capability's allowed roles. Non-members and members lacking
// the capability both get Forbidden, and the check runs before any resource
// lookup so a denial reveals nothing about what exists.
func (a *Authorizer) Authorize(ctx context.Context, userID, orgID primitive.ObjectID, cap model.Capability) (model.Role, error) {
	defer timer.Track("Authorize (Membership Lookup)")()

	member, err := a.memberships.FindByOrgAndUser(ctx, orgID, userID)
	if err != nil {
		return "", apperrors.Internal("Failed to resolve membership", err)
	}
	if member == nil {
		return "", apperrors.Forbidden("Not a member of this organization")
	}
	if !member.Role.Allows(cap) {
		return "", apperrors.Forbidden("Insufficient permissions")
	}
	return member.Role, nil
}

// RequireSysAdmin checks the system administrator registry. The registry is
// independent of organizations; this never consults memberships.
func (a *Authorizer) RequireSysAdmin(ctx context.Context, userID primitive.ObjectID) error {
	isAdmin, err := a.sysAdmins.ExistsByUserID(ctx, userID)
	if err != nil {
		return apperrors.Internal("Failed to check system admin registry", err)
	}
	if !isAdmin {
		return apperrors.Forbidden("System admin access required")
	}
	return nil
}
