package service

import (
	"context"
	"strings"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/pkg/apperrors"
	"taskflow/pkg/util"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrgService handles organization lifecycle and membership management
type OrgService struct {
	orgs        repository.IOrgRepository
	memberships repository.IMembershipRepository
	users       repository.IUserRepository
	tasks       repository.ITaskRepository
	authz       *Authorizer
}

// NewOrgService creates a new organization service
func NewOrgService(
	orgs repository.IOrgRepository,
	memberships repository.IMembershipRepository,
	users repository.IUserRepository,
	tasks repository.ITaskRepository,
	authz *Authorizer,
) *OrgService {
	return &OrgService{orgs: orgs, memberships: memberships, users: users, tasks: tasks, authz: authz}
}

// Create makes a new organization with the caller as its first admin.
func (s *OrgService) Create(ctx context.Context, userID primitive.ObjectID, req *model.CreateOrganizationRequest) (*model.OrganizationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := util.ValidateName(name); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	org, err := s.orgs.Create(ctx, &model.Organization{
		Name:               name,
		SubscriptionStatus: model.SubscriptionFree,
		CreatedBy:          userID,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to create organization", err)
	}

	err = s.memberships.Create(ctx, &model.OrganizationMember{
		UserID: userID,
		OrgID:  org.ID,
		Role:   model.RoleAdmin,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to add creator as admin", err)
	}

	resp := org.ToResponse()
	return &resp, nil
}

// ListMine returns the organizations the user belongs to.
func (s *OrgService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]model.OrganizationResponse, error) {
	members, err := s.memberships.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list memberships", err)
	}

	orgIDs := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		orgIDs = append(orgIDs, m.OrgID)
	}

	orgs, err := s.orgs.FindByIDs(ctx, orgIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to load organizations", err)
	}

	result := make([]model.OrganizationResponse, 0, len(orgs))
	for _, org := range orgs {
		result = append(result, org.ToResponse())
	}
	return result, nil
}

// Get returns one organization; the caller must be a member.
func (s *OrgService) Get(ctx context.Context, userID, orgID primitive.ObjectID) (*model.OrganizationResponse, error) {
	if _, err := s.authz.Authorize(ctx, userID, orgID, model.CapOrgView); err != nil {
		return nil, err
	}

	org, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load organization", err)
	}
	if org == nil {
		return nil, apperrors.NotFound("Organization not found")
	}

	resp := org.ToResponse()
	return &resp, nil
}

// Invite adds an already-registered user to the organization with a role.
func (s *OrgService) Invite(ctx context.Context, userID, orgID primitive.ObjectID, req *model.InviteMemberRequest) error {
	if _, err := s.authz.Authorize(ctx, userID, orgID, model.CapOrgInvite); err != nil {
		return err
	}

	if !model.IsValidRole(req.Role) {
		return apperrors.InvalidInput("Invalid role")
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	invited, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return apperrors.Internal("Failed to look up email", err)
	}
	if invited == nil {
		return apperrors.NotFound("User not found")
	}

	existing, err := s.memberships.FindByOrgAndUser(ctx, orgID, invited.ID)
	if err != nil {
		return apperrors.Internal("Failed to check membership", err)
	}
	if existing != nil {
		return apperrors.Conflict("User already a member")
	}

	err = s.memberships.Create(ctx, &model.OrganizationMember{
		UserID: invited.ID,
		OrgID:  orgID,
		Role:   model.Role(req.Role),
	})
	if err != nil {
		return apperrors.Internal("Failed to add member", err)
	}
	return nil
}

// Members lists the organization's members joined with their profiles.
func (s *OrgService) Members(ctx context.Context, userID, orgID primitive.ObjectID) ([]model.MemberResponse, error) {
	if _, err := s.authz.Authorize(ctx, userID, orgID, model.CapOrgView); err != nil {
		return nil, err
	}

	members, err := s.memberships.FindByOrg(ctx, orgID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list members", err)
	}

	userIDs := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to load member profiles", err)
	}

	userMap := make(map[primitive.ObjectID]*model.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}

	result := make([]model.MemberResponse, 0, len(members))
	for _, m := range members {
		user, ok := userMap[m.UserID]
		if !ok {
			continue
		}
		result = append(result, model.MemberResponse{
			ID:        m.ID.Hex(),
			UserID:    m.UserID.Hex(),
			Email:     user.Email,
			FullName:  user.FullName,
			Role:      m.Role,
			CreatedAt: m.CreatedAt,
		})
	}
	return result, nil
}

// UpdateMemberRole changes a member's role. The last admin of an
// organization cannot be demoted.
func (s *OrgService) UpdateMemberRole(ctx context.Context, callerID, orgID, memberUserID primitive.ObjectID, newRole string) error {
	if _, err := s.authz.Authorize(ctx, callerID, orgID, model.CapOrgManageMembers); err != nil {
		return err
	}

	if !model.IsValidRole(newRole) {
		return apperrors.InvalidInput("Invalid role")
	}

	member, err := s.memberships.FindByOrgAndUser(ctx, orgID, memberUserID)
	if err != nil {
		return apperrors.Internal("Failed to load membership", err)
	}
	if member == nil {
		return apperrors.NotFound("Member not found")
	}

	if member.Role == model.RoleAdmin && model.Role(newRole) != model.RoleAdmin {
		admins, err := s.memberships.CountAdmins(ctx, orgID)
		if err != nil {
			return apperrors.Internal("Failed to count admins", err)
		}
		if admins <= 1 {
			return apperrors.Conflict("Cannot demote the only admin")
		}
	}

	if err := s.memberships.UpdateRole(ctx, orgID, memberUserID, model.Role(newRole)); err != nil {
		return apperrors.Internal("Failed to update role", err)
	}
	return nil
}

// RemoveMember removes a member from the organization. The last admin
// cannot be removed.
func (s *OrgService) RemoveMember(ctx context.Context, callerID, orgID, memberUserID primitive.ObjectID) error {
	if _, err := s.authz.Authorize(ctx, callerID, orgID, model.CapOrgManageMembers); err != nil {
		return err
	}

	member, err := s.memberships.FindByOrgAndUser(ctx, orgID, memberUserID)
	if err != nil {
		return apperrors.Internal("Failed to load membership", err)
	}
	if member == nil {
		return apperrors.NotFound("Member not found")
	}

	if member.Role == model.RoleAdmin {
		admins, err := s.memberships.CountAdmins(ctx, orgID)
		if err != nil {
			return apperrors.Internal("Failed to count admins", err)
		}
		if admins <= 1 {
			return apperrors.Conflict("Cannot remove the only admin")
		}
	}

	removed, err := s.memberships.DeleteByOrgAndUser(ctx, orgID, memberUserID)
	if err != nil {
		return apperrors.Internal("Failed to remove member", err)
	}
	if !removed {
		return apperrors.NotFound("Member not found")
	}
	return nil
}

// Stats summarizes the organization's tasks and membership for a dashboard.
func (s *OrgService) Stats(ctx context.Context, userID, orgID primitive.ObjectID) (*model.OrgStats, error) {
	if _, err := s.authz.Authorize(ctx, userID, orgID, model.CapOrgView); err != nil {
		return nil, err
	}

	stats := &model.OrgStats{}
	var err error

	if stats.TotalTasks, err = s.tasks.CountByOrg(ctx, orgID); err != nil {
		return nil, apperrors.Internal("Failed to count tasks", err)
	}
	if stats.PendingTasks, err = s.tasks.CountByOrgAndStatus(ctx, orgID, model.TaskStatusPending); err != nil {
		return nil, apperrors.Internal("Failed to count tasks", err)
	}
	if stats.InProgressTasks, err = s.tasks.CountByOrgAndStatus(ctx, orgID, model.TaskStatusInProgress); err != nil {
		return nil, apperrors.Internal("Failed to count tasks", err)
	}
	if stats.CompletedTasks, err = s.tasks.CountByOrgAndStatus(ctx, orgID, model.TaskStatusCompleted); err != nil {
		return nil, apperrors.Internal("Failed to count tasks", err)
	}
	if stats.MyTasks, err = s.tasks.CountByOrgAndAssignee(ctx, orgID, userID); err != nil {
		return nil, apperrors.Internal("Failed to count tasks", err)
	}
	if stats.MembersCount, err = s.memberships.CountByOrg(ctx, orgID); err != nil {
		return nil, apperrors.Internal("Failed to count members", err)
	}

	return stats, nil
}
