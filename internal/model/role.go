package model

// Role is the per-organization role assigned to a member
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Capability is a named operation class gated by the authorizer
type Capability string

const (
	CapOrgView          Capability = "org:view"
	CapOrgInvite        Capability = "org:invite"
	CapOrgManageMembers Capability = "org:manage_members"
	CapTaskCreate       Capability = "task:create"
	CapTaskUpdate       Capability = "task:update"
	CapTaskDelete       Capability = "task:delete"
	CapCheckout         Capability = "billing:checkout"
)

// capabilityRoles is the policy table deciding which roles may exercise
// which capability. New roles or capabilities are added here, not at the
// call sites.
var capabilityRoles = map[Capability][]Role{
	CapOrgView:          {RoleAdmin, RoleManager, RoleEmployee},
	CapOrgInvite:        {RoleAdmin},
	CapOrgManageMembers: {RoleAdmin},
	CapTaskCreate:       {RoleAdmin, RoleManager},
	CapTaskUpdate:       {RoleAdmin, RoleManager, RoleEmployee}, // employees pass a further own-task check
	CapTaskDelete:       {RoleAdmin, RoleManager},
	CapCheckout:         {RoleAdmin},
}

// AllowedRoles returns the roles permitted to exercise a capability.
func AllowedRoles(cap Capability) []Role {
	return capabilityRoles[cap]
}

// Allows reports whether the role may exercise the capability.
func (r Role) Allows(cap Capability) bool {
	for _, allowed := range capabilityRoles[cap] {
		if r == allowed {
			return true
		}
	}
	return false
}

// CanManageAnyTask reports whether the role bypasses the assignee check on
// task updates.
func (r Role) CanManageAnyTask() bool {
	return r == RoleAdmin || r == RoleManager
}

// IsValidRole reports whether the string is a known member role.
func IsValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}
