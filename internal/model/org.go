package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subscription states for an organization
const (
	SubscriptionFree   = "free"
	SubscriptionActive = "active"
)

type Organization struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name               string             `bson:"name" json:"name"`
	StripeCustomerID   string             `bson:"stripe_customer_id,omitempty" json:"stripe_customer_id,omitempty"`
	SubscriptionStatus string             `bson:"subscription_status" json:"subscription_status"`

	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

func (o *Organization) GetID() primitive.ObjectID   { return o.ID }
func (o *Organization) SetID(id primitive.ObjectID) { o.ID = id }

// OrganizationMember links a user to an organization with exactly one role
type OrganizationMember struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	OrgID     primitive.ObjectID `bson:"org_id" json:"org_id"`
	Role      Role               `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

func (m *OrganizationMember) GetID() primitive.ObjectID   { return m.ID }
func (m *OrganizationMember) SetID(id primitive.ObjectID) { m.ID = id }

// CreateOrganizationRequest is the payload for creating an organization
type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

// InviteMemberRequest adds an existing user to an organization
type InviteMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"` // admin, manager, employee
}

// UpdateMemberRoleRequest changes an existing member's role
type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// OrganizationResponse is the public view of an organization
type OrganizationResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	StripeCustomerID   string    `json:"stripe_customer_id,omitempty"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedBy          string    `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
}

// ToResponse converts Organization to OrganizationResponse
func (o *Organization) ToResponse() OrganizationResponse {
	return OrganizationResponse{
		ID:                 o.ID.Hex(),
		Name:               o.Name,
		StripeCustomerID:   o.StripeCustomerID,
		SubscriptionStatus: o.SubscriptionStatus,
		CreatedBy:          o.CreatedBy.Hex(),
		CreatedAt:          o.CreatedAt,
	}
}

// MemberResponse is the member list view joined with user profile fields
type MemberResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// OrgStats summarizes task and membership counts for a dashboard
type OrgStats struct {
	TotalTasks      int64 `json:"total_tasks"`
	PendingTasks    int64 `json:"pending_tasks"`
	InProgressTasks int64 `json:"in_progress_tasks"`
	CompletedTasks  int64 `json:"completed_tasks"`
	MyTasks         int64 `json:"my_tasks"`
	MembersCount    int64 `json:"members_count"`
}
