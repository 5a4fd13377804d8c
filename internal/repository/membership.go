package repository

import (
	"context"
	"time"

	"taskflow/internal/model"
	"taskflow/pkg/generic"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// IMembershipRepository defines organization membership persistence
type IMembershipRepository interface {
	Create(ctx context.Context, member *model.OrganizationMember) error
	FindByOrgAndUser(ctx context.Context, orgID, userID primitive.ObjectID) (*model.OrganizationMember, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.OrganizationMember, error)
	FindByOrg(ctx context.Context, orgID primitive.ObjectID) ([]*model.OrganizationMember, error)
	UpdateRole(ctx context.Context, orgID, userID primitive.ObjectID, role model.Role) error
	DeleteByOrgAndUser(ctx context.Context, orgID, userID primitive.ObjectID) (bool, error)
	CountByOrg(ctx context.Context, orgID primitive.ObjectID) (int64, error)
	CountAdmins(ctx context.Context, orgID primitive.ObjectID) (int64, error)
}

// MembershipRepository implements membership persistence
type MembershipRepository struct {
	*generic.MongoBaseRepository[*model.OrganizationMember]
}

func NewMembershipRepository(db *mongo.Database) IMembershipRepository {
	return &MembershipRepository{
		MongoBaseRepository: generic.NewBaseRepository[*model.OrganizationMember](db.Collection("organization_members")),
	}
}

func (r *MembershipRepository) Create(ctx context.Context, member *model.OrganizationMember) error {
	member.CreatedAt = time.Now()
	return r.MongoBaseRepository.Create(ctx, member)
}

func (r *MembershipRepository) FindByOrgAndUser(ctx context.Context, orgID, userID primitive.ObjectID) (*model.OrganizationMember, error) {
	var member *model.OrganizationMember
	err := r.Collection.FindOne(ctx, bson.M{"org_id": orgID, "user_id": userID}).Decode(&member)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return member, nil
}

func (r *MembershipRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.OrganizationMember, error) {
	return r.Find(ctx, bson.M{"user_id": userID})
}

func (r *MembershipRepository) FindByOrg(ctx context.Context, orgID primitive.ObjectID) ([]*model.OrganizationMember, error) {
	return r.Find(ctx, bson.M{"org_id": orgID})
}

func (r *MembershipRepository) UpdateRole(ctx context.Context, orgID, userID primitive.ObjectID, role model.Role) error {
	_, err := r.Collection.UpdateOne(ctx,
		bson.M{"org_id": orgID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role}},
	)
	return err
}

func (r *MembershipRepository) DeleteByOrgAndUser(ctx context.Context, orgID, userID primitive.ObjectID) (bool, error) {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"org_id": orgID, "user_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MembershipRepository) CountByOrg(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	return r.Count(ctx, bson.M{"org_id": orgID})
}

// CountAdmins counts members holding the admin role, used to protect the
// last remaining admin from demotion or removal.
func (r *MembershipRepository) CountAdmins(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	return r.Count(ctx, bson.M{"org_id": orgID, "role": model.RoleAdmin})
}
