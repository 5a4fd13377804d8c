package repository

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// IOrgRepository defines organization persistence
type IOrgRepository interface {
	Create(ctx context.Context, org *model.Organization) (*model.Organization, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Organization, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Organization, error)
	Activate(ctx context.Context, id primitive.ObjectID) error
}

// OrgRepository implements org persistence
type OrgRepository struct {
	collection *mongo.Collection
}

func NewOrgRepository(db *mongo.Database) IOrgRepository {
	return &OrgRepository{collection: db.Collection("organizations")}
}

func (r *OrgRepository) Create(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now
	res, err := r.collection.InsertOne(ctx, org)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		org.ID = oid
	}
	return org, nil
}

func (r *OrgRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Organization, error) {
	var org *model.Organization
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&org)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

func (r *OrgRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orgs []*model.Organization
	if err := cursor.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// Activate flips the organization's subscription status to active. The write
// must be confirmed: an unmatched id is reported as an error so the caller
// can undo the payment transition it was about to credit.
func (r *OrgRepository) Activate(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"subscription_status": model.SubscriptionActive,
			"updated_at":          time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("organization %s not found", id.Hex())
	}
	return nil
}
