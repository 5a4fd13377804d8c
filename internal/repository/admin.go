package repository

import (
	"context"
	"time"

	"taskflow/internal/model"
	"taskflow/pkg/generic"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ISysAdminRepository defines the system administrator registry
type ISysAdminRepository interface {
	Create(ctx context.Context, admin *model.SysAdmin) error
	ExistsByUserID(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

// SysAdminRepository implements the system administrator registry
type SysAdminRepository struct {
	*generic.MongoBaseRepository[*model.SysAdmin]
}

func NewSysAdminRepository(db *mongo.Database) ISysAdminRepository {
	return &SysAdminRepository{
		MongoBaseRepository: generic.NewBaseRepository[*model.SysAdmin](db.Collection("sys_admins")),
	}
}

func (r *SysAdminRepository) Create(ctx context.Context, admin *model.SysAdmin) error {
	admin.CreatedAt = time.Now()
	return r.MongoBaseRepository.Create(ctx, admin)
}

func (r *SysAdminRepository) ExistsByUserID(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	return r.Exists(ctx, bson.M{"user_id": userID})
}

// IAdminConfigRepository defines admin configuration persistence
type IAdminConfigRepository interface {
	List(ctx context.Context) ([]*model.AdminConfig, error)
	Upsert(ctx context.Context, cfg *model.AdminConfig) error
	DeleteByKey(ctx context.Context, keyName string) (bool, error)
}

// AdminConfigRepository implements admin configuration persistence
type AdminConfigRepository struct {
	*generic.MongoBaseRepository[*model.AdminConfig]
}

func NewAdminConfigRepository(db *mongo.Database) IAdminConfigRepository {
	return &AdminConfigRepository{
		MongoBaseRepository: generic.NewBaseRepository[*model.AdminConfig](db.Collection("admin_config")),
	}
}

func (r *AdminConfigRepository) List(ctx context.Context) ([]*model.AdminConfig, error) {
	return r.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "key_name", Value: 1}}))
}

// Upsert inserts or replaces the entry for cfg.KeyName, keeping the original
// created_at on replace.
func (r *AdminConfigRepository) Upsert(ctx context.Context, cfg *model.AdminConfig) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"value":      cfg.Value,
			"is_secret":  cfg.IsSecret,
			"updated_at": now,
			"updated_by": cfg.UpdatedBy,
		},
		"$setOnInsert": bson.M{
			"key_name":   cfg.KeyName,
			"created_at": now,
		},
	}
	_, err := r.Collection.UpdateOne(ctx,
		bson.M{"key_name": cfg.KeyName},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *AdminConfigRepository) DeleteByKey(ctx context.Context, keyName string) (bool, error) {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"key_name": keyName})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
