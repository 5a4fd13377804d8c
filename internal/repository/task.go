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

// ITaskRepository defines task persistence
type ITaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByIDAndOrg(ctx context.Context, id, orgID primitive.ObjectID) (*model.Task, error)
	FindByOrg(ctx context.Context, orgID primitive.ObjectID, filter model.TaskFilter) ([]*model.Task, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	DeleteByIDAndOrg(ctx context.Context, id, orgID primitive.ObjectID) (bool, error)
	CountByOrg(ctx context.Context, orgID primitive.ObjectID) (int64, error)
	CountByOrgAndStatus(ctx context.Context, orgID primitive.ObjectID, status string) (int64, error)
	CountByOrgAndAssignee(ctx context.Context, orgID, userID primitive.ObjectID) (int64, error)
}

// TaskRepository implements task persistence
type TaskRepository struct {
	*generic.MongoBaseRepository[*model.Task]
}

func NewTaskRepository(db *mongo.Database) ITaskRepository {
	return &TaskRepository{
		MongoBaseRepository: generic.NewBaseRepository[*model.Task](db.Collection("tasks")),
	}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	task.CreatedAt = time.Now()
	return r.MongoBaseRepository.Create(ctx, task)
}

func (r *TaskRepository) FindByIDAndOrg(ctx context.Context, id, orgID primitive.ObjectID) (*model.Task, error) {
	var task *model.Task
	err := r.Collection.FindOne(ctx, bson.M{"_id": id, "org_id": orgID}).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) FindByOrg(ctx context.Context, orgID primitive.ObjectID, filter model.TaskFilter) ([]*model.Task, error) {
	query := bson.M{"org_id": orgID}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if !filter.AssignedTo.IsZero() {
		query["assigned_to"] = filter.AssignedTo
	}
	if filter.IsDaily != nil {
		query["is_daily"] = *filter.IsDaily
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.Find(ctx, query, opts)
}

func (r *TaskRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	return err
}

func (r *TaskRepository) DeleteByIDAndOrg(ctx context.Context, id, orgID primitive.ObjectID) (bool, error) {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id, "org_id": orgID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *TaskRepository) CountByOrg(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	return r.Count(ctx, bson.M{"org_id": orgID})
}

func (r *TaskRepository) CountByOrgAndStatus(ctx context.Context, orgID primitive.ObjectID, status string) (int64, error) {
	return r.Count(ctx, bson.M{"org_id": orgID, "status": status})
}

func (r *TaskRepository) CountByOrgAndAssignee(ctx context.Context, orgID, userID primitive.ObjectID) (int64, error) {
	return r.Count(ctx, bson.M{"org_id": orgID, "assigned_to": userID})
}
