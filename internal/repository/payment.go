package repository

import (
	"context"
	"time"

	"taskflow/internal/model"
	"taskflow/pkg/generic"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IPaymentRepository defines payment transaction persistence
type IPaymentRepository interface {
	Create(ctx context.Context, tx *model.PaymentTransaction) error
	FindBySessionID(ctx context.Context, sessionID string) (*model.PaymentTransaction, error)
	MarkPaidBySession(ctx context.Context, sessionID, txStatus string) (*model.PaymentTransaction, error)
	UpdateStatusBySession(ctx context.Context, sessionID, status, paymentStatus string) error
	RestoreBySession(ctx context.Context, sessionID, paymentStatus, status string) error
}

// PaymentRepository implements payment transaction persistence
type PaymentRepository struct {
	*generic.MongoBaseRepository[*model.PaymentTransaction]
}

func NewPaymentRepository(db *mongo.Database) IPaymentRepository {
	return &PaymentRepository{
		MongoBaseRepository: generic.NewBaseRepository[*model.PaymentTransaction](db.Collection("payment_transactions")),
	}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *model.PaymentTransaction) error {
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	return r.MongoBaseRepository.Create(ctx, tx)
}

func (r *PaymentRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.PaymentTransaction, error) {
	var tx *model.PaymentTransaction
	err := r.Collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&tx)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return tx, nil
}

// MarkPaidBySession records the transition into paid as one conditional
// update: it matches only while payment_status is still not paid, so exactly
// one of any number of concurrent callers observes a match. That caller gets
// the document as it was before the update (so it knows the org to credit
// and the prior state to restore on failure); every other caller gets nil.
func (r *PaymentRepository) MarkPaidBySession(ctx context.Context, sessionID, txStatus string) (*model.PaymentTransaction, error) {
	filter := bson.M{
		"session_id":     sessionID,
		"payment_status": bson.M{"$ne": model.PaymentStatusPaid},
	}
	update := bson.M{"$set": bson.M{
		"payment_status": model.PaymentStatusPaid,
		"status":         txStatus,
		"updated_at":     time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var prev *model.PaymentTransaction
	err := r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&prev)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return prev, nil
}

// UpdateStatusBySession records a non-paid status observation. The filter
// keeps paid transactions untouched so a stale gateway report can never
// regress a terminal paid state.
func (r *PaymentRepository) UpdateStatusBySession(ctx context.Context, sessionID, status, paymentStatus string) error {
	_, err := r.Collection.UpdateOne(ctx,
		bson.M{
			"session_id":     sessionID,
			"payment_status": bson.M{"$ne": model.PaymentStatusPaid},
		},
		bson.M{"$set": bson.M{
			"status":         status,
			"payment_status": paymentStatus,
			"updated_at":     time.Now(),
		}},
	)
	return err
}

// RestoreBySession writes back a transaction's prior status fields. Used to
// undo a paid transition whose organization activation could not be
// confirmed. Only paid transactions match, so the compensation is a no-op
// unless the caller still owns the paid state it is unwinding.
func (r *PaymentRepository) RestoreBySession(ctx context.Context, sessionID, paymentStatus, status string) error {
	_, err := r.Collection.UpdateOne(ctx,
		bson.M{
			"session_id":     sessionID,
			"payment_status": model.PaymentStatusPaid,
		},
		bson.M{"$set": bson.M{
			"payment_status": paymentStatus,
			"status":         status,
			"updated_at":     time.Now(),
		}},
	)
	return err
}
