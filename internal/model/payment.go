package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment status values carried by a transaction. The gateway may report
// further values; these are the ones reconciliation acts on. A transaction
// never leaves paid once it reaches it.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusExpired  = "expired"
	PaymentStatusCanceled = "canceled"
)

// Processing-stage labels for PaymentTransaction.Status
const (
	TxStatusInitiated = "initiated"
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusExpired   = "expired"
)

// IsTerminalPaymentStatus reports whether no further transition is expected.
func IsTerminalPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired, PaymentStatusCanceled:
		return true
	}
	return false
}

// PaymentTransaction records one checkout attempt and its reconciled outcome
type PaymentTransaction struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID     string             `bson:"session_id" json:"session_id"`
	OrgID         primitive.ObjectID `bson:"org_id" json:"org_id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	PackageID     string             `bson:"package_id" json:"package_id"`
	Amount        float64            `bson:"amount" json:"amount"`
	Currency      string             `bson:"currency" json:"currency"`
	PaymentStatus string             `bson:"payment_status" json:"payment_status"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

func (p *PaymentTransaction) GetID() primitive.ObjectID   { return p.ID }
func (p *PaymentTransaction) SetID(id primitive.ObjectID) { p.ID = id }

// CheckoutRequest is the payload for initiating a checkout session
type CheckoutRequest struct {
	PackageID string `json:"package_id"`
	OrgID     string `json:"org_id"`
}

// CheckoutResponse carries the gateway redirect for a new checkout session
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// PaymentStatusResponse is returned by the polling endpoint
type PaymentStatusResponse struct {
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	Message       string  `json:"message,omitempty"`
	AmountTotal   float64 `json:"amount_total,omitempty"`
	Currency      string  `json:"currency,omitempty"`
}
