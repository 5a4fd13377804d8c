package gateway

import "context"

// EventTypeCheckoutCompleted is the only callback event type reconciliation
// acts on; everything else is acknowledged and ignored.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// CreateSessionParams describes one checkout session to mint. Amount is in
// major currency units; the metadata rides along opaquely and comes back on
// the session and its events.
type CreateSessionParams struct {
	ProductName string
	Amount      float64
	Currency    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// Session is the gateway's view of a checkout session
type Session struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	AmountTotal   float64
	Currency      string
}

// Event is a decoded webhook callback
type Event struct {
	Type          string
	SessionID     string
	PaymentStatus string
}

// CheckoutGateway is the payment provider contract the reconciler consumes:
// mint a session, read a session's live status, decode a callback. Tests
// substitute a fake; nothing outside this package touches the provider SDK.
type CheckoutGateway interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
}
