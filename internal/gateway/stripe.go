package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway implements CheckoutGateway against the Stripe API
type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway configures the Stripe client key and returns the gateway.
// An empty webhookSecret disables signature verification on ParseEvent.
func NewStripeGateway(apiKey, webhookSecret string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(params.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(params.ProductName),
					},
					UnitAmount: stripe.Int64(int64(math.Round(params.Amount * 100))),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	for key, value := range params.Metadata {
		sessionParams.AddMetadata(key, value)
	}

	s, err := session.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &Session{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
	}, nil
}

func (g *StripeGateway) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}}
	s, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}

	out := &Session{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		Currency:      string(s.Currency),
	}
	if s.AmountTotal != 0 {
		out.AmountTotal = float64(s.AmountTotal) / 100
	}
	return out, nil
}

// ParseEvent decodes a webhook payload, verifying its signature when a
// webhook secret is configured. Without a secret the payload is trusted
// as-is; that mode exists for local testing and must not face production
// traffic.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	var event stripe.Event
	if g.webhookSecret == "" {
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
		}
	} else {
		verified, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
		if err != nil {
			return nil, fmt.Errorf("webhook signature verification failed: %w", err)
		}
		event = verified
	}

	out := &Event{Type: string(event.Type)}
	if out.Type != EventTypeCheckoutCompleted {
		return out, nil
	}

	var sess struct {
		ID            string `json:"id"`
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session from event: %w", err)
	}
	out.SessionID = sess.ID
	out.PaymentStatus = sess.PaymentStatus
	return out, nil
}
