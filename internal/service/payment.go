package service

import (
	"context"

	"taskflow/internal/config"
	"taskflow/internal/gateway"
	"taskflow/internal/logger"
	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/pkg/apperrors"
	"taskflow/pkg/timer"
	"taskflow/pkg/util"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentService drives a checkout session from creation to a terminal
// status. Two independent triggers report the outcome: the client polling
// the status endpoint and the gateway delivering a webhook. Both funnel into
// the same conditional-update transition, so running them concurrently or in
// either order converges to the same transaction state with the organization
// activated exactly once.
type PaymentService struct {
	payments repository.IPaymentRepository
	orgs     repository.IOrgRepository
	gateway  gateway.CheckoutGateway
	packages map[string]config.PackageConfig
	authz    *Authorizer
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	payments repository.IPaymentRepository,
	orgs repository.IOrgRepository,
	gw gateway.CheckoutGateway,
	packages map[string]config.PackageConfig,
	authz *Authorizer,
) *PaymentService {
	return &PaymentService{payments: payments, orgs: orgs, gateway: gw, packages: packages, authz: authz}
}

// CreateCheckout mints a gateway session for a subscription package and
// records the transaction as pending. Only organization admins may start a
// checkout. The call is not retried on gateway failure; the caller may
// simply invoke it again for a fresh session.
func (s *PaymentService) CreateCheckout(ctx context.Context, userID primitive.ObjectID, baseURL string, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	orgID, err := util.ParseObjectID(req.OrgID)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid organization id")
	}

	if _, err := s.authz.Authorize(ctx, userID, orgID, model.CapCheckout); err != nil {
		return nil, err
	}

	pkg, ok := s.packages[req.PackageID]
	if !ok {
		return nil, apperrors.InvalidInput("Invalid package")
	}

	sess, err := s.gateway.CreateSession(ctx, gateway.CreateSessionParams{
		ProductName: pkg.Name,
		Amount:      pkg.Amount,
		Currency:    pkg.Currency,
		SuccessURL:  baseURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   baseURL + "/payment-cancel",
		Metadata: map[string]string{
			"org_id":     req.OrgID,
			"package_id": req.PackageID,
			"user_id":    userID.Hex(),
		},
	})
	if err != nil {
		return nil, apperrors.UpstreamFailure("Failed to create checkout session", err)
	}

	tx := &model.PaymentTransaction{
		SessionID:     sess.ID,
		OrgID:         orgID,
		UserID:        userID,
		PackageID:     req.PackageID,
		Amount:        pkg.Amount,
		Currency:      pkg.Currency,
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.TxStatusInitiated,
	}
	if err := s.payments.Create(ctx, tx); err != nil {
		return nil, apperrors.Internal("Failed to record payment transaction", err)
	}

	logger.Info("checkout session created",
		"sessionId", sess.ID, "orgId", req.OrgID, "packageId", req.PackageID)

	return &model.CheckoutResponse{URL: sess.URL, SessionID: sess.ID}, nil
}

// ReconcileBySession is the polling path: it reads the session's live status
// from the gateway and folds it into the stored transaction. A transaction
// that already reached paid is returned as-is without touching the gateway.
func (s *PaymentService) ReconcileBySession(ctx context.Context, sessionID string) (*model.PaymentStatusResponse, error) {
	defer timer.Track("Payment Reconcile (Poll)")()

	tx, err := s.payments.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load transaction", err)
	}
	if tx == nil {
		return nil, apperrors.NotFound("Transaction not found")
	}

	if tx.PaymentStatus == model.PaymentStatusPaid {
		return &model.PaymentStatusResponse{
			Status:        tx.Status,
			PaymentStatus: tx.PaymentStatus,
			Message:       "Payment already processed",
		}, nil
	}

	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.UpstreamFailure("Failed to retrieve session status", err)
	}

	stage := stageForSessionStatus(sess.Status)
	if sess.PaymentStatus == model.PaymentStatusPaid {
		stage = model.TxStatusCompleted
	}
	if err := s.applyTransition(ctx, sessionID, sess.PaymentStatus, stage); err != nil {
		return nil, err
	}

	return &model.PaymentStatusResponse{
		Status:        stage,
		PaymentStatus: sess.PaymentStatus,
		AmountTotal:   sess.AmountTotal,
		Currency:      sess.Currency,
	}, nil
}

// HandleWebhook is the callback path: it decodes and (when a secret is
// configured) authenticates the gateway event, then folds the reported
// outcome into the stored transaction. Event types other than checkout
// completion are acknowledged and ignored, as are sessions this deployment
// never created; the gateway redelivers on error, so any failure here must
// surface rather than be swallowed.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	defer timer.Track("Payment Reconcile (Webhook)")()

	event, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnauthenticated, "Webhook verification failed")
	}

	if event.Type != gateway.EventTypeCheckoutCompleted || event.SessionID == "" {
		logger.Debug("webhook event ignored", "type", event.Type)
		return nil
	}

	tx, err := s.payments.FindBySessionID(ctx, event.SessionID)
	if err != nil {
		return apperrors.Internal("Failed to load transaction", err)
	}
	if tx == nil {
		// Replays for sessions created elsewhere are acknowledged so the
		// gateway stops redelivering them.
		logger.Warn("webhook for unknown session ignored", "sessionId", event.SessionID)
		return nil
	}

	stage := model.TxStatusCompleted
	if event.PaymentStatus != model.PaymentStatusPaid {
		stage = model.TxStatusFailed
	}
	return s.applyTransition(ctx, event.SessionID, event.PaymentStatus, stage)
}

// applyTransition folds one observed gateway outcome into the transaction.
// Both reconciliation paths share it, which is what makes them idempotent
// and order-independent.
//
// The paid transition runs as a single conditional update matching only
// while payment_status is still not paid. Exactly one caller can win that
// update no matter how many race; only the winner activates the
// organization. If the activation write cannot be confirmed, the winner
// restores the transaction's previous state so the system never persists a
// paid transaction without its activation, and a later reconciliation can
// try again.
func (s *PaymentService) applyTransition(ctx context.Context, sessionID, paymentStatus, stage string) error {
	if paymentStatus != model.PaymentStatusPaid {
		if err := s.payments.UpdateStatusBySession(ctx, sessionID, stage, paymentStatus); err != nil {
			return apperrors.Internal("Failed to update transaction", err)
		}
		return nil
	}

	prev, err := s.payments.MarkPaidBySession(ctx, sessionID, model.TxStatusCompleted)
	if err != nil {
		return apperrors.Internal("Failed to update transaction", err)
	}
	if prev == nil {
		// Another reconciliation already recorded the paid transition and
		// owns the activation; nothing left to do.
		return nil
	}

	if err := s.orgs.Activate(ctx, prev.OrgID); err != nil {
		if restoreErr := s.payments.RestoreBySession(ctx, sessionID, prev.PaymentStatus, prev.Status); restoreErr != nil {
			logger.Error("failed to restore transaction after activation failure",
				"sessionId", sessionID, "error", restoreErr)
		}
		return apperrors.Internal("Failed to activate organization subscription", err)
	}

	logger.Info("organization subscription activated",
		"orgId", prev.OrgID.Hex(), "sessionId", sessionID, "packageId", prev.PackageID)
	return nil
}

// stageForSessionStatus maps the gateway's session lifecycle status onto the
// transaction's stage label.
func stageForSessionStatus(status string) string {
	switch status {
	case "complete":
		return model.TxStatusCompleted
	case "expired":
		return model.TxStatusExpired
	case "open":
		return model.TxStatusPending
	default:
		return model.TxStatusPending
	}
}
