package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"taskflow/internal/gateway"
	"taskflow/internal/model"
	"taskflow/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// checkoutFixture returns a fixture with an admin-owned org and a pending
// starter transaction for session cs_test_1, the state right after a
// successful CreateCheckout.
func checkoutFixture(t *testing.T) (*fixture, *model.Organization, string) {
	t.Helper()
	f := newFixture()
	ctx := context.Background()

	admin := f.addUser("admin@example.com", "Org Admin")
	org := f.addOrg("Acme", admin.ID)

	resp, err := f.payService.CreateCheckout(ctx, admin.ID, "https://app.test", &model.CheckoutRequest{
		OrgID:     org.ID.Hex(),
		PackageID: "starter",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.SessionID)
	return f, org, resp.SessionID
}

func TestCreateCheckoutPersistsPendingTransaction(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	tx, err := f.payments.FindBySessionID(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, org.ID, tx.OrgID)
	assert.Equal(t, "starter", tx.PackageID)
	assert.Equal(t, 29.00, tx.Amount)
	assert.Equal(t, "usd", tx.Currency)
	assert.Equal(t, model.PaymentStatusPending, tx.PaymentStatus)
	assert.Equal(t, model.TxStatusInitiated, tx.Status)

	// The gateway call carried the price-table amount, the correlation
	// metadata and the redirect URLs, never client-supplied numbers.
	require.Len(t, f.gateway.created, 1)
	params := f.gateway.created[0]
	assert.Equal(t, "Starter Plan", params.ProductName)
	assert.Equal(t, 29.00, params.Amount)
	assert.Equal(t, "usd", params.Currency)
	assert.Equal(t, org.ID.Hex(), params.Metadata["org_id"])
	assert.Equal(t, "starter", params.Metadata["package_id"])
	assert.Contains(t, params.SuccessURL, "https://app.test/payment-success")
	assert.Contains(t, params.SuccessURL, "{CHECKOUT_SESSION_ID}")
	assert.Equal(t, "https://app.test/payment-cancel", params.CancelURL)
}

func TestCreateCheckoutRequiresOrgAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	admin := f.addUser("admin@example.com", "Org Admin")
	org := f.addOrg("Acme", admin.ID)
	manager := f.addUser("manager@example.com", "Manager")
	f.addMember(org.ID, manager.ID, model.RoleManager)
	outsider := f.addUser("outsider@example.com", "Outsider")

	for _, caller := range []primitive.ObjectID{manager.ID, outsider.ID} {
		_, err := f.payService.CreateCheckout(ctx, caller, "https://app.test", &model.CheckoutRequest{
			OrgID:     org.ID.Hex(),
			PackageID: "starter",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	}
	assert.Empty(t, f.gateway.created, "denied checkout must never reach the gateway")
}

func TestCreateCheckoutUnknownPackage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	admin := f.addUser("admin@example.com", "Org Admin")
	org := f.addOrg("Acme", admin.ID)

	_, err := f.payService.CreateCheckout(ctx, admin.ID, "https://app.test", &model.CheckoutRequest{
		OrgID:     org.ID.Hex(),
		PackageID: "platinum",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestCreateCheckoutGatewayFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	admin := f.addUser("admin@example.com", "Org Admin")
	org := f.addOrg("Acme", admin.ID)
	f.gateway.createErr = errors.New("gateway down")

	_, err := f.payService.CreateCheckout(ctx, admin.ID, "https://app.test", &model.CheckoutRequest{
		OrgID:     org.ID.Hex(),
		PackageID: "starter",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstreamFailure))

	// No half-created transaction is left behind; a retry mints a new session.
	tx, err := f.payments.FindBySessionID(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

// Happy path: free org, starter checkout, gateway reports paid. One poll
// reconciles the transaction to paid/completed and activates the org.
func TestPollingReconciliationActivatesOrganization(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.sessions[sessionID] = &gateway.Session{
		ID: sessionID, Status: "complete", PaymentStatus: model.PaymentStatusPaid,
		AmountTotal: 29.00, Currency: "usd",
	}

	resp, err := f.payService.ReconcileBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, resp.PaymentStatus)
	assert.Equal(t, model.TxStatusCompleted, resp.Status)
	assert.Equal(t, 29.00, resp.AmountTotal)

	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusPaid, tx.PaymentStatus)
	assert.Equal(t, model.TxStatusCompleted, tx.Status)

	updated, _ := f.orgs.FindByID(ctx, org.ID)
	assert.Equal(t, model.SubscriptionActive, updated.SubscriptionStatus)
	assert.Equal(t, 1, f.orgs.activationCount(org.ID))
}

// Idempotence: a second poll with no gateway change returns the same state,
// does not touch the gateway again and never credits the org twice.
func TestPollingReconciliationIdempotent(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.sessions[sessionID] = &gateway.Session{
		ID: sessionID, Status: "complete", PaymentStatus: model.PaymentStatusPaid,
		AmountTotal: 29.00, Currency: "usd",
	}

	first, err := f.payService.ReconcileBySession(ctx, sessionID)
	require.NoError(t, err)
	callsAfterFirst := f.gateway.getCallCount()

	second, err := f.payService.ReconcileBySession(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, first.PaymentStatus, second.PaymentStatus)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, callsAfterFirst, f.gateway.getCallCount(), "paid transactions short-circuit before the gateway")
	assert.Equal(t, 1, f.orgs.activationCount(org.ID))

	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusPaid, tx.PaymentStatus)
}

func TestPollingReconciliationUnknownSession(t *testing.T) {
	f := newFixture()

	_, err := f.payService.ReconcileBySession(context.Background(), "cs_missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestPollingReconciliationGatewayFailure(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.getErr = errors.New("gateway timeout")

	_, err := f.payService.ReconcileBySession(ctx, sessionID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstreamFailure))

	// Retryable: the transaction is untouched and a later poll succeeds.
	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusPending, tx.PaymentStatus)
	assert.Equal(t, model.TxStatusInitiated, tx.Status)

	f.gateway.getErr = nil
	f.gateway.sessions[sessionID] = &gateway.Session{
		ID: sessionID, Status: "complete", PaymentStatus: model.PaymentStatusPaid,
	}
	_, err = f.payService.ReconcileBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.orgs.activationCount(org.ID))
}

func TestPollingRecordsNonPaidStatus(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.sessions[sessionID] = &gateway.Session{
		ID: sessionID, Status: "expired", PaymentStatus: "unpaid",
	}

	resp, err := f.payService.ReconcileBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.TxStatusExpired, resp.Status)

	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, "unpaid", tx.PaymentStatus)
	assert.Equal(t, model.TxStatusExpired, tx.Status)
	assert.Equal(t, 0, f.orgs.activationCount(org.ID))

	updated, _ := f.orgs.FindByID(ctx, org.ID)
	assert.Equal(t, model.SubscriptionFree, updated.SubscriptionStatus)
}

func TestWebhookReconciliationActivatesOrganization(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.event = &gateway.Event{
		Type:          gateway.EventTypeCheckoutCompleted,
		SessionID:     sessionID,
		PaymentStatus: model.PaymentStatusPaid,
	}

	require.NoError(t, f.payService.HandleWebhook(ctx, []byte(`{}`), "sig"))

	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusPaid, tx.PaymentStatus)
	assert.Equal(t, model.TxStatusCompleted, tx.Status)
	assert.Equal(t, 1, f.orgs.activationCount(org.ID))
}

func TestWebhookFailedPaymentDoesNotActivate(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.event = &gateway.Event{
		Type:          gateway.EventTypeCheckoutCompleted,
		SessionID:     sessionID,
		PaymentStatus: model.PaymentStatusFailed,
	}

	require.NoError(t, f.payService.HandleWebhook(ctx, []byte(`{}`), "sig"))

	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusFailed, tx.PaymentStatus)
	assert.Equal(t, model.TxStatusFailed, tx.Status)
	assert.Equal(t, 0, f.orgs.activationCount(org.ID))
}

func TestWebhookIgnoresUnknownEventTypes(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.event = &gateway.Event{Type: "invoice.paid"}

	require.NoError(t, f.payService.HandleWebhook(ctx, []byte(`{}`), "sig"))

	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusPending, tx.PaymentStatus)
	assert.Equal(t, 0, f.orgs.activationCount(org.ID))
}

func TestWebhookIgnoresUnknownSession(t *testing.T) {
	f, org, _ := checkoutFixture(t)

	f.gateway.event = &gateway.Event{
		Type:          gateway.EventTypeCheckoutCompleted,
		SessionID:     "cs_from_another_environment",
		PaymentStatus: model.PaymentStatusPaid,
	}

	// Acknowledged without error so the gateway stops redelivering.
	assert.NoError(t, f.payService.HandleWebhook(context.Background(), []byte(`{}`), "sig"))
	assert.Equal(t, 0, f.orgs.activationCount(org.ID))
}

func TestWebhookVerificationFailure(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.parseErr = errors.New("signature mismatch")

	err := f.payService.HandleWebhook(ctx, []byte(`{}`), "bad-sig")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthenticated))

	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusPending, tx.PaymentStatus, "unverified events must not change state")
	assert.Equal(t, 0, f.orgs.activationCount(org.ID))
}

// Commutativity: webhook-then-poll and poll-then-webhook, both observing
// paid, converge to the same (transaction, subscription) pair with exactly
// one activation.
func TestReconciliationPathsCommute(t *testing.T) {
	type outcome struct {
		paymentStatus string
		txStatus      string
		subscription  string
		activations   int
	}

	run := func(t *testing.T, webhookFirst bool) outcome {
		f, org, sessionID := checkoutFixture(t)
		ctx := context.Background()

		f.gateway.sessions[sessionID] = &gateway.Session{
			ID: sessionID, Status: "complete", PaymentStatus: model.PaymentStatusPaid,
		}
		f.gateway.event = &gateway.Event{
			Type:          gateway.EventTypeCheckoutCompleted,
			SessionID:     sessionID,
			PaymentStatus: model.PaymentStatusPaid,
		}

		poll := func() {
			_, err := f.payService.ReconcileBySession(ctx, sessionID)
			require.NoError(t, err)
		}
		hook := func() {
			require.NoError(t, f.payService.HandleWebhook(ctx, []byte(`{}`), "sig"))
		}

		if webhookFirst {
			hook()
			poll()
		} else {
			poll()
			hook()
		}

		tx, _ := f.payments.FindBySessionID(ctx, sessionID)
		updated, _ := f.orgs.FindByID(ctx, org.ID)
		return outcome{
			paymentStatus: tx.PaymentStatus,
			txStatus:      tx.Status,
			subscription:  updated.SubscriptionStatus,
			activations:   f.orgs.activationCount(org.ID),
		}
	}

	hookThenPoll := run(t, true)
	pollThenHook := run(t, false)

	assert.Equal(t, hookThenPoll, pollThenHook)
	assert.Equal(t, outcome{
		paymentStatus: model.PaymentStatusPaid,
		txStatus:      model.TxStatusCompleted,
		subscription:  model.SubscriptionActive,
		activations:   1,
	}, hookThenPoll)
}

// A late or replayed non-paid report can never pull a transaction back out
// of paid.
func TestPaidStatusNeverRegresses(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.event = &gateway.Event{
		Type:          gateway.EventTypeCheckoutCompleted,
		SessionID:     sessionID,
		PaymentStatus: model.PaymentStatusPaid,
	}
	require.NoError(t, f.payService.HandleWebhook(ctx, []byte(`{}`), "sig"))

	f.gateway.event = &gateway.Event{
		Type:          gateway.EventTypeCheckoutCompleted,
		SessionID:     sessionID,
		PaymentStatus: model.PaymentStatusExpired,
	}
	require.NoError(t, f.payService.HandleWebhook(ctx, []byte(`{}`), "sig"))

	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusPaid, tx.PaymentStatus)
	assert.Equal(t, model.TxStatusCompleted, tx.Status)

	updated, _ := f.orgs.FindByID(ctx, org.ID)
	assert.Equal(t, model.SubscriptionActive, updated.SubscriptionStatus)
}

// If the activation write fails, the winner must surrender the paid state it
// claimed so a later reconciliation can retry; the transaction is never left
// paid without the org credited.
func TestActivationFailureRestoresTransaction(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.sessions[sessionID] = &gateway.Session{
		ID: sessionID, Status: "complete", PaymentStatus: model.PaymentStatusPaid,
	}
	f.orgs.activateErr = errors.New("write concern not satisfied")

	_, err := f.payService.ReconcileBySession(ctx, sessionID)
	require.Error(t, err)

	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusPending, tx.PaymentStatus, "paid must be rolled back")
	assert.Equal(t, model.TxStatusInitiated, tx.Status)
	assert.Equal(t, 0, f.orgs.activationCount(org.ID))

	// Once the store recovers the same poll path completes the transition.
	f.orgs.activateErr = nil
	_, err = f.payService.ReconcileBySession(ctx, sessionID)
	require.NoError(t, err)

	tx, _ = f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusPaid, tx.PaymentStatus)
	assert.Equal(t, 1, f.orgs.activationCount(org.ID))
}

// Any number of concurrent polls and webhooks for one session still activate
// the org exactly once: only the single winner of the conditional update
// applies the org mutation.
func TestConcurrentReconciliationActivatesOnce(t *testing.T) {
	f, org, sessionID := checkoutFixture(t)
	ctx := context.Background()

	f.gateway.sessions[sessionID] = &gateway.Session{
		ID: sessionID, Status: "complete", PaymentStatus: model.PaymentStatusPaid,
	}
	f.gateway.event = &gateway.Event{
		Type:          gateway.EventTypeCheckoutCompleted,
		SessionID:     sessionID,
		PaymentStatus: model.PaymentStatusPaid,
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.payService.ReconcileBySession(ctx, sessionID)
		}()
		go func() {
			defer wg.Done()
			_ = f.payService.HandleWebhook(ctx, []byte(`{}`), "sig")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.orgs.activationCount(org.ID))

	tx, _ := f.payments.FindBySessionID(ctx, sessionID)
	assert.Equal(t, model.PaymentStatusPaid, tx.PaymentStatus)
	assert.Equal(t, model.TxStatusCompleted, tx.Status)
}
