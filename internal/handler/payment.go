package handler

import (
	"io"
	"net/http"

	"taskflow/internal/model"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles checkout creation and both reconciliation triggers
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Checkout starts a checkout session for a subscription package
// (POST /api/payments/checkout)
func (h *PaymentHandler) Checkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req model.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(err.Error(), ""))
		return
	}

	resp, err := h.payments.CreateCheckout(c.Request.Context(), userID, requestBaseURL(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Status polls the session's outcome and reconciles it into the transaction
// (GET /api/payments/status/:sessionId)
func (h *PaymentHandler) Status(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	resp, err := h.payments.ReconcileBySession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Webhook receives gateway event callbacks (POST /api/payments/webhook).
// The route is unauthenticated; the event's own signature is the credential.
// Errors surface as non-2xx so the gateway redelivers the event.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("Failed to read payload", ""))
		return
	}

	err = h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// requestBaseURL rebuilds the externally visible origin the frontend hit, so
// checkout redirect URLs land back on the same deployment.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}
