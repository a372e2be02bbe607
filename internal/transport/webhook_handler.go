package transport

import (
	"errors"
	"io"
	"net/http"

	"cake-haven/internal/middleware"
	"cake-haven/internal/payment"
	"cake-haven/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxWebhookBody bounds the raw notification body read into memory.
const maxWebhookBody = 1 << 16

// WebhookHandler receives asynchronous payment confirmation notifications.
type WebhookHandler struct {
	payments service.PaymentsService
	logger   *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(payments service.PaymentsService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{payments: payments, logger: logger}
}

// RegisterRoutes registers the webhook route.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/stripe/webhook", h.Handle)
}

// Handle verifies and processes one notification. Signature failures are
// rejected with 400 and mutate nothing; verified events of other types are
// acknowledged without side effects.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")

	if err := h.payments.HandleNotification(r.Context(), body, sigHeader); err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			h.logger.Warn("Rejected webhook with invalid signature")
			middleware.RespondWithError(w, http.StatusBadRequest, "webhook signature verification failed")
			return
		}
		h.logger.Error("Failed to process payment notification", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to process notification")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}
