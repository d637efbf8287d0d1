package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/integration-hub/student-hub/internal/application/command"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/infrastructure/external/billing"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STRIPE WEBHOOK HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// maxWebhookBytes bounds webhook payloads.
const maxWebhookBytes = 64 << 10

// WebhookParser verifies a signed payload and maps it to a premium change.
// A nil change with a nil error means the event is not relevant.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*billing.PremiumChange, error)
}

// PremiumSetter applies a premium change.
type PremiumSetter interface {
	Handle(ctx context.Context, cmd command.SetPremiumCommand) error
}

// StripeWebhookHandler receives Stripe events and flips the premium flag.
//
// Responses follow Stripe's retry contract: 400 for payloads that will never
// verify, 500 when applying the change failed and a redelivery may succeed,
// 200 for everything else.
type StripeWebhookHandler struct {
	parser  WebhookParser
	premium PremiumSetter
	logger  *logger.Logger
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler.
func NewStripeWebhookHandler(parser WebhookParser, premium PremiumSetter, log *logger.Logger) *StripeWebhookHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &StripeWebhookHandler{parser: parser, premium: premium, logger: log.With(logger.Component("stripe_webhook"))}
}

// ServeHTTP implements http.Handler.
func (h *StripeWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes+1))
	if err != nil {
		writeWebhookStatus(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if len(payload) > maxWebhookBytes {
		writeWebhookStatus(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	change, err := h.parser.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, billing.ErrInvalidSignature):
		h.logger.Warn("rejected webhook with invalid signature", logger.Err(err))
		writeWebhookStatus(w, http.StatusBadRequest, "invalid signature")
		return
	case errors.Is(err, billing.ErrMissingUser):
		h.logger.Warn("webhook event without user reference", logger.Err(err))
		writeWebhookStatus(w, http.StatusOK, "ignored")
		return
	case err != nil:
		h.logger.Error("webhook event could not be decoded", logger.Err(err))
		writeWebhookStatus(w, http.StatusBadRequest, "malformed event")
		return
	case change == nil:
		writeWebhookStatus(w, http.StatusOK, "ignored")
		return
	}

	if err := h.premium.Handle(r.Context(), command.SetPremiumCommand{
		UserID:  change.UserID,
		Premium: change.Premium,
		Source:  command.PremiumSourceStripe,
	}); err != nil {
		if shared.IsNotFound(err) {
			h.logger.Warn("premium change for unknown user",
				logger.String("event_id", change.EventID), logger.UserID(change.UserID))
			writeWebhookStatus(w, http.StatusOK, "ignored")
			return
		}
		h.logger.Error("failed to apply premium change",
			logger.String("event_id", change.EventID), logger.UserID(change.UserID), logger.Err(err))
		writeWebhookStatus(w, http.StatusInternalServerError, "apply failed")
		return
	}

	h.logger.Info("premium changed",
		logger.String("event_id", change.EventID), logger.UserID(change.UserID), logger.Bool("premium", change.Premium))
	writeWebhookStatus(w, http.StatusOK, "applied")
}

func writeWebhookStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": message})
}
