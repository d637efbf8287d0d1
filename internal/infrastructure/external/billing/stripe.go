// Package billing wires premium subscriptions to Stripe Checkout.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// Stripe event types that change premium state.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// metadataUserID links Stripe objects back to a profile.
const metadataUserID = "user_id"

var (
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")

	// ErrMissingUser is returned when an event carries no user reference.
	ErrMissingUser = errors.New("billing: event has no user reference")
)

// Config contains Stripe settings.
type Config struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	SuccessURL    string
	CancelURL     string

	// Backend overrides the Stripe API backend (tests).
	Backend stripe.Backend
	Logger  *logger.Logger
}

// PremiumChange is the outcome of a webhook event.
type PremiumChange struct {
	EventID string
	UserID  string
	Premium bool
}

// Client creates checkout sessions and verifies webhooks.
type Client struct {
	sessions      session.Client
	webhookSecret string
	priceID       string
	successURL    string
	cancelURL     string
	logger        *logger.Logger
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	backend := cfg.Backend
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Client{
		sessions:      session.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		priceID:       cfg.PriceID,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		logger:        cfg.Logger.With(logger.Component("billing")),
	}
}

// CreateCheckout opens a subscription checkout for the user and returns its URL.
func (c *Client) CreateCheckout(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(c.priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(userID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metadataUserID: userID},
		},
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Context = ctx
	params.AddMetadata(metadataUserID, userID)

	s, err := c.sessions.New(params)
	if err != nil {
		c.logger.Error("checkout session failed", logger.UserID(userID), logger.Err(err))
		return "", shared.ErrBillingUnavailable.Wrap(err)
	}
	return s.URL, nil
}

// ParseWebhook verifies the signature and maps the event to a premium change.
// Events that do not affect premium return nil, nil.
func (c *Client) ParseWebhook(payload []byte, signature string) (*PremiumChange, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch event.Type {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		userID := s.ClientReferenceID
		if userID == "" {
			userID = s.Metadata[metadataUserID]
		}
		if userID == "" {
			return nil, ErrMissingUser
		}
		return &PremiumChange{EventID: event.ID, UserID: userID, Premium: true}, nil

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		userID := sub.Metadata[metadataUserID]
		if userID == "" {
			return nil, ErrMissingUser
		}
		premium := event.Type == EventSubscriptionUpdated && subscriptionActive(sub.Status)
		return &PremiumChange{EventID: event.ID, UserID: userID, Premium: premium}, nil
	}

	c.logger.Debug("ignoring stripe event", logger.String("type", string(event.Type)))
	return nil, nil
}

func subscriptionActive(status stripe.SubscriptionStatus) bool {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing, stripe.SubscriptionStatusPastDue:
		return true
	}
	return false
}
