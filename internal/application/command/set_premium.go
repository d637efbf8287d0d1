package command

import (
	"context"
	"fmt"

	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PREMIUM COMMANDS
// StartCheckout opens a payment page; SetPremium applies the result
// delivered by the payment webhook.
// ══════════════════════════════════════════════════════════════════════════════

// Premium change sources.
const (
	PremiumSourceStripe = "stripe"
	PremiumSourceAdmin  = "admin"
)

// SetPremiumCommand flips the premium flag.
type SetPremiumCommand struct {
	UserID  string
	Premium bool
	Source  string
}

// SetPremiumHandler handles the SetPremiumCommand.
type SetPremiumHandler struct {
	repo     profile.Repository
	profiles ProfileLoader
	events   shared.EventPublisher
}

// NewSetPremiumHandler creates a new SetPremiumHandler.
func NewSetPremiumHandler(repo profile.Repository, profiles ProfileLoader, events shared.EventPublisher) *SetPremiumHandler {
	if events == nil {
		events = shared.NopPublisher{}
	}
	return &SetPremiumHandler{repo: repo, profiles: profiles, events: events}
}

// Handle executes the command.
func (h *SetPremiumHandler) Handle(ctx context.Context, cmd SetPremiumCommand) error {
	if err := h.repo.SetPremium(ctx, cmd.UserID, cmd.Premium); err != nil {
		return fmt.Errorf("set_premium: %w", err)
	}
	_ = h.profiles.Invalidate(ctx, cmd.UserID)
	_ = h.events.Publish(shared.NewPremiumChangedEvent(cmd.UserID, cmd.Premium, cmd.Source))
	return nil
}

// StartCheckoutCommand asks for a payment page.
type StartCheckoutCommand struct {
	UserID string
	Email  string
}

// StartCheckoutHandler handles the StartCheckoutCommand.
type StartCheckoutHandler struct {
	provider CheckoutProvider
	profiles ProfileLoader
}

// NewStartCheckoutHandler creates a new StartCheckoutHandler.
// provider may be nil when billing is not configured.
func NewStartCheckoutHandler(provider CheckoutProvider, profiles ProfileLoader) *StartCheckoutHandler {
	return &StartCheckoutHandler{provider: provider, profiles: profiles}
}

// Handle returns the checkout URL.
func (h *StartCheckoutHandler) Handle(ctx context.Context, cmd StartCheckoutCommand) (string, error) {
	if h.provider == nil {
		return "", shared.ErrBillingUnavailable
	}
	p, err := h.profiles.Load(ctx, cmd.UserID)
	if err != nil {
		return "", fmt.Errorf("start_checkout: load profile: %w", err)
	}
	if p.IsPremium {
		return "", shared.NewDomainError("billing", "Checkout", shared.ErrConflict, "already_premium", "your account is already premium")
	}
	email := cmd.Email
	if email == "" {
		email = p.UniversityEmail
	}
	return h.provider.CreateCheckout(ctx, cmd.UserID, email)
}
