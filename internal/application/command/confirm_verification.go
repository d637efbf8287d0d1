package command

import (
	"context"
	"fmt"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/domain/verification"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIRM VERIFICATION COMMAND
// Applies a confirmation link. Reusing a consumed link is a no-op.
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmOutcome describes what the link did.
type ConfirmOutcome string

const (
	ConfirmOutcomeVerified        ConfirmOutcome = "verified"
	ConfirmOutcomeAlreadyVerified ConfirmOutcome = "already_verified"
)

// ConfirmVerificationCommand contains the token from the link.
type ConfirmVerificationCommand struct {
	Token string
}

// ConfirmVerificationResult contains the outcome.
type ConfirmVerificationResult struct {
	Outcome ConfirmOutcome
	UserID  string
	Email   string
}

// ConfirmVerificationHandler handles the ConfirmVerificationCommand.
type ConfirmVerificationHandler struct {
	repo     verification.Repository
	profiles ProfileLoader
	events   shared.EventPublisher
	now      func() time.Time
}

// NewConfirmVerificationHandler creates a new ConfirmVerificationHandler.
func NewConfirmVerificationHandler(
	repo verification.Repository,
	profiles ProfileLoader,
	events shared.EventPublisher,
) *ConfirmVerificationHandler {
	if events == nil {
		events = shared.NopPublisher{}
	}
	return &ConfirmVerificationHandler{
		repo:     repo,
		profiles: profiles,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the command.
// Returns shared.ErrVerificationTokenInvalid or shared.ErrVerificationTokenExpired.
func (h *ConfirmVerificationHandler) Handle(ctx context.Context, cmd ConfirmVerificationCommand) (*ConfirmVerificationResult, error) {
	if !verification.WellFormed(cmd.Token) {
		return nil, shared.ErrVerificationTokenInvalid
	}

	rec, err := h.repo.FindByTokenHash(ctx, verification.HashToken(cmd.Token))
	if err != nil {
		return nil, err
	}

	now := h.now()
	decision, err := rec.Decide(now)
	if err != nil {
		return nil, err
	}

	result := &ConfirmVerificationResult{UserID: rec.UserID, Email: rec.Email}
	if decision == verification.ConfirmAlreadyDone {
		result.Outcome = ConfirmOutcomeAlreadyVerified
		return result, nil
	}

	if err := h.repo.Confirm(ctx, rec, now); err != nil {
		return nil, fmt.Errorf("confirm_verification: %w", err)
	}

	_ = h.profiles.Invalidate(ctx, rec.UserID)
	_ = h.events.Publish(shared.NewVerificationConfirmedEvent(rec.UserID, rec.Email))

	result.Outcome = ConfirmOutcomeVerified
	return result, nil
}
