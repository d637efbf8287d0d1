package command

import (
	"context"
	"fmt"

	"github.com/integration-hub/student-hub/internal/domain/gate"
	"github.com/integration-hub/student-hub/internal/domain/integration"
	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE ONBOARDING COMMAND
// Saves the onboarding answers. The answers decide whether the pre-arrival
// phase counts, so progress is recomputed afterwards.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteOnboardingCommand contains the onboarding answers.
type CompleteOnboardingCommand struct {
	UserID  string
	Answers profile.OnboardingAnswers
}

// CompleteOnboardingResult contains the saved profile.
type CompleteOnboardingResult struct {
	Profile *profile.Profile
	Gates   gate.Gates
}

// CompleteOnboardingHandler handles the CompleteOnboardingCommand.
type CompleteOnboardingHandler struct {
	profiles ProfileLoader
	repo     profile.Repository
	ledger   integration.Repository
	events   shared.EventPublisher
}

// NewCompleteOnboardingHandler creates a new CompleteOnboardingHandler.
func NewCompleteOnboardingHandler(
	profiles ProfileLoader,
	repo profile.Repository,
	ledger integration.Repository,
	events shared.EventPublisher,
) *CompleteOnboardingHandler {
	if events == nil {
		events = shared.NopPublisher{}
	}
	return &CompleteOnboardingHandler{profiles: profiles, repo: repo, ledger: ledger, events: events}
}

// Handle executes the command.
func (h *CompleteOnboardingHandler) Handle(ctx context.Context, cmd CompleteOnboardingCommand) (*CompleteOnboardingResult, error) {
	p, err := h.repo.GetOrCreate(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("complete_onboarding: load profile: %w", err)
	}

	if err := p.CompleteOnboarding(cmd.Answers); err != nil {
		return nil, err
	}
	if err := h.repo.UpdateOnboarding(ctx, p); err != nil {
		return nil, fmt.Errorf("complete_onboarding: save: %w", err)
	}

	ledger, err := h.ledger.Load(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("complete_onboarding: load ledger: %w", err)
	}
	if progress := ProgressFor(p)(ledger); progress != p.IntegrationProgress {
		if err := h.repo.UpdateProgress(ctx, cmd.UserID, progress); err != nil {
			return nil, fmt.Errorf("complete_onboarding: write progress: %w", err)
		}
		prev := p.SetProgress(progress)
		_ = h.events.Publish(shared.NewProgressUpdatedEvent(cmd.UserID, prev, progress))
	}

	_ = h.profiles.Invalidate(ctx, cmd.UserID)
	_ = h.events.Publish(shared.NewProfileOnboardedEvent(cmd.UserID, p.Nationality.String(), p.InFrance))

	return &CompleteOnboardingResult{Profile: p, Gates: gate.Evaluate(gate.SnapshotOf(p))}, nil
}
