package command

import (
	"context"
	"fmt"

	"github.com/integration-hub/student-hub/internal/domain/gate"
	"github.com/integration-hub/student-hub/internal/domain/integration"
	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE PROGRESS COMMAND
// Flips one checklist item or document and writes the recomputed
// integration progress through to the profile.
// ══════════════════════════════════════════════════════════════════════════════

// ToggleProgressCommand contains one toggle.
type ToggleProgressCommand struct {
	UserID string

	// Set exactly one of Item or Document.
	Phase    integration.PhaseID
	ItemID   string
	Document string

	Value bool
}

func (c ToggleProgressCommand) toggle() (integration.Toggle, error) {
	if c.Document != "" {
		return integration.NewDocumentToggle(c.Document, c.Value)
	}
	return integration.NewItemToggle(c.Phase, c.ItemID, c.Value)
}

// ToggleProgressResult contains the new progress.
type ToggleProgressResult struct {
	Progress integration.ProgressChange
	Gates    gate.Gates
}

// ToggleProgressHandler handles the ToggleProgressCommand.
type ToggleProgressHandler struct {
	profiles ProfileLoader
	ledger   integration.Repository
	events   shared.EventPublisher
}

// NewToggleProgressHandler creates a new ToggleProgressHandler.
func NewToggleProgressHandler(
	profiles ProfileLoader,
	ledger integration.Repository,
	events shared.EventPublisher,
) *ToggleProgressHandler {
	if events == nil {
		events = shared.NopPublisher{}
	}
	return &ToggleProgressHandler{profiles: profiles, ledger: ledger, events: events}
}

// Handle executes the toggle.
func (h *ToggleProgressHandler) Handle(ctx context.Context, cmd ToggleProgressCommand) (*ToggleProgressResult, error) {
	t, err := cmd.toggle()
	if err != nil {
		return nil, err
	}

	p, err := h.profiles.Load(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("toggle_progress: load profile: %w", err)
	}

	if t.Kind == integration.ToggleChecklistItem && t.Key.Phase == integration.PhasePreArrival {
		switch gate.Evaluate(gate.SnapshotOf(p)).PreArrival {
		case gate.PhasePreview:
			return nil, shared.ErrPhaseLocked
		case gate.PhaseAbsent:
			return nil, shared.ErrPhaseAbsent
		}
	}

	change, err := h.ledger.Apply(ctx, cmd.UserID, t, ProgressFor(p))
	if err != nil {
		return nil, fmt.Errorf("toggle_progress: apply: %w", err)
	}

	if change.Changed() {
		_ = h.profiles.Invalidate(ctx, cmd.UserID)
		_ = h.events.Publish(shared.NewProgressUpdatedEvent(cmd.UserID, change.Previous, change.Current))
	}

	p.SetProgress(change.Current)
	return &ToggleProgressResult{Progress: change, Gates: gate.Evaluate(gate.SnapshotOf(p))}, nil
}
