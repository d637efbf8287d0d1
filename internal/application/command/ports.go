// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/integration-hub/student-hub/internal/domain/gate"
	"github.com/integration-hub/student-hub/internal/domain/integration"
	"github.com/integration-hub/student-hub/internal/domain/profile"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// Contracts commands need beyond the domain repositories.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileLoader loads the current profile, creating an empty one on first access.
// *profile.Reader implements it.
type ProfileLoader interface {
	Load(ctx context.Context, userID string) (*profile.Profile, error)
	Invalidate(ctx context.Context, userID string) error
}

// AccountEraser deletes every row a user owns in one transaction.
type AccountEraser interface {
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// IdentityDeleter removes the user's identity at the auth provider.
type IdentityDeleter interface {
	DeleteUser(ctx context.Context, userID string) error
}

// CheckoutProvider opens a payment page for the premium plan.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, userID, email string) (string, error)
}

// ProgressFor returns the progress function for p.
// A pre-arrival phase that is absent for the profile does not count.
func ProgressFor(p *profile.Profile) integration.ProgressFunc {
	var skip []integration.PhaseID
	if gate.Evaluate(gate.SnapshotOf(p)).PreArrival == gate.PhaseAbsent {
		skip = append(skip, integration.PhasePreArrival)
	}
	return func(l *integration.Ledger) int {
		phases, docs := integration.Materialize(l, skip...)
		return integration.ComputeProgress(phases, docs)
	}
}
