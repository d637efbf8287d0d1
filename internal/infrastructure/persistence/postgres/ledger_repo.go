package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/integration-hub/student-hub/internal/domain/integration"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY IMPLEMENTATION
// Sparse overlays: only toggled entries are stored.
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements integration.Repository for PostgreSQL.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// Load returns the user's overlays.
func (r *LedgerRepository) Load(ctx context.Context, userID string) (*integration.Ledger, error) {
	return loadLedger(ctx, r.conn, userID)
}

// Apply upserts one toggle and writes recomputed progress to the profile in the same transaction.
func (r *LedgerRepository) Apply(
	ctx context.Context,
	userID string,
	t integration.Toggle,
	progress integration.ProgressFunc,
) (integration.ProgressChange, error) {
	var change integration.ProgressChange

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		prev, err := lockProfileProgress(ctx, tx, userID)
		if err != nil {
			return err
		}

		if err := upsertToggle(ctx, tx, userID, t); err != nil {
			return err
		}

		ledger, err := loadLedger(ctx, tx, userID)
		if err != nil {
			return err
		}

		cur := progress(ledger)
		if cur != prev {
			_, err = tx.Exec(ctx,
				`UPDATE profiles SET integration_progress = $1, updated_at = NOW() WHERE user_id = $2`,
				cur, userID,
			)
			if err != nil {
				return fmt.Errorf("failed to write progress: %w", err)
			}
		}

		change = integration.ProgressChange{Previous: prev, Current: cur}
		return nil
	})
	return change, err
}

func upsertToggle(ctx context.Context, q Querier, userID string, t integration.Toggle) error {
	var (
		query string
		args  []interface{}
	)
	switch t.Kind {
	case integration.ToggleChecklistItem:
		query = `
			INSERT INTO checklist_progress (user_id, phase_id, item_id, done, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (user_id, phase_id, item_id)
			DO UPDATE SET done = EXCLUDED.done, updated_at = NOW()
		`
		args = []interface{}{userID, string(t.Key.Phase), t.Key.ID, t.Value}
	case integration.ToggleDocument:
		query = `
			INSERT INTO document_progress (user_id, document_id, owned, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (user_id, document_id)
			DO UPDATE SET owned = EXCLUDED.owned, updated_at = NOW()
		`
		args = []interface{}{userID, t.Key.ID, t.Value}
	default:
		return fmt.Errorf("unknown toggle kind %q", t.Kind)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", t.Kind, err)
	}
	return nil
}

func loadLedger(ctx context.Context, q Querier, userID string) (*integration.Ledger, error) {
	ledger := integration.NewLedger(userID)

	rows, err := q.Query(ctx,
		`SELECT phase_id, item_id, done FROM checklist_progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query checklist progress: %w", err)
	}
	for rows.Next() {
		var phase, item string
		var done bool
		if err := rows.Scan(&phase, &item, &done); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan checklist progress: %w", err)
		}
		ledger.Checklist.Set(integration.ItemKey(integration.PhaseID(phase), item), done)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx,
		`SELECT document_id, owned FROM document_progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query document progress: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var doc string
		var owned bool
		if err := rows.Scan(&doc, &owned); err != nil {
			return nil, fmt.Errorf("failed to scan document progress: %w", err)
		}
		ledger.Documents.Set(integration.DocumentKey(doc), owned)
	}
	return ledger, rows.Err()
}
