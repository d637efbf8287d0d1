package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT ERASURE
// ══════════════════════════════════════════════════════════════════════════════

// erasureSteps lists every user-owned table in deletion order.
// Children go first so the order never depends on cascade rules.
var erasureSteps = []struct {
	table  string
	column string
}{
	{"solution_chat_messages", "sender_id"},
	{"usage_counters", "user_id"},
	{"verification_records", "user_id"},
	{"document_progress", "user_id"},
	{"checklist_progress", "user_id"},
	{"profiles", "user_id"},
}

// ErasureTables returns the deletion order.
func ErasureTables() []string {
	out := make([]string, len(erasureSteps))
	for i, s := range erasureSteps {
		out[i] = s.table
	}
	return out
}

// AccountRepository deletes everything a user owns.
type AccountRepository struct {
	conn *Connection
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(conn *Connection) *AccountRepository {
	return &AccountRepository{conn: conn}
}

// DeleteAll removes all rows owned by userID in one transaction.
// Returns the total number of rows deleted.
func (r *AccountRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, step := range erasureSteps {
			// Table and column names come from the fixed list above.
			query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", step.table, step.column)
			tag, err := tx.Exec(ctx, query, userID)
			if err != nil {
				return fmt.Errorf("failed to delete from %s: %w", step.table, err)
			}
			total += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
