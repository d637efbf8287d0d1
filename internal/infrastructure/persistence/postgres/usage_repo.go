package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USAGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UsageRepository implements quota.Repository for PostgreSQL.
type UsageRepository struct {
	conn *Connection
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(conn *Connection) *UsageRepository {
	return &UsageRepository{conn: conn}
}

// consumeQuery increments the counter only while it is below the limit.
// The first use inserts used = 1; a limit of 0 never inserts.
const consumeQuery = `
	INSERT INTO usage_counters (user_id, feature, scope, used, updated_at)
	SELECT $1, $2, $3, 1, NOW()
	WHERE $4::int > 0
	ON CONFLICT (user_id, feature, scope)
	DO UPDATE SET used = usage_counters.used + 1, updated_at = NOW()
	WHERE usage_counters.used < $4::int
	RETURNING used
`

// Consume atomically takes one unit of quota.
func (r *UsageRepository) Consume(ctx context.Context, userID string, f quota.Feature, scope string, limit int) (int, error) {
	var used int
	err := r.conn.QueryRow(ctx, consumeQuery, userID, string(f), scope, limit).Scan(&used)
	if err != nil {
		if IsNoRows(err) {
			return 0, shared.ErrLimitReached
		}
		if IsForeignKeyViolation(err) {
			return 0, shared.ErrProfileNotFound
		}
		return 0, fmt.Errorf("failed to consume quota: %w", err)
	}
	return used, nil
}

// Release gives back one unit taken by Consume.
func (r *UsageRepository) Release(ctx context.Context, userID string, f quota.Feature, scope string) error {
	_, err := r.conn.Exec(ctx,
		`UPDATE usage_counters SET used = used - 1, updated_at = NOW()
		 WHERE user_id = $1 AND feature = $2 AND scope = $3 AND used > 0`,
		userID, string(f), scope,
	)
	if err != nil {
		return fmt.Errorf("failed to release quota: %w", err)
	}
	return nil
}

// Used returns the current counter value.
func (r *UsageRepository) Used(ctx context.Context, userID string, f quota.Feature, scope string) (int, error) {
	var used int
	err := r.conn.QueryRow(ctx,
		`SELECT used FROM usage_counters WHERE user_id = $1 AND feature = $2 AND scope = $3`,
		userID, string(f), scope,
	).Scan(&used)
	if err != nil {
		if IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read quota: %w", err)
	}
	return used, nil
}

// PurgeBefore removes counters of a feature not touched since before.
func (r *UsageRepository) PurgeBefore(ctx context.Context, f quota.Feature, before time.Time) (int64, error) {
	tag, err := r.conn.Exec(ctx,
		`DELETE FROM usage_counters WHERE feature = $1 AND updated_at < $2`,
		string(f), before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge usage counters: %w", err)
	}
	return tag.RowsAffected(), nil
}
