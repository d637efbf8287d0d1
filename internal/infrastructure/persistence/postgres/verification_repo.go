package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/domain/verification"
)

// ══════════════════════════════════════════════════════════════════════════════
// VERIFICATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// VerificationRepository implements verification.Repository for PostgreSQL.
type VerificationRepository struct {
	conn *Connection
}

// NewVerificationRepository creates a new VerificationRepository.
func NewVerificationRepository(conn *Connection) *VerificationRepository {
	return &VerificationRepository{conn: conn}
}

// InsertWithinLimit stores a new attempt unless the user already has max
// attempts since the cutoff. The profile row is locked for the duration of the
// transaction, so concurrent requests for one user are counted one at a time.
func (r *VerificationRepository) InsertWithinLimit(ctx context.Context, rec *verification.Record, since time.Time, max int) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx,
			`SELECT user_id FROM profiles WHERE user_id = $1 FOR UPDATE`, rec.UserID,
		).Scan(&locked)
		if err != nil {
			if IsNoRows(err) {
				return shared.ErrProfileNotFound
			}
			return fmt.Errorf("failed to lock profile: %w", err)
		}

		var n int
		err = tx.QueryRow(ctx,
			`SELECT count(*) FROM verification_records WHERE user_id = $1 AND created_at >= $2`,
			rec.UserID, since,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to count verification attempts: %w", err)
		}
		if n >= max {
			return shared.ErrTooManyAttempts
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO verification_records (id, user_id, email, token_hash, outcome, created_at, expires_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		`,
			rec.ID,
			rec.UserID,
			rec.Email,
			rec.TokenHash,
			string(rec.Outcome),
			rec.CreatedAt,
			nullTime(rec.ExpiresAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert verification record: %w", err)
		}
		return nil
	})
}

// Update stores token, expiry and outcome.
func (r *VerificationRepository) Update(ctx context.Context, rec *verification.Record) error {
	query := `
		UPDATE verification_records SET
			token_hash = NULLIF($1, ''),
			outcome = $2,
			expires_at = $3
		WHERE id = $4
	`
	tag, err := r.conn.Exec(ctx, query, rec.TokenHash, string(rec.Outcome), nullTime(rec.ExpiresAt), rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update verification record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// EmailVerifiedByOther reports whether another profile already owns email.
func (r *VerificationRepository) EmailVerifiedByOther(ctx context.Context, email, userID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM profiles
			WHERE lower(university_email) = lower($1) AND is_verified AND user_id <> $2
		)
	`, email, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email ownership: %w", err)
	}
	return exists, nil
}

// FindByTokenHash looks an attempt up by its token hash.
func (r *VerificationRepository) FindByTokenHash(ctx context.Context, hash string) (*verification.Record, error) {
	query := `
		SELECT id, user_id, email, COALESCE(token_hash, ''), outcome, created_at, expires_at, verified_at
		FROM verification_records
		WHERE token_hash = $1
	`
	var (
		rec       verification.Record
		outcome   string
		expiresAt *time.Time
	)
	err := r.conn.QueryRow(ctx, query, hash).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Email,
		&rec.TokenHash,
		&outcome,
		&rec.CreatedAt,
		&expiresAt,
		&rec.VerifiedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrVerificationTokenInvalid
		}
		return nil, fmt.Errorf("failed to find verification record: %w", err)
	}
	rec.Outcome = verification.Outcome(outcome)
	if expiresAt != nil {
		rec.ExpiresAt = *expiresAt
	}
	return &rec, nil
}

// Confirm marks the record verified and promotes the profile in one transaction.
func (r *VerificationRepository) Confirm(ctx context.Context, rec *verification.Record, at time.Time) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE verification_records
			SET outcome = 'verified', verified_at = $1
			WHERE id = $2 AND verified_at IS NULL
		`, at, rec.ID)
		if err != nil {
			return fmt.Errorf("failed to mark record verified: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Concurrent confirmation of the same link already won.
			return nil
		}

		tag, err = tx.Exec(ctx, `
			UPDATE profiles SET
				status = $1,
				is_verified = TRUE,
				university_email = $2,
				updated_at = $3
			WHERE user_id = $4
		`, string(profile.StatusTemoin), rec.Email, at, rec.UserID)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.ErrEmailTaken
			}
			return fmt.Errorf("failed to promote profile: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrProfileNotFound
		}
		return nil
	})
}

// PurgeUnverified deletes unverified attempts that expired before the cutoff.
// Attempts without an expiry (rejected before a token was issued) age out by creation time.
func (r *VerificationRepository) PurgeUnverified(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.conn.Exec(ctx, `
		DELETE FROM verification_records
		WHERE verified_at IS NULL
		  AND COALESCE(expires_at, created_at) < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge verification records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
