package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const profileColumns = `
	user_id, nationality, current_city, target_city, university, objectives,
	is_in_france, status, is_verified, COALESCE(university_email, ''), is_premium,
	integration_progress, admin_notes, monthly_budget_eur, created_at, updated_at
`

// ProfileRepository implements profile.Repository for PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// Get returns a profile by user id.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	return scanProfile(r.conn.QueryRow(ctx, query, userID))
}

// Create inserts an empty profile.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	query := `
		INSERT INTO profiles (user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.conn.Exec(ctx, query, p.UserID, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetOrCreate returns the profile, inserting an empty one on first access.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID string) (*profile.Profile, error) {
	p, err := profile.New(userID)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO profiles (user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.conn.Exec(ctx, query, userID, string(p.Status), p.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}
	return r.Get(ctx, userID)
}

// UpdateOnboarding saves onboarding answers.
func (r *ProfileRepository) UpdateOnboarding(ctx context.Context, p *profile.Profile) error {
	query := `
		UPDATE profiles SET
			nationality = $1,
			current_city = $2,
			target_city = $3,
			university = $4,
			objectives = $5,
			is_in_france = $6,
			updated_at = $7
		WHERE user_id = $8
	`
	objectives := p.Objectives
	if objectives == nil {
		objectives = []string{}
	}
	tag, err := r.conn.Exec(ctx, query,
		p.Nationality.String(),
		p.CurrentCity,
		p.TargetCity,
		p.University,
		objectives,
		p.InFrance,
		p.UpdatedAt,
		p.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update onboarding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}
	return nil
}

// UpdateProgress writes the cached integration progress.
func (r *ProfileRepository) UpdateProgress(ctx context.Context, userID string, percent int) error {
	query := `UPDATE profiles SET integration_progress = $1, updated_at = NOW() WHERE user_id = $2`
	tag, err := r.conn.Exec(ctx, query, percent, userID)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}
	return nil
}

// SetPremium flips the premium flag.
func (r *ProfileRepository) SetPremium(ctx context.Context, userID string, premium bool) error {
	query := `UPDATE profiles SET is_premium = $1, updated_at = NOW() WHERE user_id = $2`
	tag, err := r.conn.Exec(ctx, query, premium, userID)
	if err != nil {
		return fmt.Errorf("failed to set premium: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	var (
		p           profile.Profile
		nationality string
		status      string
	)
	err := row.Scan(
		&p.UserID,
		&nationality,
		&p.CurrentCity,
		&p.TargetCity,
		&p.University,
		&p.Objectives,
		&p.InFrance,
		&status,
		&p.IsVerified,
		&p.UniversityEmail,
		&p.IsPremium,
		&p.IntegrationProgress,
		&p.AdminNotes,
		&p.MonthlyBudgetEUR,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	p.Nationality = profile.Nationality(nationality)
	p.Status = profile.Status(status)
	return &p, nil
}

// lockProfileProgress reads the cached progress with a row lock inside tx.
func lockProfileProgress(ctx context.Context, tx pgx.Tx, userID string) (int, error) {
	var progress int
	err := tx.QueryRow(ctx,
		`SELECT integration_progress FROM profiles WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&progress)
	if err != nil {
		if IsNoRows(err) {
			return 0, shared.ErrProfileNotFound
		}
		return 0, fmt.Errorf("failed to lock profile: %w", err)
	}
	return progress, nil
}
