package redis

import (
	"context"
	"errors"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/profile"
)

// ProfileCache implements profile.Cache on top of Cache.
type ProfileCache struct {
	cache *Cache
}

// NewProfileCache creates a new ProfileCache.
func NewProfileCache(cache *Cache) *ProfileCache {
	return &ProfileCache{cache: cache}
}

// cachedProfile is the stored shape of a profile.
type cachedProfile struct {
	UserID              string    `json:"user_id"`
	Nationality         string    `json:"nationality"`
	CurrentCity         string    `json:"current_city"`
	TargetCity          string    `json:"target_city"`
	University          string    `json:"university"`
	Objectives          []string  `json:"objectives"`
	InFrance            *bool     `json:"in_france"`
	Status              string    `json:"status"`
	IsVerified          bool      `json:"is_verified"`
	UniversityEmail     string    `json:"university_email"`
	IsPremium           bool      `json:"is_premium"`
	IntegrationProgress int       `json:"integration_progress"`
	AdminNotes          string    `json:"admin_notes,omitempty"`
	MonthlyBudgetEUR    *int      `json:"monthly_budget_eur,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toCached(p *profile.Profile) cachedProfile {
	return cachedProfile{
		UserID:              p.UserID,
		Nationality:         string(p.Nationality),
		CurrentCity:         p.CurrentCity,
		TargetCity:          p.TargetCity,
		University:          p.University,
		Objectives:          p.Objectives,
		InFrance:            p.InFrance,
		Status:              string(p.Status),
		IsVerified:          p.IsVerified,
		UniversityEmail:     p.UniversityEmail,
		IsPremium:           p.IsPremium,
		IntegrationProgress: p.IntegrationProgress,
		AdminNotes:          p.AdminNotes,
		MonthlyBudgetEUR:    p.MonthlyBudgetEUR,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func (c cachedProfile) toDomain() *profile.Profile {
	return &profile.Profile{
		UserID:              c.UserID,
		Nationality:         profile.Nationality(c.Nationality),
		CurrentCity:         c.CurrentCity,
		TargetCity:          c.TargetCity,
		University:          c.University,
		Objectives:          c.Objectives,
		InFrance:            c.InFrance,
		Status:              profile.Status(c.Status),
		IsVerified:          c.IsVerified,
		UniversityEmail:     c.UniversityEmail,
		IsPremium:           c.IsPremium,
		IntegrationProgress: c.IntegrationProgress,
		AdminNotes:          c.AdminNotes,
		MonthlyBudgetEUR:    c.MonthlyBudgetEUR,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

// Get returns the cached profile, or (nil, nil) on a miss.
func (c *ProfileCache) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	var cp cachedProfile
	if err := c.cache.Get(ctx, ProfileKey(userID), &cp); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return cp.toDomain(), nil
}

// Set stores p. A zero ttl means TTLProfile.
func (c *ProfileCache) Set(ctx context.Context, p *profile.Profile, ttl time.Duration) error {
	if p == nil {
		return ErrCacheNilValue
	}
	if ttl == 0 {
		ttl = TTLProfile
	}
	return c.cache.Set(ctx, ProfileKey(p.UserID), toCached(p), ttl)
}

// Delete evicts a profile.
func (c *ProfileCache) Delete(ctx context.Context, userID string) error {
	return c.cache.Delete(ctx, ProfileKey(userID))
}
