package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("SUPABASE_JWT_SECRET", "test-secret")
	t.Setenv("PUBLIC_BASE_URL", "https://hub.example.fr/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "https://hub.example.fr", cfg.App.PublicBaseURL)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 2, cfg.Quota.CoachDailyLimit)
	assert.Equal(t, 3, cfg.Quota.SolutionChatLimit)
	assert.Equal(t, 3, cfg.Verification.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Search.CacheTTL)
	assert.Equal(t, "authenticated", cfg.Auth.Audience)
	assert.True(t, cfg.Features.DevLinkFallback())
}

func TestLoad_DatabaseFromComponents(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "s")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db.example.supabase.co")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://postgres:pw@db.example.supabase.co:5432/postgres?sslmode=require", cfg.Database.URL)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		App:          AppConfig{Environment: EnvProduction},
		HTTP:         HTTPConfig{Port: 0},
		Verification: VerificationConfig{MaxAttempts: 0},
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "SUPABASE_JWT_SECRET")
	assert.Contains(t, msg, "DATABASE_URL")
	assert.Contains(t, msg, "EMAIL_API_KEY")
	assert.Contains(t, msg, "HTTP_PORT")
	assert.Contains(t, msg, "VERIFICATION_MAX_ATTEMPTS")
}

func TestLoad_WorkerMaintenanceSettings(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "s")
	t.Setenv("DB_ROLLBACK_STEPS", "2")
	t.Setenv("SCHEDULER_DISABLED_JOBS", " purge_usage_counters, ,purge_verification_records")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Database.RollbackSteps)
	assert.Equal(t, []string{"purge_usage_counters", "purge_verification_records"}, cfg.Scheduler.DisabledJobs)

	t.Setenv("DB_ROLLBACK_STEPS", "-1")
	_, err = Load()
	assert.ErrorContains(t, err, "DB_ROLLBACK_STEPS")
}

func TestFeatureFlags_DevLinkOnlyInDevelopment(t *testing.T) {
	t.Setenv("FEATURE_VERIFICATION_DEV_LINK_FALLBACK", "true")

	prod := LoadFeatureFlags(EnvProduction)
	assert.False(t, prod.DevLinkFallback())
	assert.ErrorIs(t, prod.EnableFeature(FeatureVerificationDevLink), ErrDevelopmentOnly)

	dev := LoadFeatureFlags(EnvDevelopment)
	assert.True(t, dev.DevLinkFallback())
}

func TestFeatureFlags_EnvOverride(t *testing.T) {
	t.Setenv("FEATURE_COACH_ENABLED", "false")
	t.Setenv("FEATURE_BILLING_CHECKOUT", "100")

	ff := LoadFeatureFlags(EnvStaging)
	assert.False(t, ff.CoachEnabled("u1"))
	assert.True(t, ff.CheckoutEnabled("u1"))
	assert.True(t, ff.CityInsightsEnabled("u1"))
}

func TestFeatureFlags_RolloutIsStable(t *testing.T) {
	ff := NewFeatureFlags(EnvProduction)
	require.NoError(t, ff.SetRolloutPercent(FeatureBillingCheckout, 50))

	first := ff.CheckoutEnabled("5f0c2a4e-0000-4000-8000-000000000001")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.CheckoutEnabled("5f0c2a4e-0000-4000-8000-000000000001"))
	}

	assert.ErrorIs(t, ff.SetRolloutPercent("nope", 10), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureBillingCheckout, 101), ErrInvalidRolloutPercent)
}

func TestFeatureFlags_UserOverride(t *testing.T) {
	ff := NewFeatureFlags(EnvProduction)
	ff.SetUserOverride("u1", FeatureBillingCheckout, true)
	assert.True(t, ff.CheckoutEnabled("u1"))
	assert.False(t, ff.CheckoutEnabled("u2"))

	ff.ClearUserOverrides("u1")
	assert.False(t, ff.CheckoutEnabled("u1"))
}

func TestFeatureFlags_GetAllFeaturesReturnsCopies(t *testing.T) {
	ff := LoadFeatureFlags(EnvDevelopment)

	all := ff.GetAllFeatures()
	require.Contains(t, all, FeatureCoachEnabled)
	require.Contains(t, all, FeatureCityInsightsEnabled)

	all[FeatureCoachEnabled].Enabled = false
	all[FeatureCoachEnabled].RolloutPercent = 0
	assert.True(t, ff.GetAllFeatures()[FeatureCoachEnabled].Enabled)
}
