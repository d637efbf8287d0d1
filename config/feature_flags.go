package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles with gradual rollout.
// Users are bucketed by a stable hash of their id, so a user stays in
// the same bucket across restarts and instances.
type FeatureFlags struct {
	mu sync.RWMutex

	env      Environment
	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time

	// DevelopmentOnly features are never on outside development.
	DevelopmentOnly bool
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string
	IsAdmin bool
}

// Predefined feature flag names.
const (
	FeatureCoachEnabled        = "coach.enabled"                  // AI coach endpoint
	FeatureCityInsightsEnabled = "city_insights.enabled"          // City enrichment endpoint
	FeatureVerificationDevLink = "verification.dev_link_fallback" // Return the link when email cannot be sent
	FeatureBillingCheckout     = "billing.checkout"               // Stripe checkout for premium
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags(env Environment) *FeatureFlags {
	ff := NewFeatureFlags(env)
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns the defaults for env without reading the environment.
func NewFeatureFlags(env Environment) *FeatureFlags {
	ff := &FeatureFlags{
		env:           env,
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureCoachEnabled] = &Feature{
		Name:           FeatureCoachEnabled,
		Description:    "AI coach conversations",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureCityInsightsEnabled] = &Feature{
		Name:           FeatureCityInsightsEnabled,
		Description:    "City administrative insights",
		Enabled:        true,
		RolloutPercent: 100,
	}

	dev := ff.env == EnvDevelopment
	ff.features[FeatureVerificationDevLink] = &Feature{
		Name:            FeatureVerificationDevLink,
		Description:     "Return the verification link in the response when email is unavailable",
		Enabled:         dev,
		RolloutPercent:  boolPercent(dev),
		DevelopmentOnly: true,
	}

	ff.features[FeatureBillingCheckout] = &Feature{
		Name:           FeatureBillingCheckout,
		Description:    "Stripe checkout for the Gold plan",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_COACH_ENABLED=false
// Example: FEATURE_BILLING_CHECKOUT=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		// Development-only flags cannot be forced on elsewhere.
		if feature.DevelopmentOnly && ff.env != EnvDevelopment {
			continue
		}

		// Try parsing as boolean
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			feature.RolloutPercent = boolPercent(b)
			continue
		}

		// Try parsing as percentage
		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "city_insights.enabled" -> "FEATURE_CITY_INSIGHTS_ENABLED"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	return ff.isEnabledLocked(featureName, ctx)
}

func (ff *FeatureFlags) isEnabledLocked(featureName string, ctx *FeatureContext) bool {
	// Check user overrides first
	if ctx != nil && ctx.UserID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	bucket := int(h.Sum32() % 100)
	return bucket < percent
}

// SetUserOverride sets a feature override for a specific user.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	if feature.DevelopmentOnly && ff.env != EnvDevelopment && percent > 0 {
		return ErrDevelopmentOnly
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// CoachEnabled checks the coach flag for a user.
func (ff *FeatureFlags) CoachEnabled(userID string) bool {
	return ff.IsEnabled(FeatureCoachEnabled, &FeatureContext{UserID: userID})
}

// CityInsightsEnabled checks the city insights flag for a user.
func (ff *FeatureFlags) CityInsightsEnabled(userID string) bool {
	return ff.IsEnabled(FeatureCityInsightsEnabled, &FeatureContext{UserID: userID})
}

// DevLinkFallback reports whether verification links may be returned in responses.
func (ff *FeatureFlags) DevLinkFallback() bool {
	return ff.IsEnabled(FeatureVerificationDevLink, nil)
}

// CheckoutEnabled checks the billing checkout flag for a user.
func (ff *FeatureFlags) CheckoutEnabled(userID string) bool {
	return ff.IsEnabled(FeatureBillingCheckout, &FeatureContext{UserID: userID})
}

func boolPercent(b bool) int {
	if b {
		return 100
	}
	return 0
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
	ErrDevelopmentOnly       = &FeatureFlagError{Message: "feature is only available in development"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
