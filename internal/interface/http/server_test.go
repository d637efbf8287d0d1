package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/application/apptest"
	"github.com/integration-hub/student-hub/internal/application/command"
	"github.com/integration-hub/student-hub/internal/application/query"
	"github.com/integration-hub/student-hub/internal/domain/city"
	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/logger"
)

const (
	testSecret   = "test-signing-secret"
	testAudience = "authenticated"
	testUserID   = "0b6f1f7e-2d1c-4a5b-9e8f-6a7b8c9d0e1f"

	convA = "3f6e1b2c-4d5a-4b6c-8d7e-9f0a1b2c3d4e"
	convB = "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
)

type harness struct {
	store    *apptest.Store
	gateway  *apptest.Gateway
	mailer   *apptest.Mailer
	identity *apptest.IdentityDeleter
	city     *apptest.CitySource
	checkout *apptest.Checkout
	events   *apptest.Publisher
	handler  http.Handler
}

type harnessOption func(*Config, *Dependencies)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		store:    apptest.NewStore(),
		gateway:  &apptest.Gateway{Chunks: []string{`{"choices":[{"delta":{"content":"Bonjour"}}]}`}},
		identity: &apptest.IdentityDeleter{},
		city:     &apptest.CitySource{},
		checkout: &apptest.Checkout{URL: "https://checkout.stripe.test/c/pay_123"},
		events:   &apptest.Publisher{},
	}
	profiles := profile.NewReader(h.store, nil, 0)
	log := logger.Nop()

	cfg := DefaultConfig()
	cfg.RateLimitRPS = 0
	deps := Dependencies{
		GetMe:              query.NewGetMeHandler(profiles),
		GetChecklist:       query.NewGetChecklistHandler(profiles, h.store),
		CityInsights:       query.NewCityInsightsHandler(h.city, apptest.NewCityCache(), log),
		CompleteOnboarding: command.NewCompleteOnboardingHandler(profiles, h.store, h.store, h.events),
		ToggleProgress:     command.NewToggleProgressHandler(profiles, h.store, h.events),
		RequestVerification: command.NewRequestVerificationHandler(h.store, profiles, nil, h.events, log,
			command.RequestVerificationConfig{
				PublicBaseURL:   "https://hub.example.fr",
				DevLinkFallback: func() bool { return true },
			}),
		ConfirmVerification: command.NewConfirmVerificationHandler(h.store, profiles, h.events),
		CoachConversation:   command.NewCoachConversationHandler(profiles, h.store, h.gateway, quota.DefaultLimits(), log),
		SendSolutionMessage: command.NewSendSolutionMessageHandler(profiles, h.store, h.store, quota.DefaultLimits()),
		DeleteAccount:       command.NewDeleteAccountHandler(h.store, h.identity, profiles, h.events, log),
		StartCheckout:       command.NewStartCheckoutHandler(h.checkout, profiles),
		Tokens:              NewJWTVerifier(testSecret, testAudience),
		Logger:              log,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	h.handler = NewServer(cfg, deps).Handler()
	return h
}

func (h *harness) seed(t *testing.T, mutate func(p *profile.Profile)) {
	t.Helper()
	p, err := profile.New(testUserID)
	require.NoError(t, err)
	if mutate != nil {
		mutate(p)
	}
	h.store.Put(p)
}

func signToken(t *testing.T, subject, audience string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		Email: "lea@example.fr",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return h.doWithToken(t, method, path, body, signToken(t, testUserID, testAudience, time.Hour))
}

func (h *harness) doWithToken(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Origin", "https://app.example.fr")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH & MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

func TestAuth_RejectsBadTokens(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"wrong audience", signToken(t, testUserID, "anon", time.Hour)},
		{"expired", signToken(t, testUserID, testAudience, -time.Hour)},
		{"subject not a uuid", signToken(t, "user-42", testAudience, time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.doWithToken(t, http.MethodGet, "/api/v1/me", "", tt.token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, "unauthorized", env.Error.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRequestID_EchoedOrGenerated(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-abc", rec.Header().Get("X-Request-ID"))

	rec = h.do(t, http.MethodGet, "/live", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestRateLimit_PerIP(t *testing.T) {
	h := newHarness(t, func(c *Config, _ *Dependencies) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 2
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/live", "").Code)
	}
	rec := h.do(t, http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit_exceeded", decodeEnvelope(t, rec).Error.Code)
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	s := NewServer(DefaultConfig(), Dependencies{Logger: logger.Nop()})
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "goroutine")
	assert.Equal(t, "internal_server_error", decodeEnvelope(t, rec).Error.Code)
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/health", "/ready", "/live"} {
		assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, path, "").Code, path)
	}

	rec := h.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "student_hub_http_requests_total")
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE & CHECKLIST
// ══════════════════════════════════════════════════════════════════════════════

func TestGetMe_ReturnsProfileAndGates(t *testing.T) {
	h := newHarness(t)
	h.seed(t, func(p *profile.Profile) { p.IntegrationProgress = 42 })

	rec := h.do(t, http.MethodGet, "/api/v1/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var me query.MeDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &me))
	assert.Equal(t, testUserID, me.Profile.UserID)
	assert.Equal(t, 42, me.Progress)
	assert.False(t, me.Gates.Coach.Locked)
	assert.True(t, me.Gates.Messaging.Locked)
}

func TestToggle_WritesProgressThrough(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)

	rec := h.do(t, http.MethodPut, "/api/v1/me/checklist/installation/bank_account", `{"done":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res toggleResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.Equal(t, 4, res.Progress)
	assert.Equal(t, 0, res.PreviousProgress)

	rec = h.do(t, http.MethodPut, "/api/v1/me/documents/passport", `{"owned":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.Equal(t, 8, res.Progress)
}

func TestToggle_Errors(t *testing.T) {
	tests := []struct {
		name     string
		inFrance *bool
		path     string
		body     string
		status   int
		code     string
	}{
		{"preview phase", boolPtr(false), "/api/v1/me/checklist/pre_arrival/visa", `{"done":true}`, http.StatusForbidden, "locked"},
		{"absent phase", boolPtr(true), "/api/v1/me/checklist/pre_arrival/visa", `{"done":true}`, http.StatusNotFound, "phase_unavailable"},
		{"unknown item", nil, "/api/v1/me/checklist/legal/nope", `{"done":true}`, http.StatusBadRequest, "unknown_item"},
		{"missing value", nil, "/api/v1/me/documents/passport", `{}`, http.StatusBadRequest, "invalid_input"},
		{"malformed body", nil, "/api/v1/me/documents/passport", `{`, http.StatusBadRequest, "invalid_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.seed(t, func(p *profile.Profile) { p.InFrance = tt.inFrance })

			rec := h.do(t, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeEnvelope(t, rec).Error.Code)
		})
	}
}

func TestOnboarding_TooManyObjectives(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)

	rec := h.do(t, http.MethodPut, "/api/v1/me/onboarding", `{"nationality":"🇲🇦 Marocaine","objectives":["a","b","c","d"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "too_many_objectives", decodeEnvelope(t, rec).Error.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// VERIFICATION
// ══════════════════════════════════════════════════════════════════════════════

func TestVerification_DevLinkThenConfirmPage(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)

	rec := h.do(t, http.MethodPost, "/api/v1/verification/request", `{"email":"lea.martin@etu.univ-lyon1.fr"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res verificationResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.Equal(t, "sent", res.State)
	require.NotEmpty(t, res.DevLink)

	link, err := url.Parse(res.DevLink)
	require.NoError(t, err)

	page := h.do(t, http.MethodGet, link.RequestURI(), "")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, page.Body.String(), "Adresse vérifiée")

	p, err := h.store.Get(context.Background(), testUserID)
	require.NoError(t, err)
	assert.True(t, p.IsVerified)
	assert.Equal(t, profile.StatusTemoin, p.Status)

	again := h.do(t, http.MethodGet, link.RequestURI(), "")
	assert.Equal(t, http.StatusOK, again.Code)
	assert.Contains(t, again.Body.String(), "Déjà vérifiée")
}

func TestVerification_PageErrors(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/verify", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lien invalide")

	rec = h.do(t, http.MethodGet, "/verify?token="+strings.Repeat("ab", 32), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerification_RequestErrors(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)

	rec := h.do(t, http.MethodPost, "/api/v1/verification/request", `{"email":"lea@gmail.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_email_domain", decodeEnvelope(t, rec).Error.Code)
	assert.Empty(t, h.store.Records(testUserID))

	for i := 0; i < 3; i++ {
		rec = h.do(t, http.MethodPost, "/api/v1/verification/request", `{"email":"lea.martin@etu.univ-lyon1.fr"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec = h.do(t, http.MethodPost, "/api/v1/verification/request", `{"email":"lea.martin@etu.univ-lyon1.fr"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too_many_attempts", decodeEnvelope(t, rec).Error.Code)
	assert.Len(t, h.store.Records(testUserID), 3)
}

// ══════════════════════════════════════════════════════════════════════════════
// COACH
// ══════════════════════════════════════════════════════════════════════════════

const coachBody = `{"messages":[{"role":"user","content":"Comment ouvrir un compte bancaire ?"}]}`

func TestCoach_StreamsFramesAndDone(t *testing.T) {
	h := newHarness(t)
	h.seed(t, func(p *profile.Profile) { p.IntegrationProgress = 25 })

	rec := h.do(t, http.MethodPost, "/api/v1/coach/messages", coachBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get(headerQuotaRemaining))
	assert.Equal(t,
		"data: {\"choices\":[{\"delta\":{\"content\":\"Bonjour\"}}]}\n\n"+
			"data: [DONE]\n\n",
		rec.Body.String())
}

func TestCoach_TruncatedStream(t *testing.T) {
	h := newHarness(t)
	h.seed(t, func(p *profile.Profile) { p.IntegrationProgress = 25 })
	h.gateway.Truncate = true

	rec := h.do(t, http.MethodPost, "/api/v1/coach/messages", coachBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasSuffix(rec.Body.String(),
		"data: {\"error\":\"stream_interrupted\"}\n\ndata: [DONE]\n\n"), rec.Body.String())
}

func TestCoach_GateAndQuota(t *testing.T) {
	h := newHarness(t)
	h.seed(t, func(p *profile.Profile) { p.IntegrationProgress = 10 })

	rec := h.do(t, http.MethodPost, "/api/v1/coach/messages", coachBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"locked"}`, rec.Body.String())

	h.seed(t, func(p *profile.Profile) { p.IntegrationProgress = 30 })
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/v1/coach/messages", coachBody).Code)
	}
	rec = h.do(t, http.MethodPost, "/api/v1/coach/messages", coachBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"limit_reached"}`, rec.Body.String())
	assert.Equal(t, 2, h.gateway.Calls)
}

func TestCoach_CheckOnly(t *testing.T) {
	h := newHarness(t)
	h.seed(t, func(p *profile.Profile) { p.IntegrationProgress = 10 })

	rec := h.do(t, http.MethodPost, "/api/v1/coach/messages", `{"check_only":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"locked":true,"reason":"progress_too_low","remaining":2,"limit":2,"unlimited":false,"lock_mode":"none"}`,
		rec.Body.String())
	assert.Zero(t, h.gateway.Calls)
}

func TestCoach_PremiumUnlimited(t *testing.T) {
	h := newHarness(t)
	h.seed(t, func(p *profile.Profile) {
		p.IntegrationProgress = 30
		p.IsPremium = true
	})

	rec := h.do(t, http.MethodPost, "/api/v1/coach/messages", coachBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "-1", rec.Header().Get(headerQuotaRemaining))
}

func TestCoach_UpstreamFailureIsGeneric(t *testing.T) {
	h := newHarness(t)
	h.seed(t, func(p *profile.Profile) { p.IntegrationProgress = 30 })
	h.gateway.Err = shared.ErrLLMUnavailable.Wrap(assert.AnError)

	rec := h.do(t, http.MethodPost, "/api/v1/coach/messages", coachBody)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "upstream_error", env.Error.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestCoach_FeatureFlagOff(t *testing.T) {
	h := newHarness(t, func(_ *Config, d *Dependencies) { d.Features = toggles{} })
	h.seed(t, func(p *profile.Profile) { p.IntegrationProgress = 30 })

	rec := h.do(t, http.MethodPost, "/api/v1/coach/messages", coachBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "feature_disabled", decodeEnvelope(t, rec).Error.Code)
}

// toggles disables every rollout.
type toggles struct{}

func (toggles) CoachEnabled(string) bool        { return false }
func (toggles) CityInsightsEnabled(string) bool { return false }
func (toggles) CheckoutEnabled(string) bool     { return false }

// ══════════════════════════════════════════════════════════════════════════════
// SOLUTION CHAT, CITY, ACCOUNT, BILLING
// ══════════════════════════════════════════════════════════════════════════════

func TestSolutionMessage_GateThenQuota(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)

	rec := h.do(t, http.MethodPost, "/api/v1/solution-chats/"+convA+"/messages", `{"content":"Salut"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"locked"}`, rec.Body.String())

	h.seed(t, func(p *profile.Profile) {
		p.Status = profile.StatusTemoin
		p.IsVerified = true
	})
	for want := 2; want >= 0; want-- {
		rec = h.do(t, http.MethodPost, "/api/v1/solution-chats/"+convA+"/messages", `{"content":"Salut"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, want, mustAtoi(t, rec.Header().Get(headerQuotaRemaining)))
	}
	rec = h.do(t, http.MethodPost, "/api/v1/solution-chats/"+convA+"/messages", `{"content":"Salut"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"limit_reached"}`, rec.Body.String())
	assert.Equal(t, 3, h.store.Messages())

	// A new conversation has its own allowance.
	rec = h.do(t, http.MethodPost, "/api/v1/solution-chats/"+convB+"/messages", `{"content":"Salut"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSolutionMessage_InvalidConversationID(t *testing.T) {
	h := newHarness(t)
	h.seed(t, func(p *profile.Profile) {
		p.Status = profile.StatusTemoin
		p.IsVerified = true
	})

	rec := h.do(t, http.MethodPost, "/api/v1/solution-chats/conv-1/messages", `{"content":"Salut"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_input", env.Error.Code)
	assert.Zero(t, h.store.Messages())
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}

func TestCityInsights(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)
	h.city.Report = city.Report{Insights: &city.Insights{City: "Lyon", Crous: "CROUS Lyon"}}

	rec := h.do(t, http.MethodPost, "/api/v1/city-insights", `{"city":"Lyon"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var first map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &first))
	assert.Equal(t, "CROUS Lyon", first["crous"])
	assert.Nil(t, first["cached"])

	rec = h.do(t, http.MethodPost, "/api/v1/city-insights", `{"city":"  LYON "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var second map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &second))
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, 1, h.city.Calls)

	rec = h.do(t, http.MethodPost, "/api/v1/city-insights", `{"city":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCityInsights_ParseError(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)
	h.city.Report = city.Report{Raw: "Désolé, je ne sais pas."}

	rec := h.do(t, http.MethodPost, "/api/v1/city-insights", `{"city":"Brest"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"raw":"Désolé, je ne sais pas.","parse_error":true}`, string(decodeEnvelope(t, rec).Data))
}

func TestDeleteAccount(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPut, "/api/v1/me/documents/passport", `{"owned":true}`).Code)

	rec := h.do(t, http.MethodPost, "/api/v1/account/delete", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{testUserID}, h.identity.Deleted)
	assert.Zero(t, h.store.Rows(testUserID))
	assert.Contains(t, h.events.Types(), shared.EventAccountDeleted)
}

func TestDeleteAccount_IdentityFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)
	h.identity.Err = shared.ErrAuthAdminUnavailable.Wrap(assert.AnError)

	rec := h.do(t, http.MethodPost, "/api/v1/account/delete", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "auth_delete_failed", decodeEnvelope(t, rec).Error.Code)
	assert.NotContains(t, h.events.Types(), shared.EventAccountDeleted)
}

func TestCheckout(t *testing.T) {
	h := newHarness(t)
	h.seed(t, nil)

	rec := h.do(t, http.MethodPost, "/api/v1/billing/checkout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://checkout.stripe.test/c/pay_123"}`, string(decodeEnvelope(t, rec).Data))

	h.seed(t, func(p *profile.Profile) { p.IsPremium = true })
	rec = h.do(t, http.MethodPost, "/api/v1/billing/checkout", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_premium", decodeEnvelope(t, rec).Error.Code)
}

func boolPtr(b bool) *bool { return &b }
