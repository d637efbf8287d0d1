package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/integration-hub/student-hub/internal/application/command"
	"github.com/integration-hub/student-hub/internal/application/query"
	"github.com/integration-hub/student-hub/internal/domain/city"
	"github.com/integration-hub/student-hub/internal/domain/integration"
	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/infrastructure/metrics"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness check endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness check endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// caller returns the authenticated principal or writes 401.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
	}
	return p, ok
}

// notConfigured answers for handlers that were not wired.
func notConfigured(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "This endpoint is not configured")
}

// featureDisabled answers for endpoints turned off by a feature flag.
func featureDisabled(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotFound, "feature_disabled", "This feature is not available")
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE & GATES HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetMe handles GET /api/v1/me
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}
	if s.deps.GetMe == nil {
		notConfigured(w, r)
		return
	}

	me, err := s.deps.GetMe.Handle(r.Context(), query.GetMeQuery{UserID: p.UserID})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, me)
}

// handleGetGates handles GET /api/v1/me/gates
func (s *Server) handleGetGates(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}
	if s.deps.GetMe == nil {
		notConfigured(w, r)
		return
	}

	gates, err := s.deps.GetMe.Gates(r.Context(), query.GetMeQuery{UserID: p.UserID})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, gates)
}

// onboardingRequest is the body of PUT /api/v1/me/onboarding.
type onboardingRequest struct {
	Nationality string   `json:"nationality"`
	CurrentCity string   `json:"current_city"`
	TargetCity  string   `json:"target_city"`
	University  string   `json:"university"`
	Objectives  []string `json:"objectives"`
	InFrance    *bool    `json:"is_in_france"`
}

// handleCompleteOnboarding handles PUT /api/v1/me/onboarding
func (s *Server) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}
	if s.deps.CompleteOnboarding == nil {
		notConfigured(w, r)
		return
	}

	var req onboardingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := s.deps.CompleteOnboarding.Handle(r.Context(), command.CompleteOnboardingCommand{
		UserID: p.UserID,
		Answers: profile.OnboardingAnswers{
			Nationality: profile.Nationality(req.Nationality),
			CurrentCity: req.CurrentCity,
			TargetCity:  req.TargetCity,
			University:  req.University,
			Objectives:  req.Objectives,
			InFrance:    req.InFrance,
		},
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, query.MeDTO{
		Profile:  result.Profile.PublicView(),
		Gates:    query.NewGatesDTO(result.Gates),
		Progress: result.Profile.IntegrationProgress,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CHECKLIST HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetChecklist handles GET /api/v1/me/checklist
func (s *Server) handleGetChecklist(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}
	if s.deps.GetChecklist == nil {
		notConfigured(w, r)
		return
	}

	list, err := s.deps.GetChecklist.Handle(r.Context(), query.GetChecklistQuery{UserID: p.UserID})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

type toggleItemRequest struct {
	Done *bool `json:"done"`
}

type toggleDocumentRequest struct {
	Owned *bool `json:"owned"`
}

// toggleResponse is returned by both toggle endpoints.
type toggleResponse struct {
	Progress         int            `json:"progress"`
	PreviousProgress int            `json:"previous_progress"`
	Gates            query.GatesDTO `json:"gates"`
}

var errMissingValue = shared.NewDomainError("http", "Toggle", shared.ErrEmptyValue, "invalid_input", "value is required")

// handleToggleItem handles PUT /api/v1/me/checklist/{phase}/{item}
func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}

	var req toggleItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if req.Done == nil {
		writeDomainError(w, r, errMissingValue)
		return
	}

	s.toggle(w, r, command.ToggleProgressCommand{
		UserID: p.UserID,
		Phase:  integration.PhaseID(chi.URLParam(r, "phase")),
		ItemID: chi.URLParam(r, "item"),
		Value:  *req.Done,
	})
}

// handleToggleDocument handles PUT /api/v1/me/documents/{doc}
func (s *Server) handleToggleDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}

	var req toggleDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if req.Owned == nil {
		writeDomainError(w, r, errMissingValue)
		return
	}

	s.toggle(w, r, command.ToggleProgressCommand{
		UserID:   p.UserID,
		Document: chi.URLParam(r, "doc"),
		Value:    *req.Owned,
	})
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, cmd command.ToggleProgressCommand) {
	if s.deps.ToggleProgress == nil {
		notConfigured(w, r)
		return
	}

	result, err := s.deps.ToggleProgress.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toggleResponse{
		Progress:         result.Progress.Current,
		PreviousProgress: result.Progress.Previous,
		Gates:            query.NewGatesDTO(result.Gates),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SOLUTION CHAT HANDLER
// ══════════════════════════════════════════════════════════════════════════════

type solutionMessageRequest struct {
	Content string `json:"content"`
}

type solutionMessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Remaining      int       `json:"remaining"`
	Limit          int       `json:"limit"`
	Unlimited      bool      `json:"unlimited"`
}

// handleSolutionMessage handles POST /api/v1/solution-chats/{id}/messages
func (s *Server) handleSolutionMessage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}
	if s.deps.SendSolutionMessage == nil {
		notConfigured(w, r)
		return
	}

	var req solutionMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := s.deps.SendSolutionMessage.Handle(r.Context(), command.SendSolutionMessageCommand{
		UserID:         p.UserID,
		ConversationID: chi.URLParam(r, "id"),
		Content:        req.Content,
	})
	if err != nil {
		if writeGateError(w, err, quota.FeatureSolutionChatMessage) {
			return
		}
		writeDomainError(w, r, err)
		return
	}

	setQuotaHeader(w, result.Quota)
	writeJSON(w, r, http.StatusCreated, solutionMessageResponse{
		ID:             result.Message.ID,
		ConversationID: result.Message.ConversationID,
		Content:        result.Message.Content,
		CreatedAt:      result.Message.CreatedAt,
		Remaining:      result.Quota.WireRemaining(),
		Limit:          result.Quota.Limit,
		Unlimited:      result.Quota.Unlimited(),
	})
}

// writeGateError writes the flat 403 body for gate and quota rejections.
// It reports false when err is neither.
func writeGateError(w http.ResponseWriter, err error, feature quota.Feature) bool {
	switch {
	case errors.Is(err, shared.ErrLimitReached):
		metrics.QuotaRejected(string(feature))
		writeFlatError(w, http.StatusForbidden, "limit_reached")
		return true
	case errors.Is(err, shared.ErrFeatureLocked):
		writeFlatError(w, http.StatusForbidden, "locked")
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// CITY INSIGHTS HANDLER
// ══════════════════════════════════════════════════════════════════════════════

type cityInsightsRequest struct {
	City string `json:"city"`
}

type cityInsightsResponse struct {
	*city.Insights
	Cached     bool   `json:"cached,omitempty"`
	Raw        string `json:"raw,omitempty"`
	ParseError bool   `json:"parse_error,omitempty"`
}

// handleCityInsights handles POST /api/v1/city-insights
func (s *Server) handleCityInsights(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}
	if s.deps.CityInsights == nil {
		notConfigured(w, r)
		return
	}
	if s.deps.Features != nil && !s.deps.Features.CityInsightsEnabled(p.UserID) {
		featureDisabled(w, r)
		return
	}

	var req cityInsightsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	dto, err := s.deps.CityInsights.Handle(r.Context(), query.CityInsightsQuery{City: req.City})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	metrics.CityInsightsLookup(dto.Cached)

	writeJSON(w, r, http.StatusOK, cityInsightsResponse{
		Insights:   dto.Insights,
		Cached:     dto.Cached,
		Raw:        dto.Raw,
		ParseError: dto.ParseError,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT & BILLING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleDeleteAccount handles POST /api/v1/account/delete
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}
	if s.deps.DeleteAccount == nil {
		notConfigured(w, r)
		return
	}

	result, err := s.deps.DeleteAccount.Handle(r.Context(), command.DeleteAccountCommand{UserID: p.UserID})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("account deleted",
		logger.UserID(p.UserID), logger.Int64("rows", result.RowsDeleted))
	writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// handleCheckout handles POST /api/v1/billing/checkout
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}
	if s.deps.StartCheckout == nil {
		notConfigured(w, r)
		return
	}
	if s.deps.Features != nil && !s.deps.Features.CheckoutEnabled(p.UserID) {
		featureDisabled(w, r)
		return
	}

	url, err := s.deps.StartCheckout.Handle(r.Context(), command.StartCheckoutCommand{UserID: p.UserID, Email: p.Email})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"url": url})
}
