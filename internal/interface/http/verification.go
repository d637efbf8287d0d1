package http

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/integration-hub/student-hub/internal/application/command"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/infrastructure/metrics"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// VERIFICATION REQUEST
// ══════════════════════════════════════════════════════════════════════════════

type verificationRequest struct {
	Email string `json:"email"`
}

type verificationResponse struct {
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
	DevLink   string    `json:"dev_link,omitempty"`
}

// handleRequestVerification handles POST /api/v1/verification/request
func (s *Server) handleRequestVerification(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}
	if s.deps.RequestVerification == nil {
		notConfigured(w, r)
		return
	}

	var req verificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := s.deps.RequestVerification.Handle(r.Context(), command.RequestVerificationCommand{
		UserID: p.UserID,
		Email:  req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrTooManyAttempts):
			metrics.VerificationAttempt(metrics.VerificationRateLimited)
		case errors.Is(err, shared.ErrEmailTaken):
			metrics.VerificationAttempt(metrics.VerificationDuplicate)
		case errors.Is(err, shared.ErrEmailDeliveryFailed):
			metrics.VerificationAttempt(metrics.VerificationFailed)
		}
		writeDomainError(w, r, err)
		return
	}

	if result.DevLink != "" {
		metrics.VerificationAttempt(metrics.VerificationDevLink)
	} else {
		metrics.VerificationAttempt(metrics.VerificationSent)
	}

	writeJSON(w, r, http.StatusOK, verificationResponse{
		State:     string(result.State),
		ExpiresAt: result.ExpiresAt,
		DevLink:   result.DevLink,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIRMATION PAGE
// ══════════════════════════════════════════════════════════════════════════════

var verifyPage = template.Must(template.New("verify").Parse(`<!doctype html>
<html lang="fr">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>body{font-family:system-ui,sans-serif;max-width:32rem;margin:4rem auto;padding:0 1rem;text-align:center}h1{font-size:1.5rem}</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Body}}</p>
</body>
</html>
`))

type verifyView struct {
	Title string
	Body  string
}

var (
	viewVerified = verifyView{
		Title: "Adresse vérifiée",
		Body:  "Ton adresse universitaire est confirmée. Tu peux revenir dans l'application.",
	}
	viewAlreadyVerified = verifyView{
		Title: "Déjà vérifiée",
		Body:  "Cette adresse a déjà été confirmée. Aucune action supplémentaire n'est nécessaire.",
	}
	viewExpired = verifyView{
		Title: "Lien expiré",
		Body:  "Ce lien de vérification a expiré. Demande un nouveau lien depuis l'application.",
	}
	viewInvalid = verifyView{
		Title: "Lien invalide",
		Body:  "Ce lien de vérification est introuvable ou incomplet.",
	}
	viewFailed = verifyView{
		Title: "Erreur",
		Body:  "La vérification n'a pas pu aboutir. Réessaie dans quelques minutes.",
	}
)

// handleVerifyPage handles GET /verify?token=... and always answers with HTML.
func (s *Server) handleVerifyPage(w http.ResponseWriter, r *http.Request) {
	if s.deps.ConfirmVerification == nil {
		renderVerifyPage(w, http.StatusNotImplemented, viewFailed)
		return
	}

	result, err := s.deps.ConfirmVerification.Handle(r.Context(), command.ConfirmVerificationCommand{
		Token: r.URL.Query().Get("token"),
	})
	switch {
	case err == nil && result.Outcome == command.ConfirmOutcomeAlreadyVerified:
		renderVerifyPage(w, http.StatusOK, viewAlreadyVerified)
	case err == nil:
		metrics.VerificationAttempt(metrics.VerificationConfirmed)
		logger.FromContext(r.Context()).Info("university email verified", logger.UserID(result.UserID))
		renderVerifyPage(w, http.StatusOK, viewVerified)
	case errors.Is(err, shared.ErrExpired):
		metrics.VerificationAttempt(metrics.VerificationExpired)
		renderVerifyPage(w, http.StatusGone, viewExpired)
	case shared.IsNotFound(err):
		metrics.VerificationAttempt(metrics.VerificationInvalid)
		renderVerifyPage(w, http.StatusNotFound, viewInvalid)
	default:
		logger.FromContext(r.Context()).Error("verification confirm failed", logger.Err(err))
		renderVerifyPage(w, http.StatusInternalServerError, viewFailed)
	}
}

func renderVerifyPage(w http.ResponseWriter, status int, view verifyView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = verifyPage.Execute(w, view)
}
