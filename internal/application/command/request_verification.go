package command

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/domain/verification"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST VERIFICATION COMMAND
// Sends a confirmation link to a university address. Every attempt that
// passes the rate limit leaves a row, whatever happens afterwards.
// ══════════════════════════════════════════════════════════════════════════════

// errMailerNotConfigured is the cause recorded when no email provider is set up.
var errMailerNotConfigured = errors.New("email provider not configured")

// RequestVerificationCommand contains the submitted address.
type RequestVerificationCommand struct {
	UserID string
	Email  string
}

// RequestVerificationResult is returned once the link is issued.
type RequestVerificationResult struct {
	State     verification.State
	Outcome   verification.Outcome
	ExpiresAt time.Time

	// DevLink is set only when the dev fallback delivered the link in the response.
	DevLink string
}

// RequestVerificationConfig contains the handler settings.
type RequestVerificationConfig struct {
	// PublicBaseURL prefixes the /verify link.
	PublicBaseURL string

	MaxAttempts int
	Window      time.Duration

	// DevLinkFallback reports whether a failed or missing mailer may
	// return the link in the response instead.
	DevLinkFallback func() bool
}

// RequestVerificationHandler handles the RequestVerificationCommand.
type RequestVerificationHandler struct {
	repo     verification.Repository
	profiles ProfileLoader
	mailer   verification.Mailer
	events   shared.EventPublisher
	logger   *logger.Logger
	cfg      RequestVerificationConfig

	now   func() time.Time
	newID func() string
}

// NewRequestVerificationHandler creates a new RequestVerificationHandler.
// mailer may be nil when email is not configured.
func NewRequestVerificationHandler(
	repo verification.Repository,
	profiles ProfileLoader,
	mailer verification.Mailer,
	events shared.EventPublisher,
	log *logger.Logger,
	cfg RequestVerificationConfig,
) *RequestVerificationHandler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = verification.MaxAttemptsPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = verification.AttemptWindow
	}
	if cfg.DevLinkFallback == nil {
		cfg.DevLinkFallback = func() bool { return false }
	}
	if events == nil {
		events = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RequestVerificationHandler{
		repo:     repo,
		profiles: profiles,
		mailer:   mailer,
		events:   events,
		logger:   log.With(logger.Component("verification")),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Handle executes the command.
func (h *RequestVerificationHandler) Handle(ctx context.Context, cmd RequestVerificationCommand) (*RequestVerificationResult, error) {
	w := verification.NewWorkflow()
	if err := w.Begin(); err != nil {
		return nil, err
	}
	// The domain check runs before any database or network work.
	if err := w.Submit(cmd.Email); err != nil {
		return nil, err
	}

	if _, err := h.profiles.Load(ctx, cmd.UserID); err != nil {
		return nil, fmt.Errorf("request_verification: load profile: %w", err)
	}

	now := h.now()
	rec := verification.NewAttempt(h.newID(), cmd.UserID, w.Email, now)
	if err := h.repo.InsertWithinLimit(ctx, rec, now.Add(-h.cfg.Window), h.cfg.MaxAttempts); err != nil {
		if errors.Is(err, shared.ErrTooManyAttempts) {
			return nil, err
		}
		return nil, fmt.Errorf("request_verification: insert attempt: %w", err)
	}

	taken, err := h.repo.EmailVerifiedByOther(ctx, rec.Email, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("request_verification: check duplicate: %w", err)
	}
	if taken {
		rec.Outcome = verification.OutcomeDuplicate
		if err := h.repo.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("request_verification: mark duplicate: %w", err)
		}
		_ = w.Fail(shared.ErrEmailTaken)
		h.publish(rec)
		return nil, shared.ErrEmailTaken
	}

	token, err := verification.NewToken()
	if err != nil {
		return nil, fmt.Errorf("request_verification: %w", err)
	}
	rec.Issue(token, now)
	link := h.cfg.PublicBaseURL + "/verify?token=" + url.QueryEscape(token.Plain)

	sendErr := errMailerNotConfigured
	if h.mailer != nil {
		sendErr = h.mailer.SendVerification(ctx, rec.Email, link)
	}

	result := &RequestVerificationResult{ExpiresAt: rec.ExpiresAt}
	switch {
	case sendErr == nil:
		rec.Outcome = verification.OutcomeSent

	case h.cfg.DevLinkFallback():
		h.logger.Warn("verification email not delivered, returning dev link",
			logger.UserID(cmd.UserID), logger.Err(sendErr))
		rec.Outcome = verification.OutcomeSent
		result.DevLink = link

	default:
		h.logger.Error("verification email delivery failed",
			logger.UserID(cmd.UserID), logger.Err(sendErr))
		rec.Outcome = verification.OutcomeFailed
		if err := h.repo.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("request_verification: mark failed: %w", err)
		}
		_ = w.Fail(sendErr)
		h.publish(rec)
		return nil, shared.ErrEmailDeliveryFailed.Wrap(sendErr)
	}

	if err := h.repo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("request_verification: save token: %w", err)
	}
	if err := w.Sent(); err != nil {
		return nil, err
	}
	h.publish(rec)

	result.State = w.State
	result.Outcome = rec.Outcome
	return result, nil
}

func (h *RequestVerificationHandler) publish(rec *verification.Record) {
	_ = h.events.Publish(shared.NewVerificationRequestedEvent(rec.UserID, rec.Email, string(rec.Outcome)))
}
