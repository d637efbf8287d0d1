package command

import (
	"context"
	"fmt"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/coach"
	"github.com/integration-hub/student-hub/internal/domain/gate"
	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COACH CONVERSATION COMMAND
// Gates the coach on progress, consumes one free message unless premium and
// opens a completion stream. The caller owns the returned stream.
// ══════════════════════════════════════════════════════════════════════════════

// CoachConversationCommand contains one coach turn.
type CoachConversationCommand struct {
	UserID   string
	Persona  coach.Persona
	Messages []coach.Message

	// CheckOnly reports the gate and quota without calling the model.
	CheckOnly bool
}

// CoachStatus describes gate and quota for the client.
type CoachStatus struct {
	Locked   bool
	Reason   gate.Reason
	Quota    quota.Status
	LockMode quota.LockMode
}

// CoachConversationResult holds the status and, for a real turn, the stream.
type CoachConversationResult struct {
	Status CoachStatus
	Stream coach.Stream
}

// CoachConversationHandler handles the CoachConversationCommand.
type CoachConversationHandler struct {
	profiles ProfileLoader
	usage    quota.Repository
	gateway  coach.Gateway
	limits   quota.Limits
	logger   *logger.Logger
	now      func() time.Time
}

// NewCoachConversationHandler creates a new CoachConversationHandler.
func NewCoachConversationHandler(
	profiles ProfileLoader,
	usage quota.Repository,
	gateway coach.Gateway,
	limits quota.Limits,
	log *logger.Logger,
) *CoachConversationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CoachConversationHandler{
		profiles: profiles,
		usage:    usage,
		gateway:  gateway,
		limits:   limits,
		logger:   log.With(logger.Component("coach")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the command.
// Returns shared.ErrFeatureLocked below the progress threshold and
// shared.ErrLimitReached when the free messages are used up.
func (h *CoachConversationHandler) Handle(ctx context.Context, cmd CoachConversationCommand) (*CoachConversationResult, error) {
	p, err := h.profiles.Load(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("coach: load profile: %w", err)
	}

	g := gate.Evaluate(gate.SnapshotOf(p)).Coach
	scope := quota.DailyScope(h.now())
	status := quota.Status{
		Feature: quota.FeatureCoachMessage,
		Limit:   h.limits.For(quota.FeatureCoachMessage),
		Premium: p.IsPremium,
	}
	if !status.Premium {
		used, err := h.usage.Used(ctx, cmd.UserID, quota.FeatureCoachMessage, scope)
		if err != nil {
			return nil, fmt.Errorf("coach: read usage: %w", err)
		}
		status.Used = used
	}

	result := &CoachConversationResult{Status: CoachStatus{
		Locked:   g.Locked,
		Reason:   g.Reason(),
		Quota:    status,
		LockMode: quota.LockFor(status, phaseOf(cmd.Messages)),
	}}

	if cmd.CheckOnly {
		return result, nil
	}
	if g.Locked {
		return nil, shared.ErrFeatureLocked
	}
	if err := coach.ValidateConversation(cmd.Messages); err != nil {
		return nil, err
	}

	if !status.Premium {
		used, err := h.usage.Consume(ctx, cmd.UserID, quota.FeatureCoachMessage, scope, status.Limit)
		if err != nil {
			return nil, err
		}
		status.Used = used
	}

	persona := cmd.Persona
	if persona == "" {
		persona = coach.PersonaAmal
	}

	// A failed upstream call does not give the message back.
	stream, err := h.gateway.Stream(ctx, coach.BuildRequest(persona, p, cmd.Messages))
	if err != nil {
		return nil, err
	}

	h.logger.Debug("coach stream opened",
		logger.UserID(cmd.UserID), logger.String("persona", string(persona)), logger.Int("used", status.Used))

	result.Status.Quota = status
	result.Status.LockMode = quota.LockFor(status, quota.PhaseStreaming)
	result.Stream = stream
	return result, nil
}

// phaseOf returns where the user is in the conversation.
func phaseOf(msgs []coach.Message) quota.ConversationPhase {
	for _, m := range msgs {
		if m.Role == coach.RoleAssistant {
			return quota.PhaseMidConversation
		}
	}
	return quota.PhaseOpening
}
