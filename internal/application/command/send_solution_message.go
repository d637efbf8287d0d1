package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/integration-hub/student-hub/internal/domain/gate"
	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/domain/solutionchat"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEND SOLUTION MESSAGE COMMAND
// Messaging is for verified students only; free senders get a fixed
// number of messages per conversation.
// ══════════════════════════════════════════════════════════════════════════════

// SendSolutionMessageCommand contains one message.
type SendSolutionMessageCommand struct {
	UserID         string
	ConversationID string
	Content        string
}

// SendSolutionMessageResult contains the stored message and the quota left.
type SendSolutionMessageResult struct {
	Message *solutionchat.Message
	Quota   quota.Status
}

// SendSolutionMessageHandler handles the SendSolutionMessageCommand.
type SendSolutionMessageHandler struct {
	profiles ProfileLoader
	usage    quota.Repository
	messages solutionchat.Repository
	limits   quota.Limits
	now      func() time.Time
	newID    func() string
}

// NewSendSolutionMessageHandler creates a new SendSolutionMessageHandler.
func NewSendSolutionMessageHandler(
	profiles ProfileLoader,
	usage quota.Repository,
	messages solutionchat.Repository,
	limits quota.Limits,
) *SendSolutionMessageHandler {
	return &SendSolutionMessageHandler{
		profiles: profiles,
		usage:    usage,
		messages: messages,
		limits:   limits,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Handle executes the command.
func (h *SendSolutionMessageHandler) Handle(ctx context.Context, cmd SendSolutionMessageCommand) (*SendSolutionMessageResult, error) {
	msg, err := solutionchat.NewMessage(h.newID(), cmd.ConversationID, cmd.UserID, cmd.Content, h.now())
	if err != nil {
		return nil, err
	}

	p, err := h.profiles.Load(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("solution_chat: load profile: %w", err)
	}
	if gate.Evaluate(gate.SnapshotOf(p)).Messaging.Locked {
		return nil, shared.ErrFeatureLocked
	}

	status := quota.Status{
		Feature: quota.FeatureSolutionChatMessage,
		Limit:   h.limits.For(quota.FeatureSolutionChatMessage),
		Premium: p.IsPremium,
	}
	if !status.Premium {
		used, err := h.usage.Consume(ctx, cmd.UserID, quota.FeatureSolutionChatMessage, cmd.ConversationID, status.Limit)
		if err != nil {
			return nil, err
		}
		status.Used = used
	}

	if err := h.messages.SaveMessage(ctx, msg); err != nil {
		if !status.Premium {
			// The message was not stored, so it must not count.
			if rerr := h.usage.Release(context.WithoutCancel(ctx), cmd.UserID, quota.FeatureSolutionChatMessage, cmd.ConversationID); rerr != nil {
				return nil, fmt.Errorf("solution_chat: save: %w (release quota: %v)", err, rerr)
			}
		}
		return nil, fmt.Errorf("solution_chat: save: %w", err)
	}
	return &SendSolutionMessageResult{Message: msg, Quota: status}, nil
}
