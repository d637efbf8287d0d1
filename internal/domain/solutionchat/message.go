// Package solutionchat содержит сообщения чата решений между студентами.
// Ленту, реалтайм и модерацию реализуют другие сервисы, здесь только
// запись сообщения и его проверка.
package solutionchat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// MaxContentLength - максимальная длина сообщения в символах.
const MaxContentLength = 4000

// Message - одно сообщение в диалоге.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	CreatedAt      time.Time
}

// NewMessage проверяет содержимое и создаёт сообщение.
func NewMessage(id, conversationID, senderID, content string, now time.Time) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, shared.NewDomainError("solution_chat", "Send", shared.ErrEmptyValue, "invalid_input", "message cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, shared.NewDomainError("solution_chat", "Send", shared.ErrValueOutOfRange, "invalid_input", "message is too long")
	}
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, shared.NewDomainError("solution_chat", "Send", shared.ErrInvalidID, "invalid_input", "conversation id must be a UUID")
	}
	return &Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now,
	}, nil
}

// Repository сохраняет сообщения.
type Repository interface {
	SaveMessage(ctx context.Context, m *Message) error
}
