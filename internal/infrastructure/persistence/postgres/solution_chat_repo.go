package postgres

import (
	"context"
	"fmt"

	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/domain/solutionchat"
)

// SolutionChatRepository implements solutionchat.Repository for PostgreSQL.
type SolutionChatRepository struct {
	conn *Connection
}

// NewSolutionChatRepository creates a new SolutionChatRepository.
func NewSolutionChatRepository(conn *Connection) *SolutionChatRepository {
	return &SolutionChatRepository{conn: conn}
}

// SaveMessage inserts one message.
func (r *SolutionChatRepository) SaveMessage(ctx context.Context, m *solutionchat.Message) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO solution_chat_messages (id, conversation_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.ConversationID, m.SenderID, m.Content, m.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrProfileNotFound
		}
		return fmt.Errorf("failed to save solution chat message: %w", err)
	}
	return nil
}
