package solutionchat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/domain/shared"
)

const conv = "3f6e1b2c-4d5a-4b6c-8d7e-9f0a1b2c3d4e"

func TestNewMessage(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)

	m, err := NewMessage("m1", conv, "u1", "  Salut, tu as trouvé un logement ?  ", now)
	require.NoError(t, err)
	assert.Equal(t, "Salut, tu as trouvé un logement ?", m.Content)
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, conv, m.ConversationID)
}

func TestNewMessage_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		conv    string
		content string
		kind    error
	}{
		{"empty", conv, "   ", shared.ErrEmptyValue},
		{"too long", conv, strings.Repeat("é", MaxContentLength+1), shared.ErrValueOutOfRange},
		{"no conversation", " ", "Salut", shared.ErrInvalidID},
		{"conversation not a uuid", "conv-1", "Salut", shared.ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMessage("m1", tt.conv, "u1", tt.content, time.Now())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.True(t, shared.IsValidation(err))
			assert.Equal(t, "invalid_input", shared.CodeOf(err, ""))
		})
	}
}

func TestNewMessage_CountsRunesNotBytes(t *testing.T) {
	_, err := NewMessage("m1", conv, "u1", strings.Repeat("é", MaxContentLength), time.Now())
	assert.NoError(t, err)
}
