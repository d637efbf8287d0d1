package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/shared"
)

type recordingCache struct {
	deleted []string
	err     error
}

func (c *recordingCache) Get(context.Context, string) (*profile.Profile, error) { return nil, nil }
func (c *recordingCache) Set(context.Context, *profile.Profile, time.Duration) error {
	return nil
}
func (c *recordingCache) Delete(_ context.Context, userID string) error {
	if c.err != nil {
		return c.err
	}
	c.deleted = append(c.deleted, userID)
	return nil
}

type recordingBus struct {
	handlers map[shared.EventType]shared.EventHandler
}

func (b *recordingBus) Subscribe(t shared.EventType, h shared.EventHandler) error {
	if b.handlers == nil {
		b.handlers = make(map[shared.EventType]shared.EventHandler)
	}
	b.handlers[t] = h
	return nil
}

func (b *recordingBus) SubscribeAll(shared.EventHandler) error { return nil }

func TestOnProfileChanged_Invalidates(t *testing.T) {
	cache := &recordingCache{}
	h := NewOnProfileChangedHandler(cache, nil)

	require.NoError(t, h.Handle(shared.NewVerificationConfirmedEvent("u1", "a@etu.univ-lyon1.fr")))
	require.NoError(t, h.Handle(shared.NewPremiumChangedEvent("u2", true, "stripe")))

	assert.Equal(t, []string{"u1", "u2"}, cache.deleted)
}

func TestOnProfileChanged_CacheError(t *testing.T) {
	cache := &recordingCache{err: errors.New("redis down")}
	h := NewOnProfileChangedHandler(cache, nil)

	err := h.Handle(shared.NewAccountDeletedEvent("u1", 4))
	assert.Error(t, err)
}

func TestOnProfileChanged_Register(t *testing.T) {
	bus := &recordingBus{}
	h := NewOnProfileChangedHandler(&recordingCache{}, nil)

	require.NoError(t, h.Register(bus))
	for _, typ := range ProfileChangingEvents {
		assert.Contains(t, bus.handlers, typ)
	}
	assert.NotContains(t, bus.handlers, shared.EventVerificationRequested)
}
