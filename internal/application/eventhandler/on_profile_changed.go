// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROFILE CHANGED HANDLER
// Сбрасывает кэш профиля после любого изменения, которое клиент должен
// перечитать. С RedisEventBus событие приходит и на другие инстансы, так
// что кэш сбрасывается везде, а не только там, где прошла команда.
// ═══════════════════════════════════════════════════════════════════════════

// ProfileChangingEvents - события, после которых кэш профиля устарел.
var ProfileChangingEvents = []shared.EventType{
	shared.EventProfileOnboarded,
	shared.EventProfileProgressUpdated,
	shared.EventVerificationConfirmed,
	shared.EventPremiumChanged,
	shared.EventAccountDeleted,
}

// OnProfileChangedHandler сбрасывает кэш профиля.
type OnProfileChangedHandler struct {
	cache   profile.Cache
	logger  *logger.Logger
	timeout time.Duration
}

// NewOnProfileChangedHandler создаёт новый обработчик.
func NewOnProfileChangedHandler(cache profile.Cache, log *logger.Logger) *OnProfileChangedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnProfileChangedHandler{
		cache:   cache,
		logger:  log.With(logger.Component("profile_cache_invalidator")),
		timeout: 2 * time.Second,
	}
}

// Handle обрабатывает событие.
func (h *OnProfileChangedHandler) Handle(event shared.Event) error {
	userID := event.AggregateID()
	if userID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.cache.Delete(ctx, userID); err != nil {
		h.logger.Warn("profile cache invalidation failed",
			logger.UserID(userID),
			logger.String("event", string(event.EventType())),
			logger.Err(err),
		)
		return fmt.Errorf("invalidate profile %s: %w", userID, err)
	}

	h.logger.Debug("profile cache invalidated",
		logger.UserID(userID), logger.String("event", string(event.EventType())))
	return nil
}

// Register подписывает обработчик на все события из ProfileChangingEvents.
func (h *OnProfileChangedHandler) Register(bus shared.EventSubscriber) error {
	for _, t := range ProfileChangingEvents {
		if err := bus.Subscribe(t, h.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	return nil
}
