// Package messaging implements the event bus that carries profile, verification,
// billing and account events to their subscribers.
// It provides an in-memory bus and a Redis Pub/Sub bus for multi-instance deployments.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")

	errNilHandler = errors.New("handler cannot be nil")
	errNilEvent   = errors.New("event cannot be nil")
)

// HandledFunc observes every handler execution.
type HandledFunc func(eventType shared.EventType, duration time.Duration, err error)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus delivers events to handlers inside one process.
// Suitable for single-instance deployments and testing.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	asyncMode   bool
	workerPool  chan struct{}
	logger      *logger.Logger
	onHandled   HandledFunc
	closed      bool
	wg          sync.WaitGroup
}

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers on a bounded worker pool.
	AsyncMode bool

	// WorkerPoolSize is the number of concurrent workers for async processing.
	WorkerPoolSize int

	Logger *logger.Logger

	// OnHandled is called after every handler run. Optional.
	OnHandled HandledFunc
}

// DefaultInMemoryEventBusConfig returns sensible defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	return &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]shared.EventHandler),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		logger:     config.Logger.With(logger.Component("event_bus")),
		onHandled:  config.OnHandled,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", logger.String("event_type", string(eventType)))

	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish sends an event to all subscribed handlers.
// Handler errors are logged, never returned to the publisher.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}

	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)

	if b.asyncMode {
		// Accepted work is counted before the lock is released, so Close
		// waits for it.
		b.wg.Add(len(handlers))
		b.mu.RUnlock()
		for _, handler := range handlers {
			b.executeAsync(event, handler)
		}
		return nil
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := b.execute(event, handler); err != nil {
			b.logger.Error("handler error",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
		}
	}

	return nil
}

// executeAsync executes a handler asynchronously using the worker pool.
// The caller has already added it to wg.
func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	go func() {
		defer b.wg.Done()

		b.workerPool <- struct{}{}
		defer func() { <-b.workerPool }()

		if err := b.execute(event, handler); err != nil {
			b.logger.Error("async handler error",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
		}
	}()
}

// execute runs one handler, turning a panic into ErrHandlerPanic.
func (b *InMemoryEventBus) execute(event shared.Event, handler shared.EventHandler) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
		if b.onHandled != nil {
			b.onHandled(event.EventType(), time.Since(start), err)
		}
	}()

	return handler(event)
}

// Close stops accepting events and waits until every accepted event,
// queued or running, has been handled.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()

	b.logger.Info("event bus closed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisClient defines the Pub/Sub operations the Redis bus needs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
}

// RedisMessage represents a message received from Redis Pub/Sub.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

// RedisEventBus fans events out to every instance through one Redis channel.
// Local handlers see local events directly; remote events arrive through the subscription.
type RedisEventBus struct {
	client      RedisClient
	localBus    *InMemoryEventBus
	channelName string
	instanceID  string
	logger      *logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

// RedisEventBusConfig contains configuration for RedisEventBus.
type RedisEventBusConfig struct {
	Client RedisClient

	// ChannelName defaults to "student-hub:events".
	ChannelName string

	// InstanceID filters out self-published events. Generated when empty.
	InstanceID string

	LocalBusConfig InMemoryEventBusConfig

	Logger *logger.Logger
}

// NewRedisEventBus creates a Redis-backed bus and starts its subscriber.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.ChannelName == "" {
		config.ChannelName = "student-hub:events"
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.LocalBusConfig.Logger == nil {
		config.LocalBusConfig.Logger = config.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &RedisEventBus{
		client:      config.Client,
		localBus:    NewInMemoryEventBus(config.LocalBusConfig),
		channelName: config.ChannelName,
		instanceID:  config.InstanceID,
		logger:      config.Logger.With(logger.Component("redis_event_bus")),
		ctx:         ctx,
		cancel:      cancel,
	}

	if err := bus.startSubscriber(); err != nil {
		cancel()
		return nil, fmt.Errorf("start subscriber: %w", err)
	}

	return bus, nil
}

// Subscribe registers a handler for a specific event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler for all events.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.localBus.SubscribeAll(handler)
}

// Publish sends an event to Redis and to local handlers.
// A Redis failure is logged; local delivery still happens.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	b.mu.RUnlock()

	data, err := json.Marshal(eventEnvelope{
		InstanceID:  b.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.client.Publish(b.ctx, b.channelName, data); err != nil {
		b.logger.Error("failed to publish to redis", logger.Err(err))
	}

	return b.localBus.Publish(event)
}

func (b *RedisEventBus) startSubscriber() error {
	messages, err := b.client.Subscribe(b.ctx, b.channelName)
	if err != nil {
		return err
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.subscriptionLoop(messages)
	}()

	return nil
}

func (b *RedisEventBus) subscriptionLoop(messages <-chan RedisMessage) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.logger.Error("redis subscription error", logger.Err(msg.Err))
				continue
			}
			b.handleRedisMessage(msg)
		}
	}
}

func (b *RedisEventBus) handleRedisMessage(msg RedisMessage) {
	var envelope eventEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
		b.logger.Error("failed to unmarshal event", logger.Err(err))
		return
	}

	// Self-published events were already delivered locally.
	if envelope.InstanceID == b.instanceID {
		return
	}

	event := &remoteEvent{
		eventType:   envelope.EventType,
		aggregateID: envelope.AggregateID,
		occurredAt:  envelope.OccurredAt,
		payload:     envelope.Payload,
	}

	if err := b.localBus.Publish(event); err != nil {
		b.logger.Error("failed to process remote event", logger.Err(err))
	}
}

// Close stops the subscriber and drains local handlers.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()

	return b.localBus.Close()
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

type eventEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// remoteEvent is an event received from another instance.
type remoteEvent struct {
	eventType   shared.EventType
	aggregateID string
	occurredAt  time.Time
	payload     map[string]interface{}
}

func (e *remoteEvent) EventType() shared.EventType     { return e.eventType }
func (e *remoteEvent) AggregateID() string             { return e.aggregateID }
func (e *remoteEvent) OccurredAt() time.Time           { return e.occurredAt }
func (e *remoteEvent) Payload() map[string]interface{} { return e.payload }
