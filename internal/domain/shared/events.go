package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Every state change a client has to refetch for is an event.
const (
	// Profile events
	EventProfileOnboarded       EventType = "profile.onboarded"
	EventProfileProgressUpdated EventType = "profile.progress_updated"

	// Verification events
	EventVerificationRequested EventType = "verification.requested"
	EventVerificationConfirmed EventType = "verification.confirmed"

	// Billing events
	EventPremiumChanged EventType = "billing.premium_changed"

	// Account events
	EventAccountDeleted EventType = "account.deleted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	// For every event in this service it is the owning user id.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Profile Events
// ═══════════════════════════════════════════════════════════════════════════

// ProfileOnboardedEvent is emitted when onboarding answers are saved.
type ProfileOnboardedEvent struct {
	BaseEvent
	Nationality string `json:"nationality"`
	InFrance    *bool  `json:"in_france"`
}

// Payload implements Event interface.
func (e ProfileOnboardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"nationality": e.Nationality,
		"in_france":   e.InFrance,
	}
}

// NewProfileOnboardedEvent creates a new ProfileOnboardedEvent.
func NewProfileOnboardedEvent(userID, nationality string, inFrance *bool) ProfileOnboardedEvent {
	return ProfileOnboardedEvent{
		BaseEvent:   NewBaseEvent(EventProfileOnboarded, userID),
		Nationality: nationality,
		InFrance:    inFrance,
	}
}

// ProgressUpdatedEvent is emitted after a checklist or document toggle recomputed progress.
type ProgressUpdatedEvent struct {
	BaseEvent
	Previous int `json:"previous"`
	Current  int `json:"current"`
}

// Payload implements Event interface.
func (e ProgressUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous": e.Previous,
		"current":  e.Current,
	}
}

// NewProgressUpdatedEvent creates a new ProgressUpdatedEvent.
func NewProgressUpdatedEvent(userID string, previous, current int) ProgressUpdatedEvent {
	return ProgressUpdatedEvent{
		BaseEvent: NewBaseEvent(EventProfileProgressUpdated, userID),
		Previous:  previous,
		Current:   current,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Verification Events
// ═══════════════════════════════════════════════════════════════════════════

// VerificationRequestedEvent is emitted for every attempt row created, whatever its outcome.
type VerificationRequestedEvent struct {
	BaseEvent
	Email   string `json:"email"`
	Outcome string `json:"outcome"`
}

// Payload implements Event interface.
func (e VerificationRequestedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"email":   e.Email,
		"outcome": e.Outcome,
	}
}

// NewVerificationRequestedEvent creates a new VerificationRequestedEvent.
func NewVerificationRequestedEvent(userID, email, outcome string) VerificationRequestedEvent {
	return VerificationRequestedEvent{
		BaseEvent: NewBaseEvent(EventVerificationRequested, userID),
		Email:     email,
		Outcome:   outcome,
	}
}

// VerificationConfirmedEvent is emitted when a confirmation link flipped the profile to temoin.
type VerificationConfirmedEvent struct {
	BaseEvent
	Email string `json:"email"`
}

// Payload implements Event interface.
func (e VerificationConfirmedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"email": e.Email,
	}
}

// NewVerificationConfirmedEvent creates a new VerificationConfirmedEvent.
func NewVerificationConfirmedEvent(userID, email string) VerificationConfirmedEvent {
	return VerificationConfirmedEvent{
		BaseEvent: NewBaseEvent(EventVerificationConfirmed, userID),
		Email:     email,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Billing & Account Events
// ═══════════════════════════════════════════════════════════════════════════

// PremiumChangedEvent is emitted when the premium flag flips.
type PremiumChangedEvent struct {
	BaseEvent
	Premium bool   `json:"premium"`
	Source  string `json:"source"`
}

// Payload implements Event interface.
func (e PremiumChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"premium": e.Premium,
		"source":  e.Source,
	}
}

// NewPremiumChangedEvent creates a new PremiumChangedEvent.
func NewPremiumChangedEvent(userID string, premium bool, source string) PremiumChangedEvent {
	return PremiumChangedEvent{
		BaseEvent: NewBaseEvent(EventPremiumChanged, userID),
		Premium:   premium,
		Source:    source,
	}
}

// AccountDeletedEvent is emitted after every owned row and the auth identity are gone.
type AccountDeletedEvent struct {
	BaseEvent
	RowsDeleted int64 `json:"rows_deleted"`
}

// Payload implements Event interface.
func (e AccountDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"rows_deleted": e.RowsDeleted,
	}
}

// NewAccountDeletedEvent creates a new AccountDeletedEvent.
func NewAccountDeletedEvent(userID string, rows int64) AccountDeletedEvent {
	return AccountDeletedEvent{
		BaseEvent:   NewBaseEvent(EventAccountDeleted, userID),
		RowsDeleted: rows,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher drops events. Used where no bus is wired.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
