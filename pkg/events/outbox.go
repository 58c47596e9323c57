package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxEntry is a domain event persisted in the same database transaction as
// the state change that produced it, waiting to be relayed to the broker.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateID   uuid.UUID
	AggregateType string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewOutboxEntry creates an OutboxEntry from a DomainEvent.
func NewOutboxEntry(event DomainEvent) OutboxEntry {
	return OutboxEntry{
		ID:            event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		EventType:     event.EventType(),
		Payload:       event.Payload(),
		CreatedAt:     event.OccurredAt(),
	}
}

// Envelope converts the entry back into its wire shape.
func (o OutboxEntry) Envelope() Envelope {
	payload := o.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return Envelope{
		ID:            o.ID,
		Type:          o.EventType,
		AggregateID:   o.AggregateID,
		AggregateType: o.AggregateType,
		OccurredAt:    o.CreatedAt,
		Payload:       payload,
	}
}

// OutboxRepository is the port for outbox persistence.
type OutboxRepository interface {
	FetchUnpublished(ctx context.Context, batchSize int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// EnvelopePublisher publishes already-serialized events to a broker topic.
type EnvelopePublisher interface {
	PublishEnvelopes(ctx context.Context, topic string, envelopes ...Envelope) error
}
