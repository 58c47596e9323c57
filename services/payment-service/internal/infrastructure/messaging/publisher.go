package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/events"
	pkgkafka "github.com/obkaraca/sportsmaker-backend-sub001/pkg/kafka"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
)

var (
	_ events.EnvelopePublisher   = (*Publisher)(nil)
	_ port.NotificationPublisher = (*Publisher)(nil)
)

// Producer is the subset of the Kafka producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// Publisher writes transaction events and notification workflow triggers to Kafka.
type Publisher struct {
	producer          Producer
	notificationTopic string
}

func NewPublisher(producer Producer, notificationTopic string) *Publisher {
	return &Publisher{producer: producer, notificationTopic: notificationTopic}
}

// PublishEnvelopes sends already-serialized events keyed by aggregate id, so
// all events of one transaction land on one partition in order.
func (p *Publisher) PublishEnvelopes(ctx context.Context, topic string, envelopes ...events.Envelope) error {
	messages := make([]pkgkafka.Message, 0, len(envelopes))
	for _, env := range envelopes {
		value, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", env.Type, err)
		}
		messages = append(messages, pkgkafka.Message{
			Key:   []byte(env.AggregateID.String()),
			Value: value,
			Headers: map[string]string{
				"event_type":     env.Type,
				"aggregate_type": env.AggregateType,
				"event_id":       env.ID.String(),
			},
		})
	}
	if err := p.producer.Publish(ctx, topic, messages...); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// NotificationTrigger is the workflow engine's input for one notification.
type NotificationTrigger struct {
	NotificationID string            `json:"notification_id"`
	Workflow       string            `json:"workflow"`
	SubscriberID   uuid.UUID         `json:"subscriber_id"`
	Role           string            `json:"role"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	TransactionID  uuid.UUID         `json:"transaction_id"`
	RelatedID      uuid.UUID         `json:"related_id"`
	Data           map[string]string `json:"data,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// PublishNotification forwards n to the workflow topic. The notification id
// doubles as the workflow transaction id, so the engine drops redeliveries.
func (p *Publisher) PublishNotification(ctx context.Context, n model.Notification) error {
	value, err := json.Marshal(NotificationTrigger{
		NotificationID: n.ID,
		Workflow:       n.Kind,
		SubscriberID:   n.UserID,
		Role:           string(n.Role),
		Title:          n.Title,
		Message:        n.Message,
		TransactionID:  n.TransactionID,
		RelatedID:      n.RelatedID,
		Data:           n.Data,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", n.ID, err)
	}
	msg := pkgkafka.Message{
		Key:   []byte(n.UserID.String()),
		Value: value,
		Headers: map[string]string{
			"workflow":        n.Kind,
			"notification_id": n.ID,
		},
	}
	if err := p.producer.Publish(ctx, p.notificationTopic, msg); err != nil {
		return fmt.Errorf("kafka publish notification: %w", err)
	}
	return nil
}
