package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/events"
)

const (
	defaultRelayInterval = time.Second
	relayBatchSize       = 100
)

// OutboxRelay copies committed outbox entries to the transaction topic.
// Delivery is at least once: an entry is marked published only after the
// broker acknowledged it.
type OutboxRelay struct {
	outbox    events.OutboxRepository
	publisher events.EnvelopePublisher
	topic     string
	interval  time.Duration
	logger    *slog.Logger
}

func NewOutboxRelay(outbox events.OutboxRepository, publisher events.EnvelopePublisher, topic string, interval time.Duration, logger *slog.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = defaultRelayInterval
	}
	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		topic:     topic,
		interval:  interval,
		logger:    logger,
	}
}

// Run relays until ctx is canceled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay starting", "topic", r.topic, "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return nil
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					r.logger.Error("outbox relay failed", "error", err)
					break
				}
				if n < relayBatchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries it relayed.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.outbox.FetchUnpublished(ctx, relayBatchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	envelopes := make([]events.Envelope, 0, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		envelopes = append(envelopes, e.Envelope())
		ids = append(ids, e.ID)
	}
	if err := r.publisher.PublishEnvelopes(ctx, r.topic, envelopes...); err != nil {
		return 0, err
	}
	if err := r.outbox.MarkPublished(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	r.logger.Debug("outbox relayed", "count", len(entries))
	return len(entries), nil
}
