package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/events"
	pkgkafka "github.com/obkaraca/sportsmaker-backend-sub001/pkg/kafka"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/event"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
)

// EffectsResumer resumes the side effects of one completed transaction.
type EffectsResumer interface {
	ResumeByID(ctx context.Context, id uuid.UUID) error
}

// NewEffectsHandler returns a consumer handler that resumes side effects for
// every completed-transaction event. It picks up runs whose winner failed
// and released the lease well before the periodic sweep would.
func NewEffectsHandler(resumer EffectsResumer, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, msg pkgkafka.Message) error {
		if t := msg.Headers["event_type"]; t != "" && t != event.TypeTransactionCompleted {
			return nil
		}

		var env events.Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			logger.Warn("dropping undecodable transaction event", "error", err)
			return pkgkafka.ErrSkip
		}
		if env.Type != event.TypeTransactionCompleted {
			return nil
		}

		err := resumer.ResumeByID(ctx, env.AggregateID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, model.ErrTransactionNotFound):
			logger.Warn("completed event for unknown transaction", "transaction_id", env.AggregateID)
			return pkgkafka.ErrSkip
		default:
			return fmt.Errorf("resume side effects of %s: %w", env.AggregateID, err)
		}
	}
}
