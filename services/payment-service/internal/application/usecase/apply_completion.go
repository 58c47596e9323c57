package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/service"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// DefaultSideEffectLease is how long a side-effect run may take before
// another caller considers it abandoned and resumes it.
const DefaultSideEffectLease = 2 * time.Minute

// ApplyCompletionRequest is one gateway answer for one transaction, from
// either channel. ResultErr is the error RetrieveResult returned, if any.
// Outcome, when set, is applied as is instead of classifying Result; the
// service uses it to expire abandoned checkouts.
type ApplyCompletionRequest struct {
	TransactionID uuid.UUID
	Result        port.CheckoutResult
	ResultErr     error
	Source        valueobject.CompletionSource
	Outcome       valueobject.GatewayOutcome
}

// Completion is the state after ApplyCompletion.
type Completion struct {
	Transaction model.Transaction
	// Outcome is the classified gateway answer, nil on a terminal short-circuit.
	Outcome valueobject.GatewayOutcome
	// Transitioned is set for the one caller whose terminal write won.
	Transitioned bool
}

// ApplyCompletion is the single entry point through which callbacks and polls
// change a transaction. Any number of concurrent calls for the same
// transaction produce one terminal write and one side-effect run.
type ApplyCompletion struct {
	repo    port.TransactionRepository
	effects *service.SideEffectApplier
	fanout  *service.NotificationFanout
	metrics *Metrics
	logger  *slog.Logger
	lease   time.Duration
	now     func() time.Time
}

func NewApplyCompletion(
	repo port.TransactionRepository,
	effects *service.SideEffectApplier,
	fanout *service.NotificationFanout,
	metrics *Metrics,
	logger *slog.Logger,
	lease time.Duration,
) *ApplyCompletion {
	if lease <= 0 {
		lease = DefaultSideEffectLease
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &ApplyCompletion{
		repo:    repo,
		effects: effects,
		fanout:  fanout,
		metrics: metrics,
		logger:  logger,
		lease:   lease,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the wall clock used for transitions, leases and the
// wait window.
func (uc *ApplyCompletion) WithClock(now func() time.Time) *ApplyCompletion {
	uc.now = now
	return uc
}

func (uc *ApplyCompletion) Execute(ctx context.Context, req ApplyCompletionRequest) (Completion, error) {
	ctx, span := tracer.Start(ctx, "ApplyCompletion", trace.WithAttributes(
		attribute.String("transaction_id", req.TransactionID.String()),
		attribute.String("source", req.Source.String())))
	defer span.End()

	c, err := uc.execute(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply completion failed")
	}
	return c, err
}

func (uc *ApplyCompletion) execute(ctx context.Context, req ApplyCompletionRequest) (Completion, error) {
	tx, err := uc.repo.FindByID(ctx, req.TransactionID)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx.Status().IsTerminal() {
		return uc.shortCircuit(ctx, tx)
	}
	if req.Outcome != nil {
		return uc.apply(ctx, tx, req.Outcome, req.Source)
	}

	classified, err := service.ClassifyCheckoutResult(req.Result, req.ResultErr)
	if err != nil {
		uc.logger.Warn("gateway unavailable, transaction left unchanged",
			"transaction_id", tx.ID(),
			"source", req.Source.String(),
			"error", err)
		return Completion{Transaction: tx}, err
	}
	if classified.Unrecognized {
		uc.logger.Warn("unrecognized gateway result, still waiting",
			"transaction_id", tx.ID(),
			"source", req.Source.String(),
			"gateway_status", req.Result.GatewayStatus,
			"payment_status", req.Result.PaymentStatus,
			"raw", req.Result.Raw)
	}
	if classified.Recheck {
		tx, err = uc.repo.FindByID(ctx, req.TransactionID)
		if err != nil {
			return Completion{}, fmt.Errorf("failed to reload transaction: %w", err)
		}
		if tx.Status().IsTerminal() {
			uc.logger.Info("gateway token gone, transaction already terminal",
				"transaction_id", tx.ID(),
				"status", tx.Status().String())
			return uc.shortCircuit(ctx, tx)
		}
	}

	return uc.apply(ctx, tx, classified.Outcome, req.Source)
}

func (uc *ApplyCompletion) apply(ctx context.Context, tx model.Transaction, outcome valueobject.GatewayOutcome, source valueobject.CompletionSource) (Completion, error) {
	switch outcome := outcome.(type) {
	case valueobject.OutcomeCompleted:
		return uc.complete(ctx, tx, outcome, source)
	case valueobject.OutcomeFailed:
		return uc.fail(ctx, tx, outcome, source)
	default:
		uc.metrics.outcome(ctx, "waiting", source.String())
		uc.logger.Debug("payment still waiting",
			"transaction_id", tx.ID(),
			"source", source.String())
		return Completion{Transaction: tx, Outcome: outcome}, nil
	}
}

func (uc *ApplyCompletion) complete(ctx context.Context, tx model.Transaction, outcome valueobject.OutcomeCompleted, source valueobject.CompletionSource) (Completion, error) {
	updated, err := tx.Complete(outcome, source, uc.now())
	if err != nil {
		return Completion{}, fmt.Errorf("failed to complete transaction: %w", err)
	}
	won, err := uc.repo.TransitionTerminal(ctx, updated)
	if err != nil {
		return Completion{Transaction: tx}, fmt.Errorf("failed to persist completion: %w", err)
	}
	if !won {
		return uc.lostRace(ctx, tx.ID(), source)
	}
	_, updated = updated.ClearDomainEvents()

	uc.metrics.outcome(ctx, "completed", source.String())
	uc.logger.Info("transaction completed",
		"transaction_id", updated.ID(),
		"type", updated.Type().String(),
		"source", source.String(),
		"payment_id", outcome.PaymentID)

	updated, err = uc.runEffects(ctx, updated)
	return Completion{Transaction: updated, Outcome: outcome, Transitioned: true}, err
}

func (uc *ApplyCompletion) fail(ctx context.Context, tx model.Transaction, outcome valueobject.OutcomeFailed, source valueobject.CompletionSource) (Completion, error) {
	updated, err := tx.Fail(outcome, source, uc.now())
	if err != nil {
		return Completion{}, fmt.Errorf("failed to fail transaction: %w", err)
	}
	won, err := uc.repo.TransitionTerminal(ctx, updated)
	if err != nil {
		return Completion{Transaction: tx}, fmt.Errorf("failed to persist failure: %w", err)
	}
	if !won {
		return uc.lostRace(ctx, tx.ID(), source)
	}
	_, updated = updated.ClearDomainEvents()

	uc.metrics.outcome(ctx, "failed", source.String())
	uc.logger.Info("transaction failed",
		"transaction_id", updated.ID(),
		"source", source.String(),
		"error_kind", updated.ErrorKind())

	// Best effort: a lost failure notice does not change the payment.
	if err := uc.fanout.Dispatch(ctx, updated, service.OccasionFailed); err != nil {
		uc.logger.Warn("failed to notify buyer of payment failure",
			"transaction_id", updated.ID(),
			"error", err)
	}
	return Completion{Transaction: updated, Outcome: outcome, Transitioned: true}, nil
}

func (uc *ApplyCompletion) lostRace(ctx context.Context, id uuid.UUID, source valueobject.CompletionSource) (Completion, error) {
	uc.metrics.lostRace(ctx, source.String())
	tx, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to reload transaction after lost race: %w", err)
	}
	uc.logger.Info("terminal write lost the race",
		"transaction_id", id,
		"source", source.String(),
		"status", tx.Status().String())
	return uc.shortCircuit(ctx, tx)
}

// shortCircuit returns a terminal transaction as stored. A completed one
// whose side effects never finished gets them resumed.
func (uc *ApplyCompletion) shortCircuit(ctx context.Context, tx model.Transaction) (Completion, error) {
	if !tx.EffectsPending() {
		return Completion{Transaction: tx}, nil
	}
	resumed, err := uc.ResumeEffects(ctx, tx)
	return Completion{Transaction: resumed}, err
}

// ResumeEffects runs the side effects of a completed transaction if their
// lease is free. It is a no-op for anything else, including a transaction
// whose effects another caller is applying right now.
func (uc *ApplyCompletion) ResumeEffects(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	now := uc.now()
	if !tx.EffectsLeaseExpired(now, uc.lease) {
		return tx, nil
	}
	claimed, err := uc.repo.ClaimEffects(ctx, tx.ID(), now, uc.lease)
	if err != nil {
		return tx, fmt.Errorf("failed to claim side effects: %w", err)
	}
	if !claimed {
		return tx, nil
	}

	uc.logger.Info("resuming side effects", "transaction_id", tx.ID())
	return uc.runEffects(ctx, tx.WithEffectsClaimed(now))
}

// runEffects applies side effects and notifications, then records them as
// done. The caller must hold the lease.
func (uc *ApplyCompletion) runEffects(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	if _, err := uc.effects.Apply(ctx, tx); err != nil {
		return uc.effectsFailed(ctx, tx, err)
	}
	if err := uc.fanout.Dispatch(ctx, tx, service.OccasionCompleted); err != nil {
		return uc.effectsFailed(ctx, tx, err)
	}

	now := uc.now()
	if err := uc.repo.MarkEffectsApplied(ctx, tx.ID(), now); err != nil {
		return uc.effectsFailed(ctx, tx, fmt.Errorf("failed to mark side effects applied: %w", err))
	}
	return tx.WithEffectsApplied(now), nil
}

func (uc *ApplyCompletion) effectsFailed(ctx context.Context, tx model.Transaction, cause error) (model.Transaction, error) {
	if isPermanentEffectsFailure(cause) {
		return uc.effectsBlocked(ctx, tx, cause)
	}
	uc.logger.Error("side effects incomplete, will be resumed",
		"transaction_id", tx.ID(),
		"error", cause)
	return tx, uc.releaseEffects(ctx, tx, cause)
}

// effectsBlocked parks side effects that no retry can finish. The payment
// stays COMPLETED and the caller gets a success; an operator resumes the
// effects once the underlying record is repaired.
func (uc *ApplyCompletion) effectsBlocked(ctx context.Context, tx model.Transaction, cause error) (model.Transaction, error) {
	uc.logger.Error("side effects need manual attention",
		"transaction_id", tx.ID(),
		"type", tx.Type().String(),
		"related_id", tx.RelatedID(),
		"error", cause)
	now := uc.now()
	if err := uc.repo.MarkEffectsFailed(context.WithoutCancel(ctx), tx.ID(), now, cause.Error()); err != nil {
		// Unparked effects stay retryable.
		return tx, uc.releaseEffects(ctx, tx, fmt.Errorf("failed to park side effects: %w", err))
	}
	uc.metrics.effectsFailed(ctx, true)
	return tx.WithEffectsFailed(now, cause.Error()), nil
}

func (uc *ApplyCompletion) releaseEffects(ctx context.Context, tx model.Transaction, cause error) error {
	uc.metrics.effectsFailed(ctx, false)
	// A cancelled request must not keep the lease from the next caller.
	if err := uc.repo.ReleaseEffects(context.WithoutCancel(ctx), tx.ID()); err != nil {
		uc.logger.Warn("failed to release side-effect lease",
			"transaction_id", tx.ID(),
			"error", err)
	}
	return fmt.Errorf("%w: %w", model.ErrPartialSideEffectFailure, cause)
}

// A missing or withdrawn booking record does not recover on its own.
func isPermanentEffectsFailure(err error) bool {
	return errors.Is(err, model.ErrBookingNotFound) || errors.Is(err, model.ErrBookingNotPayable)
}

// IsRetryable reports errors after which the same request may succeed later.
func IsRetryable(err error) bool {
	return errors.Is(err, model.ErrGatewayUnavailable) || errors.Is(err, model.ErrPartialSideEffectFailure)
}
