package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/service"
)

// RefundTransaction returns money of a completed transaction to the buyer,
// fully or in parts, and cancels same-day payments. The payment's own status
// never changes; only the refund overlay does.
type RefundTransaction struct {
	repo           port.TransactionRepository
	gateway        port.PaymentGateway
	fanout         *service.NotificationFanout
	metrics        *Metrics
	logger         *slog.Logger
	gatewayTimeout time.Duration
	now            func() time.Time
}

func NewRefundTransaction(
	repo port.TransactionRepository,
	gateway port.PaymentGateway,
	fanout *service.NotificationFanout,
	metrics *Metrics,
	logger *slog.Logger,
	gatewayTimeout time.Duration,
) *RefundTransaction {
	if gatewayTimeout <= 0 {
		gatewayTimeout = DefaultGatewayTimeout
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &RefundTransaction{
		repo:           repo,
		gateway:        gateway,
		fanout:         fanout,
		metrics:        metrics,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Refund refunds req.Amount, or the whole remaining amount when it is zero.
func (uc *RefundTransaction) Refund(ctx context.Context, req dto.RefundRequest) (dto.RefundResponse, error) {
	if !req.Caller.IsAdmin {
		return dto.RefundResponse{}, model.ErrForbidden
	}
	tx, err := uc.repo.FindByID(ctx, req.TransactionID)
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("failed to load transaction: %w", err)
	}

	amount := req.Amount
	if amount.IsZero() {
		amount = tx.RefundableAmount()
	}
	return uc.run(ctx, tx, amount, "refund", func(ctx context.Context, paymentID string) (bool, string, error) {
		res, err := uc.gateway.Refund(ctx, paymentID, money.New(amount, tx.Amount().Currency()))
		return res.Succeeded(), res.ErrorMessage, err
	})
}

// Cancel voids the whole payment. Gateways only accept this on the day of
// the payment; later the request is rejected and a refund must be used.
func (uc *RefundTransaction) Cancel(ctx context.Context, req dto.CancelRequest) (dto.RefundResponse, error) {
	if !req.Caller.IsAdmin {
		return dto.RefundResponse{}, model.ErrForbidden
	}
	tx, err := uc.repo.FindByID(ctx, req.TransactionID)
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx.Refund().Refunded.IsPositive() {
		return dto.RefundResponse{}, fmt.Errorf("%w: partially refunded payments cannot be cancelled", model.ErrNotRefundable)
	}

	return uc.run(ctx, tx, tx.RefundableAmount(), "cancel", func(ctx context.Context, paymentID string) (bool, string, error) {
		res, err := uc.gateway.Cancel(ctx, paymentID)
		return res.Succeeded(), res.ErrorMessage, err
	})
}

type gatewayReversal func(ctx context.Context, paymentID string) (ok bool, message string, err error)

func (uc *RefundTransaction) run(ctx context.Context, tx model.Transaction, amount decimal.Decimal, op string, call gatewayReversal) (dto.RefundResponse, error) {
	pending, err := tx.BeginRefund(amount, uc.now())
	if err != nil {
		return dto.RefundResponse{}, err
	}
	if err := uc.repo.SaveRefund(ctx, pending, tx.Version()); err != nil {
		if errors.Is(err, model.ErrConcurrentModification) {
			return dto.RefundResponse{}, model.ErrRefundInProgress
		}
		return dto.RefundResponse{}, fmt.Errorf("failed to mark refund pending: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.gatewayTimeout)
	started := time.Now()
	ok, message, err := call(callCtx, tx.GatewayPaymentID())
	cancel()
	uc.metrics.gatewayCall(ctx, op, started, err)

	if errors.Is(err, model.ErrGatewayUnavailable) {
		// Outcome unknown: the overlay stays pending until it goes stale and
		// the operator retries.
		uc.logger.Warn("refund outcome unknown, left pending",
			"transaction_id", tx.ID(),
			"op", op,
			"error", err)
		return refundResponse(pending, "refund outcome unknown, retry later"), err
	}
	if err != nil || !ok {
		reason := message
		if err != nil {
			var gwErr *port.GatewayError
			if errors.As(err, &gwErr) && gwErr.Message != "" {
				reason = gwErr.Message
			} else if reason == "" {
				reason = err.Error()
			}
		}
		if reason == "" {
			reason = "gateway rejected the " + op
		}
		return uc.finishFailed(ctx, pending, op, reason)
	}

	done, err := pending.CompleteRefund(uc.now())
	if err != nil {
		return dto.RefundResponse{}, err
	}
	if err := uc.repo.SaveRefund(ctx, done, pending.Version()); err != nil {
		return dto.RefundResponse{}, fmt.Errorf("failed to record completed %s: %w", op, err)
	}
	_, done = done.ClearDomainEvents()

	uc.logger.Info("refund completed",
		"transaction_id", done.ID(),
		"op", op,
		"amount", amount.String(),
		"refunded_total", done.Refund().Refunded.String())

	if err := uc.fanout.Dispatch(ctx, done, service.OccasionRefunded); err != nil {
		uc.logger.Warn("failed to send refund notifications", "transaction_id", done.ID(), "error", err)
	}
	return refundResponse(done, "refund completed"), nil
}

func (uc *RefundTransaction) finishFailed(ctx context.Context, pending model.Transaction, op, reason string) (dto.RefundResponse, error) {
	failed, err := pending.FailRefund(reason, uc.now())
	if err != nil {
		return dto.RefundResponse{}, err
	}
	if err := uc.repo.SaveRefund(ctx, failed, pending.Version()); err != nil {
		return dto.RefundResponse{}, fmt.Errorf("failed to record failed %s: %w", op, err)
	}
	uc.logger.Warn("refund rejected by gateway",
		"transaction_id", failed.ID(),
		"op", op,
		"reason", reason)
	return refundResponse(failed, "refund failed: "+reason), nil
}

func refundResponse(tx model.Transaction, message string) dto.RefundResponse {
	r := tx.Refund()
	return dto.RefundResponse{
		TransactionID:  tx.ID(),
		RefundStatus:   r.Status.String(),
		Requested:      r.Requested,
		RefundedAmount: r.Refunded,
		Remaining:      tx.RefundableAmount(),
		Message:        message,
	}
}
