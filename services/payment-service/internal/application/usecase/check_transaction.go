package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/service"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

const (
	DefaultGatewayTimeout = 10 * time.Second
	DefaultMaxWait        = 30 * time.Minute
)

// Messages shown to the waiting client.
const (
	msgCompleted       = "Payment completed."
	msgWaiting3DS      = "Waiting for 3-D Secure verification."
	msgPending         = "Payment is being processed."
	msgGatewayBusy     = "Payment status could not be checked right now. Please try again shortly."
	msgWindowExpired   = "payment window expired"
	msgEffectsDeferred = "Payment completed. Your booking is being finalized."
)

// CheckTransaction answers a client poll. Terminal transactions are answered
// from storage; others ask the gateway and go through ApplyCompletion.
type CheckTransaction struct {
	repo           port.TransactionRepository
	gateway        port.PaymentGateway
	engine         *ApplyCompletion
	metrics        *Metrics
	logger         *slog.Logger
	gatewayTimeout time.Duration
	maxWait        time.Duration
}

func NewCheckTransaction(
	repo port.TransactionRepository,
	gateway port.PaymentGateway,
	engine *ApplyCompletion,
	metrics *Metrics,
	logger *slog.Logger,
	gatewayTimeout, maxWait time.Duration,
) *CheckTransaction {
	if gatewayTimeout <= 0 {
		gatewayTimeout = DefaultGatewayTimeout
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &CheckTransaction{
		repo:           repo,
		gateway:        gateway,
		engine:         engine,
		metrics:        metrics,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
		maxWait:        maxWait,
	}
}

func (uc *CheckTransaction) Execute(ctx context.Context, req dto.CheckTransactionRequest) (dto.CheckStatusResponse, error) {
	tx, err := uc.repo.FindByID(ctx, req.TransactionID)
	if err != nil {
		return dto.CheckStatusResponse{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	if err := authorize(req.Caller, tx); err != nil {
		return dto.CheckStatusResponse{}, err
	}
	return uc.check(ctx, tx)
}

// ExecuteForRelated polls the active transaction of a bookable object.
func (uc *CheckTransaction) ExecuteForRelated(ctx context.Context, req dto.CheckRelatedRequest) (dto.CheckStatusResponse, error) {
	tx, err := uc.repo.FindActiveByRelated(ctx, req.RelatedID)
	if err != nil {
		return dto.CheckStatusResponse{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	if err := authorize(req.Caller, tx); err != nil {
		return dto.CheckStatusResponse{}, err
	}
	return uc.check(ctx, tx)
}

func (uc *CheckTransaction) check(ctx context.Context, tx model.Transaction) (dto.CheckStatusResponse, error) {
	if tx.Status().IsTerminal() {
		c, err := uc.engine.shortCircuit(ctx, tx)
		if err != nil {
			// The payment stands; the booking catches up on a later call.
			uc.logger.Warn("poll could not finish side effects",
				"transaction_id", tx.ID(),
				"error", err)
			return statusResponse(tx, msgEffectsDeferred), nil
		}
		return statusResponse(c.Transaction, terminalMessage(c.Transaction)), nil
	}

	if tx.GatewayToken() == "" {
		return uc.waitingResponse(tx, valueobject.ClientStatusPending, msgPending), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.gatewayTimeout)
	started := time.Now()
	result, resultErr := uc.gateway.RetrieveResult(callCtx, tx.GatewayToken())
	cancel()
	uc.metrics.gatewayCall(ctx, "retrieve", started, resultErr)

	c, err := uc.engine.Execute(ctx, ApplyCompletionRequest{
		TransactionID: tx.ID(),
		Result:        result,
		ResultErr:     resultErr,
		Source:        valueobject.CompletionSourcePoll,
	})
	switch {
	case errors.Is(err, model.ErrGatewayUnavailable):
		return uc.waitingResponse(tx, valueobject.ClientStatusPending, msgGatewayBusy), nil
	case errors.Is(err, model.ErrPartialSideEffectFailure):
		uc.logger.Warn("poll completed payment but side effects are pending",
			"transaction_id", tx.ID(),
			"error", err)
		return statusResponse(c.Transaction, msgEffectsDeferred), nil
	case err != nil:
		return dto.CheckStatusResponse{}, err
	}

	if !c.Transaction.Status().IsTerminal() {
		return uc.waitingResponse(c.Transaction, valueobject.ClientStatusWaiting3DS, msgWaiting3DS), nil
	}
	return statusResponse(c.Transaction, terminalMessage(c.Transaction)), nil
}

// waitingResponse reports a non-terminal transaction. Past the wait window the
// client is told the payment failed, while the record stays open so a late
// gateway success still completes it.
func (uc *CheckTransaction) waitingResponse(tx model.Transaction, status, message string) dto.CheckStatusResponse {
	if uc.engine.now().Sub(tx.CreatedAt()) > uc.maxWait {
		return dto.CheckStatusResponse{
			TransactionID: tx.ID(),
			Status:        valueobject.ClientStatusFailed,
			PaymentStatus: tx.Status().String(),
			Message:       msgWindowExpired,
		}
	}
	return dto.CheckStatusResponse{
		TransactionID: tx.ID(),
		Status:        status,
		PaymentStatus: tx.Status().String(),
		Message:       message,
	}
}

func statusResponse(tx model.Transaction, message string) dto.CheckStatusResponse {
	return dto.CheckStatusResponse{
		TransactionID: tx.ID(),
		Status:        tx.Status().ClientStatus(),
		PaymentStatus: tx.Status().String(),
		Message:       message,
	}
}

func terminalMessage(tx model.Transaction) string {
	switch tx.Status() {
	case valueobject.TransactionStatusCompleted:
		return msgCompleted
	case valueobject.TransactionStatusFailed:
		return service.FriendlyGatewayMessage(tx.ErrorDetail())
	}
	return msgPending
}

// authorize lets the buyer and admins see a transaction.
func authorize(caller dto.Caller, tx model.Transaction) error {
	if caller.IsAdmin || caller.UserID == tx.BuyerID() {
		return nil
	}
	return model.ErrForbidden
}
