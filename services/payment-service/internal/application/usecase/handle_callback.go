package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// ErrMalformedCallback means the gateway push carried no usable token.
var ErrMalformedCallback = errors.New("malformed callback")

// HandleCallback processes a gateway callback. Every outcome the gateway
// cannot fix by retrying is reported as handled; only transient trouble is
// returned as an error so the gateway delivers again.
type HandleCallback struct {
	repo           port.TransactionRepository
	gateway        port.PaymentGateway
	engine         *ApplyCompletion
	metrics        *Metrics
	logger         *slog.Logger
	gatewayTimeout time.Duration
}

func NewHandleCallback(
	repo port.TransactionRepository,
	gateway port.PaymentGateway,
	engine *ApplyCompletion,
	metrics *Metrics,
	logger *slog.Logger,
	gatewayTimeout time.Duration,
) *HandleCallback {
	if gatewayTimeout <= 0 {
		gatewayTimeout = DefaultGatewayTimeout
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &HandleCallback{
		repo:           repo,
		gateway:        gateway,
		engine:         engine,
		metrics:        metrics,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
	}
}

func (uc *HandleCallback) Execute(ctx context.Context, req dto.CallbackRequest) (dto.CallbackResponse, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return dto.CallbackResponse{}, ErrMalformedCallback
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.gatewayTimeout)
	started := time.Now()
	result, resultErr := uc.gateway.RetrieveResult(callCtx, token)
	cancel()
	uc.metrics.gatewayCall(ctx, "retrieve", started, resultErr)

	if errors.Is(resultErr, model.ErrGatewayUnavailable) {
		return dto.CallbackResponse{}, resultErr
	}

	basketID := strings.TrimSpace(req.BasketID)
	if basketID == "" {
		basketID = result.BasketID
	}
	if basketID == "" {
		uc.logger.Warn("callback without basket id", "error", resultErr)
		return dto.CallbackResponse{Status: valueobject.ClientStatusPending, Message: "unknown basket"}, nil
	}
	typ, id, err := valueobject.ParseBasketID(basketID)
	if err != nil {
		uc.logger.Warn("callback with unparseable basket id", "basket_id", basketID, "error", err)
		return dto.CallbackResponse{Status: valueobject.ClientStatusPending, Message: "unknown basket"}, nil
	}

	tx, err := uc.repo.FindByID(ctx, id)
	if errors.Is(err, model.ErrTransactionNotFound) {
		uc.logger.Warn("callback for unknown transaction", "basket_id", basketID)
		return dto.CallbackResponse{TransactionID: id, Status: valueobject.ClientStatusPending, Message: "unknown basket"}, nil
	}
	if err != nil {
		return dto.CallbackResponse{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	if !typ.IsZero() && typ != tx.Type() {
		uc.logger.Warn("callback basket type does not match transaction",
			"transaction_id", tx.ID(),
			"basket_type", typ.String(),
			"type", tx.Type().String())
	}
	if tx.GatewayToken() != token {
		// Someone replaying a token of another transaction against this basket.
		uc.logger.Warn("callback token does not belong to transaction", "transaction_id", tx.ID())
		return dto.CallbackResponse{TransactionID: tx.ID(), Status: tx.Status().ClientStatus(), Message: "token mismatch"}, nil
	}

	c, err := uc.engine.Execute(ctx, ApplyCompletionRequest{
		TransactionID: tx.ID(),
		Result:        result,
		ResultErr:     resultErr,
		Source:        valueobject.CompletionSourceCallback,
	})
	if err != nil {
		return dto.CallbackResponse{TransactionID: tx.ID()}, err
	}

	if !c.Transaction.Status().IsTerminal() {
		return dto.CallbackResponse{TransactionID: tx.ID(), Status: valueobject.ClientStatusWaiting3DS, Message: msgWaiting3DS}, nil
	}
	return dto.CallbackResponse{
		TransactionID: tx.ID(),
		Status:        c.Transaction.Status().ClientStatus(),
		Message:       terminalMessage(c.Transaction),
	}, nil
}
