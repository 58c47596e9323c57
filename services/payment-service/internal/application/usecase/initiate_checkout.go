package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/service"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// ErrInvalidRequest wraps input validation failures.
var ErrInvalidRequest = errors.New("invalid request")

// CheckoutSettings configures InitiateCheckout.
type CheckoutSettings struct {
	CallbackURL    string
	GatewayTimeout time.Duration
	MaxWait        time.Duration
}

// InitiateCheckout opens a gateway checkout for a bookable object and
// records the transaction in PENDING_3DS.
type InitiateCheckout struct {
	repo       port.TransactionRepository
	bookings   port.BookingRepository
	gateway    port.PaymentGateway
	commission *service.CommissionCalculator
	engine     *ApplyCompletion
	metrics    *Metrics
	logger     *slog.Logger
	settings   CheckoutSettings
}

func NewInitiateCheckout(
	repo port.TransactionRepository,
	bookings port.BookingRepository,
	gateway port.PaymentGateway,
	commission *service.CommissionCalculator,
	engine *ApplyCompletion,
	metrics *Metrics,
	logger *slog.Logger,
	settings CheckoutSettings,
) *InitiateCheckout {
	if settings.GatewayTimeout <= 0 {
		settings.GatewayTimeout = DefaultGatewayTimeout
	}
	if settings.MaxWait <= 0 {
		settings.MaxWait = DefaultMaxWait
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &InitiateCheckout{
		repo:       repo,
		bookings:   bookings,
		gateway:    gateway,
		commission: commission,
		engine:     engine,
		metrics:    metrics,
		logger:     logger,
		settings:   settings,
	}
}

func (uc *InitiateCheckout) Execute(ctx context.Context, req dto.InitiateCheckoutRequest) (dto.InitiateCheckoutResponse, error) {
	typ, err := valueobject.NewTransactionType(req.Type)
	if err != nil {
		return dto.InitiateCheckoutResponse{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.RelatedID == uuid.Nil || req.BuyerID == uuid.Nil {
		return dto.InitiateCheckoutResponse{}, fmt.Errorf("%w: related id and buyer id are required", ErrInvalidRequest)
	}

	resp, resumed, err := uc.resumeOutstanding(ctx, req.RelatedID, req.BuyerID)
	if err != nil || resumed {
		return resp, err
	}

	purchase, err := uc.bookings.QuotePurchase(ctx, typ, req.RelatedID, req.BuyerID)
	if err != nil {
		return dto.InitiateCheckoutResponse{}, fmt.Errorf("failed to quote purchase: %w", err)
	}

	params := model.NewTransactionParams{
		Type:        typ,
		BuyerID:     req.BuyerID,
		SellerID:    purchase.SellerID,
		RelatedID:   req.RelatedID,
		Amount:      purchase.Amount,
		Description: purchase.Description,
	}
	if purchase.SellerID != uuid.Nil {
		split, err := uc.commission.SplitFor(typ, purchase.Amount)
		if err != nil {
			return dto.InitiateCheckoutResponse{}, fmt.Errorf("failed to compute commission: %w", err)
		}
		params.Commission = &split
	}

	now := uc.engine.now()
	tx, err := model.NewTransaction(params, now)
	if err != nil {
		return dto.InitiateCheckoutResponse{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	basketID := typ.BasketID(tx.ID())
	callCtx, cancel := context.WithTimeout(ctx, uc.settings.GatewayTimeout)
	started := time.Now()
	session, err := uc.gateway.InitCheckout(callCtx, port.CheckoutRequest{
		Buyer: port.Buyer{
			ID:    req.BuyerID.String(),
			Name:  req.Buyer.Name,
			Email: req.Buyer.Email,
			Phone: req.Buyer.Phone,
			IP:    req.Buyer.IP,
		},
		Amount:      purchase.Amount,
		BasketID:    basketID,
		ItemName:    purchase.Description,
		CallbackURL: uc.settings.CallbackURL,
	})
	cancel()
	uc.metrics.gatewayCall(ctx, "init_checkout", started, err)
	if err != nil {
		return dto.InitiateCheckoutResponse{}, fmt.Errorf("failed to initialize checkout: %w", err)
	}

	tx, err = tx.AttachCheckout(session.Token, session.PaymentPageURL, now)
	if err != nil {
		return dto.InitiateCheckoutResponse{}, fmt.Errorf("failed to attach checkout: %w", err)
	}
	if err := uc.repo.Create(ctx, tx); err != nil {
		if errors.Is(err, model.ErrActiveTransactionExists) {
			// A concurrent initiation for the same booking won; hand out its session.
			resp, resumed, resumeErr := uc.resumeOutstanding(ctx, req.RelatedID, req.BuyerID)
			if resumeErr == nil && resumed {
				return resp, nil
			}
		}
		return dto.InitiateCheckoutResponse{}, fmt.Errorf("failed to save transaction: %w", err)
	}

	uc.logger.Info("checkout initiated",
		"transaction_id", tx.ID(),
		"type", typ.String(),
		"related_id", req.RelatedID,
		"amount", tx.Amount().String())

	return checkoutResponse(tx, false), nil
}

// resumeOutstanding looks at the active transaction of the booking, if any.
// A paid booking is rejected, a fresh session of the same buyer is handed
// out again, and a session abandoned past the wait window is closed so a new
// one can start.
func (uc *InitiateCheckout) resumeOutstanding(ctx context.Context, relatedID, buyerID uuid.UUID) (dto.InitiateCheckoutResponse, bool, error) {
	existing, err := uc.repo.FindActiveByRelated(ctx, relatedID)
	if errors.Is(err, model.ErrTransactionNotFound) {
		return dto.InitiateCheckoutResponse{}, false, nil
	}
	if err != nil {
		return dto.InitiateCheckoutResponse{}, false, fmt.Errorf("failed to load active transaction: %w", err)
	}

	if existing.Status() == valueobject.TransactionStatusCompleted {
		return dto.InitiateCheckoutResponse{}, false, model.ErrAlreadyPaid
	}
	if existing.BuyerID() != buyerID {
		return dto.InitiateCheckoutResponse{}, false, model.ErrActiveTransactionExists
	}
	if uc.engine.now().Sub(existing.CreatedAt()) <= uc.settings.MaxWait {
		return checkoutResponse(existing, true), true, nil
	}

	closed, err := uc.closeAbandoned(ctx, existing)
	if err != nil {
		return dto.InitiateCheckoutResponse{}, false, err
	}
	switch closed.Status() {
	case valueobject.TransactionStatusCompleted:
		return dto.InitiateCheckoutResponse{}, false, model.ErrAlreadyPaid
	case valueobject.TransactionStatusFailed:
		return dto.InitiateCheckoutResponse{}, false, nil
	}
	// The gateway still holds a live session.
	return checkoutResponse(closed, true), true, nil
}

// closeAbandoned reconciles a stale session with the gateway. If the gateway
// no longer knows the token the attempt can never complete and is failed.
func (uc *InitiateCheckout) closeAbandoned(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.settings.GatewayTimeout)
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
	if err != nil && !errors.Is(err, model.ErrPartialSideEffectFailure) {
		return tx, fmt.Errorf("failed to reconcile abandoned checkout: %w", err)
	}
	if c.Transaction.Status().IsTerminal() || !errors.Is(resultErr, model.ErrInvalidOrExpiredToken) {
		return c.Transaction, nil
	}

	c, err = uc.engine.Execute(ctx, ApplyCompletionRequest{
		TransactionID: tx.ID(),
		Source:        valueobject.CompletionSourceExpiry,
		Outcome: valueobject.OutcomeFailed{
			Kind:   valueobject.ErrorKindExpired,
			Detail: "checkout session expired",
		},
	})
	if err != nil && !errors.Is(err, model.ErrPartialSideEffectFailure) {
		return tx, fmt.Errorf("failed to expire checkout: %w", err)
	}
	if c.Transitioned {
		uc.logger.Info("abandoned checkout expired", "transaction_id", tx.ID())
	}
	return c.Transaction, nil
}

func checkoutResponse(tx model.Transaction, resumed bool) dto.InitiateCheckoutResponse {
	return dto.InitiateCheckoutResponse{
		TransactionID:  tx.ID(),
		BasketID:       tx.Type().BasketID(tx.ID()),
		Token:          tx.GatewayToken(),
		PaymentPageURL: tx.PaymentPageURL(),
		Status:         tx.Status().ClientStatus(),
		Amount:         tx.Amount().Amount(),
		Currency:       tx.Amount().Currency().Code(),
		Resumed:        resumed,
	}
}
