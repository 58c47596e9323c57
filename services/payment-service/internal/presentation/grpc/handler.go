package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/auth"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/usecase"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
)

// operatorCaller checks the caller is staff. Operators act with admin
// rights on this API.
func operatorCaller(ctx context.Context) (dto.Caller, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return dto.Caller{}, status.Error(codes.Unauthenticated, "authentication required")
	}
	if !claims.HasRole(auth.RoleAdmin) && !claims.HasRole(auth.RoleOperator) {
		return dto.Caller{}, status.Error(codes.PermissionDenied, "insufficient permissions")
	}
	return dto.Caller{UserID: claims.UserID, IsAdmin: true}, nil
}

// Compile-time assertion that TransactionHandler implements TransactionServiceServer.
var _ TransactionServiceServer = (*TransactionHandler)(nil)

// TransactionHandler implements the operator TransactionService.
type TransactionHandler struct {
	UnimplementedTransactionServiceServer
	get     *usecase.GetTransaction
	check   *usecase.CheckTransaction
	refunds *usecase.RefundTransaction
	sweeper *usecase.EffectsSweeper

	logger *slog.Logger
}

func NewTransactionHandler(
	get *usecase.GetTransaction,
	check *usecase.CheckTransaction,
	refunds *usecase.RefundTransaction,
	sweeper *usecase.EffectsSweeper,
	logger *slog.Logger,
) *TransactionHandler {
	return &TransactionHandler{
		get:     get,
		check:   check,
		refunds: refunds,
		sweeper: sweeper,

		logger: logger}
}

// Message types carried by the JSON codec.

type TransactionIDRequest struct {
	TransactionID string `json:"transaction_id"`
}

type RefundTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
	// Amount is optional; empty refunds the remaining balance.
	Amount string `json:"amount,omitempty"`
}

type TransactionMsg struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	Status           string `json:"status"`
	ClientStatus     string `json:"client_status"`
	BuyerID          string `json:"buyer_id"`
	SellerID         string `json:"seller_id,omitempty"`
	RelatedID        string `json:"related_id"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	Description      string `json:"description,omitempty"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	PaidPrice        string `json:"paid_price"`
	CommissionAmount string `json:"commission_amount,omitempty"`
	SellerReceives   string `json:"seller_receives,omitempty"`
	CompletionSource string `json:"completion_source"`
	ErrorKind        string `json:"error_kind,omitempty"`
	EffectsStatus    string `json:"effects_status,omitempty"`
	EffectsError     string `json:"effects_error,omitempty"`
	RefundStatus     string `json:"refund_status"`
	RefundedAmount   string `json:"refunded_amount"`
	RefundedAt       string `json:"refunded_at,omitempty"`
	Version          int32  `json:"version"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
	CompletedAt      string `json:"completed_at,omitempty"`
}

type CheckStatusMsg struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Message       string `json:"message"`
}

type RefundMsg struct {
	TransactionID  string `json:"transaction_id"`
	RefundStatus   string `json:"refund_status"`
	Requested      string `json:"requested"`
	RefundedAmount string `json:"refunded_amount"`
	Remaining      string `json:"remaining"`
	Message        string `json:"message"`
}

type ResumeEffectsMsg struct {
	TransactionID string `json:"transaction_id"`
	EffectsStatus string `json:"effects_status"`
	Message       string `json:"message"`
}

func (h *TransactionHandler) GetTransaction(ctx context.Context, req *TransactionIDRequest) (*TransactionMsg, error) {
	caller, id, err := h.parse(ctx, req)
	if err != nil {
		return nil, err
	}
	result, err := h.get.Execute(ctx, dto.GetTransactionRequest{TransactionID: id, Caller: caller})
	if err != nil {
		return nil, h.toStatus("get", err)
	}
	return toTransactionMsg(result), nil
}

func (h *TransactionHandler) CheckTransaction(ctx context.Context, req *TransactionIDRequest) (*CheckStatusMsg, error) {
	caller, id, err := h.parse(ctx, req)
	if err != nil {
		return nil, err
	}
	result, err := h.check.Execute(ctx, dto.CheckTransactionRequest{TransactionID: id, Caller: caller})
	if err != nil {
		return nil, h.toStatus("check", err)
	}
	return &CheckStatusMsg{
		TransactionID: result.TransactionID.String(),
		Status:        result.Status,
		PaymentStatus: result.PaymentStatus,
		Message:       result.Message,
	}, nil
}

func (h *TransactionHandler) RefundTransaction(ctx context.Context, req *RefundTransactionRequest) (*RefundMsg, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	caller, id, err := h.parse(ctx, &TransactionIDRequest{TransactionID: req.TransactionID})
	if err != nil {
		return nil, err
	}
	amount := decimal.Zero
	if req.Amount != "" {
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid amount: %v", err)
		}
		if !amount.IsPositive() {
			return nil, status.Error(codes.InvalidArgument, "amount must be positive")
		}
	}

	result, err := h.refunds.Refund(ctx, dto.RefundRequest{TransactionID: id, Amount: amount, Caller: caller})
	return h.refundReply("refund", result, err)
}

func (h *TransactionHandler) CancelTransaction(ctx context.Context, req *TransactionIDRequest) (*RefundMsg, error) {
	caller, id, err := h.parse(ctx, req)
	if err != nil {
		return nil, err
	}
	result, err := h.refunds.Cancel(ctx, dto.CancelRequest{TransactionID: id, Caller: caller})
	return h.refundReply("cancel", result, err)
}

// ResumeEffects reapplies the side effects of a completed transaction whose
// bookkeeping was left unfinished, including effects parked for manual
// attention. It is a no-op when nothing is pending.
func (h *TransactionHandler) ResumeEffects(ctx context.Context, req *TransactionIDRequest) (*ResumeEffectsMsg, error) {
	_, id, err := h.parse(ctx, req)
	if err != nil {
		return nil, err
	}
	tx, err := h.sweeper.ForceResume(ctx, id)
	if err != nil {
		return nil, h.toStatus("resume_effects", err)
	}
	if tx.EffectsBlocked() {
		return &ResumeEffectsMsg{
			TransactionID: id.String(),
			EffectsStatus: usecase.EffectsStatus(tx),
			Message:       "side effects still need attention: " + tx.EffectsError(),
		}, nil
	}
	h.logger.Info("side effects resumed by operator", "transaction_id", id)
	return &ResumeEffectsMsg{TransactionID: id.String(), EffectsStatus: usecase.EffectsStatus(tx), Message: "side effects applied"}, nil
}

func (h *TransactionHandler) parse(ctx context.Context, req *TransactionIDRequest) (dto.Caller, uuid.UUID, error) {
	caller, err := operatorCaller(ctx)
	if err != nil {
		return dto.Caller{}, uuid.Nil, err
	}
	if req == nil {
		return dto.Caller{}, uuid.Nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return dto.Caller{}, uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid transaction_id: %v", err)
	}
	return caller, id, nil
}

// refundReply reports an unknown gateway outcome as Unavailable. The
// refund stays pending and is retried later.
func (h *TransactionHandler) refundReply(op string, r dto.RefundResponse, err error) (*RefundMsg, error) {
	if err != nil {
		return nil, h.toStatus(op, err)
	}
	return &RefundMsg{
		TransactionID:  r.TransactionID.String(),
		RefundStatus:   r.RefundStatus,
		Requested:      r.Requested.String(),
		RefundedAmount: r.RefundedAmount.String(),
		Remaining:      r.Remaining.String(),
		Message:        r.Message,
	}, nil
}

func (h *TransactionHandler) toStatus(op string, err error) error {
	code, msg := codeFor(err)
	if code == codes.Internal {
		h.logger.Error("handler error", "op", op, "error", err)
	}
	return status.Error(code, msg)
}

func codeFor(err error) (codes.Code, string) {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidRefundAmount):
		return codes.InvalidArgument, err.Error()
	case errors.Is(err, model.ErrForbidden):
		return codes.PermissionDenied, "insufficient permissions"
	case errors.Is(err, model.ErrTransactionNotFound):
		return codes.NotFound, "transaction not found"
	case errors.Is(err, model.ErrRefundInProgress),
		errors.Is(err, model.ErrConcurrentModification):
		return codes.Aborted, "a refund is already in progress"
	case errors.Is(err, model.ErrNotRefundable),
		errors.Is(err, model.ErrInvalidStatusTransition):
		return codes.FailedPrecondition, "operation not allowed in the current state"
	case errors.Is(err, model.ErrPaymentFailed):
		return codes.FailedPrecondition, "the payment provider rejected the request"
	case errors.Is(err, model.ErrGatewayUnavailable):
		return codes.Unavailable, "payment provider unavailable, retry later"
	case errors.Is(err, model.ErrPartialSideEffectFailure):
		return codes.Unavailable, "side effects incomplete, retry later"
	}
	return codes.Internal, "internal error"
}

func toTransactionMsg(r dto.TransactionResponse) *TransactionMsg {
	msg := &TransactionMsg{
		ID:               r.ID.String(),
		Type:             r.Type,
		Status:           r.Status,
		ClientStatus:     r.ClientStatus,
		BuyerID:          r.BuyerID.String(),
		RelatedID:        r.RelatedID.String(),
		Amount:           r.Amount.StringFixed(2),
		Currency:         r.Currency,
		Description:      r.Description,
		GatewayPaymentID: r.GatewayPaymentID,
		PaidPrice:        r.PaidPrice.StringFixed(2),
		CompletionSource: r.CompletionSource,
		ErrorKind:        r.ErrorKind,
		EffectsStatus:    r.EffectsStatus,
		EffectsError:     r.EffectsError,
		RefundStatus:     r.RefundStatus,
		RefundedAmount:   r.RefundedAmount.StringFixed(2),
		Version:          int32(r.Version), //nolint:gosec // bounded
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        r.UpdatedAt.Format(time.RFC3339),
	}
	if r.SellerID != nil {
		msg.SellerID = r.SellerID.String()
	}
	if r.CommissionAmount != nil {
		msg.CommissionAmount = r.CommissionAmount.StringFixed(2)
	}
	if r.SellerReceives != nil {
		msg.SellerReceives = r.SellerReceives.StringFixed(2)
	}
	if r.RefundedAt != nil {
		msg.RefundedAt = r.RefundedAt.Format(time.RFC3339)
	}
	if r.CompletedAt != nil {
		msg.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return msg
}
