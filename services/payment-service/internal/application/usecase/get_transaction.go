package usecase

import (
	"context"
	"fmt"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// GetTransaction handles retrieval of a single transaction.
type GetTransaction struct {
	repo port.TransactionRepository
}

func NewGetTransaction(repo port.TransactionRepository) *GetTransaction {
	return &GetTransaction{repo: repo}
}

func (uc *GetTransaction) Execute(ctx context.Context, req dto.GetTransactionRequest) (dto.TransactionResponse, error) {
	tx, err := uc.repo.FindByID(ctx, req.TransactionID)
	if err != nil {
		return dto.TransactionResponse{}, fmt.Errorf("failed to find transaction: %w", err)
	}
	if err := authorize(req.Caller, tx); err != nil {
		return dto.TransactionResponse{}, err
	}
	return toTransactionResponse(tx), nil
}

// Side-effect states reported to operators.
const (
	EffectsStatusPending        = "pending"
	EffectsStatusApplied        = "applied"
	EffectsStatusNeedsAttention = "needs_attention"
)

// EffectsStatus summarizes the side effects of a completed transaction. It
// is empty for any other status.
func EffectsStatus(tx model.Transaction) string {
	switch {
	case tx.Status() != valueobject.TransactionStatusCompleted:
		return ""
	case tx.EffectsAppliedAt() != nil:
		return EffectsStatusApplied
	case tx.EffectsBlocked():
		return EffectsStatusNeedsAttention
	default:
		return EffectsStatusPending
	}
}

func toTransactionResponse(tx model.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:               tx.ID(),
		Type:             tx.Type().String(),
		Status:           tx.Status().String(),
		ClientStatus:     tx.Status().ClientStatus(),
		BuyerID:          tx.BuyerID(),
		RelatedID:        tx.RelatedID(),
		Amount:           tx.Amount().Amount(),
		Currency:         tx.Amount().Currency().Code(),
		Description:      tx.Description(),
		PaymentPageURL:   tx.PaymentPageURL(),
		GatewayPaymentID: tx.GatewayPaymentID(),
		PaidPrice:        tx.PaidPrice(),
		CompletionSource: tx.CompletionSource().String(),
		ErrorKind:        tx.ErrorKind(),
		EffectsStatus:    EffectsStatus(tx),
		EffectsError:     tx.EffectsError(),
		RefundStatus:     tx.Refund().Status.String(),
		RefundedAmount:   tx.Refund().Refunded,
		RefundedAt:       tx.Refund().RefundedAt,
		Version:          tx.Version(),
		CreatedAt:        tx.CreatedAt(),
		UpdatedAt:        tx.UpdatedAt(),
		CompletedAt:      tx.CompletedAt(),
	}
	if tx.HasSeller() {
		seller := tx.SellerID()
		resp.SellerID = &seller
	}
	if c := tx.Commission(); c != nil {
		rate, commission, sellerReceives := c.Rate, c.Commission, c.SellerReceives
		resp.CommissionRate = &rate
		resp.CommissionAmount = &commission
		resp.SellerReceives = &sellerReceives
	}
	return resp
}
