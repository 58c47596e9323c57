package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/events"
)

const AggregateTypeTransaction = "Transaction"

// Event types published on the transaction topic.
const (
	TypeTransactionInitiated = "payment.transaction.initiated"
	TypeTransactionCompleted = "payment.transaction.completed"
	TypeTransactionFailed    = "payment.transaction.failed"
	TypeRefundCompleted      = "payment.transaction.refund_completed"
	TypeRefundFailed         = "payment.transaction.refund_failed"
)

// TransactionInitiatedPayload is emitted when a checkout session is opened.
type TransactionInitiatedPayload struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          string          `json:"type"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	RelatedID     uuid.UUID       `json:"related_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

func NewTransactionInitiated(p TransactionInitiatedPayload) events.DomainEvent {
	return newEvent(TypeTransactionInitiated, p.TransactionID, p)
}

// TransactionCompletedPayload is emitted once per transaction, by the caller
// that won the terminal transition.
type TransactionCompletedPayload struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          string          `json:"type"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	SellerID      *uuid.UUID      `json:"seller_id,omitempty"`
	RelatedID     uuid.UUID       `json:"related_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentID     string          `json:"payment_id"`
	Source        string          `json:"source"`
	CompletedAt   time.Time       `json:"completed_at"`
}

func NewTransactionCompleted(p TransactionCompletedPayload) events.DomainEvent {
	return newEvent(TypeTransactionCompleted, p.TransactionID, p)
}

// TransactionFailedPayload is emitted when the gateway reports a definitive failure.
type TransactionFailedPayload struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Type          string    `json:"type"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	RelatedID     uuid.UUID `json:"related_id"`
	ErrorKind     string    `json:"error_kind"`
	Source        string    `json:"source"`
}

func NewTransactionFailed(p TransactionFailedPayload) events.DomainEvent {
	return newEvent(TypeTransactionFailed, p.TransactionID, p)
}

// RefundPayload describes a refund attempt outcome.
type RefundPayload struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	Amount         decimal.Decimal `json:"amount"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	Currency       string          `json:"currency"`
	Error          string          `json:"error,omitempty"`
}

func NewRefundCompleted(p RefundPayload) events.DomainEvent {
	return newEvent(TypeRefundCompleted, p.TransactionID, p)
}

func NewRefundFailed(p RefundPayload) events.DomainEvent {
	return newEvent(TypeRefundFailed, p.TransactionID, p)
}

func newEvent(eventType string, transactionID uuid.UUID, payload any) events.DomainEvent {
	raw, _ := json.Marshal(payload)
	return events.NewBaseEvent(eventType, transactionID, AggregateTypeTransaction, raw)
}
