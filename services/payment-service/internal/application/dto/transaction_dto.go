package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Caller identifies who asks. Operators reaching the service over gRPC are admins.
type Caller struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Buyer carries the payer details the gateway needs at checkout.
type Buyer struct {
	Name  string
	Email string
	Phone string
	IP    string
}

// InitiateCheckoutRequest is the input DTO for starting a payment.
type InitiateCheckoutRequest struct {
	Type      string
	RelatedID uuid.UUID
	BuyerID   uuid.UUID
	Buyer     Buyer
}

// InitiateCheckoutResponse is the output DTO after a checkout session was opened.
type InitiateCheckoutResponse struct {
	TransactionID  uuid.UUID
	BasketID       string
	Token          string
	PaymentPageURL string
	Status         string
	Amount         decimal.Decimal
	Currency       string
	// Resumed is set when an outstanding session was returned instead of a new one.
	Resumed bool
}

// CallbackRequest is what the gateway pushed, normalized by the transport.
type CallbackRequest struct {
	Token    string
	BasketID string
}

// CallbackResponse reports how a callback was handled.
type CallbackResponse struct {
	TransactionID uuid.UUID
	Status        string
	Message       string
}

// CheckTransactionRequest is the input DTO for a client status poll.
type CheckTransactionRequest struct {
	TransactionID uuid.UUID
	Caller        Caller
}

// CheckStatusResponse is what the waiting client sees. Status is one of
// pending, waiting_3ds, completed or failed.
type CheckStatusResponse struct {
	TransactionID uuid.UUID
	Status        string
	PaymentStatus string
	Message       string
}

// GetTransactionRequest is the input DTO for reading one transaction.
type GetTransactionRequest struct {
	TransactionID uuid.UUID
	Caller        Caller
}

// RefundRequest is the input DTO for a refund. A zero amount refunds
// whatever has not been refunded yet.
type RefundRequest struct {
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	Caller        Caller
}

// CancelRequest is the input DTO for a same-day cancel.
type CancelRequest struct {
	TransactionID uuid.UUID
	Caller        Caller
}

// RefundResponse is the output DTO of refund and cancel.
type RefundResponse struct {
	TransactionID  uuid.UUID
	RefundStatus   string
	Requested      decimal.Decimal
	RefundedAmount decimal.Decimal
	Remaining      decimal.Decimal
	Message        string
}

// TransactionResponse is the output DTO for a transaction.
type TransactionResponse struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
	RefundedAt       *time.Time
	SellerID         *uuid.UUID
	CommissionRate   *decimal.Decimal
	CommissionAmount *decimal.Decimal
	SellerReceives   *decimal.Decimal
	ID               uuid.UUID
	BuyerID          uuid.UUID
	RelatedID        uuid.UUID
	Type             string
	Status           string
	ClientStatus     string
	Currency         string
	Description      string
	PaymentPageURL   string
	GatewayPaymentID string
	CompletionSource string
	ErrorKind        string
	EffectsStatus    string
	EffectsError     string
	RefundStatus     string
	Amount           decimal.Decimal
	PaidPrice        decimal.Decimal
	RefundedAmount   decimal.Decimal
	Version          int
}

// CheckRelatedRequest polls by the id of the booking instead of the transaction.
type CheckRelatedRequest struct {
	RelatedID uuid.UUID
	Caller    Caller
}
