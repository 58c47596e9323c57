package port

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
)

// PaymentGateway is the external card-payment gateway hosting the 3-D Secure checkout.
type PaymentGateway interface {
	// InitCheckout opens a hosted checkout session for basketID.
	InitCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// RetrieveResult reads the current result of a checkout session.
	RetrieveResult(ctx context.Context, token string) (CheckoutResult, error)
	// Refund returns amount of a captured payment to the buyer.
	Refund(ctx context.Context, paymentID string, amount money.Money) (RefundResult, error)
	// Cancel voids a captured payment on the day it was taken.
	Cancel(ctx context.Context, paymentID string) (CancelResult, error)
}

// Buyer is the payer identity the gateway requires.
type Buyer struct {
	ID    string
	Name  string
	Email string
	Phone string
	IP    string
}

type CheckoutRequest struct {
	Buyer       Buyer
	Amount      money.Money
	BasketID    string
	ItemName    string
	CallbackURL string
}

type CheckoutSession struct {
	Token          string
	PaymentPageURL string
}

// Raw gateway status values.
const (
	GatewayStatusSuccess = "success"
	GatewayStatusFailure = "failure"
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailure = "FAILURE"
)

// CheckoutResult is the gateway's answer to RetrieveResult, fields as reported.
// Empty strings mean the field was absent.
type CheckoutResult struct {
	GatewayStatus string
	PaymentStatus string
	PaymentID     string
	PaidPrice     decimal.Decimal
	Currency      string
	BasketID      string
	ErrorCode     string
	ErrorMessage  string
	Raw           map[string]any
}

type RefundResult struct {
	Status       string
	ErrorMessage string
}

type CancelResult struct {
	Status       string
	ErrorMessage string
}

// Succeeded reports a "success" status from a refund.
func (r RefundResult) Succeeded() bool { return r.Status == GatewayStatusSuccess }

// Succeeded reports a "success" status from a cancel.
func (r CancelResult) Succeeded() bool { return r.Status == GatewayStatusSuccess }

// GatewayErrorKind classifies gateway call failures.
type GatewayErrorKind string

const (
	// GatewayErrUnavailable covers network errors, timeouts and 5xx answers.
	GatewayErrUnavailable GatewayErrorKind = "unavailable"
	// GatewayErrInvalidToken means the gateway does not know the token (any more).
	GatewayErrInvalidToken GatewayErrorKind = "invalid_token"
	// GatewayErrRejected means the gateway refused the request itself.
	GatewayErrRejected GatewayErrorKind = "rejected"
)

// GatewayError is returned by PaymentGateway implementations.
type GatewayError struct {
	Kind    GatewayErrorKind
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway %s: %s", e.Op, e.Kind)
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Is maps the kind onto the domain sentinels.
func (e *GatewayError) Is(target error) bool {
	switch e.Kind {
	case GatewayErrUnavailable:
		return target == model.ErrGatewayUnavailable
	case GatewayErrInvalidToken:
		return target == model.ErrInvalidOrExpiredToken
	case GatewayErrRejected:
		return target == model.ErrPaymentFailed
	}
	return false
}
