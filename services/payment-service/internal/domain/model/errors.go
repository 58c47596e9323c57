package model

import "errors"

// Sentinel errors shared by the payment use cases. Gateway adapters wrap
// their failures so that errors.Is matches the gateway sentinels.
var (
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrGatewayUnavailable       = errors.New("payment gateway unavailable")
	ErrInvalidOrExpiredToken    = errors.New("invalid or expired gateway token")
	ErrPaymentFailed            = errors.New("payment failed")
	ErrPartialSideEffectFailure = errors.New("side effects partially applied")

	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrConcurrentModification  = errors.New("concurrent modification")
	ErrNotRefundable           = errors.New("transaction is not refundable")
	ErrInvalidRefundAmount     = errors.New("invalid refund amount")
	ErrRefundInProgress        = errors.New("refund already in progress")

	ErrBookingNotFound   = errors.New("booking record not found")
	ErrBookingNotPayable = errors.New("booking is no longer payable")
	ErrAlreadyPaid       = errors.New("already paid")
	ErrEventFull         = errors.New("event is full")
	ErrForbidden         = errors.New("forbidden")

	// ErrActiveTransactionExists means another non-failed transaction already
	// exists for the same bookable object.
	ErrActiveTransactionExists = errors.New("an active transaction exists for this booking")
)
