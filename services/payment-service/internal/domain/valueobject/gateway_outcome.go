package valueobject

import "github.com/shopspring/decimal"

// GatewayOutcome is the canonical reading of a gateway result. It is one of
// OutcomeCompleted, OutcomeWaiting or OutcomeFailed.
type GatewayOutcome interface {
	// Status is the transaction status the outcome leads to.
	Status() TransactionStatus
	isGatewayOutcome()
}

// OutcomeCompleted means the gateway captured the payment.
type OutcomeCompleted struct {
	PaymentID string
	PaidPrice decimal.Decimal
}

// OutcomeWaiting means the 3-D Secure challenge is still in flight, or the
// gateway answer was not conclusive. It is never an error.
type OutcomeWaiting struct {
	Reason string
}

// OutcomeFailed means the gateway reported a definitive failure.
type OutcomeFailed struct {
	Kind   string
	Detail string
}

// Error kinds stored on failed transactions.
const (
	ErrorKindPaymentFailed = "payment_failed"
	ErrorKindThreeDSFailed = "three_ds_failed"
	// ErrorKindExpired marks a checkout abandoned past the wait window whose
	// token the gateway no longer knows.
	ErrorKindExpired       = "expired"
)

func (OutcomeCompleted) Status() TransactionStatus { return TransactionStatusCompleted }
func (OutcomeWaiting) Status() TransactionStatus   { return TransactionStatusWaiting3DS }
func (OutcomeFailed) Status() TransactionStatus    { return TransactionStatusFailed }

func (OutcomeCompleted) isGatewayOutcome() {}
func (OutcomeWaiting) isGatewayOutcome()   {}
func (OutcomeFailed) isGatewayOutcome()    {}
