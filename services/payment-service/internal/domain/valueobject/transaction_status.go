package valueobject

import "fmt"

// TransactionStatus is the lifecycle state of a payment attempt.
type TransactionStatus struct {
	value string
}

var (
	TransactionStatusInit       = TransactionStatus{"INIT"}
	TransactionStatusPending3DS = TransactionStatus{"PENDING_3DS"}
	TransactionStatusWaiting3DS = TransactionStatus{"WAITING_3DS"}
	TransactionStatusCompleted  = TransactionStatus{"COMPLETED"}
	TransactionStatusFailed     = TransactionStatus{"FAILED"}
)

var validTransactionStatuses = map[string]TransactionStatus{
	"INIT":        TransactionStatusInit,
	"PENDING_3DS": TransactionStatusPending3DS,
	"WAITING_3DS": TransactionStatusWaiting3DS,
	"COMPLETED":   TransactionStatusCompleted,
	"FAILED":      TransactionStatusFailed,
}

// NonTerminalStatuses lists every status a terminal transition may start from.
func NonTerminalStatuses() []TransactionStatus {
	return []TransactionStatus{TransactionStatusInit, TransactionStatusPending3DS, TransactionStatusWaiting3DS}
}

// NewTransactionStatus validates and creates a TransactionStatus from a string.
func NewTransactionStatus(s string) (TransactionStatus, error) {
	if status, ok := validTransactionStatuses[s]; ok {
		return status, nil
	}
	return TransactionStatus{}, fmt.Errorf("invalid transaction status: %q", s)
}

func (s TransactionStatus) String() string { return s.value }

// IsTerminal reports COMPLETED or FAILED. Terminal statuses never change again.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

func (s TransactionStatus) IsZero() bool { return s.value == "" }

// Client statuses are the only values a paying user ever sees.
const (
	ClientStatusPending    = "pending"
	ClientStatusWaiting3DS = "waiting_3ds"
	ClientStatusCompleted  = "completed"
	ClientStatusFailed     = "failed"
)

// ClientStatus maps the lifecycle state onto the user-facing vocabulary.
func (s TransactionStatus) ClientStatus() string {
	switch s {
	case TransactionStatusCompleted:
		return ClientStatusCompleted
	case TransactionStatusFailed:
		return ClientStatusFailed
	case TransactionStatusWaiting3DS:
		return ClientStatusWaiting3DS
	default:
		return ClientStatusPending
	}
}
