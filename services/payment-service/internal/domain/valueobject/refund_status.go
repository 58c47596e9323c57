package valueobject

import "fmt"

// RefundStatus is an overlay on a COMPLETED transaction. It never changes
// the transaction's own status.
type RefundStatus struct {
	value string
}

var (
	RefundStatusNone      = RefundStatus{"none"}
	RefundStatusPending   = RefundStatus{"pending"}
	RefundStatusCompleted = RefundStatus{"completed"}
	RefundStatusFailed    = RefundStatus{"failed"}
)

func NewRefundStatus(s string) (RefundStatus, error) {
	switch s {
	case "none", "":
		return RefundStatusNone, nil
	case "pending":
		return RefundStatusPending, nil
	case "completed":
		return RefundStatusCompleted, nil
	case "failed":
		return RefundStatusFailed, nil
	}
	return RefundStatus{}, fmt.Errorf("invalid refund status: %q", s)
}

func (s RefundStatus) String() string {
	if s.value == "" {
		return RefundStatusNone.value
	}
	return s.value
}
