package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is a notification audience for a transaction.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Notification kinds.
const (
	NotificationPaymentCompleted = "payment_completed"
	NotificationPaymentReceived  = "payment_received"
	NotificationPaymentFailed    = "payment_failed"
	NotificationAdminPayment     = "admin_payment"
	NotificationRefundCompleted  = "refund_completed"
)

// Notification is one message to one recipient. ID is deterministic per
// transaction, kind and role so a re-dispatch does not duplicate it.
type Notification struct {
	ID            string
	UserID        uuid.UUID
	Role          Role
	Kind          string
	Title         string
	Message       string
	TransactionID uuid.UUID
	RelatedID     uuid.UUID
	Data          map[string]string
	CreatedAt     time.Time
}

// NotificationID builds the deterministic id of a notification.
func NotificationID(transactionID uuid.UUID, kind string, role Role) string {
	return fmt.Sprintf("notif_%s_%s_%s", transactionID, kind, role)
}
