package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
)

// Occasion is what a notification round is about.
type Occasion string

const (
	OccasionCompleted Occasion = "completed"
	OccasionFailed    Occasion = "failed"
	OccasionRefunded  Occasion = "refunded"
)

// NotificationFanout delivers one notification per resolved role. Roles
// without a recipient are skipped. Ids are deterministic, so dispatching the
// same occasion again stores nothing new.
type NotificationFanout struct {
	store     port.NotificationStore
	publisher port.NotificationPublisher
	adminID   uuid.UUID
	backOff   BackOffFactory
	logger    *slog.Logger
}

// NewNotificationFanout wires the fanout. publisher may be nil, in which case
// notifications are only stored. adminID may be uuid.Nil to skip admins.
func NewNotificationFanout(store port.NotificationStore, publisher port.NotificationPublisher, adminID uuid.UUID, backOff BackOffFactory, logger *slog.Logger) *NotificationFanout {
	if backOff == nil {
		backOff = DefaultBackOff
	}
	return &NotificationFanout{
		store:     store,
		publisher: publisher,
		adminID:   adminID,
		backOff:   backOff,
		logger:    logger,
	}
}

// Dispatch notifies every role of tx about occasion. With no roles given,
// the usual audience of the occasion is used.
func (f *NotificationFanout) Dispatch(ctx context.Context, tx model.Transaction, occasion Occasion, roles ...model.Role) error {
	if len(roles) == 0 {
		roles = defaultAudience(occasion)
	}

	var errs []error
	for _, role := range roles {
		recipient, ok := f.recipient(tx, role)
		if !ok {
			continue
		}
		n, ok := compose(tx, occasion, role, recipient)
		if !ok {
			continue
		}
		if err := f.deliver(ctx, n); err != nil {
			f.logger.Error("notification delivery failed",
				"transaction_id", tx.ID(),
				"notification_id", n.ID,
				"role", role,
				"error", err)
			errs = append(errs, fmt.Errorf("notify %s: %w", role, err))
		}
	}
	return errors.Join(errs...)
}

func (f *NotificationFanout) deliver(ctx context.Context, n model.Notification) error {
	return retry(ctx, f.backOff, func() error {
		created, err := f.store.Save(ctx, n)
		if err != nil {
			return fmt.Errorf("failed to save notification: %w", err)
		}
		if !created {
			f.logger.Debug("notification already stored", "notification_id", n.ID)
		}
		if f.publisher == nil {
			return nil
		}
		// Published on every attempt: a crash between save and publish must
		// not lose the message, and the workflow engine dedups on the id.
		if err := f.publisher.PublishNotification(ctx, n); err != nil {
			return fmt.Errorf("failed to publish notification: %w", err)
		}
		return nil
	})
}

// recipient resolves a role to at most one user.
func (f *NotificationFanout) recipient(tx model.Transaction, role model.Role) (uuid.UUID, bool) {
	switch role {
	case model.RoleBuyer:
		return tx.BuyerID(), true
	case model.RoleSeller:
		if !tx.HasSeller() || tx.SellerID() == tx.BuyerID() {
			return uuid.Nil, false
		}
		return tx.SellerID(), true
	case model.RoleAdmin:
		if f.adminID == uuid.Nil {
			return uuid.Nil, false
		}
		return f.adminID, true
	}
	return uuid.Nil, false
}

func defaultAudience(occasion Occasion) []model.Role {
	switch occasion {
	case OccasionCompleted:
		return []model.Role{model.RoleBuyer, model.RoleSeller, model.RoleAdmin}
	case OccasionRefunded:
		return []model.Role{model.RoleBuyer, model.RoleSeller}
	default:
		return []model.Role{model.RoleBuyer}
	}
}

func compose(tx model.Transaction, occasion Occasion, role model.Role, userID uuid.UUID) (model.Notification, bool) {
	n := model.Notification{
		UserID:        userID,
		Role:          role,
		TransactionID: tx.ID(),
		RelatedID:     tx.RelatedID(),
		Data: map[string]string{
			"transaction_id": tx.ID().String(),
			"type":           tx.Type().String(),
			"related_id":     tx.RelatedID().String(),
			"amount":         tx.Amount().String(),
		},
		CreatedAt: time.Now().UTC(),
	}
	what := tx.Description()
	if what == "" {
		what = tx.Type().String()
	}

	switch {
	case occasion == OccasionCompleted && role == model.RoleBuyer:
		n.Kind = model.NotificationPaymentCompleted
		n.Title = "Payment successful"
		n.Message = fmt.Sprintf("Your payment of %s for %s was successful.", tx.Amount(), what)
	case occasion == OccasionCompleted && role == model.RoleSeller:
		n.Kind = model.NotificationPaymentReceived
		n.Title = "Payment received"
		n.Message = fmt.Sprintf("You received a payment of %s for %s.", tx.Amount(), what)
		if c := tx.Commission(); c != nil {
			n.Data["seller_receives"] = c.SellerReceives.StringFixed(tx.Amount().Currency().MinorUnits())
			n.Data["commission"] = c.Commission.StringFixed(tx.Amount().Currency().MinorUnits())
		}
	case occasion == OccasionCompleted && role == model.RoleAdmin:
		n.Kind = model.NotificationAdminPayment
		n.Title = "New payment"
		n.Message = fmt.Sprintf("A %s payment of %s was completed.", tx.Type(), tx.Amount())
	case occasion == OccasionFailed && role == model.RoleBuyer:
		n.Kind = model.NotificationPaymentFailed
		n.Title = "Payment failed"
		n.Message = fmt.Sprintf("Your payment for %s could not be completed. %s", what, FriendlyGatewayMessage(tx.ErrorDetail()))
	case occasion == OccasionRefunded && (role == model.RoleBuyer || role == model.RoleSeller):
		refund := tx.Refund()
		n.Kind = model.NotificationRefundCompleted
		n.Title = "Refund completed"
		n.Message = fmt.Sprintf("A refund of %s %s for %s was completed.",
			refund.Requested.StringFixed(tx.Amount().Currency().MinorUnits()), tx.Amount().Currency().Code(), what)
		n.Data["refunded_amount"] = refund.Refunded.String()
	default:
		return model.Notification{}, false
	}

	n.ID = model.NotificationID(tx.ID(), notificationKey(tx, occasion, n.Kind), role)
	return n, true
}

// Partial refunds may happen more than once; each gets its own id.
func notificationKey(tx model.Transaction, occasion Occasion, kind string) string {
	if occasion == OccasionRefunded {
		return fmt.Sprintf("%s_v%d", kind, tx.Version())
	}
	return kind
}
