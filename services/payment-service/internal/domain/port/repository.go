package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// TransactionRepository is the transaction store. Every status change goes
// through a conditional write evaluated by the store itself, so concurrent
// callers in different processes cannot both win.
type TransactionRepository interface {
	// Create inserts a new transaction and its pending domain events.
	// Returns model.ErrActiveTransactionExists when another non-failed
	// transaction holds the same related id.
	Create(ctx context.Context, tx model.Transaction) error
	// FindByID returns model.ErrTransactionNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (model.Transaction, error)
	// FindActiveByRelated returns the newest non-failed transaction for a
	// bookable object, or model.ErrTransactionNotFound.
	FindActiveByRelated(ctx context.Context, relatedID uuid.UUID) (model.Transaction, error)
	// TransitionTerminal persists a COMPLETED or FAILED transaction only if
	// the stored status is still non-terminal. It reports whether this call
	// won; a loser must reload the record.
	TransitionTerminal(ctx context.Context, tx model.Transaction) (bool, error)
	// ClaimEffects takes the side-effect lease of a completed transaction
	// when nobody holds it or the holder's lease expired.
	ClaimEffects(ctx context.Context, id uuid.UUID, now time.Time, lease time.Duration) (bool, error)
	// ReleaseEffects drops the lease after a failed attempt so the next
	// caller may resume right away.
	ReleaseEffects(ctx context.Context, id uuid.UUID) error
	// MarkEffectsApplied records that side effects and notifications are done.
	MarkEffectsApplied(ctx context.Context, id uuid.UUID, now time.Time) error
	// MarkEffectsFailed parks the side effects of a completed transaction
	// after a failure no retry can fix. Claims and sweeps skip it until
	// UnblockEffects clears the marker.
	MarkEffectsFailed(ctx context.Context, id uuid.UUID, now time.Time, reason string) error
	// UnblockEffects clears a failure marker set by MarkEffectsFailed.
	UnblockEffects(ctx context.Context, id uuid.UUID) error
	// FindEffectsPending lists completed transactions whose side effects are
	// not applied and whose lease was taken before claimedBefore.
	FindEffectsPending(ctx context.Context, claimedBefore time.Time, limit int) ([]model.Transaction, error)
	// SaveRefund persists the refund overlay if the stored version still
	// equals expectedVersion, else model.ErrConcurrentModification.
	SaveRefund(ctx context.Context, tx model.Transaction, expectedVersion int) error
}

// BookingRepository reads and confirms the bookable objects a transaction pays for.
// Every mutating method is idempotent.
type BookingRepository interface {
	// QuotePurchase prices a bookable object for buyer and resolves the seller.
	QuotePurchase(ctx context.Context, typ valueobject.TransactionType, relatedID, buyerID uuid.UUID) (model.Purchase, error)

	GetEventParticipation(ctx context.Context, id uuid.UUID) (model.EventParticipation, error)
	// AddEventParticipant adds userID to the event's participant set and
	// increments the participant counter only when the user was not there yet.
	AddEventParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	ConfirmEventParticipation(ctx context.Context, participationID, transactionID uuid.UUID) error

	GetFacilityReservation(ctx context.Context, id uuid.UUID) (model.FacilityReservation, error)
	ConfirmFacilityReservation(ctx context.Context, id, transactionID uuid.UUID) error

	GetMembership(ctx context.Context, id uuid.UUID) (model.Membership, error)
	// ActivateMembership moves pending_payment to active. Dates are left as stored.
	ActivateMembership(ctx context.Context, id, transactionID uuid.UUID) error

	GetPersonReservation(ctx context.Context, id uuid.UUID) (model.PersonReservation, error)
	ConfirmPersonReservation(ctx context.Context, id, transactionID uuid.UUID) error

	// RecordCommission upserts the commission entry keyed by transaction id.
	RecordCommission(ctx context.Context, entry model.CommissionEntry) error
}

// CalendarRepository stores calendar entries.
type CalendarRepository interface {
	// UpsertEntry inserts the entry unless one with the same id exists.
	UpsertEntry(ctx context.Context, entry model.CalendarEntry) error
}

// NotificationStore persists notifications.
type NotificationStore interface {
	// Save inserts n unless a notification with the same id exists and
	// reports whether it was inserted.
	Save(ctx context.Context, n model.Notification) (bool, error)
}

// NotificationPublisher forwards notifications to the workflow engine.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n model.Notification) error
}
