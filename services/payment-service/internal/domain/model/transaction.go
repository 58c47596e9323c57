package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/events"
	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/event"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// RefundPendingTimeout is how long a pending refund blocks another attempt.
// A refund stuck longer than this (e.g. the process died mid-call) may be retried.
const RefundPendingTimeout = 10 * time.Minute

// Transaction is the root aggregate of the payment context: one payment
// attempt for one bookable object, from checkout to its terminal outcome.
type Transaction struct {
	id               uuid.UUID
	txType           valueobject.TransactionType
	buyerID          uuid.UUID
	sellerID         uuid.UUID // uuid.Nil for platform-direct purchases
	relatedID        uuid.UUID
	amount           money.Money
	commission       *valueobject.CommissionSplit
	description      string
	gatewayToken     string
	paymentPageURL   string
	gatewayPaymentID string
	paidPrice        decimal.Decimal
	status           valueobject.TransactionStatus
	completionSource valueobject.CompletionSource
	errorKind        string
	errorDetail      string
	effectsClaimedAt *time.Time
	effectsAppliedAt *time.Time
	effectsFailedAt  *time.Time
	effectsError     string
	refund           RefundState
	version          int
	createdAt        time.Time
	updatedAt        time.Time
	completedAt      *time.Time
	domainEvents     []events.DomainEvent
}

// RefundState is the refund overlay carried by a completed transaction.
type RefundState struct {
	Status      valueobject.RefundStatus
	Refunded    decimal.Decimal // cumulative amount refunded so far
	Requested   decimal.Decimal // amount of the current or last attempt
	LastError   string
	RequestedAt *time.Time
	RefundedAt  *time.Time
}

// NewTransactionParams are the inputs of a new checkout.
type NewTransactionParams struct {
	Type        valueobject.TransactionType
	BuyerID     uuid.UUID
	SellerID    uuid.UUID
	RelatedID   uuid.UUID
	Amount      money.Money
	Commission  *valueobject.CommissionSplit
	Description string
}

// NewTransaction creates a transaction in INIT status.
func NewTransaction(p NewTransactionParams, now time.Time) (Transaction, error) {
	if p.Type.IsZero() {
		return Transaction{}, fmt.Errorf("transaction type is required")
	}
	if p.BuyerID == uuid.Nil {
		return Transaction{}, fmt.Errorf("buyer ID is required")
	}
	if p.RelatedID == uuid.Nil {
		return Transaction{}, fmt.Errorf("related ID is required")
	}
	if !p.Amount.IsPositive() {
		return Transaction{}, fmt.Errorf("amount must be positive, got: %s", p.Amount.Amount())
	}
	if p.SellerID != uuid.Nil && p.Commission == nil {
		return Transaction{}, fmt.Errorf("commission split is required when a seller is present")
	}
	if p.SellerID == uuid.Nil && p.Commission != nil {
		return Transaction{}, fmt.Errorf("commission split requires a seller")
	}
	if p.Commission != nil && !p.Commission.Total().Equal(p.Amount.Amount()) {
		return Transaction{}, fmt.Errorf("commission split %s does not add up to %s", p.Commission, p.Amount)
	}

	id := uuid.New()
	tx := Transaction{
		id:               id,
		txType:           p.Type,
		buyerID:          p.BuyerID,
		sellerID:         p.SellerID,
		relatedID:        p.RelatedID,
		amount:           p.Amount,
		commission:       p.Commission,
		description:      p.Description,
		status:           valueobject.TransactionStatusInit,
		completionSource: valueobject.CompletionSourceNone,
		refund:           RefundState{Status: valueobject.RefundStatusNone},
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}

	tx.domainEvents = append(tx.domainEvents, event.NewTransactionInitiated(event.TransactionInitiatedPayload{
		TransactionID: id,
		Type:          p.Type.String(),
		BuyerID:       p.BuyerID,
		RelatedID:     p.RelatedID,
		Amount:        p.Amount.Amount(),
		Currency:      p.Amount.Currency().Code(),
	}))

	return tx, nil
}

// ReconstructParams carries every persisted field.
type ReconstructParams struct {
	ID               uuid.UUID
	Type             valueobject.TransactionType
	BuyerID          uuid.UUID
	SellerID         uuid.UUID
	RelatedID        uuid.UUID
	Amount           money.Money
	Commission       *valueobject.CommissionSplit
	Description      string
	GatewayToken     string
	PaymentPageURL   string
	GatewayPaymentID string
	PaidPrice        decimal.Decimal
	Status           valueobject.TransactionStatus
	CompletionSource valueobject.CompletionSource
	ErrorKind        string
	ErrorDetail      string
	EffectsClaimedAt *time.Time
	EffectsAppliedAt *time.Time
	EffectsFailedAt  *time.Time
	EffectsError     string
	Refund           RefundState
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// Reconstruct recreates a Transaction from persistence (no validation, no events).
func Reconstruct(p ReconstructParams) Transaction {
	return Transaction{
		id:               p.ID,
		txType:           p.Type,
		buyerID:          p.BuyerID,
		sellerID:         p.SellerID,
		relatedID:        p.RelatedID,
		amount:           p.Amount,
		commission:       p.Commission,
		description:      p.Description,
		gatewayToken:     p.GatewayToken,
		paymentPageURL:   p.PaymentPageURL,
		gatewayPaymentID: p.GatewayPaymentID,
		paidPrice:        p.PaidPrice,
		status:           p.Status,
		completionSource: p.CompletionSource,
		errorKind:        p.ErrorKind,
		errorDetail:      p.ErrorDetail,
		effectsClaimedAt: p.EffectsClaimedAt,
		effectsAppliedAt: p.EffectsAppliedAt,
		effectsFailedAt:  p.EffectsFailedAt,
		effectsError:     p.EffectsError,
		refund:           p.Refund,
		version:          p.Version,
		createdAt:        p.CreatedAt,
		updatedAt:        p.UpdatedAt,
		completedAt:      p.CompletedAt,
	}
}

func (t Transaction) next(now time.Time) Transaction {
	updated := t
	updated.updatedAt = now
	updated.version++
	updated.domainEvents = append([]events.DomainEvent{}, t.domainEvents...)
	return updated
}

// AttachCheckout records the gateway session and moves INIT to PENDING_3DS.
func (t Transaction) AttachCheckout(token, paymentPageURL string, now time.Time) (Transaction, error) {
	if t.status != valueobject.TransactionStatusInit {
		return Transaction{}, fmt.Errorf("%w: attach checkout from %s", ErrInvalidStatusTransition, t.status)
	}
	if token == "" {
		return Transaction{}, fmt.Errorf("gateway token is required")
	}

	updated := t.next(now)
	updated.gatewayToken = token
	updated.paymentPageURL = paymentPageURL
	updated.status = valueobject.TransactionStatusPending3DS
	return updated, nil
}

// Complete applies a captured payment. It also claims the side-effect lease
// for the caller, since whoever performs this transition runs the side effects.
func (t Transaction) Complete(outcome valueobject.OutcomeCompleted, source valueobject.CompletionSource, now time.Time) (Transaction, error) {
	if t.status.IsTerminal() {
		return Transaction{}, fmt.Errorf("%w: complete from %s", ErrInvalidStatusTransition, t.status)
	}

	updated := t.next(now)
	updated.status = valueobject.TransactionStatusCompleted
	updated.completionSource = source
	updated.gatewayPaymentID = outcome.PaymentID
	updated.paidPrice = outcome.PaidPrice
	updated.completedAt = &now
	updated.effectsClaimedAt = &now

	var seller *uuid.UUID
	if t.HasSeller() {
		s := t.sellerID
		seller = &s
	}
	updated.domainEvents = append(updated.domainEvents, event.NewTransactionCompleted(event.TransactionCompletedPayload{
		TransactionID: t.id,
		Type:          t.txType.String(),
		BuyerID:       t.buyerID,
		SellerID:      seller,
		RelatedID:     t.relatedID,
		Amount:        t.amount.Amount(),
		Currency:      t.amount.Currency().Code(),
		PaymentID:     outcome.PaymentID,
		Source:        source.String(),
		CompletedAt:   now,
	}))
	return updated, nil
}

// Fail applies a definitive gateway failure.
func (t Transaction) Fail(outcome valueobject.OutcomeFailed, source valueobject.CompletionSource, now time.Time) (Transaction, error) {
	if t.status.IsTerminal() {
		return Transaction{}, fmt.Errorf("%w: fail from %s", ErrInvalidStatusTransition, t.status)
	}

	kind := outcome.Kind
	if kind == "" {
		kind = valueobject.ErrorKindPaymentFailed
	}

	updated := t.next(now)
	updated.status = valueobject.TransactionStatusFailed
	updated.completionSource = source
	updated.errorKind = kind
	updated.errorDetail = outcome.Detail
	updated.completedAt = &now
	updated.domainEvents = append(updated.domainEvents, event.NewTransactionFailed(event.TransactionFailedPayload{
		TransactionID: t.id,
		Type:          t.txType.String(),
		BuyerID:       t.buyerID,
		RelatedID:     t.relatedID,
		ErrorKind:     kind,
		Source:        source.String(),
	}))
	return updated, nil
}

// EffectsPending reports a completed transaction whose side effects have not
// been confirmed as fully applied and are still eligible for another attempt.
func (t Transaction) EffectsPending() bool {
	return t.status == valueobject.TransactionStatusCompleted && t.effectsAppliedAt == nil && t.effectsFailedAt == nil
}

// EffectsBlocked reports side effects that failed in a way no retry can fix.
// They stay parked until an operator resumes them.
func (t Transaction) EffectsBlocked() bool {
	return t.status == valueobject.TransactionStatusCompleted && t.effectsAppliedAt == nil && t.effectsFailedAt != nil
}

// EffectsLeaseExpired reports whether a resumer may claim the side effects.
func (t Transaction) EffectsLeaseExpired(now time.Time, lease time.Duration) bool {
	if !t.EffectsPending() {
		return false
	}
	return t.effectsClaimedAt == nil || !t.effectsClaimedAt.Add(lease).After(now)
}

// WithEffectsClaimed returns a copy whose side-effect lease starts at now.
func (t Transaction) WithEffectsClaimed(now time.Time) Transaction {
	t.effectsClaimedAt = &now
	return t
}

// WithEffectsApplied returns a copy with side effects marked as done.
func (t Transaction) WithEffectsApplied(now time.Time) Transaction {
	t.effectsAppliedAt = &now
	return t
}

// WithEffectsFailed returns a copy with side effects parked for manual attention.
func (t Transaction) WithEffectsFailed(now time.Time, reason string) Transaction {
	t.effectsClaimedAt = nil
	t.effectsFailedAt = &now
	t.effectsError = reason
	return t
}

// WithEffectsUnblocked returns a copy whose side effects may be attempted again.
func (t Transaction) WithEffectsUnblocked() Transaction {
	t.effectsFailedAt = nil
	t.effectsError = ""
	return t
}

// WithEffectsReleased returns a copy without a side-effect lease holder.
func (t Transaction) WithEffectsReleased() Transaction {
	t.effectsClaimedAt = nil
	return t
}

// WithRefundFrom returns a copy carrying the refund overlay, version and
// update time of other. Stores use it to persist a refund without touching
// fields other writers own.
func (t Transaction) WithRefundFrom(other Transaction) Transaction {
	t.refund = other.refund
	t.version = other.version
	t.updatedAt = other.updatedAt
	return t
}

// BeginRefund validates a refund of amount and marks the overlay pending.
func (t Transaction) BeginRefund(amount decimal.Decimal, now time.Time) (Transaction, error) {
	if t.status != valueobject.TransactionStatusCompleted {
		return Transaction{}, fmt.Errorf("%w: status is %s", ErrNotRefundable, t.status)
	}
	if t.gatewayPaymentID == "" {
		return Transaction{}, fmt.Errorf("%w: no gateway payment id", ErrNotRefundable)
	}
	if t.refund.Status == valueobject.RefundStatusPending &&
		t.refund.RequestedAt != nil && now.Sub(*t.refund.RequestedAt) < RefundPendingTimeout {
		return Transaction{}, ErrRefundInProgress
	}
	remaining := t.RefundableAmount()
	if !amount.IsPositive() || amount.GreaterThan(remaining) {
		return Transaction{}, fmt.Errorf("%w: %s not in (0, %s]", ErrInvalidRefundAmount, amount, remaining)
	}

	updated := t.next(now)
	updated.refund.Status = valueobject.RefundStatusPending
	updated.refund.Requested = amount
	updated.refund.LastError = ""
	updated.refund.RequestedAt = &now
	return updated, nil
}

// CompleteRefund records a refund accepted by the gateway.
func (t Transaction) CompleteRefund(now time.Time) (Transaction, error) {
	if t.refund.Status != valueobject.RefundStatusPending {
		return Transaction{}, fmt.Errorf("%w: refund is %s", ErrInvalidStatusTransition, t.refund.Status)
	}

	updated := t.next(now)
	updated.refund.Status = valueobject.RefundStatusCompleted
	updated.refund.Refunded = t.refund.Refunded.Add(t.refund.Requested)
	updated.refund.RefundedAt = &now
	updated.domainEvents = append(updated.domainEvents, event.NewRefundCompleted(event.RefundPayload{
		TransactionID:  t.id,
		Amount:         t.refund.Requested,
		RefundedAmount: updated.refund.Refunded,
		Currency:       t.amount.Currency().Code(),
	}))
	return updated, nil
}

// FailRefund records a refund rejected by the gateway. The payment status is untouched.
func (t Transaction) FailRefund(reason string, now time.Time) (Transaction, error) {
	if t.refund.Status != valueobject.RefundStatusPending {
		return Transaction{}, fmt.Errorf("%w: refund is %s", ErrInvalidStatusTransition, t.refund.Status)
	}

	updated := t.next(now)
	updated.refund.Status = valueobject.RefundStatusFailed
	updated.refund.LastError = reason
	updated.domainEvents = append(updated.domainEvents, event.NewRefundFailed(event.RefundPayload{
		TransactionID:  t.id,
		Amount:         t.refund.Requested,
		RefundedAmount: t.refund.Refunded,
		Currency:       t.amount.Currency().Code(),
		Error:          reason,
	}))
	return updated, nil
}

// RefundableAmount is the part of the amount not yet refunded.
func (t Transaction) RefundableAmount() decimal.Decimal {
	return t.amount.Amount().Sub(t.refund.Refunded)
}

// Accessors

func (t Transaction) ID() uuid.UUID { return t.id }
func (t Transaction) Type() valueobject.TransactionType { return t.txType }
func (t Transaction) BuyerID() uuid.UUID { return t.buyerID }
func (t Transaction) SellerID() uuid.UUID { return t.sellerID }
func (t Transaction) HasSeller() bool { return t.sellerID != uuid.Nil }
func (t Transaction) RelatedID() uuid.UUID { return t.relatedID }
func (t Transaction) Amount() money.Money { return t.amount }
func (t Transaction) Commission() *valueobject.CommissionSplit { return t.commission }
func (t Transaction) Description() string { return t.description }
func (t Transaction) GatewayToken() string { return t.gatewayToken }
func (t Transaction) PaymentPageURL() string { return t.paymentPageURL }
func (t Transaction) GatewayPaymentID() string { return t.gatewayPaymentID }
func (t Transaction) PaidPrice() decimal.Decimal { return t.paidPrice }
func (t Transaction) Status() valueobject.TransactionStatus { return t.status }
func (t Transaction) CompletionSource() valueobject.CompletionSource { return t.completionSource }
func (t Transaction) ErrorKind() string { return t.errorKind }
func (t Transaction) ErrorDetail() string { return t.errorDetail }
func (t Transaction) EffectsClaimedAt() *time.Time { return t.effectsClaimedAt }
func (t Transaction) EffectsAppliedAt() *time.Time { return t.effectsAppliedAt }
func (t Transaction) EffectsFailedAt() *time.Time { return t.effectsFailedAt }
func (t Transaction) EffectsError() string { return t.effectsError }
func (t Transaction) Refund() RefundState { return t.refund }
func (t Transaction) Version() int { return t.version }
func (t Transaction) CreatedAt() time.Time { return t.createdAt }
func (t Transaction) UpdatedAt() time.Time { return t.updatedAt }
func (t Transaction) CompletedAt() *time.Time { return t.completedAt }
func (t Transaction) DomainEvents() []events.DomainEvent { return t.domainEvents }

// ClearDomainEvents returns the collected domain events and a new Transaction with events cleared.
func (t Transaction) ClearDomainEvents() ([]events.DomainEvent, Transaction) {
	evts := t.domainEvents
	t.domainEvents = nil
	return evts, t
}
