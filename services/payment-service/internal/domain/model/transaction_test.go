package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/event"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestTransaction(t *testing.T) Transaction {
	t.Helper()
	tx, err := NewTransaction(NewTransactionParams{
		Type:      valueobject.TransactionTypeReservation,
		BuyerID:   uuid.New(),
		SellerID:  uuid.New(),
		RelatedID: uuid.New(),
		Amount:    money.New(decimal.NewFromInt(300), money.TRY),
		Commission: &valueobject.CommissionSplit{
			Rate:           decimal.NewFromInt(10),
			Commission:     decimal.NewFromInt(30),
			SellerReceives: decimal.NewFromInt(270),
		},
		Description: "Court 1",
	}, testNow)
	require.NoError(t, err)
	tx, err = tx.AttachCheckout("tok-1", "https://pay.example/tok-1", testNow)
	require.NoError(t, err)
	return tx
}

func completed(t *testing.T, tx Transaction) Transaction {
	t.Helper()
	done, err := tx.Complete(valueobject.OutcomeCompleted{PaymentID: "pay-1", PaidPrice: decimal.NewFromInt(300)},
		valueobject.CompletionSourceCallback, testNow.Add(time.Minute))
	require.NoError(t, err)
	return done
}

func TestNewTransaction_Validation(t *testing.T) {
	valid := NewTransactionParams{
		Type:      valueobject.TransactionTypeMembership,
		BuyerID:   uuid.New(),
		RelatedID: uuid.New(),
		Amount:    money.New(decimal.NewFromInt(100), money.TRY),
	}
	split := &valueobject.CommissionSplit{Rate: decimal.NewFromInt(10), Commission: decimal.NewFromInt(10), SellerReceives: decimal.NewFromInt(90)}

	tests := []struct {
		name   string
		mutate func(p *NewTransactionParams)
	}{
		{"missing type", func(p *NewTransactionParams) { p.Type = valueobject.TransactionType{} }},
		{"missing buyer", func(p *NewTransactionParams) { p.BuyerID = uuid.Nil }},
		{"missing related", func(p *NewTransactionParams) { p.RelatedID = uuid.Nil }},
		{"zero amount", func(p *NewTransactionParams) { p.Amount = money.Zero(money.TRY) }},
		{"seller without split", func(p *NewTransactionParams) { p.SellerID = uuid.New() }},
		{"split without seller", func(p *NewTransactionParams) { p.Commission = split }},
		{"split not adding up", func(p *NewTransactionParams) {
			p.SellerID = uuid.New()
			p.Commission = &valueobject.CommissionSplit{Rate: decimal.NewFromInt(10), Commission: decimal.NewFromInt(10), SellerReceives: decimal.NewFromInt(80)}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			_, err := NewTransaction(p, testNow)
			assert.Error(t, err)
		})
	}

	tx, err := NewTransaction(valid, testNow)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TransactionStatusInit, tx.Status())
	assert.Equal(t, 1, tx.Version())
	require.Len(t, tx.DomainEvents(), 1)
	assert.Equal(t, event.TypeTransactionInitiated, tx.DomainEvents()[0].EventType())
}

func TestTransaction_Complete(t *testing.T) {
	tx := newTestTransaction(t)
	done := completed(t, tx)

	assert.Equal(t, valueobject.TransactionStatusCompleted, done.Status())
	assert.Equal(t, valueobject.CompletionSourceCallback, done.CompletionSource())
	assert.Equal(t, "pay-1", done.GatewayPaymentID())
	require.NotNil(t, done.CompletedAt())
	require.NotNil(t, done.EffectsClaimedAt(), "winner holds the side-effect lease")
	assert.True(t, done.EffectsPending())
	assert.Equal(t, tx.Version()+1, done.Version())

	// The original copy is untouched.
	assert.Equal(t, valueobject.TransactionStatusPending3DS, tx.Status())
}

func TestTransaction_TerminalIsFinal(t *testing.T) {
	tx := newTestTransaction(t)
	done := completed(t, tx)
	failed, err := tx.Fail(valueobject.OutcomeFailed{Detail: "declined"}, valueobject.CompletionSourcePoll, testNow)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ErrorKindPaymentFailed, failed.ErrorKind())

	for _, terminal := range []Transaction{done, failed} {
		_, err := terminal.Complete(valueobject.OutcomeCompleted{PaymentID: "pay-2"}, valueobject.CompletionSourcePoll, testNow)
		assert.True(t, errors.Is(err, ErrInvalidStatusTransition))
		_, err = terminal.Fail(valueobject.OutcomeFailed{}, valueobject.CompletionSourcePoll, testNow)
		assert.True(t, errors.Is(err, ErrInvalidStatusTransition))
		_, err = terminal.AttachCheckout("tok-2", "", testNow)
		assert.True(t, errors.Is(err, ErrInvalidStatusTransition))
	}
}

func TestTransaction_EffectsLease(t *testing.T) {
	lease := 2 * time.Minute
	done := completed(t, newTestTransaction(t))
	claimedAt := *done.EffectsClaimedAt()

	assert.False(t, done.EffectsLeaseExpired(claimedAt.Add(time.Minute), lease))
	assert.True(t, done.EffectsLeaseExpired(claimedAt.Add(lease), lease))
	assert.True(t, done.WithEffectsReleased().EffectsLeaseExpired(claimedAt, lease))

	applied := done.WithEffectsApplied(claimedAt.Add(time.Second))
	assert.False(t, applied.EffectsPending())
	assert.False(t, applied.EffectsLeaseExpired(claimedAt.Add(time.Hour), lease))

	open := newTestTransaction(t)
	assert.False(t, open.EffectsPending())
	assert.False(t, open.EffectsLeaseExpired(testNow, lease))
}

func TestTransaction_Refund(t *testing.T) {
	done := completed(t, newTestTransaction(t))
	now := testNow.Add(time.Hour)

	t.Run("partial then rest", func(t *testing.T) {
		pending, err := done.BeginRefund(decimal.NewFromInt(100), now)
		require.NoError(t, err)
		assert.Equal(t, valueobject.RefundStatusPending, pending.Refund().Status)

		refunded, err := pending.CompleteRefund(now)
		require.NoError(t, err)
		assert.True(t, refunded.Refund().Refunded.Equal(decimal.NewFromInt(100)))
		assert.True(t, refunded.RefundableAmount().Equal(decimal.NewFromInt(200)))
		assert.Equal(t, valueobject.TransactionStatusCompleted, refunded.Status())

		pending, err = refunded.BeginRefund(decimal.NewFromInt(200), now)
		require.NoError(t, err)
		refunded, err = pending.CompleteRefund(now)
		require.NoError(t, err)
		assert.True(t, refunded.RefundableAmount().IsZero())

		_, err = refunded.BeginRefund(decimal.NewFromInt(1), now)
		assert.ErrorIs(t, err, ErrInvalidRefundAmount)
	})

	t.Run("pending blocks until stale", func(t *testing.T) {
		pending, err := done.BeginRefund(decimal.NewFromInt(50), now)
		require.NoError(t, err)

		_, err = pending.BeginRefund(decimal.NewFromInt(50), now.Add(time.Minute))
		assert.ErrorIs(t, err, ErrRefundInProgress)

		_, err = pending.BeginRefund(decimal.NewFromInt(50), now.Add(RefundPendingTimeout))
		assert.NoError(t, err)
	})

	t.Run("failed refund keeps the money", func(t *testing.T) {
		pending, err := done.BeginRefund(decimal.NewFromInt(300), now)
		require.NoError(t, err)
		failed, err := pending.FailRefund("expired", now)
		require.NoError(t, err)
		assert.Equal(t, valueobject.RefundStatusFailed, failed.Refund().Status)
		assert.True(t, failed.RefundableAmount().Equal(decimal.NewFromInt(300)))

		_, err = failed.CompleteRefund(now)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("invalid amounts", func(t *testing.T) {
		for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5), decimal.NewFromInt(301)} {
			_, err := done.BeginRefund(amount, now)
			assert.ErrorIs(t, err, ErrInvalidRefundAmount)
		}
	})

	t.Run("only completed payments", func(t *testing.T) {
		_, err := newTestTransaction(t).BeginRefund(decimal.NewFromInt(10), now)
		assert.ErrorIs(t, err, ErrNotRefundable)
	})
}

func TestTransaction_WithRefundFrom(t *testing.T) {
	done := completed(t, newTestTransaction(t))
	applied := done.WithEffectsApplied(testNow.Add(2 * time.Minute))

	// A refund computed from a copy loaded before the side effects finished.
	pending, err := done.BeginRefund(decimal.NewFromInt(100), testNow.Add(time.Hour))
	require.NoError(t, err)

	merged := applied.WithRefundFrom(pending)
	assert.NotNil(t, merged.EffectsAppliedAt())
	assert.Equal(t, valueobject.RefundStatusPending, merged.Refund().Status)
	assert.Equal(t, pending.Version(), merged.Version())
}

func TestTransaction_ClearDomainEvents(t *testing.T) {
	done := completed(t, newTestTransaction(t))
	evts, cleared := done.ClearDomainEvents()

	require.NotEmpty(t, evts)
	assert.Equal(t, event.TypeTransactionCompleted, evts[len(evts)-1].EventType())
	assert.Empty(t, cleared.DomainEvents())
	assert.NotEmpty(t, done.DomainEvents())
}

func TestTransaction_EffectsBlocked(t *testing.T) {
	lease := 2 * time.Minute
	done := completed(t, newTestTransaction(t))
	claimedAt := *done.EffectsClaimedAt()

	blocked := done.WithEffectsFailed(claimedAt, "booking record not found")
	assert.True(t, blocked.EffectsBlocked())
	assert.False(t, blocked.EffectsPending(), "blocked effects are not retried")
	assert.False(t, blocked.EffectsLeaseExpired(claimedAt.Add(time.Hour), lease))
	assert.Nil(t, blocked.EffectsClaimedAt())
	assert.Equal(t, "booking record not found", blocked.EffectsError())

	resumed := blocked.WithEffectsUnblocked()
	assert.False(t, resumed.EffectsBlocked())
	assert.True(t, resumed.EffectsPending())
	assert.True(t, resumed.EffectsLeaseExpired(claimedAt, lease))
	assert.Empty(t, resumed.EffectsError())
}
