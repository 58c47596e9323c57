package valueobject_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

func TestNewTransactionStatus(t *testing.T) {
	for _, s := range []string{"INIT", "PENDING_3DS", "WAITING_3DS", "COMPLETED", "FAILED"} {
		status, err := valueobject.NewTransactionStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, status.String())
	}

	for _, s := range []string{"", "completed", "init_3ds", "PAID"} {
		_, err := valueobject.NewTransactionStatus(s)
		assert.Error(t, err, s)
	}
}

func TestTransactionStatus_TerminalAndClientStatus(t *testing.T) {
	tests := []struct {
		status   valueobject.TransactionStatus
		terminal bool
		client   string
	}{
		{valueobject.TransactionStatusInit, false, "pending"},
		{valueobject.TransactionStatusPending3DS, false, "pending"},
		{valueobject.TransactionStatusWaiting3DS, false, "waiting_3ds"},
		{valueobject.TransactionStatusCompleted, true, "completed"},
		{valueobject.TransactionStatusFailed, true, "failed"},
	}

	for _, tc := range tests {
		t.Run(tc.status.String(), func(t *testing.T) {
			assert.Equal(t, tc.terminal, tc.status.IsTerminal())
			assert.Equal(t, tc.client, tc.status.ClientStatus())
		})
	}

	for _, s := range valueobject.NonTerminalStatuses() {
		assert.False(t, s.IsTerminal(), s.String())
	}
}

func TestParseBasketID(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		basket   string
		wantType valueobject.TransactionType
	}{
		{"payment_" + id.String(), valueobject.TransactionTypeEvent},
		{"reservation_" + id.String(), valueobject.TransactionTypeReservation},
		{"membership_" + id.String(), valueobject.TransactionTypeMembership},
		{"person_reservation_" + id.String(), valueobject.TransactionTypePersonReservation},
		{id.String(), valueobject.TransactionType{}},
	}

	for _, tc := range tests {
		t.Run(tc.basket, func(t *testing.T) {
			gotType, gotID, err := valueobject.ParseBasketID(tc.basket)
			require.NoError(t, err)
			assert.Equal(t, id, gotID)
			assert.Equal(t, tc.wantType, gotType)
		})
	}

	for _, bad := range []string{"", "payment_", "payment_not-a-uuid", "coupon_" + id.String()} {
		_, _, err := valueobject.ParseBasketID(bad)
		assert.Error(t, err, bad)
	}
}

func TestBasketIDRoundTrip(t *testing.T) {
	id := uuid.New()
	for _, typ := range []valueobject.TransactionType{
		valueobject.TransactionTypeEvent,
		valueobject.TransactionTypeReservation,
		valueobject.TransactionTypeMembership,
		valueobject.TransactionTypePersonReservation,
	} {
		parsedType, parsedID, err := valueobject.ParseBasketID(typ.BasketID(id))
		require.NoError(t, err)
		assert.Equal(t, typ, parsedType)
		assert.Equal(t, id, parsedID)

		roundTrip, err := valueobject.NewTransactionType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, roundTrip)
	}
}

func TestGatewayOutcomeStatus(t *testing.T) {
	assert.Equal(t, valueobject.TransactionStatusCompleted, valueobject.OutcomeCompleted{}.Status())
	assert.Equal(t, valueobject.TransactionStatusWaiting3DS, valueobject.OutcomeWaiting{}.Status())
	assert.Equal(t, valueobject.TransactionStatusFailed, valueobject.OutcomeFailed{}.Status())
}

func TestNewRefundStatusAndSource(t *testing.T) {
	rs, err := valueobject.NewRefundStatus("")
	require.NoError(t, err)
	assert.Equal(t, valueobject.RefundStatusNone, rs)
	_, err = valueobject.NewRefundStatus("reversed")
	assert.Error(t, err)

	src, err := valueobject.NewCompletionSource("callback")
	require.NoError(t, err)
	assert.Equal(t, "callback", src.String())
	src, err = valueobject.NewCompletionSource("expiry")
	require.NoError(t, err)
	assert.Equal(t, valueobject.CompletionSourceExpiry, src)
	assert.Equal(t, "none", valueobject.CompletionSource{}.String())
}
