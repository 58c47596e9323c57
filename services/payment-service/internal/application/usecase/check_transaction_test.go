package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/testutil"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/usecase"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/infrastructure/memory"
)

func TestCheckTransaction_Execute(t *testing.T) {
	t.Run("completes on a successful gateway answer", func(t *testing.T) {
		h := newHarness(t)
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())
		h.gateway.answer(session.Token, successResult(session.BasketID, "pay-1"))

		resp, err := h.check.Execute(context.Background(), dto.CheckTransactionRequest{TransactionID: session.TransactionID, Caller: buyer})

		require.NoError(t, err)
		assert.Equal(t, valueobject.ClientStatusCompleted, resp.Status)
		assert.Equal(t, "COMPLETED", resp.PaymentStatus)
		assert.Equal(t, valueobject.CompletionSourcePoll, h.load(t, session.TransactionID).CompletionSource())
	})

	t.Run("terminal transactions are answered from storage", func(t *testing.T) {
		h := newHarness(t)
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())
		h.gateway.answer(session.Token, successResult(session.BasketID, "pay-1"))
		_, err := h.check.Execute(context.Background(), dto.CheckTransactionRequest{TransactionID: session.TransactionID, Caller: buyer})
		require.NoError(t, err)
		calls := h.gateway.retrieveCalls.Load()

		resp, err := h.check.Execute(context.Background(), dto.CheckTransactionRequest{TransactionID: session.TransactionID, Caller: buyer})

		require.NoError(t, err)
		assert.Equal(t, valueobject.ClientStatusCompleted, resp.Status)
		assert.Equal(t, calls, h.gateway.retrieveCalls.Load())
	})

	t.Run("gateway failure reports a friendly message", func(t *testing.T) {
		h := newHarness(t)
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())
		h.gateway.answer(session.Token, failureResult(session.BasketID, "Yetersiz bakiye"))

		resp, err := h.check.Execute(context.Background(), dto.CheckTransactionRequest{TransactionID: session.TransactionID, Caller: buyer})

		require.NoError(t, err)
		assert.Equal(t, valueobject.ClientStatusFailed, resp.Status)
		assert.NotContains(t, resp.Message, "Yetersiz")
		assert.NotEmpty(t, resp.Message)
	})

	t.Run("unavailable gateway reports pending", func(t *testing.T) {
		h := newHarness(t)
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())
		h.gateway.fail(session.Token, gatewayDown())

		resp, err := h.check.Execute(context.Background(), dto.CheckTransactionRequest{TransactionID: session.TransactionID, Caller: buyer})

		require.NoError(t, err)
		assert.Equal(t, valueobject.ClientStatusPending, resp.Status)
		assert.Equal(t, valueobject.TransactionStatusPending3DS, h.load(t, session.TransactionID).Status())
	})

	t.Run("side-effect trouble still reports the payment", func(t *testing.T) {
		h := newHarness(t)
		resID := h.seedReservation()
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, resID)
		h.gateway.answer(session.Token, successResult(session.BasketID, "pay-1"))
		h.bookings.failConfirm.Store(3)

		resp, err := h.check.Execute(context.Background(), dto.CheckTransactionRequest{TransactionID: session.TransactionID, Caller: buyer})
		require.NoError(t, err)
		assert.Equal(t, valueobject.ClientStatusCompleted, resp.Status)
		status, _ := h.bookings.BookingStatus(resID)
		assert.Equal(t, memory.StatusPending, status)

		resp, err = h.check.Execute(context.Background(), dto.CheckTransactionRequest{TransactionID: session.TransactionID, Caller: buyer})
		require.NoError(t, err)
		assert.Equal(t, valueobject.ClientStatusCompleted, resp.Status)
		status, _ = h.bookings.BookingStatus(resID)
		assert.Equal(t, memory.StatusConfirmed, status)
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		h := newHarness(t)
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())

		_, err := h.check.Execute(context.Background(), dto.CheckTransactionRequest{
			TransactionID: session.TransactionID,
			Caller:        dto.Caller{UserID: testutil.SellerID},
		})
		assert.ErrorIs(t, err, model.ErrForbidden)

		_, err = h.check.Execute(context.Background(), dto.CheckTransactionRequest{TransactionID: session.TransactionID, Caller: admin})
		assert.NoError(t, err)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.check.Execute(context.Background(), dto.CheckTransactionRequest{TransactionID: uuid.New(), Caller: buyer})
		assert.ErrorIs(t, err, model.ErrTransactionNotFound)
	})
}

func TestCheckTransaction_MaxWait(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())
	h.gateway.answer(session.Token, challengeResult(session.BasketID))

	h.clock.Advance(usecase.DefaultMaxWait + time.Minute)
	resp, err := h.check.Execute(ctx, dto.CheckTransactionRequest{TransactionID: session.TransactionID, Caller: buyer})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ClientStatusFailed, resp.Status)
	assert.Equal(t, "payment window expired", resp.Message)
	assert.Equal(t, valueobject.TransactionStatusPending3DS, h.load(t, session.TransactionID).Status(), "record stays open")

	// A late success still completes the payment.
	h.gateway.answer(session.Token, successResult(session.BasketID, "pay-late"))
	cb, err := h.callback.Execute(ctx, dto.CallbackRequest{Token: session.Token})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ClientStatusCompleted, cb.Status)
}

func TestCheckTransaction_ExecuteForRelated(t *testing.T) {
	h := newHarness(t)
	resID := h.seedReservation()
	session := h.startCheckout(t, valueobject.TransactionTypeReservation, resID)
	h.gateway.answer(session.Token, successResult(session.BasketID, "pay-1"))

	resp, err := h.check.ExecuteForRelated(context.Background(), dto.CheckRelatedRequest{RelatedID: resID, Caller: buyer})

	require.NoError(t, err)
	assert.Equal(t, session.TransactionID, resp.TransactionID)
	assert.Equal(t, valueobject.ClientStatusCompleted, resp.Status)

	_, err = h.check.ExecuteForRelated(context.Background(), dto.CheckRelatedRequest{RelatedID: uuid.New(), Caller: buyer})
	assert.ErrorIs(t, err, model.ErrTransactionNotFound)
}

func TestHandleCallback_Execute(t *testing.T) {
	t.Run("empty token is malformed", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.callback.Execute(context.Background(), dto.CallbackRequest{Token: "  "})
		assert.ErrorIs(t, err, usecase.ErrMalformedCallback)
	})

	t.Run("unavailable gateway asks for redelivery", func(t *testing.T) {
		h := newHarness(t)
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())
		h.gateway.fail(session.Token, gatewayDown())

		_, err := h.callback.Execute(context.Background(), dto.CallbackRequest{Token: session.Token})
		assert.ErrorIs(t, err, model.ErrGatewayUnavailable)
		assert.Equal(t, valueobject.TransactionStatusPending3DS, h.load(t, session.TransactionID).Status())
	})

	t.Run("unknown basket is acknowledged", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.answer("tok-x", successResult("reservation_"+uuid.NewString(), "pay-1"))

		resp, err := h.callback.Execute(context.Background(), dto.CallbackRequest{Token: "tok-x"})
		require.NoError(t, err)
		assert.Equal(t, "unknown basket", resp.Message)
	})

	t.Run("garbage basket is acknowledged", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.answer("tok-x", successResult("not-a-basket", "pay-1"))

		resp, err := h.callback.Execute(context.Background(), dto.CallbackRequest{Token: "tok-x"})
		require.NoError(t, err)
		assert.Equal(t, "unknown basket", resp.Message)
	})

	t.Run("token of another transaction is ignored", func(t *testing.T) {
		h := newHarness(t)
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())
		h.gateway.answer("tok-foreign", successResult(session.BasketID, "pay-1"))

		resp, err := h.callback.Execute(context.Background(), dto.CallbackRequest{Token: "tok-foreign", BasketID: session.BasketID})
		require.NoError(t, err)
		assert.Equal(t, "token mismatch", resp.Message)
		assert.Equal(t, valueobject.TransactionStatusPending3DS, h.load(t, session.TransactionID).Status())
	})

	t.Run("challenge in flight reports waiting", func(t *testing.T) {
		h := newHarness(t)
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())
		h.gateway.answer(session.Token, challengeResult(session.BasketID))

		resp, err := h.callback.Execute(context.Background(), dto.CallbackRequest{Token: session.Token})
		require.NoError(t, err)
		assert.Equal(t, valueobject.ClientStatusWaiting3DS, resp.Status)
	})

	t.Run("bare transaction id basket is accepted", func(t *testing.T) {
		h := newHarness(t)
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())
		h.gateway.answer(session.Token, successResult("", "pay-1"))

		resp, err := h.callback.Execute(context.Background(), dto.CallbackRequest{
			Token:    session.Token,
			BasketID: session.TransactionID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, valueobject.ClientStatusCompleted, resp.Status)
	})
}

func TestGetTransaction_Execute(t *testing.T) {
	h := newHarness(t)
	session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())

	resp, err := h.get.Execute(context.Background(), dto.GetTransactionRequest{TransactionID: session.TransactionID, Caller: buyer})
	require.NoError(t, err)
	assert.Equal(t, session.TransactionID, resp.ID)
	assert.Equal(t, "reservation_payment", resp.Type)
	assert.Equal(t, "PENDING_3DS", resp.Status)
	require.NotNil(t, resp.SellerID)
	assert.Equal(t, testutil.SellerID, *resp.SellerID)
	require.NotNil(t, resp.CommissionAmount)
	testutil.AssertDecimal(t, "30", *resp.CommissionAmount)

	_, err = h.get.Execute(context.Background(), dto.GetTransactionRequest{
		TransactionID: session.TransactionID,
		Caller:        dto.Caller{UserID: testutil.SellerID},
	})
	assert.ErrorIs(t, err, model.ErrForbidden)
}
