package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/testutil"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

func completedPayment(t *testing.T, h *harness) uuid.UUID {
	t.Helper()
	session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())
	h.gateway.answer(session.Token, successResult(session.BasketID, "pay-1"))
	_, err := h.callback.Execute(context.Background(), dto.CallbackRequest{Token: session.Token})
	require.NoError(t, err)
	return session.TransactionID
}

func TestRefundTransaction_Refund(t *testing.T) {
	t.Run("partial refunds add up to the full amount", func(t *testing.T) {
		h := newHarness(t)
		id := completedPayment(t, h)

		_, err := h.refunds.Refund(context.Background(), dto.RefundRequest{TransactionID: id, Amount: decimal.NewFromInt(100), Caller: admin})
		require.NoError(t, err)
		resp, err := h.refunds.Refund(context.Background(), dto.RefundRequest{TransactionID: id, Caller: admin})
		require.NoError(t, err)

		testutil.AssertDecimal(t, "300", resp.RefundedAmount)
		testutil.AssertDecimal(t, "0", resp.Remaining)
		require.Len(t, h.gateway.refunds, 2)
		testutil.AssertDecimal(t, "200", h.gateway.refunds[1].Amount())
		assert.Equal(t, 2, countKind(h.notifications.For(testutil.BuyerID), model.NotificationRefundCompleted))

		_, err = h.refunds.Refund(context.Background(), dto.RefundRequest{TransactionID: id, Amount: decimal.NewFromInt(1), Caller: admin})
		assert.ErrorIs(t, err, model.ErrInvalidRefundAmount)
	})

	t.Run("more than paid is rejected", func(t *testing.T) {
		h := newHarness(t)
		id := completedPayment(t, h)

		_, err := h.refunds.Refund(context.Background(), dto.RefundRequest{TransactionID: id, Amount: decimal.NewFromInt(301), Caller: admin})
		assert.ErrorIs(t, err, model.ErrInvalidRefundAmount)
		assert.Empty(t, h.gateway.refunds)
	})

	t.Run("admins only", func(t *testing.T) {
		h := newHarness(t)
		id := completedPayment(t, h)

		_, err := h.refunds.Refund(context.Background(), dto.RefundRequest{TransactionID: id, Caller: buyer})
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("open payments are not refundable", func(t *testing.T) {
		h := newHarness(t)
		session := h.startCheckout(t, valueobject.TransactionTypeReservation, h.seedReservation())

		_, err := h.refunds.Refund(context.Background(), dto.RefundRequest{TransactionID: session.TransactionID, Caller: admin})
		assert.ErrorIs(t, err, model.ErrNotRefundable)
	})

	t.Run("gateway rejection marks the refund failed", func(t *testing.T) {
		h := newHarness(t)
		id := completedPayment(t, h)
		h.gateway.refundResult = port.RefundResult{Status: port.GatewayStatusFailure, ErrorMessage: "Iade suresi doldu"}

		resp, err := h.refunds.Refund(context.Background(), dto.RefundRequest{TransactionID: id, Caller: admin})
		require.NoError(t, err)
		assert.Equal(t, valueobject.RefundStatusFailed.String(), resp.RefundStatus)

		tx := h.load(t, id)
		assert.Equal(t, valueobject.TransactionStatusCompleted, tx.Status())
		assert.Equal(t, "Iade suresi doldu", tx.Refund().LastError)
		assert.True(t, tx.Refund().Refunded.IsZero())
	})

	t.Run("unknown outcome stays pending", func(t *testing.T) {
		h := newHarness(t)
		id := completedPayment(t, h)
		h.gateway.refundErr = gatewayDown()

		_, err := h.refunds.Refund(context.Background(), dto.RefundRequest{TransactionID: id, Caller: admin})
		assert.ErrorIs(t, err, model.ErrGatewayUnavailable)
		assert.Equal(t, valueobject.RefundStatusPending, h.load(t, id).Refund().Status)

		h.gateway.refundErr = nil
		_, err = h.refunds.Refund(context.Background(), dto.RefundRequest{TransactionID: id, Caller: admin})
		assert.ErrorIs(t, err, model.ErrRefundInProgress)
	})
}

func TestRefundTransaction_Cancel(t *testing.T) {
	t.Run("cancels the whole payment", func(t *testing.T) {
		h := newHarness(t)
		id := completedPayment(t, h)

		resp, err := h.refunds.Cancel(context.Background(), dto.CancelRequest{TransactionID: id, Caller: admin})
		require.NoError(t, err)
		assert.Equal(t, 1, h.gateway.cancels)
		testutil.AssertDecimal(t, "300", resp.RefundedAmount)
		assert.Equal(t, valueobject.TransactionStatusCompleted, h.load(t, id).Status())
	})

	t.Run("partially refunded payments cannot be cancelled", func(t *testing.T) {
		h := newHarness(t)
		id := completedPayment(t, h)
		_, err := h.refunds.Refund(context.Background(), dto.RefundRequest{TransactionID: id, Amount: decimal.NewFromInt(50), Caller: admin})
		require.NoError(t, err)

		_, err = h.refunds.Cancel(context.Background(), dto.CancelRequest{TransactionID: id, Caller: admin})
		assert.ErrorIs(t, err, model.ErrNotRefundable)
		assert.Zero(t, h.gateway.cancels)
	})

	t.Run("rejected cancel", func(t *testing.T) {
		h := newHarness(t)
		id := completedPayment(t, h)
		h.gateway.cancelErr = &port.GatewayError{Kind: port.GatewayErrRejected, Op: "cancel", Message: "Iptal islemi yalnizca ayni gun yapilabilir"}

		resp, err := h.refunds.Cancel(context.Background(), dto.CancelRequest{TransactionID: id, Caller: admin})
		require.NoError(t, err)
		assert.Equal(t, valueobject.RefundStatusFailed.String(), resp.RefundStatus)
		assert.Contains(t, resp.Message, "ayni gun")
	})

	t.Run("admins only", func(t *testing.T) {
		h := newHarness(t)
		id := completedPayment(t, h)

		_, err := h.refunds.Cancel(context.Background(), dto.CancelRequest{TransactionID: id, Caller: buyer})
		assert.ErrorIs(t, err, model.ErrForbidden)
	})
}
