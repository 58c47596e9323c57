package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/testutil"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

func TestSideEffects_Reservation(t *testing.T) {
	bookings := newMockBookingRepo()
	calendar := newMockCalendarRepo()
	resID := uuid.New()
	bookings.reservation = model.FacilityReservation{
		ID:            resID,
		FacilityID:    testutil.FacilityID,
		FacilityName:  "Central Tennis Club",
		OwnerID:       testutil.SellerID,
		UserID:        testutil.BuyerID,
		CustomerName:  "Deniz Kaya",
		CustomerPhone: "+905551112233",
		Date:          time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC),
		StartTime:     "10:00",
		EndTime:       "11:00",
	}
	tx := newCompletedTx(t, valueobject.TransactionTypeReservation, resID, true)

	state, err := newTestApplier(bookings, calendar).Apply(context.Background(), tx)
	require.NoError(t, err)

	assert.Equal(t, []EffectStep{
		EffectStepConfirmReservation,
		EffectStepBuyerCalendar,
		EffectStepSellerCalendar,
		EffectStepRecordCommission,
	}, state.CompletedSteps)
	assert.NotNil(t, state.CompletedAt)
	assert.Equal(t, 1, bookings.confirmed[resID])

	require.Len(t, calendar.entries, 2)
	owner := calendar.entries[model.CalendarEntryID(resID, "owner")]
	assert.Equal(t, testutil.SellerID, owner.UserID)
	assert.Equal(t, "Deniz Kaya", owner.ContactName)
	assert.Equal(t, "+905551112233", owner.ContactPhone)
	buyer := calendar.entries[model.CalendarEntryID(resID, "buyer")]
	assert.Equal(t, testutil.BuyerID, buyer.UserID)

	entry := bookings.commissions[tx.ID()]
	testutil.AssertDecimal(t, "30.00", entry.Commission)
	testutil.AssertDecimal(t, "270.00", entry.SellerReceives)
}

func TestSideEffects_EventCountsParticipantOnce(t *testing.T) {
	bookings := newMockBookingRepo()
	calendar := newMockCalendarRepo()
	partID := uuid.New()
	bookings.participation = model.EventParticipation{
		ID:         partID,
		EventID:    testutil.EventID,
		UserID:     testutil.BuyerID,
		EventTitle: "Sunday padel tournament",
		StartsAt:   time.Date(2025, 6, 8, 9, 30, 0, 0, time.UTC),
	}
	tx := newCompletedTx(t, valueobject.TransactionTypeEvent, partID, false)
	applier := newTestApplier(bookings, calendar)

	for i := 0; i < 3; i++ {
		_, err := applier.Apply(context.Background(), tx)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, bookings.participantCnt)
	assert.Len(t, calendar.entries, 1)
	assert.Equal(t, "09:30", calendar.entries[model.CalendarEntryID(partID, "buyer")].StartTime)
	assert.Empty(t, bookings.commissions, "platform-direct purchase records no commission")
}

func TestSideEffects_Membership(t *testing.T) {
	bookings := newMockBookingRepo()
	calendar := newMockCalendarRepo()
	memID := uuid.New()
	bookings.membership = model.Membership{ID: memID, Status: model.MembershipStatusPendingPayment}
	tx := newCompletedTx(t, valueobject.TransactionTypeMembership, memID, true)

	state, err := newTestApplier(bookings, calendar).Apply(context.Background(), tx)
	require.NoError(t, err)

	assert.Equal(t, []EffectStep{EffectStepActivateMembership, EffectStepRecordCommission}, state.CompletedSteps)
	assert.Equal(t, 1, bookings.confirmed[memID])
	assert.Empty(t, calendar.entries)
}

func TestSideEffects_PersonReservation(t *testing.T) {
	bookings := newMockBookingRepo()
	calendar := newMockCalendarRepo()
	resID := uuid.New()
	bookings.personRes = model.PersonReservation{
		ID:          resID,
		BuyerID:     testutil.BuyerID,
		ProviderID:  testutil.SellerID,
		ServiceName: "Private tennis lesson",
		BuyerName:   "Ece Yilmaz",
	}
	tx := newCompletedTx(t, valueobject.TransactionTypePersonReservation, resID, true)

	_, err := newTestApplier(bookings, calendar).Apply(context.Background(), tx)
	require.NoError(t, err)

	out := calendar.entries[model.CalendarEntryID(resID, "buyer")]
	in := calendar.entries[model.CalendarEntryID(resID, "seller")]
	assert.Equal(t, model.CalendarTypeReservationOut, out.Type)
	assert.Equal(t, model.CalendarTypeReservationIn, in.Type)
	assert.Equal(t, testutil.SellerID, in.UserID)
	assert.Equal(t, "Ece Yilmaz", in.ContactName)
	assert.Contains(t, bookings.commissions, tx.ID())
}

func TestSideEffects_RetriesTransientFailure(t *testing.T) {
	bookings := newMockBookingRepo()
	calendar := newMockCalendarRepo()
	memID := uuid.New()
	bookings.membership = model.Membership{ID: memID}
	bookings.failConfirm = maxStepAttempts - 1
	tx := newCompletedTx(t, valueobject.TransactionTypeMembership, memID, false)

	_, err := newTestApplier(bookings, calendar).Apply(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, 1, bookings.confirmed[memID])
}

func TestSideEffects_PartialFailureThenResume(t *testing.T) {
	bookings := newMockBookingRepo()
	calendar := newMockCalendarRepo()
	resID := uuid.New()
	bookings.reservation = model.FacilityReservation{ID: resID, OwnerID: testutil.SellerID}
	tx := newCompletedTx(t, valueobject.TransactionTypeReservation, resID, true)
	applier := newTestApplier(bookings, calendar)

	calendar.err = fmt.Errorf("calendar store down")
	state, err := applier.Apply(context.Background(), tx)
	require.Error(t, err)
	require.NotNil(t, state.FailedStep)
	assert.Equal(t, EffectStepBuyerCalendar, *state.FailedStep)
	assert.Equal(t, []EffectStep{EffectStepConfirmReservation}, state.CompletedSteps)

	calendar.err = nil
	_, err = applier.Apply(context.Background(), tx)
	require.NoError(t, err)

	assert.Len(t, calendar.entries, 2)
	assert.Len(t, bookings.commissions, 1)
}

func TestSideEffects_MissingBookingIsPermanent(t *testing.T) {
	bookings := newMockBookingRepo()
	bookings.getErr = model.ErrBookingNotFound
	tx := newCompletedTx(t, valueobject.TransactionTypeReservation, uuid.New(), true)

	_, err := newTestApplier(bookings, newMockCalendarRepo()).Apply(context.Background(), tx)
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}

func TestSideEffects_RequiresCompleted(t *testing.T) {
	tx, err := model.NewTransaction(model.NewTransactionParams{
		Type:      valueobject.TransactionTypeMembership,
		BuyerID:   testutil.BuyerID,
		RelatedID: uuid.New(),
		Amount:    try(t, "10"),
	}, testNow)
	require.NoError(t, err)

	_, err = newTestApplier(newMockBookingRepo(), newMockCalendarRepo()).Apply(context.Background(), tx)
	assert.ErrorIs(t, err, model.ErrInvalidStatusTransition)
}
