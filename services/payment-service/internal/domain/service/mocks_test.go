package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/observability"
	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/testutil"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// --- Mocks ---

type mockBookingRepo struct {
	mu sync.Mutex

	participation model.EventParticipation
	reservation   model.FacilityReservation
	membership    model.Membership
	personRes     model.PersonReservation

	participants   map[uuid.UUID]bool
	participantCnt int
	confirmed      map[uuid.UUID]int
	commissions    map[uuid.UUID]model.CommissionEntry

	// failConfirm makes the next n confirm calls fail.
	failConfirm int
	getErr      error
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{
		participants: make(map[uuid.UUID]bool),
		confirmed:    make(map[uuid.UUID]int),
		commissions:  make(map[uuid.UUID]model.CommissionEntry),
	}
}

func (m *mockBookingRepo) QuotePurchase(_ context.Context, _ valueobject.TransactionType, _, _ uuid.UUID) (model.Purchase, error) {
	return model.Purchase{}, nil
}

func (m *mockBookingRepo) GetEventParticipation(_ context.Context, _ uuid.UUID) (model.EventParticipation, error) {
	return m.participation, m.getErr
}

func (m *mockBookingRepo) AddEventParticipant(_ context.Context, _, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.participants[userID] {
		return false, nil
	}
	m.participants[userID] = true
	m.participantCnt++
	return true, nil
}

func (m *mockBookingRepo) confirm(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failConfirm > 0 {
		m.failConfirm--
		return errInjected
	}
	m.confirmed[id]++
	return nil
}

func (m *mockBookingRepo) ConfirmEventParticipation(_ context.Context, id, _ uuid.UUID) error {
	return m.confirm(id)
}

func (m *mockBookingRepo) GetFacilityReservation(_ context.Context, _ uuid.UUID) (model.FacilityReservation, error) {
	return m.reservation, m.getErr
}

func (m *mockBookingRepo) ConfirmFacilityReservation(_ context.Context, id, _ uuid.UUID) error {
	return m.confirm(id)
}

func (m *mockBookingRepo) GetMembership(_ context.Context, _ uuid.UUID) (model.Membership, error) {
	return m.membership, m.getErr
}

func (m *mockBookingRepo) ActivateMembership(_ context.Context, id, _ uuid.UUID) error {
	return m.confirm(id)
}

func (m *mockBookingRepo) GetPersonReservation(_ context.Context, _ uuid.UUID) (model.PersonReservation, error) {
	return m.personRes, m.getErr
}

func (m *mockBookingRepo) ConfirmPersonReservation(_ context.Context, id, _ uuid.UUID) error {
	return m.confirm(id)
}

func (m *mockBookingRepo) RecordCommission(_ context.Context, entry model.CommissionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commissions[entry.TransactionID] = entry
	return nil
}

type mockCalendarRepo struct {
	mu      sync.Mutex
	entries map[string]model.CalendarEntry
	err     error
}

func newMockCalendarRepo() *mockCalendarRepo {
	return &mockCalendarRepo{entries: make(map[string]model.CalendarEntry)}
}

func (m *mockCalendarRepo) UpsertEntry(_ context.Context, entry model.CalendarEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.entries[entry.ID]; !ok {
		m.entries[entry.ID] = entry
	}
	return nil
}

type mockNotificationStore struct {
	mu    sync.Mutex
	saved map[string]model.Notification
	err   error
}

func newMockNotificationStore() *mockNotificationStore {
	return &mockNotificationStore{saved: make(map[string]model.Notification)}
}

func (m *mockNotificationStore) Save(_ context.Context, n model.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.saved[n.ID]; ok {
		return false, nil
	}
	m.saved[n.ID] = n
	return true, nil
}

type mockNotificationPublisher struct {
	mu        sync.Mutex
	published []model.Notification
	failNext  int
}

func (m *mockNotificationPublisher) PublishNotification(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return errInjected
	}
	m.published = append(m.published, n)
	return nil
}

type testError string

func (e testError) Error() string { return string(e) }

const errInjected = testError("injected failure")

// --- Helpers ---

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newCompletedTx(t *testing.T, typ valueobject.TransactionType, relatedID uuid.UUID, withSeller bool) model.Transaction {
	t.Helper()
	amount := money.New(decimal.RequireFromString("300.00"), money.TRY)
	p := model.NewTransactionParams{
		Type:        typ,
		BuyerID:     testutil.BuyerID,
		RelatedID:   relatedID,
		Amount:      amount,
		Description: "Court 1, Saturday 10:00",
	}
	if withSeller {
		split, err := NewCommissionCalculator(nil).SplitFor(typ, amount)
		require.NoError(t, err)
		p.SellerID = testutil.SellerID
		p.Commission = &split
	}

	tx, err := model.NewTransaction(p, testNow)
	require.NoError(t, err)
	tx, err = tx.AttachCheckout("tok-1", "https://pay.example/tok-1", testNow)
	require.NoError(t, err)
	tx, err = tx.Complete(valueobject.OutcomeCompleted{PaymentID: "pay-1", PaidPrice: amount.Amount()},
		valueobject.CompletionSourceCallback, testNow.Add(time.Minute))
	require.NoError(t, err)
	return tx
}

func newTestApplier(bookings *mockBookingRepo, calendar *mockCalendarRepo) *SideEffectApplier {
	return NewSideEffectApplier(bookings, calendar, NoBackOff, observability.Discard())
}
