package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/observability"
	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/testutil"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/usecase"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/service"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/infrastructure/memory"
)

// --- Fakes ---

type fakeGateway struct {
	mu sync.Mutex

	nextToken int
	results   map[string]port.CheckoutResult
	errs      map[string]error
	sessions  []port.CheckoutRequest

	refundResult port.RefundResult
	refundErr    error
	refunds      []money.Money
	cancelResult port.CancelResult
	cancelErr    error
	cancels      int

	retrieveCalls atomic.Int32
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		results:      make(map[string]port.CheckoutResult),
		errs:         make(map[string]error),
		refundResult: port.RefundResult{Status: port.GatewayStatusSuccess},
		cancelResult: port.CancelResult{Status: port.GatewayStatusSuccess},
	}
}

func (g *fakeGateway) InitCheckout(_ context.Context, req port.CheckoutRequest) (port.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextToken++
	token := fmt.Sprintf("tok-%d", g.nextToken)
	g.sessions = append(g.sessions, req)
	return port.CheckoutSession{Token: token, PaymentPageURL: "https://pay.example/" + token}, nil
}

func (g *fakeGateway) RetrieveResult(_ context.Context, token string) (port.CheckoutResult, error) {
	g.retrieveCalls.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.errs[token]; ok {
		return port.CheckoutResult{}, err
	}
	if res, ok := g.results[token]; ok {
		return res, nil
	}
	return port.CheckoutResult{GatewayStatus: port.GatewayStatusSuccess}, nil
}

func (g *fakeGateway) Refund(_ context.Context, _ string, amount money.Money) (port.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, amount)
	return g.refundResult, g.refundErr
}

func (g *fakeGateway) Cancel(_ context.Context, _ string) (port.CancelResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels++
	return g.cancelResult, g.cancelErr
}

func (g *fakeGateway) answer(token string, res port.CheckoutResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.errs, token)
	g.results[token] = res
}

func (g *fakeGateway) fail(token string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[token] = err
}

func (g *fakeGateway) lastSession() port.CheckoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[len(g.sessions)-1]
}

// flakyBookings fails the next n confirmations of facility reservations.
// With missingReservation set, reservations read as deleted.
type flakyBookings struct {
	*memory.BookingStore
	failConfirm        atomic.Int32
	missingReservation atomic.Bool
}

func (b *flakyBookings) GetFacilityReservation(ctx context.Context, id uuid.UUID) (model.FacilityReservation, error) {
	if b.missingReservation.Load() {
		return model.FacilityReservation{}, model.ErrBookingNotFound
	}
	return b.BookingStore.GetFacilityReservation(ctx, id)
}

func (b *flakyBookings) ConfirmFacilityReservation(ctx context.Context, id, transactionID uuid.UUID) error {
	if b.failConfirm.Add(-1) >= 0 {
		return fmt.Errorf("booking database down")
	}
	return b.BookingStore.ConfirmFacilityReservation(ctx, id, transactionID)
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []model.Notification
}

func (p *recordingPublisher) PublishNotification(_ context.Context, n model.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, n)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Harness ---

var (
	testNow   = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	admin     = dto.Caller{UserID: testutil.AdminID, IsAdmin: true}
	buyer     = dto.Caller{UserID: testutil.BuyerID}
	testPrice = decimal.RequireFromString("300.00")
)

type harness struct {
	txs           *memory.TransactionStore
	bookings      *flakyBookings
	calendar      *memory.CalendarStore
	notifications *memory.NotificationStore
	publisher     *recordingPublisher
	gateway       *fakeGateway
	clock         *testClock

	engine   *usecase.ApplyCompletion
	checkout *usecase.InitiateCheckout
	check    *usecase.CheckTransaction
	callback *usecase.HandleCallback
	refunds  *usecase.RefundTransaction
	get      *usecase.GetTransaction
	sweeper  *usecase.EffectsSweeper
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := observability.Discard()

	h := &harness{
		txs:           memory.NewTransactionStore(),
		bookings:      &flakyBookings{BookingStore: memory.NewBookingStore()},
		calendar:      memory.NewCalendarStore(),
		notifications: memory.NewNotificationStore(),
		publisher:     &recordingPublisher{},
		gateway:       newFakeGateway(),
		clock:         &testClock{now: testNow},
	}

	effects := service.NewSideEffectApplier(h.bookings, h.calendar, service.NoBackOff, logger)
	fanout := service.NewNotificationFanout(h.notifications, h.publisher, testutil.AdminID, service.NoBackOff, logger)
	h.engine = usecase.NewApplyCompletion(h.txs, effects, fanout, nil, logger, 0).WithClock(h.clock.Now)

	h.checkout = usecase.NewInitiateCheckout(h.txs, h.bookings, h.gateway, service.NewCommissionCalculator(nil), h.engine, nil, logger,
		usecase.CheckoutSettings{CallbackURL: "https://api.example/api/payments/callback"})
	h.check = usecase.NewCheckTransaction(h.txs, h.gateway, h.engine, nil, logger, 0, 0)
	h.callback = usecase.NewHandleCallback(h.txs, h.gateway, h.engine, nil, logger, 0)
	h.refunds = usecase.NewRefundTransaction(h.txs, h.gateway, fanout, nil, logger, 0)
	h.get = usecase.NewGetTransaction(h.txs)
	h.sweeper = usecase.NewEffectsSweeper(h.txs, h.engine, logger, 0)
	return h
}

// seedReservation creates a 300.00 TRY court reservation of the test buyer at
// a facility owned by the test seller.
func (h *harness) seedReservation() uuid.UUID {
	id := uuid.New()
	h.bookings.AddReservation(model.FacilityReservation{
		ID:            id,
		FacilityID:    uuid.New(),
		FacilityName:  "Moda Tennis Club",
		OwnerID:       testutil.SellerID,
		UserID:        testutil.BuyerID,
		CustomerName:  "Ayse Yilmaz",
		CustomerPhone: "+905551112233",
		Date:          testNow.AddDate(0, 0, 3),
		StartTime:     "10:00",
		EndTime:       "11:00",
		Address:       "Kadikoy, Istanbul",
	}, money.New(testPrice, money.TRY))
	return id
}

// seedEvent creates an event with one pending participation of the test buyer.
func (h *harness) seedEvent(maxParticipants int) (eventID, participationID uuid.UUID) {
	eventID, participationID = uuid.New(), uuid.New()
	h.bookings.AddEvent(memory.Event{
		ID:              eventID,
		OrganizerID:     testutil.SellerID,
		Title:           "Sunday 5-a-side",
		StartsAt:        testNow.AddDate(0, 0, 5),
		Location:        "Besiktas",
		Price:           money.New(decimal.RequireFromString("150.00"), money.TRY),
		MaxParticipants: maxParticipants,
	})
	h.bookings.AddParticipation(memory.Participation{
		ID:      participationID,
		EventID: eventID,
		UserID:  testutil.BuyerID,
	})
	return eventID, participationID
}

func (h *harness) startCheckout(t *testing.T, typ valueobject.TransactionType, relatedID uuid.UUID) dto.InitiateCheckoutResponse {
	t.Helper()
	resp, err := h.checkout.Execute(context.Background(), dto.InitiateCheckoutRequest{
		Type:      typ.String(),
		RelatedID: relatedID,
		BuyerID:   testutil.BuyerID,
		Buyer:     dto.Buyer{Name: "Ayse Yilmaz", Email: "ayse@example.com", IP: "85.34.78.112"},
	})
	require.NoError(t, err)
	return resp
}

func (h *harness) load(t *testing.T, id uuid.UUID) model.Transaction {
	t.Helper()
	tx, err := h.txs.FindByID(context.Background(), id)
	require.NoError(t, err)
	return tx
}

func successResult(basketID, paymentID string) port.CheckoutResult {
	return port.CheckoutResult{
		GatewayStatus: port.GatewayStatusSuccess,
		PaymentStatus: port.PaymentStatusSuccess,
		PaymentID:     paymentID,
		PaidPrice:     testPrice,
		Currency:      "TRY",
		BasketID:      basketID,
	}
}

func challengeResult(basketID string) port.CheckoutResult {
	return port.CheckoutResult{
		GatewayStatus: port.GatewayStatusSuccess,
		PaymentStatus: port.PaymentStatusFailure,
		BasketID:      basketID,
	}
}

func failureResult(basketID, message string) port.CheckoutResult {
	return port.CheckoutResult{
		GatewayStatus: port.GatewayStatusFailure,
		ErrorCode:     "10051",
		ErrorMessage:  message,
		BasketID:      basketID,
	}
}

func gatewayDown() error {
	return &port.GatewayError{Kind: port.GatewayErrUnavailable, Op: "retrieve", Err: fmt.Errorf("connection reset by peer")}
}

func tokenGone() error {
	return &port.GatewayError{Kind: port.GatewayErrInvalidToken, Op: "retrieve", Code: "5146", Message: "Token bulunamadi"}
}

func countKind(ns []model.Notification, kind string) int {
	n := 0
	for _, x := range ns {
		if x.Kind == kind {
			n++
		}
	}
	return n
}
