package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// Booking record statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Event is a seeded event with its ticket price and capacity. A zero
// MaxParticipants means unlimited.
type Event struct {
	ID              uuid.UUID
	OrganizerID     uuid.UUID
	Title           string
	StartsAt        time.Time
	Location        string
	Price           money.Money
	MaxParticipants int
}

// Participation is a seeded event_participations row.
type Participation struct {
	ID      uuid.UUID
	EventID uuid.UUID
	UserID  uuid.UUID
	Status  string
}

type reservationRecord struct {
	model.FacilityReservation
	total         money.Money
	status        string
	paymentStatus string
	txID          uuid.UUID
}

type membershipRecord struct {
	model.Membership
	price money.Money
	txID  uuid.UUID
}

type personReservationRecord struct {
	model.PersonReservation
	price  money.Money
	status string
	txID   uuid.UUID
}

type participationRecord struct {
	Participation
	txID uuid.UUID
}

// BookingStore implements port.BookingRepository over seeded records.
type BookingStore struct {
	mu sync.Mutex

	events         map[uuid.UUID]Event
	participants   map[uuid.UUID]map[uuid.UUID]bool
	participations map[uuid.UUID]participationRecord
	reservations   map[uuid.UUID]reservationRecord
	memberships    map[uuid.UUID]membershipRecord
	personRes      map[uuid.UUID]personReservationRecord
	commissions    map[uuid.UUID]model.CommissionEntry
}

func NewBookingStore() *BookingStore {
	return &BookingStore{
		events:         make(map[uuid.UUID]Event),
		participants:   make(map[uuid.UUID]map[uuid.UUID]bool),
		participations: make(map[uuid.UUID]participationRecord),
		reservations:   make(map[uuid.UUID]reservationRecord),
		memberships:    make(map[uuid.UUID]membershipRecord),
		personRes:      make(map[uuid.UUID]personReservationRecord),
		commissions:    make(map[uuid.UUID]model.CommissionEntry),
	}
}

// --- seeding ---

func (s *BookingStore) AddEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	if s.participants[e.ID] == nil {
		s.participants[e.ID] = make(map[uuid.UUID]bool)
	}
}

func (s *BookingStore) AddParticipation(p Participation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Status == "" {
		p.Status = StatusPending
	}
	s.participations[p.ID] = participationRecord{Participation: p}
}

func (s *BookingStore) AddReservation(r model.FacilityReservation, total money.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[r.ID] = reservationRecord{FacilityReservation: r, total: total, status: StatusPending, paymentStatus: PaymentStatusPending}
}

func (s *BookingStore) AddMembership(m model.Membership, price money.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Status == "" {
		m.Status = model.MembershipStatusPendingPayment
	}
	s.memberships[m.ID] = membershipRecord{Membership: m, price: price}
}

func (s *BookingStore) AddPersonReservation(r model.PersonReservation, price money.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personRes[r.ID] = personReservationRecord{PersonReservation: r, price: price, status: StatusPending}
}

// --- inspection ---

// ParticipantCount returns the number of distinct participants of an event.
func (s *BookingStore) ParticipantCount(eventID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants[eventID])
}

// BookingStatus returns the status and paying transaction of any seeded record.
func (s *BookingStore) BookingStatus(id uuid.UUID) (string, uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.participations[id]; ok {
		return r.Status, r.txID
	}
	if r, ok := s.reservations[id]; ok {
		return r.status, r.txID
	}
	if r, ok := s.memberships[id]; ok {
		return r.Status, r.txID
	}
	if r, ok := s.personRes[id]; ok {
		return r.status, r.txID
	}
	return "", uuid.Nil
}

// ReservationPaymentStatus returns the payment status of a facility reservation.
func (s *BookingStore) ReservationPaymentStatus(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations[id].paymentStatus
}

// Commissions returns every recorded commission entry.
func (s *BookingStore) Commissions() []model.CommissionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CommissionEntry, 0, len(s.commissions))
	for _, c := range s.commissions {
		out = append(out, c)
	}
	return out
}

// --- port.BookingRepository ---

func (s *BookingStore) QuotePurchase(_ context.Context, typ valueobject.TransactionType, relatedID, buyerID uuid.UUID) (model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := model.Purchase{Type: typ, RelatedID: relatedID, BuyerID: buyerID}
	switch typ {
	case valueobject.TransactionTypeEvent:
		part, ok := s.participations[relatedID]
		if !ok {
			return model.Purchase{}, model.ErrBookingNotFound
		}
		event, ok := s.events[part.EventID]
		if !ok {
			return model.Purchase{}, model.ErrBookingNotFound
		}
		if part.UserID != buyerID {
			return model.Purchase{}, model.ErrForbidden
		}
		if part.Status == StatusConfirmed {
			return model.Purchase{}, model.ErrAlreadyPaid
		}
		if event.MaxParticipants > 0 && len(s.participants[event.ID]) >= event.MaxParticipants {
			return model.Purchase{}, model.ErrEventFull
		}
		p.SellerID = event.OrganizerID
		p.Amount = event.Price
		p.Description = fmt.Sprintf("Event: %s", event.Title)
	case valueobject.TransactionTypeReservation:
		r, ok := s.reservations[relatedID]
		if !ok {
			return model.Purchase{}, model.ErrBookingNotFound
		}
		if r.UserID != buyerID {
			return model.Purchase{}, model.ErrForbidden
		}
		if r.status == StatusConfirmed {
			return model.Purchase{}, model.ErrAlreadyPaid
		}
		p.SellerID = r.OwnerID
		p.Amount = r.total
		p.Description = fmt.Sprintf("Reservation: %s", r.FacilityName)
	case valueobject.TransactionTypeMembership:
		m, ok := s.memberships[relatedID]
		if !ok {
			return model.Purchase{}, model.ErrBookingNotFound
		}
		if m.UserID != buyerID {
			return model.Purchase{}, model.ErrForbidden
		}
		if m.Status == model.MembershipStatusActive {
			return model.Purchase{}, model.ErrAlreadyPaid
		}
		p.SellerID = m.OwnerID
		p.Amount = m.price
		p.Description = fmt.Sprintf("Membership: %s (%s)", m.FacilityName, m.Period)
	case valueobject.TransactionTypePersonReservation:
		r, ok := s.personRes[relatedID]
		if !ok {
			return model.Purchase{}, model.ErrBookingNotFound
		}
		if r.BuyerID != buyerID {
			return model.Purchase{}, model.ErrForbidden
		}
		if r.status == StatusConfirmed {
			return model.Purchase{}, model.ErrAlreadyPaid
		}
		p.SellerID = r.ProviderID
		p.Amount = r.price
		p.Description = fmt.Sprintf("Booking: %s", r.ServiceName)
	default:
		return model.Purchase{}, fmt.Errorf("unsupported transaction type %q", typ)
	}
	return p, nil
}

func (s *BookingStore) GetEventParticipation(_ context.Context, id uuid.UUID) (model.EventParticipation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.participations[id]
	if !ok {
		return model.EventParticipation{}, model.ErrBookingNotFound
	}
	event, ok := s.events[part.EventID]
	if !ok {
		return model.EventParticipation{}, model.ErrBookingNotFound
	}
	return model.EventParticipation{
		ID:          part.ID,
		EventID:     event.ID,
		UserID:      part.UserID,
		OrganizerID: event.OrganizerID,
		EventTitle:  event.Title,
		StartsAt:    event.StartsAt,
		Location:    event.Location,
	}, nil
}

func (s *BookingStore) AddEventParticipant(_ context.Context, eventID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.participants[eventID]
	if !ok {
		return false, model.ErrBookingNotFound
	}
	if set[userID] {
		return false, nil
	}
	set[userID] = true
	return true, nil
}

func (s *BookingStore) ConfirmEventParticipation(_ context.Context, participationID, transactionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.participations[participationID]
	if !ok {
		return model.ErrBookingNotFound
	}
	r.Status, r.txID = StatusConfirmed, transactionID
	s.participations[participationID] = r
	return nil
}

func (s *BookingStore) GetFacilityReservation(_ context.Context, id uuid.UUID) (model.FacilityReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return model.FacilityReservation{}, model.ErrBookingNotFound
	}
	return r.FacilityReservation, nil
}

func (s *BookingStore) ConfirmFacilityReservation(_ context.Context, id, transactionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	r.status, r.paymentStatus, r.txID = StatusConfirmed, PaymentStatusCompleted, transactionID
	s.reservations[id] = r
	return nil
}

func (s *BookingStore) GetMembership(_ context.Context, id uuid.UUID) (model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[id]
	if !ok {
		return model.Membership{}, model.ErrBookingNotFound
	}
	return m.Membership, nil
}

func (s *BookingStore) ActivateMembership(_ context.Context, id, transactionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memberships[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	if m.Status != model.MembershipStatusPendingPayment && m.Status != model.MembershipStatusActive {
		return fmt.Errorf("%w: membership %s is %s", model.ErrBookingNotPayable, id, m.Status)
	}
	m.Status, m.txID = model.MembershipStatusActive, transactionID
	s.memberships[id] = m
	return nil
}

func (s *BookingStore) GetPersonReservation(_ context.Context, id uuid.UUID) (model.PersonReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.personRes[id]
	if !ok {
		return model.PersonReservation{}, model.ErrBookingNotFound
	}
	return r.PersonReservation, nil
}

func (s *BookingStore) ConfirmPersonReservation(_ context.Context, id, transactionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.personRes[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	r.status, r.txID = StatusConfirmed, transactionID
	s.personRes[id] = r
	return nil
}

func (s *BookingStore) RecordCommission(_ context.Context, entry model.CommissionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commissions[entry.TransactionID] = entry
	return nil
}
