package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// Purchase is a priced, buyer-checked quote for one bookable object.
type Purchase struct {
	Type        valueobject.TransactionType
	RelatedID   uuid.UUID
	BuyerID     uuid.UUID
	SellerID    uuid.UUID // uuid.Nil when the platform sells directly
	Amount      money.Money
	Description string
}

// EventParticipation links a user to an event they are paying to join.
type EventParticipation struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	UserID      uuid.UUID
	OrganizerID uuid.UUID
	EventTitle  string
	StartsAt    time.Time
	Location    string
}

// FacilityReservation is a time slot booked at a facility.
type FacilityReservation struct {
	ID            uuid.UUID
	FacilityID    uuid.UUID
	FacilityName  string
	OwnerID       uuid.UUID
	UserID        uuid.UUID
	CustomerName  string
	CustomerPhone string
	Date          time.Time
	StartTime     string
	EndTime       string
	Address       string
}

// Membership is a facility membership bought for a fixed period. The dates
// are fixed when the membership is created and shown to the buyer.
type Membership struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	FacilityID   uuid.UUID
	FacilityName string
	OwnerID      uuid.UUID
	Period       string // daily | monthly | yearly
	Status       string
	StartDate    time.Time
	EndDate      time.Time
}

// Membership statuses touched by payment completion.
const (
	MembershipStatusPendingPayment = "pending_payment"
	MembershipStatusActive         = "active"
)

// PersonReservation is a booking of a person's service (coach, referee, player).
type PersonReservation struct {
	ID          uuid.UUID
	BuyerID     uuid.UUID
	ProviderID  uuid.UUID
	ServiceName string
	BuyerName   string
	BuyerPhone  string
	Date        time.Time
	StartTime   string
	EndTime     string
	Location    string
}

// CommissionEntry records the platform commission taken from one transaction.
type CommissionEntry struct {
	TransactionID  uuid.UUID
	Type           valueobject.TransactionType
	SellerID       uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Rate           decimal.Decimal
	Commission     decimal.Decimal
	SellerReceives decimal.Decimal
	CreatedAt      time.Time
}
