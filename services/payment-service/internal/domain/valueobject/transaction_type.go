package valueobject

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TransactionType identifies what a payment buys, and therefore which side
// effects a completed payment triggers.
type TransactionType struct {
	value  string
	prefix string
}

var (
	TransactionTypeEvent             = TransactionType{"event_payment", "payment_"}
	TransactionTypeReservation       = TransactionType{"reservation_payment", "reservation_"}
	TransactionTypeMembership        = TransactionType{"membership_payment", "membership_"}
	TransactionTypePersonReservation = TransactionType{"person_reservation_payment", "person_reservation_"}
)

var validTransactionTypes = map[string]TransactionType{
	TransactionTypeEvent.value:             TransactionTypeEvent,
	TransactionTypeReservation.value:       TransactionTypeReservation,
	TransactionTypeMembership.value:        TransactionTypeMembership,
	TransactionTypePersonReservation.value: TransactionTypePersonReservation,
}

// Longest prefix first: "reservation_" is a suffix of "person_reservation_".
var basketPrefixes = []TransactionType{
	TransactionTypePersonReservation,
	TransactionTypeReservation,
	TransactionTypeMembership,
	TransactionTypeEvent,
}

// NewTransactionType validates and creates a TransactionType from a string.
func NewTransactionType(s string) (TransactionType, error) {
	if t, ok := validTransactionTypes[s]; ok {
		return t, nil
	}
	return TransactionType{}, fmt.Errorf("invalid transaction type: %q", s)
}

func (t TransactionType) String() string { return t.value }
func (t TransactionType) IsZero() bool   { return t.value == "" }

// BasketID is the correlation id sent to the gateway for transaction id.
func (t TransactionType) BasketID(id uuid.UUID) string {
	return t.prefix + id.String()
}

// ParseBasketID strips the type prefix from a gateway basket id. A bare
// transaction id without prefix is accepted too, with a zero type.
func ParseBasketID(basketID string) (TransactionType, uuid.UUID, error) {
	basketID = strings.TrimSpace(basketID)
	for _, t := range basketPrefixes {
		if rest, ok := strings.CutPrefix(basketID, t.prefix); ok {
			id, err := uuid.Parse(rest)
			if err != nil {
				return TransactionType{}, uuid.Nil, fmt.Errorf("invalid basket id %q: %w", basketID, err)
			}
			return t, id, nil
		}
	}
	id, err := uuid.Parse(basketID)
	if err != nil {
		return TransactionType{}, uuid.Nil, fmt.Errorf("invalid basket id %q: %w", basketID, err)
	}
	return TransactionType{}, id, nil
}
