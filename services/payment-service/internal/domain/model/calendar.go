package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Calendar entry types.
const (
	CalendarTypeEvent          = "event"
	CalendarTypeReservation    = "reservation"
	CalendarTypeReservationOut = "reservation_out"
	CalendarTypeReservationIn  = "reservation_in"
)

// CalendarEntry is an item on a user's calendar. The id is derived from the
// booking and the party, so writing the same entry twice is a no-op.
type CalendarEntry struct {
	ID           string
	UserID       uuid.UUID
	Type         string
	Title        string
	Description  string
	Date         time.Time
	StartTime    string
	EndTime      string
	Location     string
	RelatedID    uuid.UUID
	ContactName  string
	ContactPhone string
	CreatedAt    time.Time
}

// CalendarEntryID builds the deterministic id for party's entry of a booking.
func CalendarEntryID(relatedID uuid.UUID, party string) string {
	return fmt.Sprintf("cal_%s_%s", relatedID, party)
}
