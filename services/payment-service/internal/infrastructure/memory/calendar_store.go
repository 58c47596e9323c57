package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
)

// CalendarStore implements port.CalendarRepository.
type CalendarStore struct {
	mu      sync.Mutex
	entries map[string]model.CalendarEntry
}

func NewCalendarStore() *CalendarStore {
	return &CalendarStore{entries: make(map[string]model.CalendarEntry)}
}

func (s *CalendarStore) UpsertEntry(_ context.Context, entry model.CalendarEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		s.entries[entry.ID] = entry
	}
	return nil
}

// EntriesFor returns the calendar entries of userID.
func (s *CalendarStore) EntriesFor(userID uuid.UUID) []model.CalendarEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CalendarEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
