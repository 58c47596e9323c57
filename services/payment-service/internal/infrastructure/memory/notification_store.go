package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
)

// NotificationStore implements port.NotificationStore.
type NotificationStore struct {
	mu    sync.Mutex
	saved map[string]model.Notification
	order []string
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{saved: make(map[string]model.Notification)}
}

func (s *NotificationStore) Save(_ context.Context, n model.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.saved[n.ID]; ok {
		return false, nil
	}
	s.saved[n.ID] = n
	s.order = append(s.order, n.ID)
	return true, nil
}

// For returns the notifications addressed to userID in insertion order.
func (s *NotificationStore) For(userID uuid.UUID) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, id := range s.order {
		if n := s.saved[id]; n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// All returns every saved notification in insertion order.
func (s *NotificationStore) All() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.saved[id])
	}
	return out
}
