// Package memory holds process-local stores for tests and local development.
// They give the same conditional-write guarantees as the Postgres stores, but
// only within one process.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/events"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// TransactionStore implements port.TransactionRepository and events.OutboxRepository.
type TransactionStore struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]model.Transaction
	outbox []events.OutboxEntry
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{byID: make(map[uuid.UUID]model.Transaction)}
}

func (s *TransactionStore) Create(_ context.Context, tx model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[tx.ID()]; ok {
		return model.ErrActiveTransactionExists
	}
	if _, ok := s.activeByRelated(tx.RelatedID()); ok {
		return model.ErrActiveTransactionExists
	}
	s.put(tx)
	return nil
}

func (s *TransactionStore) FindByID(_ context.Context, id uuid.UUID) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID[id]
	if !ok {
		return model.Transaction{}, model.ErrTransactionNotFound
	}
	return tx, nil
}

func (s *TransactionStore) FindActiveByRelated(_ context.Context, relatedID uuid.UUID) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.activeByRelated(relatedID)
	if !ok {
		return model.Transaction{}, model.ErrTransactionNotFound
	}
	return tx, nil
}

func (s *TransactionStore) TransitionTerminal(_ context.Context, tx model.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[tx.ID()]
	if !ok {
		return false, model.ErrTransactionNotFound
	}
	if stored.Status().IsTerminal() {
		return false, nil
	}
	s.put(tx)
	return true, nil
}

func (s *TransactionStore) ClaimEffects(_ context.Context, id uuid.UUID, now time.Time, lease time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return false, model.ErrTransactionNotFound
	}
	if !stored.EffectsLeaseExpired(now, lease) {
		return false, nil
	}
	s.byID[id] = stored.WithEffectsClaimed(now)
	return true, nil
}

func (s *TransactionStore) ReleaseEffects(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return model.ErrTransactionNotFound
	}
	if stored.EffectsPending() {
		s.byID[id] = stored.WithEffectsReleased()
	}
	return nil
}

func (s *TransactionStore) MarkEffectsApplied(_ context.Context, id uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return model.ErrTransactionNotFound
	}
	if stored.EffectsAppliedAt() == nil {
		s.byID[id] = stored.WithEffectsApplied(now)
	}
	return nil
}

func (s *TransactionStore) MarkEffectsFailed(_ context.Context, id uuid.UUID, now time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return model.ErrTransactionNotFound
	}
	if stored.EffectsPending() {
		s.byID[id] = stored.WithEffectsFailed(now, reason)
	}
	return nil
}

func (s *TransactionStore) UnblockEffects(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return model.ErrTransactionNotFound
	}
	if stored.EffectsBlocked() {
		s.byID[id] = stored.WithEffectsUnblocked()
	}
	return nil
}

func (s *TransactionStore) FindEffectsPending(_ context.Context, claimedBefore time.Time, limit int) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Transaction
	for _, tx := range s.byID {
		if !tx.EffectsPending() {
			continue
		}
		if c := tx.EffectsClaimedAt(); c != nil && !c.Before(claimedBefore) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt().Before(out[j].UpdatedAt()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *TransactionStore) SaveRefund(_ context.Context, tx model.Transaction, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[tx.ID()]
	if !ok {
		return model.ErrTransactionNotFound
	}
	if stored.Version() != expectedVersion {
		return model.ErrConcurrentModification
	}
	s.byID[tx.ID()] = stored.WithRefundFrom(tx)
	s.appendOutbox(tx)
	return nil
}

// FetchUnpublished implements events.OutboxRepository.
func (s *TransactionStore) FetchUnpublished(_ context.Context, limit int) ([]events.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []events.OutboxEntry
	for _, e := range s.outbox {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkPublished implements events.OutboxRepository.
func (s *TransactionStore) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	now := time.Now().UTC()
	for i := range s.outbox {
		if want[s.outbox[i].ID] && s.outbox[i].PublishedAt == nil {
			s.outbox[i].PublishedAt = &now
		}
	}
	return nil
}

// Outbox returns a copy of every outbox entry written so far.
func (s *TransactionStore) Outbox() []events.OutboxEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.OutboxEntry(nil), s.outbox...)
}

func (s *TransactionStore) put(tx model.Transaction) {
	s.appendOutbox(tx)
	_, tx = tx.ClearDomainEvents()
	s.byID[tx.ID()] = tx
}

func (s *TransactionStore) appendOutbox(tx model.Transaction) {
	for _, evt := range tx.DomainEvents() {
		s.outbox = append(s.outbox, events.NewOutboxEntry(evt))
	}
}

func (s *TransactionStore) activeByRelated(relatedID uuid.UUID) (model.Transaction, bool) {
	var found model.Transaction
	ok := false
	for _, tx := range s.byID {
		if tx.RelatedID() != relatedID || tx.Status() == valueobject.TransactionStatusFailed {
			continue
		}
		if !ok || tx.CreatedAt().After(found.CreatedAt()) {
			found, ok = tx, true
		}
	}
	return found, ok
}
