package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
)

const (
	DefaultSweepInterval = time.Minute
	sweepBatchSize       = 50
)

// EffectsSweeper finishes side effects that a crashed or failed caller left
// behind. It relies on the same lease as ApplyCompletion, so it never runs
// effects a live caller is still applying.
type EffectsSweeper struct {
	repo     port.TransactionRepository
	engine   *ApplyCompletion
	logger   *slog.Logger
	interval time.Duration
}

func NewEffectsSweeper(repo port.TransactionRepository, engine *ApplyCompletion, logger *slog.Logger, interval time.Duration) *EffectsSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &EffectsSweeper{
		repo:     repo,
		engine:   engine,
		logger:   logger,
		interval: interval,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *EffectsSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("side-effect sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("side-effect sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("side-effect sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce resumes one batch and reports how many transactions it finished.
func (s *EffectsSweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.engine.now().Add(-s.engine.lease)
	pending, err := s.repo.FindEffectsPending(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending side effects: %w", err)
	}

	finished := 0
	for _, tx := range pending {
		done, err := s.engine.ResumeEffects(ctx, tx)
		if err != nil {
			s.logger.Warn("side effects still incomplete", "transaction_id", tx.ID(), "error", err)
			continue
		}
		if done.EffectsAppliedAt() != nil {
			finished++
		}
	}
	if finished > 0 {
		s.logger.Info("side effects resumed", "count", finished)
	}
	return finished, nil
}

// ResumeByID resumes the side effects of one transaction, used by the event consumer.
func (s *EffectsSweeper) ResumeByID(ctx context.Context, id uuid.UUID) error {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	if !tx.EffectsPending() {
		return nil
	}
	_, err = s.engine.ResumeEffects(ctx, tx)
	return err
}


// ForceResume clears a manual-attention marker and runs the side effects
// again. Operators call it after repairing the record that blocked them.
// The returned transaction is blocked again if the cause is still there.
func (s *EffectsSweeper) ForceResume(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx.EffectsBlocked() {
		if err := s.repo.UnblockEffects(ctx, id); err != nil {
			return tx, fmt.Errorf("failed to unblock side effects: %w", err)
		}
		s.logger.Info("side effects unblocked", "transaction_id", id, "previous_error", tx.EffectsError())
		tx = tx.WithEffectsUnblocked()
	}
	if !tx.EffectsPending() {
		return tx, nil
	}
	return s.engine.ResumeEffects(ctx, tx)
}
