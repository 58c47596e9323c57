package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxStepAttempts bounds in-process retries of a single side-effect step.
// Anything still failing is left for the next reconciliation call or the sweeper.
const maxStepAttempts = 3

// BackOffFactory builds the retry schedule for one step.
type BackOffFactory func() backoff.BackOff

// DefaultBackOff is exponential from 200ms, capped at 2s between attempts.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}

// NoBackOff retries immediately; used by tests.
func NoBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func retry(ctx context.Context, factory BackOffFactory, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(factory(), maxStepAttempts-1), ctx)
	return backoff.Retry(op, b)
}
