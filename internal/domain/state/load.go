package state

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Retry pacing for the initial load
const (
	loadInitialInterval = 100 * time.Millisecond
	loadMaxInterval     = 5 * time.Second
)

// Load runs Initialize until it succeeds, retrying backend failures with
// exponential backoff for up to window. When the window runs out the store
// is marked failed and stays not ready. Cancelling ctx stops the retries
// without marking the store failed.
func (s *Store) Load(ctx context.Context, window time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = loadInitialInterval
	policy.MaxInterval = loadMaxInterval

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, s.Initialize(ctx)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(window),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("State load failed, retrying",
				zap.Error(err),
				zap.Int("attempt", attempts),
				zap.Duration("next", next),
			)
		}),
	)
	if err == nil {
		s.failed.Store(false)
		return nil
	}
	if ctx.Err() == nil {
		s.failed.Store(true)
	}
	return fmt.Errorf("state load gave up after %d attempts: %w", attempts, err)
}

// Failed reports whether Load gave up
func (s *Store) Failed() bool {
	return s.failed.Load()
}
