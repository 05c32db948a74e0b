package build

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig controls when storage failures stop a batch from saving.
type BreakerConfig struct {
	MaxFailures uint32        // Consecutive save failures that open the breaker (default 3)
	Timeout     time.Duration // How long the breaker stays open before probing (default 30s)
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 3,
		Timeout:     30 * time.Second,
	}
}

// newStoreBreaker guards store writes. The store already retries busy
// errors, so consecutive failures reaching the breaker mean the database is
// unusable and later saves in the batch should fail without touching it.
func newStoreBreaker(cfg BreakerConfig, onChange func(name string, from, to gobreaker.State)) *gobreaker.CircuitBreaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBreakerConfig().Timeout
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "store",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: onChange,
		IsSuccessful: func(err error) bool {
			// Cancellation is not a storage failure
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
}

// guarded runs fn through the breaker.
func guarded(cb *gobreaker.CircuitBreaker, fn func() error) error {
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}
