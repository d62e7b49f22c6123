// Package resilience wraps calls to external model providers in a circuit
// breaker so provider outages degrade retrieval instead of stalling it.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Config controls breaker behavior per provider operation.
type Config struct {
	// ConsecutiveFailures trips the breaker once reached.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

func (c Config) normalize() Config {
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// Breaker guards one external operation.
type Breaker struct {
	inner *gobreaker.CircuitBreaker[any]
}

// NewBreaker creates a named circuit breaker.
func NewBreaker(name string, cfg Config) *Breaker {
	cfg = cfg.normalize()
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation is not a provider failure.
			if errors.Is(err, context.Canceled) {
				return true
			}
			return err == nil
		},
	}
	return &Breaker{inner: gobreaker.NewCircuitBreaker[any](settings)}
}

// Execute runs fn through the breaker. When the breaker is open the call
// fails immediately with gobreaker.ErrOpenState.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.inner.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// IsOpen reports whether err means the breaker refused the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
