// Package circuitbreaker wraps sony/gobreaker with application defaults.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/sumitrevolt/flasharb/internal/apperror"
)

// Config holds circuit breaker tuning.
type Config struct {
	Name        string
	MaxRequests uint32        // allowed through while half-open
	Interval    time.Duration // counter reset window while closed
	Timeout     time.Duration // open -> half-open transition
	MinRequests uint32        // minimum requests before tripping
	FailureRate float64       // failure ratio that trips the breaker
}

// DefaultConfig returns production defaults for a named breaker.
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		MinRequests: 5,
		FailureRate: 0.6,
	}
}

// CircuitBreaker is a typed wrapper around gobreaker.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a circuit breaker from cfg.
func New[T any](cfg Config) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRate >= cfg.FailureRate
		},
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker. When the breaker is open the call is
// rejected with CodeCircuitOpen without invoking fn.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := c.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		var zero T
		return zero, apperror.New(apperror.CodeCircuitOpen,
			apperror.WithCause(err),
			apperror.WithContext(c.cb.Name()))
	}
	return result, err
}

// State returns the current breaker state as a string.
func (c *CircuitBreaker[T]) State() string {
	return c.cb.State().String()
}
