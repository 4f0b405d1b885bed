package userclient

import (
	"context"
	"errors"
	"time"

	"order-management-service/internal/util"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings configures a Breaker
type BreakerSettings struct {
	// Window is the rolling interval after which closed-state counts reset.
	Window time.Duration
	// MinRequests is the number of calls in a window before the failure
	// ratio is considered.
	MinRequests uint32
	// FailureRatio trips the breaker once reached.
	FailureRatio float64
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenProbes is the number of trial calls let through when half-open;
	// that many consecutive successes close the breaker again.
	HalfOpenProbes uint32
}

// Breaker is the process-wide failure state for calls to one dependency.
// It starts closed when created and is mutated by every call outcome.
type Breaker struct {
	name   string
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreaker creates a closed breaker
func NewBreaker(name string, s BreakerSettings) *Breaker {
	b := &Breaker{
		name:   name,
		logger: util.GetLogger(),
	}

	minRequests := s.MinRequests
	if minRequests == 0 {
		minRequests = 1
	}

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenProbes,
		Interval:    s.Window,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about the dependency
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: b.onStateChange,
	})
	util.CircuitBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return b
}

func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	util.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	b.logger.Warn("Circuit breaker state changed",
		zap.String("breaker", name),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
}

// Execute runs fn unless the breaker rejects the call. Rejections are
// reported as ErrBreakerOpen.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrBreakerOpen
	}
	return res, err
}

// State returns the current breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}
