package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// Default breaker settings.
const (
	defaultBreakerFailures uint32 = 5
	defaultBreakerOpen            = 30 * time.Second
	defaultBreakerInterval        = 60 * time.Second
)

// BreakerConfig configures NewBreaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe is allowed.
	OpenTimeout time.Duration
	// Interval clears failure counts while closed.
	Interval time.Duration
}

// Breaker wraps a Model so repeated failures fail fast.
type Breaker struct {
	inner   Model
	breaker *gobreaker.CircuitBreaker[*Reply]
}

var _ Model = (*Breaker)(nil)

// NewBreaker wraps inner with a circuit breaker.
func NewBreaker(inner Model, cfg BreakerConfig) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerFailures
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = defaultBreakerOpen
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[*Reply](gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
		// A caller hanging up says nothing about the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{inner: inner, breaker: cb}
}

// Complete routes the call through the breaker.
func (b *Breaker) Complete(ctx context.Context, req Request) (*Reply, error) {
	reply, err := b.breaker.Execute(func() (*Reply, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("model circuit open: %w", err)
		}
		return nil, err
	}
	return reply, nil
}

// State returns the breaker state for health reporting.
func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}
