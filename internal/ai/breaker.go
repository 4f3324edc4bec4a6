package ai

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
	"github.com/0nhc/llm-fortune-teller/internal/logging"
)

// BreakerSettings configures a Breaker.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before a probe call.
	OpenTimeout time.Duration
	Logger      *logging.Logger
}

// Breaker wraps a Client with a circuit breaker so that a provider that keeps
// failing is short-circuited instead of burning retries every round.
//
// Auth failures and caller cancellation do not count against the provider.
// An open breaker surfaces as a terminal ProviderError wrapping ErrCircuitOpen.
type Breaker struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next with a circuit breaker.
func NewBreaker(next Client, s BreakerSettings) *Breaker {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 60 * time.Second
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	settings := gobreaker.Settings{
		Name:        string(next.Name()),
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch errors.KindOf(err) {
			case errors.KindAuth, errors.KindCanceled, errors.KindValidation:
				return true
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"provider", name,
				"from", from.String(),
				"to", to.String())
		},
	}

	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Name returns the wrapped client's name.
func (b *Breaker) Name() BackendName { return b.next.Name() }

// SupportsWebSearch delegates to the wrapped client.
func (b *Breaker) SupportsWebSearch() bool { return SupportsWebSearch(b.next) }

// State reports the breaker state ("closed", "half-open" or "open").
func (b *Breaker) State() string { return b.cb.State().String() }

// Generate calls the wrapped client unless the breaker is open.
func (b *Breaker) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, prompt, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", errors.NewProviderError(string(b.next.Name()), err.Error(), errors.ErrCircuitOpen)
		}
		return "", err
	}
	return result.(string), nil
}
