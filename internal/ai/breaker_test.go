package ai

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

type stubClient struct {
	calls atomic.Int32
	err   error
	reply string
}

func (s *stubClient) Name() BackendName { return "stub" }

func (s *stubClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	s.calls.Add(1)
	return s.reply, s.err
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubClient{err: errors.NewProviderError("stub", "boom", nil)}
	b := NewBreaker(stub, BreakerSettings{MaxFailures: 2, OpenTimeout: time.Minute})

	for range 2 {
		if _, err := b.Generate(context.Background(), "p", GenerateOptions{}); err == nil {
			t.Fatal("expected failure")
		}
	}
	if b.State() != "open" {
		t.Fatalf("State() = %q, want open", b.State())
	}

	_, err := b.Generate(context.Background(), "p", GenerateOptions{})
	if !errors.Is(err, errors.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if errors.IsRetryable(err) {
		t.Error("an open breaker must be terminal")
	}
	if stub.calls.Load() != 2 {
		t.Errorf("wrapped client called %d times, want 2", stub.calls.Load())
	}
}

func TestBreaker_AuthErrorsDoNotTrip(t *testing.T) {
	stub := &stubClient{err: errors.NewAuthError("stub", errors.ErrMissingAPIKey)}
	b := NewBreaker(stub, BreakerSettings{MaxFailures: 1})

	for range 3 {
		_, err := b.Generate(context.Background(), "p", GenerateOptions{})
		if errors.KindOf(err) != errors.KindAuth {
			t.Fatalf("expected auth error to pass through, got %v", err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("State() = %q, want closed", b.State())
	}
}

func TestBreaker_PassesThroughSuccess(t *testing.T) {
	stub := &stubClient{reply: "ok"}
	b := NewBreaker(stub, BreakerSettings{})

	got, err := b.Generate(context.Background(), "p", GenerateOptions{})
	if err != nil || got != "ok" {
		t.Errorf("Generate() = %q, %v", got, err)
	}
	if b.Name() != "stub" {
		t.Errorf("Name() = %q", b.Name())
	}
}
