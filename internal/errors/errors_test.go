package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Provider Error Tests
// -----------------------------------------------------------------------------

func TestAuthError(t *testing.T) {
	err := NewAuthError("gemini", ErrMissingAPIKey).WithEnvVar("GEMINI_API_KEY")

	want := "auth error [provider=gemini, env=GEMINI_API_KEY]: authentication failed: api key not set"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.IsRetryable() {
		t.Error("IsRetryable() = true, want false")
	}
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Error("errors.Is(err, ErrMissingAPIKey) = false, want true")
	}
	if KindOf(err) != KindAuth {
		t.Errorf("KindOf() = %q, want %q", KindOf(err), KindAuth)
	}
}

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("deepseek", nil).WithRetryAfter(2 * time.Second)

	if !err.IsRetryable() {
		t.Error("IsRetryable() = false, want true")
	}
	if !strings.Contains(err.Error(), "retry_after=2s") {
		t.Errorf("Error() = %q, want to contain retry_after", err.Error())
	}
	if err.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityWarning)
	}
}

func TestTimeoutError(t *testing.T) {
	tests := []struct {
		name      string
		err       *TimeoutError
		want      string
		retryable bool
	}{
		{
			name:      "call timeout",
			err:       NewTimeoutError("generate", 30*time.Second),
			want:      "timeout: generate (after 30s)",
			retryable: true,
		},
		{
			name:      "round deadline",
			err:       NewTimeoutError("round deadline", 0).WithRetryable(false),
			want:      "timeout: round deadline",
			retryable: false,
		},
		{
			name:      "with cause",
			err:       NewTimeoutError("generate", 0).WithCause(context.DeadlineExceeded),
			want:      "timeout: generate: context deadline exceeded",
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
			if IsRetryable(tt.err) != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", IsRetryable(tt.err), tt.retryable)
			}
			if !errors.Is(tt.err, ErrTimeout) {
				t.Error("errors.Is(err, ErrTimeout) = false, want true")
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	err := NewProviderError("chatgpt", "unexpected response", ErrEmptyResponse).WithStatusCode(502)

	want := "provider error [provider=chatgpt, status=502]: unexpected response: empty response"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.IsRetryable() {
		t.Error("ProviderError should be terminal")
	}
	if !errors.Is(err, ErrEmptyResponse) {
		t.Error("errors.Is(err, ErrEmptyResponse) = false, want true")
	}
}

// -----------------------------------------------------------------------------
// Engine Error Tests
// -----------------------------------------------------------------------------

func TestValidationError(t *testing.T) {
	err := NewValidationError("month out of range").WithField("month").WithValue(13)

	want := "validation error [field=month]: month out of range (got: 13)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(err, ErrInvalidInput) = false, want true")
	}

	var target *ValidationError
	wrapped := fmt.Errorf("parse flags: %w", err)
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find ValidationError through wrapping")
	}
	if target.Field != "month" {
		t.Errorf("Field = %q, want %q", target.Field, "month")
	}
}

func TestSessionFatalError(t *testing.T) {
	err := NewSessionFatalError("all agents failed", ErrNoContributions).
		WithSessionID("abc").
		WithRound(2)

	want := "session fatal [session=abc, round=2]: all agents failed: round produced no contributions"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrNoContributions) {
		t.Error("errors.Is(err, ErrNoContributions) = false, want true")
	}
	if GetSeverity(err) != SeverityCritical {
		t.Errorf("GetSeverity() = %v, want %v", GetSeverity(err), SeverityCritical)
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", NewRateLimitError("x", nil), true},
		{"timeout", NewTimeoutError("x", 0), true},
		{"wrapped rate limit", fmt.Errorf("call: %w", NewRateLimitError("x", nil)), true},
		{"auth", NewAuthError("x", nil), false},
		{"provider", NewProviderError("x", "boom", nil), false},
		{"sentinel timeout", ErrTimeout, true},
		{"plain", New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"auth", NewAuthError("x", nil), KindAuth},
		{"rate limit", NewRateLimitError("x", nil), KindRateLimit},
		{"timeout", NewTimeoutError("x", 0), KindTimeout},
		{"provider", NewProviderError("x", "boom", nil), KindProvider},
		{"validation", NewValidationError("bad"), KindValidation},
		{"fatal", NewSessionFatalError("dead", nil), KindSessionFatal},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"canceled", fmt.Errorf("wrap: %w", context.Canceled), KindCanceled},
		{"unknown", New("mystery"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(NewValidationError("bad")) {
		t.Error("ValidationError should be user facing")
	}
	if IsUserFacing(New("internal")) {
		t.Error("plain errors should not be user facing")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	err := Wrapf(ErrTimeout, "agent %s", "a")
	if err.Error() != "agent a: operation timed out" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("Wrapf should preserve the chain")
	}
}
