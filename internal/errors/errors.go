// Package errors provides the error taxonomy used across the fortune teller.
// It defines provider failures returned by model clients, input validation
// failures, and session-level fatal errors, together with classification
// helpers used by the debate engine to decide between retrying, degrading a
// round, and aborting a session.
//
// # Error Types
//
// Provider failures (returned by model clients, never retried there):
//   - AuthError: missing or rejected API key
//   - RateLimitError: provider throttled the call (retryable)
//   - TimeoutError: the call did not finish in time (retryable)
//   - ProviderError: any other upstream fault (terminal for that call)
//
// Engine failures:
//   - ValidationError: malformed input, raised before a session exists
//   - SessionFatalError: a round produced zero contributions or the
//     convergence judge failed
//
// # Usage
//
//	err := errors.NewRateLimitError("deepseek", cause).WithRetryAfter(2 * time.Second)
//
//	if errors.IsRetryable(err) { ... }
//	switch errors.KindOf(err) {
//	case errors.KindAuth: ...
//	}
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Kind names an error category. It is what the failure log records.
type Kind string

const (
	KindAuth         Kind = "auth"
	KindRateLimit    Kind = "rate_limit"
	KindTimeout      Kind = "timeout"
	KindProvider     Kind = "provider"
	KindValidation   Kind = "validation"
	KindSessionFatal Kind = "session_fatal"
	KindCanceled     Kind = "canceled"
	KindUnknown      Kind = "unknown"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrMissingAPIKey indicates that no API key was configured for a provider.
	ErrMissingAPIKey = New("api key not set")
	// ErrEmptyResponse indicates that a provider returned no usable text.
	ErrEmptyResponse = New("empty response")
	// ErrCircuitOpen indicates that calls to a provider are short-circuited.
	ErrCircuitOpen = New("circuit breaker open")
)

var (
	// ErrNoContributions indicates that every agent failed in a round.
	ErrNoContributions = New("round produced no contributions")
	// ErrJudgeFailed indicates that the convergence judge returned an error.
	ErrJudgeFailed = New("convergence judge failed")
	// ErrInvalidRoster indicates an empty roster or duplicate agent ids.
	ErrInvalidRoster = New("invalid agent roster")
)

var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// FortuneError is the base interface for all errors defined in this package.
type FortuneError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Kind returns the category recorded in failure logs.
	Kind() Kind

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

type baseError struct {
	kind       Kind
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Kind returns the error category.
func (e *baseError) Kind() Kind {
	return e.kind
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "<prefix> [k=v, ...]: message: cause".
func (e *baseError) format(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Provider Errors
// -----------------------------------------------------------------------------

// AuthError is returned when a provider API key is missing or rejected.
//
// Example:
//
//	err := errors.NewAuthError("gemini", errors.ErrMissingAPIKey).WithEnvVar("GEMINI_API_KEY")
//	fmt.Println(err) // "auth error [provider=gemini, env=GEMINI_API_KEY]: authentication failed: api key not set"
type AuthError struct {
	baseError
	Provider string
	EnvVar   string
}

// NewAuthError creates a new AuthError.
func NewAuthError(provider string, cause error) *AuthError {
	return &AuthError{
		baseError: baseError{
			kind:       KindAuth,
			message:    "authentication failed",
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		Provider: provider,
	}
}

// WithEnvVar names the environment variable expected to hold the key.
func (e *AuthError) WithEnvVar(name string) *AuthError {
	e.EnvVar = name
	return e
}

// Error returns the formatted error message.
func (e *AuthError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, "provider="+e.Provider)
	}
	if e.EnvVar != "" {
		parts = append(parts, "env="+e.EnvVar)
	}
	return e.format("auth error", parts)
}

// Is checks if this error matches the target.
func (e *AuthError) Is(target error) bool {
	_, ok := target.(*AuthError)
	return ok
}

// RateLimitError is returned when a provider throttles a call.
type RateLimitError struct {
	baseError
	Provider   string
	RetryAfter time.Duration
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(provider string, cause error) *RateLimitError {
	return &RateLimitError{
		baseError: baseError{
			kind:       KindRateLimit,
			message:    "rate limited",
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Provider: provider,
	}
}

// WithRetryAfter records the provider's suggested wait.
func (e *RateLimitError) WithRetryAfter(d time.Duration) *RateLimitError {
	e.RetryAfter = d
	return e
}

// Error returns the formatted error message.
func (e *RateLimitError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, "provider="+e.Provider)
	}
	if e.RetryAfter > 0 {
		parts = append(parts, "retry_after="+e.RetryAfter.String())
	}
	return e.format("rate limit error", parts)
}

// Is checks if this error matches the target.
func (e *RateLimitError) Is(target error) bool {
	_, ok := target.(*RateLimitError)
	return ok
}

// TimeoutError represents a call or round that ran out of time.
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			kind:       KindTimeout,
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds an underlying cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable sets whether the error is retryable. Round deadlines are not.
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timeout: %s", e.Operation)
	if e.Duration > 0 {
		msg = fmt.Sprintf("%s (after %s)", msg, e.Duration)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	return target == ErrTimeout
}

// ProviderError represents a non-retryable upstream fault.
type ProviderError struct {
	baseError
	Provider   string
	StatusCode int
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, message string, cause error) *ProviderError {
	return &ProviderError{
		baseError: baseError{
			kind:       KindProvider,
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		Provider: provider,
	}
}

// WithStatusCode records the HTTP status returned by the provider.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	return e
}

// Error returns the formatted error message.
func (e *ProviderError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, "provider="+e.Provider)
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	return e.format("provider error", parts)
}

// Is checks if this error matches the target.
func (e *ProviderError) Is(target error) bool {
	if _, ok := target.(*ProviderError); ok {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// Engine Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input.
//
// Example:
//
//	err := errors.NewValidationError("month out of range").WithField("month").WithValue(13)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			kind:       KindValidation,
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField sets the field that failed validation.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue sets the invalid value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds an underlying cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation error")
	if e.Field != "" {
		sb.WriteString(fmt.Sprintf(" [field=%s]", e.Field))
	}
	sb.WriteString(": ")
	sb.WriteString(e.message)
	if e.Value != nil {
		sb.WriteString(fmt.Sprintf(" (got: %v)", e.Value))
	}
	if e.cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.cause))
	}
	return sb.String()
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return target == ErrInvalidInput
}

// SessionFatalError aborts a debate session.
type SessionFatalError struct {
	baseError
	SessionID string
	Round     int
}

// NewSessionFatalError creates a new SessionFatalError.
func NewSessionFatalError(message string, cause error) *SessionFatalError {
	return &SessionFatalError{
		baseError: baseError{
			kind:       KindSessionFatal,
			message:    message,
			cause:      cause,
			severity:   SeverityCritical,
			userFacing: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionFatalError) WithSessionID(id string) *SessionFatalError {
	e.SessionID = id
	return e
}

// WithRound records the round that failed.
func (e *SessionFatalError) WithRound(round int) *SessionFatalError {
	e.Round = round
	return e
}

// Error returns the formatted error message.
func (e *SessionFatalError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, "session="+e.SessionID)
	}
	if e.Round > 0 {
		parts = append(parts, fmt.Sprintf("round=%d", e.Round))
	}
	return e.format("session fatal", parts)
}

// Is checks if this error matches the target.
func (e *SessionFatalError) Is(target error) bool {
	if _, ok := target.(*SessionFatalError); ok {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient and the operation
// may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var fe FortuneError
	if As(err, &fe) {
		return fe.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to users.
func IsUserFacing(err error) bool {
	var fe FortuneError
	if As(err, &fe) {
		return fe.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity of an error, SeverityError if unknown.
func GetSeverity(err error) Severity {
	var fe FortuneError
	if As(err, &fe) {
		return fe.Severity()
	}
	return SeverityError
}

// KindOf classifies err. Context errors are mapped so that callers can log
// them next to provider failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe FortuneError
	if As(err, &fe) {
		return fe.Kind()
	}
	switch {
	case Is(err, context.DeadlineExceeded), Is(err, ErrTimeout):
		return KindTimeout
	case Is(err, context.Canceled), Is(err, ErrCanceled):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// Wrap wraps an error with additional context.
// Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message.
// Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
