package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "round.started").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeSessionStarted       = "session.started"
	TypeSessionFinished      = "session.finished"
	TypeRoundStarted         = "round.started"
	TypeContributionRecorded = "contribution.recorded"
	TypeAttemptFailed        = "attempt.failed"
	TypeVerdictIssued        = "verdict.issued"
	TypeAnswerCompleted      = "answer.completed"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Session Lifecycle Events
// -----------------------------------------------------------------------------

// SessionStartedEvent is emitted once the roster is validated and the
// initial artifact has been seeded.
type SessionStartedEvent struct {
	baseEvent
	SessionID string
	Subject   string   // short human label of the domain input
	AgentIDs  []string // registration order
	MaxRounds int
}

// NewSessionStartedEvent creates a SessionStartedEvent.
func NewSessionStartedEvent(sessionID, subject string, agentIDs []string, maxRounds int) SessionStartedEvent {
	return SessionStartedEvent{
		baseEvent: newBaseEvent(TypeSessionStarted),
		SessionID: sessionID,
		Subject:   subject,
		AgentIDs:  append([]string(nil), agentIDs...),
		MaxRounds: maxRounds,
	}
}

// SessionFinishedEvent is emitted when a session reaches Done.
type SessionFinishedEvent struct {
	baseEvent
	SessionID string
	Reason    string // converged, budget_exhausted, fatal or canceled
	Rounds    int
	Duration  time.Duration
	Error     string // set when Reason is fatal
}

// NewSessionFinishedEvent creates a SessionFinishedEvent.
func NewSessionFinishedEvent(sessionID, reason string, rounds int, duration time.Duration, errMsg string) SessionFinishedEvent {
	return SessionFinishedEvent{
		baseEvent: newBaseEvent(TypeSessionFinished),
		SessionID: sessionID,
		Reason:    reason,
		Rounds:    rounds,
		Duration:  duration,
		Error:     errMsg,
	}
}

// -----------------------------------------------------------------------------
// Round Events
// -----------------------------------------------------------------------------

// RoundStartedEvent is emitted before agents are dispatched for a round.
type RoundStartedEvent struct {
	baseEvent
	SessionID string
	Round     int
}

// NewRoundStartedEvent creates a RoundStartedEvent.
func NewRoundStartedEvent(sessionID string, round int) RoundStartedEvent {
	return RoundStartedEvent{
		baseEvent: newBaseEvent(TypeRoundStarted),
		SessionID: sessionID,
		Round:     round,
	}
}

// ContributionRecordedEvent is emitted for each contribution that made it
// into the transcript.
type ContributionRecordedEvent struct {
	baseEvent
	SessionID string
	Round     int
	AgentID   string
	Agree     bool
	Content   string
}

// NewContributionRecordedEvent creates a ContributionRecordedEvent.
func NewContributionRecordedEvent(sessionID string, round int, agentID string, agree bool, content string) ContributionRecordedEvent {
	return ContributionRecordedEvent{
		baseEvent: newBaseEvent(TypeContributionRecorded),
		SessionID: sessionID,
		Round:     round,
		AgentID:   agentID,
		Agree:     agree,
		Content:   content,
	}
}

// AttemptFailedEvent is emitted for every failed model call attempt,
// including those that are retried afterwards.
type AttemptFailedEvent struct {
	baseEvent
	SessionID string
	Round     int
	AgentID   string
	Attempt   int
	Kind      string
	Message   string
	Terminal  bool
}

// NewAttemptFailedEvent creates an AttemptFailedEvent.
func NewAttemptFailedEvent(sessionID string, round int, agentID string, attempt int, kind, message string, terminal bool) AttemptFailedEvent {
	return AttemptFailedEvent{
		baseEvent: newBaseEvent(TypeAttemptFailed),
		SessionID: sessionID,
		Round:     round,
		AgentID:   agentID,
		Attempt:   attempt,
		Kind:      kind,
		Message:   message,
		Terminal:  terminal,
	}
}

// VerdictIssuedEvent is emitted after the judge evaluated a round.
type VerdictIssuedEvent struct {
	baseEvent
	SessionID string
	Round     int
	Converged bool
	Score     float64
	Reason    string
}

// NewVerdictIssuedEvent creates a VerdictIssuedEvent.
func NewVerdictIssuedEvent(sessionID string, round int, converged bool, score float64, reason string) VerdictIssuedEvent {
	return VerdictIssuedEvent{
		baseEvent: newBaseEvent(TypeVerdictIssued),
		SessionID: sessionID,
		Round:     round,
		Converged: converged,
		Score:     score,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Reading Events
// -----------------------------------------------------------------------------

// AnswerCompletedEvent is emitted when an agent's final long-form answer
// finished, successfully or not.
type AnswerCompletedEvent struct {
	baseEvent
	SessionID string
	AgentID   string
	Success   bool
	Error     string
}

// NewAnswerCompletedEvent creates an AnswerCompletedEvent.
func NewAnswerCompletedEvent(sessionID, agentID string, success bool, errMsg string) AnswerCompletedEvent {
	return AnswerCompletedEvent{
		baseEvent: newBaseEvent(TypeAnswerCompleted),
		SessionID: sessionID,
		AgentID:   agentID,
		Success:   success,
		Error:     errMsg,
	}
}
