package debate

import (
	"slices"
	"time"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

// DomainInput is the opaque payload a session debates about. The engine
// never inspects or mutates it beyond rendering it into prompts.
type DomainInput struct {
	// Subject is a short label used in logs and events.
	Subject string `json:"subject" yaml:"subject"`
	// Payload is the full task text handed to agents.
	Payload string `json:"payload" yaml:"payload"`
}

// Contribution is one agent's output for one round. Immutable once recorded.
type Contribution struct {
	AgentID   string    `json:"agent_id" yaml:"agent_id"`
	Round     int       `json:"round" yaml:"round"`
	Text      string    `json:"text" yaml:"text"`
	Agree     bool      `json:"agree" yaml:"agree"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Failure is a failed attempt to obtain a Contribution. Every failed attempt
// is recorded, including the ones that were retried successfully afterwards.
type Failure struct {
	AgentID  string      `json:"agent_id" yaml:"agent_id"`
	Round    int         `json:"round" yaml:"round"`
	Attempt  int         `json:"attempt" yaml:"attempt"`
	Kind     errors.Kind `json:"kind" yaml:"kind"`
	Message  string      `json:"message" yaml:"message"`
	Terminal bool        `json:"terminal" yaml:"terminal"`

	// Timestamp is when the attempt failed.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Transcript is the audit trail of a session: contributions plus a parallel
// failure log, both ordered by round and then by agent registration order.
type Transcript struct {
	Contributions []Contribution `json:"contributions" yaml:"contributions"`
	Failures      []Failure      `json:"failures" yaml:"failures"`
}

// Rounds returns the distinct round numbers present in the transcript,
// counting rounds that only produced failures.
func (t Transcript) Rounds() []int {
	seen := make(map[int]bool)
	var rounds []int
	for _, c := range t.Contributions {
		if !seen[c.Round] {
			seen[c.Round] = true
			rounds = append(rounds, c.Round)
		}
	}
	for _, f := range t.Failures {
		if !seen[f.Round] {
			seen[f.Round] = true
			rounds = append(rounds, f.Round)
		}
	}
	slices.Sort(rounds)
	return rounds
}

// ContributionsIn returns the contributions recorded for round n.
func (t Transcript) ContributionsIn(n int) []Contribution {
	var out []Contribution
	for _, c := range t.Contributions {
		if c.Round == n {
			out = append(out, c)
		}
	}
	return out
}

// FailuresIn returns the failure log entries for round n.
func (t Transcript) FailuresIn(n int) []Failure {
	var out []Failure
	for _, f := range t.Failures {
		if f.Round == n {
			out = append(out, f)
		}
	}
	return out
}

func (t Transcript) clone() Transcript {
	return Transcript{
		Contributions: slices.Clone(t.Contributions),
		Failures:      slices.Clone(t.Failures),
	}
}

// Artifact is the shared draft. Round 0 is the seed; round n is the fold of
// round n's contributions.
type Artifact struct {
	Text          string         `json:"text" yaml:"text"`
	Round         int            `json:"round" yaml:"round"`
	Contributions []Contribution `json:"contributions,omitempty" yaml:"contributions,omitempty"`
}

func (a Artifact) clone() Artifact {
	a.Contributions = slices.Clone(a.Contributions)
	return a
}

// Verdict is a judge's decision for one round.
type Verdict struct {
	Converged bool    `json:"converged" yaml:"converged"`
	Reason    string  `json:"reason" yaml:"reason"`
	Round     int     `json:"round" yaml:"round"`
	Score     float64 `json:"score" yaml:"score"`
}

// Reason is why a session terminated.
type Reason string

const (
	ReasonConverged       Reason = "converged"
	ReasonBudgetExhausted Reason = "budget_exhausted"
	ReasonFatal           Reason = "fatal"
	// ReasonCanceled means the caller canceled between rounds.
	ReasonCanceled Reason = "canceled"
)

// Result is the outcome of a session.
type Result struct {
	SessionID string      `json:"session_id" yaml:"session_id"`
	Input     DomainInput `json:"input" yaml:"input"`

	// Seed is the initial draft the first round debated.
	Seed Artifact `json:"seed" yaml:"seed"`

	// Final equals the session's SharedArtifact at termination.
	Final      Artifact      `json:"final" yaml:"final"`
	Transcript Transcript    `json:"transcript" yaml:"transcript"`
	Reason     Reason        `json:"reason" yaml:"reason"`
	Rounds     int           `json:"rounds" yaml:"rounds"`
	Verdict    Verdict       `json:"verdict" yaml:"verdict"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// FatalError aborts a session. It wraps the underlying SessionFatalError and
// carries the partial transcript for diagnosis.
type FatalError struct {
	Err        *errors.SessionFatalError
	Transcript Transcript
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }
