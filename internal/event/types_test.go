package event

import (
	"testing"
	"time"
)

func TestEventTypes(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"session started", NewSessionStartedEvent("s", "x", nil, 3), TypeSessionStarted},
		{"session finished", NewSessionFinishedEvent("s", "fatal", 2, time.Second, "boom"), TypeSessionFinished},
		{"round started", NewRoundStartedEvent("s", 1), TypeRoundStarted},
		{"contribution", NewContributionRecordedEvent("s", 1, "a", true, "ok"), TypeContributionRecorded},
		{"attempt failed", NewAttemptFailedEvent("s", 1, "a", 2, "rate_limit", "slow down", false), TypeAttemptFailed},
		{"verdict", NewVerdictIssuedEvent("s", 1, false, 0.4, "diverged"), TypeVerdictIssued},
		{"answer", NewAnswerCompletedEvent("s", "a", true, ""), TypeAnswerCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.EventType(); got != tt.want {
				t.Errorf("EventType() = %q, want %q", got, tt.want)
			}
			if tt.event.Timestamp().IsZero() {
				t.Error("Timestamp() should be set")
			}
		})
	}
}

func TestSessionStartedEvent_CopiesAgentIDs(t *testing.T) {
	ids := []string{"a", "b"}
	e := NewSessionStartedEvent("s", "x", ids, 3)
	ids[0] = "mutated"

	if e.AgentIDs[0] != "a" {
		t.Errorf("AgentIDs[0] = %q, want %q", e.AgentIDs[0], "a")
	}
}
