package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/0nhc/llm-fortune-teller/internal/event"
	"github.com/0nhc/llm-fortune-teller/internal/util"
)

// PlainProgress returns a bus handler that writes one line per event to w.
// It is used when stdout is not a terminal.
func PlainProgress(w io.Writer) event.Handler {
	var mu sync.Mutex
	return func(e event.Event) {
		line := describe(e)
		if line == "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(w, "[%s] %s\n", e.Timestamp().Format("15:04:05"), line)
	}
}

func describe(e event.Event) string {
	switch e := e.(type) {
	case event.SessionStartedEvent:
		return fmt.Sprintf("session %s started for %s with %d agents", e.SessionID, e.Subject, len(e.AgentIDs))
	case event.RoundStartedEvent:
		return fmt.Sprintf("round %d started", e.Round)
	case event.ContributionRecordedEvent:
		return fmt.Sprintf("round %d: %s replied (agree=%t)", e.Round, e.AgentID, e.Agree)
	case event.AttemptFailedEvent:
		suffix := "retrying"
		if e.Terminal {
			suffix = "giving up this round"
		}
		return fmt.Sprintf("round %d: %s attempt %d failed (%s), %s", e.Round, e.AgentID, e.Attempt, e.Kind, suffix)
	case event.VerdictIssuedEvent:
		return fmt.Sprintf("round %d: %s", e.Round, util.FirstLine(e.Reason))
	case event.SessionFinishedEvent:
		if e.Error != "" {
			return fmt.Sprintf("session finished: %s after %d rounds: %s", e.Reason, e.Rounds, e.Error)
		}
		return fmt.Sprintf("session finished: %s after %d rounds", e.Reason, e.Rounds)
	case event.AnswerCompletedEvent:
		if !e.Success {
			return fmt.Sprintf("final answer from %s failed: %s", e.AgentID, e.Error)
		}
		return fmt.Sprintf("final answer from %s received", e.AgentID)
	default:
		return ""
	}
}
