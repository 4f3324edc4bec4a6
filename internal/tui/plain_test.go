package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/0nhc/llm-fortune-teller/internal/event"
)

func TestPlainProgress(t *testing.T) {
	var buf bytes.Buffer
	bus := event.NewBus()
	bus.SubscribeAll(PlainProgress(&buf))

	bus.Publish(event.NewRoundStartedEvent("s1", 2))
	bus.Publish(event.NewAttemptFailedEvent("s1", 2, "qwen", 3, "timeout", "round deadline", true))
	bus.Publish(event.NewSessionFinishedEvent("s1", "fatal", 2, 0, "no contributions"))

	got := buf.String()
	for _, want := range []string{
		"round 2 started",
		"qwen attempt 3 failed (timeout), giving up this round",
		"session finished: fatal after 2 rounds: no contributions",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if n := strings.Count(got, "\n"); n != 3 {
		t.Errorf("got %d lines, want 3", n)
	}
}
