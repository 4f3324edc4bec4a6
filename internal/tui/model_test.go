package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0nhc/llm-fortune-teller/internal/debate"
	"github.com/0nhc/llm-fortune-teller/internal/event"
)

func testRoster() []debate.Participant {
	return []debate.Participant{
		{ID: "gemini", Name: "Gemini", SupportsWeb: true},
		{ID: "deepseek", Name: "DeepSeek"},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	got, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return got
}

func TestModel_Events(t *testing.T) {
	m := NewModel("alice", testRoster(), 5, nil)
	if m.agents[0].status != StatusPending {
		t.Fatalf("initial status = %q, want pending", m.agents[0].status)
	}

	m = update(t, m, EventMsg{event.NewSessionStartedEvent("s1", "alice", []string{"gemini", "deepseek"}, 4)})
	m = update(t, m, EventMsg{event.NewRoundStartedEvent("s1", 1)})
	if m.round != 1 || m.maxRounds != 4 {
		t.Errorf("round = %d/%d, want 1/4", m.round, m.maxRounds)
	}
	if m.agents[1].status != StatusThinking {
		t.Errorf("status = %q, want thinking", m.agents[1].status)
	}

	m = update(t, m, EventMsg{event.NewContributionRecordedEvent("s1", 1, "gemini", true, "draft")})
	m = update(t, m, EventMsg{event.NewAttemptFailedEvent("s1", 1, "deepseek", 1, "rate_limit", "slow down", false)})
	if m.agents[0].status != StatusAgreed {
		t.Errorf("gemini = %q, want agreed", m.agents[0].status)
	}
	if m.agents[1].status != StatusRetrying || !strings.Contains(m.agents[1].detail, "rate_limit") {
		t.Errorf("deepseek = %+v, want retrying", m.agents[1])
	}

	m = update(t, m, EventMsg{event.NewAttemptFailedEvent("s1", 1, "deepseek", 3, "rate_limit", "slow down", true)})
	if m.agents[1].status != StatusFailed {
		t.Errorf("deepseek = %q, want failed after a terminal attempt", m.agents[1].status)
	}

	m = update(t, m, EventMsg{event.NewVerdictIssuedEvent("s1", 1, true, 1, "all 1 agents agree")})
	m = update(t, m, EventMsg{event.NewSessionFinishedEvent("s1", "converged", 1, 0, "")})
	m = update(t, m, EventMsg{event.NewAnswerCompletedEvent("s1", "gemini", true, "")})
	if m.answered != 1 || m.reason != "converged" {
		t.Errorf("answered=%d reason=%q", m.answered, m.reason)
	}

	view := m.View()
	for _, want := range []string{"alice", "Round 1/4", "Gemini (web)", "DeepSeek", "all 1 agents agree", "converged"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModel_UnknownAgentIgnored(t *testing.T) {
	m := NewModel("alice", testRoster(), 3, nil)
	m = update(t, m, EventMsg{event.NewContributionRecordedEvent("s1", 1, "ghost", true, "x")})
	for _, a := range m.agents {
		if a.status != StatusPending {
			t.Errorf("%s status = %q, want pending", a.id, a.status)
		}
	}
}

func TestModel_Done(t *testing.T) {
	m := NewModel("alice", testRoster(), 3, nil)
	boom := errors.New("boom")

	next, cmd := m.Update(DoneMsg{Err: boom})
	if cmd == nil {
		t.Fatal("DoneMsg should quit the program")
	}
	got := next.(Model)
	if got.Err() != boom || got.Interrupted() {
		t.Errorf("Err() = %v, Interrupted() = %v", got.Err(), got.Interrupted())
	}
	if !strings.Contains(got.View(), "Error: boom") {
		t.Error("View() should show the error")
	}
}

func TestModel_QuitCancels(t *testing.T) {
	canceled := false
	m := NewModel("alice", testRoster(), 3, func() { canceled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if !canceled {
		t.Error("ctrl+c should cancel the reading")
	}
	if !next.(Model).Interrupted() {
		t.Error("Interrupted() = false, want true")
	}
}

func TestModel_FitsTerminalWidth(t *testing.T) {
	m := NewModel("alice", testRoster(), 3, nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 30, Height: 20})
	m = update(t, m, EventMsg{event.NewVerdictIssuedEvent("s1", 1, false, 0.4,
		"\nthe drafts still disagree about the day master and the luck pillars\nsecond line")})

	view := m.View()
	for _, l := range strings.Split(strings.TrimRight(view, "\n"), "\n") {
		if w := lipgloss.Width(l); w > 30 {
			t.Errorf("line %q is %d columns wide, want <= 30", l, w)
		}
	}
	if strings.Contains(view, "second line") {
		t.Error("only the first line of the judge reason should be shown")
	}
}
