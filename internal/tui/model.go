// Package tui renders live progress of a reading while the debate runs.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/0nhc/llm-fortune-teller/internal/debate"
	"github.com/0nhc/llm-fortune-teller/internal/event"
	"github.com/0nhc/llm-fortune-teller/internal/tui/styles"
	"github.com/0nhc/llm-fortune-teller/internal/util"
)

// Agent statuses shown in the roster.
const (
	StatusPending   = "pending"
	StatusThinking  = "thinking"
	StatusRetrying  = "retrying"
	StatusAgreed    = "agreed"
	StatusDisagreed = "disagreed"
	StatusFailed    = "failed"
)

// Messages

// EventMsg carries a bus event into the program.
type EventMsg struct{ Event event.Event }

// DoneMsg ends the program once the reading returned.
type DoneMsg struct{ Err error }

type agentRow struct {
	id      string
	name    string
	web     bool
	status  string
	detail  string
	answers string
}

// Model is the bubbletea model of the progress view.
type Model struct {
	subject   string
	agents    []agentRow
	index     map[string]int
	maxRounds int

	sessionID string
	round     int
	verdict   string
	phase     string
	answered  int
	reason    string
	err       error
	done      bool
	quitting  bool
	width     int

	started time.Time
	now     func() time.Time
	spinner spinner.Model
	cancel  func()
}

// NewModel creates the progress model. cancel, when non-nil, is called when
// the user interrupts the view.
func NewModel(subject string, roster []debate.Participant, maxRounds int, cancel func()) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Primary

	m := Model{
		subject:   subject,
		index:     make(map[string]int, len(roster)),
		maxRounds: maxRounds,
		phase:     "seeding",
		now:       time.Now,
		spinner:   sp,
		cancel:    cancel,
	}
	m.started = m.now()
	for i, p := range roster {
		m.agents = append(m.agents, agentRow{id: p.ID, name: p.Name, web: p.SupportsWeb, status: StatusPending})
		m.index[p.ID] = i
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.apply(msg.Event)
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(e event.Event) {
	switch e := e.(type) {
	case event.SessionStartedEvent:
		m.sessionID = e.SessionID
		m.maxRounds = e.MaxRounds
		m.phase = "debating"

	case event.RoundStartedEvent:
		m.round = e.Round
		for i := range m.agents {
			m.agents[i].status = StatusThinking
			m.agents[i].detail = ""
		}

	case event.ContributionRecordedEvent:
		if row := m.row(e.AgentID); row != nil {
			row.status = StatusDisagreed
			if e.Agree {
				row.status = StatusAgreed
			}
			row.detail = fmt.Sprintf("%d chars", len([]rune(e.Content)))
		}

	case event.AttemptFailedEvent:
		if row := m.row(e.AgentID); row != nil {
			row.status = StatusRetrying
			if e.Terminal {
				row.status = StatusFailed
			}
			row.detail = fmt.Sprintf("attempt %d: %s", e.Attempt, e.Kind)
		}

	case event.VerdictIssuedEvent:
		m.verdict = fmt.Sprintf("round %d: %s", e.Round, util.FirstLine(e.Reason))

	case event.SessionFinishedEvent:
		m.reason = e.Reason
		m.phase = "final answers"

	case event.AnswerCompletedEvent:
		m.answered++
		if row := m.row(e.AgentID); row != nil {
			row.answers = "answer ✓"
			if !e.Success {
				row.answers = "answer ✗"
			}
		}
	}
}

func (m *Model) row(agentID string) *agentRow {
	i, ok := m.index[agentID]
	if !ok {
		return nil
	}
	return &m.agents[i]
}

// Err returns the error the reading finished with.
func (m Model) Err() error { return m.err }

// Interrupted reports whether the user quit before the reading returned.
func (m Model) Interrupted() bool { return m.quitting && !m.done }

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	line := func(s string) {
		b.WriteString(util.FitWidth(s, m.width))
		b.WriteString("\n")
	}

	line(styles.Title.Render("Fortune Teller · " + m.subject))

	status := fmt.Sprintf("Round %d/%d", m.round, m.maxRounds)
	if m.round == 0 {
		status = "Preparing the first draft"
	}
	if !m.done {
		status = m.spinner.View() + " " + status + " · " + m.phase
	}
	elapsed := m.now().Sub(m.started).Round(time.Second)
	line(status + styles.Muted.Render(fmt.Sprintf("  (%s)", elapsed)))
	b.WriteString("\n")

	for _, a := range m.agents {
		icon := styles.Text.Foreground(styles.StatusColor(a.status)).Render(styles.StatusIcon(a.status))
		name := a.name
		if a.web {
			name += " (web)"
		}
		row := fmt.Sprintf("%s %-22s %-10s", icon, name, a.status)
		if a.detail != "" {
			row += " " + styles.Muted.Render(a.detail)
		}
		if a.answers != "" {
			row += "  " + a.answers
		}
		line(row)
	}

	if m.verdict != "" {
		b.WriteString("\n")
		line(styles.Label.Render("Judge: ") + m.verdict)
	}
	if m.reason != "" {
		line(styles.Label.Render("Outcome: ") + styles.Reason(m.reason))
	}
	if m.err != nil {
		line(styles.ErrorMsg.Render("Error: " + m.err.Error()))
	}

	line(styles.HelpBar.Render("q: cancel"))
	return b.String()
}
