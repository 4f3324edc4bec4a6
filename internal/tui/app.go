package tui

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/0nhc/llm-fortune-teller/internal/debate"
	"github.com/0nhc/llm-fortune-teller/internal/event"
)

// IsInteractive reports whether stdout is a terminal the progress view can
// draw on.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// App runs the progress view alongside a reading.
type App struct {
	Subject   string
	Roster    []debate.Participant
	MaxRounds int
	Bus       *event.Bus

	// Input and Output default to the process's stdin and stdout.
	Input  io.Reader
	Output io.Writer
}

// Run calls work with a context that is canceled when the user quits the
// view, and shows progress from Bus until work returns. It returns work's
// error.
func (a *App) Run(ctx context.Context, work func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var opts []tea.ProgramOption
	if a.Input != nil {
		opts = append(opts, tea.WithInput(a.Input))
	}
	if a.Output != nil {
		opts = append(opts, tea.WithOutput(a.Output))
	}
	program := tea.NewProgram(NewModel(a.Subject, a.Roster, a.MaxRounds, cancel), opts...)

	subID := a.Bus.SubscribeAll(func(e event.Event) {
		program.Send(EventMsg{Event: e})
	})
	defer a.Bus.Unsubscribe(subID)

	errCh := make(chan error, 1)
	go func() {
		err := work(ctx)
		errCh <- err
		program.Send(DoneMsg{Err: err})
	}()

	if _, err := program.Run(); err != nil {
		// The view died; let the reading finish without it.
		cancel()
		<-errCh
		return err
	}
	return <-errCh
}
