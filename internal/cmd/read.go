package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/0nhc/llm-fortune-teller/internal/config"
	"github.com/0nhc/llm-fortune-teller/internal/errors"
	"github.com/0nhc/llm-fortune-teller/internal/event"
	"github.com/0nhc/llm-fortune-teller/internal/fortune"
	"github.com/0nhc/llm-fortune-teller/internal/logging"
	"github.com/0nhc/llm-fortune-teller/internal/report"
	"github.com/0nhc/llm-fortune-teller/internal/store"
	"github.com/0nhc/llm-fortune-teller/internal/telemetry"
	"github.com/0nhc/llm-fortune-teller/internal/tui"
)

// Subject flags
var (
	flagName   string
	flagYear   int
	flagMonth  int
	flagDay    int
	flagHour   int
	flagMinute int
	flagGender string
	flagNoTUI  bool
)

// isInteractive is replaced in tests.
var isInteractive = tui.IsInteractive

func addReadingFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&flagName, "name", "", "profile name used for the output folder and file names")
	f.IntVar(&flagYear, "year", 0, "birth year (Gregorian)")
	f.IntVar(&flagMonth, "month", 0, "birth month (1-12)")
	f.IntVar(&flagDay, "day", 0, "birth day (1-31)")
	f.IntVar(&flagHour, "hour", 0, "birth hour (0-23, UTC+8)")
	f.IntVar(&flagMinute, "minute", 0, "birth minute (0-59)")
	f.StringVar(&flagGender, "gender", "", "gender (male or female)")
	f.BoolVar(&flagNoTUI, "no-tui", false, "print plain progress lines instead of the live view")

	f.Int("max-rounds", 0, "maximum debate rounds (overrides debate.max_rounds)")
	f.String("lang", "", "language of the final answers: zh or en (overrides output.lang)")

	for _, name := range []string{"year", "month", "day", "hour", "minute", "gender"} {
		_ = c.MarkFlagRequired(name)
	}
}

func subjectFromFlags() fortune.Subject {
	return fortune.Subject{
		Name:   flagName,
		Year:   flagYear,
		Month:  flagMonth,
		Day:    flagDay,
		Hour:   flagHour,
		Minute: flagMinute,
		Gender: flagGender,
	}
}

func runReading(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	subject := subjectFromFlags()
	if err := subject.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg, subject)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	shutdown, err := telemetry.Init(ctx, telemetry.Options{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	metrics, err := telemetry.NewDebateMetrics(nil)
	if err != nil {
		return err
	}

	bus := event.NewBus()
	svc, err := fortune.NewService(cfg,
		fortune.WithLogger(logger),
		fortune.WithEventBus(bus),
		fortune.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	reading, readErr := readWithProgress(ctx, cmd, svc, bus, cfg, subject)
	if readErr != nil {
		logger.Error("reading failed", "kind", errors.KindOf(readErr), "error", readErr)
		readErr = readingError(readErr, logFile(cfg, subject))
	}
	if reading == nil || reading.Result == nil {
		return readErr
	}

	paths, err := report.Writer{Dir: cfg.Output.Dir, Format: cfg.Output.TranscriptFormat}.Write(reading)
	if err != nil {
		logger.Error("failed to write report", "error", err)
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	if cfg.Store.Enabled {
		if err := saveHistory(ctx, cfg, reading, logger); err != nil {
			logger.Error("failed to save history", "error", err)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
	}

	_, _ = fmt.Fprintln(out, report.Summary(reading, paths))
	return readErr
}

func readWithProgress(ctx context.Context, cmd *cobra.Command, svc *fortune.Service, bus *event.Bus, cfg *config.Config, subject fortune.Subject) (*fortune.Reading, error) {
	var reading *fortune.Reading
	read := func(ctx context.Context) error {
		var err error
		reading, err = svc.Read(ctx, subject)
		return err
	}

	if flagNoTUI || !isInteractive() {
		bus.SubscribeAll(tui.PlainProgress(cmd.ErrOrStderr()))
		err := read(ctx)
		return reading, err
	}

	roster, err := svc.Roster()
	if err != nil {
		return nil, err
	}
	app := &tui.App{
		Subject:   subject.Label(),
		Roster:    roster,
		MaxRounds: cfg.Debate.MaxRounds,
		Bus:       bus,
		Input:     cmd.InOrStdin(),
		Output:    cmd.OutOrStdout(),
	}
	err = app.Run(ctx, read)
	return reading, err
}

func newLogger(cfg *config.Config, subject fortune.Subject) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewRotatingLogger(profileDir(cfg, subject.Name), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
}

// logFile returns the debug log of subject's profile, or "" when logging
// is disabled.
func logFile(cfg *config.Config, subject fortune.Subject) string {
	if !cfg.Logging.Enabled {
		return ""
	}
	return filepath.Join(profileDir(cfg, subject.Name), logging.LogFileName)
}

// readingError keeps errors that are safe to show as they are. Anything
// else is replaced by a pointer to the debug log holding the details.
func readingError(err error, logFile string) error {
	if err == nil || logFile == "" || errors.IsUserFacing(err) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("reading failed, see %s for details", logFile)
}

// profileDir is where reports and debug.log of a profile live.
func profileDir(cfg *config.Config, name string) string {
	return report.PathsFor(cfg.Output.Dir, name, "").Dir
}

func saveHistory(ctx context.Context, cfg *config.Config, reading *fortune.Reading, logger *logging.Logger) error {
	db, err := store.Open(context.WithoutCancel(ctx), cfg.Store.HistoryPath(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return db.SaveReading(context.WithoutCancel(ctx), reading)
}
