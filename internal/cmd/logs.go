package cmd

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/0nhc/llm-fortune-teller/internal/config"
	"github.com/0nhc/llm-fortune-teller/internal/logging"
	"github.com/0nhc/llm-fortune-teller/internal/tui/styles"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the debug log of a profile",
	Long: `View and filter the structured debug log written during readings.

Logs live next to the reports in {output.dir}/{name}/debug.log. Rotated
files (debug.log.1, debug.log.2.gz, ...) are read as well.

Examples:
  # Last 50 entries of the default profile
  fortune-teller logs

  # Everything one session logged, as JSON
  fortune-teller logs --name alice -s 3f2a -n 0 --format json

  # Failed attempts of one agent in round 2
  fortune-teller logs --name alice --agent deepseek --round 2 --level warn

  # Entries from the last hour matching a pattern
  fortune-teller logs --since 1h --grep "aborted|failed"`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsName    string
	logsSession string
	logsAgent   string
	logsRound   int
	logsLevel   string
	logsSince   string
	logsGrep    string
	logsTail    int
	logsFormat  string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	f := logsCmd.Flags()
	f.StringVar(&logsName, "name", "", "profile name (default profile when empty)")
	f.StringVarP(&logsSession, "session", "s", "", "session id or prefix")
	f.StringVar(&logsAgent, "agent", "", "agent id")
	f.IntVar(&logsRound, "round", 0, "debate round")
	f.StringVar(&logsLevel, "level", "", "minimum level (debug/info/warn/error)")
	f.StringVar(&logsSince, "since", "", "only entries newer than this duration (e.g. 1h, 30m)")
	f.StringVar(&logsGrep, "grep", "", "only entries whose message matches this regex")
	f.IntVarP(&logsTail, "tail", "n", 50, "number of entries to show (0 for all)")
	f.StringVarP(&logsFormat, "format", "f", logging.FormatText, "output format: text, json or csv")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	filter, err := logsFilter(time.Now())
	if err != nil {
		return err
	}

	dir := profileDir(cfg, logsName)
	entries, err := logging.ReadEntries(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No logs in %s\n", dir)
			return nil
		}
		return err
	}

	entries = logging.FilterEntries(entries, filter)
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	out := cmd.OutOrStdout()
	if !strings.EqualFold(logsFormat, logging.FormatText) {
		return logging.WriteEntries(out, entries, logsFormat)
	}
	for _, e := range entries {
		if _, err := fmt.Fprintln(out, levelStyle(e.Level).Render(logging.FormatEntry(e))); err != nil {
			return err
		}
	}
	return nil
}

func logsFilter(now time.Time) (logging.Filter, error) {
	filter := logging.Filter{
		SessionID: logsSession,
		AgentID:   logsAgent,
		Round:     logsRound,
	}

	if logsLevel != "" {
		level := strings.ToUpper(logsLevel)
		if logging.ParseLevel(level) != level {
			return filter, fmt.Errorf("invalid level %q (want one of %s)", logsLevel, strings.Join(logging.ValidLevels(), ", "))
		}
		filter.Level = level
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil || d <= 0 {
			return filter, fmt.Errorf("invalid --since %q: want a positive duration such as 30m or 2h", logsSince)
		}
		filter.Since = now.Add(-d)
	}
	if logsGrep != "" {
		re, err := regexp.Compile(logsGrep)
		if err != nil {
			return filter, fmt.Errorf("invalid --grep pattern: %w", err)
		}
		filter.Pattern = re
	}
	return filter, nil
}

func levelStyle(level string) lipgloss.Style {
	switch level {
	case logging.LevelDebug:
		return styles.Muted
	case logging.LevelWarn:
		return styles.Warning
	case logging.LevelError:
		return styles.Error
	default:
		return lipgloss.NewStyle()
	}
}
