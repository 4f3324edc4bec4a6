package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/0nhc/llm-fortune-teller/internal/config"
	"github.com/0nhc/llm-fortune-teller/internal/report"
	"github.com/0nhc/llm-fortune-teller/internal/store"
	"github.com/0nhc/llm-fortune-teller/internal/tui/styles"
	"github.com/0nhc/llm-fortune-teller/internal/util"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past readings",
	Long: `List readings kept in the local history, newest first.

Use 'history show <session-id>' to print one of them. A unique prefix of
the session id is enough.`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a stored reading",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var (
	historyLimit  int
	historyFormat string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of sessions to list (0 for all)")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "log", "output format: log, json or yaml")
}

func openHistory(cmd *cobra.Command) (*store.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return store.Open(cmd.Context(), cfg.Store.HistoryPath(), nil)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	sessions, err := db.ListSessions(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No readings yet.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-12s  %-16s  %6s  %8s  %s\n", "SESSION", "NAME", "STARTED", "ROUNDS", "DURATION", "OUTCOME")
	for _, s := range sessions {
		name := s.SubjectName
		if name == "" {
			name = "-"
		}
		outcome := styles.Reason(string(s.Reason))
		if s.Failures > 0 {
			outcome += styles.Muted.Render(fmt.Sprintf(" (%d failed attempts)", s.Failures))
		}
		fmt.Fprintf(out, "%-36s  %-12s  %-16s  %6d  %8s  %s\n",
			s.ID, util.Truncate(name, 12), s.StartedAt.Local().Format("2006-01-02 15:04"), s.Rounds,
			s.Duration.Round(time.Second), outcome)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	reading, err := db.GetReading(cmd.Context(), args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no reading with session id %q", args[0])
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch historyFormat {
	case "log":
		return report.WriteDialogLog(out, reading)
	case report.FormatJSON, report.FormatYAML:
		return report.WriteTranscript(out, reading, historyFormat)
	default:
		return fmt.Errorf("unknown format %q (want log, json or yaml)", historyFormat)
	}
}

