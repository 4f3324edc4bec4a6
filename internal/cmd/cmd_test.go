package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// setupTestEnvironment isolates config, history and output under a temp dir.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("FORTUNE_OUTPUT_DIR", filepath.Join(dir, "logs"))
	viper.Reset()
	bindFlags()
	t.Cleanup(viper.Reset)
	resetFlags(rootCmd)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change to test directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

// resetFlags restores every flag of c and its subcommands to its default.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "fortune-teller" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "fortune-teller")
	}

	cmdMap := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		cmdMap[c.Name()] = true
	}
	for _, expected := range []string{"config", "history", "logs"} {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}

	for _, name := range []string{"name", "year", "month", "day", "hour", "minute", "gender", "max-rounds", "lang", "no-tui"} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}
}

func TestReading_InvalidSubject(t *testing.T) {
	setupTestEnvironment(t)

	_, err := executeCommand(rootCmd, "--year", "1990", "--month", "13", "--day", "1",
		"--hour", "0", "--minute", "0", "--gender", "male", "--no-tui")
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !strings.Contains(err.Error(), "month") {
		t.Errorf("error = %v, want it to name the month", err)
	}
}

func TestReading_MissingFlags(t *testing.T) {
	setupTestEnvironment(t)

	_, err := executeCommand(rootCmd, "--year", "1990")
	if err == nil || !strings.Contains(err.Error(), "required flag") {
		t.Errorf("error = %v, want missing required flags", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"invalid subject", errors.NewValidationError("month out of range").WithField("month"), 2},
		{"wrapped invalid input", fmt.Errorf("invalid configuration: %w", errors.NewValidationError("bad")), 2},
		{"fatal session", errors.NewSessionFatalError("all agents failed", errors.ErrNoContributions), 1},
		{"plain", fmt.Errorf("required flag(s) not set"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}

	setupTestEnvironment(t)
	_, err := executeCommand(rootCmd, "--year", "1990", "--month", "13", "--day", "1",
		"--hour", "0", "--minute", "0", "--gender", "male")
	if ExitCode(err) != 2 {
		t.Errorf("ExitCode() for an invalid month = %d, want 2", ExitCode(err))
	}
}

func TestReadingError(t *testing.T) {
	const logPath = "/tmp/out/alice/debug.log"
	fatal := errors.NewSessionFatalError("all agents failed", errors.ErrNoContributions)
	canceled := fmt.Errorf("debate canceled before round 2: %w", context.Canceled)

	tests := []struct {
		name    string
		err     error
		logFile string
		want    string
	}{
		{"typed errors are kept", fatal, logPath, fatal.Error()},
		{"cancellation is kept", canceled, logPath, canceled.Error()},
		{"untyped errors point at the log", fmt.Errorf("bubbletea: terminal gone"), logPath, "reading failed, see " + logPath + " for details"},
		{"without a log the error is kept", fmt.Errorf("bubbletea: terminal gone"), "", "bubbletea: terminal gone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readingError(tt.err, tt.logFile)
			if got == nil || got.Error() != tt.want {
				t.Errorf("readingError() = %v, want %q", got, tt.want)
			}
		})
	}

	if readingError(nil, logPath) != nil {
		t.Error("readingError(nil) should be nil")
	}
}

func TestParseConfigValue(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		want    any
		wantErr bool
	}{
		{"debate.max_rounds", "6", 6, false},
		{"debate.max_rounds", "-1", nil, true},
		{"debate.max_rounds", "six", nil, true},
		{"debate.similarity_threshold", "0.9", 0.9, false},
		{"debate.final_answers", "false", false, false},
		{"debate.final_answers", "nope", nil, true},
		{"output.lang", "en", "en", false},
		{"no.such.key", "1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := parseConfigValue(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseConfigValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseConfigValue() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestConfigInitAndSet(t *testing.T) {
	dir := setupTestEnvironment(t)
	configFile := filepath.Join(dir, "config", "fortune-teller", "config.yaml")

	out, err := executeCommand(rootCmd, "config", "init")
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(out, configFile) {
		t.Errorf("output = %q, want the config path", out)
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	for _, want := range []string{"# fortune-teller configuration", "max_rounds: 10", "providers:"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("config file missing %q", want)
		}
	}

	if _, err := executeCommand(rootCmd, "config", "init"); err == nil {
		t.Error("second config init should refuse to overwrite")
	}

	if _, err := executeCommand(rootCmd, "config", "set", "output.lang", "fr"); err == nil {
		t.Error("setting an invalid language should fail")
	}
	if _, err := executeCommand(rootCmd, "config", "set", "debate.max_rounds", "4"); err != nil {
		t.Fatalf("config set error = %v", err)
	}
	data, _ = os.ReadFile(configFile)
	if !strings.Contains(string(data), "max_rounds: 4") {
		t.Error("config set should persist the new value")
	}
}

func TestConfigPath(t *testing.T) {
	setupTestEnvironment(t)

	out, err := executeCommand(rootCmd, "config", "path")
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if !strings.Contains(out, "FORTUNE_") || !strings.Contains(out, "config.yaml") {
		t.Errorf("output = %q", out)
	}
}

func TestHistory_Empty(t *testing.T) {
	setupTestEnvironment(t)

	out, err := executeCommand(rootCmd, "history")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "No readings yet.") {
		t.Errorf("output = %q", out)
	}

	if _, err := executeCommand(rootCmd, "history", "show", "missing"); err == nil {
		t.Error("history show with an unknown id should fail")
	}
}

func writeDebugLog(t *testing.T, dir, profile string) {
	t.Helper()
	lines := `{"time":"2026-03-01T09:00:00Z","level":"INFO","msg":"debate started","session_id":"abc123"}
{"time":"2026-03-01T09:00:02Z","level":"WARN","msg":"attempt failed","session_id":"abc123","agent_id":"deepseek","round":1}
{"time":"2026-03-01T09:00:04Z","level":"ERROR","msg":"debate aborted","session_id":"def456","round":2}
`
	logDir := filepath.Join(dir, "logs", profile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(logDir, "debug.log"), []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLogs(t *testing.T) {
	dir := setupTestEnvironment(t)
	writeDebugLog(t, dir, "alice")

	out, err := executeCommand(rootCmd, "logs", "--name", "alice", "--level", "warn")
	if err != nil {
		t.Fatalf("logs error = %v", err)
	}
	if strings.Contains(out, "debate started") {
		t.Error("INFO entry should be filtered out")
	}
	for _, want := range []string{"attempt failed", "agent=deepseek", "debate aborted"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLogs_SessionAndFormat(t *testing.T) {
	dir := setupTestEnvironment(t)
	writeDebugLog(t, dir, "alice")

	out, err := executeCommand(rootCmd, "logs", "--name", "alice", "-s", "abc", "-n", "1", "--format", "csv")
	if err != nil {
		t.Fatalf("logs error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header and one entry:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "attempt failed") {
		t.Errorf("tail should keep the newest matching entry, got %q", lines[1])
	}
}

func TestLogs_NoLogs(t *testing.T) {
	setupTestEnvironment(t)

	out, err := executeCommand(rootCmd, "logs", "--name", "nobody")
	if err != nil {
		t.Fatalf("logs error = %v", err)
	}
	if !strings.Contains(out, "No logs in") {
		t.Errorf("output = %q", out)
	}
}

func TestLogs_InvalidFlags(t *testing.T) {
	tests := [][]string{
		{"logs", "--since", "yesterday"},
		{"logs", "--since", "-1h"},
		{"logs", "--level", "loud"},
		{"logs", "--grep", "("},
	}
	for _, args := range tests {
		t.Run(strings.Join(args[1:], " "), func(t *testing.T) {
			setupTestEnvironment(t)
			if _, err := executeCommand(rootCmd, args...); err == nil {
				t.Errorf("%v should fail", args)
			}
		})
	}
}
