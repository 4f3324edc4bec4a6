package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/0nhc/llm-fortune-teller/internal/debate"
	"github.com/0nhc/llm-fortune-teller/internal/errors"
	"github.com/0nhc/llm-fortune-teller/internal/fortune"
)

func testReading() *fortune.Reading {
	start := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	return &fortune.Reading{
		Subject: fortune.Subject{Name: "alice", Year: 1990, Month: 5, Day: 17, Hour: 8, Minute: 30, Gender: "female"},
		Lang:    fortune.LangEn,
		Roster: []debate.Participant{
			{ID: "gemini", Name: "Gemini", SupportsWeb: true},
			{ID: "deepseek", Name: "DeepSeek"},
		},
		Result: &debate.Result{
			SessionID: "sess-1",
			Input:     debate.DomainInput{Subject: "alice", Payload: "Read the chart."},
			Seed:      debate.Artifact{Text: "seed draft"},
			Final:     debate.Artifact{Text: "final draft", Round: 2},
			Transcript: debate.Transcript{
				Contributions: []debate.Contribution{
					{AgentID: "gemini", Round: 1, Text: "first take", Timestamp: start.Add(time.Minute)},
					{AgentID: "gemini", Round: 2, Text: "final draft", Agree: true, Timestamp: start.Add(3 * time.Minute)},
					{AgentID: "deepseek", Round: 2, Text: "agreed", Agree: true, Timestamp: start.Add(3 * time.Minute)},
				},
				Failures: []debate.Failure{
					{AgentID: "deepseek", Round: 1, Attempt: 1, Kind: errors.KindRateLimit, Message: "slow down", Timestamp: start.Add(time.Minute)},
					{AgentID: "deepseek", Round: 1, Attempt: 2, Kind: errors.KindRateLimit, Message: "slow down", Terminal: true, Timestamp: start.Add(2 * time.Minute)},
				},
			},
			Reason:    debate.ReasonConverged,
			Rounds:    2,
			Verdict:   debate.Verdict{Converged: true, Round: 2, Score: 1, Reason: "draft similarity 1.000 >= 0.950"},
			StartedAt: start,
			Duration:  4 * time.Minute,
		},
		FinalAnswers: []fortune.FinalAnswer{
			{AgentID: "gemini", AgentName: "Gemini", Text: "Long answer.\n"},
			{AgentID: "deepseek", AgentName: "DeepSeek", Error: "auth error"},
		},
	}
}

func TestPathsFor(t *testing.T) {
	p := PathsFor("logs", "alice", FormatYAML)
	if p.Dir != filepath.Join("logs", "alice") {
		t.Errorf("Dir = %q", p.Dir)
	}
	if filepath.Base(p.DialogLog) != "dialog_log_alice.md" || filepath.Base(p.FinalAnswers) != "final_answers_alice.md" {
		t.Errorf("paths = %+v", p)
	}
	if filepath.Base(p.Transcript) != "transcript_alice.yaml" {
		t.Errorf("Transcript = %q", p.Transcript)
	}

	d := PathsFor("logs", "", "")
	if d.Dir != filepath.Join("logs", "default") || !strings.HasSuffix(d.Transcript, ".json") {
		t.Errorf("default paths = %+v", d)
	}
}

func TestWriteDialogLog(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDialogLog(&buf, testReading()); err != nil {
		t.Fatalf("WriteDialogLog() error = %v", err)
	}
	got := buf.String()

	order := []string{
		"=== Initial User Prompt ===\nRead the chart.\n(timestamp: 2026-03-01T12:00:00+08:00)",
		"=== Seed Draft ===",
		"=== Round 1: Gemini Evaluation ===\nagree: false",
		"=== Round 1: DeepSeek Error ===\nAttempt 1 failed (rate_limit): slow down\nRetrying.",
		"Attempt 2 failed (rate_limit)",
		"=== Round 2: Gemini Evaluation ===\nagree: true",
		"=== Round 2: DeepSeek Evaluation ===",
		"=== Outcome: converged after 2 round(s) ===",
		"DeepSeek agree=true last_round=2",
		"=== Final Long Answer from Gemini ===\nLong answer.\n(timestamp:",
		"=== Final Long Answer Error from DeepSeek ===\nError: auth error",
	}
	pos := 0
	for _, want := range order {
		i := strings.Index(got[pos:], want)
		if i < 0 {
			t.Fatalf("dialog log missing %q after offset %d:\n%s", want, pos, got)
		}
		pos += i + len(want)
	}
}

func TestWriteFinalAnswers(t *testing.T) {
	answers := testReading().FinalAnswers

	tests := []struct {
		lang  string
		title string
	}{
		{fortune.LangEn, "# Final Answers (Re-answered Original Prompt)\n"},
		{fortune.LangZh, "# 最终答案（重新回答原始问题）\n"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteFinalAnswers(&buf, answers, tt.lang); err != nil {
				t.Fatal(err)
			}
			got := buf.String()
			if !strings.HasPrefix(got, tt.title) {
				t.Errorf("title = %q", strings.SplitN(got, "\n", 2)[0])
			}
			if !strings.Contains(got, "## Gemini\nLong answer.\n\n") {
				t.Errorf("missing Gemini section:\n%s", got)
			}
			if !strings.Contains(got, "## DeepSeek\n[DeepSeek final answer failed: auth error]") {
				t.Errorf("missing DeepSeek failure:\n%s", got)
			}
		})
	}
}

func TestWriteTranscript(t *testing.T) {
	r := testReading()

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteTranscript(&buf, r, FormatJSON); err != nil {
			t.Fatal(err)
		}
		var decoded struct {
			Result struct {
				SessionID  string `json:"session_id"`
				Reason     string `json:"reason"`
				Transcript struct {
					Failures []map[string]any `json:"failures"`
				} `json:"transcript"`
			} `json:"result"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if decoded.Result.SessionID != "sess-1" || decoded.Result.Reason != "converged" {
			t.Errorf("decoded = %+v", decoded.Result)
		}
		if len(decoded.Result.Transcript.Failures) != 2 {
			t.Errorf("failures = %d, want 2", len(decoded.Result.Transcript.Failures))
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteTranscript(&buf, r, FormatYAML); err != nil {
			t.Fatal(err)
		}
		var decoded map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid yaml: %v", err)
		}
		if decoded["lang"] != "en" {
			t.Errorf("lang = %v", decoded["lang"])
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := WriteTranscript(&bytes.Buffer{}, r, "xml"); err == nil {
			t.Error("unknown format should fail")
		}
	})
}

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	r := testReading()

	paths, err := Writer{Dir: dir, Format: FormatJSON}.Write(r)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	for _, p := range []string{paths.DialogLog, paths.FinalAnswers, paths.Transcript} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s: %v", p, err)
		}
	}

	r.FinalAnswers = nil
	paths, err = Writer{Dir: dir}.Write(r)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if paths.FinalAnswers != "" {
		t.Errorf("FinalAnswers = %q, want empty without answers", paths.FinalAnswers)
	}

	if _, err := (Writer{Dir: dir}).Write(&fortune.Reading{}); err == nil {
		t.Error("Write() without a result should fail")
	}
}

func TestSummary(t *testing.T) {
	r := testReading()
	got := Summary(r, PathsFor("logs", "alice", FormatJSON))
	for _, want := range []string{"alice", "sess-1", "converged", "1/2", "dialog_log_alice.md"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() missing %q:\n%s", want, got)
		}
	}
}
