// Package report writes the files a reading leaves behind: the dialog log,
// the final answers and a machine-readable transcript.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0nhc/llm-fortune-teller/internal/fortune"
)

// Transcript export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Paths are the files written for one reading.
type Paths struct {
	Dir          string
	DialogLog    string
	FinalAnswers string // empty when no final answers were produced
	Transcript   string
}

// PathsFor returns the output paths for a reading under baseDir. Files are
// grouped by label, which falls back to "default".
func PathsFor(baseDir, label, format string) Paths {
	if label == "" {
		label = "default"
	}
	dir := filepath.Join(baseDir, label)
	ext := FormatJSON
	if format == FormatYAML {
		ext = FormatYAML
	}
	return Paths{
		Dir:          dir,
		DialogLog:    filepath.Join(dir, fmt.Sprintf("dialog_log_%s.md", label)),
		FinalAnswers: filepath.Join(dir, fmt.Sprintf("final_answers_%s.md", label)),
		Transcript:   filepath.Join(dir, fmt.Sprintf("transcript_%s.%s", label, ext)),
	}
}

// Writer writes reading reports under Dir.
type Writer struct {
	Dir    string
	Format string
}

// Write writes every report file for r and returns where they went.
func (w Writer) Write(r *fortune.Reading) (Paths, error) {
	if r == nil || r.Result == nil {
		return Paths{}, fmt.Errorf("reading has no result")
	}
	paths := PathsFor(w.Dir, r.Subject.Name, w.Format)
	if err := os.MkdirAll(paths.Dir, 0755); err != nil {
		return Paths{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeFile(paths.DialogLog, func(out io.Writer) error { return WriteDialogLog(out, r) }); err != nil {
		return Paths{}, err
	}

	if len(r.FinalAnswers) > 0 {
		if err := writeFile(paths.FinalAnswers, func(out io.Writer) error {
			return WriteFinalAnswers(out, r.FinalAnswers, r.Lang)
		}); err != nil {
			return Paths{}, err
		}
	} else {
		paths.FinalAnswers = ""
	}

	if err := writeFile(paths.Transcript, func(out io.Writer) error { return WriteTranscript(out, r, w.Format) }); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

// writeFile renders into memory first so a failed render never truncates an
// earlier report.
func writeFile(path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteFinalAnswers writes the final answers as markdown, one section per
// agent, titled in lang.
func WriteFinalAnswers(w io.Writer, answers []fortune.FinalAnswer, lang string) error {
	title := "# 最终答案（重新回答原始问题）\n"
	if lang == fortune.LangEn {
		title = "# Final Answers (Re-answered Original Prompt)\n"
	}

	var b strings.Builder
	b.WriteString(title)
	for _, a := range answers {
		fmt.Fprintf(&b, "## %s\n", a.AgentName)
		if a.OK() {
			b.WriteString(strings.TrimSpace(a.Text))
		} else {
			fmt.Fprintf(&b, "[%s final answer failed: %s]", a.AgentName, a.Error)
		}
		b.WriteString("\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTranscript exports the reading as JSON (the default) or YAML.
func WriteTranscript(w io.Writer, r *fortune.Reading, format string) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode transcript: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode transcript: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown transcript format %q", format)
	}
}
