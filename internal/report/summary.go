package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/0nhc/llm-fortune-teller/internal/fortune"
	"github.com/0nhc/llm-fortune-teller/internal/tui/styles"
)

// Summary renders a short terminal summary of a finished reading.
func Summary(r *fortune.Reading, paths Paths) string {
	res := r.Result
	var b strings.Builder

	b.WriteString(styles.Title.Render("Reading for " + r.Subject.Label()))
	b.WriteString("\n")
	row := func(label, value string) {
		b.WriteString(styles.Label.Render(fmt.Sprintf("%-14s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Session", res.SessionID)
	row("Outcome", styles.Reason(string(res.Reason)))
	row("Rounds", fmt.Sprintf("%d", res.Rounds))
	row("Duration", res.Duration.Round(time.Second).String())
	row("Contributions", fmt.Sprintf("%d", len(res.Transcript.Contributions)))
	if n := len(res.Transcript.Failures); n > 0 {
		row("Failures", styles.Warning.Render(fmt.Sprintf("%d", n)))
	}
	if len(r.FinalAnswers) > 0 {
		ok := 0
		for _, a := range r.FinalAnswers {
			if a.OK() {
				ok++
			}
		}
		row("Final answers", fmt.Sprintf("%d/%d", ok, len(r.FinalAnswers)))
	}

	var files []string
	for _, p := range []string{paths.DialogLog, paths.FinalAnswers, paths.Transcript} {
		if p != "" {
			files = append(files, styles.Muted.Render(p))
		}
	}
	if len(files) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.ContentBox.Render(strings.Join(files, "\n")))
		b.WriteString("\n")
	}
	return b.String()
}
