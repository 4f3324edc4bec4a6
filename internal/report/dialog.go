package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/0nhc/llm-fortune-teller/internal/debate"
	"github.com/0nhc/llm-fortune-teller/internal/fortune"
)

// entry is one block of the dialog log:
//
//	=== title ===
//	body
//	(timestamp: ...)
type entry struct {
	title string
	body  string
	at    time.Time
}

func (e entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", e.title)
	if body := strings.TrimRight(e.body, "\n "); body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "(timestamp: %s)", e.at.In(fortune.Location).Format(time.RFC3339))
	return b.String()
}

// WriteDialogLog writes the human-readable log of a reading: the question,
// the seed draft, every contribution and failed attempt round by round, the
// outcome and the final answers.
func WriteDialogLog(w io.Writer, r *fortune.Reading) error {
	for _, e := range dialogEntries(r) {
		if _, err := io.WriteString(w, e.String()+"\n\n"); err != nil {
			return err
		}
	}
	return nil
}

func dialogEntries(r *fortune.Reading) []entry {
	res := r.Result
	started := res.StartedAt
	finished := started.Add(res.Duration)

	entries := []entry{
		{title: "Initial User Prompt", body: res.Input.Payload, at: started},
		{title: "Seed Draft", body: res.Seed.Text, at: started},
	}

	contributions := res.Transcript.Contributions
	failures := res.Transcript.Failures
	for _, round := range res.Transcript.Rounds() {
		for _, c := range contributions {
			if c.Round != round {
				continue
			}
			entries = append(entries, entry{
				title: fmt.Sprintf("Round %d: %s Evaluation", round, r.AgentName(c.AgentID)),
				body:  fmt.Sprintf("agree: %t\n\n%s", c.Agree, c.Text),
				at:    c.Timestamp,
			})
		}
		for _, f := range failures {
			if f.Round != round {
				continue
			}
			entries = append(entries, entry{
				title: fmt.Sprintf("Round %d: %s Error", round, r.AgentName(f.AgentID)),
				body:  failureBody(f),
				at:    f.Timestamp,
			})
		}
	}

	entries = append(entries, entry{
		title: fmt.Sprintf("Outcome: %s after %d round(s)", res.Reason, res.Rounds),
		body:  outcomeBody(r),
		at:    finished,
	})

	for _, a := range r.FinalAnswers {
		if a.OK() {
			entries = append(entries, entry{title: "Final Long Answer from " + a.AgentName, body: a.Text, at: finished})
		} else {
			entries = append(entries, entry{title: "Final Long Answer Error from " + a.AgentName, body: "Error: " + a.Error, at: finished})
		}
	}
	return entries
}

func failureBody(f debate.Failure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attempt %d failed (%s): %s\n", f.Attempt, f.Kind, f.Message)
	if f.Terminal {
		b.WriteString("No further attempts this round; the agent will be asked again next round.")
	} else {
		b.WriteString("Retrying.")
	}
	return b.String()
}

func outcomeBody(r *fortune.Reading) string {
	res := r.Result
	var b strings.Builder
	if res.Verdict.Reason != "" {
		fmt.Fprintf(&b, "Judge (round %d, similarity %.3f): %s\n\n", res.Verdict.Round, res.Verdict.Score, res.Verdict.Reason)
	}
	for _, p := range r.Roster {
		last, ok := lastContribution(res.Transcript, p.ID)
		if !ok {
			fmt.Fprintf(&b, "%s contributed nothing\n", p.Name)
			continue
		}
		fmt.Fprintf(&b, "%s agree=%t last_round=%d answer_len=%d\n", p.Name, last.Agree, last.Round, len([]rune(last.Text)))
	}
	b.WriteString("\nFinal shared draft:\n")
	b.WriteString(res.Final.Text)
	return b.String()
}

func lastContribution(t debate.Transcript, agentID string) (debate.Contribution, bool) {
	for i := len(t.Contributions) - 1; i >= 0; i-- {
		if t.Contributions[i].AgentID == agentID {
			return t.Contributions[i], true
		}
	}
	return debate.Contribution{}, false
}
