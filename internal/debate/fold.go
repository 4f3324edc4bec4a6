package debate

import (
	"fmt"
	"strings"
)

// Fold turns a round's contributions into the next shared artifact.
// Contributions arrive in registration order and are never empty.
type Fold interface {
	Fold(previous Artifact, round int, contributions []Contribution) Artifact
}

// ConcatFold joins every contribution under a heading per agent.
type ConcatFold struct{}

// Fold implements Fold.
func (ConcatFold) Fold(_ Artifact, round int, contributions []Contribution) Artifact {
	var sb strings.Builder
	for i, c := range contributions {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "### %s\n\n%s", c.AgentID, strings.TrimSpace(c.Text))
	}
	return Artifact{Text: sb.String(), Round: round}
}

// SynthesizerFold makes the designated agent's contribution the new artifact.
// When that agent produced nothing this round, Fallback is used; a nil
// Fallback means ConcatFold.
type SynthesizerFold struct {
	AgentID  string
	Fallback Fold
}

// Fold implements Fold.
func (f SynthesizerFold) Fold(previous Artifact, round int, contributions []Contribution) Artifact {
	for _, c := range contributions {
		if c.AgentID == f.AgentID && strings.TrimSpace(c.Text) != "" {
			return Artifact{Text: strings.TrimSpace(c.Text), Round: round}
		}
	}
	fallback := f.Fallback
	if fallback == nil {
		fallback = ConcatFold{}
	}
	return fallback.Fold(previous, round, contributions)
}
