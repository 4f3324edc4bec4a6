package debate

import (
	"fmt"
	"slices"
	"sync"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

// Session owns the transcript and the shared artifact of one debate.
// The Orchestrator is its single writer; readers get copies.
type Session struct {
	mu sync.RWMutex

	id       string
	order    map[string]int // agent id -> registration index
	fold     Fold
	artifact Artifact
	// lastRound is the highest round recorded with RecordRound.
	lastRound  int
	transcript Transcript
}

// NewSession creates a session for the given roster, seeded with seed.
// agentIDs fixes the registration order used for every round.
func NewSession(id string, agentIDs []string, fold Fold, seed Artifact) *Session {
	order := make(map[string]int, len(agentIDs))
	for i, agentID := range agentIDs {
		order[agentID] = i
	}
	if fold == nil {
		fold = ConcatFold{}
	}
	seed.Round = 0
	return &Session{
		id:       id,
		order:    order,
		fold:     fold,
		artifact: seed.clone(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// RecordRound appends a round's contributions in registration order and
// replaces the shared artifact with the fold of those contributions.
//
// round must be exactly one past the last recorded round. An empty
// contribution set is rejected with ErrNoContributions and leaves the
// artifact untouched.
func (s *Session) RecordRound(round int, contributions []Contribution) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if round != s.lastRound+1 {
		return Artifact{}, fmt.Errorf("record round %d: expected round %d", round, s.lastRound+1)
	}
	if len(contributions) == 0 {
		return Artifact{}, errors.Wrapf(errors.ErrNoContributions, "record round %d", round)
	}

	seen := make(map[string]bool, len(contributions))
	for _, c := range contributions {
		if _, ok := s.order[c.AgentID]; !ok {
			return Artifact{}, fmt.Errorf("record round %d: unknown agent %q", round, c.AgentID)
		}
		if c.Round != round {
			return Artifact{}, fmt.Errorf("record round %d: contribution from %q is for round %d", round, c.AgentID, c.Round)
		}
		if seen[c.AgentID] {
			return Artifact{}, fmt.Errorf("record round %d: duplicate contribution from %q", round, c.AgentID)
		}
		seen[c.AgentID] = true
	}

	ordered := slices.Clone(contributions)
	slices.SortStableFunc(ordered, func(a, b Contribution) int {
		return s.order[a.AgentID] - s.order[b.AgentID]
	})

	s.transcript.Contributions = append(s.transcript.Contributions, ordered...)
	s.artifact = s.fold.Fold(s.artifact, round, ordered)
	s.artifact.Round = round
	s.artifact.Contributions = ordered
	s.lastRound = round

	return s.artifact.clone(), nil
}

// RecordFailures appends failed attempts for the round in progress, ordered
// by agent registration and then attempt number.
func (s *Session) RecordFailures(round int, failures []Failure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if round != s.lastRound+1 {
		return fmt.Errorf("record failures for round %d: round %d is in progress", round, s.lastRound+1)
	}
	ordered := slices.Clone(failures)
	for i := range ordered {
		if ordered[i].Round != round {
			return fmt.Errorf("record failures for round %d: entry for agent %q is for round %d", round, ordered[i].AgentID, ordered[i].Round)
		}
	}
	slices.SortStableFunc(ordered, func(a, b Failure) int {
		if d := s.order[a.AgentID] - s.order[b.AgentID]; d != 0 {
			return d
		}
		return a.Attempt - b.Attempt
	})
	s.transcript.Failures = append(s.transcript.Failures, ordered...)
	return nil
}

// CurrentArtifact returns a copy of the shared artifact.
func (s *Session) CurrentArtifact() Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact.clone()
}

// FullTranscript returns a copy of the transcript.
func (s *Session) FullTranscript() Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript.clone()
}

// PreviousContributions returns the contributions of the last recorded round.
func (s *Session) PreviousContributions() []Contribution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.artifact.Contributions)
}
