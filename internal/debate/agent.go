package debate

import (
	"context"
	"strings"
	"time"

	"github.com/0nhc/llm-fortune-teller/internal/ai"
	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

// Agent is a model-backed persona that produces one contribution per round.
// Agents are immutable once handed to an Orchestrator.
type Agent struct {
	ID      string
	Name    string
	Role    string
	Persona string

	Client  ai.Client
	Options ai.GenerateOptions

	// SupportsWeb reports whether the bound client can search the web. It
	// selects the prompt variant and enables the provider's search tool.
	SupportsWeb bool
}

// NewAgent binds a persona to a client. SupportsWeb is taken from the
// client's advertised capabilities.
func NewAgent(id, name, role, persona string, client ai.Client, opts ai.GenerateOptions) *Agent {
	return &Agent{
		ID:          id,
		Name:        name,
		Role:        role,
		Persona:     persona,
		Client:      client,
		Options:     opts,
		SupportsWeb: client != nil && ai.SupportsWebSearch(client),
	}
}

// DisplayName returns Name, or ID when no name is set.
func (a *Agent) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Participant describes a roster member to other agents.
type Participant struct {
	ID          string
	Name        string
	SupportsWeb bool
}

// RespondRequest is an immutable snapshot handed to an agent for one round.
type RespondRequest struct {
	Input    DomainInput
	Artifact Artifact
	// Previous holds the contributions of the immediately preceding round
	// only. Older rounds are represented by Artifact.
	Previous []Contribution
	Roster   []Participant
	Round    int
	// Synthesize asks the agent to return the complete revised draft.
	Synthesize bool
}

// Respond asks the agent's model for its contribution to req.Round. It
// never touches session state; the caller records the result.
func (a *Agent) Respond(ctx context.Context, req RespondRequest) (Contribution, error) {
	opts := a.Options
	opts.WebSearch = a.SupportsWeb
	if opts.System == "" {
		opts.System = systemPrompt(a)
	}

	text, err := a.Client.Generate(ctx, debatePrompt(a, req), opts)
	if err != nil {
		return Contribution{}, err
	}

	reply := ParseReply(text)
	message := strings.TrimSpace(reply.Message)
	if message == "" {
		return Contribution{}, errors.NewProviderError(string(a.Client.Name()), "reply carried no message", errors.ErrEmptyResponse)
	}

	return Contribution{
		AgentID:   a.ID,
		Round:     req.Round,
		Text:      message,
		Agree:     reply.Agree,
		Timestamp: time.Now().UTC(),
	}, nil
}

func participants(agents []*Agent) []Participant {
	out := make([]Participant, len(agents))
	for i, a := range agents {
		out[i] = Participant{ID: a.ID, Name: a.DisplayName(), SupportsWeb: a.SupportsWeb}
	}
	return out
}
