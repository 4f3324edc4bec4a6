package debate

import (
	"context"
	"strings"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

// Seeder produces the round-0 artifact the first round debates.
type Seeder interface {
	Seed(ctx context.Context, input DomainInput) (Artifact, error)
}

// TemplateSeeder fills a fixed template from the input.
type TemplateSeeder struct{}

// Seed implements Seeder.
func (TemplateSeeder) Seed(_ context.Context, input DomainInput) (Artifact, error) {
	return Artifact{Text: seedTemplate(input)}, nil
}

// DrafterSeeder asks one agent for a first draft. The draft is not part of
// the transcript.
type DrafterSeeder struct {
	Agent *Agent
}

// Seed implements Seeder.
func (s DrafterSeeder) Seed(ctx context.Context, input DomainInput) (Artifact, error) {
	if s.Agent == nil || s.Agent.Client == nil {
		return Artifact{}, errors.NewValidationError("drafter has no client").WithField("drafter")
	}
	opts := s.Agent.Options
	opts.WebSearch = s.Agent.SupportsWeb
	if opts.System == "" {
		opts.System = systemPrompt(s.Agent)
	}
	text, err := s.Agent.Client.Generate(ctx, drafterPrompt(input), opts)
	if err != nil {
		return Artifact{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Artifact{}, errors.NewProviderError(string(s.Agent.Client.Name()), "drafter returned no text", errors.ErrEmptyResponse)
	}
	return Artifact{Text: text}, nil
}
