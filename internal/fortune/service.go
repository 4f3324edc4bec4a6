package fortune

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/0nhc/llm-fortune-teller/internal/ai"
	"github.com/0nhc/llm-fortune-teller/internal/config"
	"github.com/0nhc/llm-fortune-teller/internal/debate"
	"github.com/0nhc/llm-fortune-teller/internal/errors"
	"github.com/0nhc/llm-fortune-teller/internal/event"
	"github.com/0nhc/llm-fortune-teller/internal/logging"
	"github.com/0nhc/llm-fortune-teller/internal/telemetry"
)

// Reading is the outcome of Service.Read.
type Reading struct {
	Subject      Subject              `json:"subject" yaml:"subject"`
	Lang         string               `json:"lang" yaml:"lang"`
	Roster       []debate.Participant `json:"roster" yaml:"roster"`
	Result       *debate.Result       `json:"result" yaml:"result"`
	FinalAnswers []FinalAnswer        `json:"final_answers,omitempty" yaml:"final_answers,omitempty"`
}

// AgentName returns the display name of a roster member, or id when unknown.
func (r *Reading) AgentName(id string) string {
	for _, p := range r.Roster {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger passed to the engine and the clients.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEventBus publishes engine and final-answer progress on bus.
func WithEventBus(bus *event.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithSignalProvider replaces the profile renderer.
func WithSignalProvider(p SignalProvider) Option {
	return func(s *Service) { s.signals = p }
}

// WithClientOptions passes options to every client built from config.
func WithClientOptions(opts ...ai.Option) Option {
	return func(s *Service) { s.clientOpts = append(s.clientOpts, opts...) }
}

// WithClients binds providers to prebuilt clients instead of building them
// from config. Providers not in the map are still built from config.
func WithClients(clients map[string]ai.Client) Option {
	return func(s *Service) { s.clients = clients }
}

// WithMetrics records debate metrics on m.
func WithMetrics(m *telemetry.DebateMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time used for the current-time block.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs readings with a fixed configuration.
type Service struct {
	cfg      *config.Config
	template Template
	signals  SignalProvider

	logger     *logging.Logger
	bus        *event.Bus
	metrics    *telemetry.DebateMetrics
	clients    map[string]ai.Client
	clientOpts []ai.Option
	now        func() time.Time
}

// NewService creates a Service. Prompt template overrides named in cfg are
// read here.
func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	tmpl, err := LoadTemplate(cfg.Prompts.HeadFile, cfg.Prompts.TailFile)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		template: tmpl,
		signals:  ProfileSignals{},
		logger:   logging.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Input validates subject and renders the debate input for it.
func (s *Service) Input(ctx context.Context, subject Subject) (debate.DomainInput, error) {
	if err := subject.Validate(); err != nil {
		return debate.DomainInput{}, err
	}
	profile, err := s.signals.Signals(ctx, subject, s.now())
	if err != nil {
		return debate.DomainInput{}, fmt.Errorf("failed to render profile: %w", err)
	}
	return debate.DomainInput{
		Subject: subject.Label(),
		Payload: s.template.Render(profile),
	}, nil
}

// Read runs a full reading for subject.
//
// A session that started always yields a Reading, even when the returned
// error is non-nil, so callers can persist the partial transcript.
func (s *Service) Read(ctx context.Context, subject Subject) (*Reading, error) {
	input, err := s.Input(ctx, subject)
	if err != nil {
		return nil, err
	}

	agents, err := s.buildAgents()
	if err != nil {
		return nil, err
	}
	orch, err := s.newOrchestrator(agents)
	if err != nil {
		return nil, err
	}

	reading := &Reading{
		Subject: subject,
		Lang:    s.cfg.Output.Lang,
		Roster:  roster(agents),
	}

	res, err := orch.Run(ctx, input)
	reading.Result = res
	if res == nil {
		return reading, err
	}

	// A fatal session still gets answers from agents that contributed
	// before it stopped; a canceled one does not.
	if s.cfg.Debate.FinalAnswers && res.Reason != debate.ReasonCanceled {
		reading.FinalAnswers = s.finalAnswers(ctx, agents, input, res)
	}
	return reading, err
}

// Roster returns the enabled agents in registration order.
func (s *Service) Roster() ([]debate.Participant, error) {
	agents, err := s.buildAgents()
	if err != nil {
		return nil, err
	}
	return roster(agents), nil
}

func roster(agents []*debate.Agent) []debate.Participant {
	out := make([]debate.Participant, len(agents))
	for i, a := range agents {
		out[i] = debate.Participant{ID: a.ID, Name: a.DisplayName(), SupportsWeb: a.SupportsWeb}
	}
	return out
}

// buildAgents creates the enabled roster. Agents sharing a provider share
// its client and therefore its circuit breaker.
func (s *Service) buildAgents() ([]*debate.Agent, error) {
	built := make(map[string]ai.Client)
	var agents []*debate.Agent
	for _, ac := range s.cfg.EnabledAgents() {
		client, err := s.client(ac.Provider, built)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", ac.ID, err)
		}
		agents = append(agents, debate.NewAgent(ac.ID, ac.Name, ac.Role, ac.Persona, client,
			ai.GenerateOptions{Temperature: ac.Temperature}))
	}
	return agents, nil
}

func (s *Service) client(provider string, built map[string]ai.Client) (ai.Client, error) {
	if c, ok := built[provider]; ok {
		return c, nil
	}
	if c, ok := s.clients[provider]; ok {
		built[provider] = c
		return c, nil
	}
	pc, ok := s.cfg.Providers[provider]
	if !ok {
		return nil, errors.NewValidationError("unknown provider").WithField("provider").WithValue(provider)
	}
	opts := append([]ai.Option{ai.WithLogger(s.logger)}, s.clientOpts...)
	c, err := ai.NewFromConfig(provider, pc, opts...)
	if err != nil {
		return nil, err
	}
	built[provider] = c
	return c, nil
}

func (s *Service) retryPolicy() debate.RetryPolicy {
	return debate.RetryPolicy{
		MaxAttempts: s.cfg.Debate.MaxAttempts,
		BaseDelay:   s.cfg.Debate.BackoffBase(),
		MaxDelay:    s.cfg.Debate.BackoffMax(),
	}
}

func (s *Service) newOrchestrator(agents []*debate.Agent) (*debate.Orchestrator, error) {
	d := s.cfg.Debate
	byID := make(map[string]*debate.Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}

	cfg := debate.Config{
		MaxRounds:    d.MaxRounds,
		Retry:        s.retryPolicy(),
		RoundTimeout: d.RoundTimeout(),
	}
	opts := []debate.Option{
		debate.WithLogger(s.logger),
		debate.WithEventBus(s.bus),
	}
	if s.metrics != nil {
		opts = append(opts, debate.WithMetrics(s.metrics))
	}

	switch d.Fold {
	case config.FoldConcat:
		opts = append(opts, debate.WithFold(debate.ConcatFold{}))
	default:
		cfg.SynthesizerID = d.Synthesizer
		opts = append(opts, debate.WithFold(debate.SynthesizerFold{AgentID: d.Synthesizer}))
	}

	switch d.Seed {
	case config.SeedDrafter:
		drafter, ok := byID[d.Drafter]
		if !ok {
			return nil, errors.NewValidationError("drafter is not an enabled agent").WithField("debate.drafter").WithValue(d.Drafter)
		}
		opts = append(opts, debate.WithSeeder(debate.DrafterSeeder{Agent: drafter}))
	default:
		opts = append(opts, debate.WithSeeder(debate.TemplateSeeder{}))
	}

	switch d.Judge {
	case config.JudgeModel:
		judge, ok := byID[d.JudgeAgent]
		if !ok {
			return nil, errors.NewValidationError("judge agent is not an enabled agent").WithField("debate.judge_agent").WithValue(d.JudgeAgent)
		}
		opts = append(opts, debate.WithJudge(debate.ModelJudge{Client: judge.Client}))
	default:
		opts = append(opts, debate.WithJudge(debate.SimilarityJudge{
			Threshold:      d.SimilarityThreshold,
			AgreementFloor: d.AgreementFloor,
		}))
	}

	return debate.New(cfg, agents, opts...)
}

// finalAnswers asks every agent that contributed at least once for a
// standalone report. Answers come back in roster order.
func (s *Service) finalAnswers(ctx context.Context, agents []*debate.Agent, input debate.DomainInput, res *debate.Result) []FinalAnswer {
	contributed := make(map[string]bool)
	for _, c := range res.Transcript.Contributions {
		contributed[c.AgentID] = true
	}
	var eligible []*debate.Agent
	for _, a := range agents {
		if contributed[a.ID] {
			eligible = append(eligible, a)
		}
	}

	log := s.logger.WithSession(res.SessionID).WithPhase("final")
	return iter.Map(eligible, func(a **debate.Agent) FinalAnswer {
		agent := *a
		answer := FinalAnswer{AgentID: agent.ID, AgentName: agent.DisplayName()}
		agentLog := log.WithAgent(agent.ID)

		text, err := s.generateFinal(ctx, agent, finalPrompt(agent, input, res.Final, s.cfg.Output.Lang), agentLog)
		if err != nil {
			answer.Error = err.Error()
			agentLog.Warn("final answer failed", "kind", errors.KindOf(err), "error", err)
		} else {
			answer.Text = text
			agentLog.Info("final answer received", "chars", len([]rune(text)))
		}
		s.bus.Publish(event.NewAnswerCompletedEvent(res.SessionID, agent.ID, err == nil, answer.Error))
		return answer
	})
}

func (s *Service) generateFinal(ctx context.Context, agent *debate.Agent, prompt string, log *logging.Logger) (string, error) {
	opts := agent.Options
	opts.WebSearch = agent.SupportsWeb
	if opts.System == "" {
		opts.System = strings.TrimSpace(agent.Persona)
	}

	var text string
	retrier := debate.Retrier{Policy: s.retryPolicy()}
	err := retrier.Do(ctx, func(ctx context.Context) error {
		out, err := agent.Client.Generate(ctx, prompt, opts)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(out)
		return nil
	}, func(attempt int, err error, terminal bool) {
		log.Info("final answer attempt failed",
			"attempt", attempt,
			"terminal", terminal,
			"kind", errors.KindOf(err),
			"error", err,
		)
	})
	return text, err
}
