package debate

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
	"github.com/0nhc/llm-fortune-teller/internal/event"
	"github.com/0nhc/llm-fortune-teller/internal/logging"
	"github.com/0nhc/llm-fortune-teller/internal/telemetry"
)

// DefaultSimilarityThreshold is the similarity at which the default judge
// considers two drafts converged.
const DefaultSimilarityThreshold = 0.95

// Config bounds a debate.
type Config struct {
	MaxRounds int
	Retry     RetryPolicy // zero means DefaultRetryPolicy

	// RoundTimeout bounds every call of a round, retries and backoff
	// included. Zero disables the round deadline.
	RoundTimeout time.Duration

	// SynthesizerID names the agent asked to return the complete revised
	// draft each round. Empty means nobody synthesizes and the fold decides.
	SynthesizerID string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithJudge sets the convergence judge.
func WithJudge(j Judge) Option {
	return func(o *Orchestrator) { o.judge = j }
}

// WithFold sets the fold policy. The default is SynthesizerFold when a
// synthesizer is configured and ConcatFold otherwise.
func WithFold(f Fold) Option {
	return func(o *Orchestrator) { o.fold = f }
}

// WithSeeder sets how the round-0 artifact is produced.
func WithSeeder(s Seeder) Option {
	return func(o *Orchestrator) { o.seeder = s }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithEventBus publishes session progress on bus. Handlers may be called
// from several goroutines at once during a round.
func WithEventBus(bus *event.Bus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// WithMetrics records debate metrics on m instead of the global meter.
func WithMetrics(m *telemetry.DebateMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSessionIDFunc overrides session id generation.
func WithSessionIDFunc(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// Orchestrator runs debate sessions over a fixed agent roster. It holds no
// per-session state, so several sessions may run concurrently.
type Orchestrator struct {
	cfg    Config
	agents []*Agent
	judge  Judge
	fold   Fold
	seeder Seeder

	logger  *logging.Logger
	bus     *event.Bus
	metrics *telemetry.DebateMetrics
	tracer  trace.Tracer
	newID   func() string
	sleep   func(context.Context, time.Duration) error
}

// New validates the roster and returns an Orchestrator. The roster must be
// non-empty with unique ids, and the synthesizer, when set, must be on it.
func New(cfg Config, agents []*Agent, opts ...Option) (*Orchestrator, error) {
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.MaxRounds < 1 {
		return nil, errors.NewValidationError("max rounds must be at least 1").
			WithField("max_rounds").
			WithValue(cfg.MaxRounds)
	}
	if err := validateRoster(agents, cfg.SynthesizerID); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:    cfg,
		agents: slices.Clone(agents),
		judge:  SimilarityJudge{Threshold: DefaultSimilarityThreshold},
		seeder: TemplateSeeder{},
		logger: logging.NopLogger(),
		tracer: telemetry.Tracer("fortune-teller/debate"),
		newID:  uuid.NewString,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.fold == nil {
		if cfg.SynthesizerID != "" {
			o.fold = SynthesizerFold{AgentID: cfg.SynthesizerID}
		} else {
			o.fold = ConcatFold{}
		}
	}
	if o.metrics == nil {
		m, err := telemetry.NewDebateMetrics(nil)
		if err != nil {
			return nil, fmt.Errorf("create debate metrics: %w", err)
		}
		o.metrics = m
	}
	return o, nil
}

func validateRoster(agents []*Agent, synthesizer string) error {
	if len(agents) == 0 {
		return errors.NewValidationError("agent roster is empty").
			WithField("agents").
			WithCause(errors.ErrInvalidRoster)
	}
	seen := make(map[string]bool, len(agents))
	for i, a := range agents {
		switch {
		case a == nil || a.ID == "":
			return errors.NewValidationError(fmt.Sprintf("agent %d has no id", i)).
				WithField("agents").
				WithCause(errors.ErrInvalidRoster)
		case a.Client == nil:
			return errors.NewValidationError(fmt.Sprintf("agent %q has no model client", a.ID)).
				WithField("agents").
				WithCause(errors.ErrInvalidRoster)
		case seen[a.ID]:
			return errors.NewValidationError("duplicate agent id").
				WithField("agents").
				WithValue(a.ID).
				WithCause(errors.ErrInvalidRoster)
		}
		seen[a.ID] = true
	}
	if synthesizer != "" && !seen[synthesizer] {
		return errors.NewValidationError("synthesizer is not a registered agent").
			WithField("synthesizer").
			WithValue(synthesizer).
			WithCause(errors.ErrInvalidRoster)
	}
	return nil
}

// Agents returns the roster in registration order.
func (o *Orchestrator) Agents() []*Agent {
	return slices.Clone(o.agents)
}

func (o *Orchestrator) agentIDs() []string {
	ids := make([]string, len(o.agents))
	for i, a := range o.agents {
		ids[i] = a.ID
	}
	return ids
}

// Run debates input until the judge reports convergence or the round budget
// is spent.
//
// The returned Result is non-nil whenever the session started. A session
// aborted because a round produced no contributions or the judge failed
// returns a *FatalError; caller cancellation, checked between rounds,
// returns an error wrapping ctx.Err() with Reason set to ReasonCanceled.
func (o *Orchestrator) Run(ctx context.Context, input DomainInput) (*Result, error) {
	if strings.TrimSpace(input.Payload) == "" {
		return nil, errors.NewValidationError("domain input payload is empty").WithField("payload")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("debate not started: %w", err)
	}

	sessionID := o.newID()
	started := time.Now()
	log := o.logger.WithSession(sessionID)
	ids := o.agentIDs()

	ctx, span := o.tracer.Start(ctx, "debate.session", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("debate.agents", len(o.agents)),
		attribute.Int("debate.max_rounds", o.cfg.MaxRounds),
	))
	defer span.End()

	seed := o.seed(ctx, input, log)
	session := NewSession(sessionID, ids, o.fold, seed)

	log.Info("debate started",
		"subject", input.Subject,
		"agents", ids,
		"max_rounds", o.cfg.MaxRounds,
	)
	o.bus.Publish(event.NewSessionStartedEvent(sessionID, input.Subject, ids, o.cfg.MaxRounds))

	result := &Result{
		SessionID: sessionID,
		Input:     input,
		Seed:      seed,
		StartedAt: started.UTC(),
	}

	for round := 1; round <= o.cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("debate canceled before round %d: %w", round, err)
			return o.finish(ctx, span, session, result, started, ReasonCanceled, err, log)
		}

		verdict, err := o.runRound(ctx, session, input, round, log)
		result.Rounds = round
		if err != nil {
			return o.finish(ctx, span, session, result, started, ReasonFatal, err, log)
		}
		result.Verdict = verdict
		if verdict.Converged {
			return o.finish(ctx, span, session, result, started, ReasonConverged, nil, log)
		}
	}

	return o.finish(ctx, span, session, result, started, ReasonBudgetExhausted, nil, log)
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, session *Session, result *Result, started time.Time, reason Reason, err error, log *logging.Logger) (*Result, error) {
	result.Final = session.CurrentArtifact()
	result.Transcript = session.FullTranscript()
	result.Reason = reason
	result.Duration = time.Since(started)

	var errMsg string
	if err != nil {
		var sfe *errors.SessionFatalError
		if errors.As(err, &sfe) {
			err = &FatalError{Err: sfe, Transcript: result.Transcript}
		}
		errMsg = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, errMsg)
		log.Error("debate aborted",
			"reason", reason,
			"rounds", result.Rounds,
			"error", errMsg,
		)
	} else {
		log.Info("debate finished",
			"reason", reason,
			"rounds", result.Rounds,
			"contributions", len(result.Transcript.Contributions),
			"failures", len(result.Transcript.Failures),
			"duration", result.Duration.String(),
		)
	}

	span.SetAttributes(
		attribute.String("debate.reason", string(reason)),
		attribute.Int("debate.rounds", result.Rounds),
	)
	o.metrics.RecordSession(context.WithoutCancel(ctx), string(reason), result.Rounds, result.Duration)
	o.bus.Publish(event.NewSessionFinishedEvent(result.SessionID, string(reason), result.Rounds, result.Duration, errMsg))
	return result, err
}

// seed produces the round-0 artifact. A failing seeder falls back to the
// template so the session can still start.
func (o *Orchestrator) seed(ctx context.Context, input DomainInput, log *logging.Logger) Artifact {
	seedCtx, cancel := o.roundContext(ctx)
	defer cancel()

	artifact, err := o.seeder.Seed(seedCtx, input)
	if err != nil || strings.TrimSpace(artifact.Text) == "" {
		log.WithPhase("seed").Warn("seeder failed, using template draft", "error", err)
		artifact, _ = TemplateSeeder{}.Seed(ctx, input)
	}
	artifact.Round = 0
	artifact.Contributions = nil
	return artifact
}

// roundContext detaches ctx from caller cancellation and applies the round
// deadline.
func (o *Orchestrator) roundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if o.cfg.RoundTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, o.cfg.RoundTimeout)
}

type agentOutcome struct {
	contribution Contribution
	ok           bool
	failures     []Failure
}

// runRound dispatches every agent, waits for all of them, records the round
// and asks the judge for a verdict.
func (o *Orchestrator) runRound(ctx context.Context, session *Session, input DomainInput, round int, log *logging.Logger) (Verdict, error) {
	log = log.WithRound(round)
	roundStart := time.Now()

	ctx, span := o.tracer.Start(ctx, "debate.round", trace.WithAttributes(
		attribute.Int("debate.round", round),
	))
	defer span.End()

	log.Info("round started")
	o.bus.Publish(event.NewRoundStartedEvent(session.ID(), round))

	previous := session.CurrentArtifact()
	req := RespondRequest{
		Input:    input,
		Artifact: previous,
		Previous: session.PreviousContributions(),
		Roster:   participants(o.agents),
		Round:    round,
	}

	callCtx, cancel := o.roundContext(ctx)
	outcomes := o.fanOut(callCtx, session.ID(), req, log)
	cancel()

	var contributions []Contribution
	var failures []Failure
	for _, out := range outcomes {
		failures = append(failures, out.failures...)
		if out.ok {
			contributions = append(contributions, out.contribution)
		}
	}

	if err := session.RecordFailures(round, failures); err != nil {
		return Verdict{}, errors.NewSessionFatalError("failure log rejected entries", err).
			WithSessionID(session.ID()).
			WithRound(round)
	}
	o.metrics.RecordRound(ctx, round, len(contributions), len(o.agents)-len(contributions), time.Since(roundStart))

	if len(contributions) == 0 {
		log.Error("round produced no contributions", "failures", len(failures))
		return Verdict{}, errors.NewSessionFatalError(fmt.Sprintf("all %d agents failed", len(o.agents)), errors.ErrNoContributions).
			WithSessionID(session.ID()).
			WithRound(round)
	}

	current, err := session.RecordRound(round, contributions)
	if err != nil {
		return Verdict{}, errors.NewSessionFatalError("round could not be recorded", err).
			WithSessionID(session.ID()).
			WithRound(round)
	}
	for _, c := range current.Contributions {
		o.metrics.RecordContribution(ctx, c.AgentID, c.Agree)
		o.bus.Publish(event.NewContributionRecordedEvent(session.ID(), round, c.AgentID, c.Agree, c.Text))
	}
	log.Info("round recorded",
		"contributions", len(contributions),
		"failures", len(failures),
		"artifact_chars", len([]rune(current.Text)),
	)

	return o.evaluate(ctx, session.ID(), previous, current, round, log)
}

// fanOut calls every agent concurrently and returns their outcomes in
// registration order. A panicking agent is recorded as a terminal failure.
func (o *Orchestrator) fanOut(ctx context.Context, sessionID string, req RespondRequest, log *logging.Logger) []agentOutcome {
	outcomes := make([]agentOutcome, len(o.agents))

	var wg conc.WaitGroup
	for i, agent := range o.agents {
		wg.Go(func() {
			agentReq := req
			agentReq.Synthesize = agent.ID == o.cfg.SynthesizerID
			agentLog := log.WithAgent(agent.ID)

			var pc panics.Catcher
			pc.Try(func() {
				o.respond(ctx, sessionID, agent, agentReq, &outcomes[i], agentLog)
			})
			if r := pc.Recovered(); r != nil {
				out := &outcomes[i]
				out.ok = false
				o.recordFailure(ctx, sessionID, agent.ID, req.Round, len(out.failures)+1, r.AsError(), true, out, agentLog)
			}
		})
	}
	wg.Wait()

	return outcomes
}

func (o *Orchestrator) respond(ctx context.Context, sessionID string, agent *Agent, req RespondRequest, out *agentOutcome, log *logging.Logger) {
	ctx, span := o.tracer.Start(ctx, "debate.respond", trace.WithAttributes(
		attribute.String("agent.id", agent.ID),
		attribute.Int("debate.round", req.Round),
	))
	defer span.End()

	err := o.retrier().Do(ctx, func(ctx context.Context) error {
		c, err := agent.Respond(ctx, req)
		if err != nil {
			return err
		}
		out.contribution = c
		out.ok = true
		return nil
	}, func(attempt int, err error, terminal bool) {
		o.recordFailure(ctx, sessionID, agent.ID, req.Round, attempt, err, terminal, out, log)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	log.Debug("contribution received",
		"agree", out.contribution.Agree,
		"chars", len([]rune(out.contribution.Text)),
	)
}

func (o *Orchestrator) recordFailure(ctx context.Context, sessionID, agentID string, round, attempt int, err error, terminal bool, out *agentOutcome, log *logging.Logger) {
	f := Failure{
		AgentID:   agentID,
		Round:     round,
		Attempt:   attempt,
		Kind:      errors.KindOf(err),
		Message:   err.Error(),
		Terminal:  terminal,
		Timestamp: time.Now().UTC(),
	}
	out.failures = append(out.failures, f)

	if terminal {
		logAtSeverity(log, err, "agent dropped from round", "attempt", attempt, "kind", f.Kind, "error", f.Message)
	} else {
		log.Info("attempt failed, retrying", "attempt", attempt, "kind", f.Kind, "error", f.Message)
	}
	o.metrics.RecordAttemptFailure(ctx, agentID, string(f.Kind), terminal)
	o.bus.Publish(event.NewAttemptFailedEvent(sessionID, round, agentID, attempt, string(f.Kind), f.Message, terminal))
}

func (o *Orchestrator) retrier() Retrier {
	return Retrier{Policy: o.cfg.Retry, Expired: o.deadlineError, Sleep: o.sleep}
}

// deadlineError marks err as a terminal round deadline miss.
func (o *Orchestrator) deadlineError(err error) error {
	return errors.NewTimeoutError("round deadline", o.cfg.RoundTimeout).
		WithCause(err).
		WithRetryable(false)
}

// evaluate asks the judge for a verdict. Retryable judge failures follow the
// retry policy; anything else is fatal for the session.
func (o *Orchestrator) evaluate(ctx context.Context, sessionID string, previous, current Artifact, round int, log *logging.Logger) (Verdict, error) {
	log = log.WithPhase("judge")
	judgeCtx, cancel := o.roundContext(ctx)
	defer cancel()

	var verdict Verdict
	err := o.retrier().Do(judgeCtx, func(ctx context.Context) error {
		v, err := o.judge.Evaluate(ctx, previous, current, round)
		if err != nil {
			return err
		}
		verdict = v
		return nil
	}, func(attempt int, err error, terminal bool) {
		log.Warn("judge attempt failed", "attempt", attempt, "terminal", terminal, "error", err)
	})
	if err != nil {
		return Verdict{}, errors.NewSessionFatalError("round could not be judged", fmt.Errorf("%w: %w", errors.ErrJudgeFailed, err)).
			WithSessionID(sessionID).
			WithRound(round)
	}

	verdict.Round = round
	log.Info("verdict issued",
		"converged", verdict.Converged,
		"score", verdict.Score,
		"reason", verdict.Reason,
	)
	o.metrics.RecordVerdict(ctx, verdict.Converged, verdict.Score)
	o.bus.Publish(event.NewVerdictIssuedEvent(sessionID, round, verdict.Converged, verdict.Score, verdict.Reason))
	return verdict, nil
}

// logAtSeverity logs msg at the level matching err's severity. Errors
// without a severity are logged as errors.
func logAtSeverity(log *logging.Logger, err error, msg string, args ...any) {
	switch errors.GetSeverity(err) {
	case errors.SeverityDebug:
		log.Debug(msg, args...)
	case errors.SeverityInfo:
		log.Info(msg, args...)
	case errors.SeverityWarning:
		log.Warn(msg, args...)
	default:
		log.Error(msg, args...)
	}
}
