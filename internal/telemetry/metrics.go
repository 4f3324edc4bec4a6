package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DebateMetrics holds the instruments recorded by the debate orchestrator.
type DebateMetrics struct {
	sessionsCounter     metric.Int64Counter
	roundsCounter       metric.Int64Counter
	contributionCounter metric.Int64Counter
	failuresCounter     metric.Int64Counter
	sessionDuration     metric.Float64Histogram
	roundDuration       metric.Float64Histogram
	similarityHistogram metric.Float64Histogram
}

// NewDebateMetrics creates the debate instruments on meter. A nil meter uses
// the global provider, which is a no-op until Init installs an exporter.
func NewDebateMetrics(meter metric.Meter) (*DebateMetrics, error) {
	if meter == nil {
		meter = Meter("fortune-teller/debate")
	}

	sessions, err := meter.Int64Counter(
		"debate_sessions_total",
		metric.WithDescription("Debate sessions finished, by termination reason"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions counter: %w", err)
	}

	rounds, err := meter.Int64Counter(
		"debate_rounds_total",
		metric.WithDescription("Debate rounds completed"),
		metric.WithUnit("{round}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rounds counter: %w", err)
	}

	contributions, err := meter.Int64Counter(
		"debate_contributions_total",
		metric.WithDescription("Contributions recorded, by agent and agreement"),
		metric.WithUnit("{contribution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create contributions counter: %w", err)
	}

	failures, err := meter.Int64Counter(
		"debate_attempt_failures_total",
		metric.WithDescription("Failed model call attempts, by agent and error kind"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failures counter: %w", err)
	}

	sessionDuration, err := meter.Float64Histogram(
		"debate_session_duration_seconds",
		metric.WithDescription("Wall-clock duration of debate sessions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session duration histogram: %w", err)
	}

	roundDuration, err := meter.Float64Histogram(
		"debate_round_duration_seconds",
		metric.WithDescription("Wall-clock duration of a round, fan-out to barrier"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create round duration histogram: %w", err)
	}

	similarity, err := meter.Float64Histogram(
		"debate_draft_similarity",
		metric.WithDescription("Similarity score reported by the judge"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create similarity histogram: %w", err)
	}

	return &DebateMetrics{
		sessionsCounter:     sessions,
		roundsCounter:       rounds,
		contributionCounter: contributions,
		failuresCounter:     failures,
		sessionDuration:     sessionDuration,
		roundDuration:       roundDuration,
		similarityHistogram: similarity,
	}, nil
}

// RecordRound records a completed round and how long it took.
func (m *DebateMetrics) RecordRound(ctx context.Context, round, contributions, failures int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.Int("round", round),
		attribute.Bool("degraded", failures > 0),
	)
	m.roundsCounter.Add(ctx, 1, attrs)
	m.roundDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordContribution records one accepted contribution.
func (m *DebateMetrics) RecordContribution(ctx context.Context, agentID string, agree bool) {
	if m == nil {
		return
	}
	m.contributionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("agent.id", agentID),
			attribute.Bool("agree", agree),
		),
	)
}

// RecordAttemptFailure records one failed model call attempt.
func (m *DebateMetrics) RecordAttemptFailure(ctx context.Context, agentID, kind string, terminal bool) {
	if m == nil {
		return
	}
	m.failuresCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("agent.id", agentID),
			attribute.String("error.kind", kind),
			attribute.Bool("terminal", terminal),
		),
	)
}

// RecordVerdict records the judge's similarity score.
func (m *DebateMetrics) RecordVerdict(ctx context.Context, converged bool, score float64) {
	if m == nil {
		return
	}
	m.similarityHistogram.Record(ctx, score,
		metric.WithAttributes(
			attribute.Bool("converged", converged),
		),
	)
}

// RecordSession records a finished session.
func (m *DebateMetrics) RecordSession(ctx context.Context, reason string, rounds int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("reason", reason),
	)
	m.sessionsCounter.Add(ctx, 1, attrs)
	m.sessionDuration.Record(ctx, duration.Seconds(), attrs)
}
