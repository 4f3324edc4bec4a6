package telemetry

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInit_EmptyEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{ServiceName: "test"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if shutdown == nil {
		t.Fatal("Init() returned nil shutdown")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestDebateMetrics_NilReceiver(t *testing.T) {
	var m *DebateMetrics
	ctx := context.Background()
	// None of these may panic.
	m.RecordRound(ctx, 1, 3, 0, time.Second)
	m.RecordContribution(ctx, "a", true)
	m.RecordAttemptFailure(ctx, "a", "timeout", false)
	m.RecordVerdict(ctx, true, 0.9)
	m.RecordSession(ctx, "converged", 2, time.Second)
}

func TestDebateMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewDebateMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewDebateMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.RecordRound(ctx, 1, 2, 1, 2*time.Second)
	m.RecordRound(ctx, 2, 3, 0, time.Second)
	m.RecordContribution(ctx, "gemini", true)
	m.RecordAttemptFailure(ctx, "deepseek", "rate_limit", false)
	m.RecordSession(ctx, "converged", 2, 3*time.Second)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if data, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}

	want := map[string]int64{
		"debate_rounds_total":           2,
		"debate_contributions_total":    1,
		"debate_attempt_failures_total": 1,
		"debate_sessions_total":         1,
	}
	for name, v := range want {
		if sums[name] != v {
			t.Errorf("%s = %d, want %d", name, sums[name], v)
		}
	}
}
