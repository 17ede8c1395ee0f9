package otel_test

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	botmetrics "github.com/kaustavray/mathbot/otel"
)

// newTestMeter returns a meter backed by a manual reader for collecting
// metrics in tests.
func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is %T, want Sum[int64]", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_CountsUpdatesAndEvaluations(t *testing.T) {
	reader, mp := newTestMeter()
	m, err := botmetrics.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.UpdateReceived(ctx, 7)
	m.UpdateReceived(ctx, 8)
	m.EvaluationDone(ctx, true, 100*time.Microsecond)
	m.EvaluationDone(ctx, false, 50*time.Microsecond)

	rm := collectMetrics(t, reader)

	if got := counterValue(t, rm, "mathbot.updates"); got != 2 {
		t.Errorf("updates = %d, want 2", got)
	}
	if got := counterValue(t, rm, "mathbot.evaluations"); got != 2 {
		t.Errorf("evaluations = %d, want 2", got)
	}
	if got := counterValue(t, rm, "mathbot.evaluation.failures"); got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}

	dur := findMetric(rm, "mathbot.evaluation.duration")
	if dur == nil {
		t.Fatal("duration histogram not found")
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration is %T, want Histogram[float64]", dur.Data)
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("duration count = %d, want 2", count)
	}
}

func TestSetupTracing_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := botmetrics.SetupTracing(context.Background(), botmetrics.TracingConfig{})
	if err != nil {
		t.Fatalf("SetupTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
