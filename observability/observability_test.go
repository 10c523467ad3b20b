package observability

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/httpkit/breaker"
	"github.com/kbukum/httpkit/events"
	"github.com/kbukum/httpkit/plugin"
)

func newTestRecorder(t *testing.T) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rec, err := NewRecorder(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec, reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("instrument %s is not an int64 sum", name)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestRecorder_RecordRequest(t *testing.T) {
	rec, reader := newTestRecorder(t)
	ctx := context.Background()

	rec.RecordRequest(ctx, "GET", 200, 120*time.Millisecond)
	rec.RecordRequest(ctx, "POST", 503, 80*time.Millisecond)

	if got := counterValue(t, reader, "httpkit.client.requests"); got != 2 {
		t.Errorf("expected 2 requests recorded, got %d", got)
	}
}

func TestRecorder_RecordPipelineAndRetry(t *testing.T) {
	rec, reader := newTestRecorder(t)
	ctx := context.Background()

	rec.RecordPipelineRun(ctx, "request", true)
	rec.RecordPipelineRun(ctx, "error", false)
	rec.RecordRetryAttempt(ctx, "failure")

	if got := counterValue(t, reader, "httpkit.middleware.runs"); got != 2 {
		t.Errorf("expected 2 pipeline runs, got %d", got)
	}
	if got := counterValue(t, reader, "httpkit.retry.attempts"); got != 1 {
		t.Errorf("expected 1 retry attempt, got %d", got)
	}
}

func TestRecorder_ObserveBus(t *testing.T) {
	rec, reader := newTestRecorder(t)
	bus := events.NewBus()

	stop := rec.Observe(bus)

	bus.Emit(events.KindStateChanged, "api", breaker.Stats{Name: "api", State: breaker.StateOpen})
	bus.Emit(events.KindPluginRegistered, "plugin", plugin.RegisteredPayload{Plugin: "auth"})
	bus.Emit(events.KindPluginError, "plugin", plugin.ErrorPayload{Plugin: "auth", Transition: "start"})

	if got := counterValue(t, reader, "httpkit.breaker.transitions"); got != 1 {
		t.Errorf("expected 1 breaker transition, got %d", got)
	}
	if got := counterValue(t, reader, "httpkit.plugin.lifecycle"); got != 2 {
		t.Errorf("expected 2 plugin lifecycle events, got %d", got)
	}

	stop()
	bus.Emit(events.KindStateChanged, "api", breaker.Stats{Name: "api", State: breaker.StateClosed})
	if got := counterValue(t, reader, "httpkit.breaker.transitions"); got != 1 {
		t.Errorf("expected no increments after stop, got %d", got)
	}
}
