package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder holds the metric instruments for the httpkit control plane.
type Recorder struct {
	requestTotal       metric.Int64Counter
	requestDuration    metric.Float64Histogram
	retryAttempts      metric.Int64Counter
	breakerTransitions metric.Int64Counter
	pipelineRuns       metric.Int64Counter
	pluginLifecycle    metric.Int64Counter
}

// NewRecorder creates the httpkit instruments on the given meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	requestTotal, err := meter.Int64Counter("httpkit.client.requests",
		metric.WithDescription("Total requests issued by the client"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.client.requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("httpkit.client.request.duration",
		metric.WithDescription("End-to-end request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.client.request.duration histogram: %w", err)
	}

	retryAttempts, err := meter.Int64Counter("httpkit.retry.attempts",
		metric.WithDescription("Retry attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.retry.attempts counter: %w", err)
	}

	breakerTransitions, err := meter.Int64Counter("httpkit.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.breaker.transitions counter: %w", err)
	}

	pipelineRuns, err := meter.Int64Counter("httpkit.middleware.runs",
		metric.WithDescription("Middleware pipeline runs by phase and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.middleware.runs counter: %w", err)
	}

	pluginLifecycle, err := meter.Int64Counter("httpkit.plugin.lifecycle",
		metric.WithDescription("Plugin lifecycle events"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating httpkit.plugin.lifecycle counter: %w", err)
	}

	return &Recorder{
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		retryAttempts:      retryAttempts,
		breakerTransitions: breakerTransitions,
		pipelineRuns:       pipelineRuns,
		pluginLifecycle:    pluginLifecycle,
	}, nil
}

// RecordRequest records one completed request.
func (r *Recorder) RecordRequest(ctx context.Context, method string, status int, duration time.Duration) {
	r.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.Int(AttrStatusCode, status),
	))
	r.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrMethod, method),
	))
}

// RecordRetryAttempt records one retry attempt with its outcome
// ("success", "failure", or "rejected").
func (r *Recorder) RecordRetryAttempt(ctx context.Context, outcome string) {
	r.retryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordBreakerTransition records a breaker entering a state.
func (r *Recorder) RecordBreakerTransition(ctx context.Context, name, state string) {
	r.breakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrBreaker, name),
		attribute.String(AttrState, state),
	))
}

// RecordPipelineRun records one pipeline phase run.
func (r *Recorder) RecordPipelineRun(ctx context.Context, phase string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.pipelineRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrPhase, phase),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordPluginEvent records a plugin lifecycle event.
func (r *Recorder) RecordPluginEvent(ctx context.Context, plugin, event string) {
	r.pluginLifecycle.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrPlugin, plugin),
		attribute.String(AttrEvent, event),
	))
}
