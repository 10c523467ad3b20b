// Package observability wires httpkit into OpenTelemetry. It provides
// OTLP meter and tracer initialization, a Recorder holding the metric
// instruments for requests, retries, breaker transitions, middleware
// runs, and plugin lifecycle events, and an event bus listener that
// feeds breaker and plugin events into those instruments.
package observability
