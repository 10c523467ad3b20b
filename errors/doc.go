// Package errors provides the unified error model for the httpkit control
// plane. It implements structured error types with machine-readable codes,
// optional HTTP status, and retryable detection, shared by the circuit
// breaker, retry scheduler, middleware pipeline, and plugin registry.
package errors
