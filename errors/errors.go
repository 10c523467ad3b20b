package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error is the unified httpkit error type.
type Error struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the HTTP status associated with the error, 0 if none.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with automatic retryable detection.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Transport-boundary constructors ---

// Timeout creates an error for an attempt that exceeded its time budget.
func Timeout(operation string, cause error) *Error {
	return &Error{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation),
		Retryable: true, HTTPStatus: 504,
		Details: map[string]any{"operation": operation}, Cause: cause,
	}
}

// Network creates an error for a generic network failure.
func Network(cause error) *Error {
	return &Error{
		Code: ErrCodeNetwork, Message: "network error",
		Retryable: true, Cause: cause,
	}
}

// Connection creates an error for a connection-level failure.
func Connection(cause error) *Error {
	return &Error{
		Code: ErrCodeConnection, Message: "connection failed",
		Retryable: true, Cause: cause,
	}
}

// --- Resilience constructors ---

// CircuitOpen creates an error for an attempt rejected by an open breaker.
func CircuitOpen(breaker string) *Error {
	return &Error{
		Code: ErrCodeCircuitOpen, Message: fmt.Sprintf("circuit breaker %q is open", breaker),
		Retryable: false, HTTPStatus: 503,
		Details: map[string]any{"breaker": breaker},
	}
}

// RetryTimeout creates an error for an exhausted total retry time budget.
func RetryTimeout(elapsed, budget time.Duration) *Error {
	return &Error{
		Code:    ErrCodeRetryTimeout,
		Message: fmt.Sprintf("retry budget of %s exhausted after %s", budget, elapsed),
		Details: map[string]any{"elapsed": elapsed, "budget": budget},
	}
}

// --- Pipeline constructors ---

// MiddlewareTimeout creates an error for a middleware exceeding its time budget.
func MiddlewareTimeout(name string, timeout time.Duration) *Error {
	return &Error{
		Code:    ErrCodeMiddlewareTimeout,
		Message: fmt.Sprintf("middleware %q exceeded %s timeout", name, timeout),
		Details: map[string]any{"middleware": name, "timeout": timeout},
	}
}

// MiddlewareFailed creates an error for a middleware failure that stops the run.
func MiddlewareFailed(name string, cause error) *Error {
	return &Error{
		Code: ErrCodeMiddlewareFailed, Message: fmt.Sprintf("middleware %q failed", name),
		Details: map[string]any{"middleware": name}, Cause: cause,
	}
}

// Cancelled creates an error for a pipeline run aborted by its context.
func Cancelled(phase string) *Error {
	return &Error{
		Code: ErrCodeCancelled, Message: fmt.Sprintf("%s phase cancelled", phase),
		Details: map[string]any{"phase": phase},
	}
}

// --- Plugin constructors ---

// PluginNotFound creates an error for an unknown plugin name.
func PluginNotFound(name string) *Error {
	return &Error{
		Code: ErrCodePluginNotFound, Message: fmt.Sprintf("plugin %q is not registered", name),
		Details: map[string]any{"plugin": name},
	}
}

// PluginDependencyMissing creates an error for an unregistered declared dependency.
func PluginDependencyMissing(plugin, dependency string) *Error {
	return &Error{
		Code:    ErrCodePluginDependencyMissing,
		Message: fmt.Sprintf("plugin %q depends on unregistered plugin %q", plugin, dependency),
		Details: map[string]any{"plugin": plugin, "dependency": dependency},
	}
}

// PluginCircularDependency creates an error for a rejected dependency cycle.
func PluginCircularDependency(plugin string) *Error {
	return &Error{
		Code:    ErrCodePluginCircularDependency,
		Message: fmt.Sprintf("registering plugin %q would create a dependency cycle", plugin),
		Details: map[string]any{"plugin": plugin},
	}
}

// PluginLoadTimeout creates an error for a lifecycle hook exceeding its budget.
func PluginLoadTimeout(plugin, hook string, timeout time.Duration) *Error {
	return &Error{
		Code:    ErrCodePluginLoadTimeout,
		Message: fmt.Sprintf("plugin %q hook %s exceeded %s timeout", plugin, hook, timeout),
		Details: map[string]any{"plugin": plugin, "hook": hook, "timeout": timeout},
	}
}

// PluginCommandNotFound creates an error for an unknown plugin command.
func PluginCommandNotFound(plugin, command string) *Error {
	return &Error{
		Code:    ErrCodePluginCommandNotFound,
		Message: fmt.Sprintf("plugin %q has no command %q", plugin, command),
		Details: map[string]any{"plugin": plugin, "command": command},
	}
}

// PluginLifecycle creates an error for a failed lifecycle transition.
func PluginLifecycle(plugin, transition string, cause error) *Error {
	return &Error{
		Code:    ErrCodePluginLifecycle,
		Message: fmt.Sprintf("plugin %q failed during %s", plugin, transition),
		Details: map[string]any{"plugin": plugin, "transition": transition}, Cause: cause,
	}
}

// --- Validation constructors ---

// InvalidConfig creates an error for a configuration object that failed validation.
func InvalidConfig(component, reason string) *Error {
	return &Error{
		Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("invalid %s config: %s", component, reason),
		Details: map[string]any{"component": component},
	}
}

// AlreadyExists creates an error for a duplicate named registration.
func AlreadyExists(kind, name string) *Error {
	return &Error{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("%s %q is already registered", kind, name),
		Details: map[string]any{"kind": kind, "name": name},
	}
}

// LimitExceeded creates an error for a registration ceiling.
func LimitExceeded(kind string, limit int) *Error {
	return &Error{
		Code: ErrCodeLimitExceeded, Message: fmt.Sprintf("%s limit of %d reached", kind, limit),
		Details: map[string]any{"kind": kind, "limit": limit},
	}
}

// --- Inspection helpers ---

// CodeOf returns the error code of err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatusOf returns the HTTP status carried by err, or 0 if none.
func HTTPStatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus
	}
	return 0
}

// Is reports whether err carries the given error code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsCircuitOpen checks if an error is a circuit breaker rejection.
func IsCircuitOpen(err error) bool { return Is(err, ErrCodeCircuitOpen) }

// IsRetryTimeout checks if an error is a retry budget exhaustion.
func IsRetryTimeout(err error) bool { return Is(err, ErrCodeRetryTimeout) }

// IsCancelled checks if an error is a pipeline cancellation.
func IsCancelled(err error) bool { return Is(err, ErrCodeCancelled) }

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
