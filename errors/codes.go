package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Transport-boundary errors (reported by request executors, retryable)
const (
	// ErrCodeTimeout indicates a single attempt timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeNetwork indicates a generic network failure.
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"
	// ErrCodeConnection indicates a connection-level failure (refused, DNS).
	ErrCodeConnection ErrorCode = "CONNECTION_ERROR"
)

// HTTP status classification (assigned by httpclient.ClassifyStatusCode)
const (
	// ErrCodeRateLimited indicates the server returned 429.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeHTTPClient indicates a non-retryable 4xx response.
	ErrCodeHTTPClient ErrorCode = "HTTP_CLIENT_ERROR"
	// ErrCodeHTTPServer indicates a 5xx response.
	ErrCodeHTTPServer ErrorCode = "HTTP_SERVER_ERROR"
)

// Resilience errors
const (
	// ErrCodeCircuitOpen indicates the circuit breaker rejected the attempt.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
	// ErrCodeRetryTimeout indicates the total retry time budget was exceeded.
	ErrCodeRetryTimeout ErrorCode = "RETRY_TIMEOUT"
)

// Pipeline errors
const (
	// ErrCodeMiddlewareTimeout indicates a single middleware exceeded its
	// allotted execution time.
	ErrCodeMiddlewareTimeout ErrorCode = "MIDDLEWARE_TIMEOUT"
	// ErrCodeMiddlewareFailed indicates a middleware returned an error and
	// the pipeline is configured to stop on error.
	ErrCodeMiddlewareFailed ErrorCode = "MIDDLEWARE_FAILED"
	// ErrCodeCancelled indicates the pipeline run was cancelled by its context.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Plugin errors
const (
	// ErrCodePluginNotFound indicates the named plugin is not registered.
	ErrCodePluginNotFound ErrorCode = "PLUGIN_NOT_FOUND"
	// ErrCodePluginDependencyMissing indicates a declared dependency is not registered.
	ErrCodePluginDependencyMissing ErrorCode = "PLUGIN_DEPENDENCY_MISSING"
	// ErrCodePluginCircularDependency indicates registration would create a dependency cycle.
	ErrCodePluginCircularDependency ErrorCode = "PLUGIN_CIRCULAR_DEPENDENCY"
	// ErrCodePluginLoadTimeout indicates a plugin lifecycle hook exceeded its time budget.
	ErrCodePluginLoadTimeout ErrorCode = "PLUGIN_LOAD_TIMEOUT"
	// ErrCodePluginCommandNotFound indicates the plugin does not expose the named command.
	ErrCodePluginCommandNotFound ErrorCode = "PLUGIN_COMMAND_NOT_FOUND"
	// ErrCodePluginLifecycle indicates a lifecycle hook or transition failed.
	ErrCodePluginLifecycle ErrorCode = "PLUGIN_LIFECYCLE_ERROR"
)

// Validation errors
const (
	// ErrCodeInvalidConfig indicates a configuration object failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeAlreadyExists indicates a named entity is already registered.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeLimitExceeded indicates a registration ceiling was reached.
	ErrCodeLimitExceeded ErrorCode = "LIMIT_EXCEEDED"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:     true,
	ErrCodeNetwork:     true,
	ErrCodeConnection:  true,
	ErrCodeRateLimited: true,
	ErrCodeHTTPServer:  true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
