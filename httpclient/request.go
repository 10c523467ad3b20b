package httpclient

import (
	"context"
	"time"
)

// Request describes one logical outbound HTTP request.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE, etc).
	Method string
	// URL is the full request URL.
	URL string
	// Headers are request headers.
	Headers map[string]string
	// Query are URL query parameters.
	Query map[string]string
	// Body is the request body. Accepts []byte, string, or any value the
	// transport chooses to encode.
	Body any
	// Metadata carries free-form values threaded through the pipeline.
	Metadata map[string]any
}

// Clone returns a deep-enough copy of the request: maps are copied,
// the body value is shared.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Headers = copyMap(r.Headers)
	clone.Query = copyMap(r.Query)
	if r.Metadata != nil {
		clone.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Response is the result of one network attempt.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
	// Duration is how long the attempt took.
	Duration time.Duration
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Executor performs exactly one network attempt. Implementations live
// outside the control plane (net/http adapters, fakes in tests).
type Executor func(ctx context.Context, req *Request) (*Response, error)

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
