package middleware

import (
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/httpkit/httpclient"
)

// Context is the mutable unit of work threaded through one pipeline run.
// Each run owns its own Context; concurrent runs never share one.
type Context struct {
	// Request is the request descriptor for this run.
	Request *httpclient.Request
	// Response is set for response-phase runs or by handlers.
	Response *httpclient.Response
	// Err is set for error-phase runs or by handlers.
	Err error
	// Metadata carries free-form values between middleware.
	Metadata map[string]any
	// StartTime is when the run began.
	StartTime time.Time
	// RequestID is a generated identifier for the run.
	RequestID string
}

// newContext builds a fresh context for a pipeline run.
func newContext(req *httpclient.Request) *Context {
	return &Context{
		Request:   req,
		Metadata:  make(map[string]any),
		StartTime: time.Now(),
		RequestID: uuid.NewString(),
	}
}

// merge folds the fields a handler returned into the running context.
// Non-nil request/response/error replace; metadata keys overwrite.
func (c *Context) merge(ret *Context) {
	if ret == nil || ret == c {
		return
	}
	if ret.Request != nil {
		c.Request = ret.Request
	}
	if ret.Response != nil {
		c.Response = ret.Response
	}
	if ret.Err != nil {
		c.Err = ret.Err
	}
	for k, v := range ret.Metadata {
		c.Metadata[k] = v
	}
}
