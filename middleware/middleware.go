package middleware

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/kbukum/httpkit/errors"
)

// Kind identifies the pipeline phase a middleware executes in.
type Kind string

const (
	// KindRequest runs before the request is sent.
	KindRequest Kind = "request"
	// KindResponse runs after a successful response.
	KindResponse Kind = "response"
	// KindError runs after a failed request.
	KindError Kind = "error"
)

// Handler processes a pipeline context and returns an updated context.
// Returning nil means no changes. The passed context.Context carries the
// per-entry timeout and the run's cancellation signal.
type Handler func(ctx context.Context, mc *Context) (*Context, error)

// Conditions restrict when a middleware executes. All groups must pass;
// within an include or exclude list, patterns are OR-matched.
type Conditions struct {
	// IncludeURLs are regex patterns; at least one must match the URL.
	IncludeURLs []string
	// ExcludeURLs are regex patterns; a match skips the middleware.
	ExcludeURLs []string
	// IncludeMethods lists HTTP methods the middleware applies to.
	IncludeMethods []string
	// ExcludeMethods lists HTTP methods the middleware skips.
	ExcludeMethods []string
	// Custom is an arbitrary predicate over the run context.
	Custom func(*Context) bool
}

// Middleware is one named entry in a pipeline phase list.
type Middleware struct {
	// Name is the unique key within the phase list.
	Name string
	// Priority orders execution; lower runs first. Ties keep insertion order.
	Priority int
	// Enabled gates execution; disabled entries are skipped.
	Enabled bool
	// Conditions optionally restrict execution.
	Conditions *Conditions
	// Timeout overrides the pipeline's per-entry timeout when positive.
	Timeout time.Duration
	// Handler is the function executed for matching contexts.
	Handler Handler
}

// New creates an enabled middleware with the given name, priority, and
// handler.
func New(name string, priority int, h Handler) Middleware {
	return Middleware{Name: name, Priority: priority, Enabled: true, Handler: h}
}

// entry is a registered middleware with compiled URL patterns.
type entry struct {
	mw         Middleware
	includeURL []*regexp.Regexp
	excludeURL []*regexp.Regexp
	seq        int
}

// compile validates and compiles the middleware's URL patterns.
func (e *entry) compile() error {
	if e.mw.Conditions == nil {
		return nil
	}
	for _, p := range e.mw.Conditions.IncludeURLs {
		re, err := regexp.Compile(p)
		if err != nil {
			return errors.InvalidConfig("middleware", "bad include pattern "+p).WithCause(err)
		}
		e.includeURL = append(e.includeURL, re)
	}
	for _, p := range e.mw.Conditions.ExcludeURLs {
		re, err := regexp.Compile(p)
		if err != nil {
			return errors.InvalidConfig("middleware", "bad exclude pattern "+p).WithCause(err)
		}
		e.excludeURL = append(e.excludeURL, re)
	}
	return nil
}

// matches reports whether the entry's conditions accept the context.
func (e *entry) matches(mc *Context) bool {
	cond := e.mw.Conditions
	if cond == nil {
		return true
	}

	url, method := "", ""
	if mc.Request != nil {
		url = mc.Request.URL
		method = mc.Request.Method
	}

	if len(e.includeURL) > 0 && !anyMatch(e.includeURL, url) {
		return false
	}
	if len(e.excludeURL) > 0 && anyMatch(e.excludeURL, url) {
		return false
	}
	if len(cond.IncludeMethods) > 0 && !containsFold(cond.IncludeMethods, method) {
		return false
	}
	if len(cond.ExcludeMethods) > 0 && containsFold(cond.ExcludeMethods, method) {
		return false
	}
	if cond.Custom != nil && !cond.Custom(mc) {
		return false
	}
	return true
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
