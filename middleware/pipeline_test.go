package middleware

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/httpclient"
)

func noop(_ context.Context, _ *Context) (*Context, error) { return nil, nil }

func getReq() *httpclient.Request {
	return &httpclient.Request{Method: "GET", URL: "https://api.example.com/users"}
}

func TestPipeline_ExecutesInPriorityOrder(t *testing.T) {
	p := NewPipeline(Config{})

	var order []string
	tag := func(name string) Handler {
		return func(_ context.Context, _ *Context) (*Context, error) {
			order = append(order, name)
			return nil, nil
		}
	}

	p.RegisterRequest(New("third", 30, tag("third")))
	p.RegisterRequest(New("first", 10, tag("first")))
	p.RegisterRequest(New("second", 20, tag("second")))

	res := p.ExecuteRequest(context.Background(), getReq())

	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Errorf("expected priority order, got %v", order)
	}
}

func TestPipeline_EqualPriorityKeepsInsertionOrder(t *testing.T) {
	p := NewPipeline(Config{})

	var order []string
	tag := func(name string) Handler {
		return func(_ context.Context, _ *Context) (*Context, error) {
			order = append(order, name)
			return nil, nil
		}
	}

	for _, name := range []string{"a", "b", "c"} {
		p.RegisterRequest(New(name, 5, tag(name)))
	}

	p.ExecuteRequest(context.Background(), getReq())

	if order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("expected stable order for equal priority, got %v", order)
	}
}

func TestPipeline_DuplicateNameRejected(t *testing.T) {
	p := NewPipeline(Config{})

	if err := p.RegisterRequest(New("auth", 0, noop)); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	err := p.RegisterRequest(New("auth", 1, noop))
	if !errors.Is(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS, got %v", err)
	}

	// The same name in a different phase is fine.
	if err := p.RegisterResponse(New("auth", 0, noop)); err != nil {
		t.Errorf("same name in another phase must succeed: %v", err)
	}
}

func TestPipeline_MaxMiddlewareEnforced(t *testing.T) {
	p := NewPipeline(Config{MaxMiddleware: 2})

	p.RegisterRequest(New("a", 0, noop))
	p.RegisterRequest(New("b", 0, noop))
	err := p.RegisterRequest(New("c", 0, noop))

	if !errors.Is(err, errors.ErrCodeLimitExceeded) {
		t.Errorf("expected LIMIT_EXCEEDED on overflow entry, got %v", err)
	}
}

func TestPipeline_MethodConditions(t *testing.T) {
	p := NewPipeline(Config{})

	var calls int
	mw := New("post-only", 0, func(_ context.Context, _ *Context) (*Context, error) {
		calls++
		return nil, nil
	})
	mw.Conditions = &Conditions{IncludeMethods: []string{"POST"}}
	p.RegisterRequest(mw)

	p.ExecuteRequest(context.Background(), &httpclient.Request{Method: "GET", URL: "https://x/y"})
	if calls != 0 {
		t.Error("middleware must be skipped for GET")
	}

	res := p.ExecuteRequest(context.Background(), &httpclient.Request{Method: "POST", URL: "https://x/y"})
	if calls != 1 {
		t.Error("middleware must run for POST")
	}
	if res.Steps[0].Skipped {
		t.Error("step must not be marked skipped for POST")
	}
}

func TestPipeline_URLConditions(t *testing.T) {
	p := NewPipeline(Config{})

	var calls int
	mw := New("api-only", 0, func(_ context.Context, _ *Context) (*Context, error) {
		calls++
		return nil, nil
	})
	mw.Conditions = &Conditions{
		IncludeURLs: []string{`/api/`, `/internal/`},
		ExcludeURLs: []string{`/api/health`},
	}
	p.RegisterRequest(mw)

	p.ExecuteRequest(context.Background(), &httpclient.Request{Method: "GET", URL: "https://x/api/users"})
	p.ExecuteRequest(context.Background(), &httpclient.Request{Method: "GET", URL: "https://x/api/health"})
	p.ExecuteRequest(context.Background(), &httpclient.Request{Method: "GET", URL: "https://x/static/app.js"})

	if calls != 1 {
		t.Errorf("expected only /api/users to match, got %d calls", calls)
	}
}

func TestPipeline_InvalidRegexRejectedAtRegistration(t *testing.T) {
	p := NewPipeline(Config{})

	mw := New("bad", 0, noop)
	mw.Conditions = &Conditions{IncludeURLs: []string{"["}}

	if err := p.RegisterRequest(mw); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG for bad pattern, got %v", err)
	}
}

func TestPipeline_DisabledMiddlewareSkipped(t *testing.T) {
	p := NewPipeline(Config{})

	var calls int
	mw := New("off", 0, func(_ context.Context, _ *Context) (*Context, error) {
		calls++
		return nil, nil
	})
	mw.Enabled = false
	p.RegisterRequest(mw)

	res := p.ExecuteRequest(context.Background(), getReq())

	if calls != 0 {
		t.Error("disabled middleware must not run")
	}
	if !res.Steps[0].Skipped {
		t.Error("step must be marked skipped")
	}
}

func TestPipeline_ContextMerge(t *testing.T) {
	p := NewPipeline(Config{})

	p.RegisterRequest(New("tagger", 0, func(_ context.Context, mc *Context) (*Context, error) {
		return &Context{Metadata: map[string]any{"tenant": "acme"}}, nil
	}))
	p.RegisterRequest(New("reader", 1, func(_ context.Context, mc *Context) (*Context, error) {
		if mc.Metadata["tenant"] != "acme" {
			return nil, stderrors.New("metadata not merged")
		}
		return &Context{Response: &httpclient.Response{StatusCode: 299}}, nil
	}))

	res := p.ExecuteRequest(context.Background(), getReq())

	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if res.Context.Response == nil || res.Context.Response.StatusCode != 299 {
		t.Error("returned response must be merged into the running context")
	}
	if res.Context.RequestID == "" {
		t.Error("run must carry a generated request id")
	}
}

func TestPipeline_StopOnErrorDefault(t *testing.T) {
	p := NewPipeline(Config{})

	boom := stderrors.New("boom")
	var reached bool
	p.RegisterRequest(New("fails", 0, func(_ context.Context, _ *Context) (*Context, error) {
		return nil, boom
	}))
	p.RegisterRequest(New("after", 1, func(_ context.Context, _ *Context) (*Context, error) {
		reached = true
		return nil, nil
	}))

	res := p.ExecuteRequest(context.Background(), getReq())

	if res.Success {
		t.Error("run must fail with stopOnError default")
	}
	if !errors.Is(res.Err, errors.ErrCodeMiddlewareFailed) {
		t.Errorf("expected MIDDLEWARE_FAILED, got %v", res.Err)
	}
	if !stderrors.Is(res.Err, boom) {
		t.Error("failure must wrap the handler error")
	}
	if reached {
		t.Error("later middleware must not run after a stopping failure")
	}
}

func TestPipeline_ContinueOnError(t *testing.T) {
	cont := false
	p := NewPipeline(Config{StopOnError: &cont})

	var reached bool
	p.RegisterRequest(New("fails", 0, func(_ context.Context, _ *Context) (*Context, error) {
		return nil, stderrors.New("boom")
	}))
	p.RegisterRequest(New("after", 1, func(_ context.Context, _ *Context) (*Context, error) {
		reached = true
		return nil, nil
	}))

	res := p.ExecuteRequest(context.Background(), getReq())

	if !res.Success {
		t.Errorf("non-fatal failure must still yield success, got %v", res.Err)
	}
	if !reached {
		t.Error("execution must continue past the failure")
	}
	if m := p.Metrics(KindRequest)["fails"]; m.Errors != 1 {
		t.Errorf("failure must be recorded in metrics, got %+v", m)
	}
}

func TestPipeline_MiddlewareTimeout(t *testing.T) {
	p := NewPipeline(Config{})

	mw := New("slow", 0, func(ctx context.Context, _ *Context) (*Context, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return nil, nil
		}
	})
	mw.Timeout = 10 * time.Millisecond
	p.RegisterRequest(mw)

	start := time.Now()
	res := p.ExecuteRequest(context.Background(), getReq())

	if res.Success {
		t.Error("timed-out run must fail")
	}
	if !errors.Is(res.Err, errors.ErrCodeMiddlewareTimeout) {
		t.Errorf("expected MIDDLEWARE_TIMEOUT, got %v", res.Err)
	}
	if time.Since(start) >= time.Second {
		t.Error("timer must win the race, not the handler")
	}
}

func TestPipeline_CancellationDistinctFromTimeout(t *testing.T) {
	p := NewPipeline(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	p.RegisterRequest(New("canceller", 0, func(_ context.Context, _ *Context) (*Context, error) {
		cancel()
		return nil, nil
	}))
	var reached bool
	p.RegisterRequest(New("after", 1, func(_ context.Context, _ *Context) (*Context, error) {
		reached = true
		return nil, nil
	}))

	res := p.ExecuteRequest(ctx, getReq())

	if res.Success {
		t.Error("cancelled run must fail")
	}
	if !errors.IsCancelled(res.Err) {
		t.Errorf("expected CANCELLED, got %v", res.Err)
	}
	if reached {
		t.Error("remaining middleware must be aborted after cancellation")
	}
}

func TestPipeline_PanicRecovered(t *testing.T) {
	cont := false
	p := NewPipeline(Config{StopOnError: &cont})

	p.RegisterRequest(New("panics", 0, func(_ context.Context, _ *Context) (*Context, error) {
		panic("handler bug")
	}))

	res := p.ExecuteRequest(context.Background(), getReq())

	if !res.Success {
		t.Errorf("panic must be swallowed into metrics with stopOnError off, got %v", res.Err)
	}
	if m := p.Metrics(KindRequest)["panics"]; m.Errors != 1 {
		t.Errorf("panic must count as an error, got %+v", m)
	}
}

func TestPipeline_MetricsAggregation(t *testing.T) {
	p := NewPipeline(Config{})

	p.RegisterRequest(New("m", 0, noop))
	for i := 0; i < 3; i++ {
		p.ExecuteRequest(context.Background(), getReq())
	}

	m := p.Metrics(KindRequest)["m"]
	if m.Executions != 3 {
		t.Errorf("expected 3 executions, got %d", m.Executions)
	}
	if m.SuccessRate() != 1.0 {
		t.Errorf("expected success rate 1.0, got %f", m.SuccessRate())
	}
	if m.MinTime > m.MaxTime {
		t.Errorf("min %s must not exceed max %s", m.MinTime, m.MaxTime)
	}

	p.ResetMetrics()
	if m := p.Metrics(KindRequest)["m"]; m.Executions != 0 {
		t.Error("metrics must be cleared on explicit reset")
	}
}

func TestPipeline_ErrorPhaseSeesError(t *testing.T) {
	p := NewPipeline(Config{})

	reqErr := errors.Network(stderrors.New("down"))
	var seen error
	p.RegisterError(New("observer", 0, func(_ context.Context, mc *Context) (*Context, error) {
		seen = mc.Err
		return nil, nil
	}))

	res := p.ExecuteError(context.Background(), getReq(), reqErr)

	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if seen != reqErr {
		t.Errorf("error phase must see the request error, got %v", seen)
	}
}

func TestPipeline_Unregister(t *testing.T) {
	p := NewPipeline(Config{})

	p.RegisterRequest(New("m", 0, noop))
	if !p.Unregister(KindRequest, "m") {
		t.Fatal("expected unregister to succeed")
	}
	if p.Unregister(KindRequest, "m") {
		t.Error("second unregister must report false")
	}
	if err := p.RegisterRequest(New("m", 0, noop)); err != nil {
		t.Errorf("re-registration after unregister must succeed: %v", err)
	}
}
