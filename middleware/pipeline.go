package middleware

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/logger"
)

const (
	defaultMaxMiddleware = 100
	defaultTimeout       = 10 * time.Second
)

// Config configures a middleware pipeline.
type Config struct {
	// MaxMiddleware caps each phase list. Defaults to 100.
	MaxMiddleware int `yaml:"max_middleware" mapstructure:"max_middleware"`
	// DefaultTimeout bounds each middleware execution unless the entry
	// overrides it. Defaults to 10s.
	DefaultTimeout time.Duration `yaml:"default_timeout" mapstructure:"default_timeout"`
	// StopOnError aborts the run on the first middleware failure.
	// Defaults to true.
	StopOnError *bool `yaml:"stop_on_error" mapstructure:"stop_on_error"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxMiddleware <= 0 {
		c.MaxMiddleware = defaultMaxMiddleware
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = defaultTimeout
	}
}

func (c *Config) stopOnError() bool {
	return c.StopOnError == nil || *c.StopOnError
}

// Pipeline is an ordered filter-and-execute engine over three phase
// lists. Registration happens at setup time; runs are read-mostly, so a
// read-write lock guards the lists and metrics.
type Pipeline struct {
	config Config
	log    *logger.Logger

	mu      sync.RWMutex
	phases  map[Kind][]*entry
	metrics map[Kind]map[string]*Metrics
	seq     int
}

// NewPipeline creates a pipeline from the given configuration.
func NewPipeline(config Config) *Pipeline {
	config.ApplyDefaults()
	return &Pipeline{
		config: config,
		phases: map[Kind][]*entry{
			KindRequest:  nil,
			KindResponse: nil,
			KindError:    nil,
		},
		metrics: map[Kind]map[string]*Metrics{
			KindRequest:  make(map[string]*Metrics),
			KindResponse: make(map[string]*Metrics),
			KindError:    make(map[string]*Metrics),
		},
		log: logger.WithComponent("middleware"),
	}
}

// Register adds a middleware to the given phase list. It fails when the
// name already exists in that phase, the phase is full, or a URL pattern
// does not compile. The list is re-sorted by priority on every
// registration, stable for equal priorities.
func (p *Pipeline) Register(kind Kind, mw Middleware) error {
	if mw.Name == "" {
		return errors.InvalidConfig("middleware", "name is required")
	}
	if mw.Handler == nil {
		return errors.InvalidConfig("middleware", fmt.Sprintf("middleware %q has no handler", mw.Name))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	list, ok := p.phases[kind]
	if !ok {
		return errors.InvalidConfig("middleware", fmt.Sprintf("unknown phase %q", kind))
	}
	for _, e := range list {
		if e.mw.Name == mw.Name {
			return errors.AlreadyExists("middleware", mw.Name)
		}
	}
	if len(list) >= p.config.MaxMiddleware {
		return errors.LimitExceeded("middleware", p.config.MaxMiddleware)
	}

	e := &entry{mw: mw, seq: p.seq}
	if err := e.compile(); err != nil {
		return err
	}
	p.seq++

	list = append(list, e)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].mw.Priority != list[j].mw.Priority {
			return list[i].mw.Priority < list[j].mw.Priority
		}
		return list[i].seq < list[j].seq
	})
	p.phases[kind] = list

	if _, ok := p.metrics[kind][mw.Name]; !ok {
		p.metrics[kind][mw.Name] = &Metrics{}
	}
	return nil
}

// RegisterRequest adds a request-phase middleware.
func (p *Pipeline) RegisterRequest(mw Middleware) error { return p.Register(KindRequest, mw) }

// RegisterResponse adds a response-phase middleware.
func (p *Pipeline) RegisterResponse(mw Middleware) error { return p.Register(KindResponse, mw) }

// RegisterError adds an error-phase middleware.
func (p *Pipeline) RegisterError(mw Middleware) error { return p.Register(KindError, mw) }

// Unregister removes a named middleware from a phase list. Returns true
// if it existed. Its accumulated metrics are kept until ResetMetrics.
func (p *Pipeline) Unregister(kind Kind, name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := p.phases[kind]
	for i, e := range list {
		if e.mw.Name == name {
			p.phases[kind] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered middleware in a phase.
func (p *Pipeline) Len(kind Kind) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.phases[kind])
}

// ExecuteRequest runs the request phase over a fresh context.
func (p *Pipeline) ExecuteRequest(ctx context.Context, req *httpclient.Request) *Result {
	mc := newContext(req)
	return p.run(ctx, KindRequest, mc)
}

// ExecuteResponse runs the response phase over a fresh context carrying
// the response.
func (p *Pipeline) ExecuteResponse(ctx context.Context, req *httpclient.Request, resp *httpclient.Response) *Result {
	mc := newContext(req)
	mc.Response = resp
	return p.run(ctx, KindResponse, mc)
}

// ExecuteError runs the error phase over a fresh context carrying the
// failure.
func (p *Pipeline) ExecuteError(ctx context.Context, req *httpclient.Request, reqErr error) *Result {
	mc := newContext(req)
	mc.Err = reqErr
	return p.run(ctx, KindError, mc)
}

// Metrics returns a snapshot of the cumulative metrics for a phase,
// keyed by middleware name.
func (p *Pipeline) Metrics(kind Kind) map[string]Metrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]Metrics, len(p.metrics[kind]))
	for name, m := range p.metrics[kind] {
		out[name] = *m
	}
	return out
}

// ResetMetrics clears all cumulative metrics.
func (p *Pipeline) ResetMetrics() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for kind := range p.metrics {
		p.metrics[kind] = make(map[string]*Metrics)
	}
	// Re-seed entries that are still registered.
	for kind, list := range p.phases {
		for _, e := range list {
			p.metrics[kind][e.mw.Name] = &Metrics{}
		}
	}
}

// run executes one phase over the given context.
func (p *Pipeline) run(ctx context.Context, kind Kind, mc *Context) *Result {
	p.mu.RLock()
	list := append([]*entry(nil), p.phases[kind]...)
	p.mu.RUnlock()

	result := &Result{Success: true, Context: mc}

	for _, e := range list {
		if !e.mw.Enabled || !e.matches(mc) {
			result.Steps = append(result.Steps, StepStat{Name: e.mw.Name, Skipped: true})
			continue
		}

		d, err := p.execute(ctx, e, mc)
		p.recordMetrics(kind, e.mw.Name, d, err != nil)
		result.Steps = append(result.Steps, StepStat{Name: e.mw.Name, Duration: d, Err: err})

		if err != nil {
			// Timeouts abort the run regardless of StopOnError; plain
			// handler failures abort only when configured to stop.
			if errors.Is(err, errors.ErrCodeMiddlewareTimeout) {
				result.Success = false
				result.Err = err
				return result
			}
			if p.config.stopOnError() {
				result.Success = false
				result.Err = errors.MiddlewareFailed(e.mw.Name, err)
				return result
			}
			p.log.Warn("middleware failed, continuing", logger.Fields(
				logger.FieldMiddleware, e.mw.Name,
				logger.FieldPhase, string(kind),
				logger.FieldError, err.Error(),
			))
		}

		// Cooperative cancellation: checked after each middleware.
		if ctx.Err() != nil {
			result.Success = false
			result.Err = errors.Cancelled(string(kind)).WithCause(ctx.Err())
			return result
		}
	}

	return result
}

// execute runs one entry under its timeout as a race between the handler
// and a timer. The loser is abandoned, not forcibly terminated.
func (p *Pipeline) execute(ctx context.Context, e *entry, mc *Context) (time.Duration, error) {
	timeout := e.mw.Timeout
	if timeout <= 0 {
		timeout = p.config.DefaultTimeout
	}

	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		ret *Context
		err error
	}
	ch := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("middleware %q panicked: %v", e.mw.Name, r)}
			}
		}()
		ret, err := e.mw.Handler(hctx, mc)
		ch <- outcome{ret: ret, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		d := time.Since(start)
		if out.err != nil {
			return d, out.err
		}
		mc.merge(out.ret)
		return d, nil
	case <-timer.C:
		return time.Since(start), errors.MiddlewareTimeout(e.mw.Name, timeout)
	}
}

func (p *Pipeline) recordMetrics(kind Kind, name string, d time.Duration, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.metrics[kind][name]
	if !ok {
		m = &Metrics{}
		p.metrics[kind][name] = m
	}
	m.record(d, failed)
}
