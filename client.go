package httpkit

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/httpkit/breaker"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/events"
	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/middleware"
	"github.com/kbukum/httpkit/observability"
	"github.com/kbukum/httpkit/plugin"
	"github.com/kbukum/httpkit/retry"
	"github.com/kbukum/httpkit/version"
)

const defaultTransportTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is prefixed to relative request URLs.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout bounds the default transport. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Headers are default headers applied when the request doesn't set them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// Breaker names the circuit breaker gating attempts. Empty disables
	// breaker admission.
	Breaker string `yaml:"breaker" mapstructure:"breaker"`
	// Retry configures the retry scheduler. Nil uses retry.DefaultConfig.
	Retry *retry.Config `yaml:"retry" mapstructure:"retry"`
	// Pipeline configures the middleware pipeline.
	Pipeline middleware.Config `yaml:"pipeline" mapstructure:"pipeline"`
	// Registry configures the plugin registry.
	Registry plugin.RegistryConfig `yaml:"registry" mapstructure:"registry"`

	// Executor overrides the default net/http transport.
	Executor httpclient.Executor `yaml:"-" mapstructure:"-"`
	// Recorder, when set, receives request, pipeline, and control-plane
	// metrics.
	Recorder *observability.Recorder `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTransportTimeout
	}
}

// Client is the httpkit facade. Every request flows through the request
// middleware phase, the retry scheduler (optionally gated by a named
// circuit breaker), and the response or error middleware phase.
type Client struct {
	config   Config
	executor httpclient.Executor
	retry    *retry.Scheduler
	pipeline *middleware.Pipeline
	plugins  *plugin.Registry
	bus      *events.Bus
	recorder *observability.Recorder
	log      *logger.Logger
}

// New creates a client from the given configuration.
func New(config Config) (*Client, error) {
	config.ApplyDefaults()

	bus := events.NewBus()
	pipeline := middleware.NewPipeline(config.Pipeline)
	registry := plugin.NewRegistry(config.Registry, pipeline, bus)

	var rcfg retry.Config
	if config.Retry != nil {
		rcfg = *config.Retry
	} else {
		rcfg = retry.DefaultConfig()
	}
	// Breakers created by the scheduler report transitions on the
	// client's bus.
	if rcfg.Breaker == nil {
		template := breaker.DefaultConfig("client")
		rcfg.Breaker = &template
	}
	if rcfg.Breaker.Bus == nil {
		rcfg.Breaker.Bus = bus
	}
	if err := validateBreakerTemplate(rcfg.Breaker); err != nil {
		return nil, err
	}
	if config.Recorder != nil && rcfg.OnAttempt == nil {
		rec := config.Recorder
		rcfg.OnAttempt = func(_ int, err error) {
			outcome := "success"
			switch {
			case err == nil:
			case errors.IsCircuitOpen(err):
				outcome = "rejected"
			default:
				outcome = "failure"
			}
			rec.RecordRetryAttempt(context.Background(), outcome)
		}
	}

	executor := config.Executor
	if executor == nil {
		executor = newHTTPExecutor(config.Timeout)
	}

	c := &Client{
		config:   config,
		executor: executor,
		retry:    retry.NewScheduler(rcfg),
		pipeline: pipeline,
		plugins:  registry,
		bus:      bus,
		recorder: config.Recorder,
		log:      logger.WithComponent("client"),
	}
	if c.recorder != nil {
		c.recorder.Observe(bus)
	}
	return c, nil
}

func validateBreakerTemplate(cfg *breaker.Config) error {
	checked := *cfg
	checked.ApplyDefaults()
	if checked.Name == "" {
		checked.Name = "client"
	}
	return checked.Validate()
}

// Do executes a request through the full control plane.
func (c *Client) Do(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	start := time.Now()
	req = c.prepare(req)

	ctx, span := observability.StartSpan(ctx, observability.SpanRequest)
	defer span.End()

	reqResult := c.pipeline.ExecuteRequest(ctx, req)
	c.recordPipeline(ctx, middleware.KindRequest, reqResult.Success)
	if !reqResult.Success {
		return nil, reqResult.Err
	}
	if reqResult.Context.Request != nil {
		req = reqResult.Context.Request
	}

	resp, err := c.retry.Do(ctx, c.config.Breaker, func(ctx context.Context) (*httpclient.Response, error) {
		return c.executor(ctx, req)
	})

	if err != nil {
		errResult := c.pipeline.ExecuteError(ctx, req, err)
		c.recordPipeline(ctx, middleware.KindError, errResult.Success)
		// Error middleware may replace the failure with a richer one.
		if errResult.Context != nil && errResult.Context.Err != nil {
			err = errResult.Context.Err
		}
		observability.SetSpanError(ctx, err)
		c.recordRequest(ctx, req.Method, errors.HTTPStatusOf(err), time.Since(start))
		c.log.Warn("request failed", logger.Fields(
			"method", req.Method,
			"url", req.URL,
			logger.FieldError, err.Error(),
		))
		return nil, err
	}

	respResult := c.pipeline.ExecuteResponse(ctx, req, resp)
	c.recordPipeline(ctx, middleware.KindResponse, respResult.Success)
	if respResult.Context != nil && respResult.Context.Response != nil {
		resp = respResult.Context.Response
	}
	c.recordRequest(ctx, req.Method, resp.StatusCode, time.Since(start))

	if !respResult.Success {
		return resp, respResult.Err
	}
	return resp, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string) (*httpclient.Response, error) {
	return c.Do(ctx, &httpclient.Request{Method: "GET", URL: url})
}

// Post issues a POST request with the given body.
func (c *Client) Post(ctx context.Context, url string, body any) (*httpclient.Response, error) {
	return c.Do(ctx, &httpclient.Request{Method: "POST", URL: url, Body: body})
}

// Put issues a PUT request with the given body.
func (c *Client) Put(ctx context.Context, url string, body any) (*httpclient.Response, error) {
	return c.Do(ctx, &httpclient.Request{Method: "PUT", URL: url, Body: body})
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, url string) (*httpclient.Response, error) {
	return c.Do(ctx, &httpclient.Request{Method: "DELETE", URL: url})
}

// Use registers a middleware into the given pipeline phase.
func (c *Client) Use(kind middleware.Kind, mw middleware.Middleware) error {
	return c.pipeline.Register(kind, mw)
}

// Pipeline returns the client's middleware pipeline.
func (c *Client) Pipeline() *middleware.Pipeline { return c.pipeline }

// Plugins returns the client's plugin registry.
func (c *Client) Plugins() *plugin.Registry { return c.plugins }

// Bus returns the client's event bus.
func (c *Client) Bus() *events.Bus { return c.bus }

// BreakerStats returns a snapshot of every breaker the scheduler created.
func (c *Client) BreakerStats() map[string]breaker.Stats {
	return c.retry.BreakerStats()
}

// prepare clones the request and applies base URL and default headers.
func (c *Client) prepare(req *httpclient.Request) *httpclient.Request {
	out := req.Clone()
	if out.Headers == nil {
		out.Headers = make(map[string]string)
	}

	for k, v := range c.config.Headers {
		if _, ok := out.Headers[k]; !ok {
			out.Headers[k] = v
		}
	}
	if _, ok := out.Headers["User-Agent"]; !ok {
		out.Headers["User-Agent"] = version.UserAgent()
	}

	if c.config.BaseURL != "" && !strings.HasPrefix(out.URL, "http://") && !strings.HasPrefix(out.URL, "https://") {
		out.URL = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(out.URL, "/")
	}
	return out
}

func (c *Client) recordPipeline(ctx context.Context, kind middleware.Kind, success bool) {
	if c.recorder != nil {
		c.recorder.RecordPipelineRun(ctx, string(kind), success)
	}
}

func (c *Client) recordRequest(ctx context.Context, method string, status int, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordRequest(ctx, method, status, d)
	}
}
