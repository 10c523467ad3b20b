package retry

import (
	"time"

	"github.com/kbukum/httpkit/breaker"
	"github.com/kbukum/httpkit/errors"
)

// Strategy selects how the base delay grows across attempts.
type Strategy string

const (
	// StrategyExponential doubles the delay each attempt.
	StrategyExponential Strategy = "exponential"
	// StrategyLinear grows the delay linearly with the attempt number.
	StrategyLinear Strategy = "linear"
	// StrategyFibonacci grows the delay along the Fibonacci sequence.
	StrategyFibonacci Strategy = "fibonacci"
	// StrategyConstant keeps the delay at InitialDelay.
	StrategyConstant Strategy = "constant"
)

// JitterType selects the jitter formula applied to a computed delay.
type JitterType string

const (
	// JitterFull subtracts a random share of the delay, keeping it within
	// [delay*(1-MaxJitter), delay].
	JitterFull JitterType = "full"
	// JitterEqual adds a random share of the delay on top.
	JitterEqual JitterType = "equal"
	// JitterDecorrelated spreads the delay up to min(delay*3, delay*(MaxJitter+1)).
	JitterDecorrelated JitterType = "decorrelated"
)

// JitterConfig configures randomized delay perturbation.
type JitterConfig struct {
	// Enabled turns jitter on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Type selects the jitter formula. Defaults to full.
	Type JitterType `yaml:"type" mapstructure:"type"`
	// MaxJitter is the jitter fraction in [0, 1]. Defaults to 0.1.
	MaxJitter float64 `yaml:"max_jitter" mapstructure:"max_jitter"`
}

// Condition decides whether a failed attempt is retried. Evaluation
// order: Custom wins outright when set; otherwise the HTTP status set,
// then the error-code set, then generic network and timeout detection.
type Condition struct {
	// StatusCodes is the set of retryable HTTP status codes.
	StatusCodes []int `yaml:"status_codes" mapstructure:"status_codes"`
	// ErrorCodes is the set of retryable machine-readable error codes.
	ErrorCodes []errors.ErrorCode `yaml:"error_codes" mapstructure:"error_codes"`
	// Custom, when set, fully replaces the built-in classification.
	Custom func(error) bool `yaml:"-" mapstructure:"-"`
}

// Config configures a retry scheduler.
type Config struct {
	// MaxAttempts bounds the attempt loop, including the first attempt.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// InitialDelay seeds the backoff computation.
	InitialDelay time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	// MaxDelay clamps the computed base delay before jitter.
	MaxDelay time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	// Strategy selects the backoff growth curve.
	Strategy Strategy `yaml:"strategy" mapstructure:"strategy"`
	// Jitter configures randomized delay perturbation.
	Jitter JitterConfig `yaml:"jitter" mapstructure:"jitter"`
	// Condition decides which failures are retried.
	Condition Condition `yaml:"-" mapstructure:"-"`
	// AttemptTimeout bounds each individual attempt. Zero disables it.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" mapstructure:"attempt_timeout"`
	// TotalTimeout bounds the whole retry loop including delays. Zero
	// disables it.
	TotalTimeout time.Duration `yaml:"total_timeout" mapstructure:"total_timeout"`
	// RetryNetworkErrors enables generic network-error retries. Defaults on.
	RetryNetworkErrors *bool `yaml:"retry_network_errors" mapstructure:"retry_network_errors"`
	// RetryTimeouts enables generic timeout retries. Defaults on.
	RetryTimeouts *bool `yaml:"retry_timeouts" mapstructure:"retry_timeouts"`
	// Breaker is the template for lazily created named breakers. Nil uses
	// breaker.DefaultConfig per name.
	Breaker *breaker.Config `yaml:"-" mapstructure:"-"`
	// OnAttempt, when set, observes every completed attempt with its
	// outcome error (nil on success).
	OnAttempt func(attempt int, err error) `yaml:"-" mapstructure:"-"`
}

// DefaultStatusCodes is the default retryable HTTP status set.
var DefaultStatusCodes = []int{408, 429, 500, 502, 503, 504}

// DefaultErrorCodes is the default retryable error-code set.
var DefaultErrorCodes = []errors.ErrorCode{
	errors.ErrCodeTimeout,
	errors.ErrCodeNetwork,
	errors.ErrCodeConnection,
}

// DefaultConfig returns sensible retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Strategy:     StrategyExponential,
		Jitter:       JitterConfig{Enabled: true, Type: JitterFull, MaxJitter: 0.1},
		Condition: Condition{
			StatusCodes: DefaultStatusCodes,
			ErrorCodes:  DefaultErrorCodes,
		},
	}
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Strategy == "" {
		c.Strategy = StrategyExponential
	}
	if c.Jitter.Type == "" {
		c.Jitter.Type = JitterFull
	}
	if c.Jitter.MaxJitter <= 0 {
		c.Jitter.MaxJitter = 0.1
	}
	if c.Jitter.MaxJitter > 1 {
		c.Jitter.MaxJitter = 1
	}
	if c.Condition.StatusCodes == nil {
		c.Condition.StatusCodes = DefaultStatusCodes
	}
	if c.Condition.ErrorCodes == nil {
		c.Condition.ErrorCodes = DefaultErrorCodes
	}
}

func (c *Config) retryNetworkErrors() bool {
	return c.RetryNetworkErrors == nil || *c.RetryNetworkErrors
}

func (c *Config) retryTimeouts() bool {
	return c.RetryTimeouts == nil || *c.RetryTimeouts
}
