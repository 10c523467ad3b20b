package breaker

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/events"
	"github.com/kbukum/httpkit/httpclient"
)

var validate = validator.New()

// Config configures a circuit breaker. Thresholds are immutable after
// the breaker is constructed.
type Config struct {
	// Name identifies this breaker in errors, logs, and events.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`

	// FailureThreshold is the failure-rate fraction (0, 1] that opens the
	// breaker once MinimumRequests attempts exist in the window.
	FailureThreshold float64 `yaml:"failure_threshold" mapstructure:"failure_threshold" validate:"gt=0,lte=1"`

	// SuccessThreshold is the number of consecutive half-open successes
	// required to close the breaker again.
	SuccessThreshold int `yaml:"success_threshold" mapstructure:"success_threshold" validate:"gte=1"`

	// Timeout is how long the breaker stays open before the next admission
	// moves it to half-open.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// MonitoringWindow bounds the attempt history used for the failure rate.
	MonitoringWindow time.Duration `yaml:"monitoring_window" mapstructure:"monitoring_window" validate:"gt=0"`

	// MinimumRequests is the minimum number of windowed attempts before the
	// failure rate is considered meaningful.
	MinimumRequests int `yaml:"minimum_requests" mapstructure:"minimum_requests" validate:"gte=1"`

	// IsFailure classifies an error as breaker-relevant. Nil means every
	// error counts as a failure.
	IsFailure func(error) bool `yaml:"-" mapstructure:"-"`

	// IsSuccess classifies a non-error response as a logical success. Nil
	// means any non-error attempt counts as a success.
	IsSuccess func(*httpclient.Response) bool `yaml:"-" mapstructure:"-"`

	// Bus, when set, receives a state-changed event on every transition.
	Bus *events.Bus `yaml:"-" mapstructure:"-"`
}

// DefaultConfig returns sensible defaults for the named breaker.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 0.5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		MonitoringWindow: 60 * time.Second,
		MinimumRequests:  5,
	}
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 0.5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MonitoringWindow <= 0 {
		c.MonitoringWindow = 60 * time.Second
	}
	if c.MinimumRequests <= 0 {
		c.MinimumRequests = 5
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.InvalidConfig("breaker", err.Error()).WithCause(err)
	}
	return nil
}
