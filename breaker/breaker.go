package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/events"
	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/logger"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen rejects all requests.
	StateOpen
	// StateHalfOpen allows probe requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// StateChangeListener is notified synchronously on an actual state
// transition. Listeners must not call back into the breaker.
type StateChangeListener func(state State, stats Stats)

// attempt is one completed request outcome in the monitoring window.
type attempt struct {
	at           time.Time
	success      bool
	responseTime time.Duration
}

// Breaker is a sliding-window circuit breaker. It exclusively owns its
// attempt history; all derived statistics are computed by copying.
type Breaker struct {
	config Config
	log    *logger.Logger

	mu                sync.Mutex
	state             State
	attempts          []attempt
	rejected          int64
	halfOpenSuccesses int
	lastFailure       time.Time
	listeners         []StateChangeListener
}

// New creates a circuit breaker from the given configuration.
func New(config Config) *Breaker {
	config.ApplyDefaults()
	return &Breaker{
		config: config,
		state:  StateClosed,
		log:    logger.WithComponent("breaker"),
	}
}

// Execute runs fn through the breaker. If the breaker is open and the
// reset timeout has not elapsed, it fails immediately with a CIRCUIT_OPEN
// error carrying the breaker's name and fn is never invoked. Otherwise fn
// runs exactly once and its outcome updates the window and state.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) (*httpclient.Response, error)) (*httpclient.Response, error) {
	if err := b.admit(); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := fn(ctx)
	b.record(resp, err, time.Since(start))
	return resp, err
}

// State returns the current state without triggering transitions.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the breaker's name.
func (b *Breaker) Name() string { return b.config.Name }

// OnStateChange registers a listener invoked on every actual transition.
func (b *Breaker) OnStateChange(fn StateChangeListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Reset forces the breaker closed and clears history and counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = nil
	b.rejected = 0
	b.halfOpenSuccesses = 0
	b.lastFailure = time.Time{}
	b.transition(StateClosed)
}

// ForceOpen moves the breaker to open regardless of the window. The open
// timeout is measured from now.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = time.Now()
	b.transition(StateOpen)
}

// ForceClosed moves the breaker to closed without clearing history.
func (b *Breaker) ForceClosed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
}

// admit decides whether an attempt may proceed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}
	if time.Since(b.lastFailure) < b.config.Timeout {
		b.rejected++
		return errors.CircuitOpen(b.config.Name)
	}
	b.transition(StateHalfOpen)
	return nil
}

// record classifies and stores one completed attempt and applies the
// state transition rules.
func (b *Breaker) record(resp *httpclient.Response, err error, responseTime time.Duration) {
	failed := b.classifyFailure(resp, err)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.prune(now)
	b.attempts = append(b.attempts, attempt{at: now, success: !failed, responseTime: responseTime})

	if failed {
		b.lastFailure = now
		b.halfOpenSuccesses = 0
		switch b.state {
		case StateHalfOpen:
			b.transition(StateOpen)
		case StateClosed:
			if len(b.attempts) >= b.config.MinimumRequests && b.failureRate() >= b.config.FailureThreshold {
				b.transition(StateOpen)
			}
		}
		return
	}

	if b.state == StateHalfOpen {
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.config.SuccessThreshold {
			b.halfOpenSuccesses = 0
			b.transition(StateClosed)
		}
	}
}

// classifyFailure applies the configured predicates. Default: any error
// is a failure, any non-error attempt is a success.
func (b *Breaker) classifyFailure(resp *httpclient.Response, err error) bool {
	if err != nil {
		if b.config.IsFailure != nil {
			return b.config.IsFailure(err)
		}
		return true
	}
	if b.config.IsSuccess != nil {
		return !b.config.IsSuccess(resp)
	}
	return false
}

// prune drops attempts older than the monitoring window. Caller holds mu.
func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.config.MonitoringWindow)
	i := 0
	for i < len(b.attempts) && b.attempts[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.attempts = append(b.attempts[:0:0], b.attempts[i:]...)
	}
}

// failureRate computes the windowed failure fraction. Caller holds mu.
func (b *Breaker) failureRate() float64 {
	if len(b.attempts) == 0 {
		return 0
	}
	failures := 0
	for _, a := range b.attempts {
		if !a.success {
			failures++
		}
	}
	return float64(failures) / float64(len(b.attempts))
}

// transition moves to a new state and notifies listeners. No-op when the
// state is unchanged. Caller holds mu.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}

	from := b.state
	b.state = to

	b.log.Info("state changed", logger.Fields(
		logger.FieldBreaker, b.config.Name,
		"from", from.String(),
		logger.FieldState, to.String(),
	))

	stats := b.snapshot()
	for _, fn := range b.listeners {
		b.notify(fn, to, stats)
	}
	if b.config.Bus != nil {
		b.config.Bus.Emit(events.KindStateChanged, b.config.Name, stats)
	}
}

// notify invokes one listener, recovering a panic so the remaining
// listeners and the transition itself are unaffected.
func (b *Breaker) notify(fn StateChangeListener, state State, stats Stats) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("state listener panicked", logger.Fields(
				logger.FieldBreaker, b.config.Name,
				"panic", r,
			))
		}
	}()
	fn(state, stats)
}
