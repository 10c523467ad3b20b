package retry

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/kbukum/httpkit/breaker"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/logger"
)

// Scheduler executes request attempts with backoff and optional
// circuit-breaker admission control. It owns a cache of named breakers
// created lazily on first use; the cache is never shared externally.
type Scheduler struct {
	config Config
	log    *logger.Logger

	mu       sync.Mutex
	breakers map[string]*breaker.Breaker
}

// NewScheduler creates a retry scheduler from the given configuration.
func NewScheduler(config Config) *Scheduler {
	config.ApplyDefaults()
	return &Scheduler{
		config:   config,
		breakers: make(map[string]*breaker.Breaker),
		log:      logger.WithComponent("retry"),
	}
}

// Do runs fn through the retry loop. When breakerName is non-empty each
// attempt is admitted through the named circuit breaker; attempts
// rejected while the breaker is open do not invoke fn. The last
// underlying error propagates unchanged on exhaustion.
func (s *Scheduler) Do(ctx context.Context, breakerName string, fn func(ctx context.Context) (*httpclient.Response, error)) (*httpclient.Response, error) {
	var br *breaker.Breaker
	if breakerName != "" {
		br = s.breakerFor(breakerName)
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		if s.config.TotalTimeout > 0 {
			if elapsed := time.Since(start); elapsed >= s.config.TotalTimeout {
				return nil, errors.RetryTimeout(elapsed, s.config.TotalTimeout)
			}
		}

		resp, err := s.attempt(ctx, br, fn)
		if s.config.OnAttempt != nil {
			s.config.OnAttempt(attempt, err)
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == s.config.MaxAttempts || !s.shouldRetry(err) {
			return nil, lastErr
		}

		delay := delayForAttempt(&s.config, attempt)
		if s.config.TotalTimeout > 0 {
			if elapsed := time.Since(start); elapsed+delay > s.config.TotalTimeout {
				return nil, errors.RetryTimeout(elapsed, s.config.TotalTimeout)
			}
		}

		s.log.Debug("retrying", logger.Fields(
			logger.FieldAttempt, attempt,
			"delay", delay.String(),
			logger.FieldError, err.Error(),
		))

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// DoDirect runs fn through the retry loop without breaker admission.
func (s *Scheduler) DoDirect(ctx context.Context, fn func(ctx context.Context) (*httpclient.Response, error)) (*httpclient.Response, error) {
	return s.Do(ctx, "", fn)
}

// attempt performs one admission-gated invocation under the per-attempt
// timeout.
func (s *Scheduler) attempt(ctx context.Context, br *breaker.Breaker, fn func(ctx context.Context) (*httpclient.Response, error)) (*httpclient.Response, error) {
	attemptCtx := ctx
	if s.config.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, s.config.AttemptTimeout)
		defer cancel()
	}

	if br != nil {
		return br.Execute(attemptCtx, fn)
	}
	return fn(attemptCtx)
}

// shouldRetry applies the condition evaluation order from the config.
func (s *Scheduler) shouldRetry(err error) bool {
	// Breaker rejections keep the loop alive: remaining attempts are
	// rejected without invoking the executor rather than aborting early.
	if errors.IsCircuitOpen(err) {
		return true
	}

	cond := s.config.Condition
	if cond.Custom != nil {
		return cond.Custom(err)
	}

	if status := errors.HTTPStatusOf(err); status > 0 {
		for _, code := range cond.StatusCodes {
			if status == code {
				return true
			}
		}
	}

	code := errors.CodeOf(err)
	for _, c := range cond.ErrorCodes {
		if code == c {
			return true
		}
	}

	if s.config.retryNetworkErrors() && (code == errors.ErrCodeNetwork || code == errors.ErrCodeConnection) {
		return true
	}
	if s.config.retryTimeouts() && (code == errors.ErrCodeTimeout || stderrors.Is(err, context.DeadlineExceeded)) {
		return true
	}

	return false
}

// breakerFor returns the cached breaker for name, creating it on first use.
func (s *Scheduler) breakerFor(name string) *breaker.Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if br, ok := s.breakers[name]; ok {
		return br
	}

	var cfg breaker.Config
	if s.config.Breaker != nil {
		cfg = *s.config.Breaker
	} else {
		cfg = breaker.DefaultConfig(name)
	}
	cfg.Name = name

	br := breaker.New(cfg)
	s.breakers[name] = br
	return br
}

// BreakerStats returns a stats snapshot for every cached breaker.
func (s *Scheduler) BreakerStats() map[string]breaker.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]breaker.Stats, len(s.breakers))
	for name, br := range s.breakers {
		out[name] = br.Stats()
	}
	return out
}

// ResetBreakers forces every cached breaker closed with cleared history.
func (s *Scheduler) ResetBreakers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, br := range s.breakers {
		br.Reset()
	}
}

// RemoveBreaker drops the named breaker from the cache. Returns true if
// it existed.
func (s *Scheduler) RemoveBreaker(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.breakers[name]; !ok {
		return false
	}
	delete(s.breakers, name)
	return true
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
