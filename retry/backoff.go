package retry

import (
	"math"
	"math/rand"
	"time"
)

// baseDelay computes the un-jittered delay for a 1-based attempt number,
// clamped to MaxDelay.
func baseDelay(cfg *Config, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var delay time.Duration
	switch cfg.Strategy {
	case StrategyLinear:
		delay = cfg.InitialDelay * time.Duration(attempt)
	case StrategyFibonacci:
		delay = time.Duration(float64(cfg.InitialDelay) * float64(fib(attempt)))
	case StrategyConstant:
		delay = cfg.InitialDelay
	default: // exponential
		// Cap the exponent so the float math cannot overflow.
		exp := attempt - 1
		if exp > 62 {
			exp = 62
		}
		delay = time.Duration(float64(cfg.InitialDelay) * math.Pow(2, float64(exp)))
	}

	if delay < 0 || delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}

// applyJitter perturbs a clamped delay with the configured formula. The
// formulas are pinned as-is; their bounds are a preserved design choice,
// not a reference algorithm.
func applyJitter(cfg *Config, delay time.Duration) time.Duration {
	if !cfg.Jitter.Enabled || delay <= 0 {
		return delay
	}

	d := float64(delay)
	u := rand.Float64()

	var out float64
	switch cfg.Jitter.Type {
	case JitterEqual:
		out = d + u*d*cfg.Jitter.MaxJitter
	case JitterDecorrelated:
		out = math.Min(d*3, u*d*(cfg.Jitter.MaxJitter+1))
	default: // full
		out = d * (1 - cfg.Jitter.MaxJitter*u)
	}

	if out < 0 {
		out = 0
	}
	return time.Duration(out)
}

// delayForAttempt computes the final inter-attempt delay.
func delayForAttempt(cfg *Config, attempt int) time.Duration {
	return applyJitter(cfg, baseDelay(cfg, attempt))
}

// fib returns the n-th Fibonacci number with fib(0) = fib(1) = 1.
func fib(n int) uint64 {
	if n > 90 {
		n = 90
	}
	a, b := uint64(1), uint64(1)
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}
