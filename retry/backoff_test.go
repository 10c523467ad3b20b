package retry

import (
	"testing"
	"time"
)

func strategyConfig(s Strategy) *Config {
	cfg := DefaultConfig()
	cfg.Strategy = s
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = 30 * time.Second
	cfg.Jitter.Enabled = false
	return &cfg
}

func TestBaseDelay_Exponential(t *testing.T) {
	cfg := strategyConfig(StrategyExponential)

	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond, // clamped from 32s
	}
	for i, w := range want {
		if got := delayForAttempt(cfg, i+1); got != w {
			t.Errorf("attempt %d: expected %s, got %s", i+1, w, got)
		}
	}
}

func TestBaseDelay_Linear(t *testing.T) {
	cfg := strategyConfig(StrategyLinear)

	for attempt := 1; attempt <= 5; attempt++ {
		want := time.Duration(attempt) * time.Second
		if got := delayForAttempt(cfg, attempt); got != want {
			t.Errorf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}

func TestBaseDelay_Fibonacci(t *testing.T) {
	cfg := strategyConfig(StrategyFibonacci)

	want := []time.Duration{
		1 * time.Second, // fib(1)=1
		2 * time.Second, // fib(2)=2
		3 * time.Second, // fib(3)=3
		5 * time.Second, // fib(4)=5
		8 * time.Second, // fib(5)=8
	}
	for i, w := range want {
		if got := delayForAttempt(cfg, i+1); got != w {
			t.Errorf("attempt %d: expected %s, got %s", i+1, w, got)
		}
	}
}

func TestBaseDelay_Constant(t *testing.T) {
	cfg := strategyConfig(StrategyConstant)

	for attempt := 1; attempt <= 5; attempt++ {
		if got := delayForAttempt(cfg, attempt); got != time.Second {
			t.Errorf("attempt %d: expected 1s, got %s", attempt, got)
		}
	}
}

func TestBaseDelay_ClampsToMax(t *testing.T) {
	cfg := strategyConfig(StrategyExponential)
	cfg.MaxDelay = 5 * time.Second

	if got := delayForAttempt(cfg, 20); got != 5*time.Second {
		t.Errorf("expected clamp to 5s, got %s", got)
	}
}

func TestApplyJitter_FullStaysInBounds(t *testing.T) {
	cfg := strategyConfig(StrategyConstant)
	cfg.Jitter = JitterConfig{Enabled: true, Type: JitterFull, MaxJitter: 0.5}

	for i := 0; i < 200; i++ {
		got := delayForAttempt(cfg, 1)
		if got < 500*time.Millisecond || got > time.Second {
			t.Fatalf("full jitter out of [0.5s, 1s]: %s", got)
		}
	}
}

func TestApplyJitter_EqualStaysInBounds(t *testing.T) {
	cfg := strategyConfig(StrategyConstant)
	cfg.Jitter = JitterConfig{Enabled: true, Type: JitterEqual, MaxJitter: 0.5}

	for i := 0; i < 200; i++ {
		got := delayForAttempt(cfg, 1)
		if got < time.Second || got > 1500*time.Millisecond {
			t.Fatalf("equal jitter out of [1s, 1.5s]: %s", got)
		}
	}
}

func TestApplyJitter_DecorrelatedStaysInBounds(t *testing.T) {
	cfg := strategyConfig(StrategyConstant)
	cfg.Jitter = JitterConfig{Enabled: true, Type: JitterDecorrelated, MaxJitter: 0.5}

	for i := 0; i < 200; i++ {
		got := delayForAttempt(cfg, 1)
		// min(delay*3, U*delay*1.5) with U in [0,1) stays below 1.5s.
		if got < 0 || got >= 1500*time.Millisecond {
			t.Fatalf("decorrelated jitter out of [0, 1.5s): %s", got)
		}
	}
}

func TestFib(t *testing.T) {
	want := map[int]uint64{0: 1, 1: 1, 2: 2, 3: 3, 4: 5, 5: 8, 6: 13}
	for n, w := range want {
		if got := fib(n); got != w {
			t.Errorf("fib(%d) = %d, want %d", n, got, w)
		}
	}
}
