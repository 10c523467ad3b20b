// Package retry implements the attempt scheduler of the httpkit control
// plane: a bounded retry loop with selectable backoff strategies, jitter,
// and optional circuit-breaker admission control.
//
// A Scheduler wraps a request executor. Each attempt may be gated by a
// named circuit breaker; breakers are created lazily per name and cached
// for the scheduler's lifetime. Delays honor both the per-attempt budget
// and the total time budget, and sleeps are context-aware.
package retry
