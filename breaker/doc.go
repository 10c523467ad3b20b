// Package breaker implements a sliding-window circuit breaker for named
// resources.
//
// Unlike a consecutive-failure counter, the breaker tracks every completed
// attempt in a time-bounded window and opens when the failure rate over
// that window crosses a configured threshold. The three states:
//
//   - Closed: normal operation, attempts pass through
//   - Open: attempts are rejected immediately with a CIRCUIT_OPEN error
//   - HalfOpen: a limited probe phase after the open timeout elapses
//
// The open-to-half-open transition is checked lazily on the next
// admission, not by a background timer.
package breaker
