package breaker

import "time"

// Stats is a read-only snapshot of a breaker's derived metrics. It is
// recomputed from the window-pruned attempt history on every call and is
// never a view into live state.
type Stats struct {
	// Name is the breaker's name.
	Name string `json:"name"`
	// State is the state at snapshot time.
	State State `json:"state"`
	// TotalRequests is the number of attempts in the monitoring window.
	TotalRequests int `json:"total_requests"`
	// Successes is the number of windowed successful attempts.
	Successes int `json:"successes"`
	// Failures is the number of windowed failed attempts.
	Failures int `json:"failures"`
	// FailureRate is Failures / TotalRequests, 0 when the window is empty.
	FailureRate float64 `json:"failure_rate"`
	// Rejected is the total number of attempts rejected while open. It is
	// breaker-owned state, monotonic until Reset.
	Rejected int64 `json:"rejected"`
	// AvgResponseTime is the mean response time over the window.
	AvgResponseTime time.Duration `json:"avg_response_time"`
	// LastFailure is the time of the last qualifying failure.
	LastFailure time.Time `json:"last_failure"`
}

// Stats returns a snapshot of the breaker's current metrics.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(time.Now())
	return b.snapshot()
}

// snapshot computes a stats copy from the current history. Caller holds mu.
func (b *Breaker) snapshot() Stats {
	s := Stats{
		Name:          b.config.Name,
		State:         b.state,
		TotalRequests: len(b.attempts),
		Rejected:      b.rejected,
		LastFailure:   b.lastFailure,
	}

	var totalTime time.Duration
	for _, a := range b.attempts {
		if a.success {
			s.Successes++
		} else {
			s.Failures++
		}
		totalTime += a.responseTime
	}
	if s.TotalRequests > 0 {
		s.FailureRate = float64(s.Failures) / float64(s.TotalRequests)
		s.AvgResponseTime = totalTime / time.Duration(s.TotalRequests)
	}
	return s
}
