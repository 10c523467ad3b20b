package middleware

import "time"

// Metrics is the cumulative execution record for one registered
// middleware. It is append-only; Reset is the only way to clear it.
type Metrics struct {
	// Executions is how many times the middleware ran.
	Executions int64 `json:"executions"`
	// Errors is how many executions failed or timed out.
	Errors int64 `json:"errors"`
	// TotalTime is the summed execution time.
	TotalTime time.Duration `json:"total_time"`
	// MinTime is the fastest execution.
	MinTime time.Duration `json:"min_time"`
	// MaxTime is the slowest execution.
	MaxTime time.Duration `json:"max_time"`
}

// AvgTime returns the mean execution time.
func (m *Metrics) AvgTime() time.Duration {
	if m.Executions == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.Executions)
}

// SuccessRate returns the fraction of executions that succeeded.
func (m *Metrics) SuccessRate() float64 {
	if m.Executions == 0 {
		return 0
	}
	return float64(m.Executions-m.Errors) / float64(m.Executions)
}

// record folds one execution into the metrics.
func (m *Metrics) record(d time.Duration, failed bool) {
	m.Executions++
	m.TotalTime += d
	if m.Executions == 1 || d < m.MinTime {
		m.MinTime = d
	}
	if d > m.MaxTime {
		m.MaxTime = d
	}
	if failed {
		m.Errors++
	}
}

// StepStat describes one middleware's outcome within a single run.
type StepStat struct {
	// Name is the middleware name.
	Name string `json:"name"`
	// Duration is how long the middleware ran.
	Duration time.Duration `json:"duration"`
	// Skipped is true when the entry was disabled or filtered out.
	Skipped bool `json:"skipped"`
	// Err is the middleware's failure, nil on success.
	Err error `json:"-"`
}

// Result is the outcome of one pipeline run. A run never panics across
// this boundary; failures are reported through Success and Err.
type Result struct {
	// Success is false only when the run itself could not complete:
	// a stopping middleware failure, a timeout, or cancellation.
	Success bool
	// Context is the final (possibly partial) run context.
	Context *Context
	// Err is the failure that stopped the run, nil on success.
	Err error
	// Steps holds per-middleware stats for this run, in execution order.
	Steps []StepStat
}
