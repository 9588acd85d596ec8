package task

import "time"

// Status is the terminal outcome of one task in one pass.
type Status string

// Status constants.
const (
	// StatusSatisfied means Check found the desired state.
	StatusSatisfied Status = "satisfied"

	// StatusFixed means Run corrected the state.
	StatusFixed Status = "fixed"

	// StatusFailed means Run was attempted and failed.
	StatusFailed Status = "failed"

	// StatusManualActionRequired means no automated check or
	// fix is available, or the pass was a dry run.
	StatusManualActionRequired Status = "manual_action_required"

	// StatusProbeFailed means Init or Check hit a fault and
	// the state could not be determined.
	StatusProbeFailed Status = "probe_failed"
)

// Statuses lists every status in report order.
var Statuses = []Status{
	StatusSatisfied,
	StatusFixed,
	StatusManualActionRequired,
	StatusFailed,
	StatusProbeFailed,
}

// IsFailure reports whether s counts as a failure.
func (s Status) IsFailure() bool {
	return s == StatusFailed || s == StatusProbeFailed
}

// Label returns a short upper-case label for tables.
func (s Status) Label() string {
	switch s {
	case StatusSatisfied:
		return "OK"
	case StatusFixed:
		return "FIXED"
	case StatusFailed:
		return "FAILED"
	case StatusManualActionRequired:
		return "MANUAL"
	case StatusProbeFailed:
		return "PROBE FAILED"
	}
	return "UNKNOWN"
}

// Result captures the outcome of one task within one pass.
type Result struct {
	// Name is the task display label.
	Name string `json:"name"`

	// Sequence is the zero-based position of the task in the
	// registry.
	Sequence int `json:"sequence"`

	// Status is the terminal outcome.
	Status Status `json:"status"`

	// Error carries the failure or probe-fault detail.
	Error string `json:"error,omitempty"`

	// ElevationRequired is set on a failed Run whose adapter
	// reported a privilege shortfall.
	ElevationRequired bool `json:"elevation_required,omitempty"`

	// WouldFix is set on a check-mode result whose task was
	// unsatisfied and carries an automated fix.
	WouldFix bool `json:"would_fix,omitempty"`

	// StartTime is when Init (or Check) began.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the result was recorded.
	EndTime time.Time `json:"end_time"`

	// Duration is the wall-clock time spent on the task.
	Duration time.Duration `json:"duration"`
}

// Changed reports whether the pass modified the system for
// this task.
func (r *Result) Changed() bool {
	return r.Status == StatusFixed
}
