// Package metrics records pass and task outcomes for scraping
// by Prometheus.
package metrics

import (
	"time"

	"digital.vasic.provision/pkg/task"
)

// PassMetrics defines the interface for recording pass metrics.
type PassMetrics interface {
	// RecordTask records the final status of one task.
	RecordTask(name string, status task.Status, duration time.Duration)
	// IncrementPassTotal increments the pass counter for mode.
	IncrementPassTotal(mode string)
	// SetPendingTasks sets the gauge of tasks not yet resolved.
	SetPendingTasks(count int)
}

// NoopMetrics is a no-op implementation of PassMetrics used
// when metrics collection is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordTask(_ string, _ task.Status, _ time.Duration) {}
func (NoopMetrics) IncrementPassTotal(_ string)                         {}
func (NoopMetrics) SetPendingTasks(_ int)                               {}
