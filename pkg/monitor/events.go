package monitor

import (
	"time"

	"digital.vasic.provision/pkg/task"
)

// EventType represents the type of pass event.
type EventType string

const (
	EventPassStarted  EventType = "pass_started"
	EventTaskStarted  EventType = "task_started"
	EventTaskFinished EventType = "task_finished"
	EventPassFinished EventType = "pass_finished"
)

// TaskEvent represents a lifecycle event during a pass.
type TaskEvent struct {
	Type              EventType     `json:"type"`
	PassID            string        `json:"pass_id"`
	Mode              string        `json:"mode,omitempty"`
	Sequence          int           `json:"sequence"`
	Name              string        `json:"name,omitempty"`
	Status            task.Status   `json:"status,omitempty"`
	Message           string        `json:"message,omitempty"`
	ElevationRequired bool          `json:"elevation_required,omitempty"`
	Total             int           `json:"total,omitempty"`
	Duration          time.Duration `json:"duration,omitempty"`
	Timestamp         time.Time     `json:"timestamp"`
}
