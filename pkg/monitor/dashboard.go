package monitor

import (
	"sync"
	"time"

	"digital.vasic.provision/pkg/task"
)

// Pass states shown on the dashboard.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateCompleted = "completed"
)

// DashboardData provides a real-time view of the current pass.
type DashboardData struct {
	mu   sync.RWMutex
	snap Dashboard
}

// Dashboard is a point-in-time copy of DashboardData.
type Dashboard struct {
	PassID    string            `json:"pass_id"`
	Mode      string            `json:"mode"`
	StartTime time.Time         `json:"start_time"`
	Status    string            `json:"status"`
	Tasks     map[int]TaskState `json:"tasks"`
	Summary   DashboardSummary  `json:"summary"`
}

// TaskState is the dashboard row for one task, keyed by its
// position in the pass.
type TaskState struct {
	Sequence          int           `json:"sequence"`
	Name              string        `json:"name"`
	Status            string        `json:"status"`
	Duration          time.Duration `json:"duration,omitempty"`
	Message           string        `json:"message,omitempty"`
	ElevationRequired bool          `json:"elevation_required,omitempty"`
}

// DashboardSummary holds aggregate stats for the dashboard.
type DashboardSummary struct {
	Total    int                 `json:"total"`
	Running  int                 `json:"running"`
	Pending  int                 `json:"pending"`
	ByStatus map[task.Status]int `json:"by_status"`
	Elapsed  string              `json:"elapsed"`
}

// NewDashboardData creates an idle dashboard.
func NewDashboardData() *DashboardData {
	return &DashboardData{
		snap: Dashboard{
			Status: StateIdle,
			Tasks:  make(map[int]TaskState),
		},
	}
}

// UpdateFromEvent updates dashboard state from a pass event.
func (d *DashboardData) UpdateFromEvent(event TaskEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch event.Type {
	case EventPassStarted:
		d.snap = Dashboard{
			PassID:    event.PassID,
			Mode:      event.Mode,
			StartTime: event.Timestamp,
			Status:    StateRunning,
			Tasks:     make(map[int]TaskState),
		}
		d.snap.Summary.Total = event.Total
	case EventTaskStarted:
		d.snap.Tasks[event.Sequence] = TaskState{
			Sequence: event.Sequence,
			Name:     event.Name,
			Status:   StateRunning,
		}
	case EventTaskFinished:
		d.snap.Tasks[event.Sequence] = TaskState{
			Sequence:          event.Sequence,
			Name:              event.Name,
			Status:            string(event.Status),
			Duration:          event.Duration,
			Message:           event.Message,
			ElevationRequired: event.ElevationRequired,
		}
	case EventPassFinished:
		d.snap.Status = StateCompleted
	}
	d.recalcSummary()
}

func (d *DashboardData) recalcSummary() {
	s := DashboardSummary{
		Total:    d.snap.Summary.Total,
		ByStatus: make(map[task.Status]int),
	}
	for _, ts := range d.snap.Tasks {
		if ts.Status == StateRunning {
			s.Running++
			continue
		}
		s.ByStatus[task.Status(ts.Status)]++
	}
	if s.Total < len(d.snap.Tasks) {
		s.Total = len(d.snap.Tasks)
	}
	s.Pending = s.Total - len(d.snap.Tasks)
	if !d.snap.StartTime.IsZero() {
		s.Elapsed = time.Since(d.snap.StartTime).Round(time.Millisecond).String()
	}
	d.snap.Summary = s
}

// Snapshot returns a copy of the current dashboard state.
func (d *DashboardData) Snapshot() Dashboard {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := d.snap
	snap.Tasks = make(map[int]TaskState, len(d.snap.Tasks))
	for k, v := range d.snap.Tasks {
		snap.Tasks[k] = v
	}
	snap.Summary.ByStatus = make(map[task.Status]int, len(d.snap.Summary.ByStatus))
	for k, v := range d.snap.Summary.ByStatus {
		snap.Summary.ByStatus[k] = v
	}
	return snap
}

// BuildDashboardData creates a DashboardData by replaying all
// events held by collector.
func BuildDashboardData(
	collector *EventCollector,
) *DashboardData {
	data := NewDashboardData()
	for _, event := range collector.Events() {
		data.UpdateFromEvent(event)
	}
	return data
}
