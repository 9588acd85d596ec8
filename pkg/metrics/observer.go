package metrics

import (
	"sync"

	"digital.vasic.provision/pkg/engine"
	"digital.vasic.provision/pkg/task"
)

var _ engine.Observer = (*Observer)(nil)

// Observer feeds engine lifecycle events into a PassMetrics.
type Observer struct {
	mu    sync.Mutex
	m     PassMetrics
	total int
	done  int
}

// NewObserver returns an Observer recording into m. A nil m
// records nothing.
func NewObserver(m PassMetrics) *Observer {
	if m == nil {
		m = NoopMetrics{}
	}
	return &Observer{m: m}
}

func (o *Observer) PassStarted(_ string, mode engine.Mode, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.total, o.done = total, 0
	o.m.IncrementPassTotal(mode.String())
	o.m.SetPendingTasks(total)
}

func (o *Observer) TaskStarted(string, int, string) {}

func (o *Observer) TaskFinished(_ string, r *task.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done++
	o.m.RecordTask(r.Name, r.Status, r.Duration)
	o.m.SetPendingTasks(o.total - o.done)
}

func (o *Observer) PassFinished(_ string, results []*task.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.m.SetPendingTasks(o.total - len(results))
}
