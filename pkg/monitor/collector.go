package monitor

import (
	"sync"
	"time"

	"digital.vasic.provision/pkg/engine"
	"digital.vasic.provision/pkg/task"
)

var _ engine.Observer = (*EventCollector)(nil)

// EventCollector captures pass events and timing data. It
// implements engine.Observer.
type EventCollector struct {
	mu       sync.RWMutex
	events   []TaskEvent
	handlers []func(TaskEvent)
	stats    CollectorStats
}

// CollectorStats holds aggregate statistics.
type CollectorStats struct {
	Total     int                 `json:"total"`
	Finished  int                 `json:"finished"`
	ByStatus  map[task.Status]int `json:"by_status"`
	StartTime time.Time           `json:"start_time"`
	Duration  time.Duration       `json:"duration"`
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{
		events: make([]TaskEvent, 0, 64),
		stats:  newStats(),
	}
}

func newStats() CollectorStats {
	return CollectorStats{
		ByStatus:  make(map[task.Status]int),
		StartTime: time.Now(),
	}
}

// OnEvent registers a handler to be called for each event.
// Handlers run on the emitting goroutine and must not block.
func (c *EventCollector) OnEvent(handler func(TaskEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Emit records an event and notifies all handlers.
func (c *EventCollector) Emit(event TaskEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	switch event.Type {
	case EventPassStarted:
		c.stats.Total += event.Total
	case EventTaskFinished:
		c.stats.Finished++
		c.stats.ByStatus[event.Status]++
	}
	c.stats.Duration = time.Since(c.stats.StartTime)
	handlers := make([]func(TaskEvent), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// PassStarted implements engine.Observer.
func (c *EventCollector) PassStarted(passID string, mode engine.Mode, total int) {
	c.Emit(TaskEvent{
		Type:   EventPassStarted,
		PassID: passID,
		Mode:   mode.String(),
		Total:  total,
	})
}

// TaskStarted implements engine.Observer.
func (c *EventCollector) TaskStarted(passID string, sequence int, name string) {
	c.Emit(TaskEvent{
		Type:     EventTaskStarted,
		PassID:   passID,
		Sequence: sequence,
		Name:     name,
	})
}

// TaskFinished implements engine.Observer.
func (c *EventCollector) TaskFinished(passID string, r *task.Result) {
	c.Emit(TaskEvent{
		Type:              EventTaskFinished,
		PassID:            passID,
		Sequence:          r.Sequence,
		Name:              r.Name,
		Status:            r.Status,
		Message:           r.Error,
		ElevationRequired: r.ElevationRequired,
		Duration:          r.Duration,
	})
}

// PassFinished implements engine.Observer.
func (c *EventCollector) PassFinished(passID string, results []*task.Result) {
	c.Emit(TaskEvent{
		Type:   EventPassFinished,
		PassID: passID,
		Total:  len(results),
	})
}

// Events returns a copy of all collected events.
func (c *EventCollector) Events() []TaskEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]TaskEvent, len(c.events))
	copy(result, c.events)
	return result
}

// Stats returns the current aggregate statistics.
func (c *EventCollector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.ByStatus = make(map[task.Status]int, len(c.stats.ByStatus))
	for k, v := range c.stats.ByStatus {
		s.ByStatus[k] = v
	}
	s.Duration = time.Since(s.StartTime)
	return s
}

// Reset clears all collected events and statistics.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = newStats()
}
