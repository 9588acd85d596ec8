package engine

import "digital.vasic.provision/pkg/task"

// Observer receives pass lifecycle notifications. Calls are
// made synchronously from the engine goroutine; implementations
// must not block. A panicking observer is logged and skipped for
// that notification; the pass carries on.
type Observer interface {
	PassStarted(passID string, mode Mode, total int)
	TaskStarted(passID string, sequence int, name string)
	TaskFinished(passID string, r *task.Result)
	PassFinished(passID string, results []*task.Result)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	OnPassStarted  func(passID string, mode Mode, total int)
	OnTaskStarted  func(passID string, sequence int, name string)
	OnTaskFinished func(passID string, r *task.Result)
	OnPassFinished func(passID string, results []*task.Result)
}

// PassStarted implements Observer.
func (f ObserverFuncs) PassStarted(passID string, mode Mode, total int) {
	if f.OnPassStarted != nil {
		f.OnPassStarted(passID, mode, total)
	}
}

// TaskStarted implements Observer.
func (f ObserverFuncs) TaskStarted(passID string, sequence int, name string) {
	if f.OnTaskStarted != nil {
		f.OnTaskStarted(passID, sequence, name)
	}
}

// TaskFinished implements Observer.
func (f ObserverFuncs) TaskFinished(passID string, r *task.Result) {
	if f.OnTaskFinished != nil {
		f.OnTaskFinished(passID, r)
	}
}

// PassFinished implements Observer.
func (f ObserverFuncs) PassFinished(passID string, results []*task.Result) {
	if f.OnPassFinished != nil {
		f.OnPassFinished(passID, results)
	}
}
