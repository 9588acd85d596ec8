// Package registry provides the ordered task catalog. Tasks
// are appended while the catalog is built and the catalog is
// read-only once a pass starts.
//
// Registration order is the only ordering guarantee: a task may
// rely on effects of tasks registered before it, so catalogs
// must not be reordered casually.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"digital.vasic.provision/pkg/task"
)

// ErrSealed is returned when registering into a sealed
// registry.
var ErrSealed = errors.New("registry is sealed")

// Registry defines the ordered task catalog used by the
// engine.
type Registry interface {
	// Register appends a task.
	Register(t *task.Task) error

	// Tasks returns the tasks in registration order.
	Tasks() []*task.Task

	// Names returns the task names in registration order.
	Names() []string

	// Duplicates reports names registered more than once.
	Duplicates() []Duplicate

	// Seal makes the registry read-only.
	Seal()

	// Sealed reports whether Seal was called.
	Sealed() bool

	// Count returns the number of registered tasks.
	Count() int
}

// Duplicate describes a task name that occurs at several
// positions.
type Duplicate struct {
	Name      string `json:"name"`
	Positions []int  `json:"positions"`
}

// DefaultRegistry is the standard Registry implementation.
// It is safe for concurrent use.
type DefaultRegistry struct {
	mu     sync.RWMutex
	tasks  []*task.Task
	sealed bool
}

// NewRegistry creates a new, empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{}
}

// Register appends t. Names need not be unique; empty names
// and nil tasks are construction bugs and are rejected.
func (r *DefaultRegistry) Register(t *task.Task) error {
	if t == nil {
		return fmt.Errorf("register: nil task")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf(
			"register: task at position %d has no name",
			r.Count(),
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register %q: %w", t.Name, ErrSealed)
	}
	r.tasks = append(r.tasks, t)
	return nil
}

// MustRegister is Register for static catalogs; it panics on
// error.
func (r *DefaultRegistry) MustRegister(tasks ...*task.Task) {
	for _, t := range tasks {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Tasks returns a copy of the task list in registration order.
func (r *DefaultRegistry) Tasks() []*task.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*task.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Names returns the task names in registration order.
func (r *DefaultRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.tasks))
	for i, t := range r.tasks {
		out[i] = t.Name
	}
	return out
}

// Duplicates returns every name used more than once, in order
// of first appearance.
func (r *DefaultRegistry) Duplicates() []Duplicate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	positions := make(map[string][]int)
	var order []string
	for i, t := range r.tasks {
		if _, seen := positions[t.Name]; !seen {
			order = append(order, t.Name)
		}
		positions[t.Name] = append(positions[t.Name], i)
	}

	var out []Duplicate
	for _, name := range order {
		if len(positions[name]) > 1 {
			out = append(out, Duplicate{
				Name:      name,
				Positions: positions[name],
			})
		}
	}
	return out
}

// Seal makes the registry read-only. Sealing twice is a no-op.
func (r *DefaultRegistry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether the registry is read-only.
func (r *DefaultRegistry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Count returns the number of registered tasks.
func (r *DefaultRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
