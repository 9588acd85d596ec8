// Package task defines the provisioning task model: a named
// unit of work with optional Init, Check and Run functions,
// the immutable pass-wide Config it reads, the private State
// derived by Init, and the Result the engine records for it.
package task

import (
	"context"
	"errors"

	"digital.vasic.provision/pkg/adapter"
)

// ErrPrerequisiteMissing is returned by a Run that cannot act
// because Init left a required field unresolved.
var ErrPrerequisiteMissing = errors.New("prerequisite not installed")

// Env is the read-only environment handed to every lifecycle
// call: the pass-wide configuration and the system adapter.
type Env struct {
	Config *Config
	System adapter.Adapter
}

// InitFunc resolves values that depend on runtime system
// state. Expected absence is reported through Unresolved
// fields, not through the error, which is reserved for faults.
type InitFunc func(ctx context.Context, env Env) (State, error)

// CheckFunc reports whether the desired state already holds.
// It must not change the system.
type CheckFunc func(
	ctx context.Context, env Env, st State,
) (bool, error)

// RunFunc applies the corrective action and reports success.
type RunFunc func(
	ctx context.Context, env Env, st State,
) (bool, error)

// Task is a named checklist item. Every function slot is
// optional; the engine dispatches on presence.
type Task struct {
	// Name is the display label. Uniqueness is not enforced.
	Name string

	// Description is optional free text shown by listings.
	Description string

	Init  InitFunc
	Check CheckFunc
	Run   RunFunc
}

// Checkable reports whether the task can be auto-detected.
func (t *Task) Checkable() bool { return t.Check != nil }

// Fixable reports whether the task can be auto-fixed.
func (t *Task) Fixable() bool { return t.Run != nil }

// IsReminder reports whether the task is a pure checklist
// reminder with neither Check nor Run.
func (t *Task) IsReminder() bool {
	return t.Check == nil && t.Run == nil
}
