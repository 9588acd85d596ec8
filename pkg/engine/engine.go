// Package engine drives a registry of tasks through their
// Init -> Check -> Run lifecycle. A pass is strictly sequential:
// one task is fully resolved before the next begins, every task
// yields exactly one result, and per-task failures (errors and
// panics) never abort the pass.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"digital.vasic.provision/pkg/adapter"
	"digital.vasic.provision/pkg/logging"
	"digital.vasic.provision/pkg/registry"
	"digital.vasic.provision/pkg/task"
)

// Mode selects whether a pass may apply fixes.
type Mode int

const (
	// ModeApply runs the full lifecycle.
	ModeApply Mode = iota
	// ModeCheck is a dry run: Run is never invoked and tasks
	// that would need fixing report manual action with
	// WouldFix set.
	ModeCheck
)

// String returns the CLI name of the mode.
func (m Mode) String() string {
	if m == ModeCheck {
		return "check"
	}
	return "apply"
}

// ErrInvalidPass is returned for control faults detected
// before any task runs.
var ErrInvalidPass = errors.New("invalid pass")

// Detail strings recorded on results.
const (
	detailRunFalse = "run reported failure"
	detailNoCheck  = "no automated check available"
	detailNoRun    = "not satisfied; no automated fix available"
	detailDryRun   = "not satisfied; fix skipped in check mode"
	detailReminder = "reminder only"
)

// Engine executes passes over a registry.
type Engine struct {
	logger    logging.Logger
	mode      Mode
	observers []Observer
	now       func() time.Time
	newID     func() string
}

// New creates an Engine with the supplied options.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: logging.Discard(),
		mode:   ModeApply,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the configured mode.
func (e *Engine) Mode() Mode { return e.mode }

// RunPass executes every task of reg in registration order and
// returns one result per task, in the same order. The registry
// is sealed for the rest of its life.
//
// An error is returned only for control faults (nil inputs or a
// nil task in the registry, wrapped ErrInvalidPass) or when ctx
// is cancelled; on cancellation the results produced so far are
// returned with the error.
func (e *Engine) RunPass(
	ctx context.Context,
	reg registry.Registry,
	cfg *task.Config,
	sys adapter.Adapter,
) ([]*task.Result, error) {
	if err := validatePass(reg, cfg, sys); err != nil {
		return nil, err
	}
	reg.Seal()
	tasks := reg.Tasks()
	for i, t := range tasks {
		if t == nil {
			return nil, fmt.Errorf(
				"%w: nil task at position %d", ErrInvalidPass, i,
			)
		}
	}

	passID := e.newID()
	log := e.logger.WithFields(
		logging.StringField("pass_id", passID),
		logging.StringField("mode", e.mode.String()),
	)
	for _, d := range reg.Duplicates() {
		log.Warn("duplicate_task_name",
			logging.StringField("task", d.Name),
			logging.LogField("positions", d.Positions),
		)
	}

	log.Info("pass_started", logging.IntField("tasks", len(tasks)))
	e.notify(log, "pass_started", func(o Observer) {
		o.PassStarted(passID, e.mode, len(tasks))
	})

	env := task.Env{Config: cfg, System: sys}
	results := make([]*task.Result, 0, len(tasks))

	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			return e.cancelled(log, passID, results, len(tasks), err)
		}

		e.notify(log, "task_started", func(o Observer) {
			o.TaskStarted(passID, i, t.Name)
		})
		log.Debug("task_started",
			logging.IntField("sequence", i),
			logging.StringField("task", t.Name),
		)

		r := e.runTask(ctx, i, t, env)
		results = append(results, r)
		e.logResult(log, r)

		e.notify(log, "task_finished", func(o Observer) {
			o.TaskFinished(passID, r)
		})
	}

	log.Info("pass_completed",
		logging.IntField("tasks", len(results)),
	)
	e.notify(log, "pass_finished", func(o Observer) {
		o.PassFinished(passID, results)
	})
	return results, nil
}

func validatePass(
	reg registry.Registry, cfg *task.Config, sys adapter.Adapter,
) error {
	switch {
	case reg == nil:
		return fmt.Errorf("%w: nil registry", ErrInvalidPass)
	case cfg == nil:
		return fmt.Errorf("%w: nil config", ErrInvalidPass)
	case sys == nil:
		return fmt.Errorf("%w: nil adapter", ErrInvalidPass)
	}
	return nil
}

func (e *Engine) cancelled(
	log logging.Logger,
	passID string,
	results []*task.Result,
	total int,
	err error,
) ([]*task.Result, error) {
	log.Warn("pass_cancelled",
		logging.IntField("completed", len(results)),
		logging.IntField("tasks", total),
	)
	e.notify(log, "pass_finished", func(o Observer) {
		o.PassFinished(passID, results)
	})
	return results, fmt.Errorf(
		"pass cancelled after %d of %d tasks: %w",
		len(results), total, err,
	)
}

// runTask resolves one task. It never panics and always
// returns a final result.
func (e *Engine) runTask(
	ctx context.Context, seq int, t *task.Task, env task.Env,
) *task.Result {
	r := &task.Result{
		Name:      t.Name,
		Sequence:  seq,
		StartTime: e.now(),
	}
	defer func() {
		r.EndTime = e.now()
		r.Duration = r.EndTime.Sub(r.StartTime)
	}()

	var st task.State
	if t.Init != nil {
		err := protect("init", func() error {
			var initErr error
			st, initErr = t.Init(ctx, env)
			return initErr
		})
		if err != nil {
			r.Status = task.StatusProbeFailed
			r.Error = fmt.Sprintf("init: %v", err)
			return r
		}
	}

	if t.Check == nil {
		r.Status = task.StatusManualActionRequired
		r.Error = detailNoCheck
		if t.Run == nil {
			r.Error = detailReminder
		}
		return r
	}

	var satisfied bool
	err := protect("check", func() error {
		var checkErr error
		satisfied, checkErr = t.Check(ctx, env, st)
		return checkErr
	})
	if err != nil {
		r.Status = task.StatusProbeFailed
		r.Error = fmt.Sprintf("check: %v", err)
		return r
	}
	if satisfied {
		r.Status = task.StatusSatisfied
		return r
	}

	if t.Run == nil {
		r.Status = task.StatusManualActionRequired
		r.Error = detailNoRun
		return r
	}
	if e.mode == ModeCheck {
		r.Status = task.StatusManualActionRequired
		r.Error = detailDryRun
		r.WouldFix = true
		return r
	}

	var fixed bool
	err = protect("run", func() error {
		var runErr error
		fixed, runErr = t.Run(ctx, env, st)
		return runErr
	})
	switch {
	case err != nil:
		r.Status = task.StatusFailed
		r.Error = err.Error()
		r.ElevationRequired = adapter.IsElevationRequired(err)
	case !fixed:
		r.Status = task.StatusFailed
		r.Error = detailRunFalse
	default:
		r.Status = task.StatusFixed
	}
	return r
}

// notify delivers one lifecycle event to every observer. A
// panic in one observer is logged and does not reach the others
// or the pass.
func (e *Engine) notify(log logging.Logger, event string, fn func(Observer)) {
	for i, o := range e.observers {
		err := protect("observer", func() error {
			fn(o)
			return nil
		})
		if err != nil {
			log.Error("observer_panicked",
				logging.StringField("event", event),
				logging.IntField("observer", i),
				logging.ErrorField(err),
			)
		}
	}
}

// protect runs fn and converts a panic into an error. Panics
// carrying an error are wrapped so errors.Is still matches.
func protect(stage string, fn func() error) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if perr, ok := rec.(error); ok {
			err = fmt.Errorf("%s panicked: %w", stage, perr)
			return
		}
		err = fmt.Errorf("%s panicked: %v", stage, rec)
	}()
	return fn()
}

func (e *Engine) logResult(log logging.Logger, r *task.Result) {
	fields := []logging.Field{
		logging.IntField("sequence", r.Sequence),
		logging.StringField("task", r.Name),
		logging.StringField("status", string(r.Status)),
		logging.DurationField("duration", r.Duration),
	}
	if r.Error != "" {
		fields = append(fields, logging.StringField("detail", r.Error))
	}
	if r.ElevationRequired {
		fields = append(fields, logging.BoolField("elevation_required", true))
	}
	if r.Status.IsFailure() {
		log.Warn("task_completed", fields...)
		return
	}
	log.Info("task_completed", fields...)
}
