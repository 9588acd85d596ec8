package engine_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.provision/pkg/adapter"
	"digital.vasic.provision/pkg/engine"
	"digital.vasic.provision/pkg/logging"
	"digital.vasic.provision/pkg/registry"
	"digital.vasic.provision/pkg/task"
)

const explorerKey = `Software\Microsoft\Windows\CurrentVersion\Explorer\Advanced`

var ignoreTiming = cmpopts.IgnoreFields(
	task.Result{}, "StartTime", "EndTime", "Duration",
)

func testConfig() *task.Config {
	return task.NewConfig(task.ConfigValues{
		ToolsRoot: "/opt/tools",
		ConfDir:   "/opt/conf",
	})
}

func buildRegistry(t *testing.T, tasks ...*task.Task) *registry.DefaultRegistry {
	t.Helper()
	reg := registry.NewRegistry()
	for _, tk := range tasks {
		require.NoError(t, reg.Register(tk))
	}
	return reg
}

// hideExtensions wants HideFileExt=0 in the user scope.
func hideExtensions() *task.Task {
	return &task.Task{
		Name: "show file extensions",
		Check: func(ctx context.Context, env task.Env, _ task.State) (bool, error) {
			v, found, err := env.System.ProbeKeyValue(
				ctx, adapter.ScopeUser, explorerKey, "HideFileExt",
			)
			if err != nil || !found {
				return false, err
			}
			return v.Equal(adapter.DWORDValue(0)), nil
		},
		Run: func(ctx context.Context, env task.Env, _ task.State) (bool, error) {
			err := env.System.SetKeyValue(
				ctx, adapter.ScopeUser, explorerKey, "HideFileExt",
				adapter.DWORDValue(0),
			)
			return err == nil, err
		},
	}
}

func constTask(name string, satisfied, fixed bool) *task.Task {
	return &task.Task{
		Name: name,
		Check: func(context.Context, task.Env, task.State) (bool, error) {
			return satisfied, nil
		},
		Run: func(context.Context, task.Env, task.State) (bool, error) {
			return fixed, nil
		},
	}
}

func runPass(
	t *testing.T,
	e *engine.Engine,
	reg registry.Registry,
	sys adapter.Adapter,
) []*task.Result {
	t.Helper()
	results, err := e.RunPass(context.Background(), reg, testConfig(), sys)
	require.NoError(t, err)
	return results
}

func statuses(results []*task.Result) []task.Status {
	out := make([]task.Status, len(results))
	for i, r := range results {
		out[i] = r.Status
	}
	return out
}

func TestRunPass_FixedThenSatisfied(t *testing.T) {
	sys := adapter.NewMemory()
	require.NoError(t, sys.SetKeyValue(
		context.Background(), adapter.ScopeUser, explorerKey,
		"HideFileExt", adapter.DWORDValue(1),
	))

	first := runPass(t, engine.New(), buildRegistry(t, hideExtensions()), sys)
	require.Len(t, first, 1)
	assert.Equal(t, task.StatusFixed, first[0].Status)
	assert.Empty(t, first[0].Error)

	second := runPass(t, engine.New(), buildRegistry(t, hideExtensions()), sys)
	assert.Equal(t, task.StatusSatisfied, second[0].Status)
}

func TestRunPass_NoCheckIsManual(t *testing.T) {
	runCalled := false
	tasks := []*task.Task{
		{Name: "activate windows"},
		{
			Name: "import vc settings",
			Run: func(context.Context, task.Env, task.State) (bool, error) {
				runCalled = true
				return true, nil
			},
		},
	}

	for _, sys := range []*adapter.Memory{adapter.NewMemory(), adapter.NewMemory()} {
		sys.SetElevated(false)
		results := runPass(t, engine.New(), buildRegistry(t, tasks...), sys)
		assert.Equal(t, []task.Status{
			task.StatusManualActionRequired,
			task.StatusManualActionRequired,
		}, statuses(results))
	}
	assert.False(t, runCalled)
}

func TestRunPass_CheckFalseWithoutRunIsManual(t *testing.T) {
	tk := &task.Task{
		Name: "install office",
		Check: func(context.Context, task.Env, task.State) (bool, error) {
			return false, nil
		},
	}
	results := runPass(t, engine.New(), buildRegistry(t, tk), adapter.NewMemory())
	assert.Equal(t, task.StatusManualActionRequired, results[0].Status)
	assert.Contains(t, results[0].Error, "no automated fix")
	assert.False(t, results[0].WouldFix)
}

func TestRunPass_UnresolvedPrerequisite(t *testing.T) {
	copyDebuggerRules := &task.Task{
		Name: "copy autoexp.dat",
		Init: func(ctx context.Context, env task.Env) (task.State, error) {
			dir, found, err := env.System.ProbeKeyValue(
				ctx, adapter.ScopeMachine,
				`SOFTWARE\Microsoft\VisualStudio\8.0`, "InstallDir",
			)
			if err != nil {
				return task.State{}, err
			}
			fields := map[string]any{"dest": task.Unresolved}
			if found {
				fields["dest"] = dir.Str + `\autoexp.dat`
			}
			return task.NewState(fields), nil
		},
		Check: func(_ context.Context, _ task.Env, st task.State) (bool, error) {
			if st.IsUnresolved("dest") {
				return false, nil
			}
			return true, nil
		},
		Run: func(_ context.Context, _ task.Env, st task.State) (bool, error) {
			if err := st.Require("dest"); err != nil {
				return false, err
			}
			return true, nil
		},
	}
	next := constTask("next", true, true)

	results := runPass(t, engine.New(),
		buildRegistry(t, copyDebuggerRules, next), adapter.NewMemory())

	require.Len(t, results, 2)
	assert.Equal(t, task.StatusFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "prerequisite not installed")
	assert.False(t, results[0].ElevationRequired)
	assert.Equal(t, task.StatusSatisfied, results[1].Status)
}

func TestRunPass_IsolatesPanicsAndErrors(t *testing.T) {
	tasks := []*task.Task{
		{
			Name: "run panics",
			Check: func(context.Context, task.Env, task.State) (bool, error) {
				return false, nil
			},
			Run: func(context.Context, task.Env, task.State) (bool, error) {
				panic("unhandled fault")
			},
		},
		constTask("needs fix", false, true),
		{
			Name: "check errors",
			Check: func(context.Context, task.Env, task.State) (bool, error) {
				return false, errors.New("wmi query failed")
			},
			Run: func(context.Context, task.Env, task.State) (bool, error) {
				t.Fatal("run must not be called after a check fault")
				return false, nil
			},
		},
		{
			Name: "init panics",
			Init: func(context.Context, task.Env) (task.State, error) {
				var m map[string]int
				m["x"] = 1
				return task.State{}, nil
			},
			Check: func(context.Context, task.Env, task.State) (bool, error) {
				t.Fatal("check must not be called after an init fault")
				return false, nil
			},
		},
		{
			Name: "run returns false",
			Check: func(context.Context, task.Env, task.State) (bool, error) {
				return false, nil
			},
			Run: func(context.Context, task.Env, task.State) (bool, error) {
				return false, nil
			},
		},
		constTask("already fine", true, false),
	}

	results := runPass(t, engine.New(), buildRegistry(t, tasks...), adapter.NewMemory())

	want := []*task.Result{
		{Name: "run panics", Sequence: 0, Status: task.StatusFailed,
			Error: "run panicked: unhandled fault"},
		{Name: "needs fix", Sequence: 1, Status: task.StatusFixed},
		{Name: "check errors", Sequence: 2, Status: task.StatusProbeFailed,
			Error: "check: wmi query failed"},
		{Name: "init panics", Sequence: 3, Status: task.StatusProbeFailed,
			Error: "init: init panicked: assignment to entry in nil map"},
		{Name: "run returns false", Sequence: 4, Status: task.StatusFailed,
			Error: "run reported failure"},
		{Name: "already fine", Sequence: 5, Status: task.StatusSatisfied},
	}
	if diff := cmp.Diff(want, results, ignoreTiming); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestRunPass_InitErrorIsProbeFailed(t *testing.T) {
	sys := adapter.NewMemory()
	sys.FailOn(adapter.OpProbeKeyValue, errors.New("access fault"))

	tk := hideExtensions()
	tk.Init = func(ctx context.Context, env task.Env) (task.State, error) {
		_, _, err := env.System.ProbeKeyValue(ctx, adapter.ScopeMachine, "x", "y")
		return task.State{}, err
	}
	results := runPass(t, engine.New(), buildRegistry(t, tk), sys)
	assert.Equal(t, task.StatusProbeFailed, results[0].Status)
	assert.Equal(t, "init: access fault", results[0].Error)
}

func TestRunPass_ElevationRequired(t *testing.T) {
	sys := adapter.NewMemory()
	sys.SetElevated(false)

	setMachinePath := &task.Task{
		Name: "set path",
		Check: func(context.Context, task.Env, task.State) (bool, error) {
			return false, nil
		},
		Run: func(ctx context.Context, env task.Env, _ task.State) (bool, error) {
			err := env.System.SetEnvVar(ctx, "PATH", `C:\svn\bin`, adapter.ScopeMachine)
			if err != nil {
				return false, fmt.Errorf("set PATH: %w", err)
			}
			return true, nil
		},
	}

	results := runPass(t, engine.New(),
		buildRegistry(t, setMachinePath, hideExtensions()), sys)

	require.Len(t, results, 2)
	assert.Equal(t, task.StatusFailed, results[0].Status)
	assert.True(t, results[0].ElevationRequired)
	assert.Contains(t, results[0].Error, "elevation required")
	assert.Equal(t, task.StatusFixed, results[1].Status)
	assert.False(t, results[1].ElevationRequired)
}

func TestRunPass_PanicWithElevationError(t *testing.T) {
	tk := &task.Task{
		Name: "copy font",
		Check: func(context.Context, task.Env, task.State) (bool, error) {
			return false, nil
		},
		Run: func(context.Context, task.Env, task.State) (bool, error) {
			panic(adapter.ErrElevationRequired)
		},
	}
	results := runPass(t, engine.New(), buildRegistry(t, tk), adapter.NewMemory())
	assert.True(t, results[0].ElevationRequired)
}

func TestRunPass_CheckModeNeverRuns(t *testing.T) {
	sys := adapter.NewMemory()
	require.NoError(t, sys.SetKeyValue(
		context.Background(), adapter.ScopeUser, explorerKey,
		"HideFileExt", adapter.DWORDValue(1),
	))
	sys.ResetCalls()

	e := engine.New(engine.WithMode(engine.ModeCheck))
	assert.Equal(t, engine.ModeCheck, e.Mode())

	first := runPass(t, e, buildRegistry(t, hideExtensions()), sys)
	second := runPass(t, e, buildRegistry(t, hideExtensions()), sys)

	assert.Equal(t, task.StatusManualActionRequired, first[0].Status)
	assert.Contains(t, first[0].Error, "check mode")
	assert.True(t, first[0].WouldFix)
	if diff := cmp.Diff(first, second, ignoreTiming); diff != "" {
		t.Errorf("repeated check passes differ:\n%s", diff)
	}
	assert.NotContains(t, sys.Calls(), adapter.OpSetKeyValue)
}

func TestRunPass_OrderAndSequence(t *testing.T) {
	var names []string
	reg := registry.NewRegistry()
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("task-%02d", 19-i)
		names = append(names, name)
		satisfied := i%3 == 0
		reg.MustRegister(constTask(name, satisfied, i%2 == 0))
	}

	results := runPass(t, engine.New(), reg, adapter.NewMemory())
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, names[i], r.Name)
		assert.Equal(t, i, r.Sequence)
	}
}

func TestRunPass_SealsRegistry(t *testing.T) {
	reg := buildRegistry(t, constTask("a", true, true))
	runPass(t, engine.New(), reg, adapter.NewMemory())

	assert.True(t, reg.Sealed())
	assert.ErrorIs(t, reg.Register(constTask("b", true, true)), registry.ErrSealed)
}

func TestRunPass_ControlFaults(t *testing.T) {
	e := engine.New()
	ctx := context.Background()
	reg := buildRegistry(t, constTask("a", true, true))

	_, err := e.RunPass(ctx, nil, testConfig(), adapter.NewMemory())
	assert.ErrorIs(t, err, engine.ErrInvalidPass)

	_, err = e.RunPass(ctx, reg, nil, adapter.NewMemory())
	assert.ErrorIs(t, err, engine.ErrInvalidPass)

	_, err = e.RunPass(ctx, reg, testConfig(), nil)
	assert.ErrorIs(t, err, engine.ErrInvalidPass)
}

// nilTaskRegistry is a malformed Registry implementation.
type nilTaskRegistry struct {
	registry.DefaultRegistry
}

func (r *nilTaskRegistry) Tasks() []*task.Task {
	return []*task.Task{{Name: "ok"}, nil}
}

func TestRunPass_NilTaskIsControlFault(t *testing.T) {
	_, err := engine.New().RunPass(
		context.Background(), &nilTaskRegistry{},
		testConfig(), adapter.NewMemory(),
	)
	require.ErrorIs(t, err, engine.ErrInvalidPass)
	assert.Contains(t, err.Error(), "position 1")
}

func TestRunPass_CancelBetweenTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelling := &task.Task{
		Name: "operator aborts here",
		Check: func(context.Context, task.Env, task.State) (bool, error) {
			cancel()
			return true, nil
		},
	}
	reg := buildRegistry(t,
		constTask("first", true, true),
		cancelling,
		constTask("never", true, true),
	)

	results, err := engine.New().RunPass(ctx, reg, testConfig(), adapter.NewMemory())
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "after 2 of 3 tasks")
	require.Len(t, results, 2)
	assert.Equal(t, task.StatusSatisfied, results[1].Status)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) add(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, s)
}

func TestRunPass_ObserversAndClock(t *testing.T) {
	obs := &recordingObserver{}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	e := engine.New(
		engine.WithClock(clock),
		engine.WithIDGenerator(func() string { return "pass-1" }),
		engine.WithObserver(engine.ObserverFuncs{
			OnPassStarted: func(id string, m engine.Mode, n int) {
				obs.add(fmt.Sprintf("pass_started %s %s %d", id, m, n))
			},
			OnTaskStarted: func(id string, seq int, name string) {
				obs.add(fmt.Sprintf("task_started %d %s", seq, name))
			},
			OnTaskFinished: func(id string, r *task.Result) {
				obs.add(fmt.Sprintf("task_finished %d %s", r.Sequence, r.Status))
			},
			OnPassFinished: func(id string, rs []*task.Result) {
				obs.add(fmt.Sprintf("pass_finished %s %d", id, len(rs)))
			},
		}),
		engine.WithObserver(nil),
	)

	results := runPass(t, e,
		buildRegistry(t, constTask("a", true, true), constTask("b", false, true)),
		adapter.NewMemory())

	assert.Equal(t, []string{
		"pass_started pass-1 apply 2",
		"task_started 0 a",
		"task_finished 0 satisfied",
		"task_started 1 b",
		"task_finished 1 fixed",
		"pass_finished pass-1 2",
	}, obs.events)
	assert.Equal(t, time.Second, results[0].Duration)
}

func TestRunPass_PanickingObserverDoesNotAbortPass(t *testing.T) {
	var logs bytes.Buffer
	obs := &recordingObserver{}
	e := engine.New(
		engine.WithLogger(logging.NewZapLoggerTo(&logs, logging.LevelInfo)),
		engine.WithObserver(engine.ObserverFuncs{
			OnPassStarted: func(string, engine.Mode, int) { panic("dashboard gone") },
			OnTaskFinished: func(string, *task.Result) {
				panic(errors.New("metrics sink closed"))
			},
		}),
		engine.WithObserver(engine.ObserverFuncs{
			OnTaskFinished: func(_ string, r *task.Result) {
				obs.add(r.Name)
			},
		}),
	)

	results := runPass(t, e,
		buildRegistry(t, constTask("a", true, true), constTask("b", false, true)),
		adapter.NewMemory())

	assert.Equal(t, []task.Status{task.StatusSatisfied, task.StatusFixed}, statuses(results))
	assert.Equal(t, []string{"a", "b"}, obs.events)
	assert.Contains(t, logs.String(), "observer_panicked")
	assert.Contains(t, logs.String(), "dashboard gone")
	assert.Contains(t, logs.String(), "metrics sink closed")
}
