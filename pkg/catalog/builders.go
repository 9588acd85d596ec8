// Package catalog builds provisioning tasks from a handful of
// generic shapes (registry values, installed-product probes,
// environment variables, PATH entries, autorun shortcuts, fonts,
// file copies and manual reminders) and assembles them into the
// workstation checklist.
package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"digital.vasic.provision/pkg/adapter"
	"digital.vasic.provision/pkg/task"
)

// pathVar is the environment variable managed by PathEntries.
const pathVar = "PATH"

// RegistryValue wants valueName under keyPath to equal want.
// A missing value or one of another kind is not satisfied.
func RegistryValue(
	name string,
	scope adapter.Scope,
	keyPath, valueName string,
	want adapter.Value,
) *task.Task {
	return &task.Task{
		Name:        name,
		Description: fmt.Sprintf("%s\\%s = %s", keyPath, valueName, want),
		Check: func(ctx context.Context, env task.Env, _ task.State) (bool, error) {
			v, found, err := env.System.ProbeKeyValue(ctx, scope, keyPath, valueName)
			if err != nil || !found {
				return false, err
			}
			return v.Equal(want), nil
		},
		Run: func(ctx context.Context, env task.Env, _ task.State) (bool, error) {
			if err := env.System.SetKeyValue(ctx, scope, keyPath, valueName, want); err != nil {
				return false, fmt.Errorf("set %s\\%s: %w", keyPath, valueName, err)
			}
			return true, nil
		},
	}
}

// InstalledProbe detects a product by the presence of a
// machine-scope string value. It cannot install the product.
func InstalledProbe(name, keyPath, valueName string) *task.Task {
	return &task.Task{
		Name:        name,
		Description: "install manually; detected by " + keyPath,
		Check: func(ctx context.Context, env task.Env, _ task.State) (bool, error) {
			v, found, err := env.System.ProbeKeyValue(
				ctx, adapter.ScopeMachine, keyPath, valueName,
			)
			if err != nil || !found {
				return false, err
			}
			return v.Kind == adapter.KindString, nil
		},
	}
}

// DirectoryProbe detects a product by a non-empty install
// directory. It cannot install the product.
func DirectoryProbe(name string, dir PathFunc) *task.Task {
	return &task.Task{
		Name:        name,
		Description: "install manually; detected by its directory",
		Init: func(_ context.Context, env task.Env) (task.State, error) {
			return task.NewState(map[string]any{
				"dir": orUnresolved(dir(env.Config)),
			}), nil
		},
		Check: func(ctx context.Context, env task.Env, st task.State) (bool, error) {
			if st.IsUnresolved("dir") {
				return false, nil
			}
			entries, err := env.System.ListDir(ctx, st.String("dir"))
			if err != nil {
				return false, err
			}
			return len(entries) > 0, nil
		},
	}
}

// EnvVar wants the variable varName to exist; Run sets it to
// value in scope. An existing variable with another value is
// left alone.
func EnvVar(
	name, varName string,
	value PathFunc,
	scope adapter.Scope,
) *task.Task {
	return &task.Task{
		Name:        name,
		Description: "set environment variable " + varName,
		Init: func(_ context.Context, env task.Env) (task.State, error) {
			return task.NewState(map[string]any{
				"value": orUnresolved(value(env.Config)),
			}), nil
		},
		Check: func(ctx context.Context, env task.Env, _ task.State) (bool, error) {
			_, found, err := env.System.GetEnvVarScope(ctx, varName, scope)
			return found, err
		},
		Run: func(ctx context.Context, env task.Env, st task.State) (bool, error) {
			if err := st.Require("value"); err != nil {
				return false, err
			}
			if err := env.System.SetEnvVar(ctx, varName, st.String("value"), scope); err != nil {
				return false, fmt.Errorf("set %s: %w", varName, err)
			}
			return true, nil
		},
	}
}

// PathEntries wants every entry present in PATH at scope. Run
// merges the entries into that scope's list without duplicating
// or reordering existing ones.
func PathEntries(
	name string,
	scope adapter.Scope,
	entries ...PathFunc,
) *task.Task {
	return &task.Task{
		Name:        name,
		Description: "add entries to " + pathVar,
		Init: func(_ context.Context, env task.Env) (task.State, error) {
			add := make([]string, 0, len(entries))
			for _, e := range entries {
				if p := e(env.Config); p != "" {
					add = append(add, p)
				}
			}
			return task.NewState(map[string]any{
				"add": adapter.JoinPathList(add),
			}), nil
		},
		Check: func(ctx context.Context, env task.Env, st task.State) (bool, error) {
			current, _, err := env.System.GetEnvVarScope(ctx, pathVar, scope)
			if err != nil {
				return false, err
			}
			return adapter.ContainsAllPaths(
				adapter.SplitPathList(current), st.String("add"),
			), nil
		},
		Run: func(ctx context.Context, env task.Env, st task.State) (bool, error) {
			current, _, err := env.System.GetEnvVarScope(ctx, pathVar, scope)
			if err != nil {
				return false, fmt.Errorf("read %s: %w", pathVar, err)
			}
			merged := env.System.MergePathList(
				adapter.SplitPathList(current), st.String("add"), "",
			)
			if err := env.System.SetEnvVar(
				ctx, pathVar, adapter.JoinPathList(merged), scope,
			); err != nil {
				return false, fmt.Errorf("set %s: %w", pathVar, err)
			}
			return true, nil
		},
	}
}

// ShortcutSpec describes an autorun launcher. File is the
// launcher's base name inside the shared autorun folder.
type ShortcutSpec struct {
	File        string
	Target      PathFunc
	WorkDir     PathFunc
	Args        string
	Description string
}

// AutorunShortcut is satisfied when any autorun folder holds an
// entry matching pattern (case-insensitive). Run places the
// launcher in the shared autorun folder.
func AutorunShortcut(
	name, pattern string,
	spec ShortcutSpec,
) *task.Task {
	re := regexp.MustCompile("(?i)" + pattern)
	return &task.Task{
		Name:        name,
		Description: "start " + spec.File + " at login",
		Init: func(_ context.Context, env task.Env) (task.State, error) {
			dir := env.Config.SharedAutorunDir()
			if dir == "" {
				return task.NewState(map[string]any{"shortcut": task.Unresolved}), nil
			}
			sc := adapter.Shortcut{
				Path:        filepath.Join(dir, spec.File),
				Target:      spec.Target(env.Config),
				Args:        spec.Args,
				Description: spec.Description,
			}
			if spec.WorkDir != nil {
				sc.WorkDir = spec.WorkDir(env.Config)
			}
			return task.NewState(map[string]any{"shortcut": sc}), nil
		},
		Check: func(ctx context.Context, env task.Env, _ task.State) (bool, error) {
			for _, dir := range env.Config.AutorunDirs() {
				names, err := env.System.ListDir(ctx, dir)
				if err != nil {
					return false, err
				}
				if len(Glob(names, re)) > 0 {
					return true, nil
				}
			}
			return false, nil
		},
		Run: func(ctx context.Context, env task.Env, st task.State) (bool, error) {
			if err := st.Require("shortcut"); err != nil {
				return false, err
			}
			raw, _ := st.Get("shortcut")
			sc := raw.(adapter.Shortcut)
			if err := env.System.CreateShortcut(ctx, sc); err != nil {
				return false, fmt.Errorf("create %s: %w", sc.Path, err)
			}
			return true, nil
		},
	}
}

// Glob returns the names matching re, in input order.
func Glob(names []string, re *regexp.Regexp) []string {
	var out []string
	for _, n := range names {
		if re.MatchString(n) {
			out = append(out, n)
		}
	}
	return out
}

// Fonts wants every file present in the fonts folder; Run
// copies missing ones from the fonts subfolder of the
// configuration directory.
func Fonts(name string, files ...string) *task.Task {
	return &task.Task{
		Name:        name,
		Description: "install fonts from the configuration directory",
		Init: func(_ context.Context, env task.Env) (task.State, error) {
			return task.NewState(map[string]any{
				"fonts_dir": orUnresolved(env.Config.FontsDir()),
				"src_dir":   orUnresolved(joinUnder(env.Config.ConfDir(), []string{"fonts"})),
			}), nil
		},
		Check: func(ctx context.Context, env task.Env, st task.State) (bool, error) {
			if st.IsUnresolved("fonts_dir") {
				return false, nil
			}
			for _, f := range files {
				ok, err := env.System.FileExists(ctx, filepath.Join(st.String("fonts_dir"), f))
				if err != nil || !ok {
					return false, err
				}
			}
			return true, nil
		},
		Run: func(ctx context.Context, env task.Env, st task.State) (bool, error) {
			if err := st.Require("fonts_dir", "src_dir"); err != nil {
				return false, err
			}
			for _, f := range files {
				dest := filepath.Join(st.String("fonts_dir"), f)
				ok, err := env.System.FileExists(ctx, dest)
				if err != nil {
					return false, err
				}
				if ok {
					continue
				}
				src := filepath.Join(st.String("src_dir"), f)
				if err := env.System.CopyFile(ctx, src, dest); err != nil {
					return false, fmt.Errorf("install font %s: %w", f, err)
				}
			}
			return true, nil
		},
	}
}

// Reminder is a checklist item the operator must do by hand.
func Reminder(name, description string) *task.Task {
	return &task.Task{Name: name, Description: description}
}

func orUnresolved(s string) any {
	if s == "" {
		return task.Unresolved
	}
	return s
}
