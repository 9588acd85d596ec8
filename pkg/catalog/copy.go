package catalog

import (
	"context"
	"errors"
	"fmt"

	"digital.vasic.provision/pkg/adapter"
	"digital.vasic.provision/pkg/task"
)

// Errors returned by NeedsCopy.
var (
	ErrSourceMissing = errors.New("source does not exist")
	ErrEmptyDest     = errors.New("destination is empty")
)

// NeedsCopy reports whether dest must be refreshed from src: it
// is missing or differs in size. A missing source or an empty
// destination is an error.
func NeedsCopy(
	ctx context.Context, sys adapter.Adapter, src, dest string,
) (bool, error) {
	srcSize, ok, err := sys.FileSize(ctx, src)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%s: %w", src, ErrSourceMissing)
	}
	if dest == "" {
		return false, ErrEmptyDest
	}
	destSize, ok, err := sys.FileSize(ctx, dest)
	if err != nil {
		return false, err
	}
	return !ok || destSize != srcSize, nil
}

// FileCopy keeps dest in sync with src. The destination is
// located at Init time; when its owner is not installed the
// task reports a missing prerequisite instead of copying.
func FileCopy(name string, src PathFunc, dest LocateFunc) *task.Task {
	return &task.Task{
		Name:        name,
		Description: "copy a configuration file into place",
		Init: func(ctx context.Context, env task.Env) (task.State, error) {
			d, found, err := dest(ctx, env)
			if err != nil {
				return task.State{}, err
			}
			fields := map[string]any{
				"src":  orUnresolved(src(env.Config)),
				"dest": task.Unresolved,
			}
			if found {
				fields["dest"] = d
			}
			return task.NewState(fields), nil
		},
		Check: func(ctx context.Context, env task.Env, st task.State) (bool, error) {
			if st.IsUnresolved("dest") {
				return false, nil
			}
			need, err := NeedsCopy(ctx, env.System, st.String("src"), st.String("dest"))
			return !need, err
		},
		Run: func(ctx context.Context, env task.Env, st task.State) (bool, error) {
			if err := st.Require("dest", "src"); err != nil {
				return false, err
			}
			if err := env.System.CopyFile(ctx, st.String("src"), st.String("dest")); err != nil {
				return false, fmt.Errorf("copy %s: %w", st.String("src"), err)
			}
			return true, nil
		},
	}
}
