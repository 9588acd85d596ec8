package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"digital.vasic.provision/pkg/adapter"
	"digital.vasic.provision/pkg/task"
)

// PathFunc derives a path or value from the pass configuration.
type PathFunc func(cfg *task.Config) string

// Fixed returns p unchanged.
func Fixed(p string) PathFunc {
	return func(*task.Config) string { return p }
}

// ToolsPath joins elems onto the tools root.
func ToolsPath(elems ...string) PathFunc {
	return func(cfg *task.Config) string {
		return joinUnder(cfg.ToolsRoot(), elems)
	}
}

// ConfPath joins elems onto the configuration directory.
func ConfPath(elems ...string) PathFunc {
	return func(cfg *task.Config) string {
		return joinUnder(cfg.ConfDir(), elems)
	}
}

// Setting returns the configured value key, or fallback.
func Setting(key, fallback string) PathFunc {
	return func(cfg *task.Config) string {
		return cfg.ValueOr(key, fallback)
	}
}

func joinUnder(root string, elems []string) string {
	if root == "" {
		return ""
	}
	return filepath.Join(append([]string{root}, elems...)...)
}

// LocateFunc resolves a path from live system state. found is
// false when the owning product is not installed.
type LocateFunc func(
	ctx context.Context, env task.Env,
) (p string, found bool, err error)

// FromKeyValue locates a path by reading a string value and
// rewriting it with a case-insensitive pattern. A value that
// does not match pattern counts as not found.
func FromKeyValue(
	scope adapter.Scope,
	keyPath, valueName string,
	pattern, replacement string,
) LocateFunc {
	re := regexp.MustCompile("(?i)" + pattern)
	return func(ctx context.Context, env task.Env) (string, bool, error) {
		v, found, err := env.System.ProbeKeyValue(ctx, scope, keyPath, valueName)
		if err != nil {
			return "", false, fmt.Errorf("read %s\\%s: %w", keyPath, valueName, err)
		}
		if !found || v.Kind != adapter.KindString || v.Str == "" {
			return "", false, nil
		}
		if !re.MatchString(v.Str) {
			return "", false, nil
		}
		return re.ReplaceAllString(v.Str, replacement), true, nil
	}
}
