package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// hive is the on-disk layout of the Local key/value and
// environment store.
type hive struct {
	Keys map[Scope]map[string]map[string]Value `yaml:"keys"`
	Env  map[Scope]map[string]string           `yaml:"env"`
}

func newHive() *hive {
	return &hive{
		Keys: make(map[Scope]map[string]map[string]Value),
		Env:  make(map[Scope]map[string]string),
	}
}

// Local is an Adapter backed by the host filesystem. The
// hierarchical key/value store and persistent environment
// variables live in a YAML hive file; environment writes are
// mirrored into the process environment.
type Local struct {
	mu           sync.Mutex
	hivePath     string
	guardMachine bool
	euid         func() int
	relaunch     func(ctx context.Context, args []string) error
}

// LocalOption configures a Local adapter.
type LocalOption func(*Local)

// WithMachineGuard controls whether machine-scope writes
// require elevation. Enabled by default.
func WithMachineGuard(enabled bool) LocalOption {
	return func(l *Local) {
		l.guardMachine = enabled
	}
}

// WithEUID overrides the effective uid source.
func WithEUID(f func() int) LocalOption {
	return func(l *Local) {
		l.euid = f
	}
}

// WithRelauncher overrides how RequestElevation relaunches the
// program.
func WithRelauncher(
	f func(ctx context.Context, args []string) error,
) LocalOption {
	return func(l *Local) {
		l.relaunch = f
	}
}

// NewLocal creates a Local adapter whose hive lives in
// stateDir.
func NewLocal(stateDir string, opts ...LocalOption) *Local {
	l := &Local{
		hivePath:     filepath.Join(stateDir, "hive.yaml"),
		guardMachine: true,
		euid:         os.Geteuid,
		relaunch:     sudoRelaunch,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// HivePath returns the path of the backing hive file.
func (l *Local) HivePath() string { return l.hivePath }

func (l *Local) load() (*hive, error) {
	data, err := os.ReadFile(l.hivePath)
	if errors.Is(err, fs.ErrNotExist) {
		return newHive(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hive %s: %w", l.hivePath, err)
	}
	h := newHive()
	if err := yaml.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf(
			"parse hive %s: %w", l.hivePath, err,
		)
	}
	if h.Keys == nil {
		h.Keys = make(map[Scope]map[string]map[string]Value)
	}
	if h.Env == nil {
		h.Env = make(map[Scope]map[string]string)
	}
	return h, nil
}

func (l *Local) save(h *hive) error {
	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal hive: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.hivePath), 0o755); err != nil {
		return permissionAware("create state dir", err)
	}
	tmp := l.hivePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return permissionAware("write hive", err)
	}
	if err := os.Rename(tmp, l.hivePath); err != nil {
		return permissionAware("replace hive", err)
	}
	return nil
}

func (l *Local) elevated() bool {
	return l.euid() == 0
}

func (l *Local) checkWrite(scope Scope, what string) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if scope == ScopeMachine && l.guardMachine && !l.elevated() {
		return fmt.Errorf(
			"write %s: %w", what, ErrElevationRequired,
		)
	}
	return nil
}

// ProbeKeyValue implements Adapter.
func (l *Local) ProbeKeyValue(
	_ context.Context, scope Scope, p, name string,
) (Value, bool, error) {
	if err := scope.Validate(); err != nil {
		return Value{}, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	h, err := l.load()
	if err != nil {
		return Value{}, false, err
	}
	v, ok := h.Keys[scope][hiveKey(p)][strings.ToLower(name)]
	return v, ok, nil
}

// SetKeyValue implements Adapter.
func (l *Local) SetKeyValue(
	_ context.Context, scope Scope, p, name string, v Value,
) error {
	if err := l.checkWrite(scope, p+`\`+name); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	h, err := l.load()
	if err != nil {
		return err
	}
	if h.Keys[scope] == nil {
		h.Keys[scope] = make(map[string]map[string]Value)
	}
	k := hiveKey(p)
	if h.Keys[scope][k] == nil {
		h.Keys[scope][k] = make(map[string]Value)
	}
	h.Keys[scope][k][strings.ToLower(name)] = v
	return l.save(h)
}

// GetEnvVar implements Adapter. Lookup order is user hive,
// machine hive, then the process environment.
func (l *Local) GetEnvVar(
	_ context.Context, name string,
) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, err := l.load()
	if err != nil {
		return "", false, err
	}
	key := strings.ToUpper(name)
	for _, scope := range []Scope{ScopeUser, ScopeMachine} {
		if v, ok := h.Env[scope][key]; ok {
			return v, true, nil
		}
	}
	v, ok := os.LookupEnv(name)
	return v, ok, nil
}

// GetEnvVarScope implements Adapter. A machine-scope variable
// missing from the hive falls back to the process environment.
func (l *Local) GetEnvVarScope(
	_ context.Context, name string, scope Scope,
) (string, bool, error) {
	if err := scope.Validate(); err != nil {
		return "", false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	h, err := l.load()
	if err != nil {
		return "", false, err
	}
	if v, ok := h.Env[scope][strings.ToUpper(name)]; ok {
		return v, true, nil
	}
	if scope != ScopeMachine {
		return "", false, nil
	}
	v, ok := os.LookupEnv(name)
	return v, ok, nil
}

// SetEnvVar implements Adapter.
func (l *Local) SetEnvVar(
	_ context.Context, name, value string, scope Scope,
) error {
	if err := l.checkWrite(scope, "env "+name); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	h, err := l.load()
	if err != nil {
		return err
	}
	if h.Env[scope] == nil {
		h.Env[scope] = make(map[string]string)
	}
	h.Env[scope][strings.ToUpper(name)] = value
	if err := l.save(h); err != nil {
		return err
	}
	return os.Setenv(name, value)
}

// MergePathList implements Adapter.
func (l *Local) MergePathList(
	current []string, toAdd, toRemove string,
) []string {
	return MergePathList(current, toAdd, toRemove)
}

// FileExists implements Adapter.
func (l *Local) FileExists(
	ctx context.Context, p string,
) (bool, error) {
	_, ok, err := l.FileSize(ctx, p)
	return ok, err
}

// FileSize implements Adapter.
func (l *Local) FileSize(
	_ context.Context, p string,
) (int64, bool, error) {
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return 0, false, nil
	}
	return info.Size(), true, nil
}

// CopyFile implements Adapter. Permission faults are reported
// as ErrElevationRequired.
func (l *Local) CopyFile(
	_ context.Context, src, dest string,
) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return permissionAware("create "+filepath.Dir(dest), err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return permissionAware("create "+dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s -> %s: %w", src, dest, err)
	}
	return out.Close()
}

// CreateShortcut implements Adapter. The shortcut is written
// as a YAML descriptor at s.Path.
func (l *Local) CreateShortcut(
	_ context.Context, s Shortcut,
) error {
	if s.Path == "" || s.Target == "" {
		return fmt.Errorf("shortcut: path and target required")
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal shortcut: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return permissionAware("create "+filepath.Dir(s.Path), err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return permissionAware("write "+s.Path, err)
	}
	return nil
}

// ListDir implements Adapter.
func (l *Local) ListDir(
	_ context.Context, dir string,
) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// IsElevated implements Adapter.
func (l *Local) IsElevated(_ context.Context) (bool, error) {
	return l.elevated(), nil
}

// RequestElevation implements Adapter.
func (l *Local) RequestElevation(
	ctx context.Context, relaunchArgs []string,
) error {
	if l.elevated() {
		return nil
	}
	return l.relaunch(ctx, relaunchArgs)
}

// sudoRelaunch reruns the current executable under sudo,
// attached to the caller's terminal.
func sudoRelaunch(ctx context.Context, args []string) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	cmd := exec.CommandContext(
		ctx, "sudo", append([]string{self}, args...)...,
	)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("elevated relaunch: %w", err)
	}
	return nil
}

func permissionAware(what string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf(
			"%s: %w", what, errors.Join(ErrElevationRequired, err),
		)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func hiveKey(p string) string {
	return strings.ToLower(
		strings.Trim(strings.ReplaceAll(p, "/", `\`), `\`),
	)
}
