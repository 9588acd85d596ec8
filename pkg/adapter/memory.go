package adapter

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// Operation names used by Memory for fault injection and call
// recording.
const (
	OpProbeKeyValue    = "ProbeKeyValue"
	OpSetKeyValue      = "SetKeyValue"
	OpGetEnvVar        = "GetEnvVar"
	OpGetEnvVarScope   = "GetEnvVarScope"
	OpSetEnvVar        = "SetEnvVar"
	OpFileExists       = "FileExists"
	OpFileSize         = "FileSize"
	OpCopyFile         = "CopyFile"
	OpCreateShortcut   = "CreateShortcut"
	OpListDir          = "ListDir"
	OpIsElevated       = "IsElevated"
	OpRequestElevation = "RequestElevation"
)

type memKey struct {
	scope Scope
	path  string
	name  string
}

// Memory is an in-memory Adapter. It is safe for concurrent
// use. Machine-scope writes fail with ErrElevationRequired
// while the adapter is not elevated.
type Memory struct {
	mu         sync.Mutex
	keys       map[memKey]Value
	env        map[Scope]map[string]string
	files      map[string][]byte
	shortcuts  map[string]Shortcut
	elevated   bool
	faults     map[string]error
	calls      []string
	elevations [][]string
}

// NewMemory returns an empty, elevated Memory adapter.
func NewMemory() *Memory {
	return &Memory{
		keys: make(map[memKey]Value),
		env: map[Scope]map[string]string{
			ScopeMachine: {},
			ScopeUser:    {},
		},
		files:     make(map[string][]byte),
		shortcuts: make(map[string]Shortcut),
		elevated:  true,
		faults:    make(map[string]error),
	}
}

// SetElevated toggles the simulated privilege level.
func (m *Memory) SetElevated(elevated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elevated = elevated
}

// FailOn makes every subsequent call of op return err. A nil
// err clears the fault.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// WriteFile seeds a file.
func (m *Memory) WriteFile(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[normPath(p)] = append([]byte(nil), data...)
}

// ReadFile returns a copy of a stored file.
func (m *Memory) ReadFile(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[normPath(p)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Shortcut returns a created shortcut by path.
func (m *Memory) Shortcut(p string) (Shortcut, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shortcuts[normPath(p)]
	return s, ok
}

// Calls returns the operations invoked so far, in order.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// ResetCalls clears the call log.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// ElevationRequests returns the argument lists passed to
// RequestElevation.
func (m *Memory) ElevationRequests() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.elevations))
	copy(out, m.elevations)
	return out
}

// begin records a call and returns its injected fault. The
// caller must hold m.mu.
func (m *Memory) begin(op string) error {
	m.calls = append(m.calls, op)
	return m.faults[op]
}

// requireElevation returns ErrElevationRequired for
// machine-scope writes made without elevation. The caller must
// hold m.mu.
func (m *Memory) requireElevation(scope Scope, what string) error {
	if scope == ScopeMachine && !m.elevated {
		return fmt.Errorf(
			"write %s: %w", what, ErrElevationRequired,
		)
	}
	return nil
}

// ProbeKeyValue implements Adapter. Paths and names are
// matched case-insensitively.
func (m *Memory) ProbeKeyValue(
	_ context.Context, scope Scope, p, name string,
) (Value, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpProbeKeyValue); err != nil {
		return Value{}, false, err
	}
	if err := scope.Validate(); err != nil {
		return Value{}, false, err
	}
	v, ok := m.keys[keyOf(scope, p, name)]
	return v, ok, nil
}

// SetKeyValue implements Adapter.
func (m *Memory) SetKeyValue(
	_ context.Context, scope Scope, p, name string, v Value,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpSetKeyValue); err != nil {
		return err
	}
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := m.requireElevation(scope, p+`\`+name); err != nil {
		return err
	}
	m.keys[keyOf(scope, p, name)] = v
	return nil
}

// GetEnvVar implements Adapter. The user scope shadows the
// machine scope; names are case-insensitive.
func (m *Memory) GetEnvVar(
	_ context.Context, name string,
) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpGetEnvVar); err != nil {
		return "", false, err
	}
	key := strings.ToUpper(name)
	if v, ok := m.env[ScopeUser][key]; ok {
		return v, true, nil
	}
	v, ok := m.env[ScopeMachine][key]
	return v, ok, nil
}

// GetEnvVarScope implements Adapter.
func (m *Memory) GetEnvVarScope(
	_ context.Context, name string, scope Scope,
) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpGetEnvVarScope); err != nil {
		return "", false, err
	}
	if err := scope.Validate(); err != nil {
		return "", false, err
	}
	v, ok := m.env[scope][strings.ToUpper(name)]
	return v, ok, nil
}

// SetEnvVar implements Adapter.
func (m *Memory) SetEnvVar(
	_ context.Context, name, value string, scope Scope,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpSetEnvVar); err != nil {
		return err
	}
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := m.requireElevation(scope, "env "+name); err != nil {
		return err
	}
	m.env[scope][strings.ToUpper(name)] = value
	return nil
}

// MergePathList implements Adapter.
func (m *Memory) MergePathList(
	current []string, toAdd, toRemove string,
) []string {
	return MergePathList(current, toAdd, toRemove)
}

// FileExists implements Adapter.
func (m *Memory) FileExists(
	_ context.Context, p string,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpFileExists); err != nil {
		return false, err
	}
	_, ok := m.files[normPath(p)]
	return ok, nil
}

// FileSize implements Adapter.
func (m *Memory) FileSize(
	_ context.Context, p string,
) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpFileSize); err != nil {
		return 0, false, err
	}
	data, ok := m.files[normPath(p)]
	return int64(len(data)), ok, nil
}

// CopyFile implements Adapter.
func (m *Memory) CopyFile(
	_ context.Context, src, dest string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpCopyFile); err != nil {
		return err
	}
	data, ok := m.files[normPath(src)]
	if !ok {
		return fmt.Errorf("copy %s: %w", src, fs.ErrNotExist)
	}
	m.files[normPath(dest)] = append([]byte(nil), data...)
	return nil
}

// CreateShortcut implements Adapter. The shortcut is also
// visible as a file so ListDir and FileExists observe it.
func (m *Memory) CreateShortcut(
	_ context.Context, s Shortcut,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpCreateShortcut); err != nil {
		return err
	}
	if s.Path == "" || s.Target == "" {
		return fmt.Errorf("shortcut: path and target required")
	}
	m.shortcuts[normPath(s.Path)] = s
	m.files[normPath(s.Path)] = []byte(s.Target)
	return nil
}

// ListDir implements Adapter.
func (m *Memory) ListDir(
	_ context.Context, dir string,
) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpListDir); err != nil {
		return nil, err
	}
	d := normPath(dir)
	var out []string
	for p := range m.files {
		if path.Dir(p) == d {
			out = append(out, path.Base(p))
		}
	}
	sort.Strings(out)
	return out, nil
}

// IsElevated implements Adapter.
func (m *Memory) IsElevated(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpIsElevated); err != nil {
		return false, err
	}
	return m.elevated, nil
}

// RequestElevation implements Adapter. It records the request
// and does not change the privilege level.
func (m *Memory) RequestElevation(
	_ context.Context, relaunchArgs []string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpRequestElevation); err != nil {
		return err
	}
	m.elevations = append(
		m.elevations, append([]string(nil), relaunchArgs...),
	)
	return nil
}

func keyOf(scope Scope, p, name string) memKey {
	return memKey{
		scope: scope,
		path:  strings.ToLower(strings.Trim(p, `\/`)),
		name:  strings.ToLower(name),
	}
}

// normPath folds both separator styles to '/'.
func normPath(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}
