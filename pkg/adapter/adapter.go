// Package adapter defines the System Adapter: the blocking
// primitives the provisioning engine uses to read and change
// host state (hierarchical key/value store, environment
// variables, files, shortcuts and privilege elevation).
//
// Tasks never touch the host directly. Every side effect flows
// through an Adapter, which keeps the engine testable with the
// in-memory implementation.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrElevationRequired is returned (possibly wrapped) by an
// operation that needs heightened OS privileges the process
// does not hold.
var ErrElevationRequired = errors.New("elevation required")

// ErrInvalidScope is returned for an unknown Scope value.
var ErrInvalidScope = errors.New("invalid scope")

// Scope selects the machine-wide or per-user half of a store.
type Scope string

const (
	// ScopeMachine addresses machine-wide settings. Writes to
	// this scope usually require elevation.
	ScopeMachine Scope = "machine"
	// ScopeUser addresses settings of the current user.
	ScopeUser Scope = "user"
)

// Validate reports whether s is a known scope.
func (s Scope) Validate() error {
	switch s {
	case ScopeMachine, ScopeUser:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidScope, string(s))
}

// ValueKind tags the representation held by a Value.
type ValueKind string

const (
	// KindString is a string value.
	KindString ValueKind = "string"
	// KindDWORD is a 32-bit unsigned integer value.
	KindDWORD ValueKind = "dword"
)

// Value is a typed entry of the key/value store.
type Value struct {
	Kind  ValueKind `yaml:"kind" json:"kind"`
	Str   string    `yaml:"str,omitempty" json:"str,omitempty"`
	DWORD uint32    `yaml:"dword,omitempty" json:"dword,omitempty"`
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// DWORDValue returns a DWORD Value.
func DWORDValue(n uint32) Value {
	return Value{Kind: KindDWORD, DWORD: n}
}

// Equal reports whether two values have the same kind and
// content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == KindDWORD {
		return v.DWORD == o.DWORD
	}
	return v.Str == o.Str
}

// String renders the value for logs and reports.
func (v Value) String() string {
	if v.Kind == KindDWORD {
		return strconv.FormatUint(uint64(v.DWORD), 10)
	}
	return v.Str
}

// Shortcut describes a launcher file pointing at a target
// program.
type Shortcut struct {
	Path        string `yaml:"path" json:"path"`
	Target      string `yaml:"target" json:"target"`
	WorkDir     string `yaml:"work_dir,omitempty" json:"work_dir,omitempty"`
	Args        string `yaml:"args,omitempty" json:"args,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Adapter is the contract between the provisioning core and
// the host. Lookups return (value, found, err): found=false
// with a nil error is an expected absence, a non-nil error is
// a fault.
type Adapter interface {
	// ProbeKeyValue reads a named value under path.
	ProbeKeyValue(
		ctx context.Context, scope Scope, path, name string,
	) (Value, bool, error)

	// SetKeyValue writes a named value under path, creating
	// the path as needed.
	SetKeyValue(
		ctx context.Context,
		scope Scope, path, name string, v Value,
	) error

	// GetEnvVar reads a persistent environment variable.
	GetEnvVar(
		ctx context.Context, name string,
	) (string, bool, error)

	// GetEnvVarScope reads a persistent environment variable
	// from one scope only, ignoring any value another scope
	// would shadow it with.
	GetEnvVarScope(
		ctx context.Context, name string, scope Scope,
	) (string, bool, error)

	// SetEnvVar writes a persistent environment variable.
	SetEnvVar(
		ctx context.Context, name, value string, scope Scope,
	) error

	// MergePathList merges ';'-separated additions into a
	// path list. See the package-level MergePathList.
	MergePathList(
		current []string, toAdd, toRemove string,
	) []string

	// FileExists reports whether path names a regular file.
	FileExists(ctx context.Context, path string) (bool, error)

	// FileSize returns the size of a regular file.
	FileSize(
		ctx context.Context, path string,
	) (int64, bool, error)

	// CopyFile copies src over dest.
	CopyFile(ctx context.Context, src, dest string) error

	// CreateShortcut writes a launcher file.
	CreateShortcut(ctx context.Context, s Shortcut) error

	// ListDir returns the base names of entries in dir. A
	// missing directory yields an empty list.
	ListDir(ctx context.Context, dir string) ([]string, error)

	// IsElevated reports whether the process holds elevated
	// privileges.
	IsElevated(ctx context.Context) (bool, error)

	// RequestElevation relaunches the program elevated with
	// the given arguments.
	RequestElevation(
		ctx context.Context, relaunchArgs []string,
	) error
}

// IsElevationRequired reports whether err signals a privilege
// shortfall.
func IsElevationRequired(err error) bool {
	return errors.Is(err, ErrElevationRequired)
}
