package task

import "fmt"

type unresolvedMarker struct{}

func (unresolvedMarker) String() string { return "<unresolved>" }

// Unresolved marks a State field whose value Init expected but
// could not find (for example, a product that is not
// installed).
var Unresolved any = unresolvedMarker{}

// State is the private, write-once data of one task instance.
// It is populated by Init and only read afterwards.
type State struct {
	values map[string]any
}

// NewState builds a State from a copy of values.
func NewState(values map[string]any) State {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return State{values: cp}
}

// Get returns the raw value stored under key.
func (s State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present, resolved or not.
func (s State) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// IsUnresolved reports whether key is missing or carries the
// Unresolved marker.
func (s State) IsUnresolved(key string) bool {
	v, ok := s.values[key]
	return !ok || v == Unresolved
}

// String returns the value under key formatted as a string,
// or "" when it is missing or unresolved.
func (s State) String(key string) string {
	if s.IsUnresolved(key) {
		return ""
	}
	switch v := s.values[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns the []string value under key, or nil.
func (s State) Strings(key string) []string {
	v, _ := s.values[key].([]string)
	if v == nil {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}

// Len returns the number of fields.
func (s State) Len() int { return len(s.values) }

// Require returns ErrPrerequisiteMissing naming the first
// unresolved key.
func (s State) Require(keys ...string) error {
	for _, k := range keys {
		if s.IsUnresolved(k) {
			return fmt.Errorf("%s: %w", k, ErrPrerequisiteMissing)
		}
	}
	return nil
}
