package adapter

import "strings"

// ListSeparator separates entries of a path list string.
const ListSeparator = ";"

// SplitPathList splits a ';'-separated list, dropping empty
// entries.
func SplitPathList(s string) []string {
	parts := strings.Split(s, ListSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinPathList joins entries with ListSeparator.
func JoinPathList(entries []string) string {
	return strings.Join(entries, ListSeparator)
}

// MergePathList appends the entries of toAdd to current and
// drops every entry named in toRemove. Comparison is
// case-insensitive, the first spelling of an entry wins and
// insertion order is preserved. An entry present in both toAdd
// and toRemove is excluded.
func MergePathList(
	current []string, toAdd, toRemove string,
) []string {
	remove := make(map[string]struct{})
	for _, p := range SplitPathList(toRemove) {
		remove[strings.ToLower(p)] = struct{}{}
	}

	candidates := make([]string, 0, len(current))
	candidates = append(candidates, current...)
	candidates = append(candidates, SplitPathList(toAdd)...)

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, p := range candidates {
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, drop := remove[key]; drop {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ContainsAllPaths reports whether every non-empty entry of
// the ';'-separated want list occurs in current, ignoring case.
func ContainsAllPaths(current []string, want string) bool {
	have := make(map[string]struct{}, len(current))
	for _, p := range current {
		have[strings.ToLower(p)] = struct{}{}
	}
	for _, p := range SplitPathList(want) {
		if _, ok := have[strings.ToLower(p)]; !ok {
			return false
		}
	}
	return true
}
