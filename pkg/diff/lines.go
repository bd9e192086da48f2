package diff

import (
	"encoding/json"
	"sort"
	"strings"
)

// LineSet is an unordered set of list entries (domains or wildcards).
type LineSet map[string]struct{}

// NewLineSet builds a set from entries.
func NewLineSet(entries ...string) LineSet {
	s := make(LineSet, len(entries))
	for _, e := range entries {
		s[e] = struct{}{}
	}
	return s
}

// ParseLines splits a published list into a set. Surrounding whitespace is
// trimmed and blank lines are dropped.
func ParseLines(raw []byte) LineSet {
	s := make(LineSet)
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s[line] = struct{}{}
	}
	return s
}

// Has reports whether entry is in the set.
func (s LineSet) Has(entry string) bool {
	_, ok := s[entry]
	return ok
}

// Sorted returns the entries in lexical order.
func (s LineSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s LineSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// DiffLines returns the entries of newSet missing from oldSet. The new state
// is authoritative, so removals are not reported.
func DiffLines(oldSet, newSet LineSet) LineSet {
	out := make(LineSet)
	for e := range newSet {
		if !oldSet.Has(e) {
			out[e] = struct{}{}
		}
	}
	return out
}

// EqualLines reports whether both sets hold the same entries.
func EqualLines(a, b LineSet) bool {
	if len(a) != len(b) {
		return false
	}
	for e := range a {
		if !b.Has(e) {
			return false
		}
	}
	return true
}
