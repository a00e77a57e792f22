package permission

import (
	"encoding/json"
	"sort"
)

// Set is an immutable-by-convention set of permission identifiers. Only
// membership is observable; order is not.
//
// The zero value is an empty set ready to use.
type Set struct {
	m map[string]struct{}
}

// NewSet builds a set from names. Empty names are ignored.
func NewSet(names ...string) Set {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		m[n] = struct{}{}
	}
	return Set{m: m}
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s.m[name]
	return ok
}

// HasAny reports whether at least one of names is in the set. An empty
// requirement list is satisfied.
func (s Set) HasAny(names ...string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if s.Has(n) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of names is in the set.
func (s Set) HasAll(names ...string) bool {
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// Len returns the number of identifiers.
func (s Set) Len() int {
	return len(s.m)
}

// Slice returns the identifiers sorted lexically.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s.m))
	for n := range s.m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same identifiers.
func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for n := range s.m {
		if !other.Has(n) {
			return false
		}
	}
	return true
}

// Union returns a new set holding the identifiers of both sets.
func (s Set) Union(other Set) Set {
	m := make(map[string]struct{}, len(s.m)+len(other.m))
	for n := range s.m {
		m[n] = struct{}{}
	}
	for n := range other.m {
		m[n] = struct{}{}
	}
	return Set{m: m}
}

// Without returns a new set with every identifier of other removed.
func (s Set) Without(other Set) Set {
	m := make(map[string]struct{}, len(s.m))
	for n := range s.m {
		if other.Has(n) {
			continue
		}
		m[n] = struct{}{}
	}
	return Set{m: m}
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes a JSON array of identifiers.
func (s *Set) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewSet(names...)
	return nil
}
