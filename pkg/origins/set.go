package origins

import (
	"encoding/json"
	"strings"
)

// Set is an immutable, ordered list of distinct origins. Distinctness is
// case-insensitive; the first-seen casing is kept.
type Set struct {
	values []string
	index  map[string]struct{} // case-folded
}

// NewSet builds a Set from raw origin values in store order. Blank values are
// dropped and case-insensitive duplicates collapse onto the first occurrence.
func NewSet(raw []string) *Set {
	s := &Set{values: make([]string, 0, len(raw)), index: make(map[string]struct{}, len(raw))}
	for _, v := range raw {
		if strings.TrimSpace(v) == "" {
			continue
		}
		k := fold(v)
		if _, dup := s.index[k]; dup {
			continue
		}
		s.index[k] = struct{}{}
		s.values = append(s.values, v)
	}
	return s
}

// Len returns the number of distinct origins.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Values returns a copy of the origins in store order.
func (s *Set) Values() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}

// Contains reports whether origin is in the set, ignoring case. The input is
// not otherwise normalised: "http://x/" and "http://x" differ.
func (s *Set) Contains(origin string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[fold(origin)]
	return ok
}

// MarshalJSON encodes the set as a JSON array.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func fold(v string) string { return strings.ToLower(v) }
