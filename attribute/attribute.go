// Package attribute implements the case-insensitively-keyed attribute sets
// that a case dictionary or a variable may carry: a name maps to an
// ordered, possibly sparse vector of string values, where array index 0 is
// the unindexed default.
//
// Recovered from original_source's attributes.c, which keeps a sorted array
// of {name, values[]} pairs rather than a general hash map; the distilled
// spec mentions attribute sets only in passing, so this follows the
// original's shape: a small sorted slice, binary-searched by folded name,
// rather than a map[string]... that would hide the "sorted, iterable in
// name order" behavior attributes.c actually provides.
package attribute

import (
	"sort"
	"strings"
)

// Pair is one named, indexed value vector.
type Pair struct {
	Name   string
	Values map[int]string
}

func fold(name string) string {
	return strings.ToLower(name)
}

// Set is a case-insensitively-keyed, name-ordered collection of attribute
// vectors. The zero Set is empty and ready to use.
type Set struct {
	pairs []Pair
}

func (s *Set) find(name string) (int, bool) {
	folded := fold(name)
	i := sort.Search(len(s.pairs), func(i int) bool {
		return fold(s.pairs[i].Name) >= folded
	})
	if i < len(s.pairs) && fold(s.pairs[i].Name) == folded {
		return i, true
	}
	return i, false
}

// Add sets the value at the given array index (0 = unindexed default) for
// name, creating the attribute if it doesn't already exist.
func (s *Set) Add(name string, index int, value string) {
	i, ok := s.find(name)
	if !ok {
		s.pairs = append(s.pairs, Pair{})
		copy(s.pairs[i+1:], s.pairs[i:])
		s.pairs[i] = Pair{Name: name, Values: map[int]string{}}
	}
	s.pairs[i].Values[index] = value
}

// Delete removes the entire named attribute. It reports whether the
// attribute existed.
func (s *Set) Delete(name string) bool {
	i, ok := s.find(name)
	if !ok {
		return false
	}
	s.pairs = append(s.pairs[:i], s.pairs[i+1:]...)
	return true
}

// Lookup returns the named attribute's value vector, case-insensitively.
func (s *Set) Lookup(name string) (map[int]string, bool) {
	i, ok := s.find(name)
	if !ok {
		return nil, false
	}
	return s.pairs[i].Values, true
}

// Names returns every attribute name present, in sorted (folded) order.
func (s *Set) Names() []string {
	names := make([]string, len(s.pairs))
	for i, p := range s.pairs {
		names[i] = p.Name
	}
	return names
}

// Clear removes every attribute from s.
func (s *Set) Clear() {
	s.pairs = nil
}

// Count returns the number of distinct attribute names in s.
func (s *Set) Count() int {
	return len(s.pairs)
}
