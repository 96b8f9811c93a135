// Package rangeset implements a set of disjoint half-open uint64 intervals
// [start, start+count), ordered by start and stored in an abt.Tree. Its
// users keep the free row indices of a spill file in one, and so it needs
// to answer "is position P in the set" and "take up to N positions from
// the first range" cheaply even when lookups are mostly sequential — hence
// the one-entry Contains cache, the same shape as original_source's
// range-set.c cache_start/cache_end/cache_value fields.
package rangeset

import "github.com/cprocess/caseengine/abt"

// Range is one contained interval [Start, Start+Count).
type Range struct {
	Start, Count uint64
}

func (r Range) End() uint64 { return r.Start + r.Count }

type interval struct {
	start, count uint64
}

func cmp(a, b *interval) int {
	switch {
	case a.start < b.start:
		return -1
	case a.start > b.start:
		return 1
	default:
		return 0
	}
}

// Set is a set of disjoint, non-adjacent half-open uint64 intervals.
// Adjacent or overlapping intervals are always merged on insert, so no two
// stored intervals ever touch. The zero Set is not usable; use New.
type Set struct {
	tree *abt.Tree[*interval]

	// lookup cache: the result of the most recent Contains query,
	// invalidated by any Insert or Delete. Scan neither reads nor fills it.
	cacheValid bool
	cacheStart uint64
	cacheEnd   uint64
	cacheFree  bool // true if [cacheStart,cacheEnd) is a known-free gap
}

// New returns an empty range set.
func New() *Set {
	return &Set{tree: abt.New(abt.Comparator[*interval](cmp), nil)}
}

func (s *Set) invalidateCache() { s.cacheValid = false }

// floor returns the node whose interval either contains position or is the
// rightmost interval starting at or before position, plus its abt.Node.
func (s *Set) floor(position uint64) *abt.Node[*interval] {
	node := s.tree.Root()
	var best *abt.Node[*interval]
	for node != nil {
		if node.Value.start <= position {
			best = node
			node = node.Right()
		} else {
			node = node.Left()
		}
	}
	return best
}

// Contains reports whether position lies within some contained range.
func (s *Set) Contains(position uint64) bool {
	if s.cacheValid && position >= s.cacheStart && position < s.cacheEnd {
		return !s.cacheFree
	}
	n := s.floor(position)
	if n != nil && position < n.Value.start+n.Value.count {
		s.cacheValid = true
		s.cacheStart = n.Value.start
		s.cacheEnd = n.Value.start + n.Value.count
		s.cacheFree = false
		return true
	}
	// Cache the free gap between n (or 0) and the next interval.
	s.cacheValid = true
	if n != nil {
		s.cacheStart = n.Value.start + n.Value.count
	} else {
		s.cacheStart = 0
	}
	if next := s.nextAfter(n); next != nil {
		s.cacheEnd = next.Value.start
	} else {
		s.cacheEnd = ^uint64(0)
	}
	s.cacheFree = true
	return false
}

func (s *Set) nextAfter(n *abt.Node[*interval]) *abt.Node[*interval] {
	if n == nil {
		return s.tree.First()
	}
	return s.tree.Next(n)
}

// Scan returns the start of the first contained range at or after
// position, and true, or (0, false) if no such range exists.
func (s *Set) Scan(position uint64) (uint64, bool) {
	n := s.floor(position)
	if n != nil && position < n.Value.start+n.Value.count {
		return position, true
	}
	n = s.nextAfter(n)
	if n == nil {
		return 0, false
	}
	return n.Value.start, true
}

// Insert adds [start, start+count) to the set, merging with any
// overlapping or adjacent existing ranges.
func (s *Set) Insert(start, count uint64) {
	if count == 0 {
		return
	}
	s.invalidateCache()
	end := start + count

	// Absorb every existing interval that overlaps or touches
	// [start, end), widening [start, end) to their union, then delete them.
	var toDelete []*abt.Node[*interval]
	n := s.floor(start)
	if n == nil {
		n = s.tree.First()
	} else if n.Value.start+n.Value.count < start {
		n = s.tree.Next(n)
	}
	for n != nil && n.Value.start <= end {
		if n.Value.start < start {
			start = n.Value.start
		}
		if n.Value.start+n.Value.count > end {
			end = n.Value.start + n.Value.count
		}
		toDelete = append(toDelete, n)
		n = s.tree.Next(n)
	}
	for _, d := range toDelete {
		s.tree.Delete(d)
	}
	s.tree.Insert(&interval{start: start, count: end - start})
}

// Delete removes [start, start+count) from the set, splitting any
// interval that only partially overlaps it.
func (s *Set) Delete(start, count uint64) {
	if count == 0 {
		return
	}
	s.invalidateCache()
	end := start + count

	n := s.floor(start)
	if n != nil && n.Value.start+n.Value.count <= start {
		n = s.tree.Next(n)
	}
	for n != nil && n.Value.start < end {
		next := s.tree.Next(n)
		iStart, iEnd := n.Value.start, n.Value.start+n.Value.count
		left := iStart < start
		right := iEnd > end
		switch {
		case left && right:
			n.Value.count = start - iStart
			s.tree.Insert(&interval{start: end, count: iEnd - end})
		case left:
			n.Value.count = start - iStart
		case right:
			s.tree.Delete(n)
			s.tree.Insert(&interval{start: end, count: iEnd - end})
		default:
			s.tree.Delete(n)
		}
		n = next
	}
}

// Ranges returns every contained interval in ascending order. Intended for
// tests and diagnostics.
func (s *Set) Ranges() []Range {
	var out []Range
	for n := s.tree.First(); n != nil; n = s.tree.Next(n) {
		out = append(out, Range{Start: n.Value.start, Count: n.Value.count})
	}
	return out
}

// Allocate takes the first contained range by position, whatever its
// length, and marks up to count of its leading positions as no longer
// contained (as if by Delete), returning its start position and how many
// positions were actually allocated (min(range length, count)). It does
// not search further ranges looking for a better fit, so it reports false
// only when the set is empty.
func (s *Set) Allocate(count uint64) (uint64, uint64, bool) {
	n := s.tree.First()
	if n == nil {
		return 0, 0, false
	}
	start := n.Value.start
	width := n.Value.count
	if width > count {
		width = count
	}
	s.Delete(start, width)
	return start, width, true
}

// AllocateFully behaves like Allocate, but only succeeds if count positions
// are available as one contiguous contained range starting exactly at
// start; it does not search for a range elsewhere.
func (s *Set) AllocateFully(start, count uint64) bool {
	n := s.floor(start)
	if n == nil || n.Value.start != start || n.Value.count < count {
		return false
	}
	s.Delete(start, count)
	return true
}

// IsEmpty reports whether the set contains no ranges at all.
func (s *Set) IsEmpty() bool { return s.tree.Count() == 0 }
