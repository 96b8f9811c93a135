// Package sparsearray implements a sparse array mapping uint64 keys to
// fixed-size elements: a two-level radix trie where the top level maps a
// page number (key / pageSize) to a fixed-capacity page, and the bottom
// level is a flat slice plus a github.com/bits-and-blooms/bitset occupancy
// bitmap recording which of the page's slots have actually been set. A
// datasheet keeps its in-memory rows here, keyed by row number, and such
// uint64-keyed structures only ever touch a small, clustered
// subset of the key space, so paging avoids allocating anywhere near
// 2^64 elements while keeping access O(1) amortized per page lookup.
package sparsearray

import (
	"iter"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

const defaultPageSize = 128

type page[T any] struct {
	elems []T
	occ   *bitset.BitSet
}

func newPage[T any](pageSize uint64) *page[T] {
	return &page[T]{
		elems: make([]T, pageSize),
		occ:   bitset.New(uint(pageSize)),
	}
}

// Array is a sparse, page-backed map from uint64 to T. The zero value is
// not usable; use New.
type Array[T any] struct {
	pageSize uint64
	pages    map[uint64]*page[T]
	count    int
}

// New returns an empty sparse array using the default page size.
func New[T any]() *Array[T] {
	return NewWithPageSize[T](defaultPageSize)
}

// NewWithPageSize returns an empty sparse array whose pages each cover
// pageSize consecutive keys.
func NewWithPageSize[T any](pageSize uint64) *Array[T] {
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	return &Array[T]{pageSize: pageSize, pages: map[uint64]*page[T]{}}
}

func (a *Array[T]) split(key uint64) (pageNum, offset uint64) {
	return key / a.pageSize, key % a.pageSize
}

// Get returns the element at key and whether it was ever set.
func (a *Array[T]) Get(key uint64) (T, bool) {
	pageNum, offset := a.split(key)
	p, ok := a.pages[pageNum]
	if !ok || !p.occ.Test(uint(offset)) {
		var zero T
		return zero, false
	}
	return p.elems[offset], true
}

// Set stores v at key, creating its backing page if necessary.
func (a *Array[T]) Set(key uint64, v T) {
	pageNum, offset := a.split(key)
	p, ok := a.pages[pageNum]
	if !ok {
		p = newPage[T](a.pageSize)
		a.pages[pageNum] = p
	}
	if !p.occ.Test(uint(offset)) {
		p.occ.Set(uint(offset))
		a.count++
	}
	p.elems[offset] = v
}

// Delete removes the element at key, if any, and reports whether one was
// present. An emptied page is freed.
func (a *Array[T]) Delete(key uint64) bool {
	pageNum, offset := a.split(key)
	p, ok := a.pages[pageNum]
	if !ok || !p.occ.Test(uint(offset)) {
		return false
	}
	var zero T
	p.elems[offset] = zero
	p.occ.Clear(uint(offset))
	a.count--
	if p.occ.None() {
		delete(a.pages, pageNum)
	}
	return true
}

// Count returns the number of keys currently set.
func (a *Array[T]) Count() int { return a.count }

func (a *Array[T]) sortedPageNums() []uint64 {
	pageNums := make([]uint64, 0, len(a.pages))
	for pn := range a.pages {
		pageNums = append(pageNums, pn)
	}
	sort.Slice(pageNums, func(i, j int) bool { return pageNums[i] < pageNums[j] })
	return pageNums
}

// First returns the smallest key currently set, or (0, false) if the
// array is empty.
func (a *Array[T]) First() (uint64, bool) {
	for _, pn := range a.sortedPageNums() {
		if i, ok := a.pages[pn].occ.NextSet(0); ok {
			return pn*a.pageSize + uint64(i), true
		}
	}
	return 0, false
}

// Next returns the smallest set key strictly greater than key, or
// (0, false) if none exists.
func (a *Array[T]) Next(key uint64) (uint64, bool) {
	pageNum, offset := a.split(key)
	if p, ok := a.pages[pageNum]; ok {
		if i, ok := p.occ.NextSet(offset + 1); ok {
			return pageNum*a.pageSize + uint64(i), true
		}
	}
	for _, pn := range a.sortedPageNums() {
		if pn <= pageNum {
			continue
		}
		if i, ok := a.pages[pn].occ.NextSet(0); ok {
			return pn*a.pageSize + uint64(i), true
		}
	}
	return 0, false
}

// Prev returns the largest set key strictly less than key, or
// (0, false) if none exists.
func (a *Array[T]) Prev(key uint64) (uint64, bool) {
	pageNum, offset := a.split(key)
	if offset > 0 {
		if p, ok := a.pages[pageNum]; ok {
			if i, ok := p.occ.PreviousSet(offset - 1); ok {
				return pageNum*a.pageSize + uint64(i), true
			}
		}
	}
	pageNums := a.sortedPageNums()
	for i := len(pageNums) - 1; i >= 0; i-- {
		pn := pageNums[i]
		if pn >= pageNum {
			continue
		}
		if j, ok := a.pages[pn].occ.PreviousSet(a.pageSize - 1); ok {
			return pn*a.pageSize + uint64(j), true
		}
	}
	return 0, false
}

// All iterates every (key, value) pair in ascending key order.
func (a *Array[T]) All() iter.Seq2[uint64, T] {
	return func(yield func(uint64, T) bool) {
		pageNums := make([]uint64, 0, len(a.pages))
		for pn := range a.pages {
			pageNums = append(pageNums, pn)
		}
		sort.Slice(pageNums, func(i, j int) bool { return pageNums[i] < pageNums[j] })

		for _, pn := range pageNums {
			p := a.pages[pn]
			for i, e := p.occ.NextSet(0); e; i, e = p.occ.NextSet(i + 1) {
				key := pn*a.pageSize + uint64(i)
				if !yield(key, p.elems[i]) {
					return
				}
			}
		}
	}
}
