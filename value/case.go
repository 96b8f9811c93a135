package value

import (
	"bytes"

	"github.com/cprocess/caseengine/internal/assert"
)

// caseData is the shared, reference-counted backing store for one or more
// Case handles. Mutating it while refCount > 1 would be observed by every
// handle sharing it, which is exactly what Unshare exists to prevent.
type caseData struct {
	refCount int32
	slots    []Slot
}

// Case is a reference-counted, copy-on-write handle to a tuple of value
// slots. The zero Case is null: it has no slots and no backing store.
// Cloning a Case increments the backing store's refcount instead of
// copying; any write first privatizes the backing store if it is shared.
type Case struct {
	data *caseData
}

// NewCase allocates a fresh case of n slots with refcount 1. Slot contents
// are unspecified until explicitly written (here: zeroed, which is a valid
// but arbitrary choice of "indeterminate").
func NewCase(n int) Case {
	assert.Require(n >= 0, "value: negative slot count %d", n)
	return Case{data: &caseData{refCount: 1, slots: make([]Slot, n)}}
}

// IsNull reports whether c holds no backing store.
func (c Case) IsNull() bool {
	return c.data == nil
}

// NumSlots returns the number of value slots in c. c must not be null.
func (c Case) NumSlots() int {
	assert.Require(!c.IsNull(), "value: NumSlots on null case")
	return len(c.data.slots)
}

// Clone makes *dst a new reference to the same backing store as src,
// incrementing its refcount. dst and src may alias the same variable.
func Clone(dst *Case, src Case) {
	if src.IsNull() {
		*dst = Case{}
		return
	}
	src.data.refCount++
	*dst = Case{data: src.data}
}

// Move transfers ownership of src's backing store to *dst and nullifies
// src. After the call src.IsNull() is true.
func Move(dst *Case, src *Case) {
	if dst == src {
		return
	}
	*dst = *src
	*src = Case{}
}

// Destroy decrements c's refcount, freeing the backing store when it
// reaches zero, and nullifies *c either way.
func Destroy(c *Case) {
	if c.IsNull() {
		return
	}
	c.data.refCount--
	if c.data.refCount == 0 {
		scribble(c.data.slots)
	}
	*c = Case{}
}

// Unshare privatizes c's backing store (deep-copies it) iff it is currently
// shared (refcount > 1), so that subsequent writes through c are not
// observed by any other handle. A no-op if c is already uniquely owned.
func Unshare(c *Case) {
	assert.Require(!c.IsNull(), "value: Unshare on null case")
	if c.data.refCount <= 1 {
		return
	}
	old := c.data
	old.refCount--
	slots := make([]Slot, len(old.slots))
	copy(slots, old.slots)
	c.data = &caseData{refCount: 1, slots: slots}
}

// Resize changes c to hold newN slots, preserving the first
// min(old, newN) slots and unsharing in the process. If newN equals the
// current slot count this is a no-op (matching the C original, which skips
// the reallocation entirely in that case).
func Resize(c *Case, newN int) {
	assert.Require(!c.IsNull(), "value: Resize on null case")
	assert.Require(newN >= 0, "value: negative slot count %d", newN)
	oldN := len(c.data.slots)
	if oldN == newN {
		return
	}
	next := NewCase(newN)
	n := oldN
	if newN < n {
		n = newN
	}
	Copy(next, 0, *c, 0, n)
	Destroy(c)
	*c = next
}

// Copy copies n slots from src (starting at si) into dst (starting at di),
// unsharing dst first. Overlap between dst and src (including the case
// where they are the same backing store) is handled correctly.
func Copy(dst Case, di int, src Case, si int, n int) {
	assert.Require(!dst.IsNull() && !src.IsNull(), "value: Copy on null case")
	assert.Require(di+n <= dst.NumSlots(), "value: Copy dst range out of bounds")
	assert.Require(si+n <= src.NumSlots(), "value: Copy src range out of bounds")
	if n == 0 {
		return
	}
	if dst.data == src.data && di == si {
		return
	}
	Unshare(&dst)
	// copy() on overlapping slices of the same underlying array is defined
	// to behave like memmove, which is exactly what's needed here.
	copy(dst.data.slots[di:di+n], src.data.slots[si:si+n])
}

// SlotAt returns a copy of the raw slot at index idx, for code (e.g. a
// case's on-disk encoding) that moves slots without caring whether they
// hold a number or string data.
func (c Case) SlotAt(idx int) Slot {
	assert.Require(!c.IsNull(), "value: SlotAt on null case")
	return c.data.slots[idx]
}

// SetSlotAt unshares c and overwrites the raw slot at index idx.
func (c *Case) SetSlotAt(idx int, s Slot) {
	Unshare(c)
	c.data.slots[idx] = s
}

// NumAt reads the numeric value stored at slot index idx.
func (c Case) NumAt(idx int) float64 {
	assert.Require(!c.IsNull(), "value: NumAt on null case")
	return NumFromSlot(c.data.slots[idx])
}

// SetNumAt unshares c and writes v at slot index idx.
func (c *Case) SetNumAt(idx int, v float64) {
	Unshare(c)
	c.data.slots[idx] = NumSlot(v)
}

// StrAt returns a copy of the width bytes of string data starting at slot
// index idx.
func (c Case) StrAt(idx, width int) []byte {
	assert.Require(!c.IsNull(), "value: StrAt on null case")
	n := SlotsForWidth(width)
	buf := make([]byte, 0, n*SlotBytes)
	for i := 0; i < n; i++ {
		buf = append(buf, c.data.slots[idx+i][:]...)
	}
	return buf[:width]
}

// SetStrAt unshares c and writes b (space-padded or truncated to width)
// starting at slot index idx.
func (c *Case) SetStrAt(idx, width int, b []byte) {
	Unshare(c)
	padded := padString(b, width)
	n := SlotsForWidth(width)
	for i := 0; i < n; i++ {
		lo := i * SlotBytes
		hi := lo + SlotBytes
		if hi > len(padded) {
			hi = len(padded)
		}
		var s Slot
		copy(s[:], padded[lo:hi])
		for j := hi - lo; j < SlotBytes; j++ {
			s[j] = ' '
		}
		c.data.slots[idx+i] = s
	}
}

// CompareKey names one (a-slot, b-slot, width) triple participating in a
// lexicographic Case comparison: width 0 means "compare as IEEE double",
// width > 0 means "compare as width bytes of lexicographic string data".
type CompareKey struct {
	AIndex int
	BIndex int
	Width  int
}

// Compare performs a lexicographic comparison of a and b over the ordered
// list of keys, exactly the way the C original walks (variable, variable)
// pairs of equal width: numeric keys compare as IEEE doubles, string keys
// compare as raw bytes with no trailing-space folding. Returns a negative
// number, zero, or a positive number the way strcmp does.
func Compare(a, b Case, keys []CompareKey) int {
	for _, k := range keys {
		if k.Width <= 0 {
			av, bv := a.NumAt(k.AIndex), b.NumAt(k.BIndex)
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			continue
		}
		as := a.StrAt(k.AIndex, k.Width)
		bs := b.StrAt(k.BIndex, k.Width)
		if c := bytes.Compare(as, bs); c != 0 {
			return c
		}
	}
	return 0
}

// scribble overwrites freed slot storage with a recognizable pattern, the
// Go analogue of the C original's debug-build free-memory poisoning.
func scribble(slots []Slot) {
	for i := range slots {
		for j := range slots[i] {
			slots[i][j] = 0xcc
		}
	}
}
