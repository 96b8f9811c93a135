package casefile

import (
	"github.com/cprocess/caseengine/deque"
	"github.com/cprocess/caseengine/rangeset"
	"github.com/cprocess/caseengine/taint"
	"github.com/cprocess/caseengine/value"
)

// Window is a FIFO queue of cases that holds up to maxCases in memory and
// automatically spills older cases to a TempFile once that threshold is
// exceeded, exactly the role original_source's casewindow.c plays between
// a sort's replacement-selection input buffer and the rest of the
// pipeline. Disk rows freed by popping the front are tracked in a
// rangeset.Set and reused by later spills, rather than letting the
// backing file grow without bound.
type Window struct {
	numSlots int
	maxCases int

	mem *deque.Deque[value.Case]

	disk      *TempFile
	diskOrder *deque.Deque[uint64] // disk row indices, in FIFO order
	free      *rangeset.Set
	highWater uint64

	node      *taint.Node
	asyncSync bool
}

// NewWindow returns an empty window holding cases of numSlots slots each,
// spilling to disk once more than maxCases cases have been pushed without
// being popped. The window owns a taint.Node of its own that is wired to
// propagate from its backing TempFile's node once one is allocated, so a
// spill I/O failure taints the window without the window needing to
// independently re-detect it.
func NewWindow(numSlots, maxCases int) *Window {
	return &Window{
		numSlots:  numSlots,
		maxCases:  maxCases,
		mem:       deque.New[value.Case](maxCases + 1),
		diskOrder: deque.New[uint64](0),
		free:      rangeset.New(),
		node:      taint.New(),
	}
}

// SetAsyncSync controls whether spilled writes skip the fsync that
// follows each one by default, mirroring config.Workspace.AsyncSync. It
// only affects the TempFile allocated for the window's first spill, so it
// must be called before the window has spilled anything.
func (w *Window) SetAsyncSync(async bool) { w.asyncSync = async }

// Taint returns the node tainted by this window's own I/O failures and by
// its backing TempFile's.
func (w *Window) Taint() *taint.Node { return w.node }

// Close releases the window's disk backing, if any was ever allocated.
func (w *Window) Close() error {
	if w.disk != nil {
		return w.disk.Close()
	}
	return nil
}

// Len returns the total number of cases currently queued, in memory and on
// disk combined.
func (w *Window) Len() int {
	return w.diskOrder.Len() + w.mem.Len()
}

// PushBack adds a clone of c to the back of the queue, spilling the
// current front to disk if the in-memory portion has grown past capacity.
func (w *Window) PushBack(c value.Case) error {
	var clone value.Case
	value.Clone(&clone, c)
	w.mem.PushBack(clone)
	if w.mem.Len() > w.maxCases {
		return w.spillOne()
	}
	return nil
}

func (w *Window) allocDiskRow() uint64 {
	if start, width, ok := w.free.Allocate(1); ok && width > 0 {
		return start
	}
	idx := w.highWater
	w.highWater++
	return idx
}

func (w *Window) spillOne() error {
	oldest, _ := w.mem.PopFront()
	if w.disk == nil {
		tf, err := NewTempFileAsync(w.numSlots, w.asyncSync)
		if err != nil {
			value.Destroy(&oldest)
			w.node.Set()
			return err
		}
		w.disk = tf
		taint.Propagate(tf.Taint(), w.node)
	}
	idx := w.allocDiskRow()
	if err := w.disk.PutCase(idx, oldest); err != nil {
		value.Destroy(&oldest)
		return err
	}
	value.Destroy(&oldest)
	w.diskOrder.PushBack(idx)
	return nil
}

// PopFront removes and returns the case at the front of the queue. It
// reports false if the queue is empty.
func (w *Window) PopFront() (value.Case, bool) {
	if w.diskOrder.Len() > 0 {
		idx, _ := w.diskOrder.PopFront()
		c := value.NewCase(w.numSlots)
		if err := w.disk.GetCase(idx, &c); err != nil {
			value.Destroy(&c)
			return value.Case{}, false
		}
		w.free.Insert(idx, 1)
		return c, true
	}
	return w.mem.PopFront()
}

// At returns a case at logical position i (0 = front) without removing
// it. The caller owns the returned case and must destroy it: disk-resident
// cases are read fresh from the backing file each call, and in-memory ones
// are returned as a new reference (value.Clone) to the window's copy.
func (w *Window) At(i int) (value.Case, bool) {
	if i < 0 || i >= w.Len() {
		return value.Case{}, false
	}
	if i < w.diskOrder.Len() {
		idx, _ := w.diskOrder.At(i)
		c := value.NewCase(w.numSlots)
		if err := w.disk.GetCase(idx, &c); err != nil {
			value.Destroy(&c)
			return value.Case{}, false
		}
		return c, true
	}
	c, ok := w.mem.At(i - w.diskOrder.Len())
	if !ok {
		return value.Case{}, false
	}
	var out value.Case
	value.Clone(&out, c)
	return out, true
}

// OnDisk reports whether the window has ever spilled a case to disk.
func (w *Window) OnDisk() bool { return w.disk != nil }
