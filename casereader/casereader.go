// Package casereader implements the pull-based case pipeline: a Reader
// yields owned cases one at a time until exhausted, a Writer accepts
// owned cases one at a time, and both can be built into chains — a
// translating reader wrapping a filtering reader wrapping a source reader
// — the way original_source's casereader.c/casewriter.c let every stage
// of a transformation pipeline look like "just another reader" to its
// consumer. Every Reader and Writer carries a taint.Node so that an I/O
// failure anywhere in a chain marks the whole chain tainted without each
// stage needing to check every other stage's error state directly.
package casereader

import (
	"github.com/cprocess/caseengine/taint"
	"github.com/cprocess/caseengine/value"
)

// Reader yields a sequence of owned cases.
type Reader interface {
	// Read returns the next case (true) or reports end of input (false,
	// nil) or a read error (false, err). The case is owned by the
	// caller, who must Destroy it.
	Read() (value.Case, bool, error)
	// Taint returns the reader's taint node, tracking whether it or any
	// upstream reader it depends on has failed.
	Taint() *taint.Node
	// Destroy releases any resources the reader holds.
	Destroy()
}

// Writer accepts a sequence of owned cases.
type Writer interface {
	// Write consumes c (taking ownership: the writer will Destroy it).
	Write(c value.Case) error
	Taint() *taint.Node
	// Destroy flushes and releases any resources the writer holds,
	// returning the first error encountered, if any.
	Destroy() error
}

// Cloner is implemented by readers that support being read more than
// once, independently, from the same starting position (e.g. a reader
// backed by an in-memory or on-disk random-access store). Readers backed
// by a one-shot stream (a pipe, a single pass over external storage) do
// not implement it.
type Cloner interface {
	Clone() Reader
}

// Peeker is implemented by readers that support inspecting the next case
// without consuming it.
type Peeker interface {
	Peek() (value.Case, bool, error)
}

// base is embedded by every stock Reader/Writer implementation in this
// package to provide its taint node.
type base struct {
	node *taint.Node
}

func newBase() base { return base{node: taint.New()} }

func (b *base) Taint() *taint.Node { return b.node }

// SliceReader reads owned clones of a fixed in-memory slice of cases, in
// order. It implements Cloner and Peeker, making it useful both as a
// pipeline source and as a stand-in for tests.
type SliceReader struct {
	base
	cases []value.Case
	pos   int
}

// NewSliceReader returns a Reader over cases. The slice's cases are
// cloned as they are read; the caller retains ownership of the originals
// and remains responsible for destroying them.
func NewSliceReader(cases []value.Case) *SliceReader {
	return &SliceReader{base: newBase(), cases: cases}
}

func (r *SliceReader) Read() (value.Case, bool, error) {
	if r.Taint().IsTainted() || r.pos >= len(r.cases) {
		return value.Case{}, false, nil
	}
	var c value.Case
	value.Clone(&c, r.cases[r.pos])
	r.pos++
	return c, true, nil
}

func (r *SliceReader) Peek() (value.Case, bool, error) {
	if r.Taint().IsTainted() || r.pos >= len(r.cases) {
		return value.Case{}, false, nil
	}
	var c value.Case
	value.Clone(&c, r.cases[r.pos])
	return c, true, nil
}

func (r *SliceReader) Clone() Reader {
	clone := &SliceReader{base: newBase(), cases: r.cases, pos: r.pos}
	taint.Propagate(r.Taint(), clone.Taint())
	return clone
}

func (r *SliceReader) Destroy() {}

// Count returns the number of cases remaining to be read.
func (r *SliceReader) Count() int { return len(r.cases) - r.pos }

// Translator applies a transform to every case read from src.
type Translator struct {
	base
	src       Reader
	transform func(value.Case) (value.Case, error)
}

// NewTranslator wraps src, applying transform to each case it yields.
// transform takes ownership of its input and returns a new owned case (it
// may simply mutate and return the same case).
func NewTranslator(src Reader, transform func(value.Case) (value.Case, error)) *Translator {
	t := &Translator{base: newBase(), src: src, transform: transform}
	taint.Propagate(src.Taint(), t.Taint())
	return t
}

func (t *Translator) Read() (value.Case, bool, error) {
	c, ok, err := t.src.Read()
	if err != nil || !ok {
		return value.Case{}, false, err
	}
	out, err := t.transform(c)
	if err != nil {
		t.Taint().Set()
		return value.Case{}, false, err
	}
	return out, true, nil
}

func (t *Translator) Destroy() { t.src.Destroy() }

// Counter wraps src, counting the cases successfully read through it
// without altering them.
type Counter struct {
	base
	src   Reader
	count int
}

// NewCounter wraps src.
func NewCounter(src Reader) *Counter {
	c := &Counter{base: newBase(), src: src}
	taint.Propagate(src.Taint(), c.Taint())
	return c
}

func (c *Counter) Read() (value.Case, bool, error) {
	cs, ok, err := c.src.Read()
	if ok {
		c.count++
	}
	return cs, ok, err
}

func (c *Counter) Destroy() { c.src.Destroy() }

// Count returns the number of cases read so far.
func (c *Counter) Count() int { return c.count }

// Named wraps src purely to attach a human-readable name, used when this
// stage originates a diagnostic, without renaming any underlying
// variable (variable identity is a dictionary concern, out of scope
// here).
type Named struct {
	base
	src  Reader
	Name string
}

// NewNamed wraps src with name.
func NewNamed(src Reader, name string) *Named {
	n := &Named{base: newBase(), src: src, Name: name}
	taint.Propagate(src.Taint(), n.Taint())
	return n
}

func (n *Named) Read() (value.Case, bool, error) { return n.src.Read() }
func (n *Named) Destroy()                        { n.src.Destroy() }
