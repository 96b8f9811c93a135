package casereader

import (
	"github.com/cprocess/caseengine/casefile"
	"github.com/cprocess/caseengine/taint"
	"github.com/cprocess/caseengine/value"
)

// WindowSink is a Writer that pushes every case it receives onto the back
// of a casefile.Window, the usual terminus of a pipeline feeding a sort
// or a subsequent random-access pass.
type WindowSink struct {
	base
	win *casefile.Window
}

// NewWindowSink wraps win, propagating from win's own taint node (which in
// turn propagates from whatever TempFile win spills to) rather than
// keeping an independently-set node of its own.
func NewWindowSink(win *casefile.Window) *WindowSink {
	w := &WindowSink{base: newBase(), win: win}
	taint.Propagate(win.Taint(), w.Taint())
	return w
}

func (w *WindowSink) Write(c value.Case) error {
	defer value.Destroy(&c)
	return w.win.PushBack(c)
}

func (w *WindowSink) Destroy() error {
	return w.win.Close()
}

// Window returns the underlying window, for a caller that wants to read
// back what was written.
func (w *WindowSink) Window() *casefile.Window { return w.win }

// NullSink discards every case it receives, optionally counting them.
type NullSink struct {
	base
	count int
}

// NewNullSink returns a Writer that discards everything.
func NewNullSink() *NullSink {
	return &NullSink{base: newBase()}
}

func (n *NullSink) Write(c value.Case) error {
	value.Destroy(&c)
	n.count++
	return nil
}

func (n *NullSink) Destroy() error { return nil }

// Count returns the number of cases discarded so far.
func (n *NullSink) Count() int { return n.count }

// SliceWriter accumulates every case it receives, in order, into an
// in-memory slice retrievable with Cases. Mainly useful for tests and for
// small, exploratory pipelines run from the CLI.
type SliceWriter struct {
	base
	cases []value.Case
}

// NewSliceWriter returns an empty SliceWriter.
func NewSliceWriter() *SliceWriter {
	return &SliceWriter{base: newBase()}
}

func (s *SliceWriter) Write(c value.Case) error {
	s.cases = append(s.cases, c)
	return nil
}

func (s *SliceWriter) Destroy() error {
	for i := range s.cases {
		value.Destroy(&s.cases[i])
	}
	s.cases = nil
	return nil
}

// Cases returns the cases accumulated so far. The caller must not mutate
// or destroy them directly; use Destroy on the writer to release them.
func (s *SliceWriter) Cases() []value.Case { return s.cases }
