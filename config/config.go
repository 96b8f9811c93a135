// Package config centralizes the tunables every other package in this
// module otherwise has to take as constructor arguments: how many cases the
// sort engine holds in memory before spilling, the external sort's merge
// fan-in, and whether writes sync before returning. Built as a functional-
// options Workspace the way the teacher's segmentmanager/wal_writer pair
// takes its buffer size and directory as constructor parameters, but
// collected into one value so a caller wires it once rather than
// threading five separate arguments through every constructor.
package config

import "github.com/cprocess/caseengine/diag"

const (
	// DefaultMaxCasesInMemory is the number of cases the sort engine
	// holds in memory before it switches to an external merge sort.
	DefaultMaxCasesInMemory = 1024

	// DefaultMaxMergeOrder bounds how many runs the sort engine merges
	// in a single pass; matches original_source's sort.c MAX_MERGE_ORDER.
	DefaultMaxMergeOrder = 7

	// DefaultMinBuffers is the fewest cases the sort engine's workspace
	// must hold; below this Sort fails with ErrWorkspaceTooSmall; matches
	// original_source's sort.c MIN_BUFFERS.
	DefaultMinBuffers = 64
)

// Workspace collects the tunables shared across a case-processing
// pipeline. The zero Workspace is not valid; build one with New.
type Workspace struct {
	MaxCasesInMemory int
	MaxMergeOrder    int
	MinBuffers       int
	AsyncSync        bool
	Reporter         diag.Reporter
}

// Option configures a Workspace built by New.
type Option func(*Workspace)

// WithMaxCasesInMemory overrides DefaultMaxCasesInMemory.
func WithMaxCasesInMemory(n int) Option {
	return func(w *Workspace) { w.MaxCasesInMemory = n }
}

// WithMergeOrder overrides DefaultMaxMergeOrder.
func WithMergeOrder(n int) Option {
	return func(w *Workspace) { w.MaxMergeOrder = n }
}

// WithMinBuffers overrides DefaultMinBuffers.
func WithMinBuffers(n int) Option {
	return func(w *Workspace) { w.MinBuffers = n }
}

// WithAsyncSync makes writes to spilled storage return without waiting for
// fsync, trading durability for throughput. Off by default, the way the
// teacher's WAL writer always syncs after every entry.
func WithAsyncSync(async bool) Option {
	return func(w *Workspace) { w.AsyncSync = async }
}

// WithReporter sets the diag.Reporter diagnostics are sent to. Defaults to
// diag.Discard.
func WithReporter(r diag.Reporter) Option {
	return func(w *Workspace) { w.Reporter = r }
}

// New builds a Workspace from its defaults, applying opts in order.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		MaxCasesInMemory: DefaultMaxCasesInMemory,
		MaxMergeOrder:    DefaultMaxMergeOrder,
		MinBuffers:       DefaultMinBuffers,
		Reporter:         diag.Discard,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}
