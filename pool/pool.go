// Package pool implements a region/arena allocator. Allocations made
// through a Pool are bulk-freed when the pool is destroyed; sub-pools and
// registered destructor callbacks let owners clean up non-trivial resources
// (open files, taint nodes with external state) alongside the raw memory.
//
// No other package in this module allocates through a Pool: the sort
// engine, range set, and sparse array use ordinary Go allocation.
package pool

import "sync"

// Pool is a bulk-free arena. The zero value is a usable, empty pool.
type Pool struct {
	mu       sync.Mutex
	subpools []*Pool
	closers  []func()
	closed   bool
}

// New returns a fresh, empty pool.
func New() *Pool {
	return &Pool{}
}

// Alloc returns a freshly zeroed byte slice of length n. The slice's backing
// array is not individually freed; it is reclaimed (by the garbage
// collector, following Go's ownership model) only once nothing references
// it, typically after the whole pool and everything it handed out has gone
// out of scope.
func (p *Pool) Alloc(n int) []byte {
	return make([]byte, n)
}

// Sub creates a new sub-pool whose destruction is triggered when p is
// destroyed, forming a tree of pools the way the C original nests pools for
// per-command and per-procedure lifetimes.
func (p *Pool) Sub() *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	child := New()
	p.subpools = append(p.subpools, child)
	return child
}

// Register adds a callback to be invoked, in last-registered-first-invoked
// order, when p is destroyed. Use it to release resources a pool allocation
// merely wraps (e.g. an os.File backing a case tempfile's scratch storage).
func (p *Pool) Register(closer func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		closer()
		return
	}
	p.closers = append(p.closers, closer)
}

// Destroy runs every registered destructor (most-recently-registered
// first), then recursively destroys every sub-pool. Destroying a pool twice
// is a no-op.
func (p *Pool) Destroy() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	closers := p.closers
	p.closers = nil
	subpools := p.subpools
	p.subpools = nil
	p.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	for _, sp := range subpools {
		sp.Destroy()
	}
}
