// Package tower implements a sequence of variable-height blocks, each
// queryable by its cumulative offset ("level") in O(log n): level 0..size-1
// falls in the first block, size..size+size2-1 in the second, and so on.
// It translates an absolute offset into the block that holds it without a
// linear scan; no other package in this module builds on it.
//
// Built directly on abt.Tree in sequenced mode: each tower node carries a
// size and an aggregate subtree size, recomputed by a Reaugment callback
// exactly the way original_source's tower.c recomputes
// reaugment_tower_node's subtree_size after every insert, delete, and
// size change. Lookups walk the tree comparing the sought level against
// each node's left-subtree size, the tower equivalent of an
// order-statistics tree's rank search; a one-entry cache remembers the
// most recent lookup so a sequential scan (the common case) stays O(1) per
// step instead of O(log n), matching tower.c's cache_bottom/cache_node.
package tower

import "github.com/cprocess/caseengine/abt"

type block struct {
	size        uint64
	subtreeSize uint64
	handle      *Node // the one Node handed out for this block
}

func reaugment(n *abt.Node[*block]) {
	total := n.Value.size
	if left := n.Left(); left != nil {
		total += left.Value.subtreeSize
	}
	if right := n.Right(); right != nil {
		total += right.Value.subtreeSize
	}
	n.Value.subtreeSize = total
}

// Node is a handle to one block in a Tower.
type Node struct {
	n *abt.Node[*block]
}

// Size returns the node's own height.
func (nd *Node) Size() uint64 { return nd.n.Value.size }

// Tower is a sequence of blocks addressable by cumulative offset.
type Tower struct {
	tree *abt.Tree[*block]

	cacheValid bool
	cacheStart uint64
	cacheNode  *abt.Node[*block]
}

// New returns an empty tower.
func New() *Tower {
	return &Tower{tree: abt.New[*block](nil, reaugment)}
}

func (t *Tower) invalidateCache() {
	t.cacheValid = false
}

func wrap(n *abt.Node[*block]) *Node {
	if n == nil {
		return nil
	}
	if n.Value.handle == nil {
		n.Value.handle = &Node{n: n}
	}
	return n.Value.handle
}

// TotalSize returns the sum of every block's size.
func (t *Tower) TotalSize() uint64 {
	root := t.tree.Root()
	if root == nil {
		return 0
	}
	return root.Value.subtreeSize
}

// Count returns the number of blocks.
func (t *Tower) Count() int { return t.tree.Count() }

// InsertBefore inserts a new block of the given size immediately before
// at (nil appends at the end) and returns its node.
func (t *Tower) InsertBefore(at *Node, size uint64) *Node {
	t.invalidateCache()
	var atNode *abt.Node[*block]
	if at != nil {
		atNode = at.n
	}
	return wrap(t.tree.InsertBefore(atNode, &block{size: size}))
}

// InsertAfter inserts a new block of the given size immediately after at
// (nil prepends at the start) and returns its node.
func (t *Tower) InsertAfter(at *Node, size uint64) *Node {
	t.invalidateCache()
	var atNode *abt.Node[*block]
	if at != nil {
		atNode = at.n
	}
	return wrap(t.tree.InsertAfter(atNode, &block{size: size}))
}

// Delete removes n from the tower and returns the node now following its
// old position, or nil if n was last.
func (t *Tower) Delete(n *Node) *Node {
	t.invalidateCache()
	return wrap(t.tree.Delete(n.n))
}

// Resize changes n's own size in place, leaving its position unchanged.
func (t *Tower) Resize(n *Node, newSize uint64) {
	n.n.Value.size = newSize
	t.tree.Reaugmented(n.n)
	t.invalidateCache()
}

// First returns the first block, or nil if the tower is empty.
func (t *Tower) First() *Node { return wrap(t.tree.First()) }

// Last returns the last block, or nil if the tower is empty.
func (t *Tower) Last() *Node { return wrap(t.tree.Last()) }

// Next returns the block after n, or nil if n is last.
func (t *Tower) Next(n *Node) *Node { return wrap(t.tree.Next(n.n)) }

// Prev returns the block before n, or nil if n is first.
func (t *Tower) Prev(n *Node) *Node { return wrap(t.tree.Prev(n.n)) }

// Lookup finds the block containing absolute offset level and returns it
// along with that block's own starting offset. It reports false if level
// is at or beyond TotalSize.
func (t *Tower) Lookup(level uint64) (node *Node, start uint64, ok bool) {
	if t.cacheValid && level >= t.cacheStart && level < t.cacheStart+t.cacheNode.Value.size {
		return wrap(t.cacheNode), t.cacheStart, true
	}

	cur := t.tree.Root()
	var offset uint64
	for cur != nil {
		var leftSize uint64
		if left := cur.Left(); left != nil {
			leftSize = left.Value.subtreeSize
		}
		if level < leftSize {
			cur = cur.Left()
			continue
		}
		level -= leftSize
		if level < cur.Value.size {
			nodeStart := offset + leftSize
			t.cacheValid = true
			t.cacheStart = nodeStart
			t.cacheNode = cur
			return wrap(cur), nodeStart, true
		}
		level -= cur.Value.size
		offset += leftSize + cur.Value.size
		cur = cur.Right()
	}
	return nil, 0, false
}

// Splice moves the contiguous run of blocks [first,last] (inclusive) out
// of src and inserts them, in order, immediately before dstBefore in t
// (src may be t itself). dstBefore nil appends at t's end. The moved
// blocks keep their Node handles.
func (t *Tower) Splice(dstBefore *Node, src *Tower, first, last *Node) {
	cur := first
	for {
		next := src.Next(cur)
		src.invalidateCache()
		src.tree.Delete(cur.n)
		t.invalidateCache()
		var before *abt.Node[*block]
		if dstBefore != nil {
			before = dstBefore.n
		}
		cur.n = t.tree.InsertBefore(before, cur.n.Value)
		if cur == last {
			return
		}
		cur = next
	}
}
