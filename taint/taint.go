// Package taint implements a pluggable error-flag propagation graph. Every
// casereader, casewriter, casewindow, and case tempfile owns a Node; tainting
// a node taints every node reachable through its outgoing propagation edges.
//
// The graph may contain cycles (a clone of a clone of a reader can in
// principle be wired back into its own ancestry via propagate). Rather than
// use weak references to sidestep reference cycles at the ownership level,
// Node keeps plain owned pointers to its downstream edges: Go's tracing
// collector reclaims cycles without help, so the extra indirection a
// weak-pointer scheme would need buys nothing here.
package taint

// Node is one vertex in the taint propagation graph.
type Node struct {
	tainted bool
	edges   []*Node
}

// New returns a fresh, untainted node.
func New() *Node {
	return &Node{}
}

// IsTainted reports whether n has ever been tainted.
func (n *Node) IsTainted() bool {
	return n.tainted
}

// Set marks n, and every node reachable from n through outgoing edges, as
// tainted. Traversal is a fixed-point search over the (possibly cyclic)
// graph: a visited set prevents infinite recursion on cycles.
func (n *Node) Set() {
	if n.tainted {
		return
	}
	visited := map[*Node]bool{}
	var walk func(*Node)
	walk = func(cur *Node) {
		if visited[cur] {
			return
		}
		visited[cur] = true
		cur.tainted = true
		for _, e := range cur.edges {
			walk(e)
		}
	}
	walk(n)
}

// Propagate adds an edge src -> dst: from now on, tainting src also taints
// dst. If src is already tainted, dst is tainted immediately.
func Propagate(src, dst *Node) {
	src.edges = append(src.edges, dst)
	if src.tainted {
		dst.Set()
	}
}

// Clone returns a new node that is already wired as a propagation target of
// src, so a tainted source stays tainted for the clone, and any future
// taint of src reaches the clone too.
func Clone(src *Node) *Node {
	n := New()
	Propagate(src, n)
	return n
}

// Destroy reports whether n was ever tainted. It removes n's own outgoing
// edges; n itself is not reachable afterward by other nodes' Set calls
// except through edges other nodes already hold pointing at n (a node
// cannot un-wire edges that point *into* it, matching the C original where
// destroying a taint node only frees its own edge list).
func Destroy(n *Node) bool {
	wasTainted := n.tainted
	n.edges = nil
	return wasTainted
}
