package taint

import "testing"

// TestPropagationChain is scenario S6 from the spec: R1 -> R2 -> R3 via
// clone/filter wiring. Tainting R1 must taint R2 and R3.
func TestPropagationChain(t *testing.T) {
	r1 := New()
	r2 := Clone(r1) // r2 clones r1
	r3 := New()
	Propagate(r2, r3) // r3 filters r2

	if r1.IsTainted() || r2.IsTainted() || r3.IsTainted() {
		t.Fatal("fresh graph must not be tainted")
	}

	r1.Set()

	if !r1.IsTainted() || !r2.IsTainted() || !r3.IsTainted() {
		t.Fatal("taint must propagate along every outgoing edge")
	}

	if !Destroy(r1) {
		t.Fatal("destroy must report the node had been tainted")
	}
}

func TestPropagateAfterTaintIsImmediate(t *testing.T) {
	src := New()
	src.Set()

	dst := New()
	Propagate(src, dst)

	if !dst.IsTainted() {
		t.Fatal("propagating from an already-tainted node must taint the target immediately")
	}
}

func TestCycleDoesNotHang(t *testing.T) {
	a := New()
	b := New()
	Propagate(a, b)
	Propagate(b, a)

	a.Set()

	if !a.IsTainted() || !b.IsTainted() {
		t.Fatal("cyclic graph must still fully taint")
	}
}

func TestUntaintedDestroyReportsFalse(t *testing.T) {
	n := New()
	if Destroy(n) {
		t.Fatal("destroying a never-tainted node must report false")
	}
}
