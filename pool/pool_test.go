package pool

import "testing"

func TestDestroyRunsClosersInReverseOrder(t *testing.T) {
	p := New()
	var order []int
	p.Register(func() { order = append(order, 1) })
	p.Register(func() { order = append(order, 2) })
	p.Register(func() { order = append(order, 3) })

	p.Destroy()

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestDestroyCascadesToSubpools(t *testing.T) {
	p := New()
	child := p.Sub()
	grandchild := child.Sub()

	var hit bool
	grandchild.Register(func() { hit = true })

	p.Destroy()

	if !hit {
		t.Fatal("destroying a pool must destroy its sub-pools transitively")
	}
}

func TestDestroyTwiceIsNoop(t *testing.T) {
	p := New()
	n := 0
	p.Register(func() { n++ })
	p.Destroy()
	p.Destroy()
	if n != 1 {
		t.Fatalf("closer ran %d times, want 1", n)
	}
}

func TestRegisterAfterDestroyRunsImmediately(t *testing.T) {
	p := New()
	p.Destroy()

	hit := false
	p.Register(func() { hit = true })
	if !hit {
		t.Fatal("registering on a destroyed pool must run the closer immediately")
	}
}
