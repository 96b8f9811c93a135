package deque

import "testing"

func TestFIFOOrder(t *testing.T) {
	d := New[int](0)
	for i := 0; i < 5; i++ {
		d.PushBack(i)
	}
	for i := 0; i < 5; i++ {
		v, ok := d.PopFront()
		if !ok || v != i {
			t.Fatalf("got (%v,%v), want (%v,true)", v, ok, i)
		}
	}
	if d.Len() != 0 {
		t.Fatalf("len = %d, want 0", d.Len())
	}
}

func TestGrowsPastInitialCapacity(t *testing.T) {
	d := New[int](2)
	for i := 0; i < 100; i++ {
		d.PushBack(i)
	}
	if d.Len() != 100 {
		t.Fatalf("len = %d, want 100", d.Len())
	}
	for i := 0; i < 100; i++ {
		v, ok := d.At(i)
		if !ok || v != i {
			t.Fatalf("At(%d) = (%v,%v), want (%v,true)", i, v, ok, i)
		}
	}
}

func TestPushFrontPopBack(t *testing.T) {
	d := New[int](0)
	d.PushFront(1)
	d.PushFront(2)
	d.PushFront(3)
	// front to back: 3,2,1
	v, _ := d.PopBack()
	if v != 1 {
		t.Fatalf("got %d, want 1", v)
	}
	v, _ = d.PopBack()
	if v != 2 {
		t.Fatalf("got %d, want 2", v)
	}
}

func TestAllIteratesFrontToBack(t *testing.T) {
	d := New[int](0)
	for i := 0; i < 4; i++ {
		d.PushBack(i)
	}
	var got []int
	for v := range d.All() {
		got = append(got, v)
	}
	want := []int{0, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
