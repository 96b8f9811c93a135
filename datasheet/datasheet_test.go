package datasheet

import (
	"testing"

	"github.com/cprocess/caseengine/value"
)

func numSlots(v float64) []value.Slot {
	return []value.Slot{value.NumSlot(v)}
}

func TestSetGetCellRoundTrip(t *testing.T) {
	d := New(0)
	defer d.Close()
	col := d.DeclareColumn(0, numSlots(value.SysMiss))

	if err := d.SetCell(5, col, numSlots(42)); err != nil {
		t.Fatal(err)
	}
	got, err := d.GetCell(5, col)
	if err != nil {
		t.Fatal(err)
	}
	if value.NumFromSlot(got[0]) != 42 {
		t.Fatalf("got %v, want 42", value.NumFromSlot(got[0]))
	}
}

func TestGetCellUnsetReturnsDefault(t *testing.T) {
	d := New(0)
	defer d.Close()
	col := d.DeclareColumn(0, numSlots(99))

	got, err := d.GetCell(100, col)
	if err != nil {
		t.Fatal(err)
	}
	if value.NumFromSlot(got[0]) != 99 {
		t.Fatalf("got %v, want default 99", value.NumFromSlot(got[0]))
	}
}

func TestColumnReorderDoesNotTouchRowData(t *testing.T) {
	d := New(0)
	defer d.Close()
	a := d.DeclareColumn(0, numSlots(0))
	b := d.DeclareColumn(0, numSlots(0))

	d.SetCell(0, a, numSlots(1))
	d.SetCell(0, b, numSlots(2))

	d.InsertColumnBefore(b, a) // b now comes before a

	cols := d.Columns()
	if cols[0] != b || cols[1] != a {
		t.Fatalf("order = %v, want [b,a]", cols)
	}

	va, _ := d.GetCell(0, a)
	vb, _ := d.GetCell(0, b)
	if value.NumFromSlot(va[0]) != 1 || value.NumFromSlot(vb[0]) != 2 {
		t.Fatal("reordering must not change stored values")
	}
}

func TestDeleteColumnDropsItsValues(t *testing.T) {
	d := New(0)
	defer d.Close()
	a := d.DeclareColumn(0, numSlots(0))
	d.SetCell(0, a, numSlots(7))
	d.DeleteColumn(a)

	if len(d.Columns()) != 0 {
		t.Fatal("expected column to be removed from order")
	}
	if _, err := d.GetCell(0, a); err == nil {
		t.Fatal("expected error reading a deleted column")
	}
}

func TestRowCaseRoundTrip(t *testing.T) {
	d := New(0)
	defer d.Close()
	a := d.DeclareColumn(0, numSlots(0))
	b := d.DeclareColumn(8, []value.Slot{{' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}})
	_ = a
	_ = b

	c := value.NewCase(2)
	c.SetNumAt(0, 3.5)
	c.SetStrAt(1, 8, []byte("hi"))
	if err := d.SetRowCase(10, c); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetRowCase(10)
	if err != nil {
		t.Fatal(err)
	}
	if got.NumAt(0) != 3.5 {
		t.Fatalf("got %v, want 3.5", got.NumAt(0))
	}
	if string(got.StrAt(1, 8)) != "hi      " {
		t.Fatalf("got %q", got.StrAt(1, 8))
	}
}

func TestSpillsRowsPastMemoryThresholdAndReadsThemBack(t *testing.T) {
	d := New(2) // keep at most 2 rows hot
	defer d.Close()
	col := d.DeclareColumn(0, numSlots(0))

	for i := uint64(0); i < 5; i++ {
		if err := d.SetCell(i, col, numSlots(float64(i*10))); err != nil {
			t.Fatal(err)
		}
	}

	for i := uint64(0); i < 5; i++ {
		got, err := d.GetCell(i, col)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if value.NumFromSlot(got[0]) != float64(i*10) {
			t.Fatalf("row %d = %v, want %v", i, value.NumFromSlot(got[0]), i*10)
		}
	}
	if d.RowCount() != 5 {
		t.Fatalf("RowCount = %d, want 5", d.RowCount())
	}
}
