package value

import "testing"

func TestSysMissIsNotOrdinaryNaN(t *testing.T) {
	if !IsSysmis(SysMiss) {
		t.Fatal("SysMiss must test as sysmis")
	}
	if IsSysmis(1.0) {
		t.Fatal("1.0 must not test as sysmis")
	}
}

func TestSlotsForWidth(t *testing.T) {
	cases := []struct {
		width int
		want  int
	}{
		{0, 1}, {1, 1}, {8, 1}, {9, 2}, {16, 2}, {17, 3}, {32767, 4096},
	}
	for _, c := range cases {
		if got := SlotsForWidth(c.width); got != c.want {
			t.Errorf("SlotsForWidth(%d) = %d, want %d", c.width, got, c.want)
		}
	}
}

func TestNumSlotRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 3.14159, SysMiss} {
		s := NumSlot(v)
		got := NumFromSlot(s)
		if IsSysmis(v) {
			if !IsSysmis(got) {
				t.Errorf("round trip of sysmis lost sentinel bits")
			}
			continue
		}
		if got != v {
			t.Errorf("NumFromSlot(NumSlot(%v)) = %v", v, got)
		}
	}
}
