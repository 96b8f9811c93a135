package sortengine

import (
	"testing"

	"github.com/cprocess/caseengine/casereader"
	"github.com/cprocess/caseengine/config"
	"github.com/cprocess/caseengine/value"
)

// keyIDCase builds a 2-slot case: slot 0 is the sort key, slot 1 an
// opaque id used to check stability.
func keyIDCase(key, id float64) value.Case {
	c := value.NewCase(2)
	c.SetNumAt(0, key)
	c.SetNumAt(1, id)
	return c
}

func drainKeyID(t *testing.T, r casereader.Reader) [][2]float64 {
	t.Helper()
	var got [][2]float64
	for {
		c, ok, err := r.Read()
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, [2]float64{c.NumAt(0), c.NumAt(1)})
		value.Destroy(&c)
	}
	return got
}

// TestStableSortAscending is scenario S4 from the spec: (key=1,id=1),
// (key=2,id=2), (key=1,id=3) sorted ascending by key must come out
// (1,1), (1,3), (2,2) -- the two key=1 cases keep their relative order.
func TestStableSortAscending(t *testing.T) {
	src := casereader.NewSliceReader([]value.Case{
		keyIDCase(1, 1),
		keyIDCase(2, 2),
		keyIDCase(1, 3),
	})
	ws := config.New()
	out, err := Sort(ws, 2, src, []Key{{SlotIndex: 0}})
	if err != nil {
		t.Fatal(err)
	}
	defer out.Destroy()

	got := drainKeyID(t, out)
	want := [][2]float64{{1, 1}, {1, 3}, {2, 2}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if out.Taint().IsTainted() {
		t.Fatal("successful sort must not be tainted")
	}
}

func TestSortDescending(t *testing.T) {
	src := casereader.NewSliceReader([]value.Case{
		keyIDCase(1, 0), keyIDCase(3, 0), keyIDCase(2, 0),
	})
	ws := config.New()
	out, err := Sort(ws, 2, src, []Key{{SlotIndex: 0, Descending: true}})
	if err != nil {
		t.Fatal(err)
	}
	defer out.Destroy()

	got := drainKeyID(t, out)
	want := []float64{3, 2, 1}
	for i, w := range want {
		if got[i][0] != w {
			t.Fatalf("got %v, want descending %v", got, want)
		}
	}
}

// TestExternalMergeSortIsStableAndCorrect forces replacement selection and
// multi-run merging by giving the workspace a tiny in-memory cap, then
// checks the output is a correctly-ordered, stable permutation of the
// input across run boundaries.
func TestExternalMergeSortIsStableAndCorrect(t *testing.T) {
	var cases []value.Case
	keys := []float64{3, 1, 4, 1, 5, 9, 2, 6, 1, 3, 1, 1}
	for i, k := range keys {
		cases = append(cases, keyIDCase(k, float64(i)))
	}
	src := casereader.NewSliceReader(cases)

	ws := config.New(config.WithMaxCasesInMemory(3), config.WithMinBuffers(3), config.WithMergeOrder(2))
	out, err := Sort(ws, 2, src, []Key{{SlotIndex: 0}})
	if err != nil {
		t.Fatal(err)
	}
	defer out.Destroy()

	got := drainKeyID(t, out)
	if len(got) != len(keys) {
		t.Fatalf("got %d cases, want %d", len(got), len(keys))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1][0] > got[i][0] {
			t.Fatalf("not sorted at %d: %v", i, got)
		}
	}
	// Stability: among equal keys, ids must appear in original order.
	lastIDForKey := map[float64]float64{}
	for _, kv := range got {
		if prev, ok := lastIDForKey[kv[0]]; ok && prev > kv[1] {
			t.Fatalf("stability violated for key %v: %v before %v", kv[0], prev, kv[1])
		}
		lastIDForKey[kv[0]] = kv[1]
	}
	if out.Taint().IsTainted() {
		t.Fatal("successful external sort must not be tainted")
	}
}

func TestSortFailsWhenWorkspaceSmallerThanMinBuffers(t *testing.T) {
	src := casereader.NewSliceReader([]value.Case{keyIDCase(1, 0)})
	ws := config.New(config.WithMaxCasesInMemory(2), config.WithMinBuffers(10))
	_, err := Sort(ws, 2, src, []Key{{SlotIndex: 0}})
	if err != ErrWorkspaceTooSmall {
		t.Fatalf("got %v, want ErrWorkspaceTooSmall", err)
	}
}

func TestSortEmptyInput(t *testing.T) {
	src := casereader.NewSliceReader(nil)
	ws := config.New()
	out, err := Sort(ws, 2, src, []Key{{SlotIndex: 0}})
	if err != nil {
		t.Fatal(err)
	}
	defer out.Destroy()
	if got := drainKeyID(t, out); len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestSeqBloomReflectsSurvivingSequenceIndices(t *testing.T) {
	src := casereader.NewSliceReader([]value.Case{
		keyIDCase(2, 0), keyIDCase(1, 1), keyIDCase(3, 2),
	})
	ws := config.New()
	out, err := Sort(ws, 2, src, []Key{{SlotIndex: 0}})
	if err != nil {
		t.Fatal(err)
	}
	defer out.Destroy()
	drainKeyID(t, out)

	bf := out.SeqBloom()
	for _, seq := range []uint64{0, 1, 2} {
		var b [8]byte
		b[0] = byte(seq)
		if !bf.Test(b[:]) {
			t.Fatalf("expected seq %d to test present", seq)
		}
	}
}
