package casereader

import (
	"fmt"
	"testing"

	"github.com/cprocess/caseengine/casefile"
	"github.com/cprocess/caseengine/dictionary"
	"github.com/cprocess/caseengine/value"
)

func numCases(vals ...float64) []value.Case {
	out := make([]value.Case, len(vals))
	for i, v := range vals {
		c := value.NewCase(1)
		c.SetNumAt(0, v)
		out[i] = c
	}
	return out
}

func drain(t *testing.T, r Reader) []float64 {
	t.Helper()
	var got []float64
	for {
		c, ok, err := r.Read()
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, c.NumAt(0))
		value.Destroy(&c)
	}
	return got
}

func TestSliceReaderYieldsClones(t *testing.T) {
	src := numCases(1, 2, 3)
	r := NewSliceReader(src)
	got := drain(t, r)
	want := []float64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	// The originals must still be usable: SliceReader clones, not moves.
	if src[0].NumAt(0) != 1 {
		t.Fatal("source case was consumed, expected a clone")
	}
}

func TestSliceReaderCloneIsIndependent(t *testing.T) {
	r := NewSliceReader(numCases(1, 2, 3))
	r.Read() // advance past the first case
	clone := r.Clone().(*SliceReader)

	gotOrig := drain(t, r)
	gotClone := drain(t, clone)
	if len(gotOrig) != 2 || len(gotClone) != 2 {
		t.Fatalf("orig=%v clone=%v, want 2 cases each", gotOrig, gotClone)
	}
}

func TestTranslatorAppliesTransform(t *testing.T) {
	src := NewSliceReader(numCases(1, 2, 3))
	doubled := NewTranslator(src, func(c value.Case) (value.Case, error) {
		c.SetNumAt(0, c.NumAt(0)*2)
		return c, nil
	})
	got := drain(t, doubled)
	want := []float64{2, 4, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTranslatorErrorTaintsChain(t *testing.T) {
	src := NewSliceReader(numCases(1))
	boom := NewTranslator(src, func(c value.Case) (value.Case, error) {
		value.Destroy(&c)
		return value.Case{}, fmt.Errorf("boom")
	})
	_, _, err := boom.Read()
	if err == nil {
		t.Fatal("expected error")
	}
	if !boom.Taint().IsTainted() {
		t.Fatal("expected translator to be tainted after a transform error")
	}
}

func TestCounterCounts(t *testing.T) {
	src := NewSliceReader(numCases(1, 2, 3, 4))
	counted := NewCounter(src)
	drain(t, counted)
	if counted.Count() != 4 {
		t.Fatalf("Count = %d, want 4", counted.Count())
	}
}

func TestFilterKeepsOnlyMatching(t *testing.T) {
	src := NewSliceReader(numCases(1, 2, 3, 4, 5))
	even := NewFilter(src, func(c value.Case) bool {
		return int(c.NumAt(0))%2 == 0
	}, nil, nil)
	got := drain(t, even)
	want := []float64{2, 4}
	if len(got) != len(want) || got[0] != 2 || got[1] != 4 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFilterRoutesExcludedCasesAndWarnsOnce(t *testing.T) {
	src := NewSliceReader(numCases(1, 2, 3, 4))
	excluded := NewSliceWriter()
	warnings := 0
	f := NewFilter(src, func(c value.Case) bool {
		return c.NumAt(0) > 2
	}, excluded, func(c value.Case) {
		warnings++
		value.Destroy(&c)
	})
	got := drain(t, f)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("got %v", got)
	}
	if warnings != 1 {
		t.Fatalf("warnings = %d, want 1", warnings)
	}
	if n := len(excluded.Cases()); n != 2 {
		t.Fatalf("excluded = %d cases, want 2", n)
	}
	excluded.Destroy()
}

func TestWeightFilterDropsMissingAndNonPositive(t *testing.T) {
	src := NewSliceReader(numCases(1, 0, -1, value.SysMiss, 2))
	f := NewWeightFilter(src, dictionary.Variable{SlotIndex: 0}, dictionary.NeverMissing{}, nil, nil)
	got := drain(t, f)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v", got)
	}
}

// userMissingAt flags a single declared value as user-missing, the way a
// dictionary's real missing-value classifier would for a weight variable
// with a declared missing value.
type userMissingAt struct{ value float64 }

func (u userMissingAt) IsMissing(_ dictionary.Variable, num float64, _ []byte, class dictionary.MissingClass) bool {
	return class != dictionary.MissingNever && num == u.value
}

func TestWeightFilterDropsUserMissingWeight(t *testing.T) {
	src := NewSliceReader(numCases(1, 9, 2))
	weightVar := dictionary.Variable{SlotIndex: 0}
	f := NewWeightFilter(src, weightVar, userMissingAt{value: 9}, nil, nil)
	got := drain(t, f)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want the declared user-missing weight 9 dropped", got)
	}
}

type alwaysMissing struct{}

func (alwaysMissing) IsMissing(v dictionary.Variable, num float64, str []byte, class dictionary.MissingClass) bool {
	return value.IsSysmis(num)
}

func TestMissingFilterDropsViaClassifier(t *testing.T) {
	src := NewSliceReader(numCases(1, value.SysMiss, 3))
	vars := []dictionary.Variable{{Name: "x", SlotIndex: 0}}
	specs := []MissingSpec{{SlotIndex: 0, Class: dictionary.MissingSystem}}
	f := NewMissingFilter(src, vars, specs, alwaysMissing{}, nil, nil)
	got := drain(t, f)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("got %v", got)
	}
}

func TestNullSinkDiscardsAndCounts(t *testing.T) {
	sink := NewNullSink()
	for _, c := range numCases(1, 2, 3) {
		if err := sink.Write(c); err != nil {
			t.Fatal(err)
		}
	}
	if sink.Count() != 3 {
		t.Fatalf("Count = %d, want 3", sink.Count())
	}
}

func TestWindowSinkFeedsWindow(t *testing.T) {
	win := casefile.NewWindow(1, 2)
	sink := NewWindowSink(win)
	for _, c := range numCases(1, 2, 3) {
		if err := sink.Write(c); err != nil {
			t.Fatal(err)
		}
	}
	if win.Len() != 3 {
		t.Fatalf("window len = %d, want 3", win.Len())
	}
	sink.Destroy()
}
