package config

import "testing"

func TestNewAppliesDefaults(t *testing.T) {
	w := New()
	if w.MaxCasesInMemory != DefaultMaxCasesInMemory {
		t.Fatalf("MaxCasesInMemory = %d, want %d", w.MaxCasesInMemory, DefaultMaxCasesInMemory)
	}
	if w.MaxMergeOrder != DefaultMaxMergeOrder {
		t.Fatalf("MaxMergeOrder = %d, want %d", w.MaxMergeOrder, DefaultMaxMergeOrder)
	}
	if w.AsyncSync {
		t.Fatal("AsyncSync should default to false")
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	w := New(WithMaxCasesInMemory(5), WithMergeOrder(3), WithMinBuffers(8), WithAsyncSync(true))
	if w.MaxCasesInMemory != 5 || w.MaxMergeOrder != 3 || w.MinBuffers != 8 || !w.AsyncSync {
		t.Fatalf("got %+v", w)
	}
}
