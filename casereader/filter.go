// Filter, WeightFilter, and MissingFilter implement the exclude-writer
// idiom from original_source's casereader-filter.c: a filtering reader may
// be given a Writer to receive the cases it drops, instead of silently
// discarding them, plus a warning callback invoked exactly once, the
// first time any case is excluded (rather than once per excluded case,
// which would flood a syntax run's message log).
package casereader

import (
	"github.com/cprocess/caseengine/dictionary"
	"github.com/cprocess/caseengine/taint"
	"github.com/cprocess/caseengine/value"
)

// Filter wraps src, yielding only the cases for which keep returns true.
type Filter struct {
	base
	src      Reader
	keep     func(value.Case) bool
	excluded Writer // optional: receives dropped cases
	onFirst  func(dropped value.Case)
	warned   bool
}

// NewFilter wraps src with a predicate. excluded may be nil to simply
// discard filtered-out cases. onFirst, if non-nil, is called exactly
// once, with the first case Filter ever drops, before that case is
// disposed of or forwarded to excluded.
func NewFilter(src Reader, keep func(value.Case) bool, excluded Writer, onFirst func(value.Case)) *Filter {
	f := &Filter{base: newBase(), src: src, keep: keep, excluded: excluded, onFirst: onFirst}
	taint.Propagate(src.Taint(), f.Taint())
	if excluded != nil {
		taint.Propagate(excluded.Taint(), f.Taint())
	}
	return f
}

func (f *Filter) Read() (value.Case, bool, error) {
	for {
		c, ok, err := f.src.Read()
		if err != nil || !ok {
			return value.Case{}, false, err
		}
		if f.keep(c) {
			return c, true, nil
		}
		if !f.warned && f.onFirst != nil {
			f.warned = true
			var forWarning value.Case
			value.Clone(&forWarning, c)
			f.onFirst(forWarning)
		}
		if f.excluded != nil {
			var forExcluded value.Case
			value.Clone(&forExcluded, c)
			if err := f.excluded.Write(forExcluded); err != nil {
				value.Destroy(&c)
				return value.Case{}, false, err
			}
		}
		value.Destroy(&c)
	}
}

func (f *Filter) Destroy() {
	f.src.Destroy()
	if f.excluded != nil {
		f.excluded.Destroy()
	}
}

// Filter itself does not count the cases it excludes; filtering and
// counting are separate stock readers that compose, as elsewhere in this
// package.

// NewWeightFilter wraps src, keeping only cases whose weight value
// (weightVar) is present (not system-missing), not one of classifier's
// declared user-missing values, and strictly positive, matching how a
// weighted procedure treats a case with a missing or non-positive weight
// as excluded from the analysis. Pass dictionary.NeverMissing{} for
// classifier when the weight variable has no declared user-missing
// values to check.
func NewWeightFilter(src Reader, weightVar dictionary.Variable, classifier dictionary.Classifier, excluded Writer, onFirst func(value.Case)) *Filter {
	keep := func(c value.Case) bool {
		w := c.NumAt(weightVar.SlotIndex)
		if value.IsSysmis(w) || w <= 0 {
			return false
		}
		return !classifier.IsMissing(weightVar, w, nil, dictionary.MissingUser)
	}
	return NewFilter(src, keep, excluded, onFirst)
}

// MissingSpec names one variable to check for missingness and the class
// of missing value that should cause a case to be dropped.
type MissingSpec struct {
	SlotIndex int
	Width     int
	Class     dictionary.MissingClass
}

// NewMissingFilter wraps src, keeping only cases that are not missing,
// under classifier, on any of specs.
func NewMissingFilter(src Reader, vars []dictionary.Variable, specs []MissingSpec, classifier dictionary.Classifier, excluded Writer, onFirst func(value.Case)) *Filter {
	keep := func(c value.Case) bool {
		for _, spec := range specs {
			v := variableFor(vars, spec.SlotIndex)
			if v.IsNumeric() {
				if classifier.IsMissing(v, c.NumAt(spec.SlotIndex), nil, spec.Class) {
					return false
				}
			} else {
				str := c.StrAt(spec.SlotIndex, spec.Width)
				if classifier.IsMissing(v, 0, str, spec.Class) {
					return false
				}
			}
		}
		return true
	}
	return NewFilter(src, keep, excluded, onFirst)
}

func variableFor(vars []dictionary.Variable, slotIndex int) dictionary.Variable {
	for _, v := range vars {
		if v.SlotIndex == slotIndex {
			return v
		}
	}
	return dictionary.Variable{SlotIndex: slotIndex}
}
