// Package dictionary defines the minimal variable/dictionary boundary the
// case-processing core consumes. The real dictionary (name resolution,
// display formats, value labels, the syntax-level variable type) is an
// external collaborator out of scope for this module; this package only
// gives the core something concrete to import for the handful of facts it
// actually needs: a variable's width, its slot index within a case, and
// whether a given value counts as missing for it.
package dictionary

// MissingClass enumerates the missing-value classes the core's filters
// understand.
type MissingClass int

const (
	// MissingNever matches no values: nothing is ever treated as missing.
	MissingNever MissingClass = iota
	// MissingSystem matches only the system-missing sentinel.
	MissingSystem
	// MissingUser matches only dictionary-declared user-missing values.
	MissingUser
	// MissingAny matches either system- or user-missing values.
	MissingAny
)

// Variable is the read-only view of a dictionary variable the core needs:
// its storage width (0 = numeric, >0 = fixed string width in bytes) and its
// case-slot-index (the index of its first value slot within a case).
type Variable struct {
	Name      string
	Width     int
	SlotIndex int
}

// IsNumeric reports whether v is a numeric (width 0) variable.
func (v Variable) IsNumeric() bool {
	return v.Width == 0
}

// Classifier answers "is this value missing, under this class, for this
// variable?" Implementations typically wrap a real dictionary's declared
// user-missing values; the core treats it as an opaque collaborator.
type Classifier interface {
	IsMissing(v Variable, num float64, str []byte, class MissingClass) bool
}

// NeverMissing is a Classifier for callers with no dictionary-declared
// user-missing values to check against: every value is reported as not
// missing, under every class.
type NeverMissing struct{}

func (NeverMissing) IsMissing(Variable, float64, []byte, MissingClass) bool { return false }

// Dictionary exposes iteration order, lookup by name, variable count, and
// total slot count — the handful of dictionary-wide facts the core
// consults (e.g. to size a case before filling it in).
type Dictionary interface {
	VariableCount() int
	VariableAt(i int) Variable
	Lookup(name string) (Variable, bool)
	SlotCount() int
}

// staticDict is a trivial, slice-backed Dictionary used by callers (tests,
// the CLI) that just need a fixed list of variables rather than a full
// syntax-driven dictionary.
type staticDict struct {
	vars      []Variable
	byName    map[string]int
	slotCount int
}

// New builds a Dictionary from vars, assigning each variable's SlotIndex
// and computing the total slot count automatically; callers need only
// supply Name and Width for each variable.
func New(vars []Variable) Dictionary {
	d := &staticDict{byName: map[string]int{}}
	slot := 0
	for _, v := range vars {
		v.SlotIndex = slot
		slot += slotsForWidth(v.Width)
		d.byName[v.Name] = len(d.vars)
		d.vars = append(d.vars, v)
	}
	d.slotCount = slot
	return d
}

func slotsForWidth(width int) int {
	if width <= 0 {
		return 1
	}
	return (width + 7) / 8
}

func (d *staticDict) VariableCount() int { return len(d.vars) }
func (d *staticDict) VariableAt(i int) Variable { return d.vars[i] }
func (d *staticDict) SlotCount() int { return d.slotCount }

func (d *staticDict) Lookup(name string) (Variable, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Variable{}, false
	}
	return d.vars[i], true
}
