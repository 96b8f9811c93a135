// Package datasheet implements a random-access, two-dimensional case
// store: rows are addressed by an arbitrary uint64 row number (not
// necessarily dense or ordered), columns are addressed by a stable ID
// that survives reordering, insertion, and deletion of other columns,
// and the store spills rows to disk once the in-memory row count crosses
// a threshold.
//
// Rows are kept in a sparsearray.Array keyed by row number, the same
// paging structure described in component D, since a datasheet built
// incrementally (as a procedure fills in results row by row) touches a
// clustered, sparse subset of the row-number space rather than a dense
// prefix. Column reordering is a pure permutation of stable IDs
// (order) and never rewrites an in-memory row, recovering the "insert a
// column without rewriting every row" property original_source's
// flexifile.c gets from column-group slack reservation, by a different
// route: a row simply has no entry for a column it was never given a
// value for, and reading it back yields that column's registered
// default instead of rewriting anything.
//
// Evicted rows spill to a casefile.TempFile, the same fixed-row-width
// CRC-framed store the rest of this module spills to, keyed by row
// number: a spilled row is serialized the same way SetRowCase/GetRowCase
// already materialize one (every column's value, substituting defaults
// for cells a row never set), so there is nothing column-shaped left to
// decode on the disk side — it is just another TempFile row. Freed
// TempFile rows (un-spilled back to hot) are tracked in a rangeset.Set
// and reused by later spills, the same pattern casefile.Window uses for
// its own disk rows.
//
// A spilled row's width is fixed to the column layout in force when its
// backing TempFile was created. Any change to that layout — declaring or
// deleting a column, or reordering columns — would silently corrupt
// already-spilled rows read back under the new layout, so every such
// change first un-spills every row and closes the TempFile; the next
// spill opens a fresh one sized to the new layout. Schema changes are
// expected while a datasheet is being set up, before it is filled in row
// by row, so this is rarely paid for in practice.
package datasheet

import (
	"fmt"

	"github.com/cprocess/caseengine/casefile"
	"github.com/cprocess/caseengine/rangeset"
	"github.com/cprocess/caseengine/sparsearray"
	"github.com/cprocess/caseengine/value"
)

// ColumnID stably identifies a column across reorders, insertions, and
// deletions of other columns.
type ColumnID int

type column struct {
	id    ColumnID
	width int // 0 = numeric (1 slot), >0 = string width in bytes
	deflt []value.Slot
}

func (c *column) numSlots() int { return value.SlotsForWidth(c.width) }

type row struct {
	cells map[ColumnID][]value.Slot
}

// Datasheet is a random-access 2D case store. Use New to construct one.
type Datasheet struct {
	hot *sparsearray.Array[*row]

	cold      *casefile.TempFile
	coldOrder []ColumnID         // column layout cold was built against
	coldWidth int                // coldOrder's total slot width
	diskRow   map[uint64]uint64  // row number -> cold row index, for spilled rows
	diskFree  *rangeset.Set      // cold row indices freed by un-spilling
	diskHigh  uint64

	nextID  ColumnID
	columns map[ColumnID]*column
	order   []ColumnID // logical (visible) column order

	maxHotRows int
}

// New returns an empty datasheet that keeps at most maxHotRows rows in
// memory; each time that is exceeded, the lowest-numbered in-memory row
// other than the one just written is spilled to disk.
// maxHotRows <= 0 means never spill.
func New(maxHotRows int) *Datasheet {
	return &Datasheet{
		hot:        sparsearray.New[*row](),
		diskRow:    map[uint64]uint64{},
		columns:    map[ColumnID]*column{},
		maxHotRows: maxHotRows,
	}
}

// Close releases the datasheet's disk backing, if any was ever allocated.
func (d *Datasheet) Close() error {
	if d.cold != nil {
		return d.cold.Close()
	}
	return nil
}

// resetColdStore un-spills every row currently on disk (decoding it under
// coldOrder, the layout cold was built against) and closes cold, so the
// next spill starts over against whatever column layout is current at
// that point. Must be called before d.order/d.columns actually changes.
func (d *Datasheet) resetColdStore() {
	if d.cold == nil {
		return
	}
	for rowNum, idx := range d.diskRow {
		c := value.NewCase(d.coldWidth)
		if err := d.cold.GetCase(idx, &c); err == nil {
			d.hot.Set(rowNum, d.unmergeRow(c, d.coldOrder))
		}
		value.Destroy(&c)
	}
	d.cold.Close()
	d.cold = nil
	d.coldOrder = nil
	d.coldWidth = 0
	d.diskRow = map[uint64]uint64{}
	d.diskFree = nil
	d.diskHigh = 0
}

// DeclareColumn adds a new column of the given width (0 = numeric) with
// the given default raw slots (copied), appending it at the end of the
// current column order, and returns its stable ID.
func (d *Datasheet) DeclareColumn(width int, deflt []value.Slot) ColumnID {
	d.resetColdStore()
	id := d.nextID
	d.nextID++
	c := &column{id: id, width: width, deflt: append([]value.Slot(nil), deflt...)}
	d.columns[id] = c
	d.order = append(d.order, id)
	return id
}

// InsertColumnBefore moves col to sit immediately before pos in the
// logical column order (pos must already be present); if pos is -1, col
// is moved to the end. Rows already spilled to disk are first read back
// into memory (see resetColdStore); no row's cells are rewritten.
func (d *Datasheet) InsertColumnBefore(col, pos ColumnID) {
	d.resetColdStore()
	d.removeFromOrder(col)
	if pos < 0 {
		d.order = append(d.order, col)
		return
	}
	for i, id := range d.order {
		if id == pos {
			d.order = append(d.order[:i], append([]ColumnID{col}, d.order[i:]...)...)
			return
		}
	}
	d.order = append(d.order, col)
}

func (d *Datasheet) removeFromOrder(col ColumnID) {
	for i, id := range d.order {
		if id == col {
			d.order = append(d.order[:i], d.order[i+1:]...)
			return
		}
	}
}

// DeleteColumn removes col from the column order and drops any stored
// values for it from every row.
func (d *Datasheet) DeleteColumn(col ColumnID) {
	d.resetColdStore()
	d.removeFromOrder(col)
	delete(d.columns, col)
	for _, r := range d.hot.All() {
		delete(r.cells, col)
	}
}

// Columns returns the columns in their current logical order.
func (d *Datasheet) Columns() []ColumnID {
	return append([]ColumnID(nil), d.order...)
}

// ColumnCount returns the number of columns.
func (d *Datasheet) ColumnCount() int { return len(d.order) }

// widthOf sums the slot width of cols under d.columns.
func (d *Datasheet) widthOf(cols []ColumnID) int {
	total := 0
	for _, id := range cols {
		total += d.columns[id].numSlots()
	}
	return total
}

// mergeRow materializes r into a full case under column layout cols,
// substituting each column's registered default for any cell r never
// set.
func (d *Datasheet) mergeRow(r *row, cols []ColumnID) value.Case {
	c := value.NewCase(d.widthOf(cols))
	slot := 0
	for _, id := range cols {
		col := d.columns[id]
		n := col.numSlots()
		slots := col.deflt
		if stored, ok := r.cells[id]; ok {
			slots = stored
		}
		for i := 0; i < n; i++ {
			var s value.Slot
			if i < len(slots) {
				s = slots[i]
			}
			c.SetSlotAt(slot+i, s)
		}
		slot += n
	}
	return c
}

// unmergeRow is mergeRow's inverse: it rebuilds a row's cells map from a
// case laid out under cols. Every column comes back explicitly present
// (even if its value equals the column's default); GetCell cannot tell
// the difference from a cell that was genuinely never set.
func (d *Datasheet) unmergeRow(c value.Case, cols []ColumnID) *row {
	r := &row{cells: map[ColumnID][]value.Slot{}}
	slot := 0
	for _, id := range cols {
		col, ok := d.columns[id]
		if !ok {
			continue // column was deleted since cold was built; orphaned slots
		}
		n := col.numSlots()
		slots := make([]value.Slot, n)
		for i := 0; i < n; i++ {
			slots[i] = c.SlotAt(slot + i)
		}
		r.cells[id] = slots
		slot += n
	}
	return r
}

func (d *Datasheet) getRow(rowNum uint64, create bool) (*row, error) {
	if r, ok := d.hot.Get(rowNum); ok {
		return r, nil
	}
	if idx, ok := d.diskRow[rowNum]; ok {
		c := value.NewCase(d.coldWidth)
		if err := d.cold.GetCase(idx, &c); err != nil {
			value.Destroy(&c)
			return nil, err
		}
		r := d.unmergeRow(c, d.coldOrder)
		value.Destroy(&c)
		delete(d.diskRow, rowNum)
		d.diskFree.Insert(idx, 1)
		d.hot.Set(rowNum, r)
		d.evictIfNeeded(rowNum)
		return r, nil
	}
	if !create {
		return nil, nil
	}
	r := &row{cells: map[ColumnID][]value.Slot{}}
	d.hot.Set(rowNum, r)
	d.evictIfNeeded(rowNum)
	return r, nil
}

// evictIfNeeded spills one arbitrary hot row to disk, other than
// justWritten, once the hot set exceeds maxHotRows. A datasheet is
// touched in row-number order far more often than not (procedures fill
// it in sequentially), so evicting whichever row sparsearray.All happens
// to visit first approximates least-recently-filled without the
// bookkeeping of a true LRU list.
func (d *Datasheet) evictIfNeeded(justWritten uint64) {
	if d.maxHotRows <= 0 || d.hot.Count() <= d.maxHotRows {
		return
	}
	for rowNum, r := range d.hot.All() {
		if rowNum == justWritten {
			continue
		}
		d.spill(rowNum, r)
		return
	}
}

func (d *Datasheet) allocDiskRow() uint64 {
	if start, width, ok := d.diskFree.Allocate(1); ok && width > 0 {
		return start
	}
	idx := d.diskHigh
	d.diskHigh++
	return idx
}

func (d *Datasheet) spill(rowNum uint64, r *row) {
	if d.cold == nil {
		tf, err := casefile.NewTempFile(d.widthOf(d.order))
		if err != nil {
			// Without a disk backing, fall back to keeping the row hot
			// rather than losing it; the caller will simply use more
			// memory than requested.
			return
		}
		d.cold = tf
		d.coldOrder = append([]ColumnID(nil), d.order...)
		d.coldWidth = d.widthOf(d.coldOrder)
		d.diskFree = rangeset.New()
		d.diskHigh = 0
	}
	c := d.mergeRow(r, d.coldOrder)
	idx := d.allocDiskRow()
	if err := d.cold.PutCase(idx, c); err != nil {
		value.Destroy(&c)
		return
	}
	value.Destroy(&c)
	d.hot.Delete(rowNum)
	d.diskRow[rowNum] = idx
}

// SetCell stores value (width-appropriate raw slots) at (rowNum, col).
func (d *Datasheet) SetCell(rowNum uint64, col ColumnID, slots []value.Slot) error {
	c, ok := d.columns[col]
	if !ok {
		return fmt.Errorf("datasheet: unknown column %d", col)
	}
	if len(slots) != c.numSlots() {
		return fmt.Errorf("datasheet: column %d expects %d slots, got %d", col, c.numSlots(), len(slots))
	}
	r, err := d.getRow(rowNum, true)
	if err != nil {
		return err
	}
	r.cells[col] = append([]value.Slot(nil), slots...)
	return nil
}

// GetCell returns the raw slots stored at (rowNum, col), or the column's
// registered default if the row never set it.
func (d *Datasheet) GetCell(rowNum uint64, col ColumnID) ([]value.Slot, error) {
	c, ok := d.columns[col]
	if !ok {
		return nil, fmt.Errorf("datasheet: unknown column %d", col)
	}
	r, err := d.getRow(rowNum, false)
	if err != nil {
		return nil, err
	}
	if r != nil {
		if slots, ok := r.cells[col]; ok {
			return slots, nil
		}
	}
	return c.deflt, nil
}

// SetRowCase writes every column of c (indexed by the current column
// order, which must match c's own slot layout) into rowNum.
func (d *Datasheet) SetRowCase(rowNum uint64, c value.Case) error {
	slot := 0
	for _, id := range d.order {
		col := d.columns[id]
		n := col.numSlots()
		slots := make([]value.Slot, n)
		for i := 0; i < n; i++ {
			slots[i] = c.SlotAt(slot + i)
		}
		if err := d.SetCell(rowNum, id, slots); err != nil {
			return err
		}
		slot += n
	}
	return nil
}

// GetRowCase assembles a case from every column of rowNum, in column
// order, substituting each column's default where rowNum never set it.
func (d *Datasheet) GetRowCase(rowNum uint64) (value.Case, error) {
	total := 0
	for _, id := range d.order {
		total += d.columns[id].numSlots()
	}
	c := value.NewCase(total)
	slot := 0
	for _, id := range d.order {
		col := d.columns[id]
		n := col.numSlots()
		slots, err := d.GetCell(rowNum, id)
		if err != nil {
			value.Destroy(&c)
			return value.Case{}, err
		}
		for i := 0; i < n; i++ {
			var s value.Slot
			if i < len(slots) {
				s = slots[i]
			}
			c.SetSlotAt(slot+i, s)
		}
		slot += n
	}
	return c, nil
}

// RowCount returns the number of rows with at least one stored cell,
// in memory or spilled to disk.
func (d *Datasheet) RowCount() int {
	return d.hot.Count() + len(d.diskRow)
}
