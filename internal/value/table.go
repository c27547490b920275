package value

import (
	"fmt"
	"strconv"
)

// EntryKind identifies the variant of a table cell.
type EntryKind uint8

const (
	EntryNil EntryKind = iota
	EntryNum
	EntryObj
)

// Entry is a table cell: Nil, an unboxed number, or any other Value.
type Entry struct {
	kind EntryKind
	num  float64
	obj  Value
}

// NilEntry returns an empty cell.
func NilEntry() Entry { return Entry{kind: EntryNil} }

// NumEntry returns a numeric cell.
func NumEntry(n float64) Entry { return Entry{kind: EntryNum, num: n} }

// ObjEntry wraps an arbitrary value. A nil v is stored as an empty cell.
func ObjEntry(v Value) Entry {
	if v == nil {
		return NilEntry()
	}
	return Entry{kind: EntryObj, obj: v}
}

// StrEntry is shorthand for ObjEntry(Str(s)).
func StrEntry(s string) Entry { return ObjEntry(Str(s)) }

// Kind returns the cell variant.
func (e Entry) Kind() EntryKind { return e.kind }

// Value boxes the cell as a Value.
func (e Entry) Value() Value {
	switch e.kind {
	case EntryNum:
		return Num(e.num)
	case EntryObj:
		return e.obj
	default:
		return Nil{}
	}
}

// AsNum returns the number held by a Num cell or an Obj(Num) cell.
func (e Entry) AsNum() (float64, bool) {
	switch e.kind {
	case EntryNum:
		return e.num, true
	case EntryObj:
		if n, ok := e.obj.(Num); ok {
			return float64(n), true
		}
	}
	return 0, false
}

// AsStr returns the text held by an Obj(Str) cell.
func (e Entry) AsStr() (string, bool) {
	if e.kind != EntryObj {
		return "", false
	}
	s, ok := e.obj.(Str)
	return string(s), ok
}

// IsNil reports whether the cell is empty (Nil or Obj(Nil)).
func (e Entry) IsNil() bool {
	if e.kind == EntryNil {
		return true
	}
	if e.kind == EntryObj {
		_, ok := e.obj.(Nil)
		return ok
	}
	return false
}

// String renders the cell plainly; presentation formatting lives in render.
func (e Entry) String() string {
	switch e.kind {
	case EntryNil:
		return "-"
	case EntryNum:
		return strconv.FormatFloat(e.num, 'f', -1, 64)
	default:
		return fmt.Sprint(e.obj)
	}
}

// Table is an immutable row-major grid of entries.
//
// INVARIANTS:
//   - every row has exactly ColsLen() cells
//   - RowsLen() counts the header row when Header() is true
//   - no method mutates a built table
type Table struct {
	header bool
	rows   int
	cols   int
	cells  []Entry
}

// NewTable builds a table from rows. Every row must have the same length.
// The rows are copied so the caller may reuse its slices.
func NewTable(header bool, rows [][]Entry) (*Table, error) {
	t := &Table{header: header, rows: len(rows)}
	if len(rows) == 0 {
		return t, nil
	}
	t.cols = len(rows[0])
	t.cells = make([]Entry, 0, t.rows*t.cols)
	for i, row := range rows {
		if len(row) != t.cols {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i, len(row), t.cols)
		}
		t.cells = append(t.cells, row...)
	}
	return t, nil
}

// EmptyTable returns a table with no rows.
func EmptyTable() *Table {
	return &Table{}
}

func (*Table) sealed()    {}
func (*Table) Type() Type { return TypeTable }

// Header reports whether the first row is a header row.
func (t *Table) Header() bool { return t.header }

// RowsLen returns the number of rows, including a header row.
func (t *Table) RowsLen() int { return t.rows }

// ColsLen returns the number of columns.
func (t *Table) ColsLen() int { return t.cols }

// IsEmpty reports whether the table has no rows at all.
func (t *Table) IsEmpty() bool { return t.rows == 0 }

// DataRows returns the number of non-header rows.
func (t *Table) DataRows() int {
	if t.header && t.rows > 0 {
		return t.rows - 1
	}
	return t.rows
}

// FirstDataRow returns the index of the first non-header row.
func (t *Table) FirstDataRow() int {
	if t.header {
		return 1
	}
	return 0
}

// Cell returns the entry at (row, col). It panics when out of range, like slice indexing.
func (t *Table) Cell(row, col int) Entry {
	if row < 0 || row >= t.rows || col < 0 || col >= t.cols {
		panic(fmt.Sprintf("table cell (%d,%d) out of range [%d,%d]", row, col, t.rows, t.cols))
	}
	return t.cells[row*t.cols+col]
}

// Row returns a copy of row r.
func (t *Table) Row(r int) []Entry {
	row := make([]Entry, t.cols)
	copy(row, t.cells[r*t.cols:(r+1)*t.cols])
	return row
}

// ColumnIndex finds a column by its header text. Tables without a header have no named columns.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if !t.header || t.rows == 0 {
		return 0, false
	}
	for c := 0; c < t.cols; c++ {
		if s, ok := t.cells[c].AsStr(); ok && s == name {
			return c, true
		}
	}
	return 0, false
}

// Columns returns the header texts. Non-text header cells render via Entry.String.
func (t *Table) Columns() []string {
	if !t.header || t.rows == 0 {
		return nil
	}
	names := make([]string, t.cols)
	for c := 0; c < t.cols; c++ {
		names[c] = t.cells[c].String()
	}
	return names
}

// SelectRows returns a new table holding the header (if any) followed by the
// given data rows in the given order.
func (t *Table) SelectRows(rows []int) *Table {
	out := &Table{header: t.header, cols: t.cols}
	n := len(rows)
	if t.header && t.rows > 0 {
		n++
	}
	out.cells = make([]Entry, 0, n*t.cols)
	if t.header && t.rows > 0 {
		out.cells = append(out.cells, t.cells[:t.cols]...)
	}
	for _, r := range rows {
		out.cells = append(out.cells, t.cells[r*t.cols:(r+1)*t.cols]...)
	}
	out.rows = n
	return out
}

// Equal compares shape, header flag and every cell.
func (t *Table) Equal(o *Table) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	if t.header != o.header || t.rows != o.rows || t.cols != o.cols {
		return false
	}
	for i := range t.cells {
		if !entryEqual(t.cells[i], o.cells[i]) {
			return false
		}
	}
	return true
}

func (t *Table) String() string {
	return fmt.Sprintf("<table [%d,%d]>", t.rows, t.cols)
}

// entryEqual treats Num(n) and Obj(Num(n)) as the same cell.
func entryEqual(a, b Entry) bool {
	if a.IsNil() || b.IsNil() {
		return a.IsNil() && b.IsNil()
	}
	if an, ok := a.AsNum(); ok {
		bn, ok := b.AsNum()
		return ok && an == bn
	}
	return Equal(a.Value(), b.Value())
}
