package value

import (
	"fmt"
	"strconv"
)

// Value is a sealed interface over the runtime value variants.
// Only Nil, Num, Bool, Str, *Table, TableRow and *Record implement it.
type Value interface {
	// Type returns the static type of the value.
	Type() Type
	sealed()
}

// Nil is the absent value.
type Nil struct{}

func (Nil) sealed()        {}
func (Nil) Type() Type     { return TypeNil }
func (Nil) String() string { return "nil" }

// Num is a 64-bit float.
type Num float64

func (Num) sealed()    {}
func (Num) Type() Type { return TypeNum }

// String formats the number without exponent and without trailing zeros.
func (n Num) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Bool is a boolean.
type Bool bool

func (Bool) sealed()    {}
func (Bool) Type() Type { return TypeBool }

func (b Bool) String() string {
	return strconv.FormatBool(bool(b))
}

// Str is immutable text. Go strings share their backing bytes, so copies are cheap.
type Str string

func (Str) sealed()    {}
func (Str) Type() Type { return TypeStr }

func (s Str) String() string { return string(s) }

// TableRow is a view into one row of a table. It is only produced while a
// row-wise operation (such as filter) evaluates its argument.
type TableRow struct {
	Table *Table
	Idx   int
}

func (TableRow) sealed()    {}
func (TableRow) Type() Type { return TypeTableRow }

// Cell returns the entry in column col of the row.
func (r TableRow) Cell(col int) Entry {
	return r.Table.Cell(r.Idx, col)
}

// Lookup finds the entry under the header column name.
func (r TableRow) Lookup(name string) (Entry, bool) {
	col, ok := r.Table.ColumnIndex(name)
	if !ok {
		return Entry{}, false
	}
	return r.Cell(col), true
}

func (r TableRow) String() string {
	return fmt.Sprintf("<table row %d>", r.Idx)
}

// TypeOf returns the static type of v. A nil interface is reported as TypeNil.
func TypeOf(v Value) Type {
	if v == nil {
		return TypeNil
	}
	return v.Type()
}

// Equal compares two values structurally.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return TypeOf(a) == TypeOf(b) && TypeOf(a) == TypeNil
	}
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Num:
		bv, ok := b.(Num)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case *Table:
		bv, ok := b.(*Table)
		return ok && av.Equal(bv)
	case TableRow:
		bv, ok := b.(TableRow)
		return ok && av.Table == bv.Table && av.Idx == bv.Idx
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Equal(bv)
	default:
		return false
	}
}
