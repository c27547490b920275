package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(true, [][]Entry{
		{StrEntry("name"), StrEntry("qty")},
		{StrEntry("apple"), NumEntry(3)},
		{StrEntry("pear"), NilEntry()},
	})
	require.NoError(t, err)
	return tbl
}

func TestNewTable_Shape(t *testing.T) {
	tbl := sampleTable(t)
	assert.Equal(t, 3, tbl.RowsLen(), "rows include the header")
	assert.Equal(t, 2, tbl.ColsLen())
	assert.Equal(t, 2, tbl.DataRows())
	assert.True(t, tbl.Header())
	assert.Equal(t, []string{"name", "qty"}, tbl.Columns())
}

func TestNewTable_RaggedRowsRejected(t *testing.T) {
	_, err := NewTable(false, [][]Entry{
		{NumEntry(1), NumEntry(2)},
		{NumEntry(1)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 1 cells, expected 2")
}

func TestNewTable_CopiesInput(t *testing.T) {
	row := []Entry{NumEntry(1)}
	tbl, err := NewTable(false, [][]Entry{row})
	require.NoError(t, err)

	row[0] = NumEntry(99)
	n, ok := tbl.Cell(0, 0).AsNum()
	require.True(t, ok)
	assert.Equal(t, 1.0, n, "building a table must not alias caller slices")
}

func TestTable_ColumnIndex(t *testing.T) {
	tbl := sampleTable(t)

	idx, ok := tbl.ColumnIndex("qty")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = tbl.ColumnIndex("missing")
	assert.False(t, ok)

	noHeader, err := NewTable(false, [][]Entry{{StrEntry("qty")}})
	require.NoError(t, err)
	_, ok = noHeader.ColumnIndex("qty")
	assert.False(t, ok, "headerless tables have no named columns")
}

func TestTable_SelectRowsKeepsHeader(t *testing.T) {
	tbl := sampleTable(t)

	out := tbl.SelectRows([]int{2})
	assert.Equal(t, 2, out.RowsLen())
	s, _ := out.Cell(1, 0).AsStr()
	assert.Equal(t, "pear", s)
	assert.Equal(t, 3, tbl.RowsLen(), "source table is unchanged")
}

func TestEntry_Variants(t *testing.T) {
	assert.True(t, NilEntry().IsNil())
	assert.True(t, ObjEntry(Nil{}).IsNil())
	assert.True(t, ObjEntry(nil).IsNil())

	n, ok := ObjEntry(Num(2)).AsNum()
	assert.True(t, ok)
	assert.Equal(t, 2.0, n)

	_, ok = StrEntry("x").AsNum()
	assert.False(t, ok)

	assert.Equal(t, Num(4), NumEntry(4).Value())
	assert.Equal(t, "-", NilEntry().String())
}

func TestTable_EqualTreatsBoxedNumbersAlike(t *testing.T) {
	a, err := NewTable(false, [][]Entry{{NumEntry(1)}})
	require.NoError(t, err)
	b, err := NewTable(false, [][]Entry{{ObjEntry(Num(1))}})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.True(t, Equal(a, b))
}
