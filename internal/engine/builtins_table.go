package engine

import (
	"sort"
	"strings"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/value"
)

// getCmd reads a record field, resolved against the schema at compile time,
// or a table row cell by column name, typed by the optional type argument.
func getCmd() *builtin {
	return &builtin{
		help: &diag.HelpMessage{
			Cmd:    "get",
			Desc:   "get a field of a record, or a cell of a table row\ntable row cells are Num unless a type is given",
			Params: []diag.HelpParam{diag.Required("field"), diag.Optional("Type")},
			Examples: []diag.HelpExample{
				{Desc: "read a record field", Code: "Point 1 2 | get x"},
				{Desc: "filter rows on a text column", Code: "open file.csv | filter { get name Str | = 'a' }"},
			},
		},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.arity(1, 2); err != nil {
				return nil, err
			}
			field, ftag, err := bc.word(0)
			if err != nil {
				return nil, err
			}
			switch bc.in.Kind {
			case value.KindRecord:
				return getField(bc, field, ftag)
			case value.KindTableRow:
				return getCell(bc, field, ftag)
			default:
				return nil, bc.errorf(bc.blk.OpTag, diag.ErrCodeTypeMismatch,
					"`get` expects input TableRow or a record, found %s", bc.in)
			}
		},
	}
}

func getField(bc *blockCtx, field string, ftag ast.Tag) (*Stage, error) {
	td, ok := bc.c.eng.defs.LookupType(bc.in.Name)
	if !ok {
		return nil, bc.errorf(bc.blk.OpTag, diag.ErrCodeUnknownType, "unknown type `%s`", bc.in.Name)
	}
	idx, ok := td.Schema.Index(field)
	if !ok {
		e := bc.errorf(ftag, diag.ErrCodeUnknownField, "`%s` has no field `%s`", td.Name(), field)
		return nil, withSuggestion(e, field, td.Schema.FieldNames())
	}
	typ := td.Schema.Fields[idx].Type
	if len(bc.blk.Args) == 2 {
		want, err := bc.typeName(1)
		if err != nil {
			return nil, err
		}
		if want != typ {
			return nil, bc.errorf(bc.blk.Args[1].ArgTag(), diag.ErrCodeTypeMismatch,
				"field `%s` of `%s` is %s, not %s", field, td.Name(), typ, want)
		}
	}
	blk := bc.blk
	return bc.stage(typ, func(in value.Value, _ *Context) (value.Value, error) {
		// The record may predate a redefinition of its type.
		v, ok := in.(*value.Record).Get(field)
		if !ok {
			return nil, evalError(blk, ftag, diag.ErrCodeValueMismatch, "record has no field `%s`", field)
		}
		if value.TypeOf(v) != typ {
			return nil, evalError(blk, ftag, diag.ErrCodeValueMismatch, "field `%s` holds %s, expected %s", field, value.TypeOf(v), typ)
		}
		return v, nil
	}), nil
}

func getCell(bc *blockCtx, column string, ctag ast.Tag) (*Stage, error) {
	typ := value.TypeNum
	if len(bc.blk.Args) == 2 {
		t, err := bc.typeName(1)
		if err != nil {
			return nil, err
		}
		typ = t
	}
	blk := bc.blk
	return bc.stage(typ, func(in value.Value, _ *Context) (value.Value, error) {
		row := in.(value.TableRow)
		e, ok := row.Lookup(column)
		if !ok {
			return nil, evalError(blk, ctag, diag.ErrCodeValueMismatch, "table has no column `%s`", column)
		}
		v := e.Value()
		if value.TypeOf(v) != typ {
			return nil, evalError(blk, ctag, diag.ErrCodeValueMismatch,
				"column `%s` holds %s at row %d, expected %s", column, value.TypeOf(v), row.Idx, typ)
		}
		return v, nil
	}), nil
}

func filterCmd() *builtin {
	return &builtin{
		help: &diag.HelpMessage{
			Cmd:    "filter",
			Desc:   "keep the table rows for which the predicate is true\nthe predicate receives each row as a TableRow",
			Params: []diag.HelpParam{diag.Required("{predicate}")},
			Examples: []diag.HelpExample{
				{Desc: "keep rows where qty exceeds 5", Code: "open file.csv | filter { get qty | > 5 }"},
			},
		},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.input(value.TypeTable); err != nil {
				return nil, err
			}
			if err := bc.arity(1, 1); err != nil {
				return nil, err
			}
			pred, err := bc.argSeeded(0, value.TypeTableRow, value.TypeBool)
			if err != nil {
				return nil, err
			}
			return bc.stage(value.TypeTable, func(in value.Value, cx *Context) (value.Value, error) {
				t := in.(*value.Table)
				var keep []int
				for r := t.FirstDataRow(); r < t.RowsLen(); r++ {
					v, err := pred.eval(value.TableRow{Table: t, Idx: r}, cx)
					if err != nil {
						return nil, err
					}
					if v.(value.Bool) {
						keep = append(keep, r)
					}
				}
				return t.SelectRows(keep), nil
			}), nil
		},
	}
}

func sortByCmd() *builtin {
	return &builtin{
		help: &diag.HelpMessage{
			Cmd:    "sort-by",
			Desc:   "sort table rows by a column\nempty cells sort first, then numbers, then text",
			Params: []diag.HelpParam{diag.Required("column")},
			Flags:  []diag.HelpFlag{{Name: "desc", Desc: "sort in descending order"}},
			Examples: []diag.HelpExample{
				{Desc: "largest qty first", Code: "open file.csv | sort-by qty --desc"},
			},
		},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.input(value.TypeTable); err != nil {
				return nil, err
			}
			if err := bc.arity(1, 1); err != nil {
				return nil, err
			}
			column, ctag, err := bc.word(0)
			if err != nil {
				return nil, err
			}
			desc := bc.blk.HasFlag("desc")
			blk := bc.blk
			return bc.stage(value.TypeTable, func(in value.Value, _ *Context) (value.Value, error) {
				t := in.(*value.Table)
				col, ok := t.ColumnIndex(column)
				if !ok {
					return nil, evalError(blk, ctag, diag.ErrCodeValueMismatch, "table has no column `%s`", column)
				}
				rows := make([]int, 0, t.DataRows())
				for r := t.FirstDataRow(); r < t.RowsLen(); r++ {
					rows = append(rows, r)
				}
				sort.SliceStable(rows, func(i, j int) bool {
					c := compareEntries(t.Cell(rows[i], col), t.Cell(rows[j], col))
					if desc {
						return c > 0
					}
					return c < 0
				})
				return t.SelectRows(rows), nil
			}), nil
		},
	}
}

// compareEntries orders empty cells, then numbers, then everything else by
// its text.
func compareEntries(a, b value.Entry) int {
	ra, rb := entryRank(a), entryRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		return 0
	case 1:
		an, _ := a.AsNum()
		bn, _ := b.AsNum()
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	return strings.Compare(a.String(), b.String())
}

func entryRank(e value.Entry) int {
	if e.IsNil() {
		return 0
	}
	if _, ok := e.AsNum(); ok {
		return 1
	}
	return 2
}
