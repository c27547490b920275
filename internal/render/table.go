package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/roach88/tabula/internal/value"
)

const (
	DefaultRowsLimit = 30
	DefaultColsLimit = 7

	edgeRows = 5
	edgeCols = 3
)

// Limits bounds the size of a table shown without elision.
type Limits struct {
	// Rows is compared against RowsLen, which counts a header row.
	Rows int
	Cols int
}

// DefaultLimits shows up to 30 rows and 7 columns in full.
func DefaultLimits() Limits {
	return Limits{Rows: DefaultRowsLimit, Cols: DefaultColsLimit}
}

// View is the display grid of a table.
//
// When rows were elided, Rows holds the first data rows, one marker row and
// the last data rows. When columns were elided, every row carries one marker
// cell between its first and last columns: the header states the count and
// the other rows hold "...".
type View struct {
	Header     []string
	Rows       [][]string
	RowsElided int
	ColsElided int
}

// Elide builds the View of t under lim.
func Elide(t *value.Table, lim Limits, f *Formatter) *View {
	v := &View{}
	if t.IsEmpty() {
		return v
	}

	cols := t.ColsLen()
	if cols > lim.Cols && cols > 2*edgeCols {
		v.ColsElided = cols - 2*edgeCols
	}
	row := func(r int, header bool) []string {
		cells := t.Row(r)
		if v.ColsElided == 0 {
			out := make([]string, len(cells))
			for i, c := range cells {
				out[i] = f.Entry(c)
			}
			return out
		}
		out := make([]string, 0, 2*edgeCols+1)
		for _, c := range cells[:edgeCols] {
			out = append(out, f.Entry(c))
		}
		if header {
			out = append(out, fmt.Sprintf("%d cols elided", v.ColsElided))
		} else {
			out = append(out, "...")
		}
		for _, c := range cells[cols-edgeCols:] {
			out = append(out, f.Entry(c))
		}
		return out
	}

	if t.Header() {
		v.Header = row(0, true)
	}
	first, data := t.FirstDataRow(), t.DataRows()
	if t.RowsLen() <= lim.Rows || data <= 2*edgeRows {
		for r := first; r < t.RowsLen(); r++ {
			v.Rows = append(v.Rows, row(r, false))
		}
		return v
	}

	v.RowsElided = data - 2*edgeRows
	for r := first; r < first+edgeRows; r++ {
		v.Rows = append(v.Rows, row(r, false))
	}
	width := cols
	if v.ColsElided > 0 {
		width = 2*edgeCols + 1
	}
	marker := make([]string, width)
	marker[0] = fmt.Sprintf("%d rows elided", v.RowsElided)
	for i := 1; i < width; i++ {
		marker[i] = "..."
	}
	v.Rows = append(v.Rows, marker)
	for r := t.RowsLen() - edgeRows; r < t.RowsLen(); r++ {
		v.Rows = append(v.Rows, row(r, false))
	}
	return v
}

// Write draws the view as a box. An empty view prints "table is empty".
func (v *View) Write(w io.Writer) error {
	if v.Header == nil && len(v.Rows) == 0 {
		_, err := io.WriteString(w, "table is empty\n")
		return err
	}

	var widths []int
	measure := func(cells []string) {
		for i, c := range cells {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	measure(v.Header)
	for _, r := range v.Rows {
		measure(r)
	}

	var b strings.Builder
	rule := func(left, fill, mid, right string) {
		b.WriteString(left)
		for i, wd := range widths {
			if i > 0 {
				b.WriteString(mid)
			}
			b.WriteString(strings.Repeat(fill, wd+2))
		}
		b.WriteString(right)
		b.WriteByte('\n')
	}
	line := func(cells []string) {
		b.WriteString("│")
		for i, wd := range widths {
			c := ""
			if i < len(cells) {
				c = cells[i]
			}
			b.WriteByte(' ')
			b.WriteString(c)
			b.WriteString(strings.Repeat(" ", wd-runewidth.StringWidth(c)))
			b.WriteString(" │")
		}
		b.WriteByte('\n')
	}

	rule("┌", "─", "┬", "┐")
	if v.Header != nil {
		line(v.Header)
		rule("╞", "═", "╪", "╡")
	}
	for _, r := range v.Rows {
		line(r)
	}
	rule("└", "─", "┴", "┘")

	_, err := io.WriteString(w, b.String())
	return err
}

// Table renders t with elision.
func Table(w io.Writer, t *value.Table, lim Limits, f *Formatter) error {
	return Elide(t, lim, f).Write(w)
}

// Value renders v: tables as boxes, everything else on one line.
func Value(w io.Writer, v value.Value, lim Limits, f *Formatter) error {
	if t, ok := v.(*value.Table); ok {
		return Table(w, t, lim, f)
	}
	_, err := fmt.Fprintln(w, f.Value(v))
	return err
}
