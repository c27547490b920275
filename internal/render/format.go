package render

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/roach88/tabula/internal/value"
)

// Formatter renders scalars for display. Numbers are grouped and printed
// with at most four decimals according to the formatter's language.
type Formatter struct {
	p *message.Printer
}

// NewFormatter returns a Formatter for the given language.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{p: message.NewPrinter(tag)}
}

// DefaultFormatter formats numbers the English way: 1,234.5.
func DefaultFormatter() *Formatter {
	return NewFormatter(language.English)
}

// Num formats a number for display.
func (f *Formatter) Num(n float64) string {
	switch {
	case math.IsNaN(n) || math.IsInf(n, 0):
		return strconv.FormatFloat(n, 'g', -1, 64)
	case n == math.Trunc(n) && math.Abs(n) < 1e15:
		return f.p.Sprintf("%d", int64(n))
	default:
		return f.p.Sprintf("%v", number.Decimal(n, number.MaxFractionDigits(4)))
	}
}

// Entry formats a table cell. Empty cells are a dash.
func (f *Formatter) Entry(e value.Entry) string {
	if e.IsNil() {
		return "-"
	}
	if n, ok := e.AsNum(); ok {
		return f.Num(n)
	}
	return f.Value(e.Value())
}

// Value formats any value on one line. Tables are summarised by their size.
func (f *Formatter) Value(v value.Value) string {
	switch v := v.(type) {
	case nil, value.Nil:
		return "nil"
	case value.Num:
		return f.Num(float64(v))
	case value.Bool:
		return strconv.FormatBool(bool(v))
	case value.Str:
		return string(v)
	case *value.Table:
		return fmt.Sprintf("<table [%d,%d]>", v.RowsLen(), v.ColsLen())
	case value.TableRow:
		return "<table row>"
	default:
		return fmt.Sprint(v)
	}
}
