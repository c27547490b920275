package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/roach88/tabula/internal/diag"
)

// Error writes a diagnostic with one section per trace, call site first.
//
//	Resolve Error [E200]: unknown command `opn`
//	--> shell
//	 | opn a.csv
//	 | ^^^
//	--> help: did you mean `open`?
//
// Help messages print their usage text instead.
func Error(w io.Writer, e *diag.Error) error {
	var b strings.Builder
	if e.Cat == diag.CategoryHelp {
		fmt.Fprintf(&b, "Help: %s\n", e.Desc)
		for _, t := range e.Traces {
			b.WriteString(strings.TrimRight(t.Source, "\n"))
			b.WriteByte('\n')
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "%s Error [%s]: %s\n", e.Cat, e.Code, e.Desc)
	for _, t := range e.Traces {
		writeTrace(&b, t)
	}
	if e.Help != "" {
		fmt.Fprintf(&b, "--> help: %s\n", e.Help)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeTrace prints the source line holding the span with carets under it.
func writeTrace(b *strings.Builder, t diag.Trace) {
	fmt.Fprintf(b, "--> %s\n", t.Loc)
	if t.Source == "" {
		return
	}
	start := min(max(t.Start, 0), len(t.Source))
	lineStart := strings.LastIndexByte(t.Source[:start], '\n') + 1
	lineEnd := len(t.Source)
	if i := strings.IndexByte(t.Source[start:], '\n'); i >= 0 {
		lineEnd = start + i
	}
	end := min(start+t.Len, lineEnd)

	fmt.Fprintf(b, " | %s\n", t.Source[lineStart:lineEnd])
	pad := runewidth.StringWidth(t.Source[lineStart:start])
	carets := max(runewidth.StringWidth(t.Source[start:end]), 1)
	b.WriteString(" | ")
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(strings.Repeat("^", carets))
	if t.Desc != "" {
		b.WriteByte(' ')
		b.WriteString(t.Desc)
	}
	b.WriteByte('\n')
}
