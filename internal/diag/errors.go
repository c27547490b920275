// Package diag holds the structured diagnostics shared by the parser,
// compiler and evaluator, and the help messages that travel through the
// same channel so presentation code has one rendering path for both.
package diag

import (
	"errors"
	"fmt"

	"github.com/roach88/tabula/internal/ast"
)

// Category is the broad class of a diagnostic.
type Category uint8

const (
	// CategoryHelp is not a failure: it carries a requested help message.
	CategoryHelp Category = iota + 1
	// CategoryParse covers malformed grammar and unknown tokens.
	CategoryParse
	// CategoryResolve covers unknown names, type mismatches and bad definition expansion.
	CategoryResolve
	// CategoryEvaluate covers run-time failures inside a stage.
	CategoryEvaluate
	// CategoryPermission is a path that escapes the root directory.
	CategoryPermission
)

func (c Category) String() string {
	switch c {
	case CategoryHelp:
		return "Help"
	case CategoryParse:
		return "Parse"
	case CategoryResolve:
		return "Resolve"
	case CategoryEvaluate:
		return "Evaluate"
	case CategoryPermission:
		return "Permission"
	default:
		return "Unknown"
	}
}

// Error codes. Parse errors are E1xx, resolve errors E2xx, evaluation errors E3xx.
const (
	CodeHelp = "H000"

	ErrCodeSyntax       = "E100" // malformed grammar
	ErrCodeUnexpected   = "E101" // unexpected token
	ErrCodeUnterminated = "E102" // unterminated string or brace

	ErrCodeUnknownCommand  = "E200"
	ErrCodeUnknownType     = "E201"
	ErrCodeUnknownVariable = "E202"
	ErrCodeTypeMismatch    = "E203"
	ErrCodeArgCount        = "E204"
	ErrCodeCyclicDef       = "E205"
	ErrCodeTooDeep         = "E206"
	ErrCodeUnknownField    = "E207"
	ErrCodeDuplicateName   = "E208"
	ErrCodeUnknownFlag     = "E209"

	ErrCodeEval          = "E300" // generic run-time failure
	ErrCodeIO            = "E301" // filesystem failure
	ErrCodeValueMismatch = "E302" // value shape differs from what the stage needs
	ErrCodePathEscape    = "E303" // path resolves outside root
)

// Error is a located, categorised failure.
//
// Traces are ordered call-site to leaf: Traces[0] is the primary trace and
// points at the top-level block the user wrote. Each level of definition
// inlining the error passes through adds its call site at the front.
type Error struct {
	Cat    Category
	Code   string
	Desc   string
	Traces []Trace
	Help   string
}

// Trace is one location in an error's chain.
type Trace struct {
	Loc    ast.Location
	Source string
	// Desc optionally explains what the underlined span is.
	Desc  string
	Start int
	Len   int
}

// New creates an error without traces.
func New(cat Category, code, desc string) *Error {
	return &Error{Cat: cat, Code: code, Desc: desc}
}

// Newf is New with formatting.
func Newf(cat Category, code, format string, args ...any) *Error {
	return New(cat, code, fmt.Sprintf(format, args...))
}

// TraceAt builds a trace underlining tag within source.
func TraceAt(loc ast.Location, source string, tag ast.Tag, desc string) Trace {
	return Trace{Loc: loc, Source: source, Desc: desc, Start: tag.Start, Len: tag.Len}
}

// Underlined returns the spanned text of the trace source.
func (t Trace) Underlined() string {
	return ast.Tag{Start: t.Start, Len: t.Len}.In(t.Source)
}

// Error implements error. The format is `Category [code]: desc --> location`.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s [%s]: %s", e.Cat, e.Code, e.Desc)
	if t, ok := e.Primary(); ok {
		msg += " --> " + t.Loc.String()
		if u := t.Underlined(); u != "" {
			msg += fmt.Sprintf(" `%s`", u)
		}
	}
	return msg
}

// Primary returns the outermost trace.
func (e *Error) Primary() (Trace, bool) {
	if len(e.Traces) == 0 {
		return Trace{}, false
	}
	return e.Traces[0], true
}

// Leaf returns the innermost trace.
func (e *Error) Leaf() (Trace, bool) {
	if len(e.Traces) == 0 {
		return Trace{}, false
	}
	return e.Traces[len(e.Traces)-1], true
}

// WithTrace appends an inner trace.
func (e *Error) WithTrace(t Trace) *Error {
	e.Traces = append(e.Traces, t)
	return e
}

// PushCallSite prepends an outer trace as the error leaves a nested scope.
func (e *Error) PushCallSite(t Trace) *Error {
	e.Traces = append([]Trace{t}, e.Traces...)
	return e
}

// WithHelp attaches help text.
func (e *Error) WithHelp(help string) *Error {
	e.Help = help
	return e
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCategory reports whether err is a diagnostic of category cat.
func IsCategory(err error, cat Category) bool {
	de, ok := As(err)
	return ok && de.Cat == cat
}

// HasCode reports whether err is a diagnostic with the given code.
func HasCode(err error, code string) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Wrap converts any error into a diagnostic. Existing diagnostics are returned unchanged.
func Wrap(cat Category, code string, err error) *Error {
	if de, ok := As(err); ok {
		return de
	}
	return New(cat, code, err.Error())
}
