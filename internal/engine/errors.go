package engine

import (
	"fmt"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/defs"
	"github.com/roach88/tabula/internal/diag"
)

// resolveError is a compile-time failure located at a span of a block.
func resolveError(b *ast.Block, tag ast.Tag, code, format string, args ...any) *diag.Error {
	return diag.Newf(diag.CategoryResolve, code, format, args...).
		WithTrace(diag.TraceAt(b.Loc, b.Source, tag, ""))
}

// evalError is a run-time failure. The running plan prepends the block's
// trace; a tag narrows the error to one argument when it is not zero.
func evalError(b *ast.Block, tag ast.Tag, code, format string, args ...any) *diag.Error {
	e := diag.Newf(diag.CategoryEvaluate, code, format, args...)
	if tag != (ast.Tag{}) {
		e.WithTrace(diag.TraceAt(b.Loc, b.Source, tag, ""))
	}
	return e
}

// withSuggestion attaches "did you mean" help when a close candidate exists.
func withSuggestion(e *diag.Error, name string, candidates []string) *diag.Error {
	if s, ok := defs.Suggest(name, candidates); ok {
		e.WithHelp(fmt.Sprintf("did you mean `%s`?", s))
	}
	return e
}

// IsTooDeep reports whether err is a failed definition expansion that
// exceeded the depth limit.
func IsTooDeep(err error) bool {
	return diag.HasCode(err, diag.ErrCodeTooDeep)
}

// IsCyclicDefinition reports whether err rejected a definition that would
// call itself.
func IsCyclicDefinition(err error) bool {
	return diag.HasCode(err, diag.ErrCodeCyclicDef)
}
