package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ast"
)

func TestError_Format(t *testing.T) {
	src := "open x.csv | len"
	err := New(CategoryEvaluate, ErrCodeIO, "file not found").
		WithTrace(TraceAt(ast.Shell(), src, ast.Tag{Start: 0, Len: 10}, "opening here"))

	assert.Equal(t, "Evaluate [E301]: file not found --> shell `open x.csv`", err.Error())
}

func TestError_CallSitesPrepend(t *testing.T) {
	inner := TraceAt(ast.Shell().InDef("inc"), "+ x", ast.Tag{Start: 0, Len: 3}, "")
	outer := TraceAt(ast.Shell(), "1 | inc", ast.Tag{Start: 4, Len: 3}, "")

	err := New(CategoryResolve, ErrCodeTypeMismatch, "bad").WithTrace(inner)
	err.PushCallSite(outer)

	primary, ok := err.Primary()
	require.True(t, ok)
	assert.Equal(t, "inc", primary.Underlined())

	leaf, ok := err.Leaf()
	require.True(t, ok)
	assert.Equal(t, "inc", leaf.Loc.Def)
}

func TestIsCategory_Wrapped(t *testing.T) {
	base := New(CategoryPermission, ErrCodePathEscape, "escape")
	wrapped := fmt.Errorf("context: %w", base)

	assert.True(t, IsCategory(wrapped, CategoryPermission))
	assert.False(t, IsCategory(wrapped, CategoryParse))
	assert.True(t, HasCode(wrapped, ErrCodePathEscape))
	assert.False(t, IsCategory(errors.New("plain"), CategoryPermission))
}

func TestWrap(t *testing.T) {
	plain := Wrap(CategoryEvaluate, ErrCodeEval, errors.New("boom"))
	assert.Equal(t, "boom", plain.Desc)
	assert.Equal(t, CategoryEvaluate, plain.Cat)

	existing := New(CategoryParse, ErrCodeSyntax, "x")
	assert.Same(t, existing, Wrap(CategoryEvaluate, ErrCodeEval, existing))
}
