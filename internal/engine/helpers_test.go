package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/fscache"
	"github.com/roach88/tabula/internal/parser"
	"github.com/roach88/tabula/internal/testutil"
	"github.com/roach88/tabula/internal/value"
)

// fixture is an engine over the builtin registry with a temporary root.
type fixture struct {
	eng  *Engine
	root string
	cx   *Context
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()
	return newFixtureWithCache(t, nil, opts...)
}

func newFixtureWithCache(t *testing.T, cache *fscache.Cache, opts ...EngineOption) *fixture {
	t.Helper()
	root := testutil.TempRoot(t)
	cx, err := NewContext(root, "", cache)
	require.NoError(t, err)
	return &fixture{eng: New(NewDefinitions(), opts...), root: root, cx: cx}
}

func (f *fixture) parse(t *testing.T, src string) *ast.Expression {
	t.Helper()
	expr, err := parser.Expression(src, ast.Shell(), f.eng.Definitions())
	require.NoError(t, err)
	return expr
}

func (f *fixture) compile(t *testing.T, seed value.Type, src string) (*Plan, error) {
	t.Helper()
	return f.eng.Compile(seed, f.parse(t, src), nil)
}

// run compiles src for the seed's type and evaluates it.
func (f *fixture) run(t *testing.T, seed value.Value, src string) (value.Value, error) {
	t.Helper()
	plan, err := f.compile(t, value.TypeOf(seed), src)
	if err != nil {
		return nil, err
	}
	return plan.Eval(seed, f.cx)
}

// eval runs src with a Nil seed and requires success.
func (f *fixture) eval(t *testing.T, src string) value.Value {
	t.Helper()
	v, err := f.run(t, value.Nil{}, src)
	require.NoError(t, err, "evaluating %q", src)
	return v
}

func (f *fixture) def(t *testing.T, src string) error {
	t.Helper()
	impl, err := parser.DefinitionImpl(src, ast.Shell(), f.eng.Definitions())
	require.NoError(t, err)
	_, err = f.eng.DefineCommand(impl, "")
	return err
}

func (f *fixture) mustDef(t *testing.T, src string) {
	t.Helper()
	require.NoError(t, f.def(t, src))
}

func (f *fixture) mustDefTy(t *testing.T, src string) *value.Schema {
	t.Helper()
	decl, err := parser.DefinitionType(src, ast.Shell())
	require.NoError(t, err)
	td, err := f.eng.DefineType(decl, "")
	require.NoError(t, err)
	return td.Schema
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	return testutil.WriteFile(t, f.root, name, content)
}

// requireDiag asserts err is a diagnostic with the given code.
func requireDiag(t *testing.T, err error, code string) *diag.Error {
	t.Helper()
	require.Error(t, err)
	de, ok := diag.As(err)
	require.True(t, ok, "not a diagnostic: %v", err)
	require.Equal(t, code, de.Code, "error: %v", err)
	return de
}

// underlines lists the underlined text of every trace, call site first.
func underlines(de *diag.Error) []string {
	out := make([]string, len(de.Traces))
	for i, tr := range de.Traces {
		out[i] = tr.Underlined()
	}
	return out
}

const fruitCSV = "name,qty\napple,3\npear,7\nfig,5\n"
