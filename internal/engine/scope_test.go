package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tabula/internal/value"
)

func TestLocals_ShadowingLeavesParentIntact(t *testing.T) {
	var outer *Locals
	outer = outer.With("x", value.TypeNum)
	inner := outer.With("x", value.TypeStr).With("y", value.TypeBool)

	typ, ok := inner.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, value.TypeStr, typ)

	typ, ok = outer.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, value.TypeNum, typ)

	_, ok = outer.Lookup("y")
	assert.False(t, ok)

	assert.Equal(t, []string{"x", "y"}, inner.Names())
}

func TestLocals_EmptyScope(t *testing.T) {
	var empty *Locals
	_, ok := empty.Lookup("x")
	assert.False(t, ok)
	assert.Empty(t, empty.Names())
}

func TestEnvironment_Locals(t *testing.T) {
	var env *Environment
	assert.Nil(t, env.Locals())

	env = env.With("n", value.Num(1)).With("s", value.Str("a")).With("n", value.Bool(true))

	v, ok := env.Lookup("n")
	assert.True(t, ok)
	assert.Equal(t, value.Bool(true), v)

	locals := env.Locals()
	typ, ok := locals.Lookup("n")
	assert.True(t, ok)
	assert.Equal(t, value.TypeBool, typ)
	assert.Equal(t, []string{"n", "s"}, locals.Names())
}

func TestCompile_AgainstHostBoundVariables(t *testing.T) {
	f := newFixture(t)
	var env *Environment
	env = env.With("limit", value.Num(10))

	plan, err := f.eng.Compile(value.TypeNum, f.parse(t, "+ $limit"), env.Locals())
	assert.NoError(t, err)

	cx := *f.cx
	cx.Env = env
	v, err := plan.Eval(value.Num(5), &cx)
	assert.NoError(t, err)
	assert.Equal(t, value.Num(15), v)
}
