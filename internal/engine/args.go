package engine

import (
	"strings"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/defs"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/value"
)

// blockCtx is what a command sees while compiling one block.
type blockCtx struct {
	c      *compiler
	blk    *ast.Block
	in     value.Type
	locals *Locals
	// next is the scope for the following blocks. Only let changes it.
	next *Locals
}

// argument is a compiled block argument.
type argument struct {
	typ  value.Type
	tag  ast.Tag
	eval evalFunc
}

func constArg(v value.Value, tag ast.Tag) *argument {
	return &argument{
		typ: v.Type(),
		tag: tag,
		eval: func(value.Value, *Context) (value.Value, error) {
			return v, nil
		},
	}
}

func (bc *blockCtx) stage(out value.Type, fn evalFunc) *Stage {
	return &Stage{Name: bc.blk.Name(), In: bc.in, Out: out, Block: bc.blk, eval: fn}
}

func (bc *blockCtx) errorf(tag ast.Tag, code, format string, args ...any) *diag.Error {
	return resolveError(bc.blk, tag, code, format, args...)
}

// flags rejects any flag other than --help and the allowed ones.
func (bc *blockCtx) flags(allowed ...string) error {
	for _, f := range bc.blk.Flags {
		if f.Name == "help" {
			continue
		}
		ok := false
		for _, a := range allowed {
			ok = ok || a == f.Name
		}
		if !ok {
			return bc.errorf(f.Tag, diag.ErrCodeUnknownFlag, "`%s` has no flag `--%s`", bc.blk.Name(), f.Name)
		}
	}
	return nil
}

// arity checks the argument count. A negative max means unbounded.
func (bc *blockCtx) arity(minArgs, maxArgs int) error {
	n := len(bc.blk.Args)
	switch {
	case n < minArgs:
		return bc.errorf(bc.blk.Tag, diag.ErrCodeArgCount,
			"`%s` expects at least %d %s, found %d", bc.blk.Op, minArgs, plural(minArgs, "argument"), n)
	case maxArgs >= 0 && n > maxArgs:
		return bc.errorf(bc.blk.Args[maxArgs].ArgTag(), diag.ErrCodeArgCount,
			"`%s` expects at most %d %s, found %d", bc.blk.Op, maxArgs, plural(maxArgs, "argument"), n)
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// input requires the current type to be one of types.
func (bc *blockCtx) input(types ...value.Type) error {
	for _, t := range types {
		if bc.c.accepts(t, bc.in) {
			return nil
		}
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return bc.errorf(bc.blk.OpTag, diag.ErrCodeTypeMismatch,
		"`%s` expects input %s, found %s", bc.blk.Name(), strings.Join(names, " or "), bc.in)
}

func (bc *blockCtx) inputMismatch(want value.Type) error {
	return bc.errorf(bc.blk.OpTag, diag.ErrCodeTypeMismatch,
		"`%s` expects input %s, found %s", bc.blk.Name(), want, bc.in)
}

// arg compiles argument i. Nested expressions are seeded with the block's
// input type and evaluated against the block's input value.
func (bc *blockCtx) arg(i int, want value.Type) (*argument, error) {
	return bc.argSeeded(i, bc.in, want)
}

// argSeeded compiles argument i, seeding nested expressions with seed.
// The command must then evaluate the argument with a value of that type.
func (bc *blockCtx) argSeeded(i int, seed, want value.Type) (*argument, error) {
	raw := bc.blk.Args[i]
	var a *argument
	switch raw := raw.(type) {
	case ast.NumLit:
		a = constArg(value.Num(raw.Val), raw.Tag)
	case ast.StrLit:
		a = constArg(value.Str(raw.Val), raw.Tag)
	case ast.Ident:
		a = constArg(value.Str(raw.Name), raw.Tag)
	case ast.BoolLit:
		a = constArg(value.Bool(raw.Val), raw.Tag)
	case ast.NilLit:
		a = constArg(value.Nil{}, raw.Tag)
	case ast.Var:
		va, err := bc.variable(raw)
		if err != nil {
			return nil, err
		}
		a = va
	case ast.Nested:
		sub, err := bc.c.expression(seed, raw.Expr, bc.locals)
		if err != nil {
			return nil, callSite(err, bc.blk)
		}
		a = &argument{typ: sub.Out, tag: raw.Tag, eval: sub.run}
	default:
		return nil, bc.errorf(raw.ArgTag(), diag.ErrCodeSyntax, "unsupported argument")
	}

	if !bc.c.accepts(want, a.typ) {
		return nil, bc.errorf(a.tag, diag.ErrCodeTypeMismatch,
			"`%s` expects %s for argument %d, found %s", bc.blk.Name(), want, i+1, a.typ)
	}
	return a, nil
}

func (bc *blockCtx) variable(v ast.Var) (*argument, error) {
	typ, ok := bc.locals.Lookup(v.Name)
	if !ok {
		err := bc.errorf(v.Tag, diag.ErrCodeUnknownVariable, "unknown variable `$%s`", v.Name)
		return nil, withSuggestion(err, v.Name, bc.locals.Names())
	}
	blk, name := bc.blk, v.Name
	return &argument{
		typ: typ,
		tag: v.Tag,
		eval: func(_ value.Value, cx *Context) (value.Value, error) {
			val, ok := cx.Env.Lookup(name)
			if !ok {
				return nil, evalError(blk, v.Tag, diag.ErrCodeEval, "variable `$%s` is not bound", name)
			}
			return val, nil
		},
	}, nil
}

// word reads argument i as a compile-time name: a bare word or a string.
func (bc *blockCtx) word(i int) (string, ast.Tag, error) {
	switch a := bc.blk.Args[i].(type) {
	case ast.Ident:
		return a.Name, a.Tag, nil
	case ast.StrLit:
		return a.Val, a.Tag, nil
	default:
		return "", a.ArgTag(), bc.errorf(a.ArgTag(), diag.ErrCodeTypeMismatch,
			"`%s` expects a name for argument %d", bc.blk.Name(), i+1)
	}
}

// typeName reads argument i as a type name.
func (bc *blockCtx) typeName(i int) (value.Type, error) {
	name, tag, err := bc.word(i)
	if err != nil {
		return value.Type{}, err
	}
	reg := bc.c.eng.defs
	t, ok := reg.ResolveType(name)
	if !ok {
		e := bc.errorf(tag, diag.ErrCodeUnknownType, "unknown type `%s`", name)
		return value.Type{}, withSuggestion(e, name, append(value.BuiltinTypeNames(), reg.Types()...))
	}
	return t, nil
}

// literal compiles a block headed by a literal: a constant stage.
func (bc *blockCtx) literal() (*Stage, error) {
	if err := bc.flags(); err != nil {
		return nil, err
	}
	if len(bc.blk.Args) > 0 {
		return nil, bc.errorf(bc.blk.Args[0].ArgTag(), diag.ErrCodeArgCount,
			"a literal takes no arguments")
	}
	var v value.Value
	switch lit := bc.blk.Literal.(type) {
	case ast.NumLit:
		v = value.Num(lit.Val)
	case ast.StrLit:
		v = value.Str(lit.Val)
	case ast.BoolLit:
		v = value.Bool(lit.Val)
	default:
		v = value.Nil{}
	}
	return bc.stage(v.Type(), func(value.Value, *Context) (value.Value, error) {
		return v, nil
	}), nil
}

// construct compiles a record constructor: one argument per field.
func (bc *blockCtx) construct(td *defs.TypeDef) (*Stage, error) {
	if err := bc.flags(); err != nil {
		return nil, err
	}
	schema := td.Schema
	if n := len(bc.blk.Args); n != len(schema.Fields) {
		return nil, bc.errorf(bc.blk.Tag, diag.ErrCodeArgCount,
			"`%s` has %d fields, found %d %s", schema.Name, len(schema.Fields), n, plural(n, "argument"))
	}
	args := make([]*argument, len(schema.Fields))
	for i, f := range schema.Fields {
		a, err := bc.arg(i, f.Type)
		if err != nil {
			return nil, err
		}
		args[i] = a
	}
	blk := bc.blk
	return bc.stage(schema.Type(), func(in value.Value, cx *Context) (value.Value, error) {
		vals, err := evalArgs(args, in, cx)
		if err != nil {
			return nil, err
		}
		rec, err := value.NewRecord(schema, vals...)
		if err != nil {
			return nil, evalError(blk, ast.Tag{}, diag.ErrCodeValueMismatch, "%v", err)
		}
		return rec, nil
	}), nil
}

// evalArgs evaluates every argument against in.
func evalArgs(args []*argument, in value.Value, cx *Context) ([]value.Value, error) {
	out := make([]value.Value, len(args))
	for i, a := range args {
		v, err := a.eval(in, cx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
