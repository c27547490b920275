package engine

import (
	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/defs"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/value"
)

// compiler holds the state of one Compile call.
type compiler struct {
	eng *Engine
	// depth counts the user definitions currently being expanded.
	depth int
	// checking is set while validating a definition body, where parameters
	// without a declared type are TypeAny and satisfy any expectation.
	checking bool
}

// accepts is Type.Accepts, relaxed for untyped parameters while checking.
func (c *compiler) accepts(want, got value.Type) bool {
	if want.Accepts(got) {
		return true
	}
	return c.checking && got == value.TypeAny
}

// expression compiles blocks left to right, threading the current type from
// seed. The first failure stops compilation.
func (c *compiler) expression(seed value.Type, expr *ast.Expression, locals *Locals) (*Plan, error) {
	plan := &Plan{In: seed, Stages: make([]*Stage, 0, len(expr.Blocks))}
	cur := seed
	for _, blk := range expr.Blocks {
		st, next, err := c.block(blk, cur, locals)
		if err != nil {
			return nil, err
		}
		plan.Stages = append(plan.Stages, st)
		cur = st.Out
		locals = next
	}
	plan.Out = cur
	return plan, nil
}

// block resolves one block and returns its stage and the scope visible to
// the blocks after it.
func (c *compiler) block(blk *ast.Block, in value.Type, locals *Locals) (*Stage, *Locals, error) {
	bc := &blockCtx{c: c, blk: blk, in: in, locals: locals, next: locals}
	if blk.Literal != nil {
		st, err := bc.literal()
		return st, locals, err
	}

	reg := c.eng.defs
	var cmd defs.Command
	if found, ok := reg.LookupCommand(blk.Op); ok {
		cmd = found
	} else if td, ok := reg.LookupType(blk.Op); ok {
		cmd = td
	} else {
		err := resolveError(blk, blk.OpTag, diag.ErrCodeUnknownCommand, "unknown command `%s`", blk.Op)
		return nil, nil, withSuggestion(err, blk.Op, reg.Invocable())
	}

	if blk.HasFlag("help") {
		return nil, nil, cmd.Help().AsError()
	}

	var (
		st  *Stage
		err error
	)
	switch cmd := cmd.(type) {
	case *builtin:
		if err := bc.flags(cmd.flagNames()...); err != nil {
			return nil, nil, err
		}
		st, err = cmd.compile(bc)
	case *defs.UserDef:
		st, err = c.inline(bc, cmd)
	case *defs.TypeDef:
		st, err = bc.construct(cmd)
	default:
		err = resolveError(blk, blk.OpTag, diag.ErrCodeUnknownCommand, "`%s` cannot be invoked", blk.Op)
	}
	if err != nil {
		return nil, nil, err
	}
	return st, bc.next, nil
}

// inline expands a user definition at the call site. Arguments are compiled
// in the caller's scope and bound to the parameters; the body is compiled
// with the current type as its seed and sees only its parameters. Caller
// variables reach a body through arguments, never by name.
func (c *compiler) inline(bc *blockCtx, u *defs.UserDef) (*Stage, error) {
	blk := bc.blk
	if c.depth >= c.eng.maxDepth {
		return nil, resolveError(blk, blk.OpTag, diag.ErrCodeTooDeep,
			"expanding `%s` exceeds the definition depth limit of %d", u.Name(), c.eng.maxDepth)
	}
	if err := bc.flags(); err != nil {
		return nil, err
	}
	if !c.accepts(u.In, bc.in) {
		return nil, bc.inputMismatch(u.In)
	}
	if len(blk.Args) != len(u.Params) {
		return nil, resolveError(blk, blk.Tag, diag.ErrCodeArgCount,
			"`%s` takes %d arguments, found %d", u.Name(), len(u.Params), len(blk.Args))
	}

	args := make([]*argument, len(u.Params))
	var scope *Locals
	for i, p := range u.Params {
		a, err := bc.arg(i, p.Type)
		if err != nil {
			return nil, err
		}
		args[i] = a
		scope = scope.With(p.Name, a.typ)
	}

	c.depth++
	body, err := c.expression(bc.in, u.Impl.Body, scope)
	c.depth--
	if err != nil {
		return nil, callSite(err, blk)
	}

	params := u.Params
	return bc.stage(body.Out, func(in value.Value, cx *Context) (value.Value, error) {
		var env *Environment
		for i, a := range args {
			v, err := a.eval(in, cx)
			if err != nil {
				return nil, err
			}
			env = env.With(params[i].Name, v)
		}
		// The running plan adds this block's trace in front of the body's.
		return body.run(in, cx.withEnv(env))
	}), nil
}

// callSite prefixes a compile error from a nested scope with the block that
// entered it. Help requests pass through untouched.
func callSite(err error, blk *ast.Block) error {
	de := diag.Wrap(diag.CategoryResolve, diag.ErrCodeEval, err)
	if de.Cat == diag.CategoryHelp {
		return de
	}
	return de.PushCallSite(blockTrace(blk))
}

// checkNames is the definition-time check for bodies without a declared
// input type: every block head must be invocable and every variable bound by
// a parameter or an earlier `let`. Types are checked at each call site
// instead.
func (c *compiler) checkNames(expr *ast.Expression, scope *Locals) error {
	reg := c.eng.defs
	for _, blk := range expr.Blocks {
		if blk.Literal == nil && !reg.HasCommand(blk.Op) {
			err := resolveError(blk, blk.OpTag, diag.ErrCodeUnknownCommand, "unknown command `%s`", blk.Op)
			return withSuggestion(err, blk.Op, reg.Invocable())
		}
		binds := blk.Op == "let" && blk.Literal == nil
		next := scope
		for _, a := range blk.Args {
			switch a := a.(type) {
			case ast.Nested:
				if err := c.checkNames(a.Expr, scope); err != nil {
					return err
				}
			case ast.Var:
				if binds {
					next = next.With(a.Name, value.TypeAny)
					continue
				}
				if _, ok := scope.Lookup(a.Name); !ok {
					err := resolveError(blk, a.Tag, diag.ErrCodeUnknownVariable, "unknown variable `$%s`", a.Name)
					return withSuggestion(err, a.Name, scope.Names())
				}
			}
		}
		scope = next
	}
	return nil
}
