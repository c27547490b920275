package engine

import (
	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/value"
)

// evalFunc runs one stage. The Context is private to the running plan, so a
// stage may replace its Env to bind variables for the stages after it.
type evalFunc func(in value.Value, cx *Context) (value.Value, error)

// Stage is one compiled, type-checked block.
type Stage struct {
	// Name is the command the block invoked.
	Name  string
	In    value.Type
	Out   value.Type
	Block *ast.Block
	eval  evalFunc
}

// Plan is an ordered chain of stages. For adjacent stages
// Stages[i+1].In accepts Stages[i].Out; the compiler guarantees it and
// evaluation does not re-check it.
//
// A Plan is immutable and may be evaluated concurrently with different
// Contexts.
type Plan struct {
	In     value.Type
	Out    value.Type
	Stages []*Stage
}

// Eval runs the plan on seed. The seed must have the plan's input type.
// Evaluation stops at the first failing stage; the error's primary trace
// points at that stage's block.
func (p *Plan) Eval(seed value.Value, cx *Context) (value.Value, error) {
	if got := value.TypeOf(seed); !p.In.Accepts(got) {
		return nil, diag.Newf(diag.CategoryEvaluate, diag.ErrCodeValueMismatch,
			"seed value is %s but the expression was compiled for %s", got, p.In)
	}
	return p.run(seed, cx)
}

func (p *Plan) run(v value.Value, cx *Context) (value.Value, error) {
	local := *cx
	// Stage types were matched at compile time; only the seed is checked.
	for _, st := range p.Stages {
		out, err := st.eval(v, &local)
		if err != nil {
			return nil, st.fail(err)
		}
		v = out
	}
	return v, nil
}

// fail converts err into a diagnostic located at the stage's block, keeping
// any inner traces after it.
func (st *Stage) fail(err error) *diag.Error {
	de := diag.Wrap(diag.CategoryEvaluate, diag.ErrCodeEval, err)
	return de.PushCallSite(blockTrace(st.Block))
}

// blockTrace underlines a whole block.
func blockTrace(b *ast.Block) diag.Trace {
	return diag.TraceAt(b.Loc, b.Source, b.Tag, "")
}
