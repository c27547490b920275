package defs

import (
	"fmt"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/value"
)

// Param is a resolved definition parameter. Undeclared parameters are TypeAny.
type Param struct {
	Name string
	Type value.Type
}

// UserDef is a command defined with `def`.
type UserDef struct {
	Impl *ast.DefinitionImpl
	// In is the declared input type, TypeAny when the body is checked
	// against each caller's type instead.
	In     value.Type
	Params []Param
	Doc    string
}

func (u *UserDef) Name() string { return u.Impl.Name }

// Help describes the definition from its signature.
func (u *UserDef) Help() *diag.HelpMessage {
	desc := u.Doc
	if desc == "" {
		desc = "user definition"
	}
	if u.In != value.TypeAny {
		desc += fmt.Sprintf("\ninput: %s", u.In)
	}
	desc += "\nbody: " + u.Impl.Body.Text()

	m := &diag.HelpMessage{Cmd: u.Name(), Desc: desc}
	for _, p := range u.Params {
		text := p.Name
		if p.Type != value.TypeAny {
			text += ":" + p.Type.String()
		}
		m.Params = append(m.Params, diag.Required(text))
	}
	return m
}

// Calls lists the names heading blocks anywhere in the body, nested
// expressions included, in order of first appearance.
func (u *UserDef) Calls() []string {
	seen := map[string]bool{}
	var out []string
	var walk func(e *ast.Expression)
	walk = func(e *ast.Expression) {
		for _, b := range e.Blocks {
			if b.Op != "" && !seen[b.Op] {
				seen[b.Op] = true
				out = append(out, b.Op)
			}
			for _, a := range b.Args {
				if n, ok := a.(ast.Nested); ok {
					walk(n.Expr)
				}
			}
		}
	}
	walk(u.Impl.Body)
	return out
}

func (u *UserDef) errorAtName(code, desc string) *diag.Error {
	return diag.New(diag.CategoryResolve, code, desc).
		WithTrace(diag.TraceAt(u.Impl.Loc, u.Impl.Source, u.Impl.NameTag, ""))
}

// TypeDef is a record type defined with `def-ty`. Its name is also a
// constructor command taking one argument per field.
type TypeDef struct {
	Schema *value.Schema
	// Decl is nil for types that did not come from source text.
	Decl *ast.DefinitionType
	Doc  string
}

func (t *TypeDef) Name() string { return t.Schema.Name }

// Help describes the constructor.
func (t *TypeDef) Help() *diag.HelpMessage {
	desc := t.Doc
	if desc == "" {
		desc = fmt.Sprintf("construct a `%s` record", t.Name())
	}
	m := &diag.HelpMessage{Cmd: t.Name(), Desc: desc}
	for _, f := range t.Schema.Fields {
		m.Params = append(m.Params, diag.Required(f.Name+":"+f.Type.String()))
	}
	return m
}

func (t *TypeDef) errorAtName(code, desc string) *diag.Error {
	e := diag.New(diag.CategoryResolve, code, desc)
	if t.Decl != nil {
		e.WithTrace(diag.TraceAt(t.Decl.Loc, t.Decl.Source, t.Decl.NameTag, ""))
	}
	return e
}
