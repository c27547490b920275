package engine

import (
	"sort"

	"github.com/roach88/tabula/internal/value"
)

// Locals is the compile-time scope chain: variable name to static type.
//
// Each binding is one immutable link to its parent, so extending a scope
// never changes what an enclosing scope sees. The nil *Locals is the empty
// scope.
type Locals struct {
	parent *Locals
	name   string
	typ    value.Type
}

// With returns a child scope binding name to t. It shadows any outer binding.
func (l *Locals) With(name string, t value.Type) *Locals {
	return &Locals{parent: l, name: name, typ: t}
}

// Lookup walks outward until name is found. The innermost binding wins.
func (l *Locals) Lookup(name string) (value.Type, bool) {
	for s := l; s != nil; s = s.parent {
		if s.name == name {
			return s.typ, true
		}
	}
	return value.Type{}, false
}

// Names lists every visible variable once, sorted.
func (l *Locals) Names() []string {
	seen := map[string]bool{}
	var names []string
	for s := l; s != nil; s = s.parent {
		if !seen[s.name] {
			seen[s.name] = true
			names = append(names, s.name)
		}
	}
	sort.Strings(names)
	return names
}

// Environment is the run-time counterpart of Locals: variable name to value.
// The nil *Environment is the empty environment created for each top-level
// evaluation.
type Environment struct {
	parent *Environment
	name   string
	val    value.Value
}

// With returns a child environment binding name to v.
func (e *Environment) With(name string, v value.Value) *Environment {
	return &Environment{parent: e, name: name, val: v}
}

// Lookup walks outward until name is found.
func (e *Environment) Lookup(name string) (value.Value, bool) {
	for s := e; s != nil; s = s.parent {
		if s.name == name {
			return s.val, true
		}
	}
	return nil, false
}

// Locals returns the static view of the environment: the same names bound
// to the types of their values. Hosts use it to compile against variables
// they bound at run time.
func (e *Environment) Locals() *Locals {
	if e == nil {
		return nil
	}
	return e.parent.Locals().With(e.name, value.TypeOf(e.val))
}
