// Package defs is the definition registry: commands keyed by name (builtins
// and user `def`s) and record types declared with `def-ty`.
//
// Commands and types live in separate namespaces. Redefining a user command or
// type replaces the prior entry; builtins cannot be replaced or removed.
// User definitions are expanded by the compiler at compile time, so plans
// compiled before a redefinition keep the body they inlined.
package defs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/value"
)

// Command is anything invocable as a pipeline block.
// The engine provides the builtin implementations; *UserDef is the only
// command type defined here.
type Command interface {
	Name() string
	Help() *diag.HelpMessage
}

// Definitions is the registry. It is safe for concurrent use.
type Definitions struct {
	mu    sync.RWMutex
	cmds  map[string]Command
	types map[string]*TypeDef
}

// New returns an empty registry.
func New() *Definitions {
	return &Definitions{
		cmds:  make(map[string]Command),
		types: make(map[string]*TypeDef),
	}
}

// Register adds a builtin command. It panics on a duplicate name, which is a
// programming error in the builtin table.
func (d *Definitions) Register(c Command) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.cmds[c.Name()]; dup {
		panic(fmt.Sprintf("defs: duplicate builtin %q", c.Name()))
	}
	d.cmds[c.Name()] = c
}

// LookupCommand finds a command by name.
func (d *Definitions) LookupCommand(name string) (Command, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.cmds[name]
	return c, ok
}

// LookupType finds a user record type by name.
func (d *Definitions) LookupType(name string) (*TypeDef, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.types[name]
	return t, ok
}

// HasCommand reports whether name is invocable: a command, or a record type
// (whose name doubles as its constructor).
func (d *Definitions) HasCommand(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.cmds[name]; ok {
		return true
	}
	_, ok := d.types[name]
	return ok
}

// ResolveType resolves a builtin type name or a registered record type.
func (d *Definitions) ResolveType(name string) (value.Type, bool) {
	if t, ok := value.ParseBuiltinType(name); ok {
		return t, true
	}
	if td, ok := d.LookupType(name); ok {
		return td.Schema.Type(), true
	}
	return value.Type{}, false
}

// InsertDef registers or replaces a user command.
//
// Insertion fails when the name belongs to a builtin, or when the new body
// would close a cycle through the existing user definitions.
func (d *Definitions) InsertDef(u *UserDef) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkInsertLocked(u); err != nil {
		return err
	}
	d.cmds[u.Name()] = u
	return nil
}

// CheckDef runs the same checks as InsertDef without inserting.
func (d *Definitions) CheckDef(u *UserDef) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.checkInsertLocked(u)
}

func (d *Definitions) checkInsertLocked(u *UserDef) error {
	if prev, ok := d.cmds[u.Name()]; ok {
		if _, user := prev.(*UserDef); !user {
			return u.errorAtName(diag.ErrCodeDuplicateName, fmt.Sprintf("`%s` is a builtin command and cannot be redefined", u.Name()))
		}
	}
	if path := d.cycleWithLocked(u); path != nil {
		return u.errorAtName(diag.ErrCodeCyclicDef, fmt.Sprintf("definition `%s` is cyclic: %s", u.Name(), formatCycle(path)))
	}
	return nil
}

// InsertType registers or replaces a record type.
func (d *Definitions) InsertType(t *TypeDef) error {
	if _, builtin := value.ParseBuiltinType(t.Name()); builtin {
		return t.errorAtName(diag.ErrCodeDuplicateName, fmt.Sprintf("`%s` is a builtin type and cannot be redefined", t.Name()))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.types[t.Name()] = t
	return nil
}

// Remove deletes a user command or record type. Commands are searched first.
func (d *Definitions) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.cmds[name]; ok {
		if _, user := c.(*UserDef); !user {
			return diag.Newf(diag.CategoryResolve, diag.ErrCodeDuplicateName, "`%s` is a builtin command and cannot be removed", name)
		}
		delete(d.cmds, name)
		return nil
	}
	if _, ok := d.types[name]; ok {
		delete(d.types, name)
		return nil
	}
	return diag.Newf(diag.CategoryResolve, diag.ErrCodeUnknownCommand, "no definition named `%s`", name)
}

// Commands lists every command name, sorted.
func (d *Definitions) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.cmds))
	for n := range d.cmds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Types lists user record type names, sorted.
func (d *Definitions) Types() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.types))
	for n := range d.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// UserDefs returns the user commands sorted by name.
func (d *Definitions) UserDefs() []*UserDef {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*UserDef
	for _, c := range d.cmds {
		if u, ok := c.(*UserDef); ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Invocable lists every name that can head a block: commands and record
// constructors. Used for suggestions.
func (d *Definitions) Invocable() []string {
	return append(d.Commands(), d.Types()...)
}

// cycleWithLocked builds the user-def call graph as it would be after
// inserting u and returns a cycle through u, or nil.
func (d *Definitions) cycleWithLocked(u *UserDef) []string {
	graph := make(callGraph)
	for name, c := range d.cmds {
		if ud, ok := c.(*UserDef); ok {
			graph[name] = ud.Calls()
		}
	}
	graph[u.Name()] = u.Calls()
	return findCycleThrough(graph, u.Name())
}

// NewUserDef resolves the declared types of a parsed definition against the
// registry.
func (d *Definitions) NewUserDef(impl *ast.DefinitionImpl, doc string) (*UserDef, error) {
	u := &UserDef{Impl: impl, In: value.TypeAny, Doc: doc}
	if impl.In != "" {
		t, ok := d.ResolveType(impl.In)
		if !ok {
			return nil, d.unknownType(impl.In, impl.Loc, impl.Source, impl.InTag)
		}
		u.In = t
	}
	for _, p := range impl.Params {
		param := Param{Name: p.Name, Type: value.TypeAny}
		if p.Type != "" {
			t, ok := d.ResolveType(p.Type)
			if !ok {
				return nil, d.unknownType(p.Type, impl.Loc, impl.Source, p.Tag)
			}
			param.Type = t
		}
		u.Params = append(u.Params, param)
	}
	return u, nil
}

// NewTypeDef resolves the field types of a parsed type definition.
// Fields may use builtin types or previously registered record types.
func (d *Definitions) NewTypeDef(decl *ast.DefinitionType, doc string) (*TypeDef, error) {
	schema := &value.Schema{Name: decl.Name}
	for _, f := range decl.Fields {
		t, ok := d.ResolveType(f.Type)
		if !ok {
			return nil, d.unknownType(f.Type, decl.Loc, decl.Source, f.Tag)
		}
		schema.Fields = append(schema.Fields, value.Field{Name: f.Name, Type: t})
	}
	return &TypeDef{Schema: schema, Decl: decl, Doc: doc}, nil
}

func (d *Definitions) unknownType(name string, loc ast.Location, src string, tag ast.Tag) *diag.Error {
	e := diag.Newf(diag.CategoryResolve, diag.ErrCodeUnknownType, "unknown type `%s`", name).
		WithTrace(diag.TraceAt(loc, src, tag, ""))
	if s, ok := Suggest(name, append(value.BuiltinTypeNames(), d.Types()...)); ok {
		e.WithHelp(fmt.Sprintf("did you mean `%s`?", s))
	}
	return e
}
