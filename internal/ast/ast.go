// Package ast defines the syntax tree produced by the parser: expressions of
// pipe-separated blocks, their arguments, and the two definition forms.
//
// Every node carries a Tag (byte span in its source) and every Block carries
// its Location so diagnostics can point at the exact text that failed.
package ast

import (
	"fmt"
	"strings"
)

// Location identifies where a piece of source came from.
//
// The zero Location is interactive shell input. File sources carry a 1-based
// line. Def is set on blocks that belong to the body of a user definition,
// so a trace inside an inlined body names the definition it came from.
type Location struct {
	File string
	Line int
	Def  string
}

// Shell is the location of interactive input.
func Shell() Location { return Location{} }

// FileLoc is the location of line `line` in file `path`.
func FileLoc(path string, line int) Location {
	return Location{File: path, Line: line}
}

// InDef returns l marked as belonging to the body of definition name.
func (l Location) InDef(name string) Location {
	l.Def = name
	return l
}

// IsShell reports whether the source was typed interactively.
func (l Location) IsShell() bool { return l.File == "" }

func (l Location) String() string {
	var base string
	if l.File == "" {
		base = "shell"
	} else {
		base = fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	if l.Def != "" {
		return fmt.Sprintf("%s (def %s)", base, l.Def)
	}
	return base
}

// Tag is a byte span within a source string.
type Tag struct {
	Start int
	Len   int
}

// End returns the offset one past the span.
func (t Tag) End() int { return t.Start + t.Len }

// In returns the spanned text of src, clamped to its bounds.
func (t Tag) In(src string) string {
	start, end := t.Start, t.End()
	if start > len(src) {
		start = len(src)
	}
	if end > len(src) {
		end = len(src)
	}
	return src[start:end]
}

// Join returns the smallest span covering t and o.
func (t Tag) Join(o Tag) Tag {
	start := min(t.Start, o.Start)
	end := max(t.End(), o.End())
	return Tag{Start: start, Len: end - start}
}

// Expression is a pipeline: blocks separated by `|`, evaluated left to right.
type Expression struct {
	Source string
	Loc    Location
	Tag    Tag
	Blocks []*Block
}

// Text returns the source text the expression spans.
func (e *Expression) Text() string { return e.Tag.In(e.Source) }

// Block is one command invocation within a pipeline.
type Block struct {
	// Op is the command name. It is empty when Literal is set.
	Op    string
	OpTag Tag
	// Literal is set when the block head is a literal (`1 | + 2`).
	Literal Argument
	// Known records whether the head named a registered command at parse time.
	// The compiler still resolves the name itself.
	Known bool

	Args   []Argument
	Flags  []Flag
	Tag    Tag
	Source string
	Loc    Location
}

// Name returns the command name, or the literal text for literal blocks.
func (b *Block) Name() string {
	if b.Literal != nil {
		return b.Literal.ArgTag().In(b.Source)
	}
	return b.Op
}

// HasFlag reports whether `--name` was supplied.
func (b *Block) HasFlag(name string) bool {
	for _, f := range b.Flags {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Text returns the source text of the block.
func (b *Block) Text() string { return b.Tag.In(b.Source) }

// Flag is a `--name` switch on a block.
type Flag struct {
	Name string
	Tag  Tag
}

// Argument is a sealed interface over block arguments.
type Argument interface {
	ArgTag() Tag
	argument()
}

// Ident is a bare word, such as a column name or path.
type Ident struct {
	Name string
	Tag  Tag
}

// NumLit is a numeric literal.
type NumLit struct {
	Val float64
	Tag Tag
}

// StrLit is a quoted string literal.
type StrLit struct {
	Val string
	Tag Tag
}

// BoolLit is `#t` or `#f`.
type BoolLit struct {
	Val bool
	Tag Tag
}

// NilLit is `#nil`.
type NilLit struct {
	Tag Tag
}

// Var is a `$name` reference.
type Var struct {
	Name string
	Tag  Tag
}

// Nested is a `{ expression }` argument.
type Nested struct {
	Expr *Expression
	Tag  Tag
}

func (a Ident) ArgTag() Tag   { return a.Tag }
func (a NumLit) ArgTag() Tag  { return a.Tag }
func (a StrLit) ArgTag() Tag  { return a.Tag }
func (a BoolLit) ArgTag() Tag { return a.Tag }
func (a NilLit) ArgTag() Tag  { return a.Tag }
func (a Var) ArgTag() Tag     { return a.Tag }
func (a Nested) ArgTag() Tag  { return a.Tag }

func (Ident) argument()   {}
func (NumLit) argument()  {}
func (StrLit) argument()  {}
func (BoolLit) argument() {}
func (NilLit) argument()  {}
func (Var) argument()     {}
func (Nested) argument()  {}

// Param is a parameter of a user definition. Type is empty when undeclared.
type Param struct {
	Name string
	Type string
	Tag  Tag
}

// DefinitionImpl is a parsed `def NAME [InType] [(params)] => body`.
type DefinitionImpl struct {
	Name    string
	NameTag Tag
	// In is the declared input type name, empty when any input is accepted.
	In     string
	InTag  Tag
	Params []Param
	Body   *Expression
	Source string
	Loc    Location
}

// Signature renders the definition head, as used by help messages.
func (d *DefinitionImpl) Signature() string {
	var b strings.Builder
	b.WriteString(d.Name)
	for _, p := range d.Params {
		b.WriteByte(' ')
		b.WriteString(p.Name)
		if p.Type != "" {
			b.WriteByte(':')
			b.WriteString(p.Type)
		}
	}
	return b.String()
}

// FieldDecl is one field of a type definition.
type FieldDecl struct {
	Name string
	Type string
	Tag  Tag
}

// DefinitionType is a parsed `def-ty NAME { field:Type ... }`.
type DefinitionType struct {
	Name    string
	NameTag Tag
	Fields  []FieldDecl
	Source  string
	Loc     Location
}
