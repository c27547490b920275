// Package loader reads definition bundles written in CUE.
//
// A bundle declares record types and commands as data instead of as `def`
// lines:
//
//	types: Point: {
//		doc: "a point in the plane"
//		fields: {x: "Num", y: "Num"}
//	}
//	commands: "scale": {
//		input:  "Num"
//		params: ["by:Num"]
//		body:   "* $by"
//	}
//
// Each entry becomes the source text of a `def-ty` or `def` line, located at
// the entry's position in the CUE file, so that every later diagnostic points
// back into the bundle. Entries keep their declaration order: types first,
// then commands, each free to use the ones declared before it.
package loader

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tabula/internal/ast"
)

// Kind distinguishes the two definition forms.
type Kind uint8

const (
	KindType Kind = iota + 1
	KindCommand
)

// Definition is one bundle entry rendered as definition source.
type Definition struct {
	Kind   Kind
	Name   string
	Source string
	Doc    string
	Loc    ast.Location
}

// Bundle is the ordered content of one CUE file.
type Bundle struct {
	Path string
	Defs []Definition
}

// LoadError is a malformed bundle entry.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads and converts the bundle at path.
func LoadFile(path string) (*Bundle, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Load(path, src)
}

// Load converts CUE source; filename names it in locations.
func Load(filename string, src []byte) (*Bundle, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	b := &Bundle{Path: filename}
	types := v.LookupPath(cue.ParsePath("types"))
	if types.Exists() {
		iter, err := types.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			def, err := typeDef(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			b.Defs = append(b.Defs, def)
		}
	}

	cmds := v.LookupPath(cue.ParsePath("commands"))
	if cmds.Exists() {
		iter, err := cmds.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			def, err := commandDef(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			b.Defs = append(b.Defs, def)
		}
	}
	return b, nil
}

func typeDef(name string, v cue.Value) (Definition, error) {
	if err := checkName(name, "types", v); err != nil {
		return Definition{}, err
	}
	doc, err := optionalString(v, "doc")
	if err != nil {
		return Definition{}, err
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return Definition{}, &LoadError{Field: "types." + name + ".fields", Message: "fields are required", Pos: v.Pos()}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return Definition{}, formatCUEError(err)
	}
	var fields []string
	for iter.Next() {
		typ, err := iter.Value().String()
		if err != nil {
			return Definition{}, formatCUEError(err)
		}
		fields = append(fields, iter.Label()+":"+typ)
	}
	if len(fields) == 0 {
		return Definition{}, &LoadError{Field: "types." + name + ".fields", Message: "at least one field is required", Pos: fieldsVal.Pos()}
	}

	return Definition{
		Kind:   KindType,
		Name:   name,
		Source: fmt.Sprintf("def-ty %s { %s }", name, strings.Join(fields, " ")),
		Doc:    doc,
		Loc:    location(v),
	}, nil
}

func commandDef(name string, v cue.Value) (Definition, error) {
	if err := checkName(name, "commands", v); err != nil {
		return Definition{}, err
	}
	doc, err := optionalString(v, "doc")
	if err != nil {
		return Definition{}, err
	}
	input, err := optionalString(v, "input")
	if err != nil {
		return Definition{}, err
	}
	body, err := optionalString(v, "body")
	if err != nil {
		return Definition{}, err
	}
	if strings.TrimSpace(body) == "" {
		return Definition{}, &LoadError{Field: "commands." + name + ".body", Message: "body is required", Pos: v.Pos()}
	}

	var params []string
	if pv := v.LookupPath(cue.ParsePath("params")); pv.Exists() {
		iter, err := pv.List()
		if err != nil {
			return Definition{}, formatCUEError(err)
		}
		for iter.Next() {
			p, err := iter.Value().String()
			if err != nil {
				return Definition{}, formatCUEError(err)
			}
			params = append(params, p)
		}
	}

	var src strings.Builder
	src.WriteString("def ")
	src.WriteString(name)
	if input != "" {
		src.WriteString(" " + input)
	}
	if len(params) > 0 {
		src.WriteString(" (" + strings.Join(params, " ") + ")")
	}
	src.WriteString(" => ")
	src.WriteString(body)

	return Definition{
		Kind:   KindCommand,
		Name:   name,
		Source: src.String(),
		Doc:    doc,
		Loc:    location(v),
	}, nil
}

func checkName(name, section string, v cue.Value) error {
	if name == "" || strings.ContainsAny(name, " \t\n|{}()$'\"") {
		return &LoadError{Field: section, Message: fmt.Sprintf("invalid name %q", name), Pos: v.Pos()}
	}
	return nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func location(v cue.Value) ast.Location {
	pos := v.Pos()
	if !pos.IsValid() {
		return ast.Shell()
	}
	return ast.FileLoc(pos.Filename(), pos.Line())
}

// formatCUEError keeps the position of the first CUE error.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
