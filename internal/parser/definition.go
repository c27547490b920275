package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
)

const (
	keywordDef   = "def"
	keywordDefTy = "def-ty"
	implArrow    = "=>"
)

// ResultKind classifies a successful Parse.
type ResultKind uint8

const (
	KindExpr ResultKind = iota + 1
	KindImpl
	KindType
)

// Result is a successful Parse: exactly one of Expr, Impl or Type is set.
type Result struct {
	Kind ResultKind
	Expr *ast.Expression
	Impl *ast.DefinitionImpl
	Type *ast.DefinitionType
}

// Parse dispatches on a leading keyword: `def ` parses a command definition,
// `def-ty ` a type definition, anything else an expression.
func Parse(src string, loc ast.Location, names Names) (Result, error) {
	switch {
	case strings.HasPrefix(src, keywordDefTy+" "):
		d, err := DefinitionType(src, loc)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindType, Type: d}, nil
	case strings.HasPrefix(src, keywordDef+" "):
		d, err := DefinitionImpl(src, loc, names)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindImpl, Impl: d}, nil
	default:
		e, err := Expression(src, loc, names)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindExpr, Expr: e}, nil
	}
}

// IsDefinition reports whether a line looks like a definition, without parsing it.
func IsDefinition(line string) bool {
	line = strings.TrimLeft(line, " \t")
	return strings.HasPrefix(line, keywordDef+" ") || strings.HasPrefix(line, keywordDefTy+" ")
}

// DefinitionImpl parses `def NAME [InType] [(p1 p2:Type ...)] => EXPR`.
// Blocks of the body are located inside the definition (Location.Def).
func DefinitionImpl(src string, loc ast.Location, names Names) (*ast.DefinitionImpl, error) {
	p, fail := newParser(src, loc, names)
	if fail != nil {
		return nil, fail
	}
	if fail := p.keyword(keywordDef); fail != nil {
		return nil, fail
	}

	nameTok := p.peek()
	if nameTok.kind != tokIdent || nameTok.text == implArrow {
		return nil, p.unexpected(nameTok, ExpectName)
	}
	if strings.ContainsRune(nameTok.text, ':') {
		return nil, p.fail(diag.ErrCodeSyntax, fmt.Sprintf("invalid definition name `%s`", nameTok.text), nameTok.tag, ExpectName, false)
	}
	p.next()

	def := &ast.DefinitionImpl{Name: nameTok.text, NameTag: nameTok.tag, Source: src, Loc: loc}

	gotParams := false
	for {
		t := p.peek()
		switch {
		case t.kind == tokIdent && t.text == implArrow:
			p.next()
			p.loc = loc.InDef(def.Name)
			body, fail := p.expression(false)
			if fail != nil {
				return nil, fail
			}
			def.Body = body
			return def, nil
		case t.kind == tokLParen && !gotParams:
			params, fail := p.params()
			if fail != nil {
				return nil, fail
			}
			def.Params = params
			gotParams = true
		case t.kind == tokIdent && def.In == "" && !gotParams:
			p.next()
			def.In = t.text
			def.InTag = t.tag
		default:
			exp := ExpectImpl
			if !gotParams && def.In == "" {
				exp |= ExpectType
			}
			return nil, p.unexpected(t, exp)
		}
	}
}

func (p *parser) keyword(kw string) *ParseFail {
	t := p.peek()
	if t.kind != tokIdent || t.text != kw {
		return p.fail(diag.ErrCodeSyntax, fmt.Sprintf("expecting `%s`", kw), t.tag, ExpectNothing, false)
	}
	p.next()
	return nil
}

func (p *parser) params() ([]ast.Param, *ParseFail) {
	p.next() // (
	var params []ast.Param
	seen := map[string]bool{}
	for {
		t := p.peek()
		switch t.kind {
		case tokRParen:
			p.next()
			return params, nil
		case tokIdent:
			p.next()
			name, ty := splitTyped(t.text)
			if name == "" {
				return nil, p.fail(diag.ErrCodeSyntax, fmt.Sprintf("invalid parameter `%s`", t.text), t.tag, ExpectName, false)
			}
			if seen[name] {
				return nil, p.fail(diag.ErrCodeDuplicateName, fmt.Sprintf("duplicate parameter `%s`", name), t.tag, ExpectName, false)
			}
			seen[name] = true
			params = append(params, ast.Param{Name: name, Type: ty, Tag: t.tag})
		default:
			return nil, p.unexpected(t, ExpectName|ExpectCloseParen)
		}
	}
}

// DefinitionType parses `def-ty NAME { field:Type ... }`.
func DefinitionType(src string, loc ast.Location) (*ast.DefinitionType, error) {
	p, fail := newParser(src, loc, nil)
	if fail != nil {
		return nil, fail
	}
	if fail := p.keyword(keywordDefTy); fail != nil {
		return nil, fail
	}

	nameTok := p.peek()
	if nameTok.kind != tokIdent {
		return nil, p.unexpected(nameTok, ExpectName)
	}
	if !isTypeName(nameTok.text) {
		return nil, p.fail(diag.ErrCodeSyntax,
			fmt.Sprintf("type name `%s` must start with an uppercase letter", nameTok.text), nameTok.tag, ExpectName, false)
	}
	p.next()
	def := &ast.DefinitionType{Name: nameTok.text, NameTag: nameTok.tag, Source: src, Loc: loc}

	if t := p.peek(); t.kind != tokLBrace {
		return nil, p.unexpected(t, ExpectOpenBrace)
	}
	p.next()

	seen := map[string]bool{}
	for {
		t := p.peek()
		switch t.kind {
		case tokRBrace:
			p.next()
			if end := p.peek(); end.kind != tokEOF {
				return nil, p.unexpected(end, ExpectNothing)
			}
			if len(def.Fields) == 0 {
				return nil, p.fail(diag.ErrCodeSyntax, "a type needs at least one field", t.tag, ExpectName, false)
			}
			return def, nil
		case tokIdent:
			p.next()
			name, ty := splitTyped(t.text)
			if name == "" || ty == "" {
				return nil, p.fail(diag.ErrCodeSyntax,
					fmt.Sprintf("field `%s` needs a type, as in `%s:Type`", t.text, strings.TrimSuffix(t.text, ":")), t.tag, ExpectType, false)
			}
			if seen[name] {
				return nil, p.fail(diag.ErrCodeDuplicateName, fmt.Sprintf("duplicate field `%s`", name), t.tag, ExpectName, false)
			}
			seen[name] = true
			def.Fields = append(def.Fields, ast.FieldDecl{Name: name, Type: ty, Tag: t.tag})
		default:
			return nil, p.unexpected(t, ExpectName|ExpectCloseBrace)
		}
	}
}

// splitTyped splits `name:Type`. A bare `name` has an empty type.
func splitTyped(word string) (name, ty string) {
	name, ty, _ = strings.Cut(word, ":")
	return name, ty
}

func isTypeName(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
