// Package parser turns source text into the ast: plain pipelines and the
// `def` / `def-ty` definition forms.
//
// Parsing never evaluates or type-checks. Block heads are only classified as
// known or unknown commands; reporting unknown commands is left to the
// compiler so the error can point at the precise block.
package parser

import (
	"errors"
	"fmt"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
)

// Names is the part of the definition registry the parser consults.
type Names interface {
	HasCommand(name string) bool
}

// ParseFail is a parse failure: the diagnostic at the furthest point reached,
// what would have been accepted there, and whether more input could fix it.
type ParseFail struct {
	Err       *diag.Error
	Expecting Expecting
	// Incomplete is set when the input ended inside an open construct
	// (string, brace, parameter list) or right after a pipe.
	Incomplete bool
}

func (f *ParseFail) Error() string { return f.Err.Error() }
func (f *ParseFail) Unwrap() error { return f.Err }

// Incomplete reports whether err is a parse failure that more input could fix.
func Incomplete(err error) bool {
	var pf *ParseFail
	return errors.As(err, &pf) && pf.Incomplete
}

// Expression parses a pipeline.
func Expression(src string, loc ast.Location, names Names) (*ast.Expression, error) {
	p, fail := newParser(src, loc, names)
	if fail != nil {
		return nil, fail
	}
	expr, fail := p.expression(false)
	if fail != nil {
		return nil, fail
	}
	return expr, nil
}

type parser struct {
	src   string
	loc   ast.Location
	toks  []token
	pos   int
	names Names
}

func newParser(src string, loc ast.Location, names Names) (*parser, *ParseFail) {
	toks, lerr := lex(src)
	if lerr != nil {
		code := diag.ErrCodeSyntax
		exp := ExpectNothing
		if lerr.incomplete {
			code = diag.ErrCodeUnterminated
			exp = ExpectTerm
		}
		return nil, &ParseFail{
			Err:        diag.New(diag.CategoryParse, code, lerr.msg).WithTrace(diag.TraceAt(loc, src, lerr.tag, "")),
			Expecting:  exp,
			Incomplete: lerr.incomplete,
		}
	}
	return &parser{src: src, loc: loc, toks: toks, names: names}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) fail(code, desc string, tag ast.Tag, exp Expecting, incomplete bool) *ParseFail {
	return &ParseFail{
		Err:        diag.New(diag.CategoryParse, code, desc).WithTrace(diag.TraceAt(p.loc, p.src, tag, "")),
		Expecting:  exp,
		Incomplete: incomplete,
	}
}

func (p *parser) unexpected(t token, exp Expecting) *ParseFail {
	if t.kind == tokEOF {
		return p.fail(diag.ErrCodeUnexpected, fmt.Sprintf("unexpected end of input, expecting %s", exp), t.tag, exp, true)
	}
	return p.fail(diag.ErrCodeUnexpected,
		fmt.Sprintf("unexpected %s `%s`, expecting %s", t.kind, t.tag.In(p.src), exp), t.tag, exp, false)
}

// expression parses `block (| block)*`. Nested expressions end at `}`,
// which is left for the caller to consume.
func (p *parser) expression(nested bool) (*ast.Expression, *ParseFail) {
	expr := &ast.Expression{Source: p.src, Loc: p.loc}
	afterPipe := false
	for {
		blk, fail := p.block(afterPipe)
		if fail != nil {
			return nil, fail
		}
		expr.Blocks = append(expr.Blocks, blk)
		if p.peek().kind != tokPipe {
			break
		}
		p.next()
		afterPipe = true
	}

	t := p.peek()
	switch {
	case nested && t.kind != tokRBrace:
		exp := ExpectCloseBrace | ExpectTerm
		if !expr.Blocks[len(expr.Blocks)-1].Known {
			exp |= ExpectCommand
		}
		return nil, p.unexpected(t, exp)
	case !nested && t.kind != tokEOF:
		return nil, p.unexpected(t, ExpectTerm)
	}

	first, last := expr.Blocks[0], expr.Blocks[len(expr.Blocks)-1]
	expr.Tag = first.Tag.Join(last.Tag)
	return expr, nil
}

func (p *parser) block(afterPipe bool) (*ast.Block, *ParseFail) {
	blk := &ast.Block{Source: p.src, Loc: p.loc}
	t := p.peek()
	switch t.kind {
	case tokIdent:
		p.next()
		blk.Op = t.text
		blk.OpTag = t.tag
		blk.Known = p.names != nil && p.names.HasCommand(t.text)
	case tokNum, tokStr, tokBool, tokNil:
		p.next()
		blk.Literal = literal(t)
		blk.OpTag = t.tag
		blk.Known = true
	case tokEOF:
		desc := "expecting a command"
		if afterPipe {
			desc = "expecting a command after `|`"
		}
		return nil, p.fail(diag.ErrCodeSyntax, desc, t.tag, ExpectCommand, afterPipe)
	default:
		return nil, p.unexpected(t, ExpectCommand)
	}
	blk.Tag = blk.OpTag

	for {
		t := p.peek()
		switch t.kind {
		case tokIdent, tokNum, tokStr, tokBool, tokNil, tokVar:
			p.next()
			arg := literal(t)
			blk.Args = append(blk.Args, arg)
			blk.Tag = blk.Tag.Join(arg.ArgTag())
		case tokFlag:
			p.next()
			blk.Flags = append(blk.Flags, ast.Flag{Name: t.text, Tag: t.tag})
			blk.Tag = blk.Tag.Join(t.tag)
		case tokLBrace:
			open := p.next()
			inner, fail := p.expression(true)
			if fail != nil {
				return nil, fail
			}
			closing := p.next()
			nested := ast.Nested{Expr: inner, Tag: open.tag.Join(closing.tag)}
			blk.Args = append(blk.Args, nested)
			blk.Tag = blk.Tag.Join(nested.Tag)
		case tokLParen, tokRParen:
			return nil, p.unexpected(t, ExpectTerm)
		default:
			return blk, nil
		}
	}
}

// literal converts a value token into an argument node.
func literal(t token) ast.Argument {
	switch t.kind {
	case tokNum:
		return ast.NumLit{Val: t.num, Tag: t.tag}
	case tokStr:
		return ast.StrLit{Val: t.text, Tag: t.tag}
	case tokBool:
		return ast.BoolLit{Val: t.b, Tag: t.tag}
	case tokNil:
		return ast.NilLit{Tag: t.tag}
	case tokVar:
		return ast.Var{Name: t.text, Tag: t.tag}
	default:
		return ast.Ident{Name: t.text, Tag: t.tag}
	}
}
