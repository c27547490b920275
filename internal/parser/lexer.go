package parser

import (
	"strconv"
	"strings"

	"github.com/roach88/tabula/internal/ast"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNum
	tokStr
	tokBool
	tokNil
	tokVar
	tokFlag
	tokPipe
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokNum:
		return "number"
	case tokStr:
		return "string"
	case tokBool:
		return "boolean"
	case tokNil:
		return "nil"
	case tokVar:
		return "variable"
	case tokFlag:
		return "flag"
	case tokPipe:
		return "`|`"
	case tokLBrace:
		return "`{`"
	case tokRBrace:
		return "`}`"
	case tokLParen:
		return "`(`"
	case tokRParen:
		return "`)`"
	default:
		return "token"
	}
}

type token struct {
	kind tokenKind
	// text is the decoded payload: identifier/variable/flag name or string contents.
	text string
	num  float64
	b    bool
	tag  ast.Tag
}

// lexError is a tokenisation failure at an offset.
type lexError struct {
	msg        string
	tag        ast.Tag
	incomplete bool
}

// lex splits src into tokens. It stops at the first malformed token.
func lex(src string) ([]token, *lexError) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case isSpace(c):
			i++
		case c == '|':
			toks = append(toks, token{kind: tokPipe, tag: ast.Tag{Start: i, Len: 1}})
			i++
		case c == '{':
			toks = append(toks, token{kind: tokLBrace, tag: ast.Tag{Start: i, Len: 1}})
			i++
		case c == '}':
			toks = append(toks, token{kind: tokRBrace, tag: ast.Tag{Start: i, Len: 1}})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, tag: ast.Tag{Start: i, Len: 1}})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, tag: ast.Tag{Start: i, Len: 1}})
			i++
		case c == '\'' || c == '"':
			tok, next, err := lexString(src, i)
			if err != nil {
				return toks, err
			}
			toks = append(toks, tok)
			i = next
		case c == '$':
			start := i
			i++
			for i < len(src) && isWordByte(src[i]) {
				i++
			}
			if i == start+1 {
				return toks, &lexError{msg: "expecting a variable name after `$`", tag: ast.Tag{Start: start, Len: 1}}
			}
			toks = append(toks, token{kind: tokVar, text: src[start+1 : i], tag: ast.Tag{Start: start, Len: i - start}})
		default:
			start := i
			for i < len(src) && isWordByte(src[i]) {
				i++
			}
			tok, err := classifyWord(src[start:i], ast.Tag{Start: start, Len: i - start})
			if err != nil {
				return toks, err
			}
			toks = append(toks, tok)
		}
	}
	toks = append(toks, token{kind: tokEOF, tag: ast.Tag{Start: len(src), Len: 0}})
	return toks, nil
}

func lexString(src string, start int) (token, int, *lexError) {
	quote := src[start]
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		if c == quote {
			return token{kind: tokStr, text: b.String(), tag: ast.Tag{Start: start, Len: i + 1 - start}}, i + 1, nil
		}
		if c == '\\' && i+1 < len(src) {
			switch src[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(src[i+1])
			default:
				b.WriteByte('\\')
				b.WriteByte(src[i+1])
			}
			i += 2
			continue
		}
		b.WriteByte(c)
		i++
	}
	return token{}, 0, &lexError{
		msg:        "unterminated string",
		tag:        ast.Tag{Start: start, Len: len(src) - start},
		incomplete: true,
	}
}

func classifyWord(word string, tag ast.Tag) (token, *lexError) {
	switch {
	case word == "#t":
		return token{kind: tokBool, b: true, tag: tag}, nil
	case word == "#f":
		return token{kind: tokBool, b: false, tag: tag}, nil
	case word == "#nil":
		return token{kind: tokNil, tag: tag}, nil
	case strings.HasPrefix(word, "#"):
		return token{}, &lexError{msg: "unknown literal `" + word + "` (expecting #t, #f or #nil)", tag: tag}
	case strings.HasPrefix(word, "--") && len(word) > 2:
		return token{kind: tokFlag, text: word[2:], tag: tag}, nil
	}
	// Words such as `2024.csv` start like numbers but stay identifiers.
	if looksNumeric(word) {
		if n, err := strconv.ParseFloat(word, 64); err == nil {
			return token{kind: tokNum, num: n, tag: tag}, nil
		}
	}
	return token{kind: tokIdent, text: word, tag: tag}, nil
}

// looksNumeric reports whether a word should be read as a number: a digit, or
// a sign or dot followed by a digit.
func looksNumeric(w string) bool {
	if w == "" {
		return false
	}
	if isDigit(w[0]) {
		return true
	}
	if len(w) > 1 && (w[0] == '-' || w[0] == '+' || w[0] == '.') {
		if isDigit(w[1]) {
			return true
		}
		return w[0] != '.' && len(w) > 2 && w[1] == '.' && isDigit(w[2])
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isWordByte(c byte) bool {
	if isSpace(c) {
		return false
	}
	switch c {
	case '|', '{', '}', '(', ')', '$', '\'', '"':
		return false
	}
	return true
}
