package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/value"
)

// builtin is a command implemented in Go. compile checks the block against
// the current type and returns its stage.
type builtin struct {
	help    *diag.HelpMessage
	compile func(bc *blockCtx) (*Stage, error)
}

func (b *builtin) Name() string            { return b.help.Cmd }
func (b *builtin) Help() *diag.HelpMessage { return b.help }

func (b *builtin) flagNames() []string {
	names := make([]string, len(b.help.Flags))
	for i, f := range b.help.Flags {
		names[i] = f.Name
	}
	return names
}

func builtins() []*builtin {
	return []*builtin{
		arith("+", "add numbers to the input", func(acc, x float64) (float64, bool) { return acc + x, true }),
		arith("-", "subtract numbers from the input", func(acc, x float64) (float64, bool) { return acc - x, true }),
		arith("*", "multiply the input by numbers", func(acc, x float64) (float64, bool) { return acc * x, true }),
		arith("/", "divide the input by numbers", func(acc, x float64) (float64, bool) { return acc / x, x != 0 }),
		compare(">", "input is greater than the argument", func(c int) bool { return c > 0 }),
		compare("<", "input is less than the argument", func(c int) bool { return c < 0 }),
		equalCmd(),
		notCmd(),
		lenCmd(),
		toStrCmd(),
		letCmd(),
		getCmd(),
		filterCmd(),
		sortByCmd(),
		openCmd(),
		readCmd(),
		lsCmd(),
	}
}

// arith builds a variadic numeric operator folding its arguments into the
// input. op reports false for an undefined result.
func arith(name, desc string, op func(acc, x float64) (float64, bool)) *builtin {
	return &builtin{
		help: &diag.HelpMessage{
			Cmd:    name,
			Desc:   desc,
			Params: []diag.HelpParam{diag.Required("rhs"), diag.Optional("rhs...")},
			Examples: []diag.HelpExample{
				{Desc: "apply to two numbers", Code: "6 | " + name + " 2"},
				{Desc: "apply to several", Code: "6 | " + name + " 2 3"},
			},
		},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.input(value.TypeNum); err != nil {
				return nil, err
			}
			if err := bc.arity(1, -1); err != nil {
				return nil, err
			}
			args := make([]*argument, len(bc.blk.Args))
			for i := range args {
				a, err := bc.arg(i, value.TypeNum)
				if err != nil {
					return nil, err
				}
				args[i] = a
			}
			blk := bc.blk
			return bc.stage(value.TypeNum, func(in value.Value, cx *Context) (value.Value, error) {
				acc := float64(in.(value.Num))
				for _, a := range args {
					v, err := a.eval(in, cx)
					if err != nil {
						return nil, err
					}
					next, ok := op(acc, float64(v.(value.Num)))
					if !ok {
						return nil, evalError(blk, a.tag, diag.ErrCodeEval, "`%s` is undefined for %s and %s", name, value.Num(acc), v)
					}
					acc = next
				}
				return value.Num(acc), nil
			}), nil
		},
	}
}

// compare builds an ordering test between the input and one argument of
// the same type. Numbers and strings are ordered.
func compare(name, desc string, test func(c int) bool) *builtin {
	return &builtin{
		help: &diag.HelpMessage{
			Cmd:      name,
			Desc:     desc + "\nthe argument must have the input's type (Num or Str)",
			Params:   []diag.HelpParam{diag.Required("rhs")},
			Examples: []diag.HelpExample{{Desc: "compare numbers", Code: "3 | " + name + " 2"}},
		},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.input(value.TypeNum, value.TypeStr); err != nil {
				return nil, err
			}
			if err := bc.arity(1, 1); err != nil {
				return nil, err
			}
			rhs, err := bc.arg(0, bc.in)
			if err != nil {
				return nil, err
			}
			return bc.stage(value.TypeBool, func(in value.Value, cx *Context) (value.Value, error) {
				v, err := rhs.eval(in, cx)
				if err != nil {
					return nil, err
				}
				return value.Bool(test(order(in, v))), nil
			}), nil
		},
	}
}

// order compares two values of the same orderable type.
func order(a, b value.Value) int {
	switch a := a.(type) {
	case value.Num:
		bn := b.(value.Num)
		switch {
		case a < bn:
			return -1
		case a > bn:
			return 1
		}
		return 0
	case value.Str:
		return strings.Compare(string(a), string(b.(value.Str)))
	}
	return 0
}

func equalCmd() *builtin {
	return &builtin{
		help: &diag.HelpMessage{
			Cmd:      "=",
			Desc:     "input equals the argument\nthe argument must have the input's type",
			Params:   []diag.HelpParam{diag.Required("rhs")},
			Examples: []diag.HelpExample{{Desc: "compare strings", Code: "'a' | = 'a'"}},
		},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.arity(1, 1); err != nil {
				return nil, err
			}
			rhs, err := bc.arg(0, bc.in)
			if err != nil {
				return nil, err
			}
			return bc.stage(value.TypeBool, func(in value.Value, cx *Context) (value.Value, error) {
				v, err := rhs.eval(in, cx)
				if err != nil {
					return nil, err
				}
				return value.Bool(value.Equal(in, v)), nil
			}), nil
		},
	}
}

func notCmd() *builtin {
	return &builtin{
		help: &diag.HelpMessage{Cmd: "not", Desc: "negate a boolean input"},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.input(value.TypeBool); err != nil {
				return nil, err
			}
			if err := bc.arity(0, 0); err != nil {
				return nil, err
			}
			return bc.stage(value.TypeBool, func(in value.Value, _ *Context) (value.Value, error) {
				return !in.(value.Bool), nil
			}), nil
		},
	}
}

func lenCmd() *builtin {
	return &builtin{
		help: &diag.HelpMessage{
			Cmd:  "len",
			Desc: "the number of data rows in a table, or of characters in a string",
			Examples: []diag.HelpExample{
				{Desc: "count rows", Code: "open file.csv | len"},
			},
		},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.input(value.TypeTable, value.TypeStr); err != nil {
				return nil, err
			}
			if err := bc.arity(0, 0); err != nil {
				return nil, err
			}
			return bc.stage(value.TypeNum, func(in value.Value, _ *Context) (value.Value, error) {
				switch in := in.(type) {
				case *value.Table:
					return value.Num(in.DataRows()), nil
				case value.Str:
					return value.Num(utf8.RuneCountInString(string(in))), nil
				}
				return nil, fmt.Errorf("len of %s", value.TypeOf(in))
			}), nil
		},
	}
}

func toStrCmd() *builtin {
	return &builtin{
		help: &diag.HelpMessage{Cmd: "to-str", Desc: "render the input as a string"},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.arity(0, 0); err != nil {
				return nil, err
			}
			return bc.stage(value.TypeStr, func(in value.Value, _ *Context) (value.Value, error) {
				return value.Str(fmt.Sprint(in)), nil
			}), nil
		},
	}
}

// letCmd binds variables for the rest of the pipeline and passes its input
// through. A `$var` on its own binds the input; `{expr} $var` binds the
// result of expr evaluated against the input.
func letCmd() *builtin {
	return &builtin{
		help: &diag.HelpMessage{
			Cmd:     "let",
			Desc:    "bind the input, or expressions over it, to variables",
			Params:  []diag.HelpParam{diag.Custom("[{expr}] $var"), diag.Optional("[{expr}] $var...")},
			Examples: []diag.HelpExample{
				{Desc: "bind the input", Code: "3 | let $x | + $x"},
				{Desc: "bind a field of a record", Code: "Point 1 2 | let {get x} $x | get y | + $x"},
			},
		},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.arity(1, -1); err != nil {
				return nil, err
			}
			type binding struct {
				name string
				src  *argument
			}
			var (
				binds   []binding
				pending *argument
			)
			next := bc.locals
			for i, raw := range bc.blk.Args {
				switch raw := raw.(type) {
				case ast.Nested:
					if pending != nil {
						return nil, bc.errorf(raw.Tag, diag.ErrCodeSyntax, "expecting a `$variable` after an expression")
					}
					a, err := bc.arg(i, value.TypeAny)
					if err != nil {
						return nil, err
					}
					pending = a
				case ast.Var:
					typ := bc.in
					if pending != nil {
						typ = pending.typ
					}
					binds = append(binds, binding{name: raw.Name, src: pending})
					next = next.With(raw.Name, typ)
					pending = nil
				default:
					return nil, bc.errorf(raw.ArgTag(), diag.ErrCodeSyntax, "`let` expects `$variables` or `{expressions}`")
				}
			}
			if pending != nil {
				return nil, bc.errorf(pending.tag, diag.ErrCodeSyntax, "expression is not bound to a `$variable`")
			}
			bc.next = next

			return bc.stage(bc.in, func(in value.Value, cx *Context) (value.Value, error) {
				env := cx.Env
				for _, b := range binds {
					v := in
					if b.src != nil {
						var err error
						if v, err = b.src.eval(in, cx); err != nil {
							return nil, err
						}
					}
					env = env.With(b.name, v)
				}
				cx.Env = env
				return in, nil
			}), nil
		},
	}
}
