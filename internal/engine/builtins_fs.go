package engine

import (
	"errors"
	"io/fs"
	"os"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/value"
)

// loader materialises the file at an absolute path as a value.
type loader func(path string) (value.Value, error)

// fileCmd builds a command that reads a file through the content cache,
// keyed by the resolved path and the produced type.
func fileCmd(help *diag.HelpMessage, out value.Type, load loader) *builtin {
	return &builtin{
		help: help,
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.arity(1, 1); err != nil {
				return nil, err
			}
			pathArg, err := bc.arg(0, value.TypeStr)
			if err != nil {
				return nil, err
			}
			blk := bc.blk
			return bc.stage(out, func(in value.Value, cx *Context) (value.Value, error) {
				pv, err := pathArg.eval(in, cx)
				if err != nil {
					return nil, err
				}
				rel := string(pv.(value.Str))
				path, derr := cx.ResolvePath(rel)
				if derr != nil {
					return nil, derr.WithTrace(diag.TraceAt(blk.Loc, blk.Source, pathArg.tag, ""))
				}
				if cx.Cache != nil {
					if v, ok := cx.Cache.Get(path, out); ok {
						return v, nil
					}
				}
				v, err := load(path)
				if err != nil {
					return nil, ioError(blk, pathArg.tag, rel, err)
				}
				if cx.Cache != nil {
					cx.Cache.Insert(path, out, v)
				}
				return v, nil
			}), nil
		},
	}
}

func ioError(blk *ast.Block, tag ast.Tag, shown string, err error) *diag.Error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return evalError(blk, tag, diag.ErrCodeIO, "file `%s` not found", shown)
	case errors.Is(err, fs.ErrPermission):
		return evalError(blk, tag, diag.ErrCodeIO, "file `%s` cannot be read", shown)
	default:
		return evalError(blk, tag, diag.ErrCodeIO, "reading `%s`: %v", shown, err)
	}
}

func openCmd() *builtin {
	return fileCmd(&diag.HelpMessage{
		Cmd:    "open",
		Desc:   "open a CSV file as a table\nthe first line is the header; numeric cells become numbers",
		Params: []diag.HelpParam{diag.Required("path")},
		Examples: []diag.HelpExample{
			{Desc: "open a file relative to the working directory", Code: "open data/sales.csv"},
		},
	}, value.TypeTable, func(path string) (value.Value, error) {
		return readCSV(path)
	})
}

func readCmd() *builtin {
	return fileCmd(&diag.HelpMessage{
		Cmd:    "read",
		Desc:   "read a file as a string",
		Params: []diag.HelpParam{diag.Required("path")},
		Examples: []diag.HelpExample{
			{Desc: "count the characters of a file", Code: "read notes.txt | len"},
		},
	}, value.TypeStr, func(path string) (value.Value, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return value.Str(b), nil
	})
}

// lsCmd lists a directory as a table of name, kind and size. Listings are
// not cached.
func lsCmd() *builtin {
	return &builtin{
		help: &diag.HelpMessage{
			Cmd:    "ls",
			Desc:   "list a directory as a table with columns name, kind and size",
			Params: []diag.HelpParam{diag.Optional("dir")},
			Examples: []diag.HelpExample{
				{Desc: "list the working directory", Code: "ls"},
			},
		},
		compile: func(bc *blockCtx) (*Stage, error) {
			if err := bc.arity(0, 1); err != nil {
				return nil, err
			}
			dirArg := constArg(value.Str("."), bc.blk.OpTag)
			if len(bc.blk.Args) == 1 {
				a, err := bc.arg(0, value.TypeStr)
				if err != nil {
					return nil, err
				}
				dirArg = a
			}
			blk := bc.blk
			return bc.stage(value.TypeTable, func(in value.Value, cx *Context) (value.Value, error) {
				dv, err := dirArg.eval(in, cx)
				if err != nil {
					return nil, err
				}
				rel := string(dv.(value.Str))
				dir, derr := cx.ResolvePath(rel)
				if derr != nil {
					return nil, derr.WithTrace(diag.TraceAt(blk.Loc, blk.Source, dirArg.tag, ""))
				}
				entries, err := os.ReadDir(dir)
				if err != nil {
					return nil, ioError(blk, dirArg.tag, rel, err)
				}
				rows := [][]value.Entry{{value.StrEntry("name"), value.StrEntry("kind"), value.StrEntry("size")}}
				for _, e := range entries {
					kind, size := "file", value.NilEntry()
					if e.IsDir() {
						kind = "dir"
					} else if info, err := e.Info(); err == nil {
						size = value.NumEntry(float64(info.Size()))
					}
					rows = append(rows, []value.Entry{value.StrEntry(e.Name()), value.StrEntry(kind), size})
				}
				return value.NewTable(true, rows)
			}), nil
		},
	}
}
