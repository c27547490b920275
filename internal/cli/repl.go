package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/tabula"
	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/defs"
	"github.com/roach88/tabula/internal/parser"
	"github.com/roach88/tabula/internal/value"
)

const (
	promptMain  = "tabula> "
	promptCont  = "   ...> "
	historyFile = ".tabula_history"
)

// lineReader is the part of liner.State the shell uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// scanReader reads lines from a non-terminal input.
type scanReader struct {
	sc *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) AppendHistory(string) {}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive shell",
		Long: `Read expressions and definitions line by line.

Lines starting with "def " or "def-ty " are definitions; everything else
is evaluated. An unterminated brace, string or trailing pipe continues on
the next line. Tab completes command and type names.

Shell commands:
  :defs      list user definitions
  :cache     show content cache statistics
  :quit      leave the shell`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd.Context(), rootOpts, cmd)
		},
	}
	return cmd
}

func runRepl(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	r := &repl{env: e, f: opts.formatter(cmd), wd: opts.Wd}

	in := cmd.InOrStdin()
	if in != os.Stdin {
		r.in = &scanReader{sc: bufio.NewScanner(in)}
		return r.run(ctx)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		return complete(e.session.Definitions(), line)
	})

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	r.in = ln
	return r.run(ctx)
}

type repl struct {
	env *env
	f   *OutputFormatter
	wd  string
	in  lineReader
}

func (r *repl) run(ctx context.Context) error {
	for {
		src, ok := r.read()
		if !ok {
			return nil
		}
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if src == ":quit" {
			return nil
		}
		r.handle(ctx, src)
		r.in.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	}
}

// read collects lines until they parse or fail for a reason more input
// cannot fix. It returns false at end of input.
func (r *repl) read() (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := r.in.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return b.String(), b.Len() > 0
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, perr := r.env.session.Parse(src, ast.Shell()); parser.Incomplete(perr) {
			continue
		}
		return src, true
	}
}

func (r *repl) handle(ctx context.Context, src string) {
	switch {
	case src == ":defs":
		r.report(r.f.Success(listDefinitions(r.env, false)))
	case src == ":cache":
		c := r.env.session.Cache()
		if c == nil {
			r.report(r.f.Success("content cache disabled"))
			return
		}
		r.report(r.f.Success(c.Stats()))
	case strings.HasPrefix(src, ":"):
		r.report(r.f.Error("E_SHELL", fmt.Sprintf("unknown shell command %s (try :defs, :cache, :quit)", src), nil))
	case tabula.RecogniseDefinition(src):
		name, err := r.env.session.Define(ctx, src, ast.Shell(), "")
		if err != nil {
			r.fail(err)
			return
		}
		r.report(r.f.Success(fmt.Sprintf("defined %s", name)))
	default:
		v, err := r.env.session.Eval(ctx, value.Nil{}, src, ast.Shell(), r.wd)
		if err != nil {
			r.fail(err)
			return
		}
		r.report(printValue(r.f, r.env, v))
	}
}

// fail prints an error and, for parse failures, what would have been
// accepted where parsing stopped.
func (r *repl) fail(err error) {
	_ = reportFailure(r.f, err, "")
	var pf *parser.ParseFail
	if r.f.Format != "json" && errors.As(err, &pf) && pf.Expecting != parser.ExpectNothing {
		fmt.Fprintf(r.f.GetErrWriter(), "expecting: %s\n", pf.Expecting)
	}
}

func (r *repl) report(err error) {
	if err != nil {
		r.env.logger.Warn("cannot write output", "error", err)
	}
}

// complete offers the names that extend the word under the cursor.
func complete(d *defs.Definitions, line string) []string {
	i := strings.LastIndexAny(line, " |{(")
	head, word := line[:i+1], line[i+1:]
	var out []string
	for _, name := range d.Invocable() {
		if strings.HasPrefix(name, word) {
			out = append(out, head+name)
		}
	}
	return out
}
