package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/render"
	"github.com/roach88/tabula/internal/value"
)

// EvalResult is the JSON payload of a successful evaluation.
type EvalResult struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expression>...",
		Short: "Evaluate one expression",
		Long: `Compile and evaluate a pipeline expression.

The arguments are joined with spaces, so quoting the whole expression is
optional. Tables print with large tables elided to the configured limits.

Examples:
  tabula eval '1 | + 2'
  tabula eval 'open fruit.csv | filter {get qty | > 4}' --wd data
  tabula eval --format json 'open fruit.csv | len'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), rootOpts, strings.Join(args, " "), cmd)
		},
	}
	return cmd
}

func runEval(ctx context.Context, opts *RootOptions, src string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	e, err := openEnv(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	v, err := e.session.Eval(ctx, value.Nil{}, src, ast.Shell(), opts.Wd)
	if err != nil {
		return reportFailure(f, err, "evaluation failed")
	}
	return printValue(f, e, v)
}

func printValue(f *OutputFormatter, e *env, v value.Value) error {
	if f.Format == "json" {
		native, err := value.ToNative(v)
		if err != nil {
			return WrapExitError(ExitFailure, "cannot encode result", err)
		}
		return f.Success(EvalResult{Type: value.TypeOf(v).String(), Value: native})
	}
	return render.Value(f.Writer, v, e.limits(), render.DefaultFormatter())
}

// reportFailure prints err as a diagnostic when it is one and returns the
// exit error for it.
func reportFailure(f *OutputFormatter, err error, message string) error {
	de, ok := diag.As(err)
	if !ok {
		return WrapExitError(ExitFailure, message, err)
	}
	if werr := f.Diagnostic(de); werr != nil {
		return WrapExitError(ExitCommandError, "cannot write output", werr)
	}
	return &ExitError{Code: ExitFailure, Message: message, Err: err, Reported: true}
}
