package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/ast"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Input string // type of the seed value
}

// StageInfo describes one compiled stage.
type StageInfo struct {
	Command string `json:"command"`
	In      string `json:"in"`
	Out     string `json:"out"`
}

// CheckResult is the payload of a successful check.
type CheckResult struct {
	In     string      `json:"in"`
	Out    string      `json:"out"`
	Stages []StageInfo `json:"stages"`
}

func (r CheckResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s", r.In, r.Out)
	for _, st := range r.Stages {
		fmt.Fprintf(&b, "\n  %-12s %s -> %s", st.Command, st.In, st.Out)
	}
	return b.String()
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <expression>...",
		Short: "Type-check an expression without running it",
		Long: `Compile a pipeline expression and print the type flowing out of
every stage. Nothing is read from disk.

Examples:
  tabula check 'open fruit.csv | len'
  tabula check --input Num '* 2 | > 3'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "Nil", "type of the pipeline input")

	return cmd
}

func runCheck(ctx context.Context, opts *CheckOptions, src string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	e, err := openEnv(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	seed, ok := e.session.Definitions().ResolveType(opts.Input)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown input type %q", opts.Input))
	}

	plan, err := e.session.Compile(seed, src, ast.Shell())
	if err != nil {
		return reportFailure(f, err, "check failed")
	}

	res := CheckResult{In: plan.In.String(), Out: plan.Out.String(), Stages: []StageInfo{}}
	for _, st := range plan.Stages {
		res.Stages = append(res.Stages, StageInfo{Command: st.Name, In: st.In.String(), Out: st.Out.String()})
	}
	return f.Success(res)
}
