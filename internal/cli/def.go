package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/ast"
)

// DefOptions holds flags for the def command.
type DefOptions struct {
	*RootOptions
	Doc string
}

// DefResult is the payload of def and undef.
type DefResult struct {
	Name  string `json:"name"`
	Saved bool   `json:"saved"`
}

// NewDefCommand creates the def command.
func NewDefCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DefOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "def <definition>...",
		Short: "Add or replace a definition",
		Long: `Validate a command or record type definition and save it to the
database, so later invocations see it.

Examples:
  tabula def 'def-ty Point { x:Num y:Num }'
  tabula def 'def big Table => filter {get qty | > 4}' --doc "rows with qty over 4"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDef(cmd.Context(), opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Doc, "doc", "", "description shown in help")

	return cmd
}

func runDef(ctx context.Context, opts *DefOptions, src string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	e, err := openEnv(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	name, err := e.session.Define(ctx, src, ast.Shell(), opts.Doc)
	if err != nil {
		return reportFailure(f, err, "definition rejected")
	}

	res := DefResult{Name: name, Saved: e.store != nil}
	if f.Format == "json" {
		return f.Success(res)
	}
	if !res.Saved {
		return f.Success(fmt.Sprintf("%s is valid (no database configured, not saved)", name))
	}
	return f.Success(fmt.Sprintf("defined %s", name))
}

// NewUndefCommand creates the undef command.
func NewUndefCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undef <name>",
		Short: "Remove a saved definition",
		Long: `Remove a user command or record type from the database.

Example:
  tabula undef big`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndef(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runUndef(ctx context.Context, opts *RootOptions, name string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	e, err := openEnv(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.store == nil {
		return NewExitError(ExitCommandError, "undef needs a database (--db or [store] path)")
	}
	if err := e.session.Undefine(ctx, name); err != nil {
		return reportFailure(f, err, "cannot remove definition")
	}

	if f.Format == "json" {
		return f.Success(DefResult{Name: name, Saved: true})
	}
	return f.Success(fmt.Sprintf("removed %s", name))
}
