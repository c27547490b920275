// Package cli implements the tabula command line: one-shot evaluation,
// definition management, history, an interactive shell and the scenario
// runner.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Root     string
	Wd       string
	Config   string
	Database string
	Defs     []string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tabula CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tabula",
		Short: "tabula - typed pipelines over tables",
		Long: `Evaluate pipeline expressions over CSV tables and text files.

Each stage of a pipeline is type-checked against the previous one before
anything runs. Files are read relative to --wd and never outside --root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Root, "root", ".", "directory that bounds file access")
	cmd.PersistentFlags().StringVar(&opts.Wd, "wd", "", "working directory, relative to --root")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "configuration file (default <root>/tabula.toml)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite database for definitions and history (overrides [store] path)")
	cmd.PersistentFlags().StringSliceVar(&opts.Defs, "defs", nil, "CUE definition bundles to load")

	// Add subcommands
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewDefCommand(opts))
	cmd.AddCommand(NewUndefCommand(opts))
	cmd.AddCommand(NewDefsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
