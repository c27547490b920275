package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/value"
)

// DefsOptions holds flags for the defs command.
type DefsOptions struct {
	*RootOptions
	All bool // include builtin commands
}

// DefInfo describes one registered definition.
type DefInfo struct {
	Kind      string `json:"kind"` // "type", "command" or "builtin"
	Name      string `json:"name"`
	Signature string `json:"signature,omitempty"`
	Doc       string `json:"doc,omitempty"`
}

// DefsResult is the payload of the defs command.
type DefsResult struct {
	Definitions []DefInfo `json:"definitions"`
}

func (r DefsResult) String() string {
	if len(r.Definitions) == 0 {
		return "No definitions."
	}
	var b strings.Builder
	for i, d := range r.Definitions {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-8s %s", d.Kind, d.Signature)
		if d.Doc != "" {
			fmt.Fprintf(&b, "  # %s", d.Doc)
		}
	}
	return b.String()
}

// NewDefsCommand creates the defs command.
func NewDefsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DefsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "defs",
		Short: "List definitions",
		Long: `List the record types and user commands available to expressions:
saved definitions plus the loaded CUE bundles.

Examples:
  tabula defs
  tabula defs --all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefs(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "include builtin commands")

	return cmd
}

func runDefs(ctx context.Context, opts *DefsOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	return opts.formatter(cmd).Success(listDefinitions(e, opts.All))
}

func listDefinitions(e *env, all bool) DefsResult {
	d := e.session.Definitions()
	res := DefsResult{Definitions: []DefInfo{}}

	for _, name := range d.Types() {
		td, ok := d.LookupType(name)
		if !ok {
			continue
		}
		fields := make([]string, len(td.Schema.Fields))
		for i, f := range td.Schema.Fields {
			fields[i] = f.Name + ":" + f.Type.String()
		}
		res.Definitions = append(res.Definitions, DefInfo{
			Kind:      "type",
			Name:      name,
			Signature: fmt.Sprintf("%s { %s }", name, strings.Join(fields, " ")),
			Doc:       td.Doc,
		})
	}

	user := make(map[string]bool)
	for _, u := range d.UserDefs() {
		user[u.Name()] = true
		sig := u.Impl.Signature()
		if u.In != value.TypeAny {
			sig = fmt.Sprintf("%s (%s)", sig, u.In)
		}
		res.Definitions = append(res.Definitions, DefInfo{
			Kind:      "command",
			Name:      u.Name(),
			Signature: sig,
			Doc:       u.Doc,
		})
	}

	if all {
		for _, name := range d.Commands() {
			if user[name] {
				continue
			}
			res.Definitions = append(res.Definitions, DefInfo{Kind: "builtin", Name: name, Signature: name})
		}
	}
	return res
}
