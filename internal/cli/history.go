package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
	ID    string // show one entry in full
}

// HistoryEntry is one evaluation in the history output.
type HistoryEntry struct {
	ID         string `json:"id"`
	Seq        int64  `json:"seq"`
	Expression string `json:"expression"`
	Wd         string `json:"wd,omitempty"`
	Type       string `json:"type,omitempty"`
	Result     any    `json:"result,omitempty"`
	ResultHash string `json:"result_hash,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Error      string `json:"error,omitempty"`
	// SameResult lists earlier evaluations that produced an identical value.
	SameResult []string `json:"same_result,omitempty"`
}

func toHistoryEntry(e store.Entry) HistoryEntry {
	return HistoryEntry{
		ID:         e.ID,
		Seq:        e.Seq,
		Expression: e.Expression,
		Wd:         e.Wd,
		Type:       e.ResultType,
		Result:     e.Result,
		ResultHash: e.ResultHash,
		ErrorCode:  e.ErrorCode,
		Error:      e.Error,
	}
}

func (h HistoryEntry) String() string {
	outcome := h.Type
	if h.ErrorCode != "" || h.Error != "" {
		outcome = fmt.Sprintf("error %s: %s", h.ErrorCode, h.Error)
	}
	return fmt.Sprintf("%4d  %s  %s  => %s", h.Seq, h.ID, h.Expression, outcome)
}

// HistoryResult is the payload of the history command.
type HistoryResult struct {
	Entries []HistoryEntry `json:"entries"`
}

func (r HistoryResult) String() string {
	if len(r.Entries) == 0 {
		return "No history."
	}
	lines := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded evaluations",
		Long: `List evaluations recorded in the database, newest first.

With --id, show a single entry including its result and the ids of
other evaluations that produced the same value.

Examples:
  tabula history --db ./tabula.db --limit 10
  tabula history --db ./tabula.db --id 0190a3c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of entries (0 for all)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show one entry")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	e, err := openEnv(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	if e.store == nil {
		return NewExitError(ExitCommandError, "history needs a database (--db or [store] path)")
	}

	if opts.ID != "" {
		entry, err := e.store.Entry(ctx, opts.ID)
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitFailure, fmt.Sprintf("no history entry %q", opts.ID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read history", err)
		}
		h := toHistoryEntry(entry)
		if entry.ResultHash != "" {
			ids, err := e.store.EntriesWithResult(ctx, entry.ResultHash)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read history", err)
			}
			for _, id := range ids {
				if id != entry.ID {
					h.SameResult = append(h.SameResult, id)
				}
			}
		}
		if f.Format == "json" {
			return f.Success(h)
		}
		return f.Success(describeEntry(h))
	}

	entries, err := e.store.History(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}
	res := HistoryResult{Entries: make([]HistoryEntry, len(entries))}
	for i, entry := range entries {
		res.Entries[i] = toHistoryEntry(entry)
	}
	return f.Success(res)
}

func describeEntry(h HistoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id:         %s\n", h.ID)
	fmt.Fprintf(&b, "expression: %s\n", h.Expression)
	if h.Wd != "" {
		fmt.Fprintf(&b, "wd:         %s\n", h.Wd)
	}
	if h.ErrorCode != "" || h.Error != "" {
		fmt.Fprintf(&b, "error:      [%s] %s", h.ErrorCode, h.Error)
		return b.String()
	}
	fmt.Fprintf(&b, "type:       %s\n", h.Type)
	fmt.Fprintf(&b, "result:     %v", h.Result)
	if len(h.SameResult) > 0 {
		fmt.Fprintf(&b, "\nsame as:    %s", strings.Join(h.SameResult, ", "))
	}
	return b.String()
}
