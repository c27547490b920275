package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/tabula"
	"github.com/roach88/tabula/internal/ast"
	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/fscache"
	"github.com/roach88/tabula/internal/store"
	"github.com/roach88/tabula/internal/testutil"
	"github.com/roach88/tabula/internal/value"
)

// Harness is the test execution engine.
// It runs the steps of one scenario against one session.
type Harness struct {
	session *tabula.Session
	store   *store.Store
	cache   *fscache.Cache
	root    string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh fixture directory and a fresh in-memory
// database for isolation. Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create the fixture tree and an in-memory store
// 2. Load bundles and register setup definitions
// 3. Execute steps, checking each expect clause
// 4. Evaluate assertions against the trace and final state
//
// An error is returned when the scenario cannot be set up; step and
// assertion failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "tabula-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create fixture root: %w", err)
	}
	defer os.RemoveAll(dir)
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fixture root: %w", err)
	}
	for name, content := range scenario.Files {
		if err := writeFixture(root, name, content); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDs("eval")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	cache := fscache.New(fscache.WithReadDelay(0), fscache.WithLogger(logger))
	defer cache.Close()

	session, err := tabula.New(root,
		tabula.WithStore(st),
		tabula.WithCache(cache),
		tabula.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	h := &Harness{session: session, store: st, cache: cache, root: root}
	ctx := context.Background()

	for _, b := range scenario.Bundles {
		if _, err := session.LoadBundle(b); err != nil {
			return nil, fmt.Errorf("failed to load bundle: %w", err)
		}
	}
	for i, def := range scenario.Setup {
		if _, err := session.Define(ctx, def, ast.FileLoc("setup", i+1), ""); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	for _, errMsg := range EvaluateAssertions(ctx, result, scenario.Assertions, h) {
		result.AddError(errMsg)
	}
	return result, nil
}

func writeFixture(root, name, content string) error {
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create fixture %s: %w", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write fixture %s: %w", name, err)
	}
	return nil
}

// executeStep runs one step, records its trace event and checks its expect
// clause. Only infrastructure failures are returned.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	ev := TraceEvent{Step: index + 1, Kind: step.Kind(), Source: step.Source(), Wd: step.Wd}

	var (
		v   value.Value
		err error
	)
	switch ev.Kind {
	case KindWrite:
		if err := writeFixture(h.root, step.Write.Path, step.Write.Content); err != nil {
			return err
		}
		// Invalidate now rather than waiting for the watcher's debounce.
		h.cache.RemoveChanged([]string{filepath.Join(h.root, filepath.FromSlash(step.Write.Path))})
		result.AddTrace(ev)
		return nil
	case KindDefine:
		var name string
		name, err = h.session.Define(ctx, step.Define, ast.Shell(), "")
		if err == nil {
			ev.Result = name
		}
	default:
		v, err = h.session.Eval(ctx, value.Nil{}, step.Eval, ast.Shell(), step.Wd)
	}

	if err != nil {
		ev.Error = traceError(err)
	} else if v != nil {
		ev.Type = value.TypeOf(v).String()
		if native, nerr := value.ToNative(v); nerr == nil {
			ev.Result = native
		}
	}
	result.AddTrace(ev)

	for _, msg := range checkExpect(ev, step.Expect) {
		result.AddError(fmt.Sprintf("steps[%d] %q: %s", index, ev.Source, msg))
	}
	return nil
}

func traceError(err error) *TraceError {
	de, ok := diag.As(err)
	if !ok {
		return &TraceError{Desc: err.Error()}
	}
	te := &TraceError{
		Category: de.Cat.String(),
		Code:     de.Code,
		Desc:     de.Desc,
		Help:     de.Help,
	}
	for _, tr := range de.Traces {
		te.Underlines = append(te.Underlines, tr.Underlined())
	}
	return te
}

// checkExpect compares a step's event against its expect clause and
// returns one message per mismatch.
func checkExpect(ev TraceEvent, expect *ExpectClause) []string {
	if expect == nil || !expect.wantsError() {
		if ev.Error != nil {
			return []string{fmt.Sprintf("unexpected error: %s [%s]: %s", ev.Error.Category, ev.Error.Code, ev.Error.Desc)}
		}
	}
	if expect == nil {
		return nil
	}

	var msgs []string
	if expect.wantsError() {
		if ev.Error == nil {
			return []string{fmt.Sprintf("expected an error, got %s %v", ev.Type, ev.Result)}
		}
		if expect.Error != "" && expect.Error != ev.Error.Code {
			msgs = append(msgs, fmt.Sprintf("error code: expected %s, got %s", expect.Error, ev.Error.Code))
		}
		if expect.Category != "" && expect.Category != ev.Error.Category {
			msgs = append(msgs, fmt.Sprintf("error category: expected %s, got %s", expect.Category, ev.Error.Category))
		}
		if expect.Message != "" && !strings.Contains(ev.Error.Desc, expect.Message) {
			msgs = append(msgs, fmt.Sprintf("error message: expected %q in %q", expect.Message, ev.Error.Desc))
		}
		if len(expect.Underlines) > 0 && !nativeEqual(toAnySlice(expect.Underlines), toAnySlice(ev.Error.Underlines)) {
			msgs = append(msgs, fmt.Sprintf("underlines: expected %q, got %q", expect.Underlines, ev.Error.Underlines))
		}
	}
	if expect.Type != "" && expect.Type != ev.Type {
		msgs = append(msgs, fmt.Sprintf("type: expected %s, got %s", expect.Type, ev.Type))
	}
	if expect.Value != nil && !nativeEqual(expect.Value, ev.Result) {
		msgs = append(msgs, fmt.Sprintf("value: expected %v, got %v", expect.Value, ev.Result))
	}
	return msgs
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
