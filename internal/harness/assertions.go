package harness

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s (%s)\n", event.Step, event.Kind, event.Source, event.Outcome())
		}
	}
	return buf.String()
}

// assertTraceContains checks that a step with the given source ran, with
// the given outcome when one is set.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Source == assertion.Source && (assertion.Outcome == "" || event.Outcome() == assertion.Outcome) {
			return nil
		}
	}

	expected := fmt.Sprintf("step %q", assertion.Source)
	if assertion.Outcome != "" {
		expected += " with outcome " + assertion.Outcome
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that steps appear in the specified order.
// Steps don't need to be consecutive (intervening steps are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected source, 1-indexed so 0 means missing.
	positions := make(map[string]int)
	for i, event := range trace {
		for _, src := range assertion.Sources {
			if event.Source == src && positions[src] == 0 {
				positions[src] = i + 1
			}
		}
	}

	for _, src := range assertion.Sources {
		if positions[src] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all steps present: %q", assertion.Sources),
				Actual:   fmt.Sprintf("missing step: %q", src),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Sources); i++ {
		prev := assertion.Sources[i-1]
		curr := assertion.Sources[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("steps in order: %q", assertion.Sources),
				Actual: fmt.Sprintf("%q (pos %d) should be before %q (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count steps match the kind and
// outcome filters. Empty filters match every step.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if assertion.Kind != "" && event.Kind != assertion.Kind {
			continue
		}
		if assertion.Outcome != "" && event.Outcome() != assertion.Outcome {
			continue
		}
		count++
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d steps (kind %q, outcome %q)", assertion.Count, assertion.Kind, assertion.Outcome),
			Actual:   fmt.Sprintf("%d steps", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState compares a snapshot of the named table against the
// expected fields (subset semantics).
func assertFinalState(ctx context.Context, h *Harness, assertion Assertion) error {
	state, err := h.finalState(ctx, assertion.Table)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		actual, ok := state[k]
		if !ok {
			return fmt.Errorf("final_state %s: unknown field %q", assertion.Table, k)
		}
		if !nativeEqual(assertion.Expect[k], actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", assertion.Table, k, assertion.Expect[k]),
				Actual:   fmt.Sprintf("%v", actual),
			}
		}
	}
	return nil
}

// finalState snapshots a table into plain values.
func (h *Harness) finalState(ctx context.Context, table string) (map[string]any, error) {
	switch table {
	case TableHistory:
		entries, err := h.store.History(ctx, 0)
		if err != nil {
			return nil, err
		}
		failed := 0
		for _, e := range entries {
			if e.Failed() {
				failed++
			}
		}
		return map[string]any{"count": len(entries), "failed": failed}, nil
	case TableDefinitions:
		defs, err := h.store.Definitions(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]any, len(defs))
		for i, d := range defs {
			names[i] = d.Name
		}
		return map[string]any{"count": len(defs), "names": names}, nil
	case TableCache:
		s := h.cache.Stats()
		return map[string]any{
			"entries": s.Entries,
			"hits":    s.Hits,
			"misses":  s.Misses,
			"inserts": s.Inserts,
		}, nil
	default:
		return nil, fmt.Errorf("unknown final_state table %q", table)
	}
}

// nativeEqual compares YAML-decoded expectations with native values.
// Numbers compare by value whatever their Go type; lists and maps compare
// element-wise.
func nativeEqual(expected, actual any) bool {
	if ef, ok := toFloat(expected); ok {
		af, ok := toFloat(actual)
		return ok && (ef == af || (math.IsNaN(ef) && math.IsNaN(af)))
	}

	switch exp := expected.(type) {
	case nil:
		return actual == nil
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case bool:
		act, ok := actual.(bool)
		return ok && exp == act
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !nativeEqual(exp[i], act[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for k, ev := range exp {
			av, ok := act[k]
			if !ok || !nativeEqual(ev, av) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, h *Harness) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if h == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a harness", i)
			} else {
				err = assertFinalState(ctx, h, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
