package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Step: 1, Kind: KindDefine, Source: "def f => + 1", Result: "f"},
		{Step: 2, Kind: KindEval, Source: "1 | f", Type: "Num", Result: float64(2)},
		{Step: 3, Kind: KindWrite, Source: "a.csv"},
		{Step: 4, Kind: KindEval, Source: "open a.csv", Error: &TraceError{Category: "Evaluate", Code: "E301"}},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Source: "1 | f"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Source: "open a.csv", Outcome: OutcomeError}))

	err := assertTraceContains(trace, Assertion{Source: "open a.csv", Outcome: OutcomeOK})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Contains(t, err.Error(), "[4] eval open a.csv (error)")

	assert.Error(t, assertTraceContains(trace, Assertion{Source: "2 | f"}))
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Sources: []string{"def f => + 1", "a.csv"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Sources: []string{"1 | f", "open a.csv"}}))

	err := assertTraceOrder(trace, Assertion{Sources: []string{"open a.csv", "1 | f"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Sources: []string{"1 | f", "ls"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing step: "ls"`)
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   bool
	}{
		{"all steps", Assertion{Count: 4}, false},
		{"evals", Assertion{Kind: KindEval, Count: 2}, false},
		{"failed evals", Assertion{Kind: KindEval, Outcome: OutcomeError, Count: 1}, false},
		{"successes", Assertion{Outcome: OutcomeOK, Count: 3}, false},
		{"wrong count", Assertion{Kind: KindDefine, Count: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceCount(trace, tt.assertion)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNativeEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"int vs float", 3, float64(3), true},
		{"int vs uint64", 2, uint64(2), true},
		{"float mismatch", 2.5, float64(2), false},
		{"number vs string", 1, "1", false},
		{"string", "a", "a", true},
		{"bool", true, true, true},
		{"nil", nil, nil, true},
		{"nil vs value", nil, "x", false},
		{"list", []any{1, "b"}, []any{float64(1), "b"}, true},
		{"list length", []any{1}, []any{float64(1), float64(2)}, false},
		{"map", map[string]any{"x": 1}, map[string]any{"x": float64(1)}, true},
		{"map extra key", map[string]any{"x": 1}, map[string]any{"x": float64(1), "y": 2.0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nativeEqual(tt.expected, tt.actual))
		})
	}
}

func TestEvaluateAssertions_FinalStateNeedsHarness(t *testing.T) {
	result := NewResult()
	errs := EvaluateAssertions(context.Background(), result, []Assertion{
		{Type: AssertFinalState, Table: TableHistory, Expect: map[string]any{"count": 0}},
		{Type: "bogus"},
	}, nil)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "requires a harness")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}

func TestRun_FinalStateUnknownField(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "unknown_field",
		Description: "final_state with a field the table does not have",
		Steps:       []Step{{Eval: "1"}},
		Assertions: []Assertion{
			{Type: AssertFinalState, Table: TableCache, Expect: map[string]any{"evictions": 0}},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `unknown field "evictions"`)
}
