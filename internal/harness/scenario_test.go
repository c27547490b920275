package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Fruit(t *testing.T) {
	s := loadTestScenario(t, "fruit")

	assert.Equal(t, "fruit", s.Name)
	assert.Equal(t, "name,qty\napple,3\npear,7\nfig,5\n", s.Files["data/fruit.csv"])
	assert.Equal(t, []string{"def big => filter {get qty | > 4}"}, s.Setup)
	require.Len(t, s.Steps, 3)

	first := s.Steps[0]
	assert.Equal(t, KindEval, first.Kind())
	assert.Equal(t, "open fruit.csv | len", first.Source())
	assert.Equal(t, "data", first.Wd)
	assert.Equal(t, "Num", first.Expect.Type)
	assert.Equal(t, 3, first.Expect.Value)

	assert.Equal(t, []string{"open missing.csv", "missing.csv"}, s.Steps[2].Expect.Underlines)
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertFinalState, s.Assertions[3].Type)
	assert.Equal(t, TableCache, s.Assertions[3].Table)
}

func TestLoadScenario_BundlePathsAreRelativeToFile(t *testing.T) {
	s := loadTestScenario(t, "bundle")
	require.Len(t, s.Bundles, 1)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "bundle.cue"), s.Bundles[0])
}

func TestLoadScenario_StepKinds(t *testing.T) {
	s := loadTestScenario(t, "rewrite")
	kinds := make([]string, len(s.Steps))
	for i, st := range s.Steps {
		kinds[i] = st.Kind()
	}
	assert.Equal(t, []string{KindEval, KindWrite, KindEval, KindEval, KindEval}, kinds)
	assert.Equal(t, "notes.txt", s.Steps[1].Source())
	assert.Equal(t, "second", s.Steps[1].Write.Content)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nstep:\n  - eval: '1'\n",
			wantErr: "field step not found",
		},
		{
			name:    "missing name",
			yaml:    "description: d\nsteps:\n  - eval: '1'\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nsteps:\n  - eval: '1'\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name:    "two actions in one step",
			yaml:    "name: x\ndescription: d\nsteps:\n  - eval: '1'\n    define: 'def f => + 1'\n",
			wantErr: "steps[0]: exactly one of eval, define or write",
		},
		{
			name:    "write outside root",
			yaml:    "name: x\ndescription: d\nsteps:\n  - write: {path: ../x, content: ''}\n",
			wantErr: "must be a relative path inside the root",
		},
		{
			name:    "wd on define",
			yaml:    "name: x\ndescription: d\nsteps:\n  - define: 'def f => + 1'\n    wd: sub\n",
			wantErr: "wd only applies to eval steps",
		},
		{
			name:    "fixture outside root",
			yaml:    "name: x\ndescription: d\nfiles:\n  ../evil: x\nsteps:\n  - eval: '1'\n",
			wantErr: "files:",
		},
		{
			name:    "missing bundle",
			yaml:    "name: x\ndescription: d\nbundles: [nope.cue]\nsteps:\n  - eval: '1'\n",
			wantErr: "bundle file not found",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\ndescription: d\nsteps:\n  - eval: '1'\nassertions:\n  - type: trace_magic\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "final_state without table",
			yaml:    "name: x\ndescription: d\nsteps:\n  - eval: '1'\nassertions:\n  - type: final_state\n    expect: {count: 1}\n",
			wantErr: "table is required",
		},
		{
			name:    "final_state unknown table",
			yaml:    "name: x\ndescription: d\nsteps:\n  - eval: '1'\nassertions:\n  - type: final_state\n    table: users\n    expect: {count: 1}\n",
			wantErr: "unknown final_state table",
		},
		{
			name:    "bad outcome",
			yaml:    "name: x\ndescription: d\nsteps:\n  - eval: '1'\nassertions:\n  - type: trace_count\n    outcome: maybe\n",
			wantErr: "outcome must be",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
