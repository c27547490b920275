package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/testutil"
)

const passingScenario = `name: arithmetic
description: "Add two numbers"
steps:
  - eval: "1 | + 2"
    expect:
      type: Num
      value: 3
`

const failingScenario = `name: wrong
description: "Expect the wrong sum"
steps:
  - eval: "1 | + 2"
    expect:
      value: 4
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(t, "", "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, _, err := execute(t, "", "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, _, err := execute(t, "", "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, _, err := execute(t, "", "--format", "json", "test", t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandRunsHarnessScenarios(t *testing.T) {
	out, _, err := execute(t, "", "test", filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "ok    fruit (")
	assert.Contains(t, out, "4 scenarios: 4 passed, 0 failed")
}

func TestTestCommandReportsFailures(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"ok.yaml":    passingScenario,
		"wrong.yaml": failingScenario,
	})

	out, _, err := execute(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "ok    arithmetic (1 steps)")
	assert.Contains(t, out, "FAIL  wrong (1 steps)")
	assert.Contains(t, out, "      steps[0] \"1 | + 2\": value: expected 4, got 3")
	assert.Contains(t, out, "2 scenarios: 1 passed, 1 failed")

	out, _, err = execute(t, "", "--format", "json", "test", dir)
	require.Error(t, err)
	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string     `json:"code"`
			Message string     `json:"message"`
			Details TestReport `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_SCENARIO_FAILED", resp.Error.Code)
	assert.Equal(t, "1 of 2 scenarios failed", resp.Error.Message)
	assert.Equal(t, 1, resp.Error.Details.Passed)
	assert.Equal(t, 1, resp.Error.Details.Failed)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{"broken.yaml": "name: broken\nsteps: []\n"})

	out, _, err := execute(t, "", "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL  broken.yaml (0 steps)")
	assert.Contains(t, out, "load: ")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{"ok.yaml": passingScenario})

	_, _, err := execute(t, "", "test", "--update", dir)
	require.NoError(t, err)
	golden := filepath.Join(dir, "golden", "ok.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "arithmetic"`)

	_, _, err = execute(t, "", "test", dir)
	require.NoError(t, err, "the fresh golden file matches")

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	out, _, err := execute(t, "", "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "step trace differs from the golden file")
}

func TestTestHelpText(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)
	assert.Contains(t, sub.Long, "Exit codes:")
	assert.Contains(t, sub.Long, "--update")
	assert.Equal(t, "test <dir>", sub.Use)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"a.yaml":          passingScenario,
		"b.yml":           passingScenario,
		"notes.txt":       "x",
		"nested/c.yaml":   passingScenario,
		"golden/a.golden": "{}",
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"cart-add.yaml":    passingScenario,
		"cart-remove.yaml": passingScenario,
		"checkout.yaml":    passingScenario,
	})

	files, err := findScenarioFiles(dir, "cart-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(dir, "[")
	assert.ErrorContains(t, err, "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "fruit.golden"), goldenFilePath(filepath.Join("scenarios", "fruit.yaml")))
	assert.Equal(t, filepath.Join("golden", "x.golden"), goldenFilePath("x.yml"))
}
