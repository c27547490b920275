package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/diag"
	"github.com/roach88/tabula/internal/engine"
	"github.com/roach88/tabula/internal/testutil"
)

const fruitCSV = "name,qty\napple,3\npear,7\nfig,5\n"

func fruitRoot(t *testing.T) string {
	t.Helper()
	return testutil.WriteTree(t, map[string]string{"data/fruit.csv": fruitCSV})
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string    `json:"status"`
		Data   T         `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp.Data
}

func TestEval_Text(t *testing.T) {
	root := fruitRoot(t)

	out, _, err := execute(t, "", "--root", root, "--wd", "data", "eval", "open fruit.csv | len")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, _, err = execute(t, "", "--root", root, "eval", "1", "|", "+", "2")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out, "arguments are joined into one expression")
}

func TestEval_JSON(t *testing.T) {
	out, _, err := execute(t, "", "--root", fruitRoot(t), "--format", "json", "eval", "1 | + 2")
	require.NoError(t, err)

	res := decode[EvalResult](t, out)
	assert.Equal(t, "Num", res.Type)
	assert.Equal(t, 3.0, res.Value)
}

func TestEval_Failure(t *testing.T) {
	root := fruitRoot(t)

	out, stderr, err := execute(t, "", "--root", root, "eval", "1 | nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.True(t, diag.IsCategory(err, diag.CategoryResolve))
	assert.Empty(t, out)
	assert.Contains(t, stderr, "1 | nope")

	out, _, err = execute(t, "", "--root", root, "--format", "json", "eval", "open ../x.csv")
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Permission", details["category"])
}

func TestEval_BadRoot(t *testing.T) {
	_, _, err := execute(t, "", "--root", filepath.Join(t.TempDir(), "missing"), "eval", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheck(t *testing.T) {
	root := fruitRoot(t)

	out, _, err := execute(t, "", "--root", root, "check", "--input", "Num", "* 2 | > 3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Num -> Bool\n"), out)

	out, _, err = execute(t, "", "--root", root, "--format", "json", "check", "open fruit.csv | len")
	require.NoError(t, err)
	res := decode[CheckResult](t, out)
	assert.Equal(t, "Nil", res.In)
	assert.Equal(t, "Num", res.Out)
	require.Len(t, res.Stages, 2)
	assert.Equal(t, StageInfo{Command: "open", In: "Nil", Out: "Table"}, res.Stages[0])
	assert.Equal(t, StageInfo{Command: "len", In: "Table", Out: "Num"}, res.Stages[1])

	_, _, err = execute(t, "", "--root", root, "check", "--input", "Nope", "len")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "", "--root", root, "check", "--input", "Num", "len")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, diag.IsCategory(err, diag.CategoryResolve))
}

func TestDef_SavesAcrossInvocations(t *testing.T) {
	root := fruitRoot(t)
	db := filepath.Join(t.TempDir(), "tabula.db")

	out, _, err := execute(t, "", "--root", root, "--db", db, "def", "def-ty Point { x:Num y:Num }")
	require.NoError(t, err)
	assert.Equal(t, "defined Point\n", out)

	out, _, err = execute(t, "", "--root", root, "--db", db, "def", "--doc", "double x", "def norm Point => get x | * 2")
	require.NoError(t, err)
	assert.Equal(t, "defined norm\n", out)

	out, _, err = execute(t, "", "--root", root, "--db", db, "eval", "Point 4 5 | norm")
	require.NoError(t, err)
	assert.Equal(t, "8\n", out)

	out, _, err = execute(t, "", "--root", root, "--db", db, "defs")
	require.NoError(t, err)
	assert.Contains(t, out, "Point { x:Num y:Num }")
	assert.Contains(t, out, "norm (Point)  # double x")
	assert.NotContains(t, out, "builtin")

	out, _, err = execute(t, "", "--root", root, "--db", db, "--format", "json", "defs", "--all")
	require.NoError(t, err)
	res := decode[DefsResult](t, out)
	kinds := map[string]string{}
	for _, d := range res.Definitions {
		kinds[d.Name] = d.Kind
	}
	assert.Equal(t, "type", kinds["Point"])
	assert.Equal(t, "command", kinds["norm"])
	assert.Equal(t, "builtin", kinds["filter"])

	out, _, err = execute(t, "", "--root", root, "--db", db, "undef", "norm")
	require.NoError(t, err)
	assert.Equal(t, "removed norm\n", out)

	_, _, err = execute(t, "", "--root", root, "--db", db, "eval", "Point 4 5 | norm")
	require.Error(t, err)
	assert.True(t, diag.HasCode(err, diag.ErrCodeUnknownCommand))
}

func TestDef_WithoutDatabase(t *testing.T) {
	root := fruitRoot(t)

	out, _, err := execute(t, "", "--root", root, "def", "def inc Num => + 1")
	require.NoError(t, err)
	assert.Contains(t, out, "inc is valid")

	_, _, err = execute(t, "", "--root", root, "def", "def loop => loop")
	require.Error(t, err)
	assert.True(t, engine.IsCyclicDefinition(err))

	_, _, err = execute(t, "", "--root", root, "def", "1 | + 2")
	require.Error(t, err)
	assert.True(t, diag.IsCategory(err, diag.CategoryParse))

	_, _, err = execute(t, "", "--root", root, "undef", "inc")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistory(t *testing.T) {
	root := fruitRoot(t)
	db := filepath.Join(t.TempDir(), "tabula.db")

	for _, src := range []string{"2 | * 21", "1 | / 0", "40 | + 2"} {
		_, _, _ = execute(t, "", "--root", root, "--db", db, "eval", src)
	}

	out, _, err := execute(t, "", "--root", root, "--db", db, "--format", "json", "history")
	require.NoError(t, err)
	hist := decode[HistoryResult](t, out)
	require.Len(t, hist.Entries, 3)

	latest, failed, first := hist.Entries[0], hist.Entries[1], hist.Entries[2]
	assert.Equal(t, "40 | + 2", latest.Expression)
	assert.Equal(t, diag.ErrCodeEval, failed.ErrorCode)
	assert.Equal(t, "Num", first.Type)
	assert.Equal(t, 42.0, first.Result)

	out, _, err = execute(t, "", "--root", root, "--db", db, "--format", "json", "history", "--id", first.ID)
	require.NoError(t, err)
	entry := decode[HistoryEntry](t, out)
	assert.Equal(t, []string{latest.ID}, entry.SameResult, "both evaluations produced 42")

	out, _, err = execute(t, "", "--root", root, "--db", db, "history", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "40 | + 2")
	assert.NotContains(t, out, "2 | * 21")

	out, _, err = execute(t, "", "--root", root, "--db", db, "history", "--id", failed.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "error:      ["+diag.ErrCodeEval+"]")

	_, _, err = execute(t, "", "--root", root, "--db", db, "history", "--id", "nope")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = execute(t, "", "--root", root, "history")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigFile(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"data/fruit.csv": fruitCSV,
		"defs.cue":       `commands: heavy: {input: "Table", body: "filter {get qty | > 4}"}`,
		"tabula.toml": `
[store]
path = "state/tabula.db"

[definitions]
files = ["defs.cue"]

[cache]
disabled = true
`,
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "state"), 0o755))

	out, _, err := execute(t, "", "--root", root, "--wd", "data", "eval", "open fruit.csv | heavy | len")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, _, err = execute(t, "", "--root", root, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "open fruit.csv | heavy | len", "history goes to the configured store")

	out, _, err = execute(t, ":cache\n", "--root", root, "repl")
	require.NoError(t, err)
	assert.Contains(t, out, "content cache disabled")
}

func TestConfigErrors(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"tabula.toml": "[engine]\nmax_depth = 0\n"})
	_, _, err := execute(t, "", "--root", root, "eval", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "max_depth")

	other := testutil.WriteFile(t, t.TempDir(), "custom.toml", "[render]\nrows_limit = 40\n")
	out, _, err := execute(t, "", "--root", root, "--config", other, "eval", "1")
	require.NoError(t, err, "--config replaces the root's tabula.toml")
	assert.Equal(t, "1\n", out)

	_, _, err = execute(t, "", "--root", fruitRoot(t), "--defs", filepath.Join(root, "missing.cue"), "eval", "1")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDefsFlag(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"defs.cue": `
types: Pair: fields: {a: "Num", b: "Num"}
commands: sum: {input: "Pair", body: "let {get a} $a | get b | + $a"}
`,
	})
	out, _, err := execute(t, "", "--root", root, "--defs", filepath.Join(root, "defs.cue"), "eval", "Pair 2 3 | sum")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestRepl(t *testing.T) {
	root := fruitRoot(t)
	input := strings.Join([]string{
		"def inc Num => + 1",
		"10 | inc",
		"open fruit.csv | filter {",
		"  get qty | > 4",
		"} | len",
		"1 | nope",
		"| len",
		":defs",
		":bogus",
		"",
		":quit",
		"100 | + 1",
	}, "\n") + "\n"

	out, stderr, err := execute(t, input, "--root", root, "--wd", "data", "repl")
	require.NoError(t, err)

	assert.Equal(t, []string{"defined inc", "11", "2", "command  inc (Num)"}, strings.Split(strings.TrimSpace(out), "\n"))
	assert.Contains(t, stderr, "1 | nope")
	assert.Contains(t, stderr, "expecting: command")
	assert.Contains(t, stderr, "unknown shell command :bogus")
	assert.NotContains(t, out, "101", "nothing runs after :quit")
}

func TestRepl_EndOfInputInsideBrace(t *testing.T) {
	out, stderr, err := execute(t, "open fruit.csv | filter {\n", "--root", fruitRoot(t), "repl")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "Parse Error", "the unfinished input is still reported")
}

func TestComplete(t *testing.T) {
	d := engine.NewDefinitions()
	assert.Contains(t, complete(d, "open fruit.csv | fil"), "open fruit.csv | filter")
	assert.Contains(t, complete(d, "so"), "sort-by")
	assert.Empty(t, complete(d, "open a.csv | zzz"))
}
