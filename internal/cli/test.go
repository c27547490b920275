package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/harness"
)

// goldenDir holds recorded step traces, next to the scenario files.
const goldenDir = "golden"

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool
	Filter string
}

// ScenarioOutcome is the result of running one scenario file.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Steps  int      `json:"steps"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestReport summarises a test run.
type TestReport struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
}

func (r TestReport) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		status := "ok  "
		if !s.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%s  %s (%d steps)\n", status, s.Name, s.Steps)
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "      %s\n", e)
		}
	}
	fmt.Fprintf(&b, "\n%d scenarios: %d passed, %d failed", len(r.Scenarios), r.Passed, r.Failed)
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <dir>",
		Short: "Run expression scenarios",
		Long: `Run every YAML scenario under <dir>. Each scenario gets a fresh fixture
tree, definition registry, store and content cache; its eval, define and
write steps run in order and their expectations are checked.

A scenario with a recorded trace in <dir>/golden/<file>.golden must also
reproduce that trace exactly. Pass --update to record traces instead.

Exit codes:
  0 - every scenario passed
  1 - a scenario failed or could not be loaded
  2 - bad arguments (missing directory, invalid --filter)

Examples:
  tabula test ./scenarios
  tabula test ./scenarios --filter "fruit*"
  tabula test ./scenarios --update`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "record step traces as golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenario files whose name matches this glob")
	return cmd
}

func runTests(cmd *cobra.Command, opts *TestOptions, dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot list scenarios", err)
	}

	f := opts.formatter(cmd)
	if len(files) == 0 {
		return f.Success(fmt.Sprintf("No scenarios found in %s.", dir))
	}

	report := TestReport{Scenarios: make([]ScenarioOutcome, 0, len(files))}
	for _, file := range files {
		out := runScenario(file, opts.Update)
		f.VerboseLog("%s: pass=%t", file, out.Pass)
		if out.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Scenarios = append(report.Scenarios, out)
	}
	return writeReport(f, report)
}

func writeReport(f *OutputFormatter, report TestReport) error {
	if report.Failed == 0 {
		return f.Success(report)
	}
	msg := fmt.Sprintf("%d of %d scenarios failed", report.Failed, len(report.Scenarios))
	if f.Format == "json" {
		if err := f.Error("E_SCENARIO_FAILED", msg, report); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer, report)
	}
	return &ExitError{Code: ExitFailure, Message: msg, Reported: true}
}

// findScenarioFiles lists .yaml and .yml files under dir in lexical order,
// skipping golden directories. A non-empty filter must match the file name
// without its extension.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if _, err := filepath.Match(filter, ""); err != nil {
		return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && d.Name() == goldenDir && path != dir:
			return fs.SkipDir
		case d.IsDir():
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario loads and runs one file. With update it records the trace;
// otherwise a recorded trace, if any, must match.
func runScenario(file string, update bool) ScenarioOutcome {
	out := ScenarioOutcome{Name: filepath.Base(file), File: file}
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		out.Errors = []string{fmt.Sprintf("load: %v", err)}
		return out
	}
	out.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		out.Errors = []string{fmt.Sprintf("run: %v", err)}
		return out
	}
	out.Steps = len(result.Trace)
	out.Errors = append(out.Errors, result.Errors...)

	trace, err := harness.MarshalSnapshot(harness.TraceSnapshot{ScenarioName: scenario.Name, Trace: result.Trace})
	if err == nil {
		err = checkGolden(goldenFilePath(file), trace, update)
	}
	if err != nil {
		out.Errors = append(out.Errors, err.Error())
	}
	out.Pass = len(out.Errors) == 0
	return out
}

var errTraceChanged = errors.New("step trace differs from the golden file (rerun with --update to record it)")

func checkGolden(path string, trace []byte, update bool) error {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("record trace: %w", err)
		}
		if err := os.WriteFile(path, trace, 0o644); err != nil {
			return fmt.Errorf("record trace: %w", err)
		}
		return nil
	}
	want, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("read golden file: %w", err)
	case !bytes.Equal(want, trace):
		return errTraceChanged
	}
	return nil
}

// goldenFilePath is <dir>/golden/<name>.golden for <dir>/<name>.yaml.
func goldenFilePath(file string) string {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return filepath.Join(filepath.Dir(file), goldenDir, name+".golden")
}
