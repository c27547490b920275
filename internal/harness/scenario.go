package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Files is the fixture tree: slash-separated paths relative to the root
	// mapped to file content.
	Files map[string]string `yaml:"files,omitempty"`

	// Bundles lists CUE definition bundles to load before setup.
	// LoadScenario resolves them relative to the scenario file.
	Bundles []string `yaml:"bundles,omitempty"`

	// Setup contains definitions registered before the steps run.
	// Setup definitions are assumed to succeed.
	Setup []string `yaml:"setup,omitempty"`

	// Steps run in order; each adds one trace event.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is exactly one of an evaluation, a definition or a file write.
type Step struct {
	Eval   string     `yaml:"eval,omitempty"`
	Define string     `yaml:"define,omitempty"`
	Write  *WriteStep `yaml:"write,omitempty"`

	// Wd is the working directory of an eval step, relative to the root.
	Wd string `yaml:"wd,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step must succeed and nothing else is checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Kind returns the step kind.
func (s Step) Kind() string {
	switch {
	case s.Write != nil:
		return KindWrite
	case s.Define != "":
		return KindDefine
	default:
		return KindEval
	}
}

// Source returns the step's expression, definition or written path.
func (s Step) Source() string {
	switch s.Kind() {
	case KindWrite:
		return s.Write.Path
	case KindDefine:
		return s.Define
	default:
		return s.Eval
	}
}

// WriteStep replaces a fixture file between evaluations.
type WriteStep struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// ExpectClause specifies the expected step outcome. Empty fields are not
// checked. Setting Error or Category expects the step to fail.
type ExpectClause struct {
	// Type is the expected result type name (e.g. "Num", "Table", "Point").
	Type string `yaml:"type,omitempty"`

	// Value is the expected result in native form: numbers, strings,
	// booleans, lists and maps, compared with numeric coercion.
	Value any `yaml:"value,omitempty"`

	// Error is the expected diagnostic code (e.g. "E301").
	Error string `yaml:"error,omitempty"`

	// Category is the expected diagnostic category (e.g. "Permission").
	Category string `yaml:"category,omitempty"`

	// Message must be a substring of the diagnostic description.
	Message string `yaml:"message,omitempty"`

	// Underlines are the traced spans, call site to leaf.
	Underlines []string `yaml:"underlines,omitempty"`
}

func (e *ExpectClause) wantsError() bool {
	return e.Error != "" || e.Category != "" || e.Message != "" || len(e.Underlines) > 0
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a step with Source (and Outcome, if set) ran
	// - "trace_order": steps with Sources ran in order
	// - "trace_count": exactly Count steps matched Kind and Outcome
	// - "final_state": Table holds Expect
	Type string `yaml:"type"`

	// Source is a step source (used by trace_contains).
	Source string `yaml:"source,omitempty"`

	// Kind filters steps by kind (used by trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Outcome filters steps by "ok" or "error" (trace_contains, trace_count).
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number of matching steps (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Sources is the expected step order (used by trace_order).
	Sources []string `yaml:"sources,omitempty"`

	// Table is "history", "definitions" or "cache" (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Final state tables.
const (
	TableHistory     = "history"
	TableDefinitions = "definitions"
	TableCache       = "cache"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, b := range scenario.Bundles {
		if !filepath.IsAbs(b) {
			scenario.Bundles[i] = filepath.Join(base, b)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for name := range s.Files {
		if filepath.IsAbs(name) || !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("files: %q must be a relative path inside the root", name)
		}
	}
	for _, b := range s.Bundles {
		if _, err := os.Stat(b); os.IsNotExist(err) {
			return fmt.Errorf("bundle file not found: %s", b)
		}
	}
	for i, def := range s.Setup {
		if def == "" {
			return fmt.Errorf("setup[%d]: definition is empty", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step) error {
	set := 0
	if s.Eval != "" {
		set++
	}
	if s.Define != "" {
		set++
	}
	if s.Write != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of eval, define or write is required", index)
	}
	if s.Write != nil {
		if s.Write.Path == "" {
			return fmt.Errorf("steps[%d].write: path is required", index)
		}
		if !filepath.IsLocal(filepath.FromSlash(s.Write.Path)) {
			return fmt.Errorf("steps[%d].write: %q must be a relative path inside the root", index, s.Write.Path)
		}
		if s.Expect != nil {
			return fmt.Errorf("steps[%d]: write steps take no expect clause", index)
		}
	}
	if s.Wd != "" && s.Eval == "" {
		return fmt.Errorf("steps[%d]: wd only applies to eval steps", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Outcome != "" && a.Outcome != OutcomeOK && a.Outcome != OutcomeError {
		return fmt.Errorf("assertions[%d]: outcome must be %q or %q", index, OutcomeOK, OutcomeError)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Sources) == 0 {
			return fmt.Errorf("assertions[%d]: sources list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		switch a.Table {
		case TableHistory, TableDefinitions, TableCache:
		case "":
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		default:
			return fmt.Errorf("assertions[%d]: unknown final_state table %q", index, a.Table)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
