package harness

// Step kinds.
const (
	KindEval   = "eval"
	KindDefine = "define"
	KindWrite  = "write"
)

// Step outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// TraceEvent records what one step did.
type TraceEvent struct {
	Step   int         `json:"step"`
	Kind   string      `json:"kind"`
	Source string      `json:"source"`
	Wd     string      `json:"wd,omitempty"`
	Type   string      `json:"type,omitempty"`
	Result any         `json:"result,omitempty"`
	Error  *TraceError `json:"error,omitempty"`
}

// Outcome is OutcomeError when the step failed, OutcomeOK otherwise.
func (e TraceEvent) Outcome() string {
	if e.Error != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// TraceError is the data of a failed step's diagnostic.
type TraceError struct {
	Category   string   `json:"category"`
	Code       string   `json:"code"`
	Desc       string   `json:"desc"`
	Underlines []string `json:"underlines,omitempty"`
	Help       string   `json:"help,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
