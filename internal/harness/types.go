package harness

import "github.com/roach88/sanitizr/internal/record"

// StepTrace is the observable outcome of one step.
type StepTrace struct {
	Index     int
	Op        string
	Type      string
	UserClass string

	// Output is nil when the op failed.
	Output record.Value

	// Error is the error code, or the message for errors without one.
	Error string
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expectation and check matched.
	Pass bool

	// Trace has one entry per step, in order.
	Trace []StepTrace

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step outcome to the trace.
func (r *Result) AddStep(step StepTrace) {
	r.Trace = append(r.Trace, step)
}
