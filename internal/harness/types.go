package harness

import "strings"

// Transforms are the transform functions a scenario can install in the
// sandbox, by name.
var Transforms = map[string]any{
	"normalize": strings.ToLower,
	"shout":     strings.ToUpper,
	"strip":     strings.TrimSpace,
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// SQL is the lowered statement, empty when building or lowering failed.
	SQL string `json:"sql,omitempty"`

	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`

	// Err is the error the plan raised, if any.
	Err error `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Summary joins the validation errors.
func (r *Result) Summary() string {
	return strings.Join(r.Errors, "\n")
}
