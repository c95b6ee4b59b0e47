package harness

import (
	"github.com/roach88/partsel/internal/engine"
	"github.com/roach88/partsel/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// BOM, Totals and Trace are the engine output.
	BOM    []ir.OutputRow  `json:"bom"`
	Totals ir.Totals       `json:"totals"`
	Trace  []ir.TraceEntry `json:"trace"`

	// Digest is the result digest of BOM and Totals.
	Digest string `json:"digest"`
}

// NewResult creates a passing result from an engine result.
func NewResult(res *engine.Result) (*Result, error) {
	digest, err := res.Digest()
	if err != nil {
		return nil, err
	}
	return &Result{
		Pass:   true,
		Errors: []string{},
		BOM:    res.BOM,
		Totals: res.Totals,
		Trace:  res.Trace,
		Digest: digest,
	}, nil
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// TraceFor returns the trace entry of the named rule.
func (r *Result) TraceFor(rule string) (ir.TraceEntry, bool) {
	for _, e := range r.Trace {
		if e.Rule == rule {
			return e, true
		}
	}
	return ir.TraceEntry{}, false
}
