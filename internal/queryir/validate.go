package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/partsel/internal/ir"
)

// ValidationError describes one problem with a query.
type ValidationError struct {
	Path    string // e.g. "filter.and[1].column"
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks a Select before it is compiled. It returns every problem
// found; an empty result means any backend can compile the query.
//
// Validate is a pure function with no side effects.
func Validate(sel Select) []ValidationError {
	v := &validator{}
	if sel.Limit < 0 {
		v.add("limit", "limit %d is negative", sel.Limit)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter, "filter")
	}
	return v.errs
}

// validator accumulates errors during traversal.
type validator struct {
	errs []ValidationError
}

func (v *validator) add(path, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) validatePredicate(p Predicate, path string) {
	switch pred := p.(type) {
	case Equals:
		v.validateColumn(pred.Column, path)
	case *Equals:
		v.validateColumn(pred.Column, path)
	case Contains:
		v.validateColumn(pred.Column, path)
		if strings.TrimSpace(pred.Value) == "" {
			v.add(path+".value", "contains needs a value")
		}
	case *Contains:
		v.validatePredicate(*pred, path)
	case And:
		for i, sub := range pred.Predicates {
			v.validatePredicate(sub, fmt.Sprintf("%s.and[%d]", path, i))
		}
	case *And:
		v.validatePredicate(*pred, path)
	case nil:
		v.add(path, "nil predicate")
	default:
		v.add(path, "unsupported predicate type %T", p)
	}
}

func (v *validator) validateColumn(column, path string) {
	if ir.ColumnKey(column) == "" {
		v.add(path+".column", "column is required")
	}
}
