package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/partsel/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrNilRuleStore = "E200" // rule store is nil

	// Rule errors (E201-E209)
	ErrRuleNameEmpty     = "E201" // rule name is required
	ErrDuplicateRuleName = "E202" // rule names must be unique
	ErrQuestionEmpty     = "E203" // question is required unless always is set
	ErrNegativeCounter   = "E204" // counter deltas must be >= 0
	ErrEmptyItemMask     = "E205" // item mask is blank after trimming

	// Alternative errors (E210-E219)
	ErrMalformedExpression = "E210" // condition text does not parse
	ErrInvalidNorm         = "E211" // norm tag is not UL or IEC
	ErrInvalidExport       = "E212" // export names no column
	ErrNegativeMultiplier  = "E213" // fixed multiplier below zero
)

// ValidationError represents a rule store validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled rule store.
// Returns all errors found (does not fail-fast).
//
// Validation is stricter than evaluation: the engine degrades malformed
// expressions to "no match", Validate reports them so authors can fix them.
func Validate(store *ir.RuleStore) []ValidationError {
	if store == nil {
		return []ValidationError{{
			Field:   "rules",
			Message: "rule store is nil",
			Code:    ErrNilRuleStore,
		}}
	}

	var errs []ValidationError
	names := make(map[string]bool, store.Len())
	for i, rule := range store.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if rule.Name != "" {
			field = "rule." + rule.Name
		}

		// E201/E202: names identify trace entries and BOM provenance
		if strings.TrimSpace(rule.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "rule name is required",
				Code:    ErrRuleNameEmpty,
			})
		} else if names[rule.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate rule name: %q", rule.Name),
				Code:    ErrDuplicateRuleName,
			})
		}
		names[rule.Name] = true

		// E203: question is required
		if !rule.Always && strings.TrimSpace(rule.Question) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".question",
				Message: "question is required unless always is set",
				Code:    ErrQuestionEmpty,
			})
		}

		// E205: a blank mask would emit rows with no item
		for _, m := range []struct{ name, mask string }{{"item", rule.ItemYes}, {"item_no", rule.ItemNo}} {
			if m.mask != "" && strings.TrimSpace(m.mask) == "" {
				errs = append(errs, ValidationError{
					Field:   field + "." + m.name,
					Message: "item mask is blank",
					Code:    ErrEmptyItemMask,
				})
			}
		}

		errs = append(errs, validateCounters(rule.Counters, field+".counters")...)

		for j, alt := range rule.Alternatives {
			errs = append(errs, validateAlternative(alt, fmt.Sprintf("%s.alternatives[%d]", field, j))...)
		}
	}
	return errs
}

func validateAlternative(alt ir.Alternative, field string) []ValidationError {
	var errs []ValidationError

	// E210: malformed expression
	for _, d := range alt.Expr.Diagnostics {
		if d.Code == ir.DiagMalformedExpression {
			errs = append(errs, ValidationError{
				Field:   field + ".expr",
				Message: d.Message,
				Code:    ErrMalformedExpression,
			})
		}
	}

	// E211: norm tag
	if alt.Norm != "" && alt.Norm != ir.NormUL && alt.Norm != ir.NormIEC {
		errs = append(errs, ValidationError{
			Field:   field + ".norm",
			Message: fmt.Sprintf("invalid norm %q, must be \"UL\" or \"IEC\"", alt.Norm),
			Code:    ErrInvalidNorm,
		})
	}

	// E213: fixed multiplier
	if m := alt.Expr.Multiplier; m.Kind == ir.MultiplierFixed && m.Fixed < 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".expr",
			Message: fmt.Sprintf("fixed multiplier %d is negative", m.Fixed),
			Code:    ErrNegativeMultiplier,
		})
	}

	// E212: exports
	for name, col := range alt.Exports {
		if strings.TrimSpace(col) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".exports." + name,
				Message: "export must name a column",
				Code:    ErrInvalidExport,
			})
		}
	}

	errs = append(errs, validateCounters(alt.Counters, field+".counters")...)
	return errs
}

// validateCounters reports negative deltas (E204). Totals only grow.
func validateCounters(counters map[string]int64, field string) []ValidationError {
	var errs []ValidationError
	for _, name := range sortedKeys(counters) {
		if counters[name] < 0 {
			errs = append(errs, ValidationError{
				Field:   field + "." + name,
				Message: fmt.Sprintf("counter delta %d is negative", counters[name]),
				Code:    ErrNegativeCounter,
			})
		}
	}
	return errs
}
