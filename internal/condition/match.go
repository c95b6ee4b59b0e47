package condition

import (
	"fmt"
	"strings"

	"github.com/roach88/partsel/internal/ir"
)

// NumericAnswers resolves numeric project answers for answer-reference
// selectors such as "TENSION CONTROL:".
type NumericAnswers interface {
	Numeric(question string) (int64, bool)
}

// Env is the per-evaluation state a match reads.
type Env struct {
	// Norm is the project's active norm.
	Norm ir.Norm

	// Variables holds dynamic variables keyed by normalized name.
	Variables map[string]string

	// Answers resolves answer-reference selectors. May be nil.
	Answers NumericAnswers

	// Table is the name of the table being scanned. Brand conditions on
	// rows without a brand column compare against it.
	Table string
}

// Result is the outcome of matching one expression against one table.
type Result struct {
	// Rows holds the indices of matching rows in catalog order.
	Rows []int

	// Placeholder is set when the expression used a placeholder and a row
	// matched. The caller must not try further alternatives of the rule.
	Placeholder bool

	Diagnostics []ir.Diagnostic
}

// Matched reports whether at least one row matched.
func (r Result) Matched() bool { return len(r.Rows) > 0 }

// Match scans rows in order and returns the rows satisfying every condition
// of expr. Only the first hit is returned unless multi is set; a placeholder
// expression always stops at the first hit.
func Match(rows []ir.CatalogRow, expr ir.Expression, env Env, multi bool) Result {
	var res Result
	if len(expr.Conditions) == 0 {
		return res
	}

	placeholder := expr.HasPlaceholder()
	if placeholder {
		multi = false
		for _, c := range expr.Conditions {
			if c.Selector.Kind != ir.SelectorPlaceholder {
				continue
			}
			if _, ok := env.Variables[Normalize(c.Selector.Value)]; !ok {
				res.Diagnostics = append(res.Diagnostics, ir.Diagnostic{
					Code:    ir.DiagUnresolvedPlaceholder,
					Message: fmt.Sprintf("variable @%s is not set", c.Selector.Value),
				})
			}
		}
		if len(res.Diagnostics) > 0 {
			return res
		}
	}

	for i, row := range rows {
		if !RowMatches(row, expr.Conditions, env) {
			continue
		}
		res.Rows = append(res.Rows, i)
		if !multi {
			break
		}
	}
	res.Placeholder = placeholder && res.Matched()
	return res
}

// RowMatches reports whether row satisfies every condition.
func RowMatches(row ir.CatalogRow, conds []ir.Condition, env Env) bool {
	for _, c := range conds {
		cell := row.Get(c.Attribute)
		if ir.BrandAttributes[c.Attribute] && !row.Has(c.Attribute) {
			cell = env.Table
		}
		if !conditionMatches(cell, c.Selector, env) {
			return false
		}
	}
	return true
}

func conditionMatches(cell string, sel ir.Selector, env Env) bool {
	cell = strings.TrimSpace(cell)

	switch sel.Kind {
	case ir.SelectorWildcard:
		return true
	case ir.SelectorNorm:
		return normMatches(cell, env.Norm)
	}

	if cell == "*" {
		return true
	}

	switch sel.Kind {
	case ir.SelectorPlaceholder:
		v, ok := env.Variables[Normalize(sel.Value)]
		if !ok {
			return false
		}
		vd, cd := Digits(v), Digits(cell)
		if vd != "" {
			return cd != "" && CompareDigits(cd, vd) >= 0
		}
		return Normalize(cell) == Normalize(v)

	case ir.SelectorAnswer:
		if env.Answers == nil {
			return false
		}
		n, ok := env.Answers.Numeric(sel.Value)
		if !ok {
			return false
		}
		cd := Digits(cell)
		return cd != "" && CompareDigits(cd, Digits(fmt.Sprint(n))) == 0

	default:
		return literalMatches(cell, sel.Value)
	}
}

// literalMatches compares digits when both sides are numeric and
// normalized text otherwise.
func literalMatches(cell, want string) bool {
	if IsNumeric(cell) && IsNumeric(want) {
		return CompareDigits(Digits(cell), Digits(want)) == 0
	}
	return Normalize(cell) == Normalize(want)
}

// normMatches checks a certification cell against the active norm.
// SI/NO cells mean "UL listed" / "IEC only"; other cells must name the norm.
// Empty and "*" cells never match.
func normMatches(cell string, active ir.Norm) bool {
	if active == "" {
		active = ir.NormIEC
	}
	c := Normalize(cell)
	switch c {
	case "", "*":
		return false
	case "SI":
		return active == ir.NormUL
	case "NO":
		return active == ir.NormIEC
	}
	if active == ir.NormUL {
		return strings.Contains(c, "UL")
	}
	return strings.Contains(c, "IEC")
}
