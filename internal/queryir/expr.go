package queryir

import (
	"fmt"

	"github.com/roach88/partsel/internal/ir"
)

// FromExpression builds a Select from the literal conditions of a parsed
// condition expression, so a rule's lookup can be reproduced against the
// stored catalog.
//
// Wildcards add no predicate. Placeholder, norm and answer selectors
// depend on evaluation state and are rejected, as are malformed
// expressions.
func FromExpression(table string, expr ir.Expression) (Select, error) {
	if expr.Malformed() {
		return Select{}, fmt.Errorf("expression %q is malformed", expr.Raw)
	}

	var preds []Predicate
	for _, c := range expr.Conditions {
		switch c.Selector.Kind {
		case ir.SelectorLiteral:
			preds = append(preds, Equals{Column: c.Attribute, Value: c.Selector.Value})
		case ir.SelectorWildcard:
		default:
			return Select{}, fmt.Errorf("condition %s(%s) needs evaluation state", c.Attribute, c.Selector)
		}
	}

	sel := Select{Table: table}
	if len(preds) > 0 {
		sel.Filter = And{Predicates: preds}
	}
	return sel, nil
}
