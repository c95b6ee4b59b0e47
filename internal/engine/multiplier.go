package engine

import (
	"fmt"

	"github.com/roach88/partsel/internal/ir"
)

// resolveMultiplier returns how many copies an alternative emits.
//
//   - none: 1
//   - fixed n: max(1, n)
//   - external: the numeric answer clamped to >= 0; 1 when unanswered;
//     1 plus an AMBIGUOUS_MULTIPLIER diagnostic when the answer is not a number
//
// A yes/no answer to the rule's own question is not ambiguous: the rule was
// asked whether, not how many, so the alternative emits one copy.
//
// The external question is the first non-empty of the multiplier's own question, the
// alternative's multiplier question, the rule's multiplier question and the
// rule's own question.
func resolveMultiplier(rule ir.Rule, alt ir.Alternative, answers AnswerSet) (int64, []ir.Diagnostic) {
	spec := alt.Expr.Multiplier
	switch spec.Kind {
	case ir.MultiplierFixed:
		return max(1, spec.Fixed), nil
	case ir.MultiplierExternal:
	default:
		return 1, nil
	}

	q := firstNonEmpty(spec.Question, alt.MultiplierQuestion, rule.MultiplierQuestion, rule.Question)
	if n, ok := answers.Numeric(q); ok {
		return max(0, n), nil
	}

	if raw, ok := answers.(RawAnswers); ok {
		if text, present := raw.Raw(q); present && text != "" {
			if q == rule.Question && isBooleanText(text) {
				return 1, nil
			}
			return 1, []ir.Diagnostic{{
				Code:    ir.DiagAmbiguousMultiplier,
				Message: fmt.Sprintf("answer to %q is not a number: %q", q, text),
			}}
		}
	}
	return 1, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
