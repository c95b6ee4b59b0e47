package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/partsel/internal/condition"
	"github.com/roach88/partsel/internal/ir"
)

// AnswerSet is the project's answers to rule questions.
type AnswerSet interface {
	// Boolean resolves a yes/no question.
	Boolean(question string) ir.Decision

	// Numeric resolves a numeric question. ok is false when the question
	// is unanswered or its answer is not a number.
	Numeric(question string) (value int64, ok bool)

	// SelectedNorm returns the project's active norm.
	SelectedNorm() ir.Norm
}

// RawAnswers is implemented by answer sets that can expose the raw answer
// text. The engine uses it to tell a non-numeric answer from a missing one.
type RawAnswers interface {
	Raw(question string) (string, bool)
}

// Questions that are always answered yes.
var alwaysQuestions = map[string]bool{
	"SIEMPRE": true,
	"ALWAYS":  true,
}

var (
	yesValues = map[string]bool{"SI": true, "S": true, "YES": true, "Y": true, "TRUE": true, "1": true, "X": true}
	noValues  = map[string]bool{"NO": true, "N": true, "FALSE": true, "0": true}

	// integerPattern accepts "3", "-2", "3.0" and "3,5"; the fraction is
	// truncated.
	integerPattern = regexp.MustCompile(`^([+-]?[0-9]+)(?:[.,][0-9]*)?$`)
)

// Question keys that select the norm explicitly.
var normQuestions = []string{"NORM", "NORMA", "NORMA APLICABLE"}

// MapAnswers is an AnswerSet backed by a map of question to answer text.
// Question lookups are normalized (case, accents, whitespace).
type MapAnswers struct {
	values map[string]string
}

// NewMapAnswers builds answers from loosely typed values as decoded from
// YAML or JSON. Strings, booleans and integers are accepted; floats are
// formatted without exponent so numeric answers survive decoding; nil values
// are treated as unanswered.
func NewMapAnswers(values map[string]any) *MapAnswers {
	a := &MapAnswers{values: make(map[string]string, len(values))}
	for k, v := range values {
		if v == nil {
			continue
		}
		a.values[condition.Normalize(k)] = answerText(v)
	}
	return a
}

func answerText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// Raw returns the trimmed answer text.
func (a *MapAnswers) Raw(question string) (string, bool) {
	v, ok := a.values[condition.Normalize(question)]
	return v, ok
}

// Boolean implements AnswerSet. Numeric answers above zero count as yes;
// unrecognized text counts as no.
func (a *MapAnswers) Boolean(question string) ir.Decision {
	raw, ok := a.Raw(question)
	if !ok || raw == "" {
		return ir.DecisionAbsent
	}
	v := condition.Normalize(raw)
	switch {
	case yesValues[v]:
		return ir.DecisionYes
	case noValues[v]:
		return ir.DecisionNo
	}
	if n, ok := parseInteger(v); ok && n > 0 {
		return ir.DecisionYes
	}
	return ir.DecisionNo
}

// Numeric implements AnswerSet.
func (a *MapAnswers) Numeric(question string) (int64, bool) {
	raw, ok := a.Raw(question)
	if !ok {
		return 0, false
	}
	return parseInteger(raw)
}

// SelectedNorm implements AnswerSet: an explicit norm answer wins, then a
// yes to the "UL" question selects UL, otherwise IEC.
func (a *MapAnswers) SelectedNorm() ir.Norm {
	for _, q := range normQuestions {
		if raw, ok := a.Raw(q); ok && raw != "" {
			if n, err := ir.ParseNorm(raw); err == nil {
				return n
			}
		}
	}
	if a.Boolean("UL") == ir.DecisionYes {
		return ir.NormUL
	}
	return ir.NormIEC
}

// Len returns the number of answered questions.
func (a *MapAnswers) Len() int { return len(a.values) }

// Map returns a copy of the normalized answers.
func (a *MapAnswers) Map() map[string]string {
	cp := make(map[string]string, len(a.values))
	for k, v := range a.values {
		cp[k] = v
	}
	return cp
}

// isBooleanText reports whether s is one of the recognized yes/no tokens.
func isBooleanText(s string) bool {
	v := condition.Normalize(s)
	return yesValues[v] || noValues[v]
}

func parseInteger(s string) (int64, bool) {
	m := integerPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// decide resolves the branch decision for a rule.
func decide(rule ir.Rule, answers AnswerSet) ir.Decision {
	if rule.Always || alwaysQuestions[condition.Normalize(rule.Question)] {
		return ir.DecisionYes
	}
	return answers.Boolean(rule.Question)
}
