package compiler

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/partsel/internal/condition"
	"github.com/roach88/partsel/internal/ir"
)

// Known fields of a rule and of an alternative. Anything else is reported
// so that typos do not silently drop behavior.
var (
	ruleFields = map[string]bool{
		"question": true, "title": true, "always": true, "item": true,
		"item_no": true, "on_yes": true, "on_no": true, "brand": true,
		"multiplier_question": true, "counters": true, "alternatives": true,
	}
	alternativeFields = map[string]bool{
		"expr": true, "norm": true, "brand": true, "multiplier_question": true,
		"counters": true, "exports": true, "allow_multi": true,
	}
)

// CompileFile reads a CUE (or JSON) rule file and compiles its rules.
func CompileFile(path string) (*ir.RuleStore, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return CompileSource(path, src)
}

// CompileSource compiles rule source. filename is used for error positions.
func CompileSource(filename string, src []byte) (*ir.RuleStore, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileRuleStore(v)
}

// CompileRuleStore compiles the "rule" struct of a CUE value into a rule
// store. Field declaration order is the evaluation order:
//
//	rule: "main-breaker": { question: "SIEMPRE", ... }
//	rule: "backup":       { question: "HAS_BACKUP", ... }
func CompileRuleStore(v cue.Value) (*ir.RuleStore, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rulesVal := v.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return ir.NewRuleStore(), nil
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []ir.Rule
	for iter.Next() {
		rule, err := CompileRule(iter.Value())
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return ir.NewRuleStore(rules...), nil
}

// CompileRule parses a CUE value into a Rule. The rule name is the last
// path selector:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`rule: "backup": { question: "HAS_BACKUP" }`)
//	rule, err := CompileRule(v.LookupPath(cue.ParsePath(`rule."backup"`)))
func CompileRule(v cue.Value) (*ir.Rule, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rule := &ir.Rule{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		rule.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}
	field := func(name string) string { return "rule." + rule.Name + "." + name }

	if err := checkFields(v, ruleFields, "rule."+rule.Name); err != nil {
		return nil, err
	}

	questionVal := v.LookupPath(cue.ParsePath("question"))
	if !questionVal.Exists() {
		return nil, &CompileError{
			Field:   field("question"),
			Message: "question is required",
			Pos:     v.Pos(),
		}
	}

	var err error
	if rule.Question, err = questionVal.String(); err != nil {
		return nil, formatCUEError(err)
	}
	if rule.Title, err = optionalString(v, "title"); err != nil {
		return nil, err
	}
	if rule.ItemYes, err = optionalString(v, "item"); err != nil {
		return nil, err
	}
	if rule.ItemNo, err = optionalString(v, "item_no"); err != nil {
		return nil, err
	}
	if rule.Brand, err = optionalString(v, "brand"); err != nil {
		return nil, err
	}
	if rule.MultiplierQuestion, err = optionalString(v, "multiplier_question"); err != nil {
		return nil, err
	}
	if rule.Always, err = optionalBool(v, "always"); err != nil {
		return nil, err
	}
	if rule.Counters, err = parseCounters(v, field("counters")); err != nil {
		return nil, err
	}

	// Directives are parsed once here, never per evaluation.
	for _, d := range []struct {
		name string
		dst  *ir.Directive
	}{{"on_yes", &rule.OnYes}, {"on_no", &rule.OnNo}} {
		text, err := optionalString(v, d.name)
		if err != nil {
			return nil, err
		}
		if v.LookupPath(cue.ParsePath(d.name)).Exists() {
			*d.dst = condition.ParseDirective(text)
		}
	}

	rule.Alternatives, err = parseAlternatives(v, rule)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// parseAlternatives expands each alternative into one Alternative per
// "//"-separated command. A bare string is shorthand for {expr: string}.
func parseAlternatives(v cue.Value, rule *ir.Rule) ([]ir.Alternative, error) {
	altsVal := v.LookupPath(cue.ParsePath("alternatives"))
	if !altsVal.Exists() {
		return nil, nil
	}

	iter, err := altsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var alts []ir.Alternative
	for i := 0; iter.Next(); i++ {
		av := iter.Value()
		field := fmt.Sprintf("rule.%s.alternatives[%d]", rule.Name, i)

		tmpl := ir.Alternative{}
		var expr string
		if s, err := av.String(); err == nil {
			expr = s
		} else {
			if err := checkFields(av, alternativeFields, field); err != nil {
				return nil, err
			}
			exprVal := av.LookupPath(cue.ParsePath("expr"))
			if !exprVal.Exists() {
				return nil, &CompileError{Field: field + ".expr", Message: "expr is required", Pos: av.Pos()}
			}
			if expr, err = exprVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
			if tmpl, err = parseAlternativeOptions(av, field); err != nil {
				return nil, err
			}
		}

		commands := condition.SplitCommands(expr)
		if len(commands) == 0 {
			// Keep the empty command so the trace reports it as malformed.
			commands = []string{expr}
		}
		for _, cmd := range commands {
			alt := tmpl
			alt.Expr = condition.Parse(cmd)
			if alt.Expr.Multiplier.Kind == ir.MultiplierExternal {
				alt.Expr.Multiplier.Question = firstNonEmpty(alt.MultiplierQuestion, rule.MultiplierQuestion, rule.Question)
			}
			alts = append(alts, alt)
		}
	}
	return alts, nil
}

func parseAlternativeOptions(av cue.Value, field string) (ir.Alternative, error) {
	var alt ir.Alternative
	var err error

	normText, err := optionalString(av, "norm")
	if err != nil {
		return alt, err
	}
	if normText != "" {
		if alt.Norm, err = ir.ParseNorm(normText); err != nil {
			return alt, &CompileError{
				Field:   field + ".norm",
				Message: err.Error(),
				Pos:     av.LookupPath(cue.ParsePath("norm")).Pos(),
			}
		}
	}
	if alt.Brand, err = optionalString(av, "brand"); err != nil {
		return alt, err
	}
	if alt.MultiplierQuestion, err = optionalString(av, "multiplier_question"); err != nil {
		return alt, err
	}
	if alt.AllowMulti, err = optionalBool(av, "allow_multi"); err != nil {
		return alt, err
	}
	if alt.Counters, err = parseCounters(av, field+".counters"); err != nil {
		return alt, err
	}
	if alt.Exports, err = parseExports(av, field+".exports"); err != nil {
		return alt, err
	}
	return alt, nil
}

// parseCounters reads an optional {name: int} struct. Floats are rejected.
func parseCounters(v cue.Value, field string) (map[string]int64, error) {
	cv := v.LookupPath(cue.ParsePath("counters"))
	if !cv.Exists() {
		return nil, nil
	}
	iter, err := cv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	counters := make(map[string]int64)
	for iter.Next() {
		val := iter.Value()
		if val.Kind() != cue.IntKind {
			return nil, &CompileError{
				Field:   field + "." + iter.Label(),
				Message: fmt.Sprintf("counter must be an integer, got %v", val.IncompleteKind()),
				Pos:     val.Pos(),
			}
		}
		n, err := val.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		counters[iter.Label()] = n
	}
	return counters, nil
}

// parseExports reads an optional {variable: column} struct.
func parseExports(v cue.Value, field string) (map[string]string, error) {
	ev := v.LookupPath(cue.ParsePath("exports"))
	if !ev.Exists() {
		return nil, nil
	}
	iter, err := ev.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	exports := make(map[string]string)
	for iter.Next() {
		col, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field + "." + iter.Label(),
				Message: "export must name a column",
				Pos:     iter.Value().Pos(),
			}
		}
		exports[condition.Normalize(iter.Label())] = ir.ColumnKey(col)
	}
	return exports, nil
}

func checkFields(v cue.Value, known map[string]bool, field string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if !known[iter.Label()] {
			return &CompileError{
				Field:   field + "." + iter.Label(),
				Message: "unknown field",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func optionalString(v cue.Value, name string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return strings.TrimSpace(s), nil
}

func optionalBool(v cue.Value, name string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
