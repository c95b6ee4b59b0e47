package compiler

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/partsel/internal/condition"
	"github.com/roach88/partsel/internal/ir"
)

// VariableWarning reports a placeholder that may not resolve at evaluation.
//
// These are warnings, not errors: a variable can be seeded by the caller
// (engine.WithVariables) and an unresolved placeholder only shrinks the BOM.
type VariableWarning struct {
	Variable string   `json:"variable"`
	Path     []string `json:"path"`    // ["consumer-rule"] or ["consumer-rule", "late-exporter"]
	Message  string   `json:"message"` // Human-readable description
	Level    string   `json:"level"`   // "warning" or "info"
}

// AnalyzeVariables checks that every @NAME placeholder is exported by an
// earlier rule or listed in seeded. Rules run in store order, so an export
// from a later rule cannot feed an earlier placeholder.
//
// Warnings are returned in rule order. A store without placeholders returns
// an empty list.
func AnalyzeVariables(store *ir.RuleStore, seeded ...string) []VariableWarning {
	warnings := []VariableWarning{}
	if store == nil {
		return warnings
	}

	available := make(map[string]bool, len(seeded))
	for _, s := range seeded {
		available[condition.Normalize(s)] = true
	}

	// exporters maps a variable to the rules that export it, in order.
	exporters := make(map[string][]string)
	for _, rule := range store.Rules {
		for _, alt := range rule.Alternatives {
			for name := range alt.Exports {
				v := condition.Normalize(name)
				if !slices.Contains(exporters[v], rule.Name) {
					exporters[v] = append(exporters[v], rule.Name)
				}
			}
		}
	}

	reported := make(map[string]bool)
	for _, rule := range store.Rules {
		for _, v := range placeholders(rule) {
			key := rule.Name + "\x00" + v
			if available[v] || reported[key] {
				continue
			}
			reported[key] = true

			if later := exporters[v]; len(later) > 0 {
				warnings = append(warnings, VariableWarning{
					Variable: v,
					Path:     []string{rule.Name, later[0]},
					Message:  fmt.Sprintf("rule %q reads @%s before rule %q exports it", rule.Name, v, later[0]),
					Level:    "warning",
				})
				continue
			}
			warnings = append(warnings, VariableWarning{
				Variable: v,
				Path:     []string{rule.Name},
				Message:  fmt.Sprintf("rule %q reads @%s which no rule exports; it must be seeded", rule.Name, v),
				Level:    "info",
			})
		}

		// Exports become available only after the rule has run.
		for _, alt := range rule.Alternatives {
			for name := range alt.Exports {
				available[condition.Normalize(name)] = true
			}
		}
	}
	return warnings
}

// placeholders returns the distinct placeholder names of a rule in order.
func placeholders(rule ir.Rule) []string {
	var out []string
	for _, alt := range rule.Alternatives {
		for _, c := range alt.Expr.Conditions {
			if c.Selector.Kind != ir.SelectorPlaceholder {
				continue
			}
			v := condition.Normalize(c.Selector.Value)
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
