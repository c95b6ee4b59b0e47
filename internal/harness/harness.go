package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/partsel/internal/catalog"
	"github.com/roach88/partsel/internal/compiler"
	"github.com/roach88/partsel/internal/engine"
	"github.com/roach88/partsel/internal/ir"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the rule files into one store
//  2. Load the catalog
//  3. Evaluate with the scenario's answers, base brand and variables
//  4. Check validation (strict scenarios only) and assertions
//
// Errors are returned only when the scenario cannot be executed; failed
// assertions are reported in the result.
//
// Engine logs are discarded unless opts supply a logger.
func Run(scenario *Scenario, opts ...engine.EngineOption) (*Result, error) {
	rules, err := LoadRules(scenario.Rules...)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(scenario.Catalog, scenario.CatalogPattern)
	if err != nil {
		return nil, err
	}

	engOpts := []engine.EngineOption{
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithBaseBrand(scenario.BaseBrand),
		engine.WithVariables(scenario.Variables),
	}
	eng := engine.New(append(engOpts, opts...)...)

	res, err := eng.Evaluate(rules, cat, engine.NewMapAnswers(scenario.Answers))
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", scenario.Name, err)
	}

	result, err := NewResult(res)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", scenario.Name, err)
	}

	if scenario.Strict {
		for _, verr := range compiler.Validate(rules) {
			result.AddError(verr.Error())
		}
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// LoadRules compiles rule files in order into one store. Rule names must
// be unique across files; later duplicates are an error.
func LoadRules(paths ...string) (*ir.RuleStore, error) {
	var rules []ir.Rule
	seen := make(map[string]string)
	for _, p := range paths {
		store, err := compiler.CompileFile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", p, err)
		}
		for _, r := range store.Rules {
			if prev, dup := seen[r.Name]; dup {
				return nil, fmt.Errorf("rule %q defined in %s and %s", r.Name, prev, p)
			}
			seen[r.Name] = p
			rules = append(rules, r)
		}
	}
	return ir.NewRuleStore(rules...), nil
}
