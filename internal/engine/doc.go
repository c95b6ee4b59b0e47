// Package engine implements the partsel rule evaluation engine.
//
// The engine takes an ordered rule store, a catalog provider and a project
// answer set and produces a bill of materials, counter totals and a trace:
//
//	res, err := engine.New(engine.WithBaseBrand("ABB")).Evaluate(store, catalog, answers)
//
// EVALUATION FLOW (per rule, in store order):
//
//  1. Decide: "always" rules are yes; otherwise the answer set decides.
//     An absent answer takes the no branch.
//  2. Branch: the branch directive either suppresses the rule, keeps the
//     default table, or substitutes a brand table.
//  3. Norm filter: alternatives tagged with the active norm win; untagged
//     alternatives are the fallback; otherwise the rule contributes nothing.
//  4. Per alternative: resolve the multiplier (0 skips the alternative),
//     scan the table fallback chain for matching rows, emit one BOM row per
//     copy, add counters times the multiplier, export dynamic variables.
//
// DETERMINISM:
// Rules are evaluated in declaration order and catalog rows in provider
// order. No randomness, no concurrency, no wall clock. All per-call state
// lives in an EvaluationContext, so identical inputs always produce an
// identical Result.
//
// FAILURE MODEL:
// Only contract violations (nil store, catalog or answers) return an error.
// Data problems become diagnostics on the rule's trace entry and are logged
// at warn level; the visible effect is a smaller BOM.
package engine
