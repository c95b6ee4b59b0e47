// Package condition implements the condition micro-language used by rule
// alternatives: parsing condition text into an ir.Expression, matching the
// expression against the ordered rows of one catalog table, and parsing the
// per-branch directive text of a rule.
//
// # Expression Grammar
//
// An expression is a sequence of ATTR(selector) terms joined by implicit AND,
// optionally followed by norm tags and a column list, and optionally wrapped
// in parentheses with a multiplier suffix:
//
//	(MARCA DE ELEMENTOS: A("B") D(@BREAKER_A) ["UL"] = B,C,H) * #
//
// Selectors:
//
//	"text" / 'text' / text   literal, compared after normalization
//	*                         wildcard, matches every cell (even empty)
//	@NAME                     placeholder, cell >= dynamic variable NAME
//	UL / IEC                  norm match against the active norm
//	TENSION CONTROL:          answer reference, cell digits == answer digits
//
// The multiplier suffix is either an integer (fixed copies) or # (resolved
// from a numeric project answer by the engine).
//
// # Failure Mode
//
// Parse never fails. Text it cannot understand yields an expression with no
// conditions and a MALFORMED_EXPRESSION diagnostic, which Match treats as
// "no rows". The engine reports the diagnostic in its trace.
//
// # Scan Order
//
// Match scans rows in catalog order and returns the first hit, or every hit
// for allow-multi alternatives. When any condition is a placeholder the scan
// stops at the first hit regardless of allow-multi and Result.Placeholder is
// set so the engine can skip the rule's remaining alternatives.
package condition
