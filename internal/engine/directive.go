package engine

import (
	"github.com/roach88/partsel/internal/condition"
	"github.com/roach88/partsel/internal/ir"
)

// branch is the resolved yes/no path of a rule.
type branch struct {
	yes       bool
	directive ir.Directive
	item      string
}

// selectBranch picks the branch for a decision. An absent answer takes the
// no branch. A zero-value directive defaults to keep on the yes branch; on
// the no branch it defaults to keep when the rule has a no item mask and to
// suppress otherwise.
func selectBranch(rule ir.Rule, d ir.Decision) branch {
	if d == ir.DecisionYes {
		dir := rule.OnYes
		if dir.Kind == "" {
			dir = ir.Keep()
		}
		return branch{yes: true, directive: dir, item: rule.ItemYes}
	}
	dir := rule.OnNo
	if dir.Kind == "" {
		dir = ir.Suppress()
		if rule.ItemNo != "" {
			dir = ir.Keep()
		}
	}
	return branch{directive: dir, item: rule.ItemNo}
}

// tableChain lists the catalog tables to try for an alternative, most
// specific first: the alternative's brand, else the branch brand, else the
// rule brand, else a BRAND("...") condition of the expression, then the
// base brand as fallback. Duplicates are dropped.
func tableChain(alt ir.Alternative, dir ir.Directive, rule ir.Rule, base string) []string {
	first := alt.Brand
	if first == "" && dir.Kind == ir.DirectiveBrand {
		first = dir.Brand
	}
	if first == "" {
		first = rule.Brand
	}
	if first == "" {
		first = alt.Expr.BrandHint()
	}

	var chain []string
	seen := make(map[string]bool, 2)
	for _, t := range []string{first, base} {
		key := condition.Normalize(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		chain = append(chain, t)
	}
	return chain
}
