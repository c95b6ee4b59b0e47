package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/partsel/internal/condition"
	"github.com/roach88/partsel/internal/ir"
)

func TestSelectBranch(t *testing.T) {
	rule := ir.Rule{ItemYes: "YES #", OnNo: ir.BrandDirective("ABB")}

	yes := selectBranch(rule, ir.DecisionYes)
	assert.True(t, yes.yes)
	assert.Equal(t, ir.Keep(), yes.directive)
	assert.Equal(t, "YES #", yes.item)

	no := selectBranch(rule, ir.DecisionNo)
	assert.False(t, no.yes)
	assert.Equal(t, ir.BrandDirective("ABB"), no.directive)

	assert.Equal(t, ir.Suppress(), selectBranch(ir.Rule{}, ir.DecisionAbsent).directive)
	assert.Equal(t, ir.Keep(), selectBranch(ir.Rule{ItemNo: "N"}, ir.DecisionNo).directive)
}

func TestTableChain(t *testing.T) {
	alt := ir.Alternative{Expr: condition.Parse(`BRAND("ACME") A(X)`)}
	rule := ir.Rule{Brand: "RITTAL"}

	tests := []struct {
		name string
		alt  ir.Alternative
		dir  ir.Directive
		rule ir.Rule
		base string
		want []string
	}{
		{"alternative brand first", ir.Alternative{Brand: "SCHNEIDER"}, ir.BrandDirective("ABB"), rule, "GENERICO", []string{"SCHNEIDER", "GENERICO"}},
		{"branch brand", ir.Alternative{}, ir.BrandDirective("ABB"), rule, "GENERICO", []string{"ABB", "GENERICO"}},
		{"rule brand", ir.Alternative{}, ir.Keep(), rule, "GENERICO", []string{"RITTAL", "GENERICO"}},
		{"expression brand", alt, ir.Keep(), ir.Rule{}, "GENERICO", []string{"ACME", "GENERICO"}},
		{"base only", ir.Alternative{}, ir.Keep(), ir.Rule{}, "GENERICO", []string{"GENERICO"}},
		{"duplicate dropped", ir.Alternative{Brand: "abb"}, ir.Keep(), ir.Rule{}, "ABB", []string{"abb"}},
		{"nothing", ir.Alternative{}, ir.Keep(), ir.Rule{}, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tableChain(tt.alt, tt.dir, tt.rule, tt.base))
		})
	}
}
