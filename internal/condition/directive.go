package condition

import (
	"strings"

	"github.com/roach88/partsel/internal/ir"
)

// ParseDirective converts branch directive text into a Directive.
//
//	""  "*PONE"  "KEEP"            keep the rule's default table
//	"*BORRA"  "SUPPRESS"  "DELETE" emit nothing
//	anything else                  brand name selecting the catalog table
func ParseDirective(text string) ir.Directive {
	n := Normalize(text)
	switch {
	case strings.Contains(n, "*BORRA"), n == "BORRA", n == "SUPPRESS", n == "DELETE":
		return ir.Suppress()
	case n == "", strings.Contains(n, "*PONE"), n == "PONE", n == "KEEP":
		return ir.Keep()
	}
	return ir.BrandDirective(n)
}
