package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/partsel/internal/ir"
)

var (
	// normTagPattern matches ["UL"] / ['IEC'] norm qualifiers.
	normTagPattern = regexp.MustCompile(`\[\s*["']([^"'\]]+)["']\s*\]`)

	// headerPattern matches a leading label such as "MARCA DE ELEMENTOS:".
	headerPattern = regexp.MustCompile(`^\p{L}[\p{L} ]*:\s*`)

	// multiplierPattern matches the "* 2" / "* #" suffix after a wrapper.
	multiplierPattern = regexp.MustCompile(`^\*\s*(#|[0-9]+)$`)

	// trailingMultiplierPattern matches a suffix multiplier on unwrapped text.
	trailingMultiplierPattern = regexp.MustCompile(`\)\s*\*\s*(#|[0-9]+)$`)

	columnPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// SplitCommands splits "//"-separated condition commands. Blank commands
// are dropped.
func SplitCommands(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "//") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Parse converts condition text into an expression.
//
// Parse never fails: malformed text produces an expression with no
// conditions and a MALFORMED_EXPRESSION diagnostic.
func Parse(text string) ir.Expression {
	expr := ir.Expression{Raw: text}

	rest := strings.TrimSpace(text)
	if rest == "" {
		return malformed(expr, "empty expression")
	}

	rest, norms := stripNormTags(rest)
	expr.Norms = norms

	// The header may sit outside the wrapper or inside it.
	rest = headerPattern.ReplaceAllString(rest, "")
	core, mult, err := splitMultiplier(rest)
	if err != nil {
		return malformed(expr, err.Error())
	}
	expr.Multiplier = mult

	core = headerPattern.ReplaceAllString(core, "")

	body, cols, hasCols := cutOutsideQuotes(core, '=')
	if hasCols {
		columns, err := parseColumns(cols)
		if err != nil {
			return malformed(expr, err.Error())
		}
		expr.Columns = columns
	}

	conds, err := parseTerms(body)
	if err != nil {
		return malformed(expr, err.Error())
	}
	if len(conds) == 0 {
		return malformed(expr, "no conditions")
	}
	expr.Conditions = conds
	return expr
}

func malformed(expr ir.Expression, msg string) ir.Expression {
	expr.Conditions = nil
	expr.Columns = nil
	expr.Diagnostics = append(expr.Diagnostics, ir.Diagnostic{
		Code:    ir.DiagMalformedExpression,
		Message: fmt.Sprintf("%s in %q", msg, expr.Raw),
	})
	return expr
}

// stripNormTags removes norm qualifiers and returns the recognized norms in
// order of appearance. Unknown tag values are dropped.
func stripNormTags(s string) (string, []ir.Norm) {
	var norms []ir.Norm
	clean := normTagPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := normTagPattern.FindStringSubmatch(m)
		switch strings.ToUpper(strings.TrimSpace(sub[1])) {
		case "UL":
			norms = append(norms, ir.NormUL)
		case "IEC":
			norms = append(norms, ir.NormIEC)
		}
		return " "
	})
	return strings.Join(strings.Fields(clean), " "), norms
}

// splitMultiplier separates an optional "( ... ) * n" wrapper. Without a
// wrapper a trailing "* n" directly after the last term is accepted too.
func splitMultiplier(s string) (string, ir.MultiplierSpec, error) {
	if strings.HasPrefix(s, "(") {
		end, ok := matchingParen(s, 0)
		if !ok {
			return "", ir.MultiplierSpec{}, fmt.Errorf("unbalanced parentheses")
		}
		tail := strings.TrimSpace(s[end+1:])
		if tail == "" {
			return strings.TrimSpace(s[1:end]), ir.MultiplierSpec{}, nil
		}
		if m := multiplierPattern.FindStringSubmatch(tail); m != nil {
			spec, err := multiplierSpec(m[1])
			return strings.TrimSpace(s[1:end]), spec, err
		}
		// "(" opened a term list such as "(A(x)) B(y)": not a wrapper.
	}
	if loc := trailingMultiplierPattern.FindStringSubmatchIndex(s); loc != nil {
		spec, err := multiplierSpec(s[loc[2]:loc[3]])
		return strings.TrimSpace(s[:loc[0]+1]), spec, err
	}
	return s, ir.MultiplierSpec{}, nil
}

func multiplierSpec(tok string) (ir.MultiplierSpec, error) {
	if tok == "#" {
		return ir.MultiplierSpec{Kind: ir.MultiplierExternal}, nil
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return ir.MultiplierSpec{}, fmt.Errorf("invalid multiplier %q", tok)
	}
	return ir.MultiplierSpec{Kind: ir.MultiplierFixed, Fixed: n}, nil
}

// matchingParen returns the index of the ")" closing the "(" at open,
// skipping quoted text.
func matchingParen(s string, open int) (int, bool) {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// cutOutsideQuotes is strings.Cut that ignores sep inside quoted text.
func cutOutsideQuotes(s string, sep byte) (before, after string, found bool) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == sep:
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func parseColumns(s string) ([]string, error) {
	var cols []string
	for _, part := range strings.Split(s, ",") {
		c := ir.ColumnKey(part)
		if c == "" {
			continue
		}
		if !columnPattern.MatchString(c) {
			return nil, fmt.Errorf("invalid column %q", strings.TrimSpace(part))
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("empty column list")
	}
	return cols, nil
}

// parseTerms scans ATTR(selector) terms. Anything else is an error.
func parseTerms(s string) ([]ir.Condition, error) {
	var conds []ir.Condition
	i := 0
	for {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			return conds, nil
		}

		start := i
		for i < len(s) && isAttrByte(s[i], i == start) {
			i++
		}
		if i == start {
			return nil, fmt.Errorf("unexpected %q at offset %d", s[i:i+1], i)
		}
		attr := ir.ColumnKey(s[start:i])

		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) || s[i] != '(' {
			return nil, fmt.Errorf("missing '(' after %s", attr)
		}
		i++

		sel, next, err := scanSelector(s, i)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", attr, err)
		}
		i = next
		conds = append(conds, ir.Condition{Attribute: attr, Selector: sel})
	}
}

// scanSelector reads a selector starting after "(" and returns the index
// just past the closing ")".
func scanSelector(s string, i int) (ir.Selector, int, error) {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i >= len(s) {
		return ir.Selector{}, 0, fmt.Errorf("unterminated term")
	}

	var raw string
	quoted := false
	if q := s[i]; q == '"' || q == '\'' {
		end := strings.IndexByte(s[i+1:], q)
		if end < 0 {
			return ir.Selector{}, 0, fmt.Errorf("unterminated quote")
		}
		raw = s[i+1 : i+1+end]
		quoted = true
		i += end + 2
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) || s[i] != ')' {
			return ir.Selector{}, 0, fmt.Errorf("expected ')' after quoted selector")
		}
	} else {
		end := strings.IndexAny(s[i:], "()")
		if end < 0 || s[i+end] != ')' {
			return ir.Selector{}, 0, fmt.Errorf("unterminated term")
		}
		raw = strings.TrimSpace(s[i : i+end])
		i += end
	}

	sel, err := classifySelector(raw, quoted)
	return sel, i + 1, err
}

func classifySelector(raw string, quoted bool) (ir.Selector, error) {
	n := Normalize(raw)
	switch {
	case n == "*":
		return ir.Selector{Kind: ir.SelectorWildcard}, nil
	case n == "UL" || n == "IEC":
		return ir.Selector{Kind: ir.SelectorNorm}, nil
	case strings.HasPrefix(n, "@") && !quoted:
		name := strings.TrimSpace(n[1:])
		if name == "" {
			return ir.Selector{}, fmt.Errorf("empty placeholder name")
		}
		return ir.Selector{Kind: ir.SelectorPlaceholder, Value: name}, nil
	case strings.HasSuffix(n, ":") && len(n) > 1:
		return ir.Selector{Kind: ir.SelectorAnswer, Value: strings.TrimSpace(strings.TrimSuffix(n, ":"))}, nil
	case raw == "" && !quoted:
		return ir.Selector{}, fmt.Errorf("empty selector")
	default:
		return ir.Selector{Kind: ir.SelectorLiteral, Value: raw}, nil
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isAttrByte(c byte, first bool) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c == '_':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}
