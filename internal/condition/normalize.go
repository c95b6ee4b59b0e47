package condition

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// numericPattern accepts a number with an optional unit suffix:
// "125", "220V", "2,5 KA", "0.75 MM2".
var numericPattern = regexp.MustCompile(`^[0-9]+(?:[.,][0-9]+)?\s*[A-Z%]*[0-9]?$`)

// Normalize upper-cases s, strips accents and collapses whitespace.
// "  Tensión   control " becomes "TENSION CONTROL".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(stripped)), " ")
}

// Digits returns the ASCII digits of s in order.
func Digits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// IsNumeric reports whether s reads as a number with an optional unit.
func IsNumeric(s string) bool {
	return numericPattern.MatchString(Normalize(s))
}

// CompareDigits compares two digit strings as unbounded non-negative
// integers. It returns -1, 0 or +1.
func CompareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return strings.Compare(a, b)
}
