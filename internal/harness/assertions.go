package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/partsel/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the BOM to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	BOM      []ir.OutputRow // Full BOM for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.BOM) > 0 {
		fmt.Fprintf(&buf, "\nFull BOM:\n")
		for i, row := range e.BOM {
			fmt.Fprintf(&buf, "  [%d] %s %s %s x%d (%s#%d)\n",
				i+1, row.Item, row.Code, row.Model, row.Quantity, row.Rule, row.Alternative)
		}
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertBOMContains:
			err = assertBOMContains(result.BOM, a)
		case AssertBOMAbsent:
			err = assertBOMAbsent(result.BOM, a)
		case AssertBOMCount:
			err = assertBOMCount(result.BOM, a)
		case AssertBOMOrder:
			err = assertBOMOrder(result.BOM, a)
		case AssertTotals:
			err = assertTotals(result.Totals, a)
		case AssertTraceStatus:
			err = assertTraceStatus(result, a)
		case AssertDiagnostic:
			err = assertDiagnostic(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func assertBOMContains(bom []ir.OutputRow, a Assertion) error {
	for _, row := range bom {
		if matchRow(row, a.Row) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertBOMContains,
		Expected: fmt.Sprintf("row matching %s", formatFields(a.Row)),
		Actual:   "no matching row",
		BOM:      bom,
	}
}

func assertBOMAbsent(bom []ir.OutputRow, a Assertion) error {
	for i, row := range bom {
		if matchRow(row, a.Row) {
			return &AssertionError{
				Type:     AssertBOMAbsent,
				Expected: fmt.Sprintf("no row matching %s", formatFields(a.Row)),
				Actual:   fmt.Sprintf("row %d matches", i+1),
				BOM:      bom,
			}
		}
	}
	return nil
}

func assertBOMCount(bom []ir.OutputRow, a Assertion) error {
	n := 0
	for _, row := range bom {
		if matchRow(row, a.Row) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	what := "rows"
	if len(a.Row) > 0 {
		what = "rows matching " + formatFields(a.Row)
	}
	return &AssertionError{
		Type:     AssertBOMCount,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d", n),
		BOM:      bom,
	}
}

// assertBOMOrder checks that codes appear in order; other rows may be
// interleaved.
func assertBOMOrder(bom []ir.OutputRow, a Assertion) error {
	next := 0
	for _, row := range bom {
		if next < len(a.Codes) && row.Code == a.Codes[next] {
			next++
		}
	}
	if next == len(a.Codes) {
		return nil
	}

	actual := make([]string, len(bom))
	for i, row := range bom {
		actual[i] = row.Code
	}
	return &AssertionError{
		Type:     AssertBOMOrder,
		Expected: fmt.Sprintf("codes in order %v", a.Codes),
		Actual:   fmt.Sprintf("%v (missing %q)", actual, a.Codes[next]),
	}
}

func assertTotals(totals ir.Totals, a Assertion) error {
	var diffs []string
	for _, name := range sortedKeys(a.Totals) {
		if got := totals[name]; got != a.Totals[name] {
			diffs = append(diffs, fmt.Sprintf("%s=%d (want %d)", name, got, a.Totals[name]))
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertTotals,
		Expected: fmt.Sprintf("%v", a.Totals),
		Actual:   strings.Join(diffs, ", "),
	}
}

func assertTraceStatus(result *Result, a Assertion) error {
	entry, ok := result.TraceFor(a.Rule)
	if !ok {
		return &AssertionError{
			Type:     AssertTraceStatus,
			Expected: fmt.Sprintf("rule %s with status %s", a.Rule, a.Status),
			Actual:   "rule not in trace",
		}
	}
	if string(entry.Status) != a.Status {
		return &AssertionError{
			Type:     AssertTraceStatus,
			Expected: fmt.Sprintf("rule %s with status %s", a.Rule, a.Status),
			Actual:   fmt.Sprintf("status %s (%s)", entry.Status, entry.Detail),
		}
	}
	return nil
}

func assertDiagnostic(result *Result, a Assertion) error {
	entry, ok := result.TraceFor(a.Rule)
	if ok && slices.ContainsFunc(entry.Diagnostics, func(d ir.Diagnostic) bool {
		return string(d.Code) == a.Code
	}) {
		return nil
	}

	actual := "rule not in trace"
	if ok {
		codes := make([]string, len(entry.Diagnostics))
		for i, d := range entry.Diagnostics {
			codes[i] = string(d.Code)
		}
		actual = fmt.Sprintf("diagnostics %v", codes)
	}
	return &AssertionError{
		Type:     AssertDiagnostic,
		Expected: fmt.Sprintf("rule %s reports %s", a.Rule, a.Code),
		Actual:   actual,
	}
}

// matchRow reports whether every expected field equals the row's field
// (subset semantics). An empty expectation matches every row.
func matchRow(row ir.OutputRow, expected map[string]any) bool {
	obj := row.CanonicalObject()
	for k, want := range expected {
		got, ok := obj[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares a row field with a YAML scalar. YAML decodes
// numbers as int or float64 while rows hold int and int64, so values are
// compared by their text form.
func valuesEqual(actual, expected any) bool {
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

func formatFields(m map[string]any) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
