package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/partsel/internal/ir"
)

func TestTraceText(t *testing.T) {
	f := newFixture(t)

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, f.Rules, "--catalog", f.Catalog, "--answers", f.Answers)
	require.NoError(t, err)

	assert.Contains(t, out, "Trace:")
	assert.Contains(t, out, "  main-breaker [SIEMPRE]")
	assert.Contains(t, out, "table=ACME")
	assert.Contains(t, out, "x2")
	assert.Contains(t, out, "5 rule(s), 4 row(s)")
}

func TestTraceFilters(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		args  []string
		rules []string
	}{
		{"no filter", nil, []string{"main-breaker", "backup", "lamps", "heater", "terminals"}},
		{"by rule", []string{"--rule", "heater"}, []string{"heater"}},
		{"by status", []string{"--status", "matched"}, []string{"main-breaker", "backup", "lamps"}},
		{"rule and status", []string{"--rule", "heater", "--status", "matched"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{f.Rules, "--catalog", f.Catalog, "--answers", f.Answers}, tt.args...)
			cmd := NewTraceCommand(&RootOptions{Format: "json"})
			out, err := execute(cmd, args...)
			require.NoError(t, err)

			var result TraceResult
			decodeResponse(t, out, &result)

			rules := []string{}
			for _, e := range result.Entries {
				rules = append(rules, e.Rule)
			}
			assert.Equal(t, tt.rules, rules)

			// Stats always cover the whole trace.
			assert.Equal(t, 5, result.Stats.Rules)
			assert.Equal(t, 4, result.Stats.Rows)
			assert.Equal(t, 3, result.Stats.ByStatus["matched"])
			assert.Equal(t, 1, result.Stats.ByStatus["declined"])
			assert.Equal(t, 1, result.Stats.ByStatus["counters_only"])
		})
	}
}

func TestTraceNoMatches(t *testing.T) {
	f := newFixture(t)

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, f.Rules, "--catalog", f.Catalog, "--rule", "nope")
	require.NoError(t, err)
	assert.Equal(t, "No matching trace entries.\n", out)
}

func TestTraceMissingCatalog(t *testing.T) {
	f := newFixture(t)

	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, f.Rules)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeCatalog, decodeResponse(t, out, nil).Error.Code)
}

func TestPrintTrace(t *testing.T) {
	buf := &bytes.Buffer{}
	printTrace(buf, []ir.TraceEntry{{
		Rule:     "pilot",
		Question: "HAS_PILOT",
		Decision: ir.DecisionYes.String(),
		Status:   ir.TraceNoCatalogRow,
		Detail:   "directive MISSING",
		Diagnostics: []ir.Diagnostic{
			{Code: ir.DiagUnknownTable, Message: `table "MISSING" not found`},
		},
	}})

	out := buf.String()
	assert.Contains(t, out, "  pilot [HAS_PILOT] ")
	assert.Contains(t, out, "-> no_catalog_row\n")
	assert.Contains(t, out, "      directive MISSING\n")
	assert.Contains(t, out, "      "+string(ir.DiagUnknownTable)+`: table "MISSING" not found`)
}

func TestFilterTraceNeverNil(t *testing.T) {
	assert.NotNil(t, filterTrace(nil, "", ""))
	assert.Empty(t, filterTrace([]ir.TraceEntry{{Rule: "a"}}, "b", ""))
}
