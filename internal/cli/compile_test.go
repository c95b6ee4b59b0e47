package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/partsel/internal/ir"
)

func TestCompileValidRules(t *testing.T) {
	f := newFixture(t)

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, f.Rules)
	require.NoError(t, err)

	assert.Contains(t, out, "\u2713 Compiled 5 rule(s), 4 alternative(s)")
	assert.Contains(t, out, "  backup: HAS_BACKUP, 1 alternative(s)")
	assert.Contains(t, out, "  terminals: SIEMPRE, 0 alternative(s)")
	assert.NotContains(t, out, "malformed")
}

func TestCompileValidRulesJSON(t *testing.T) {
	f := newFixture(t)

	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, f.Rules)
	require.NoError(t, err)

	var result CompilationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Rules, 5)
	assert.Equal(t, "main-breaker", result.Rules[0].Name)
	assert.Equal(t, []string{f.Rules}, result.Files)
	assert.Len(t, result.Digest, 64)
}

func TestCompileOutputToFile(t *testing.T) {
	f := newFixture(t)
	outputFile := filepath.Join(f.Dir, "compiled.json")

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, f.Rules, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote rule store to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Rules, 5)
	assert.Equal(t, map[string]int64{"phase": 3, "neutral": 1}, result.Rules[0].Counters)
}

func TestCompileReportsMalformedExpressions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.cue")
	writeFile(t, path, `rule: a: {question: "Q", alternatives: ["MODEL(\"X\"", "MODEL(\"Y\")"]}`)

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, path)
	require.NoError(t, err, "malformed expressions compile and never match")
	assert.Contains(t, out, "1 malformed expression(s)")

	cmd = NewCompileCommand(&RootOptions{Format: "json"})
	out, err = execute(cmd, path)
	require.NoError(t, err)

	var result CompilationResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Rules, 1)
	require.Len(t, result.Rules[0].Alternatives, 2)
	assert.True(t, result.Rules[0].Alternatives[0].Expr.Malformed())
	assert.False(t, result.Rules[0].Alternatives[1].Expr.Malformed())
}

func TestCompileErrors(t *testing.T) {
	dir := t.TempDir()
	syntax := filepath.Join(dir, "syntax.cue")
	writeFile(t, syntax, "rule: a: {question: \n")
	twoBad := filepath.Join(dir, "twobad.cue")
	writeFile(t, twoBad, `
rule: a: {title: "A"}
rule: b: {question: "B", counters: {phase: "three"}}
rule: c: {question: "C"}
`)

	t.Run("missing path", func(t *testing.T) {
		cmd := NewCompileCommand(&RootOptions{Format: "json"})
		out, err := execute(cmd, filepath.Join(dir, "missing"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		resp := decodeResponse(t, out, nil)
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("syntax error", func(t *testing.T) {
		cmd := NewCompileCommand(&RootOptions{Format: "text"})
		out, err := execute(cmd, syntax)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E101]")
	})

	t.Run("collects every rule error", func(t *testing.T) {
		cmd := NewCompileCommand(&RootOptions{Format: "json"})
		out, err := execute(cmd, twoBad)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "2 error(s)")

		var errs []CLIError
		resp := decodeResponse(t, out, &errs)
		assert.Equal(t, "error", resp.Status)
		require.Len(t, errs, 2)
		assert.Equal(t, ErrCodeRuleQuestion, errs[0].Code)
		assert.Equal(t, ErrCodeRuleQuestion, resp.Error.Code)
	})

	t.Run("text lists positions", func(t *testing.T) {
		cmd := NewCompileCommand(&RootOptions{Format: "text"})
		out, err := execute(cmd, twoBad)
		require.Error(t, err)
		assert.Contains(t, out, "\u2717 Compilation failed")
		assert.Contains(t, out, twoBad+":")
	})
}

func TestCalculateStats(t *testing.T) {
	rules := ir.NewRuleStore(
		ir.Rule{Name: "a", Counters: map[string]int64{"phase": 1}, Alternatives: []ir.Alternative{{}, {}}},
		ir.Rule{Name: "b", Alternatives: []ir.Alternative{{}}},
	)

	stats := calculateStats(rules)
	assert.Equal(t, 2, stats.RuleCount)
	assert.Equal(t, 3, stats.AlternativeCount)
	assert.Equal(t, 1, stats.CounterRules)
	assert.Equal(t, 0, stats.MalformedCount)
}
