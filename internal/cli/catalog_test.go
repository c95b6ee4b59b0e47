package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/partsel/internal/store"
)

func importCatalog(t *testing.T, db, path string, extra ...string) string {
	t.Helper()
	cmd := NewCatalogCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, append([]string{"import", path, "--db", db}, extra...)...)
	require.NoError(t, err, out)
	return out
}

func TestCatalogImportYAML(t *testing.T) {
	f := newFixture(t)

	cmd := NewCatalogCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, "import", f.Catalog, "--db", f.DB)
	require.NoError(t, err)

	var result CatalogImportResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"ACME", "OTHER"}, result.Tables)
	assert.Equal(t, 4, result.Rows)
	assert.Len(t, result.Digest, 64)
}

func TestCatalogImportCSVDirectory(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "partsel.db")
	tables := filepath.Join(dir, "tables")
	writeFile(t, filepath.Join(tables, "ACME.csv"), "CODE,MODEL,AMP\nA-100,MB-100,100\nA-200,MB-200,200\n")
	writeFile(t, filepath.Join(tables, "vendors", "OTHER.csv"), "CODE,MODEL,TIPO\nO-1,OB-1,LAMP\n")
	writeFile(t, filepath.Join(tables, "notes.txt"), "ignored")

	out := importCatalog(t, db, tables)
	assert.Contains(t, out, "\u2713 Imported 3 row(s) in 2 table(s)")

	cmd := NewCatalogCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, "list", "--db", db)
	require.NoError(t, err)

	var list []CatalogTable
	decodeResponse(t, out, &list)
	assert.Equal(t, []CatalogTable{{Name: "ACME", Rows: 2}, {Name: "OTHER", Rows: 1}}, list)
}

func TestCatalogImportPattern(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "partsel.db")
	tables := filepath.Join(dir, "tables")
	writeFile(t, filepath.Join(tables, "ACME.csv"), "CODE,MODEL\nA-100,MB-100\n")
	writeFile(t, filepath.Join(tables, "vendors", "OTHER.csv"), "CODE,MODEL\nO-1,OB-1\n")

	out := importCatalog(t, db, tables, "--pattern", "*.csv")
	assert.Contains(t, out, "in 1 table(s)")
}

func TestCatalogImportReplaces(t *testing.T) {
	f := newFixture(t)
	importCatalog(t, f.DB, f.Catalog)

	other := filepath.Join(f.Dir, "other.yaml")
	writeFile(t, other, "tables:\n  SOLO:\n    - {CODE: \"S-1\"}\n")
	importCatalog(t, f.DB, other)

	cmd := NewCatalogCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, "list", "--db", f.DB)
	require.NoError(t, err)
	assert.Equal(t, "  SOLO: 1 row(s)\n", out)
}

func TestCatalogListEmpty(t *testing.T) {
	cmd := NewCatalogCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, "list", "--db", filepath.Join(t.TempDir(), "partsel.db"))
	require.NoError(t, err)
	assert.Equal(t, "No catalog tables.\n", out)
}

func TestCatalogErrors(t *testing.T) {
	f := newFixture(t)

	t.Run("db is required", func(t *testing.T) {
		cmd := NewCatalogCommand(&RootOptions{Format: "text"})
		_, err := execute(cmd, "list")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db")
	})

	t.Run("missing catalog", func(t *testing.T) {
		cmd := NewCatalogCommand(&RootOptions{Format: "json"})
		out, err := execute(cmd, "import", filepath.Join(f.Dir, "missing.yaml"), "--db", f.DB)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Equal(t, ErrCodeCatalog, decodeResponse(t, out, nil).Error.Code)
	})
}

func TestEvaluateFromImportedCatalog(t *testing.T) {
	f := newFixture(t)
	importCatalog(t, f.DB, f.Catalog)

	cmd := NewEvaluateCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, f.Rules, "--db", f.DB, "--answers", f.Answers)
	require.NoError(t, err)

	var result EvaluateResult
	decodeResponse(t, out, &result)
	assert.Equal(t, panelDigest, result.Digest)
}

func TestCatalogFind(t *testing.T) {
	f := newFixture(t)
	importCatalog(t, f.DB, f.Catalog)

	tests := []struct {
		name  string
		args  []string
		codes []string
	}{
		{"where", []string{"--table", "ACME", "--where", "MODEL=mb-200"}, []string{"A-200"}},
		{"expr", []string{"--expr", `MODEL("MB-250") NORMA(*)`}, []string{"A-250"}},
		{"expr and where", []string{"--expr", `DESCRIPTION("Breaker 100A")`, "--where", "AMP=100"}, []string{"A-100"}},
		{"limit", []string{"--table", "ACME", "--limit", "2"}, []string{"A-100", "A-200"}},
		{"no match", []string{"--where", "MODEL=NOPE"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCatalogCommand(&RootOptions{Format: "json"})
			out, err := execute(cmd, append([]string{"find", "--db", f.DB}, tt.args...)...)
			require.NoError(t, err, out)

			var matches []store.CatalogMatch
			decodeResponse(t, out, &matches)
			codes := []string{}
			for _, m := range matches {
				codes = append(codes, m.Row.Cells["CODE"])
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}

func TestCatalogFindText(t *testing.T) {
	f := newFixture(t)
	importCatalog(t, f.DB, f.Catalog)

	cmd := NewCatalogCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, "find", "--db", f.DB, "--where", "CODE=O-1")
	require.NoError(t, err)
	assert.Contains(t, out, "OTHER[0]")
	assert.Contains(t, out, "TIPO=LAMP")

	cmd = NewCatalogCommand(&RootOptions{Format: "text"})
	out, err = execute(cmd, "find", "--db", f.DB, "--where", "CODE=none")
	require.NoError(t, err)
	assert.Equal(t, "No matching rows.\n", out)
}

func TestCatalogFindInvalid(t *testing.T) {
	f := newFixture(t)

	for _, args := range [][]string{
		{"--where", "MODEL"},
		{"--where", "=x"},
		{"--expr", "AMP(@CURRENT)"},
		{"--expr", "MODEL("},
	} {
		cmd := NewCatalogCommand(&RootOptions{Format: "json"})
		out, err := execute(cmd, append([]string{"find", "--db", f.DB}, args...)...)
		require.Error(t, err, "%v", args)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Equal(t, ErrCodeGeneric, decodeResponse(t, out, nil).Error.Code)
	}
}
