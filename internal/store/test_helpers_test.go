package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/partsel/internal/catalog"
	"github.com/roach88/partsel/internal/condition"
	"github.com/roach88/partsel/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:            id,
		AnswersDigest: "answers-" + id,
		ResultDigest:  "result-" + id,
		Answers:       map[string]string{"HAS_BACKUP": "SI"},
		BOM: []ir.OutputRow{{
			Item: "Q1", Code: "A-1", Model: "MB-100", Name: "Backup", Quantity: 1,
			Rule: "backup", Alternative: 1, Table: "ACME",
		}},
		Totals:        ir.Totals{"phase": 3},
		EngineVersion: ir.EngineVersion,
		SchemaVersion: ir.SchemaVersion,
	}
}

// makeTestCatalog returns a two-table catalog.
func makeTestCatalog() *catalog.Memory {
	mem := catalog.NewMemory()
	mem.Add("ACME",
		ir.NewCatalogRow([]string{"CODE", "MODEL", "AMP"}, []string{"A-1", "MB-100", "100"}),
		ir.NewCatalogRow([]string{"CODE", "MODEL", "AMP"}, []string{"A-2", "MB-200", "200"}),
	)
	mem.Add("OTHER",
		ir.NewCatalogRow([]string{"CODE", "MODEL"}, []string{"O-1", "OB-1"}),
	)
	return mem
}

// makeTestRules returns a single rule selecting MB-200 from ACME when
// HAS_BACKUP is answered yes.
func makeTestRules() *ir.RuleStore {
	return ir.NewRuleStore(ir.Rule{
		Name:     "backup",
		Question: "HAS_BACKUP",
		ItemYes:  "Q1",
		Brand:    "ACME",
		Counters: map[string]int64{"phase": 3},
		Alternatives: []ir.Alternative{
			{Expr: condition.Parse(`MODEL("MB-200")`)},
		},
	})
}
