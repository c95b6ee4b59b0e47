package store

import (
	"context"
	"fmt"

	"github.com/roach88/partsel/internal/catalog"
	"github.com/roach88/partsel/internal/engine"
	"github.com/roach88/partsel/internal/ir"
)

// Run is a stored evaluation: its inputs, digests and output.
type Run struct {
	ID  string `json:"id"`
	Seq int64  `json:"seq"` // assigned by WriteRun

	RulesSource   string `json:"rules_source,omitempty"`
	RulesDigest   string `json:"rules_digest,omitempty"`
	CatalogDigest string `json:"catalog_digest,omitempty"`
	AnswersDigest string `json:"answers_digest"`
	ResultDigest  string `json:"result_digest"`

	BaseBrand string            `json:"base_brand,omitempty"`
	Answers   map[string]string `json:"answers"`
	Variables map[string]string `json:"variables,omitempty"`

	BOM    []ir.OutputRow `json:"bom"`
	Totals ir.Totals      `json:"totals"`

	EngineVersion string `json:"engine_version"`
	SchemaVersion string `json:"schema_version"`
}

// NewRun captures an evaluation result for storage. answers are the
// normalized answers the result was computed from. Rules and catalog
// provenance are filled in by the caller.
func NewRun(id string, res *engine.Result, answers map[string]string) (Run, error) {
	resultDigest, err := res.Digest()
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	if answers == nil {
		answers = map[string]string{}
	}
	answersDigest, err := ir.Digest(ir.DomainAnswers, answers)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	return Run{
		ID:            id,
		AnswersDigest: answersDigest,
		ResultDigest:  resultDigest,
		Answers:       answers,
		BOM:           res.BOM,
		Totals:        res.Totals,
		EngineVersion: ir.EngineVersion,
		SchemaVersion: ir.SchemaVersion,
	}, nil
}

// ImportCatalog replaces the stored catalog with mem. The replacement is
// atomic: readers see either the old catalog or the new one.
// Returns the number of rows written.
func (s *Store) ImportCatalog(ctx context.Context, mem *catalog.Memory) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("import catalog: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_rows`); err != nil {
		return 0, fmt.Errorf("import catalog: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_rows (table_name, seq, columns, cells)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("import catalog: prepare: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, table := range mem.Tables() {
		for i, row := range mem.Rows(table) {
			colsJSON, err := marshalColumns(row.Columns)
			if err != nil {
				return 0, fmt.Errorf("import catalog: %s[%d]: %w", table, i, err)
			}
			cellsJSON, err := marshalStrings(row.Cells)
			if err != nil {
				return 0, fmt.Errorf("import catalog: %s[%d]: %w", table, i, err)
			}
			if _, err := stmt.ExecContext(ctx, table, i, colsJSON, cellsJSON); err != nil {
				return 0, fmt.Errorf("import catalog: %s[%d]: %w", table, i, err)
			}
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("import catalog: commit: %w", err)
	}
	return written, nil
}

// WriteRun inserts a run record and returns its assigned seq.
// Run IDs are unique; writing the same ID twice is an error.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	if run.ID == "" {
		return 0, fmt.Errorf("write run: id is required")
	}

	answersJSON, err := marshalStrings(run.Answers)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	varsJSON, err := marshalStrings(run.Variables)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	bomJSON, err := marshalBOM(run.BOM)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	totalsJSON, err := marshalTotals(run.Totals)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, rules_source, rules_digest, catalog_digest, answers_digest, result_digest,
		 base_brand, answers, variables, bom, totals, engine_version, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.RulesSource,
		run.RulesDigest,
		run.CatalogDigest,
		run.AnswersDigest,
		run.ResultDigest,
		run.BaseBrand,
		answersJSON,
		varsJSON,
		bomJSON,
		totalsJSON,
		run.EngineVersion,
		run.SchemaVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write run: last insert id: %w", err)
	}
	return seq, nil
}
