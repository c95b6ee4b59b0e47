package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/partsel/internal/catalog"
	"github.com/roach88/partsel/internal/ir"
)

// LoadCatalog reads the stored catalog into memory.
// An empty store yields an empty catalog.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, columns, cells
		FROM catalog_rows
		ORDER BY table_name COLLATE BINARY ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	mem := catalog.NewMemory()
	for rows.Next() {
		var table, colsJSON, cellsJSON string
		if err := rows.Scan(&table, &colsJSON, &cellsJSON); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		cols, err := unmarshalColumns(colsJSON)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", table, err)
		}
		cells, err := unmarshalStrings(cellsJSON)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", table, err)
		}
		mem.Add(table, ir.CatalogRow{Columns: cols, Cells: cells})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return mem, nil
}

// CatalogTables returns the stored table names with their row counts.
func (s *Store) CatalogTables(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, COUNT(*)
		FROM catalog_rows
		GROUP BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog tables: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan catalog table: %w", err)
		}
		tables[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog tables: %w", err)
	}
	return tables, nil
}

const runColumns = `seq, id, rules_source, rules_digest, catalog_digest, answers_digest,
	result_digest, base_brand, answers, variables, bom, totals, engine_version, schema_version`

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns all runs in insert order (seq ASC).
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}

// FindRunsByResult returns the IDs of runs that produced resultDigest, in
// insert order.
func (s *Store) FindRunsByResult(ctx context.Context, resultDigest string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs
		WHERE result_digest = ?
		ORDER BY seq ASC
	`, resultDigest)
	if err != nil {
		return nil, fmt.Errorf("query runs by result: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs by result: %w", err)
	}
	return ids, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a row into a Run. sql.ErrNoRows is returned unwrapped.
func scanRun(sc scanner) (Run, error) {
	var run Run
	var answersJSON, varsJSON, bomJSON, totalsJSON string

	if err := sc.Scan(
		&run.Seq, &run.ID, &run.RulesSource, &run.RulesDigest, &run.CatalogDigest,
		&run.AnswersDigest, &run.ResultDigest, &run.BaseBrand,
		&answersJSON, &varsJSON, &bomJSON, &totalsJSON,
		&run.EngineVersion, &run.SchemaVersion,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if run.Answers, err = unmarshalStrings(answersJSON); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.Variables, err = unmarshalStrings(varsJSON); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.BOM, err = unmarshalBOM(bomJSON); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.Totals, err = unmarshalTotals(totalsJSON); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}
