package store

import (
	"context"
	"fmt"

	"github.com/roach88/partsel/internal/ir"
	"github.com/roach88/partsel/internal/queryir"
	"github.com/roach88/partsel/internal/querysql"
)

// CatalogMatch is one stored catalog row returned by FindCatalogRows.
type CatalogMatch struct {
	Table string        `json:"table"`
	Index int           `json:"index"` // 0-based position within the table
	Row   ir.CatalogRow `json:"row"`
}

// FindCatalogRows runs a catalog query against the stored catalog. Rows
// come back in table order, then catalog order.
func (s *Store) FindCatalogRows(ctx context.Context, sel queryir.Select) ([]CatalogMatch, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("find catalog rows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find catalog rows: %w", err)
	}
	defer rows.Close()

	matches := []CatalogMatch{}
	for rows.Next() {
		var (
			m                   CatalogMatch
			colsJSON, cellsJSON string
		)
		if err := rows.Scan(&m.Table, &m.Index, &colsJSON, &cellsJSON); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		if m.Row.Columns, err = unmarshalColumns(colsJSON); err != nil {
			return nil, fmt.Errorf("catalog %s[%d]: %w", m.Table, m.Index, err)
		}
		if m.Row.Cells, err = unmarshalStrings(cellsJSON); err != nil {
			return nil, fmt.Errorf("catalog %s[%d]: %w", m.Table, m.Index, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}
	return matches, nil
}
