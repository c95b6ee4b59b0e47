package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/partsel/internal/condition"
	"github.com/roach88/partsel/internal/ir"
)

// Memory is an in-memory catalog. It is safe for concurrent reads once
// loading has finished; Add must not race with Rows.
type Memory struct {
	tables map[string][]ir.CatalogRow
}

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]ir.CatalogRow)}
}

// Add appends rows to a table, creating it if needed.
func (m *Memory) Add(table string, rows ...ir.CatalogRow) {
	name := strings.TrimSpace(table)
	m.tables[name] = append(m.tables[name], rows...)
}

// Tables returns the table names in sorted order.
func (m *Memory) Tables() []string {
	return slices.Sorted(maps.Keys(m.tables))
}

// Len returns the total number of rows across all tables.
func (m *Memory) Len() int {
	n := 0
	for _, rows := range m.tables {
		n += len(rows)
	}
	return n
}

// Resolve maps a requested table name onto a stored one.
func (m *Memory) Resolve(table string) (string, bool) {
	if _, ok := m.tables[table]; ok {
		return table, true
	}
	want := condition.Normalize(table)
	if want == "" {
		return "", false
	}

	names := m.Tables()
	for _, name := range names {
		if condition.Normalize(name) == want {
			return name, true
		}
	}
	for _, name := range names {
		if strings.Contains(condition.Normalize(name), want) {
			return name, true
		}
	}
	return "", false
}

// Rows implements engine.CatalogProvider. An unknown table yields nil.
func (m *Memory) Rows(table string) []ir.CatalogRow {
	name, ok := m.Resolve(table)
	if !ok {
		return nil
	}
	return slices.Clone(m.tables[name])
}

// Digest identifies the catalog content. Table and row order inside a
// table both matter; map iteration order does not.
func (m *Memory) Digest() (string, error) {
	obj := make(map[string]any, len(m.tables))
	for name, rows := range m.tables {
		list := make([]any, len(rows))
		for i, r := range rows {
			list[i] = map[string]any{
				"columns": slices.Clone(r.Columns),
				"cells":   r.Cells,
			}
		}
		obj[name] = list
	}
	d, err := ir.Digest(ir.DomainCatalog, obj)
	if err != nil {
		return "", fmt.Errorf("catalog digest: %w", err)
	}
	return d, nil
}
