package ir

import (
	"sort"
	"strings"
)

// Output column names. Catalog tables may use these names directly or the
// spreadsheet letters in ColumnLetters.
const (
	ColCode        = "CODE"
	ColModel       = "MODEL"
	ColName        = "NAME"
	ColDescription = "DESCRIPTION"
	ColICC240      = "ICC240"
	ColICC480      = "ICC480"
	ColReference   = "REFERENCE"
	ColTorque      = "TORQUE"
)

// OutputColumns lists the catalog columns copied into a BOM row, in order.
var OutputColumns = []string{
	ColCode, ColModel, ColDescription, ColICC240, ColICC480, ColReference, ColTorque,
}

// ColumnLetters maps the legacy spreadsheet column letters of the brand
// sheets to output columns (B=code, C=model, H=description, F/G=ICC,
// I=reference, L=torque).
var ColumnLetters = map[string]string{
	"B": ColCode,
	"C": ColModel,
	"H": ColDescription,
	"F": ColICC240,
	"G": ColICC480,
	"I": ColReference,
	"L": ColTorque,
}

// ColumnKey canonicalizes a column or attribute name.
func ColumnKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// CanonicalColumn maps spreadsheet letters to output column names and
// canonicalizes everything else.
func CanonicalColumn(name string) string {
	k := ColumnKey(name)
	if c, ok := ColumnLetters[k]; ok {
		return c
	}
	return k
}

// CatalogRow is one part in a catalog table.
// Cells are keyed by ColumnKey; Columns keeps the source column order.
type CatalogRow struct {
	Columns []string          `json:"columns"`
	Cells   map[string]string `json:"cells"`
}

// NewCatalogRow builds a row from ordered column names and values.
// Missing values are stored as empty strings.
func NewCatalogRow(columns []string, values []string) CatalogRow {
	row := CatalogRow{
		Columns: make([]string, 0, len(columns)),
		Cells:   make(map[string]string, len(columns)),
	}
	for i, col := range columns {
		k := ColumnKey(col)
		if k == "" {
			continue
		}
		v := ""
		if i < len(values) {
			v = strings.TrimSpace(values[i])
		}
		if _, dup := row.Cells[k]; !dup {
			row.Columns = append(row.Columns, k)
		}
		row.Cells[k] = v
	}
	return row
}

// RowFromMap builds a row from a map. Columns are sorted by name since maps
// carry no order.
func RowFromMap(m map[string]string) CatalogRow {
	cols := make([]string, 0, len(m))
	for k := range m {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	vals := make([]string, len(cols))
	for i, c := range cols {
		vals[i] = m[c]
	}
	return NewCatalogRow(cols, vals)
}

// Get returns the cell for attr. A spreadsheet letter that is not a column
// of the row falls back to the output column it stands for, and an output
// column falls back to its letter.
func (r CatalogRow) Get(attr string) string {
	k := ColumnKey(attr)
	if v, ok := r.Cells[k]; ok {
		return v
	}
	if c, ok := ColumnLetters[k]; ok {
		return r.Cells[c]
	}
	for letter, c := range ColumnLetters {
		if c == k {
			if v, ok := r.Cells[letter]; ok {
				return v
			}
		}
	}
	return ""
}

// Has reports whether the row carries attr (directly or via its letter alias).
func (r CatalogRow) Has(attr string) bool {
	k := ColumnKey(attr)
	if _, ok := r.Cells[k]; ok {
		return true
	}
	if c, ok := ColumnLetters[k]; ok {
		_, ok = r.Cells[c]
		return ok
	}
	return false
}
