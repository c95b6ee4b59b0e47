package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/partsel/internal/ir"
)

// DefaultCSVPattern selects every CSV file below a catalog directory.
const DefaultCSVPattern = "**/*.csv"

// LoadCSVDir loads one table per CSV file matching pattern under dir. The
// table name is the file name without extension. Two files with the same
// table name are an error.
func LoadCSVDir(dir, pattern string) (*Memory, error) {
	if pattern == "" {
		pattern = DefaultCSVPattern
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog dir: not a directory: %s", dir)
	}

	// Use doublestar for ** support
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}
	slices.Sort(matches)

	mem := NewMemory()
	seen := make(map[string]string, len(matches))
	for _, path := range matches {
		table := TableName(path)
		if prev, dup := seen[table]; dup {
			return nil, fmt.Errorf("duplicate catalog table %q: %s and %s", table, prev, path)
		}
		seen[table] = path

		rows, err := loadCSVFile(path)
		if err != nil {
			return nil, err
		}
		mem.Add(table, rows...)
	}
	return mem, nil
}

// TableName derives a table name from a file path.
func TableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func loadCSVFile(path string) ([]ir.CatalogRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV parses a catalog table. The first non-empty record is the header;
// blank records are skipped and short records are padded with empty cells.
func ReadCSV(r io.Reader) ([]ir.CatalogRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var header []string
	var rows []ir.CatalogRow
	for _, rec := range records {
		if isEmptyRecord(rec) {
			continue
		}
		if header == nil {
			header = cleanHeader(rec)
			continue
		}
		rows = append(rows, ir.NewCatalogRow(header, rec))
	}
	if header == nil {
		return nil, fmt.Errorf("parse csv: missing header")
	}
	return rows, nil
}

func cleanHeader(rec []string) []string {
	header := make([]string, len(rec))
	for i, h := range rec {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}
	return header
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
