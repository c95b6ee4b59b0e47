package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/partsel/internal/ir"
)

// marshalStrings converts a string map to canonical JSON TEXT for storage.
// A nil map is stored as "{}".
func marshalStrings(m map[string]string) (string, error) {
	if m == nil {
		m = map[string]string{}
	}
	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return string(data), nil
}

// marshalColumns converts an ordered column list to canonical JSON TEXT.
func marshalColumns(cols []string) (string, error) {
	if cols == nil {
		cols = []string{}
	}
	data, err := ir.MarshalCanonical(cols)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	return string(data), nil
}

// marshalTotals converts totals to canonical JSON TEXT.
func marshalTotals(t ir.Totals) (string, error) {
	if t == nil {
		t = ir.Totals{}
	}
	data, err := ir.MarshalCanonical(t)
	if err != nil {
		return "", fmt.Errorf("marshal totals: %w", err)
	}
	return string(data), nil
}

// marshalBOM stores BOM rows with encoding/json. The rows are for display
// and inspection; run identity is the result digest column.
func marshalBOM(rows []ir.OutputRow) (string, error) {
	if rows == nil {
		rows = []ir.OutputRow{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal bom: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(data string) (map[string]string, error) {
	m := map[string]string{}
	if data == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return m, nil
}

func unmarshalColumns(data string) ([]string, error) {
	var cols []string
	if err := json.Unmarshal([]byte(data), &cols); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}
	return cols, nil
}

// unmarshalTotals decodes counters. Counters are int64 in canonical JSON so
// decoding into int64 directly loses nothing.
func unmarshalTotals(data string) (ir.Totals, error) {
	t := ir.Totals{}
	if data == "" {
		return t, nil
	}
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("unmarshal totals: %w", err)
	}
	return t, nil
}

func unmarshalBOM(data string) ([]ir.OutputRow, error) {
	rows := []ir.OutputRow{}
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("unmarshal bom: %w", err)
	}
	return rows, nil
}
