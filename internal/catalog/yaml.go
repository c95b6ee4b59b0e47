package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/partsel/internal/ir"
)

// Document is the YAML catalog format:
//
//	tables:
//	  ACME:
//	    - {CODE: "A-1", MODEL: "MB-100", AMP: 100}
//	    - {CODE: "A-2", MODEL: "MB-200", AMP: 200}
//
// Scalar cells of any type are read as text.
type Document struct {
	Tables map[string][]map[string]string `yaml:"tables"`
}

// LoadYAML reads a YAML catalog file.
func LoadYAML(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	mem, err := ReadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mem, nil
}

// ReadYAML decodes a YAML catalog. Unknown top-level keys are rejected.
func ReadYAML(r io.Reader) (*Memory, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return FromDocument(doc), nil
}

// FromDocument builds a catalog from a decoded document.
func FromDocument(doc Document) *Memory {
	mem := NewMemory()
	for name, rows := range doc.Tables {
		converted := make([]ir.CatalogRow, len(rows))
		for i, r := range rows {
			converted[i] = ir.RowFromMap(r)
		}
		mem.Add(name, converted...)
	}
	return mem
}
