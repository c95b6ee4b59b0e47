package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a BOM test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules lists CUE (or JSON) rule files, compiled in order into one
	// rule store.
	Rules []string `yaml:"rules"`

	// Catalog is a YAML catalog file or a directory of CSV tables.
	Catalog string `yaml:"catalog"`

	// CatalogPattern selects CSV files when Catalog is a directory.
	CatalogPattern string `yaml:"catalog_pattern,omitempty"`

	// BaseBrand is the default catalog table.
	BaseBrand string `yaml:"base_brand,omitempty"`

	// Variables seed placeholder values.
	Variables map[string]string `yaml:"variables,omitempty"`

	// Answers are the project answers, as loosely typed YAML scalars.
	Answers map[string]any `yaml:"answers"`

	// Strict fails the scenario when the rules do not validate cleanly.
	Strict bool `yaml:"strict,omitempty"`

	// Assertions validate the BOM, totals and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of the result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Row lists BOM fields to match (bom_contains, bom_absent, bom_count).
	// Keys are the JSON names of ir.OutputRow ("code", "item", ...).
	Row map[string]any `yaml:"row,omitempty"`

	// Count is the expected number of rows (bom_count).
	Count int `yaml:"count,omitempty"`

	// Codes is the expected code order (bom_order).
	Codes []string `yaml:"codes,omitempty"`

	// Totals are the expected counters (totals).
	Totals map[string]int64 `yaml:"totals,omitempty"`

	// Rule names the trace entry (trace_status, diagnostic).
	Rule string `yaml:"rule,omitempty"`

	// Status is the expected trace status (trace_status).
	Status string `yaml:"status,omitempty"`

	// Code is the expected diagnostic code (diagnostic).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertBOMContains = "bom_contains"
	AssertBOMAbsent   = "bom_absent"
	AssertBOMCount    = "bom_count"
	AssertBOMOrder    = "bom_order"
	AssertTotals      = "totals"
	AssertTraceStatus = "trace_status"
	AssertDiagnostic  = "diagnostic"
)

// LoadScenario reads and parses a scenario YAML file. Relative rule and
// catalog paths are resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, p := range scenario.Rules {
		scenario.Rules[i] = resolvePath(base, p)
	}
	scenario.Catalog = resolvePath(base, scenario.Catalog)

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without resolving or checking
// paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Rules) == 0 {
		return fmt.Errorf("rules list is required and must be non-empty")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range s.Rules {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("rule file not found: %s", p)
		}
	}
	if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
		return fmt.Errorf("catalog not found: %s", s.Catalog)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBOMContains, AssertBOMAbsent:
		if len(a.Row) == 0 {
			return fmt.Errorf("assertions[%d]: row is required for %s", index, a.Type)
		}
	case AssertBOMCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for bom_count", index)
		}
	case AssertBOMOrder:
		if len(a.Codes) == 0 {
			return fmt.Errorf("assertions[%d]: codes list is required for bom_order", index)
		}
	case AssertTotals:
		if len(a.Totals) == 0 {
			return fmt.Errorf("assertions[%d]: totals is required for totals", index)
		}
	case AssertTraceStatus:
		if a.Rule == "" || a.Status == "" {
			return fmt.Errorf("assertions[%d]: rule and status are required for trace_status", index)
		}
	case AssertDiagnostic:
		if a.Rule == "" || a.Code == "" {
			return fmt.Errorf("assertions[%d]: rule and code are required for diagnostic", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
