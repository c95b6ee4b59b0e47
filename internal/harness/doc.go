// Package harness runs BOM scenarios as executable tests.
//
// A scenario names rule files, a catalog and a set of project answers,
// evaluates them with the engine and checks the BOM, totals and trace
// against assertions. A golden snapshot of the BOM can additionally be
// compared byte for byte.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: backup_breaker
//	description: "Backup breaker is sized from the main breaker"
//	rules:
//	  - rules/breakers.cue
//	catalog: catalog.yaml      # YAML file or directory of CSV files
//	base_brand: ACME
//	variables: { CURRENT: "100" }
//	answers:
//	  HAS_BACKUP: "SI"
//	  MOTORS: 2
//	assertions:
//	  - type: bom_contains
//	    row: { code: "A-2", item: "Q1" }
//	  - type: totals
//	    totals: { phase: 3 }
//	  - type: trace_status
//	    rule: backup
//	    status: matched
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - bom_contains: a BOM row matches every listed field
//   - bom_absent: no BOM row matches every listed field
//   - bom_count: the BOM has exactly count rows (matching row, if given)
//   - bom_order: the listed codes appear in this order
//   - totals: the listed counters have exactly these values
//   - trace_status: the named rule ended with this status
//   - diagnostic: the named rule reported this diagnostic code
//
// # Golden Files
//
// Golden snapshots hold the canonical JSON of the BOM, totals and result
// digest:
//
//	go test ./internal/harness -update
package harness
