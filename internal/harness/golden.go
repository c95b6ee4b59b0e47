package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/partsel/internal/ir"
)

// Snapshot returns the canonical JSON compared against golden files: the
// BOM rows, totals and result digest. The trace is left out since it is
// diagnostic only.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	rows := make([]any, len(result.BOM))
	for i, r := range result.BOM {
		rows[i] = r.CanonicalObject()
	}
	totals := result.Totals
	if totals == nil {
		totals = ir.Totals{}
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"bom":           rows,
		"totals":        map[string]int64(totals),
		"digest":        result.Digest,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
