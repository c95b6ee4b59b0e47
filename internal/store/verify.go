package store

import (
	"context"
	"fmt"

	"github.com/roach88/partsel/internal/engine"
	"github.com/roach88/partsel/internal/ir"
)

// Verification compares a stored run with a fresh evaluation.
//
// Evaluation is deterministic, so a run re-evaluated against the same rules
// and catalog must reproduce its result digest. A mismatch means the rules
// or the catalog changed since the run was stored; CatalogChanged narrows
// it down when the catalog can report its own digest.
type Verification struct {
	RunID          string `json:"run_id"`
	ExpectedDigest string `json:"expected_digest"`
	ActualDigest   string `json:"actual_digest"`
	Match          bool   `json:"match"`
	CatalogChanged bool   `json:"catalog_changed,omitempty"`
	ExpectedRows   int    `json:"expected_rows"`
	ActualRows     int    `json:"actual_rows"`
}

// digester is implemented by catalogs that can identify their content,
// such as *catalog.Memory.
type digester interface {
	Digest() (string, error)
}

// VerifyRun re-evaluates the stored run id against rules and cat.
//
// The run's answers, base brand and seeded variables are restored; opts
// are applied first so a logger can be supplied. Only storage failures and
// contract errors are returned as errors: a mismatch is a Verification
// with Match false.
func (s *Store) VerifyRun(ctx context.Context, id string, rules *ir.RuleStore, cat engine.CatalogProvider, opts ...engine.EngineOption) (Verification, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return Verification{}, fmt.Errorf("verify run %s: %w", id, err)
	}

	answers := make(map[string]any, len(run.Answers))
	for k, v := range run.Answers {
		answers[k] = v
	}

	opts = append(opts,
		engine.WithBaseBrand(run.BaseBrand),
		engine.WithVariables(run.Variables),
	)
	res, err := engine.New(opts...).Evaluate(rules, cat, engine.NewMapAnswers(answers))
	if err != nil {
		return Verification{}, fmt.Errorf("verify run %s: %w", id, err)
	}

	actual, err := res.Digest()
	if err != nil {
		return Verification{}, fmt.Errorf("verify run %s: %w", id, err)
	}

	v := Verification{
		RunID:          run.ID,
		ExpectedDigest: run.ResultDigest,
		ActualDigest:   actual,
		Match:          actual == run.ResultDigest,
		ExpectedRows:   len(run.BOM),
		ActualRows:     len(res.BOM),
	}

	if d, ok := cat.(digester); ok && run.CatalogDigest != "" {
		current, err := d.Digest()
		if err != nil {
			return Verification{}, fmt.Errorf("verify run %s: %w", id, err)
		}
		v.CatalogChanged = current != run.CatalogDigest
	}
	return v, nil
}
