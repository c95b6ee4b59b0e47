package engine

import (
	"log/slog"
	"maps"

	"github.com/roach88/partsel/internal/condition"
	"github.com/roach88/partsel/internal/ir"
)

// EvaluationContext carries the mutable state of a single Evaluate call.
// A fresh context is created per call and never shared, so totals, the
// dedupe set and dynamic variables cannot leak between evaluations.
type EvaluationContext struct {
	catalog   CatalogProvider
	answers   AnswerSet
	baseBrand string
	logger    *slog.Logger

	env   condition.Env
	agg   *Aggregator
	trace []ir.TraceEntry
}

func newEvaluationContext(e *Engine, catalog CatalogProvider, answers AnswerSet) *EvaluationContext {
	vars := make(map[string]string, len(e.variables))
	for k, v := range e.variables {
		vars[condition.Normalize(k)] = v
	}
	return &EvaluationContext{
		catalog:   catalog,
		answers:   answers,
		baseBrand: e.baseBrand,
		logger:    e.logger,
		env: condition.Env{
			Norm:      answers.SelectedNorm(),
			Variables: vars,
			Answers:   answers,
		},
		agg: NewAggregator(),
	}
}

// setVariable records a dynamic variable for later placeholder conditions.
func (c *EvaluationContext) setVariable(name, value string) {
	c.env.Variables[condition.Normalize(name)] = value
}

func (c *EvaluationContext) record(entry ir.TraceEntry) {
	c.trace = append(c.trace, entry)
	for _, d := range entry.Diagnostics {
		c.logger.Warn("rule diagnostic",
			"rule", entry.Rule,
			"code", d.Code,
			"message", d.Message,
		)
	}
	c.logger.Debug("rule evaluated",
		"rule", entry.Rule,
		"decision", entry.Decision,
		"status", entry.Status,
		"table", entry.Table,
		"rows", entry.Rows,
	)
}

func (c *EvaluationContext) result() *Result {
	return &Result{
		BOM:       c.agg.Rows(),
		Totals:    c.agg.Totals(),
		Trace:     c.trace,
		Variables: maps.Clone(c.env.Variables),
	}
}
