package engine

import (
	"maps"
	"math"
	"slices"

	"github.com/roach88/partsel/internal/ir"
)

// dedupeKey identifies a BOM line within one evaluation.
type dedupeKey struct {
	item, code, model, rule string
}

// Aggregator accumulates BOM rows and counter totals for one evaluation.
// It is not safe for concurrent use.
type Aggregator struct {
	rows   []ir.OutputRow
	seen   map[dedupeKey]bool
	totals ir.Totals
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		seen:   make(map[dedupeKey]bool),
		totals: make(ir.Totals),
	}
}

// Emit appends row unless an identical (item, code, model, rule) row was
// already emitted. It reports whether the row was added.
func (a *Aggregator) Emit(row ir.OutputRow) bool {
	key := dedupeKey{item: row.Item, code: row.Code, model: row.Model, rule: row.Rule}
	if a.seen[key] {
		return false
	}
	a.seen[key] = true
	a.rows = append(a.rows, row)
	return true
}

// AddCounters adds delta*multiplier for every counter. Totals saturate at
// the int64 bounds instead of wrapping.
func (a *Aggregator) AddCounters(counters map[string]int64, multiplier int64) {
	for _, name := range slices.Sorted(maps.Keys(counters)) {
		a.totals[name] = addSaturating(a.totals[name], mulSaturating(counters[name], multiplier))
	}
}

// mulSaturating multiplies a counter delta by a non-negative multiplier.
func mulSaturating(delta, mult int64) int64 {
	switch {
	case delta == 0 || mult <= 0:
		return 0
	case delta > 0 && delta > math.MaxInt64/mult:
		return math.MaxInt64
	case delta < 0 && delta < math.MinInt64/mult:
		return math.MinInt64
	}
	return delta * mult
}

func addSaturating(a, b int64) int64 {
	sum := a + b
	switch {
	case a > 0 && b > 0 && sum < 0:
		return math.MaxInt64
	case a < 0 && b < 0 && sum >= 0:
		return math.MinInt64
	}
	return sum
}

// Rows returns a copy of the emitted rows in emission order.
func (a *Aggregator) Rows() []ir.OutputRow {
	return slices.Clone(a.rows)
}

// Totals returns a copy of the counter totals.
func (a *Aggregator) Totals() ir.Totals {
	return a.totals.Clone()
}

// AggregateByCode groups rows by catalog code and sums quantities. Rows
// without a code are grouped by item label. The first row of each group
// supplies the descriptive fields and groups keep first-appearance order.
// The input slice is not modified.
func AggregateByCode(rows []ir.OutputRow) []ir.OutputRow {
	var out []ir.OutputRow
	index := make(map[string]int)
	for _, r := range rows {
		key := "code:" + r.Code
		if r.Code == "" {
			key = "label:" + r.Item
		}
		if i, ok := index[key]; ok {
			out[i].Quantity += r.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}
