package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/partsel/internal/condition"
	"github.com/roach88/partsel/internal/ir"
)

// CatalogProvider supplies catalog rows by table (brand) name.
//
// Rows must be total: an unknown table returns an empty slice, never an
// error. The returned order is the scan order and must be stable within one
// evaluation. The engine never modifies returned rows.
type CatalogProvider interface {
	Rows(table string) []ir.CatalogRow
}

// Engine evaluates rule stores against a catalog and project answers.
//
// An Engine is immutable after New, so concurrent Evaluate calls are safe
// as long as each call owns its inputs.
type Engine struct {
	logger    *slog.Logger
	baseBrand string
	variables map[string]string
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBaseBrand sets the catalog table used when a rule names no brand and
// as the fallback when a brand override finds no row.
func WithBaseBrand(table string) EngineOption {
	return func(e *Engine) {
		e.baseBrand = strings.TrimSpace(table)
	}
}

// WithVariables seeds dynamic variables for placeholder conditions, for
// values computed outside the rule store (e.g. the selected breaker rating).
// The map is copied.
func WithVariables(vars map[string]string) EngineOption {
	return func(e *Engine) {
		e.variables = maps.Clone(vars)
	}
}

// New creates an Engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one evaluation.
type Result struct {
	// BOM holds the selected rows in rule order.
	BOM []ir.OutputRow `json:"bom"`

	// Totals holds the incidental counters.
	Totals ir.Totals `json:"totals"`

	// Trace holds one entry per rule, for diagnosis only.
	Trace []ir.TraceEntry `json:"trace"`

	// Variables holds the dynamic variables after evaluation.
	Variables map[string]string `json:"variables,omitempty"`
}

// Digest returns the content digest of the BOM and totals.
func (r *Result) Digest() (string, error) {
	return ir.ResultDigest(r.BOM, r.Totals)
}

// ByCode returns the BOM grouped by catalog code.
func (r *Result) ByCode() []ir.OutputRow {
	return AggregateByCode(r.BOM)
}

// Evaluate runs every rule of store in order with a default engine.
func Evaluate(store *ir.RuleStore, catalog CatalogProvider, answers AnswerSet) (*Result, error) {
	return New().Evaluate(store, catalog, answers)
}

// Evaluate runs every rule of store in order and returns the BOM, totals
// and trace.
//
// Only contract violations return an error. Unparsable expressions, unknown
// tables, unresolved placeholders and non-numeric multipliers degrade to a
// smaller BOM and are reported in the trace.
//
// Evaluate is read-only over its inputs and deterministic: identical inputs
// produce identical results.
func (e *Engine) Evaluate(store *ir.RuleStore, catalog CatalogProvider, answers AnswerSet) (*Result, error) {
	if store == nil {
		return nil, newContractError(ErrCodeNilRuleStore, "rule store is nil")
	}
	if catalog == nil {
		return nil, newContractError(ErrCodeNilCatalog, "catalog provider is nil")
	}
	if answers == nil {
		return nil, newContractError(ErrCodeNilAnswers, "answer set is nil")
	}

	ctx := newEvaluationContext(e, catalog, answers)
	e.logger.Debug("evaluation starting",
		"rules", store.Len(),
		"norm", ctx.env.Norm,
		"base_brand", e.baseBrand,
	)

	for _, rule := range store.Rules {
		ctx.record(e.evaluateRule(ctx, rule))
	}

	res := ctx.result()
	e.logger.Debug("evaluation complete",
		"bom_rows", len(res.BOM),
		"counters", len(res.Totals),
	)
	return res, nil
}

func (e *Engine) evaluateRule(ctx *EvaluationContext, rule ir.Rule) ir.TraceEntry {
	d := decide(rule, ctx.answers)
	entry := ir.TraceEntry{
		Rule:     rule.Name,
		Question: rule.Question,
		Decision: d.String(),
	}

	br := selectBranch(rule, d)
	if br.directive.IsSuppress() {
		entry.Status = ir.TraceDeclined
		if br.yes {
			entry.Status = ir.TraceSuppressed
		}
		return entry
	}

	if len(rule.Alternatives) == 0 {
		return e.evaluateBareRule(ctx, rule, br, entry)
	}

	alts, ok := filterByNorm(rule.Alternatives, ctx.env.Norm)
	if !ok {
		entry.Status = ir.TraceNormFiltered
		entry.Detail = fmt.Sprintf("no alternative for norm %s", ctx.env.Norm)
		return entry
	}

	var diags []ir.Diagnostic
	matched, excluded := false, 0
	for _, ia := range alts {
		alt := ia.alt
		diags = append(diags, alt.Expr.Diagnostics...)
		if alt.Expr.Malformed() {
			continue
		}

		mult, mdiags := resolveMultiplier(rule, alt, ctx.answers)
		diags = append(diags, mdiags...)
		if mult == 0 {
			excluded++
			continue
		}

		rows, table, res, tdiags := e.matchAlternative(ctx, rule, alt, br.directive)
		diags = append(diags, tdiags...)
		if !res.Matched() {
			continue
		}

		copies, cdiags := itemCopies(br.item, mult)
		diags = append(diags, cdiags...)
		for _, ri := range res.Rows {
			for k := int64(1); k <= copies; k++ {
				out := buildOutputRow(rule, br, alt, rows[ri], k)
				out.Alternative = ia.index
				out.Table = table
				if ctx.agg.Emit(out) {
					entry.Rows++
				}
			}
		}

		counters := alt.Counters
		if counters == nil {
			counters = rule.Counters
		}
		ctx.agg.AddCounters(counters, mult)

		first := rows[res.Rows[0]]
		for _, name := range slices.Sorted(maps.Keys(alt.Exports)) {
			ctx.setVariable(name, first.Get(alt.Exports[name]))
		}

		if !matched {
			entry.Table = table
			entry.Multiplier = mult
		}
		matched = true

		if res.Placeholder {
			break
		}
	}

	entry.Diagnostics = dedupeDiagnostics(diags)
	switch {
	case matched:
		entry.Status = ir.TraceMatched
	case excluded > 0 && excluded == len(alts):
		entry.Status = ir.TraceExcluded
		entry.Multiplier = 0
	default:
		entry.Status = ir.TraceNoCatalogRow
	}
	return entry
}

// evaluateBareRule handles rules without alternatives: an item mask emits a
// bare row and a yes branch adds the rule's counters once.
func (e *Engine) evaluateBareRule(ctx *EvaluationContext, rule ir.Rule, br branch, entry ir.TraceEntry) ir.TraceEntry {
	if br.item != "" {
		row := ir.OutputRow{
			Item:     expandItem(br.item, 1),
			Name:     rule.DisplayName(),
			Quantity: 1,
			Rule:     rule.Name,
		}
		if ctx.agg.Emit(row) {
			entry.Rows++
		}
	}

	counted := br.yes && len(rule.Counters) > 0
	if counted {
		ctx.agg.AddCounters(rule.Counters, 1)
		entry.Multiplier = 1
	}

	switch {
	case entry.Rows > 0:
		entry.Status = ir.TraceMatched
	case counted:
		entry.Status = ir.TraceCountersOnly
	default:
		entry.Status = ir.TraceNoCatalogRow
		entry.Detail = "rule has no alternatives"
	}
	return entry
}

// matchAlternative tries each table of the fallback chain in order and
// returns the first table with a match.
func (e *Engine) matchAlternative(ctx *EvaluationContext, rule ir.Rule, alt ir.Alternative, dir ir.Directive) ([]ir.CatalogRow, string, condition.Result, []ir.Diagnostic) {
	chain := tableChain(alt, dir, rule, ctx.baseBrand)
	if len(chain) == 0 {
		return nil, "", condition.Result{}, []ir.Diagnostic{{
			Code:    ir.DiagUnknownTable,
			Message: "no catalog table configured",
		}}
	}

	var diags []ir.Diagnostic
	for _, table := range chain {
		rows := ctx.catalog.Rows(table)
		if len(rows) == 0 {
			diags = append(diags, ir.Diagnostic{
				Code:    ir.DiagUnknownTable,
				Message: fmt.Sprintf("catalog table %q has no rows", table),
			})
			continue
		}
		env := ctx.env
		env.Table = table
		res := condition.Match(rows, alt.Expr, env, alt.AllowMulti)
		diags = append(diags, res.Diagnostics...)
		if res.Matched() {
			return rows, table, res, diags
		}
		if len(res.Diagnostics) > 0 {
			// An unresolved placeholder fails the same way on every table.
			break
		}
	}
	return nil, "", condition.Result{}, diags
}

// indexedAlternative keeps the 1-based position of an alternative in its
// rule after norm filtering.
type indexedAlternative struct {
	index int
	alt   ir.Alternative
}

// filterByNorm keeps the alternatives tagged with the active norm; when
// there are none it falls back to the untagged ones. ok is false when
// nothing remains.
func filterByNorm(alts []ir.Alternative, active ir.Norm) ([]indexedAlternative, bool) {
	var tagged, untagged []indexedAlternative
	for i, alt := range alts {
		ia := indexedAlternative{index: i + 1, alt: alt}
		norms := alternativeNorms(alt)
		switch {
		case len(norms) == 0:
			untagged = append(untagged, ia)
		case slices.Contains(norms, active):
			tagged = append(tagged, ia)
		}
	}
	if len(tagged) > 0 {
		return tagged, true
	}
	return untagged, len(untagged) > 0
}

func alternativeNorms(alt ir.Alternative) []ir.Norm {
	norms := slices.Clone(alt.Expr.Norms)
	if alt.Norm != "" {
		norms = append(norms, alt.Norm)
	}
	return norms
}

// buildOutputRow copies the permitted columns of a catalog row into a BOM
// row for copy k.
func buildOutputRow(rule ir.Rule, br branch, alt ir.Alternative, src ir.CatalogRow, k int64) ir.OutputRow {
	out := ir.OutputRow{
		Item:     expandItem(br.item, k),
		Name:     rule.DisplayName(),
		Quantity: 1,
		Rule:     rule.Name,
	}
	if out.Item == "" {
		out.Item = rule.DisplayName()
	}
	permitted := permittedColumns(alt.Expr.Columns)
	for _, col := range ir.OutputColumns {
		if permitted == nil || permitted[col] {
			out.SetField(col, src.Get(col))
		}
	}
	return out
}

// permittedColumns returns the set of output columns an expression copies,
// or nil for all columns.
func permittedColumns(cols []string) map[string]bool {
	if len(cols) == 0 {
		return nil
	}
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[ir.CanonicalColumn(c)] = true
	}
	return set
}

// expandItem replaces the "#" copy marker of an item mask with k.
// MaxItemCopies bounds the rows a single catalog match expands into when
// the item mask numbers its copies.
const MaxItemCopies int64 = 10000

// itemCopies returns how many numbered rows a match emits. Without a "#" in
// the mask every copy is the same BOM line, so one row is emitted.
func itemCopies(mask string, mult int64) (int64, []ir.Diagnostic) {
	if !strings.Contains(mask, "#") {
		return min(mult, 1), nil
	}
	if mult > MaxItemCopies {
		return MaxItemCopies, []ir.Diagnostic{{
			Code:    ir.DiagMultiplierCapped,
			Message: fmt.Sprintf("multiplier %d exceeds %d numbered copies", mult, MaxItemCopies),
		}}
	}
	return mult, nil
}

func expandItem(mask string, k int64) string {
	return strings.ReplaceAll(mask, "#", strconv.FormatInt(k, 10))
}

func dedupeDiagnostics(diags []ir.Diagnostic) []ir.Diagnostic {
	if len(diags) == 0 {
		return nil
	}
	seen := make(map[ir.Diagnostic]bool, len(diags))
	var out []ir.Diagnostic
	for _, d := range diags {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
