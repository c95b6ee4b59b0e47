package ir

// TraceStatus is the per-rule outcome recorded in the trace.
type TraceStatus string

const (
	TraceMatched      TraceStatus = "matched"
	TraceNormFiltered TraceStatus = "norm_filtered"
	TraceSuppressed   TraceStatus = "suppressed"
	TraceDeclined     TraceStatus = "declined"
	TraceNoCatalogRow TraceStatus = "no_catalog_row"
	TraceExcluded     TraceStatus = "excluded"
	TraceCountersOnly TraceStatus = "counters_only"
)

// DiagnosticCode classifies a data-shape problem. Diagnostics never abort
// evaluation; they explain a smaller-than-expected BOM.
type DiagnosticCode string

const (
	DiagMalformedExpression   DiagnosticCode = "MALFORMED_EXPRESSION"
	DiagUnknownTable          DiagnosticCode = "UNKNOWN_TABLE"
	DiagUnresolvedPlaceholder DiagnosticCode = "UNRESOLVED_PLACEHOLDER"
	DiagAmbiguousMultiplier   DiagnosticCode = "AMBIGUOUS_MULTIPLIER"
	DiagMultiplierCapped      DiagnosticCode = "MULTIPLIER_CAPPED"
)

// Diagnostic is a warning attached to an expression or trace entry.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Message string         `json:"message"`
}

// TraceEntry records what happened to one rule. The trace is for logging
// and diagnosis only and never feeds back into the BOM.
type TraceEntry struct {
	Rule        string       `json:"rule"`
	Question    string       `json:"question"`
	Decision    string       `json:"decision"`
	Status      TraceStatus  `json:"status"`
	Table       string       `json:"table,omitempty"`
	Detail      string       `json:"detail,omitempty"`
	Multiplier  int64        `json:"multiplier,omitempty"`
	Rows        int          `json:"rows"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}
