package ir

import "sort"

// OutputRow is one BOM line.
type OutputRow struct {
	Item        string `json:"item"`
	Code        string `json:"code"`
	Model       string `json:"model"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ICC240      string `json:"icc_240"`
	ICC480      string `json:"icc_480"`
	Reference   string `json:"reference"`
	Torque      string `json:"torque"`
	Quantity    int64  `json:"quantity"`

	// Provenance: every row traces to exactly one (Rule, Alternative).
	// Alternative is 1-based; 0 marks a rule-level row without alternatives.
	Rule        string `json:"rule"`
	Alternative int    `json:"alternative"`
	Table       string `json:"table,omitempty"`
}

// Field returns the value of an output column.
func (o OutputRow) Field(col string) string {
	switch CanonicalColumn(col) {
	case ColCode:
		return o.Code
	case ColModel:
		return o.Model
	case ColName:
		return o.Name
	case ColDescription:
		return o.Description
	case ColICC240:
		return o.ICC240
	case ColICC480:
		return o.ICC480
	case ColReference:
		return o.Reference
	case ColTorque:
		return o.Torque
	default:
		return ""
	}
}

// SetField assigns an output column. Unknown columns are ignored.
func (o *OutputRow) SetField(col, value string) {
	switch CanonicalColumn(col) {
	case ColCode:
		o.Code = value
	case ColModel:
		o.Model = value
	case ColName:
		o.Name = value
	case ColDescription:
		o.Description = value
	case ColICC240:
		o.ICC240 = value
	case ColICC480:
		o.ICC480 = value
	case ColReference:
		o.Reference = value
	case ColTorque:
		o.Torque = value
	}
}

// CanonicalObject returns the row as a map for canonical JSON. Every
// field is present so that an empty cell and a missing one hash alike.
func (o OutputRow) CanonicalObject() map[string]any {
	return map[string]any{
		"item":        o.Item,
		"code":        o.Code,
		"model":       o.Model,
		"name":        o.Name,
		"description": o.Description,
		"icc_240":     o.ICC240,
		"icc_480":     o.ICC480,
		"reference":   o.Reference,
		"torque":      o.Torque,
		"quantity":    o.Quantity,
		"rule":        o.Rule,
		"alternative": o.Alternative,
		"table":       o.Table,
	}
}

// Totals holds named incidental counters (terminal blocks per phase,
// neutral and ground, ...).
type Totals map[string]int64

// Common counter names.
const (
	CounterPhase   = "phase"
	CounterNeutral = "neutral"
	CounterGround  = "ground"
)

// Add accumulates delta into the named counter.
func (t Totals) Add(name string, delta int64) {
	t[name] += delta
}

// Keys returns counter names sorted for deterministic iteration.
func (t Totals) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (t Totals) Clone() Totals {
	cp := make(Totals, len(t))
	for k, v := range t {
		cp[k] = v
	}
	return cp
}
