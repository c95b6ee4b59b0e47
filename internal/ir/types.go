package ir

import (
	"fmt"
	"strings"
)

// Norm identifies the regulatory variant a project is built for.
type Norm string

const (
	// NormIEC is the default norm when a project does not select one.
	NormIEC Norm = "IEC"
	// NormUL selects the UL-listed variant of a part.
	NormUL Norm = "UL"
)

// ParseNorm converts free text into a Norm.
// Empty text returns NormIEC; unknown text returns an error.
func ParseNorm(s string) (Norm, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "IEC":
		return NormIEC, nil
	case "UL":
		return NormUL, nil
	default:
		return "", fmt.Errorf("unknown norm %q (want UL or IEC)", s)
	}
}

// Decision is the tri-state outcome of a yes/no question.
type Decision int

const (
	// DecisionAbsent means the project did not answer the question.
	DecisionAbsent Decision = iota
	DecisionYes
	DecisionNo
)

func (d Decision) String() string {
	switch d {
	case DecisionYes:
		return "yes"
	case DecisionNo:
		return "no"
	default:
		return "absent"
	}
}

// DirectiveKind tags the Directive variant.
type DirectiveKind string

const (
	DirectiveKeep     DirectiveKind = "keep"
	DirectiveSuppress DirectiveKind = "suppress"
	DirectiveBrand    DirectiveKind = "brand"
)

// Directive is the per-branch override of a rule.
// Brand is only set when Kind is DirectiveBrand.
type Directive struct {
	Kind  DirectiveKind `json:"kind"`
	Brand string        `json:"brand,omitempty"`
}

// Keep returns the "keep default" directive.
func Keep() Directive { return Directive{Kind: DirectiveKeep} }

// Suppress returns the "emit nothing" directive.
func Suppress() Directive { return Directive{Kind: DirectiveSuppress} }

// BrandDirective returns a directive that switches the catalog table.
func BrandDirective(name string) Directive {
	return Directive{Kind: DirectiveBrand, Brand: name}
}

// IsSuppress reports whether the directive suppresses the rule.
func (d Directive) IsSuppress() bool { return d.Kind == DirectiveSuppress }

func (d Directive) String() string {
	if d.Kind == DirectiveBrand {
		return "brand(" + d.Brand + ")"
	}
	return string(d.Kind)
}

// SelectorKind tags the Selector variant.
type SelectorKind string

const (
	// SelectorLiteral compares the cell with Value (exact, normalized).
	SelectorLiteral SelectorKind = "literal"
	// SelectorWildcard matches any cell, including empty cells.
	SelectorWildcard SelectorKind = "wildcard"
	// SelectorPlaceholder compares the cell (>=) with a dynamic variable.
	SelectorPlaceholder SelectorKind = "placeholder"
	// SelectorNorm matches rows certified for the project's active norm.
	SelectorNorm SelectorKind = "norm"
	// SelectorAnswer compares the cell digits with a numeric project answer.
	SelectorAnswer SelectorKind = "answer"
)

// Selector is the right-hand side of a Condition.
// Value holds the literal text for SelectorLiteral and the variable or
// question name for SelectorPlaceholder and SelectorAnswer.
type Selector struct {
	Kind  SelectorKind `json:"kind"`
	Value string       `json:"value,omitempty"`
}

func (s Selector) String() string {
	switch s.Kind {
	case SelectorWildcard:
		return "*"
	case SelectorPlaceholder:
		return "@" + s.Value
	case SelectorNorm:
		return "<norm>"
	case SelectorAnswer:
		return s.Value + ":"
	default:
		return fmt.Sprintf("%q", s.Value)
	}
}

// Condition is one ATTR(selector) term of an expression.
type Condition struct {
	Attribute string   `json:"attribute"`
	Selector  Selector `json:"selector"`
}

// MultiplierKind tags the MultiplierSpec variant.
type MultiplierKind string

const (
	MultiplierNone     MultiplierKind = ""
	MultiplierFixed    MultiplierKind = "fixed"
	MultiplierExternal MultiplierKind = "external"
)

// MultiplierSpec describes how many copies an alternative emits.
// Question is filled by the compiler for external specs.
type MultiplierSpec struct {
	Kind     MultiplierKind `json:"kind,omitempty"`
	Fixed    int64          `json:"fixed,omitempty"`
	Question string         `json:"question,omitempty"`
}

// Expression is a parsed condition text.
type Expression struct {
	Raw         string         `json:"raw"`
	Conditions  []Condition    `json:"conditions"`
	Columns     []string       `json:"columns,omitempty"` // empty = all output columns
	Multiplier  MultiplierSpec `json:"multiplier"`
	Norms       []Norm         `json:"norms,omitempty"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
}

// HasPlaceholder reports whether any condition resolves a dynamic variable.
func (e Expression) HasPlaceholder() bool {
	for _, c := range e.Conditions {
		if c.Selector.Kind == SelectorPlaceholder {
			return true
		}
	}
	return false
}

// BrandAttributes name conditions that select a catalog table. A row that
// has no such column compares the condition with its table name instead.
var BrandAttributes = map[string]bool{"BRAND": true, "MARCA": true}

// BrandHint returns the literal of the first brand condition, or "".
func (e Expression) BrandHint() string {
	for _, c := range e.Conditions {
		if BrandAttributes[c.Attribute] && c.Selector.Kind == SelectorLiteral {
			return c.Selector.Value
		}
	}
	return ""
}

// Malformed reports whether parsing degraded the expression.
func (e Expression) Malformed() bool {
	for _, d := range e.Diagnostics {
		if d.Code == DiagMalformedExpression {
			return true
		}
	}
	return false
}

// Alternative is one way of satisfying a rule.
type Alternative struct {
	Expr               Expression        `json:"expr"`
	Norm               Norm              `json:"norm,omitempty"` // empty = untagged
	Brand              string            `json:"brand,omitempty"`
	MultiplierQuestion string            `json:"multiplier_question,omitempty"`
	Counters           map[string]int64  `json:"counters,omitempty"`
	Exports            map[string]string `json:"exports,omitempty"` // variable -> column
	AllowMulti         bool              `json:"allow_multi,omitempty"`
}

// Rule ties a question to the alternatives it selects from.
type Rule struct {
	Name               string           `json:"name"`
	Title              string           `json:"title,omitempty"`
	Question           string           `json:"question"`
	Always             bool             `json:"always,omitempty"`
	ItemYes            string           `json:"item_yes,omitempty"`
	ItemNo             string           `json:"item_no,omitempty"`
	OnYes              Directive        `json:"on_yes"`
	OnNo               Directive        `json:"on_no"`
	Brand              string           `json:"brand,omitempty"`
	MultiplierQuestion string           `json:"multiplier_question,omitempty"`
	Counters           map[string]int64 `json:"counters,omitempty"`
	Alternatives       []Alternative    `json:"alternatives"`
}

// DisplayName returns the name shown in BOM rows for this rule.
func (r Rule) DisplayName() string {
	switch {
	case r.Title != "":
		return r.Title
	case r.Question != "":
		return r.Question
	default:
		return r.Name
	}
}

// RuleStore is the ordered, read-only collection of rules.
// The slice order is the evaluation order.
type RuleStore struct {
	Rules []Rule `json:"rules"`
}

// NewRuleStore copies rules into a new store so later mutation of the
// caller's slice cannot reorder evaluation.
func NewRuleStore(rules ...Rule) *RuleStore {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &RuleStore{Rules: cp}
}

// Len returns the number of rules.
func (s *RuleStore) Len() int { return len(s.Rules) }

// Lookup returns the rule with the given name.
func (s *RuleStore) Lookup(name string) (Rule, bool) {
	for _, r := range s.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}
