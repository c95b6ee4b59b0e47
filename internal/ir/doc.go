// Package ir provides the data model shared by every partsel package.
//
// This package contains type definitions only, plus the canonical JSON and
// digest helpers used to prove determinism. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - catalog ratings and answers use int64 or
//     digit strings so comparisons are exact and reproducible
//   - Rule order in a RuleStore is the evaluation order and never changes
//   - Directives and selectors are closed variants, resolved at compile time
//   - All JSON tags use snake_case
package ir
