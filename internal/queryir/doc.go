// Package queryir provides a small query representation for looking up rows
// in the stored catalog.
//
// A Select names one catalog table and filters its rows with predicates
// over cell values:
//
//	Select{
//	  Table: "ACME",
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Column: "MODEL", Value: "MB-200"},
//	    Contains{Column: "NORMA", Value: "UL"},
//	  }},
//	}
//
// Backends (see querysql) compile a Select into their own query language.
// Every backend returns rows in table order, then in catalog order within a
// table, so the same query over the same catalog always yields the same
// rows.
//
// # Sealed interfaces
//
// Predicate is sealed with a marker method: only types in this package
// implement it, so backends can switch over every predicate exhaustively.
//
// # Matching
//
// Column names are compared after ir.ColumnKey. Cell values are compared
// with their stored (trimmed) text, ignoring ASCII case. This is a lookup
// aid for catalog maintenance; rule evaluation uses the condition matcher
// in package engine, which also folds accents and inner whitespace.
package queryir
