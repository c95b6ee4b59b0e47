// Package catalog provides catalog tables to the engine.
//
// A catalog is a set of named tables (one per brand sheet) of parts. The
// in-memory Memory provider implements engine.CatalogProvider and can be
// filled from a directory of CSV files, a YAML document, or the SQLite
// store. Table lookup is forgiving: an exact name wins, then a
// normalized name (case and accents folded), then the first table whose
// normalized name contains the requested one.
package catalog
