package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/partsel/internal/ir"
	"github.com/roach88/partsel/internal/queryir"
)

// RowColumns is the column list of every compiled query, in scan order.
const RowColumns = "table_name, seq, columns, cells"

// SQLCompiler compiles queryir selects to parameterized SQLite queries over
// the catalog_rows table.
//
// Every query ends with ORDER BY table_name, seq so results follow catalog
// order. Values and JSON paths are always parameters, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a select to SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(sel queryir.Select) (string, []any, error) {
	if errs := queryir.Validate(sel); len(errs) > 0 {
		return "", nil, fmt.Errorf("invalid query: %w", errs[0])
	}

	var (
		where  []string
		params []any
	)
	if sel.Table != "" {
		where = append(where, "table_name = ?")
		params = append(params, strings.TrimSpace(sel.Table))
	}
	if sel.Filter != nil {
		sql, filterParams, err := c.compilePredicate(sel.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = append(where, sql)
		params = append(params, filterParams...)
	}

	var b strings.Builder
	b.WriteString("SELECT " + RowColumns + " FROM catalog_rows")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	// MANDATORY: deterministic order
	b.WriteString(" ORDER BY table_name COLLATE BINARY ASC, seq ASC")
	if sel.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, sel.Limit)
	}
	return b.String(), params, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.Contains:
		return c.compileContains(pred)
	case *queryir.Contains:
		return c.compileContains(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate. A missing column yields NULL,
// which never compares equal.
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	return "json_extract(cells, ?) = ? COLLATE NOCASE", []any{cellPath(eq.Column), strings.TrimSpace(eq.Value)}, nil
}

// compileContains compiles a Contains predicate with instr over upper-cased
// text.
func (c *SQLCompiler) compileContains(ct queryir.Contains) (string, []any, error) {
	return "instr(upper(json_extract(cells, ?)), upper(?)) > 0", []any{cellPath(ct.Column), strings.TrimSpace(ct.Value)}, nil
}

// compileAnd compiles an And predicate to conjunction with AND.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	return "(" + strings.Join(sqlParts, " AND ") + ")", allParams, nil
}

// cellPath is the JSON path of a column in the cells object. The key is
// quoted so column names with spaces or dots stay one path step.
func cellPath(column string) string {
	key := ir.ColumnKey(column)
	key = strings.ReplaceAll(key, `\`, `\\`)
	key = strings.ReplaceAll(key, `"`, `\"`)
	return `$."` + key + `"`
}
