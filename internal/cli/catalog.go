package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/partsel/internal/catalog"
	"github.com/roach88/partsel/internal/condition"
	"github.com/roach88/partsel/internal/queryir"
	"github.com/roach88/partsel/internal/store"
)

// CatalogOptions holds flags for the catalog commands.
type CatalogOptions struct {
	*RootOptions
	Database string
	Pattern  string

	// find
	Table string
	Where []string // COLUMN=value
	Expr  string
	Limit int
}

// CatalogImportResult reports an import.
type CatalogImportResult struct {
	Tables []string `json:"tables"`
	Rows   int      `json:"rows"`
	Digest string   `json:"digest"`
}

// CatalogTable is one stored table.
type CatalogTable struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage catalog tables stored in a database",
		Long: `Import catalog tables into a SQLite database and list them.

Commands that evaluate rules read the catalog from --db when --catalog
is not given.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	importCmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Replace the stored catalog with a YAML file or CSV directory",
		Long: `Replace the stored catalog with the tables read from path.

A directory is read as CSV tables, one table per file named after the
file; --pattern selects the files. Any other path is read as a YAML
document with a top-level "tables" map.

Examples:
  partsel catalog import ./tables --db partsel.db
  partsel catalog import catalog.yaml --db partsel.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogImport(opts, args[0], cmd)
		},
	}
	importCmd.Flags().StringVar(&opts.Pattern, "pattern", catalog.DefaultCSVPattern, "glob selecting CSV tables in a directory")

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored catalog tables",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogList(opts, cmd)
		},
	}

	findCmd := &cobra.Command{
		Use:   "find",
		Short: "Look up stored catalog rows",
		Long: `Look up rows in the stored catalog.

--where COLUMN=value keeps rows whose cell equals value (trimmed, ignoring
ASCII case) and may be repeated. --expr takes a condition expression such
as 'MODEL("MB-200") AMP(200)'; only literal and wildcard terms are
allowed. Rows are listed in table order, then catalog order.

Examples:
  partsel catalog find --db partsel.db --table ACME --where MODEL=MB-200
  partsel catalog find --db partsel.db --expr 'MODEL("MB-200")' --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogFind(opts, cmd)
		},
	}
	findCmd.Flags().StringVar(&opts.Table, "table", "", "only rows of this table")
	findCmd.Flags().StringArrayVar(&opts.Where, "where", nil, "COLUMN=value filter (repeatable)")
	findCmd.Flags().StringVar(&opts.Expr, "expr", "", "condition expression with literal terms")
	findCmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of rows (0 = all)")

	cmd.AddCommand(importCmd, listCmd, findCmd)
	return cmd
}

func runCatalogImport(opts *CatalogOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	mem, err := catalog.Load(path, opts.Pattern)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error())
	}
	digest, err := mem.Digest()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error())
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer st.Close()

	n, err := st.ImportCatalog(cmd.Context(), mem)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}

	result := CatalogImportResult{Tables: mem.Tables(), Rows: n, Digest: digest}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "\u2713 Imported %d row(s) in %d table(s) into %s\n", n, len(result.Tables), opts.Database)
	fmt.Fprintf(formatter.Writer, "Digest: %s\n", digest)
	return nil
}

func runCatalogList(opts *CatalogOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer st.Close()

	counts, err := st.CatalogTables(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}

	tables := make([]CatalogTable, 0, len(counts))
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		tables = append(tables, CatalogTable{Name: name, Rows: counts[name]})
	}

	if formatter.Format == "json" {
		return formatter.Success(tables)
	}
	if len(tables) == 0 {
		fmt.Fprintln(formatter.Writer, "No catalog tables.")
		return nil
	}
	for _, t := range tables {
		fmt.Fprintf(formatter.Writer, "  %s: %d row(s)\n", t.Name, t.Rows)
	}
	return nil
}

// buildFindQuery combines --expr and --where into one select.
func buildFindQuery(opts *CatalogOptions) (queryir.Select, error) {
	sel := queryir.Select{Table: opts.Table, Limit: opts.Limit}
	var preds []queryir.Predicate
	if opts.Expr != "" {
		fromExpr, err := queryir.FromExpression(opts.Table, condition.Parse(opts.Expr))
		if err != nil {
			return sel, err
		}
		if and, ok := fromExpr.Filter.(queryir.And); ok {
			preds = append(preds, and.Predicates...)
		}
	}
	for _, w := range opts.Where {
		col, val, ok := strings.Cut(w, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return sel, fmt.Errorf("invalid --where %q: want COLUMN=value", w)
		}
		preds = append(preds, queryir.Equals{Column: col, Value: val})
	}
	if len(preds) > 0 {
		sel.Filter = queryir.And{Predicates: preds}
	}
	return sel, nil
}

func runCatalogFind(opts *CatalogOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sel, err := buildFindQuery(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer st.Close()

	matches, err := st.FindCatalogRows(cmd.Context(), sel)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(formatter.Writer, "No matching rows.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	for _, m := range matches {
		cells := make([]string, 0, len(m.Row.Columns))
		for _, col := range m.Row.Columns {
			cells = append(cells, col+"="+m.Row.Cells[col])
		}
		fmt.Fprintf(tw, "%s[%d]\t%s\n", m.Table, m.Index, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
