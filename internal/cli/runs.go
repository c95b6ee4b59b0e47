package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/partsel/internal/catalog"
	"github.com/roach88/partsel/internal/engine"
	"github.com/roach88/partsel/internal/store"
)

// RunsOptions holds flags for the runs commands.
type RunsOptions struct {
	*RootOptions
	Database       string
	Catalog        string
	CatalogPattern string
	RunID          string // verify: optional - specific run only
}

// RunSummary is one line of "runs list".
type RunSummary struct {
	Seq          int64  `json:"seq"`
	ID           string `json:"id"`
	RulesSource  string `json:"rules_source,omitempty"`
	Rows         int    `json:"rows"`
	ResultDigest string `json:"result_digest"`
}

// VerifyResult holds the outcome of "runs verify".
type VerifyResult struct {
	Runs     []store.Verification `json:"runs"`
	Total    int                  `json:"total"`
	AllMatch bool                 `json:"all_match"`
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and verify stored evaluation runs",
		Long: `Inspect the run log written by "evaluate --save" and verify that stored
runs still reproduce with the current rules and catalog.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored runs in insert order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(opts, cmd)
		},
	}

	showCmd := &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show a stored run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(opts, args[0], cmd)
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <rules>",
		Short: "Re-evaluate stored runs and compare result digests",
		Long: `Re-evaluate stored runs with the given rules and compare each fresh
result digest with the stored one.

Evaluation is deterministic, so a mismatch means the rules or the catalog
changed since the run was saved. The catalog is read from --catalog, or
from the tables stored in --db.

Exit codes:
  0 - All runs reproduce
  1 - At least one run does not reproduce
  2 - Command error (database not found, run not found, etc.)

Examples:
  partsel runs verify ./rules --db partsel.db
  partsel runs verify ./rules --db partsel.db --run 0190a3c2-...
  partsel runs verify ./rules --db partsel.db --catalog ./tables --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsVerify(opts, args[0], cmd)
		},
	}
	verifyCmd.Flags().StringVar(&opts.RunID, "run", "", "verify this run only")
	verifyCmd.Flags().StringVar(&opts.Catalog, "catalog", "", "catalog YAML file or directory of CSV tables")
	verifyCmd.Flags().StringVar(&opts.CatalogPattern, "catalog-pattern", catalog.DefaultCSVPattern, "glob selecting CSV tables in a catalog directory")

	cmd.AddCommand(listCmd, showCmd, verifyCmd)
	return cmd
}

func runRunsList(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{
			Seq:          r.Seq,
			ID:           r.ID,
			RulesSource:  r.RulesSource,
			Rows:         len(r.BOM),
			ResultDigest: r.ResultDigest,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tROWS\tRESULT\tRULES")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", s.Seq, s.ID, s.Rows, shortDigest(s.ResultDigest), s.RulesSource)
	}
	return tw.Flush()
}

func runRunsShow(opts *RunsOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer st.Close()

	run, err := st.ReadRun(cmd.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", id))
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(run)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (seq %d)\n", run.ID, run.Seq)
	if run.RulesSource != "" {
		fmt.Fprintf(w, "Rules: %s\n", run.RulesSource)
	}
	if run.BaseBrand != "" {
		fmt.Fprintf(w, "Base brand: %s\n", run.BaseBrand)
	}
	fmt.Fprintf(w, "Engine: %s, schema %s\n\n", run.EngineVersion, run.SchemaVersion)
	printEvaluateText(w, EvaluateResult{BOM: run.BOM, Totals: run.Totals, Digest: run.ResultDigest})
	return nil
}

func runRunsVerify(opts *RunsOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	loaded, errs := LoadRules(rulesPath, LoadModeFailFast)
	if len(errs) > 0 {
		code, message := parseCompileError(errs[0])
		return formatter.Fail(ExitCommandError, code, message)
	}

	inputs := EvalInputs{Catalog: opts.Catalog, CatalogPattern: opts.CatalogPattern, Database: opts.Database}
	cat, err := inputs.loadCatalog(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error())
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer st.Close()

	ids := []string{opts.RunID}
	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
		}
		ids = ids[:0]
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
	}

	result := VerifyResult{Runs: []store.Verification{}, AllMatch: true}
	for _, id := range ids {
		v, err := st.VerifyRun(ctx, id, loaded.Rules, cat, engine.WithLogger(slog.Default()))
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", id))
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
		}
		if !v.Match {
			result.AllMatch = false
			slog.Warn("run does not reproduce", "run_id", id,
				"expected", v.ExpectedDigest, "actual", v.ActualDigest, "catalog_changed", v.CatalogChanged)
		}
		result.Runs = append(result.Runs, v)
	}
	result.Total = len(result.Runs)

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.AllMatch {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeGeneric, Message: "stored runs do not reproduce"}
		}
		if err := writeIndentedJSON(formatter.Writer, response); err != nil {
			return err
		}
	} else {
		printVerifyText(formatter, result)
	}

	if !result.AllMatch {
		return NewExitError(ExitFailure, "stored runs do not reproduce")
	}
	return nil
}

func printVerifyText(formatter *OutputFormatter, result VerifyResult) {
	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No runs to verify.")
		return
	}
	for _, v := range result.Runs {
		if v.Match {
			fmt.Fprintf(w, "\u2713 %s (%d row(s))\n", v.RunID, v.ActualRows)
			continue
		}
		fmt.Fprintf(w, "\u2717 %s: digest %s, stored %s (%d row(s), stored %d)\n",
			v.RunID, shortDigest(v.ActualDigest), shortDigest(v.ExpectedDigest), v.ActualRows, v.ExpectedRows)
		if v.CatalogChanged {
			fmt.Fprintln(w, "  catalog changed since the run was saved")
		}
	}
	fmt.Fprintln(w)
	if result.AllMatch {
		fmt.Fprintf(w, "\u2713 All %d run(s) reproduce\n", result.Total)
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
