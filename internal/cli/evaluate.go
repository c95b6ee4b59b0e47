package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/partsel/internal/engine"
	"github.com/roach88/partsel/internal/ir"
	"github.com/roach88/partsel/internal/store"
)

// EvaluateOptions holds flags for the evaluate command.
type EvaluateOptions struct {
	*RootOptions
	Inputs   EvalInputs
	Save     bool
	ByCode   bool
	Watch    bool
	Debounce time.Duration

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// EvaluateResult is the output of one evaluation.
type EvaluateResult struct {
	BOM    []ir.OutputRow  `json:"bom"`
	Totals ir.Totals       `json:"totals"`
	Digest string          `json:"digest"`
	RunID  string          `json:"run_id,omitempty"`
	Trace  []ir.TraceEntry `json:"trace,omitempty"` // verbose only
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvaluateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "evaluate <rules>",
		Short: "Build a BOM from rules, catalog and answers",
		Long: `Evaluate a rule file (or a directory of CUE rule files) against a
catalog and the project's answers, and print the resulting bill of
materials and incidental counters.

The catalog is read from --catalog (YAML file or directory of CSV tables)
or from the tables imported into --db. With --save the run is recorded in
the --db run log and can later be checked with "runs verify".

With --watch the rules, catalog and answers are watched and the BOM is
re-evaluated after every change until interrupted.

Examples:
  partsel evaluate rules.cue --catalog catalog.yaml --answers project.yaml
  partsel evaluate ./rules --db partsel.db --answers project.yaml --save
  partsel evaluate ./rules --catalog ./tables --answers project.yaml --watch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(opts, args[0], cmd)
		},
	}

	opts.Inputs.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.Save, "save", false, "record the run in the --db run log")
	cmd.Flags().BoolVar(&opts.ByCode, "by-code", false, "group BOM rows by catalog code")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-evaluate when inputs change")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "delay before re-evaluating in watch mode")

	return cmd
}

func runEvaluate(opts *EvaluateOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Save && opts.Inputs.Database == "" {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "--save requires --db")
	}

	if !opts.Watch {
		return evaluateOnce(cmd.Context(), opts, rulesPath, formatter)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reevaluate := func() {
		if err := evaluateOnce(ctx, opts, rulesPath, formatter); err != nil {
			slog.Error("evaluation failed", "error", err)
		}
	}
	reevaluate()

	targets := []string{rulesPath, opts.Inputs.Catalog, opts.Inputs.Answers}
	if err := WatchFiles(ctx, targets, opts.Debounce, slog.Default(), reevaluate); err != nil {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}

// evaluateOnce loads every input, evaluates and prints the result.
func evaluateOnce(ctx context.Context, opts *EvaluateOptions, rulesPath string, formatter *OutputFormatter) error {
	if ctx == nil {
		ctx = context.Background()
	}

	loaded, errs := LoadRules(rulesPath, LoadModeFailFast)
	if len(errs) > 0 {
		code, message := parseCompileError(errs[0])
		return formatter.Fail(ExitCommandError, code, message)
	}
	formatter.VerboseLog("Loaded %d rule(s) from %d file(s)", loaded.Rules.Len(), loaded.FileCount)

	cat, err := opts.Inputs.loadCatalog(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error())
	}
	answers, err := LoadAnswers(opts.Inputs.Answers)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeAnswers, err.Error())
	}

	eng := engine.New(opts.Inputs.engineOptions(slog.Default())...)
	res, err := eng.Evaluate(loaded.Rules, cat, answers)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEvaluate, err.Error())
	}

	digest, err := res.Digest()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEvaluate, err.Error())
	}

	out := EvaluateResult{BOM: res.BOM, Totals: res.Totals, Digest: digest}
	if opts.ByCode {
		out.BOM = res.ByCode()
	}
	if opts.Verbose {
		out.Trace = res.Trace
	}

	if opts.Save {
		gen := opts.RunIDs
		if gen == nil {
			gen = store.UUIDv7Generator{}
		}
		runID, err := saveRun(ctx, opts, gen.Generate(), loaded, res, answers, cat)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
		}
		out.RunID = runID
		slog.Info("run saved", "run_id", runID, "db", opts.Inputs.Database)
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	printEvaluateText(formatter.Writer, out)
	return nil
}

// digester is implemented by catalogs that can identify their content.
type digester interface {
	Digest() (string, error)
}

func saveRun(ctx context.Context, opts *EvaluateOptions, id string, loaded *LoadResult, res *engine.Result, answers *engine.MapAnswers, cat engine.CatalogProvider) (string, error) {
	run, err := store.NewRun(id, res, answers.Map())
	if err != nil {
		return "", err
	}
	run.RulesSource = loadedSource(loaded)
	run.RulesDigest = loaded.Digest
	run.BaseBrand = opts.Inputs.BaseBrand
	run.Variables = opts.Inputs.Variables
	if d, ok := cat.(digester); ok {
		if run.CatalogDigest, err = d.Digest(); err != nil {
			return "", err
		}
	}

	st, err := store.Open(opts.Inputs.Database)
	if err != nil {
		return "", err
	}
	defer st.Close()

	if _, err := st.WriteRun(ctx, run); err != nil {
		return "", err
	}
	return run.ID, nil
}

func loadedSource(loaded *LoadResult) string {
	if len(loaded.Files) == 1 {
		return loaded.Files[0]
	}
	if len(loaded.Files) > 0 {
		return fmt.Sprintf("%s (+%d files)", loaded.Files[0], len(loaded.Files)-1)
	}
	return ""
}

// printEvaluateText prints the BOM as an aligned table followed by the
// counters.
func printEvaluateText(w io.Writer, out EvaluateResult) {
	if len(out.BOM) == 0 {
		fmt.Fprintln(w, "BOM is empty")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ITEM\tCODE\tMODEL\tNAME\tQTY\tRULE")
		for _, row := range out.BOM {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s#%d\n",
				row.Item, row.Code, row.Model, row.Name, row.Quantity, row.Rule, row.Alternative)
		}
		tw.Flush()
	}

	if len(out.Totals) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Counters:")
		for _, name := range out.Totals.Keys() {
			fmt.Fprintf(w, "  %s: %d\n", name, out.Totals[name])
		}
	}

	if len(out.Trace) > 0 {
		fmt.Fprintln(w)
		printTrace(w, out.Trace)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Digest: %s\n", out.Digest)
	if out.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", out.RunID)
	}
}
