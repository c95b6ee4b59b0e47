package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/partsel/internal/engine"
	"github.com/roach88/partsel/internal/ir"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Inputs EvalInputs
	Rule   string // optional - filter to one rule
	Status string // optional - filter to one status
}

// TraceResult holds the trace output.
type TraceResult struct {
	Entries []ir.TraceEntry `json:"entries"`
	Stats   TraceStats      `json:"stats"`
}

// TraceStats holds per-status counts over the whole trace.
type TraceStats struct {
	Rules       int            `json:"rules"`
	Rows        int            `json:"rows"`
	Diagnostics int            `json:"diagnostics"`
	ByStatus    map[string]int `json:"by_status"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <rules>",
		Short: "Explain what each rule did",
		Long: `Evaluate rules and print the per-rule trace: the question, the
decision taken, the outcome (matched, declined, suppressed, norm_filtered,
no_catalog_row, excluded, counters_only), the table that matched and any
diagnostics explaining a smaller-than-expected BOM.

Examples:
  partsel trace rules.cue --catalog catalog.yaml --answers project.yaml
  partsel trace rules.cue --catalog catalog.yaml --rule main-breaker
  partsel trace rules.cue --db partsel.db --status no_catalog_row --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	opts.Inputs.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "show only this rule")
	cmd.Flags().StringVar(&opts.Status, "status", "", "show only rules with this status")

	return cmd
}

func runTrace(opts *TraceOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, errs := LoadRules(rulesPath, LoadModeFailFast)
	if len(errs) > 0 {
		code, message := parseCompileError(errs[0])
		return formatter.Fail(ExitCommandError, code, message)
	}
	cat, err := opts.Inputs.loadCatalog(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error())
	}
	answers, err := LoadAnswers(opts.Inputs.Answers)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeAnswers, err.Error())
	}

	res, err := engine.New(opts.Inputs.engineOptions(slog.Default())...).Evaluate(loaded.Rules, cat, answers)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEvaluate, err.Error())
	}

	result := TraceResult{
		Entries: filterTrace(res.Trace, opts.Rule, opts.Status),
		Stats:   traceStats(res.Trace),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No matching trace entries.")
		return nil
	}
	printTrace(w, result.Entries)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d rule(s), %d row(s), %d diagnostic(s)\n",
		result.Stats.Rules, result.Stats.Rows, result.Stats.Diagnostics)
	return nil
}

// filterTrace keeps the entries matching rule and status; empty filters
// match everything.
func filterTrace(trace []ir.TraceEntry, rule, status string) []ir.TraceEntry {
	out := []ir.TraceEntry{}
	for _, e := range trace {
		if rule != "" && e.Rule != rule {
			continue
		}
		if status != "" && string(e.Status) != status {
			continue
		}
		out = append(out, e)
	}
	return out
}

func traceStats(trace []ir.TraceEntry) TraceStats {
	stats := TraceStats{Rules: len(trace), ByStatus: map[string]int{}}
	for _, e := range trace {
		stats.Rows += e.Rows
		stats.Diagnostics += len(e.Diagnostics)
		stats.ByStatus[string(e.Status)]++
	}
	return stats
}

// printTrace prints one block per trace entry.
func printTrace(w io.Writer, trace []ir.TraceEntry) {
	fmt.Fprintln(w, "Trace:")
	for _, e := range trace {
		line := fmt.Sprintf("  %s [%s] %s -> %s", e.Rule, e.Question, e.Decision, e.Status)
		var extra []string
		if e.Table != "" {
			extra = append(extra, "table="+e.Table)
		}
		if e.Rows > 0 {
			extra = append(extra, fmt.Sprintf("rows=%d", e.Rows))
		}
		if e.Multiplier > 1 {
			extra = append(extra, fmt.Sprintf("x%d", e.Multiplier))
		}
		if len(extra) > 0 {
			line += " (" + strings.Join(extra, ", ") + ")"
		}
		fmt.Fprintln(w, line)
		if e.Detail != "" {
			fmt.Fprintf(w, "      %s\n", e.Detail)
		}
		for _, d := range e.Diagnostics {
			fmt.Fprintf(w, "      %s: %s\n", d.Code, d.Message)
		}
	}
}
