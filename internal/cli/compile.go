package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/partsel/internal/compiler"
	"github.com/roach88/partsel/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled rule store and its provenance.
type CompilationResult struct {
	Rules  []ir.Rule `json:"rules"`
	Files  []string  `json:"files"`
	Digest string    `json:"digest"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	RuleCount        int
	AlternativeCount int
	MalformedCount   int
	CounterRules     int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <rules>",
		Short: "Compile CUE rules to the JSON rule store",
		Long: `Compile a CUE rule file (or a directory of CUE rule files) into the
JSON rule store the engine evaluates: one entry per rule in evaluation
order, with every condition expression already parsed.

Malformed expressions do not fail compilation; they are kept with a
MALFORMED_EXPRESSION diagnostic and never match.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Use shared loader with collect-all mode
	loadResult, loadErrors := LoadRules(rulesPath, LoadModeCollectAll)

	// Handle load errors (path not found, no files, syntax errors)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message)
	}

	formatter.VerboseLog("Found %d rule file(s) in %s", loadResult.FileCount, rulesPath)
	for _, rule := range loadResult.Rules.Rules {
		formatter.VerboseLog("Compiled rule: %s (%d alternative(s))", rule.Name, len(rule.Alternatives))
	}

	// Handle compilation errors
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{
		Rules:  loadResult.Rules.Rules,
		Files:  loadResult.Files,
		Digest: loadResult.Digest,
	}
	stats := calculateStats(loadResult.Rules)

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, stats, opts.Output)
}

// calculateStats computes summary statistics from a compiled store.
func calculateStats(store *ir.RuleStore) CompilationStats {
	stats := CompilationStats{RuleCount: store.Len()}
	for _, rule := range store.Rules {
		stats.AlternativeCount += len(rule.Alternatives)
		for _, alt := range rule.Alternatives {
			if alt.Expr.Malformed() {
				stats.MalformedCount++
			}
		}
		if len(rule.Counters) > 0 {
			stats.CounterRules++
		}
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "\u2713 Compiled %d rule(s), %d alternative(s)\n\n",
		stats.RuleCount, stats.AlternativeCount)

	fmt.Fprintln(formatter.Writer, "Rules:")
	for _, rule := range result.Rules {
		fmt.Fprintf(formatter.Writer, "  %s: %s, %d alternative(s)\n",
			rule.Name, rule.Question, len(rule.Alternatives))
	}
	fmt.Fprintln(formatter.Writer)

	if stats.MalformedCount > 0 {
		fmt.Fprintf(formatter.Writer, "%d malformed expression(s); run validate for details\n", stats.MalformedCount)
	}
	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote rule store to %s\n", outputFile)
	}
	return nil
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		if err := writeIndentedJSON(formatter.Writer, response); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "\u2717 Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the compilation result as indented JSON.
func writeIRToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling rule store: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
