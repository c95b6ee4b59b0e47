package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/partsel/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict    bool     // treat variable warnings as errors
	Variables []string // variables seeded at evaluation time
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Rules    int                        `json:"rules"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.VariableWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <rules>",
		Short: "Validate rules without evaluating them",
		Long: `Validate CUE rules without a catalog or answers.

Reports compile errors, rule store errors (duplicate names, empty
questions, malformed expressions, invalid norms, negative counters) and
placeholders that no earlier rule exports. Placeholder findings are
warnings unless --strict is set.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on placeholder warnings")
	cmd.Flags().StringSliceVar(&opts.Variables, "seed", nil, "variable seeded at evaluation time (repeatable)")

	return cmd
}

func runValidate(opts *ValidateOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	result, err := ValidateRules(rulesPath, opts.Variables...)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	for _, w := range result.Warnings {
		formatter.VerboseLog("%s: %s", w.Level, w.Message)
	}

	if opts.Strict {
		for _, w := range result.Warnings {
			if w.Level == "warning" {
				result.Valid = false
				break
			}
		}
	}

	if formatter.Format == "json" {
		return outputValidateJSON(formatter, result)
	}
	return outputValidateText(formatter, result)
}

// ValidateRules compiles and validates the rules at rulesPath. Compile
// errors of individual rules are reported as validation errors; only
// failures to read the rules at all are returned as an error.
func ValidateRules(rulesPath string, seeded ...string) (*ValidationResult, error) {
	loadResult, loadErrors := LoadRules(rulesPath, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	result := &ValidationResult{Rules: loadResult.Rules.Len()}
	for _, err := range loadErrors {
		verr := compiler.ValidationError{Field: "load", Code: ErrCodeGeneric, Message: err.Error()}
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			verr.Code = loadErr.Code
			verr.Message = loadErr.Message
			if loadErr.Pos.IsValid() {
				verr.Line = loadErr.Pos.Line()
			}
		}
		result.Errors = append(result.Errors, verr)
	}

	result.Errors = append(result.Errors, compiler.Validate(loadResult.Rules)...)
	result.Warnings = compiler.AnalyzeVariables(loadResult.Rules, seeded...)
	result.Valid = len(result.Errors) == 0
	return result, nil
}

func outputValidateJSON(formatter *OutputFormatter, result *ValidationResult) error {
	if result.Valid {
		return formatter.Success(result)
	}

	response := CLIResponse{Status: "error", Data: result}
	if len(result.Errors) > 0 {
		response.Error = &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message}
	} else if i := slices.IndexFunc(result.Warnings, func(w compiler.VariableWarning) bool { return w.Level == "warning" }); i >= 0 {
		response.Error = &CLIError{Code: ErrCodeGeneric, Message: result.Warnings[i].Message}
	}
	if err := writeIndentedJSON(formatter.Writer, response); err != nil {
		return err
	}
	// Validation failures = exit code 1
	return NewExitError(ExitFailure, validationSummary(result))
}

func outputValidateText(formatter *OutputFormatter, result *ValidationResult) error {
	w := formatter.Writer
	if result.Valid {
		fmt.Fprintf(w, "\u2713 All rules valid (%d rule(s))\n", result.Rules)
	} else {
		fmt.Fprintln(w, "\u2717 Validation failed")
	}
	fmt.Fprintln(w)

	for _, err := range result.Errors {
		if err.Line > 0 {
			fmt.Fprintf(w, "line %d\n", err.Line)
		}
		fmt.Fprintf(w, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  %s: %s\n", warn.Level, warn.Message)
	}

	if !result.Valid {
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, validationSummary(result))
	}
	return nil
}

func validationSummary(result *ValidationResult) string {
	return fmt.Sprintf("validation failed with %d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
}
