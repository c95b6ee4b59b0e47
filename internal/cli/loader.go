package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/partsel/internal/compiler"
	"github.com/roach88/partsel/internal/ir"
)

// LoadMode controls how errors are handled during rule loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the rules loaded from a file or directory.
type LoadResult struct {
	Rules     *ir.RuleStore
	Files     []string // source files in load order
	Digest    string   // digest of the source files' content
	FileCount int
}

// LoadError represents an error that occurred during rule loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRules loads rules from a single CUE/JSON file or from a directory of
// CUE files (one CUE package).
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, every rule is compiled and all errors are
// returned together with the rules that did compile.
func LoadRules(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules: %v", err)}}
	}

	var (
		value cue.Value
		files []string
	)
	if info.IsDir() {
		value, files, err = buildDir(path)
	} else {
		files = []string{path}
		value, err = buildFile(path)
	}
	if err != nil {
		return nil, []error{err}
	}

	digest, err := sourceDigest(files)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: err.Error()}}
	}

	result := &LoadResult{Files: files, FileCount: len(files), Digest: digest}
	rules, errs := compileRules(value, mode)
	result.Rules = rules
	return result, errs
}

func buildFile(path string) (cue.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading rules: %v", err)}
	}
	value := cuecontext.New().CompileBytes(src, cue.Filename(path))
	if err := value.Err(); err != nil {
		return cue.Value{}, syntaxError(err)
	}
	return value, nil
}

// syntaxError converts a CUE error into a LoadError at its first position.
func syntaxError(err error) *LoadError {
	loadErr := &LoadError{Code: ErrCodeRuleSyntax, Message: err.Error()}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		loadErr.Message = errs[0].Error()
		if pos := cueerrors.Positions(errs[0]); len(pos) > 0 {
			loadErr.Pos = pos[0]
		}
	}
	return loadErr
}

func buildDir(dir string) (cue.Value, []string, error) {
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return cue.Value{}, nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, cueFiles, nil
}

// compileRules compiles every field of the "rule" struct in declaration
// order.
func compileRules(value cue.Value, mode LoadMode) (*ir.RuleStore, []error) {
	rulesVal := value.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return ir.NewRuleStore(), []error{&LoadError{Code: ErrCodeGeneric, Message: "no rules found"}}
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return ir.NewRuleStore(), []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating rules: %v", err)}}
	}

	var (
		rules []ir.Rule
		errs  []error
	)
	for iter.Next() {
		rule, err := compiler.CompileRule(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "rule."+iter.Label()))
			if mode == LoadModeFailFast {
				return ir.NewRuleStore(rules...), errs
			}
			continue
		}
		rules = append(rules, *rule)
	}

	if len(rules) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no rules found"})
	}
	return ir.NewRuleStore(rules...), errs
}

// FindCUEFiles walks the directory and returns all .cue file paths in
// lexical order.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// sourceDigest identifies a rule set by the content of its files.
func sourceDigest(files []string) (string, error) {
	content := make(map[string]string, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", f, err)
		}
		content[filepath.Base(f)] = string(data)
	}
	return ir.Digest(ir.DomainRules, content)
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeCatalog     = "E008" // Catalog load failed
	ErrCodeAnswers     = "E009" // Answers file invalid
	ErrCodeDatabase    = "E010" // Database error
	ErrCodeEvaluate    = "E011" // Evaluation contract error

	// Rule compile errors
	ErrCodeRuleSyntax     = "E101" // CUE syntax or unification error
	ErrCodeRuleQuestion   = "E102" // Missing or non-string question
	ErrCodeRuleField      = "E103" // Unknown or mistyped rule field
	ErrCodeInvalidAlt     = "E110" // Invalid alternative
	ErrCodeInvalidCounter = "E111" // Invalid counter
	ErrCodeInvalidExport  = "E112" // Invalid export
)

// MapFieldToErrorCode maps a compiler error field to an error code.
// Fields look like "cue" or "rule.<name>.<field>...".
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeRuleSyntax
	case !strings.HasPrefix(field, "rule."):
		return ErrCodeGeneric
	case strings.Contains(field, ".exports."):
		return ErrCodeInvalidExport
	case strings.Contains(field, ".counters."):
		return ErrCodeInvalidCounter
	case strings.Contains(field, ".alternatives["):
		return ErrCodeInvalidAlt
	case strings.HasSuffix(field, ".question"):
		return ErrCodeRuleQuestion
	default:
		return ErrCodeRuleField
	}
}
