package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/partsel/internal/catalog"
	"github.com/roach88/partsel/internal/engine"
	"github.com/roach88/partsel/internal/store"
)

// EvalInputs holds the flags shared by commands that evaluate rules.
type EvalInputs struct {
	Catalog        string            // YAML file or CSV directory
	CatalogPattern string            // CSV glob when Catalog is a directory
	Database       string            // SQLite database (catalog source and run log)
	Answers        string            // YAML or JSON answers file
	BaseBrand      string            // default catalog table
	Variables      map[string]string // seeded placeholder values
}

func (in *EvalInputs) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&in.Catalog, "catalog", "", "catalog YAML file or directory of CSV tables")
	cmd.Flags().StringVar(&in.CatalogPattern, "catalog-pattern", catalog.DefaultCSVPattern, "glob selecting CSV tables in a catalog directory")
	cmd.Flags().StringVar(&in.Database, "db", "", "path to SQLite database (catalog source when --catalog is not set)")
	cmd.Flags().StringVarP(&in.Answers, "answers", "a", "", "project answers file (YAML or JSON)")
	cmd.Flags().StringVar(&in.BaseBrand, "base-brand", "", "default catalog table")
	cmd.Flags().StringToStringVar(&in.Variables, "var", nil, "seed a placeholder variable (NAME=value, repeatable)")
}

// loadCatalog reads the catalog from --catalog, falling back to the tables
// imported into --db.
func (in *EvalInputs) loadCatalog(ctx context.Context) (*catalog.Memory, error) {
	if in.Catalog != "" {
		return catalog.Load(in.Catalog, in.CatalogPattern)
	}
	if in.Database == "" {
		return nil, fmt.Errorf("no catalog: set --catalog or --db")
	}

	st, err := store.Open(in.Database)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	mem, err := st.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if mem.Len() == 0 {
		return nil, fmt.Errorf("database %s has no catalog tables (run catalog import first)", in.Database)
	}
	return mem, nil
}

// engineOptions returns the engine configuration for these inputs.
func (in *EvalInputs) engineOptions(logger *slog.Logger) []engine.EngineOption {
	return []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithBaseBrand(in.BaseBrand),
		engine.WithVariables(in.Variables),
	}
}

// LoadAnswers reads a flat question -> answer map. An empty path yields no
// answers.
func LoadAnswers(path string) (*engine.MapAnswers, error) {
	if path == "" {
		return engine.NewMapAnswers(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	return ParseAnswers(data)
}

// ParseAnswers decodes answers YAML (JSON is accepted as YAML).
func ParseAnswers(data []byte) (*engine.MapAnswers, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	for q, v := range values {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("parse answers: %q must be a scalar", q)
		}
	}
	return engine.NewMapAnswers(values), nil
}
