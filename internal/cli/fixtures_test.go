package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const panelRules = `package rules

rule: "main-breaker": {
	question: "SIEMPRE"
	title:    "Main breaker"
	item:     "Q1"
	brand:    "ACME"
	counters: {phase: 3, neutral: 1}
	alternatives: [{
		expr: "MODEL(\"MB-200\")"
		exports: {current: "AMP"}
	}]
}

rule: backup: {
	question: "HAS_BACKUP"
	item:     "Q2"
	brand:    "ACME"
	alternatives: ["AMP(@CURRENT)"]
}

rule: lamps: {
	question: "LAMPS"
	item:     "H#"
	brand:    "OTHER"
	alternatives: ["TIPO(\"LAMP\") * #"]
}

rule: heater: {
	question: "HAS_HEATER"
	item:     "E1"
	brand:    "ACME"
	alternatives: ["MODEL(\"HT-1\")"]
}

rule: terminals: {
	question: "SIEMPRE"
	counters: {ground: 2}
}
`

const panelCatalog = `tables:
  ACME:
    - {CODE: "A-100", MODEL: "MB-100", AMP: "100", DESCRIPTION: "Breaker 100A", NORMA: "IEC"}
    - {CODE: "A-200", MODEL: "MB-200", AMP: "200", DESCRIPTION: "Breaker 200A", NORMA: "IEC"}
    - {CODE: "A-250", MODEL: "MB-250", AMP: "250", DESCRIPTION: "Breaker 250A", NORMA: "UL"}
  OTHER:
    - {CODE: "O-1", MODEL: "OB-1", DESCRIPTION: "Other lamp", TIPO: "LAMP"}
`

const panelAnswers = `HAS_BACKUP: "SI"
LAMPS: 2
HAS_HEATER: "NO"
`

// panelDigest is the result digest of the panel fixture.
const panelDigest = "3a486e5ff5f8fb0ca734c05fb7a69c100d4b1a917f47dc65680e78e041923d3f"

type fixture struct {
	Dir     string
	Rules   string
	Catalog string
	Answers string
	DB      string
}

// newFixture writes the panel rules, catalog and answers into a temp dir.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		Dir:     dir,
		Rules:   filepath.Join(dir, "panel.cue"),
		Catalog: filepath.Join(dir, "catalog.yaml"),
		Answers: filepath.Join(dir, "answers.yaml"),
		DB:      filepath.Join(dir, "partsel.db"),
	}
	writeFile(t, f.Rules, panelRules)
	writeFile(t, f.Catalog, panelCatalog)
	writeFile(t, f.Answers, panelAnswers)
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// execute runs cmd with args and returns stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeResponse decodes a JSON CLIResponse and re-decodes its data into v.
func decodeResponse(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if v != nil && resp.Data != nil {
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, v))
	}
	return resp
}
