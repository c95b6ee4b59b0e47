package cli

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "partsel", cmd.Use)
	assert.Contains(t, cmd.Long, "bill of materials")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"evaluate", "compile", "validate", "trace", "test", "catalog", "runs"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGroupSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"catalog", "import"},
		{"catalog", "list"},
		{"catalog", "find"},
		{"runs", "list"},
		{"runs", "show"},
		{"runs", "verify"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	levelFlag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, levelFlag)
	assert.Equal(t, "warn", levelFlag.DefValue)

	logFormatFlag := cmd.PersistentFlags().Lookup("log-format")
	require.NotNil(t, logFormatFlag)
	assert.Equal(t, "text", logFormatFlag.DefValue)
}

func TestEvaluateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	evalCmd, _, err := cmd.Find([]string{"evaluate"})
	require.NoError(t, err)

	for _, name := range []string{"catalog", "catalog-pattern", "db", "answers", "base-brand", "var", "save", "by-code", "watch", "debounce"} {
		assert.NotNil(t, evalCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "a", evalCmd.Flags().Lookup("answers").Shorthand)
	assert.Equal(t, "**/*.csv", evalCmd.Flags().Lookup("catalog-pattern").DefValue)
	assert.Equal(t, "200ms", evalCmd.Flags().Lookup("debounce").DefValue)
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestTraceCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	traceCmd, _, err := cmd.Find([]string{"trace"})
	require.NoError(t, err)

	require.NotNil(t, traceCmd.Flags().Lookup("rule"))
	require.NotNil(t, traceCmd.Flags().Lookup("status"))
	require.NotNil(t, traceCmd.Flags().Lookup("catalog"))
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "compile", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLogFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--log-format", "xml", "compile", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestSetupLogging(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	tests := []struct {
		level  string
		format string
		debug  bool
		want   string
	}{
		{level: "debug", format: "text", debug: true, want: "level=DEBUG"},
		{level: "info", format: "json", debug: false, want: `"level":"INFO"`},
		{level: "bogus", format: "text", debug: false, want: "level=WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := SetupLogging(buf, tt.level, tt.format)
			assert.Equal(t, tt.debug, logger.Enabled(t.Context(), slog.LevelDebug))

			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")
			assert.Contains(t, buf.String(), tt.want)
			assert.Same(t, logger, slog.Default())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLevel(""))
}
