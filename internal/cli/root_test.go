package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ApiratRepublic/RePublic/internal/cli/config"
	"github.com/ApiratRepublic/RePublic/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "gdbcheck", root.Use)

	for _, name := range []string{"validate", "inventory", "rules", "history", "init", "version", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"config", "root-dir", "report-format", "workers", "layer-workers", "strict-numeric", "state", "metrics-file", "log-file", "output", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootRunsRulesWithConfig(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	path := testutil.SetupTestProject(t, "state_path: \"\"\n")

	out, err := testutil.ExecuteCommand(t, NewRootCmd(), "--config", path, "-o", "json", "rules", "ROAD")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "ROAD"`)
	testutil.AssertNoANSI(t, out)

	cfg := config.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "json", cfg.Output)
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	path := testutil.SetupTestProject(t, "report_format: pdf\n")

	_, err := testutil.ExecuteCommand(t, NewRootCmd(), "--config", path, "rules")
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "report_format", verr.Key)
}

func TestCompletionCommand(t *testing.T) {
	out, err := testutil.ExecuteCommand(t, NewRootCmd(), "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "gdbcheck")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json to stderr", func(t *testing.T) {
		var buf bytes.Buffer
		logger, closer, err := newLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)
		require.NoError(t, err)
		defer func() { _ = closer.Close() }()

		logger.Info("hidden")
		logger.Warn("shown", slog.String("layer", "ROAD_01"))
		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, `"layer":"ROAD_01"`)
	})

	t.Run("verbose forces debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger, _, err := newLogger(&config.Config{LogLevel: "error", Verbose: true}, &buf)
		require.NoError(t, err)
		logger.Debug("details")
		assert.Contains(t, buf.String(), "msg=details")
	})

	t.Run("rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "gdbcheck.log")
		var buf bytes.Buffer
		logger, closer, err := newLogger(&config.Config{LogFile: path, LogMaxSizeMB: 1}, &buf)
		require.NoError(t, err)
		logger.Info("to file")
		require.NoError(t, closer.Close())

		assert.Empty(t, buf.String())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "to file"))
	})
}
