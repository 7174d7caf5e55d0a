package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/keygraph/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "fail", cfg.Model.NameConflict)
	assert.Equal(t, "drop", cfg.Model.ReplacePK)
	assert.Equal(t, "reject", cfg.Model.Cycles)
	assert.False(t, cfg.Model.StrictKeys)
	assert.Equal(t, 4, cfg.Check.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Check.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keygraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  url: postgres://localhost/shop
  schema: sales
model:
  name_conflict: make_unique
  strict_keys: true
check:
  concurrency: 2
  timeout: 30s
log:
  level: debug
`), 0o600))

	t.Setenv("KEYGRAPH_MODEL_CYCLES", "first")
	t.Setenv("KEYGRAPH_CHECK_CONCURRENCY", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/shop", cfg.Database.URL)
	assert.Equal(t, "sales", cfg.Database.Schema)
	assert.Equal(t, "make_unique", cfg.Model.NameConflict)
	assert.True(t, cfg.Model.StrictKeys)
	assert.Equal(t, "first", cfg.Model.Cycles)
	assert.Equal(t, 8, cfg.Check.Concurrency, "environment overrides the file")
	assert.Equal(t, 30*time.Second, cfg.Check.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "read config")
	})

	t.Run("bad values", func(t *testing.T) {
		t.Setenv("KEYGRAPH_MODEL_REPLACE_PK", "keep")
		t.Setenv("KEYGRAPH_LOG_FORMAT", "xml")

		_, err := Load("")
		require.Error(t, err)
		assert.ErrorContains(t, err, `"keep"`)
		assert.ErrorContains(t, err, `unknown log format "xml"`)
	})
}

func TestModelOptions(t *testing.T) {
	var cfg Config
	cfg.Model.NameConflict = "make_unique"
	cfg.Model.StrictKeys = true
	cfg.Model.ReplacePK = "refuse"
	cfg.Model.Cycles = "first"

	opts, err := cfg.ModelOptions()
	require.NoError(t, err)

	assert.Equal(t, model.Options{
		NameConflict: model.NameConflictMakeUnique,
		StrictKeys:   true,
		ReplacePK:    model.ReplacePKRefuse,
		Cycles:       model.CycleFirstDeclared,
	}, model.New(opts...).Options())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
