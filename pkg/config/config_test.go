package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitshare/pkg/config"
	"github.com/Sumatoshi-tech/gitshare/pkg/report"
	"github.com/Sumatoshi-tech/gitshare/pkg/units"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gitshare.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	assert.Equal(t, config.DefaultMaxAuthors, cfg.Output.MaxAuthors)
	assert.Equal(t, report.UnlimitedDepth, cfg.Output.MaxDepth)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Attribution.Overwritten)
	require.NoError(t, cfg.Validate())
}

func TestValidate_ZeroConfig_NoError(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}
	require.NoError(t, cfg.Validate())

	format, err := cfg.OutputFormat()
	require.NoError(t, err)
	assert.Equal(t, report.FormatText, format)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"max age", func(c *config.Config) { c.Attribution.MaxAge = "soon" }, config.ErrInvalidMaxAge},
		{"format", func(c *config.Config) { c.Output.Format = "xml" }, config.ErrInvalidFormat},
		{"workers", func(c *config.Config) { c.Attribution.Workers = -1 }, config.ErrInvalidWorkers},
		{"max authors", func(c *config.Config) { c.Output.MaxAuthors = -2 }, config.ErrInvalidMaxAuthors},
		{"max depth", func(c *config.Config) { c.Output.MaxDepth = -3 }, config.ErrInvalidMaxDepth},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, config.ErrInvalidLogLevel},
		{"authors with emails", func(c *config.Config) {
			c.Output.ShowAuthors = true
			c.Attribution.Emails = []string{"a@example.com"}
		}, config.ErrConflictingOptions},
		{"authors with all", func(c *config.Config) {
			c.Output.ShowAuthors = true
			c.Output.All = true
		}, config.ErrConflictingOptions},
		{"authors with reverse", func(c *config.Config) {
			c.Output.ShowAuthors = true
			c.Output.Reverse = true
		}, config.ErrConflictingOptions},
		{"flat with depth", func(c *config.Config) {
			c.Output.Flat = true
			c.Output.MaxDepth = 2
		}, config.ErrConflictingOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)

			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestMaxAgeDuration(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	d, err := cfg.MaxAgeDuration()
	require.NoError(t, err)
	assert.Zero(t, d)

	cfg.Attribution.MaxAge = "2w"
	d, err = cfg.MaxAgeDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*units.Week, d)

	cfg.Attribution.MaxAge = "36h"
	d, err = cfg.MaxAgeDuration()
	require.NoError(t, err)
	assert.Equal(t, 36*time.Hour, d)
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
attribution:
  emails: [alice@example.com, bob@example.com]
  ignore_users: [bot@example.com]
  max_age: 6M
  overwritten: true
  workers: 2
scope:
  dir: src
  skip_vendor: true
  languages: [Go]
output:
  format: json
  flat: true
  max_authors: 5
cache:
  enabled: true
  dir: /tmp/gitshare-cache
logging:
  level: debug
  json: true
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, cfg.Attribution.Emails)
	assert.Equal(t, []string{"bot@example.com"}, cfg.Attribution.IgnoreUsers)
	assert.True(t, cfg.Attribution.Overwritten)
	assert.Equal(t, 2, cfg.Attribution.Workers)
	assert.Equal(t, "src", cfg.Scope.Dir)
	assert.True(t, cfg.Scope.SkipVendor)
	assert.Equal(t, []string{"Go"}, cfg.Scope.Languages)
	assert.True(t, cfg.Output.Flat)
	assert.Equal(t, 5, cfg.Output.MaxAuthors)
	assert.Equal(t, report.UnlimitedDepth, cfg.Output.MaxDepth)
	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Logging.JSON)

	d, err := cfg.MaxAgeDuration()
	require.NoError(t, err)
	assert.Equal(t, 6*units.Month, d)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "output: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")

	_, err = config.LoadConfig(writeConfig(t, "output:\n  show_authors: true\n  reverse: true\n"))
	require.ErrorIs(t, err, config.ErrConflictingOptions)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("GITSHARE_ATTRIBUTION_MAX_AGE", "30d")
	t.Setenv("GITSHARE_OUTPUT_FORMAT", "yaml")

	cfg, err := config.LoadConfig(writeConfig(t, "output:\n  format: json\n"))
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Output.Format)

	d, err := cfg.MaxAgeDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*units.Day, d)
}
