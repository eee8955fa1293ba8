package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nissyi-gh/remind/internal/query"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := writeConfig(t, "base_url: https://tasks.example.com/\ntimeout: 2s\npage_size: 10\ndefault_ordering: -priority\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://tasks.example.com/", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, query.DefaultSearchDebounce, cfg.SearchDebounce)
}

func TestLoadAcceptsBoolCompletedFilter(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(writeConfig(t, "default_completed: false\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "false", cfg.DefaultCompleted)
	assert.Equal(t, query.IncompleteOnly, cfg.QueryInputs().Completed)

	cfg, err = Load(writeConfig(t, "default_completed: true\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, query.CompletedOnly, cfg.QueryInputs().Completed)
}

func TestLoadFromXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "remind"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "remind", "config.yaml"), []byte("log_level: debug\n"), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := writeConfig(t, "base_url: http://from-file/\n")
	t.Setenv("REMIND_BASE_URL", "http://from-env/")
	t.Setenv("REMIND_SEARCH_DEBOUNCE", "250ms")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env/", cfg.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.SearchDebounce)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("REMIND_BASE_URL", "http://from-env/")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("base-url", "", "")
	require.NoError(t, flags.Parse([]string{"--base-url", "http://from-flag/"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag/", cfg.BaseURL)
}

func TestMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero page size", func(c *Config) { c.PageSize = 0 }},
		{"bad completed", func(c *Config) { c.DefaultCompleted = "maybe" }},
		{"bad status", func(c *Config) { c.DefaultStatus = "overdue" }},
		{"bad ordering", func(c *Config) { c.DefaultOrdering = "colour" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestQueryInputs(t *testing.T) {
	in := Default().QueryInputs()
	assert.Equal(t, query.IncompleteOnly, in.Completed)
	assert.Equal(t, query.StatusUpcoming, in.Status)
	assert.Equal(t, query.Ordering{Field: query.FieldTitle}, in.Ordering)
	assert.Equal(t, query.Unbounded, in.Limit)
	assert.Equal(t, 1, in.Page)
}
