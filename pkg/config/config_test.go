package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1000, cfg.Limit)
	assert.Equal(t, 1, cfg.Page)
	assert.Equal(t, 1, cfg.FromPage)
	assert.Equal(t, Unbounded, cfg.ToPage)
	assert.False(t, cfg.All)
	assert.Equal(t, 500*time.Millisecond, cfg.Delay())
	assert.Equal(t, 1, cfg.SortKey)
	assert.Equal(t, 2, cfg.SortOrder)
	assert.Equal(t, "storage/app/private/customers.csv", cfg.Output)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	require.NoError(t, cfg.Validate())
}

func TestPageRange(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantStart int
		wantEnd   int
	}{
		{name: "single default", mutate: func(c *Config) {}, wantStart: 1, wantEnd: 1},
		{name: "single page 7", mutate: func(c *Config) { c.Page = 7; c.FromPage = 3 }, wantStart: 7, wantEnd: 7},
		{name: "all unbounded", mutate: func(c *Config) { c.All = true }, wantStart: 1, wantEnd: Unbounded},
		{name: "all bounded", mutate: func(c *Config) { c.All = true; c.FromPage = 2; c.ToPage = 5 }, wantStart: 2, wantEnd: 5},
		{name: "all clamps start", mutate: func(c *Config) { c.All = true; c.FromPage = 0 }, wantStart: 1, wantEnd: Unbounded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			start, end := cfg.PageRange()
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "limit", mutate: func(c *Config) { c.Limit = 0 }, wantErr: "limit must be >= 1"},
		{name: "page", mutate: func(c *Config) { c.Page = 0 }, wantErr: "page must be >= 1"},
		{name: "negative to-page", mutate: func(c *Config) { c.ToPage = -1 }, wantErr: "to-page must be >= 0"},
		{name: "to before from", mutate: func(c *Config) { c.FromPage = 4; c.ToPage = 2 }, wantErr: "to-page 2 is before from-page 4"},
		{name: "sleep", mutate: func(c *Config) { c.SleepMS = -1 }, wantErr: "sleep-ms must be >= 0"},
		{name: "output", mutate: func(c *Config) { c.Output = "  " }, wantErr: "output path is required"},
		{name: "login url", mutate: func(c *Config) { c.LoginURL = "" }, wantErr: "login url is required"},
		{name: "customers url", mutate: func(c *Config) { c.CustomersURL = "" }, wantErr: "customers url is required"},
		{name: "timeout", mutate: func(c *Config) { c.TimeoutSeconds = 0 }, wantErr: "timeout must be positive"},
		{name: "zero sleep ok", mutate: func(c *Config) { c.SleepMS = 0 }},
		{name: "to equals from ok", mutate: func(c *Config) { c.FromPage = 3; c.ToPage = 3 }},
		{name: "zero from-page ok", mutate: func(c *Config) { c.All = true; c.FromPage = 0; c.ToPage = 1 }},
		{name: "negative from-page ok", mutate: func(c *Config) { c.All = true; c.FromPage = -4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crawl.json5")

	require.NoError(t, os.WriteFile(path, []byte(`{
		// comments and trailing commas are accepted
		limit: 200,
		all: true,
		search_word: "山田",
		loginid: "shop",
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crawl.local.json5"), []byte(`{
		limit: 50,
		password: "secret",
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Limit)
	assert.True(t, cfg.All)
	assert.Equal(t, "山田", cfg.SearchWord)
	assert.Equal(t, "shop", cfg.LoginID)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, DefaultConfig().LoginURL, cfg.LoginURL)
	assert.Equal(t, 500, cfg.SleepMS)
}

func TestLoad_ZeroAndFalseOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crawl.json5")

	require.NoError(t, os.WriteFile(path, []byte(`{
		sleep_ms: 0,
		all: true,
		sort_key: 0,
		to_page: 4,
		search_word: "abc",
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crawl.local.json5"), []byte(`{
		all: false,
		to_page: 0,
		search_word: "",
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.SleepMS)
	assert.Equal(t, 0, cfg.SortKey)
	assert.False(t, cfg.All)
	assert.Equal(t, Unbounded, cfg.ToPage)
	assert.Empty(t, cfg.SearchWord)
	assert.Equal(t, 2, cfg.SortOrder, "keys absent from both files keep the default")
}

func TestLoad_LocalOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crawl.json")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crawl.local.json"), []byte(`{"to_page": 9}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.ToPage)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json5"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{limit: `), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLocalPath(t *testing.T) {
	assert.Equal(t, filepath.Join("etc", "crawl.local.json5"), LocalPath(filepath.Join("etc", "crawl.json5")))
	assert.Equal(t, "crawl.local", LocalPath("crawl"))
}
