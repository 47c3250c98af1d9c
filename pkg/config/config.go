// Package config holds crawl settings, their defaults, and the json5
// config-file loader.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/titanous/json5"
)

// Unbounded as ToPage means no upper page limit.
const Unbounded = 0

// Config contains every option of one crawl run.
type Config struct {
	Limit      int    `json:"limit"`
	Page       int    `json:"page"`
	FromPage   int    `json:"from_page"`
	ToPage     int    `json:"to_page"`
	All        bool   `json:"all"`
	SleepMS    int    `json:"sleep_ms"`
	SearchWord string `json:"search_word"`
	SortKey    int    `json:"sort_key"`
	SortOrder  int    `json:"sort_order"`
	Output     string `json:"output"`

	LoginURL     string `json:"login_url"`
	CustomersURL string `json:"customers_url"`
	LoginID      string `json:"loginid"`
	Password     string `json:"password"`

	UserAgent      string `json:"user_agent"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	return Config{
		Limit:          1000,
		Page:           1,
		FromPage:       1,
		ToPage:         Unbounded,
		SleepMS:        500,
		SortKey:        1,
		SortOrder:      2,
		Output:         "storage/app/private/customers.csv",
		LoginURL:       "https://grow-appt.com/shopmaster/api/sign_in",
		CustomersURL:   "https://grow-appt.com/shopmaster/api/customers",
		UserAgent:      "Mozilla/5.0 (compatible; GrowApptCrawler/1.0)",
		TimeoutSeconds: 30,
	}
}

// Timeout returns the per-request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Delay returns the pause between page requests.
func (c Config) Delay() time.Duration {
	return time.Duration(c.SleepMS) * time.Millisecond
}

// PageRange returns the first page and the last page (Unbounded for none).
// Single-page mode fetches exactly Page.
func (c Config) PageRange() (start, end int) {
	if !c.All {
		return c.Page, c.Page
	}
	start = c.FromPage
	if start < 1 {
		start = 1
	}
	return start, c.ToPage
}

// Validate reports the first invalid option. A FromPage below 1 is not an
// error; PageRange starts at page 1 then.
func (c Config) Validate() error {
	switch {
	case c.Limit < 1:
		return fmt.Errorf("limit must be >= 1 (got %d)", c.Limit)
	case c.Page < 1:
		return fmt.Errorf("page must be >= 1 (got %d)", c.Page)
	case c.ToPage < 0:
		return fmt.Errorf("to-page must be >= 0 (got %d)", c.ToPage)
	case c.ToPage != Unbounded && c.ToPage < max(1, c.FromPage):
		return fmt.Errorf("to-page %d is before from-page %d", c.ToPage, max(1, c.FromPage))
	case c.SleepMS < 0:
		return fmt.Errorf("sleep-ms must be >= 0 (got %d)", c.SleepMS)
	case strings.TrimSpace(c.Output) == "":
		return errors.New("output path is required")
	case c.LoginURL == "":
		return errors.New("login url is required")
	case c.CustomersURL == "":
		return errors.New("customers url is required")
	case c.UserAgent == "":
		return errors.New("user-agent is required")
	case c.TimeoutSeconds <= 0:
		return fmt.Errorf("timeout must be positive (got %ds)", c.TimeoutSeconds)
	}
	return nil
}

// Load decodes the json5 file at path and then <name>.local.<ext> next to it
// onto DefaultConfig, so only keys present in a file override, the local file
// last. It returns os.ErrNotExist when neither file exists.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	found, err := decodeFile(path, &cfg)
	if err != nil {
		return cfg, err
	}

	local := LocalPath(path)
	overridden, err := decodeFile(local, &cfg)
	if err != nil {
		return cfg, err
	}
	if overridden {
		log.Debug().Str("local", local).Msg("Merged config with local overrides")
	}

	if !found && !overridden {
		return cfg, fmt.Errorf("config %s: %w", path, os.ErrNotExist)
	}
	return cfg, nil
}

// LocalPath returns the override file name for path: a.json5 -> a.local.json5.
func LocalPath(path string) string {
	dir := filepath.Dir(path)
	file := filepath.Base(path)
	ext := filepath.Ext(file)
	return filepath.Join(dir, strings.TrimSuffix(file, ext)+".local"+ext)
}

// decodeFile unmarshals path onto dst. A missing or blank file leaves dst
// untouched and reports false.
func decodeFile(path string, dst *Config) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return false, nil
	}

	if err := json5.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}
