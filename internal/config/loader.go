// Package config loads studysync settings from a YAML file and
// STUDYSYNC_-prefixed environment variables on top of built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g.
// STUDYSYNC_NOTION_TOKEN for notion.token.
const EnvPrefix = "STUDYSYNC"

// Load reads path over the defaults and applies environment overrides. An
// empty path means DefaultConfigPath(); a missing default file is not an
// error, a missing explicit file is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	v := viper.New()
	v.SetConfigType("yaml")

	// Seed every key from the defaults so AutomaticEnv can see them.
	base, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks values that are wrong regardless of the command.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path is required"))
	}
	if c.Notion.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("notion.max_retries must not be negative"))
	}
	if c.Notion.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("notion.requests_per_second must not be negative"))
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		errs = append(errs, fmt.Errorf("dashboard.port %d is out of range", c.Dashboard.Port))
	}
	switch c.Calendar.Provider {
	case "", "ics", "google":
	default:
		errs = append(errs, fmt.Errorf("calendar.provider must be ics or google (got %q)", c.Calendar.Provider))
	}
	if c.Study.SessionHours < 0 {
		errs = append(errs, fmt.Errorf("study.session_hours must not be negative"))
	}
	for i, off := range c.Study.Intervals {
		if off < 1 || (i > 0 && off <= c.Study.Intervals[i-1]) {
			errs = append(errs, fmt.Errorf("study.intervals must be increasing positive day counts"))
			break
		}
	}
	return errors.Join(errs...)
}

// RequireNotion checks the settings a sync needs.
func (c *Config) RequireNotion() error {
	var errs []error
	if c.Notion.Token == "" {
		errs = append(errs, fmt.Errorf("notion.token is required (or set %s_NOTION_TOKEN)", EnvPrefix))
	}
	if c.Notion.TasksDatabaseID == "" && c.Notion.EventsDatabaseID == "" {
		errs = append(errs, fmt.Errorf("at least one of notion.tasks_database_id and notion.events_database_id is required"))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Study.Intervals = append([]int(nil), c.Study.Intervals...)
	out.Notion.Token = mask(c.Notion.Token)
	out.Dashboard.JWTSecret = mask(c.Dashboard.JWTSecret)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "…" + s[len(s)-4:]
}

// WriteYAML encodes c as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// WriteTOML encodes c as TOML.
func (c *Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// WriteFile writes c as YAML to path, creating parent directories. The
// file may hold a token, so it is private to the user.
func WriteFile(path string, c *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	var buf bytes.Buffer
	if err := c.WriteYAML(&buf); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// UpdateFile applies fn to the config stored at path and writes it back.
// Environment overrides are not read, so they are never persisted. A
// missing file starts from the defaults.
func UpdateFile(path string, fn func(*Config)) error {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read config %s: %w", path, err)
	}
	fn(c)
	return WriteFile(path, c)
}
