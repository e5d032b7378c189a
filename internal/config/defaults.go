package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/studysync/studysync/internal/notion"
	"github.com/studysync/studysync/internal/types"
)

const appName = "studysync"

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	nc := notion.DefaultConfig()
	data := DataDir()
	conf := ConfigDir()

	return &Config{
		Notion: NotionConfig{
			Version:           nc.Version,
			BaseURL:           nc.BaseURL,
			Timeout:           nc.Timeout,
			MaxRetries:        nc.MaxRetries,
			RequestsPerSecond: nc.RequestsPerSecond,
		},
		Store:   StoreConfig{Path: filepath.Join(data, "store.json")},
		History: HistoryConfig{Path: filepath.Join(data, "history.db"), Keep: 500},
		Log: LogConfig{
			File:       filepath.Join(data, "studysync.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Sync: SyncConfig{
			Interval: 5 * time.Minute,
			Debounce: 2 * time.Second,
		},
		Dashboard: DashboardConfig{Host: "127.0.0.1", Port: 8080},
		Calendar: CalendarConfig{
			Provider:        "ics",
			CredentialsFile: filepath.Join(conf, "credentials.json"),
			TokenFile:       filepath.Join(conf, "token.json"),
			CallbackPort:    6789,
			LookaheadDays:   60,
		},
		Study: StudyConfig{
			Intervals:    types.DefaultOffsets(),
			SessionHours: 2,
		},
	}
}

// ConfigDir is $XDG_CONFIG_HOME/studysync, falling back to
// ~/.config/studysync.
func ConfigDir() string {
	if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
		return filepath.Join(x, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+appName)
	}
	return filepath.Join(home, ".config", appName)
}

// DataDir is $XDG_DATA_HOME/studysync, falling back to
// ~/.local/share/studysync.
func DataDir() string {
	if x := os.Getenv("XDG_DATA_HOME"); x != "" {
		return filepath.Join(x, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+appName)
	}
	return filepath.Join(home, ".local", "share", appName)
}

// DefaultConfigPath is the config file read when --config is not given.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
