package config

import "time"

// Config is the full studysync configuration.
type Config struct {
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion" toml:"notion"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store" toml:"store"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history" toml:"history"`
	Log       LogConfig       `yaml:"log" mapstructure:"log" toml:"log"`
	Sync      SyncConfig      `yaml:"sync" mapstructure:"sync" toml:"sync"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard" toml:"dashboard"`
	Calendar  CalendarConfig  `yaml:"calendar" mapstructure:"calendar" toml:"calendar"`
	Study     StudyConfig     `yaml:"study" mapstructure:"study" toml:"study"`
}

// NotionConfig configures the workspace client and target databases.
type NotionConfig struct {
	Token             string        `yaml:"token" mapstructure:"token" toml:"token"`
	Version           string        `yaml:"version" mapstructure:"version" toml:"version"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url" toml:"base_url"`
	TasksDatabaseID   string        `yaml:"tasks_database_id" mapstructure:"tasks_database_id" toml:"tasks_database_id"`
	EventsDatabaseID  string        `yaml:"events_database_id" mapstructure:"events_database_id" toml:"events_database_id"`
	SchemaFile        string        `yaml:"schema_file" mapstructure:"schema_file" toml:"schema_file"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout" toml:"timeout"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries" toml:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second" toml:"requests_per_second"`
}

// StoreConfig locates the local store file.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path" toml:"path"`
}

// HistoryConfig locates the run ledger.
type HistoryConfig struct {
	Path string `yaml:"path" mapstructure:"path" toml:"path"`
	// Keep is how many runs survive pruning. Zero keeps everything.
	Keep int `yaml:"keep" mapstructure:"keep" toml:"keep"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days" toml:"max_age_days"`
}

// SyncConfig configures the auto-sync daemon.
type SyncConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval" toml:"interval"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce" toml:"debounce"`
}

// DashboardConfig configures `sy serve`.
type DashboardConfig struct {
	Host      string `yaml:"host" mapstructure:"host" toml:"host"`
	Port      int    `yaml:"port" mapstructure:"port" toml:"port"`
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret" toml:"jwt_secret"`
}

// CalendarConfig selects and configures the calendar provider.
type CalendarConfig struct {
	// Provider is "ics" or "google".
	Provider        string `yaml:"provider" mapstructure:"provider" toml:"provider"`
	ICSURL          string `yaml:"ics_url" mapstructure:"ics_url" toml:"ics_url"`
	GoogleCalendar  string `yaml:"google_calendar" mapstructure:"google_calendar" toml:"google_calendar"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file" toml:"credentials_file"`
	TokenFile       string `yaml:"token_file" mapstructure:"token_file" toml:"token_file"`
	CallbackPort    int    `yaml:"callback_port" mapstructure:"callback_port" toml:"callback_port"`
	LookaheadDays   int    `yaml:"lookahead_days" mapstructure:"lookahead_days" toml:"lookahead_days"`
}

// StudyConfig holds study helper defaults.
type StudyConfig struct {
	Intervals    []int `yaml:"intervals" mapstructure:"intervals" toml:"intervals"`
	SessionHours int   `yaml:"session_hours" mapstructure:"session_hours" toml:"session_hours"`
}
