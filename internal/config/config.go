package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SMTPConfig holds the outbound mail account. Credentials live in the
// config file on purpose; the file is written with 0600 permissions.
type SMTPConfig struct {
	// Host is the SMTP server hostname (no port), e.g. "smtp.gmail.com".
	Host string `yaml:"host" json:"host"`
	// Port is the submission port; STARTTLS is negotiated on it.
	Port int `yaml:"port" json:"port"`

	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`

	// From is the envelope sender. Defaults to Username when empty.
	From string `yaml:"from" json:"from"`
	// To is the reminder recipient. Defaults to From when empty.
	To string `yaml:"to" json:"to"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the JSON API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// CalendarFile is the path of the persisted event list.
	CalendarFile string `yaml:"calendar_file" json:"calendar_file"`

	// NotifyCron is a cron-style schedule string for the daily reminder
	// check, e.g. "0 0 * * *" (midnight).
	NotifyCron string `yaml:"notify" json:"notify"`

	// Listen is the HTTP listen address for the JSON API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	// SMTP configures the reminder mail account.
	SMTP SMTPConfig `yaml:"smtp" json:"smtp"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		CalendarFile: "calendar.json",
		NotifyCron:   "0 0 * * *",
		Listen:       "127.0.0.1:8080",
		LogLevel:     "info",
		SMTP: SMTPConfig{
			Host: "smtp.example.com",
			Port: 587,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.CalendarFile == "" {
		c.CalendarFile = "calendar.json"
	}
	if c.NotifyCron == "" {
		c.NotifyCron = "0 0 * * *"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SMTP.Port <= 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.SMTP.To == "" {
		c.SMTP.To = c.SMTP.From
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// The write goes through a temp file in the same directory followed by a
// rename, and the final file ends up with 0600 permissions since it can
// carry SMTP credentials.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calagent-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
