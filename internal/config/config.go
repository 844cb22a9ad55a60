// Package config provides application configuration from database settings.
package config

import (
	"strconv"
	"time"

	"github.com/devboard/devboard/internal/db"
	"github.com/devboard/devboard/internal/gitscan"
	"github.com/devboard/devboard/internal/transport"
)

// Setting keys
const (
	SettingScanDepth          = "scan_depth"
	SettingCommandTimeout     = "command_timeout_seconds"
	SettingDefaultSessionType = "default_session_type"
	SettingHostsFile          = "hosts_file"
)

// Config holds application configuration loaded from the database.
type Config struct {
	db *db.DB

	ScanDepth          int
	CommandTimeout     time.Duration
	DefaultSessionType string
	HostsFile          string
}

// New creates a config from database settings, falling back to defaults.
func New(database *db.DB) *Config {
	cfg := &Config{db: database}
	cfg.load()
	return cfg
}

func (c *Config) load() {
	c.ScanDepth = gitscan.DefaultMaxDepth
	if v, err := c.db.GetSetting(SettingScanDepth); err == nil && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ScanDepth = n
		}
	}

	c.CommandTimeout = transport.DefaultTimeout
	if v, err := c.db.GetSetting(SettingCommandTimeout); err == nil && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CommandTimeout = time.Duration(n) * time.Second
		}
	}

	c.DefaultSessionType = db.SessionTmux
	if v, err := c.db.GetSetting(SettingDefaultSessionType); err == nil && db.ValidSessionType(v) {
		c.DefaultSessionType = v
	}

	c.HostsFile = transport.DefaultHostsPath()
	if v, err := c.db.GetSetting(SettingHostsFile); err == nil && v != "" {
		c.HostsFile = v
	}
}

// Set stores a setting and reloads the derived fields.
func (c *Config) Set(key, value string) error {
	if err := c.db.SetSetting(key, value); err != nil {
		return err
	}
	c.load()
	return nil
}
