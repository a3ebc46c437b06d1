// Package config loads the ledger's typed configuration from viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/shared-ledger/internal/common"
)

// Configuration keys.
const (
	KeyDatabasePath    = "database.path"
	KeyLogLevel        = "logging.level"
	KeyLogFormat       = "logging.format"
	KeyInvitationTTL   = "invitation.ttl"
	KeyDefaultCurrency = "ledger.default_currency"
	KeyUserEmail       = "user.email"
)

// Defaults.
const (
	DefaultDatabasePath  = "$HOME/.local/share/ledger/ledger.db"
	DefaultInvitationTTL = 7 * 24 * time.Hour
	DefaultCurrency      = "USD"
)

// Config is the resolved application configuration.
type Config struct {
	DatabasePath    string
	LogLevel        string
	LogFormat       string
	DefaultCurrency string
	UserEmail       string
	InvitationTTL   time.Duration
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyInvitationTTL, DefaultInvitationTTL.String())
	v.SetDefault(KeyDefaultCurrency, DefaultCurrency)
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		DatabasePath:    ExpandPath(v.GetString(KeyDatabasePath)),
		LogLevel:        strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:       strings.ToLower(v.GetString(KeyLogFormat)),
		DefaultCurrency: strings.ToUpper(strings.TrimSpace(v.GetString(KeyDefaultCurrency))),
		UserEmail:       strings.TrimSpace(v.GetString(KeyUserEmail)),
		InvitationTTL:   v.GetDuration(KeyInvitationTTL),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the ledger cannot run with.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	if _, err := common.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: %s must be console or json, got %q", common.ErrInvalidConfig, KeyLogFormat, c.LogFormat)
	}
	if c.InvitationTTL <= 0 {
		return fmt.Errorf("%w: %s must be a positive duration", common.ErrInvalidConfig, KeyInvitationTTL)
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("%w: %s must be a three-letter currency code, got %q", common.ErrInvalidConfig, KeyDefaultCurrency, c.DefaultCurrency)
	}
	return nil
}
