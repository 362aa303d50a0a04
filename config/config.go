// Package config loads runtime configuration from environment variables,
// optionally overridden by a TOML file.
package config

import (
	"os"
	"strconv"
	"strings"

	"confighub/util/common"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all runtime settings of the bot and its HTTP API.
type Config struct {
	BotToken string `toml:"bot_token"`
	AdminID  int64  `toml:"admin_id"`

	// Destination channels, synced into the channel registry at startup.
	Channels []string `toml:"channels"`

	DBDriver string `toml:"db_driver"`
	DBDSN    string `toml:"db_dsn"`

	HTTPListen string `toml:"http_listen"`

	BrandName    string `toml:"brand_name"`
	BrandChannel string `toml:"brand_channel"`
	BrandBot     string `toml:"brand_bot"`

	// ConfigRemark replaces the fragment of every distributed link. When
	// empty, a default is built from BrandName and BrandChannel.
	ConfigRemark string `toml:"config_remark"`

	// ReportThreshold is the confirmed bad-report count at which a config
	// is retracted.
	ReportThreshold uint `toml:"report_threshold"`

	// CleanupDays is the age after which undelivered configs are purged.
	CleanupDays int `toml:"cleanup_days"`

	// DrainSchedule is the cron spec of the periodic drain.
	DrainSchedule string `toml:"drain_schedule"`
}

// Load builds the configuration from the environment; if path names an
// existing TOML file, its values override the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{
		BotToken:        os.Getenv("BOT_TOKEN"),
		AdminID:         getenvInt64("ADMIN_ID", 0),
		Channels:        splitList(getenv("CHANNELS", "")),
		DBDriver:        getenv("DB_DRIVER", "sqlite"),
		DBDSN:           getenv("DB_DSN", "data/confighub.db"),
		HTTPListen:      getenv("HTTP_LISTEN", ":8085"),
		BrandName:       getenv("BRAND_NAME", "NONEcore"),
		BrandChannel:    getenv("BRAND_CHANNEL", "@nonecorebot"),
		BrandBot:        getenv("BRAND_BOT", "@nonecore_bot"),
		ConfigRemark:    os.Getenv("CONFIG_REMARK"),
		ReportThreshold: uint(getenvInt64("REPORT_THRESHOLD", 5)),
		CleanupDays:     int(getenvInt64("CLEANUP_DAYS", 30)),
		DrainSchedule:   getenv("DRAIN_SCHEDULE", "@every 2m"),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, common.NewErrorf("parse %s: %v", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if cfg.BotToken == "" {
		return nil, common.NewError("BOT_TOKEN is required")
	}
	if cfg.AdminID == 0 {
		return nil, common.NewError("ADMIN_ID is required")
	}
	if cfg.ReportThreshold == 0 {
		cfg.ReportThreshold = 5
	}

	return cfg, nil
}

// Remark returns the branding fragment appended to every distributed link.
func (c *Config) Remark() string {
	if c.ConfigRemark != "" {
		return c.ConfigRemark
	}
	return c.BrandName + " | تلگرام: " + c.BrandChannel
}

func getenv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
