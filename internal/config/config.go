package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"quiz-ledger-service/internal/domain"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		LockTTL  string `yaml:"lock_ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL         string `yaml:"url"`
		AutoMigrate *bool  `yaml:"auto_migrate"`
	} `yaml:"postgres"`
	Ledger struct {
		Timezone           string          `yaml:"timezone"`
		LeaderboardTTL     string          `yaml:"leaderboard_ttl"`
		LeaderboardWindow  string          `yaml:"leaderboard_window"`
		FeedSize           int             `yaml:"feed_size"`
		RateLimitPerMinute int             `yaml:"rate_limit_per_minute"`
		Bounties           []domain.Bounty `yaml:"bounties"`
	} `yaml:"ledger"`
	Log struct {
		Level      string `yaml:"level"`
		Path       string `yaml:"path"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Location resolves the ledger's canonical timezone, defaulting to UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Ledger.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Ledger.Timezone)
}

// MigrateOnStart reports whether start should apply migrations; it defaults to true
// whenever Postgres is configured.
func (c Config) MigrateOnStart() bool {
	if c.Postgres.URL == "" {
		return false
	}
	return c.Postgres.AutoMigrate == nil || *c.Postgres.AutoMigrate
}
