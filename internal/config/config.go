// Package config defines server configuration and its loading order:
// defaults, optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. "127.0.0.1:3000".
	Addr string `koanf:"addr"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `koanf:"database_url"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Collection is the archive.org collection the game draws from.
	Collection string `koanf:"collection"`

	// YearStart and YearEnd bound the guessable year range.
	YearStart int `koanf:"year_start"`
	YearEnd   int `koanf:"year_end"`

	// LeaderboardLimit caps the rows returned by /api/leaderboard.
	LeaderboardLimit int `koanf:"leaderboard_limit"`

	// MinTrackSeconds is the duration preference threshold for clip
	// selection: shorter tracks are only used when no longer one exists.
	MinTrackSeconds int `koanf:"min_track_seconds"`

	// Catalog endpoint overrides, mainly for tests.
	SearchURL   string `koanf:"search_url"`
	MetadataURL string `koanf:"metadata_url"`
	DownloadURL string `koanf:"download_url"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		Addr:             "127.0.0.1:3000",
		LogLevel:         "info",
		Collection:       "GratefulDead",
		YearStart:        1966,
		YearEnd:          1995,
		LeaderboardLimit: 20,
		MinTrackSeconds:  180,
	}
}

// Load builds a Config by layering defaults, an optional YAML file named by
// YEARJAM_CONFIG, and YEARJAM_-prefixed environment variables
// (e.g. YEARJAM_ADDR, YEARJAM_DATABASE_URL).
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("YEARJAM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	envProvider := env.Provider("YEARJAM_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "yearjam_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading env config: %w", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.DatabaseURL == "" {
		return errors.New("database_url must not be empty")
	}
	if c.YearStart > c.YearEnd {
		return fmt.Errorf("year_start %d is after year_end %d", c.YearStart, c.YearEnd)
	}
	if c.LeaderboardLimit < 1 {
		return errors.New("leaderboard_limit must be positive")
	}
	if c.MinTrackSeconds < 0 {
		return errors.New("min_track_seconds must not be negative")
	}
	return nil
}
