// Package config provides YAML-based configuration for gitshare.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/gitshare/pkg/report"
	"github.com/Sumatoshi-tech/gitshare/pkg/units"
)

// Sentinel validation errors.
var (
	ErrInvalidMaxAge      = errors.New("invalid max age")
	ErrInvalidFormat      = errors.New("invalid output format")
	ErrInvalidWorkers     = errors.New("workers must be non-negative")
	ErrInvalidMaxAuthors  = errors.New("max authors must be non-negative")
	ErrInvalidMaxDepth    = errors.New("max depth must be -1 or non-negative")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrConflictingOptions = errors.New("conflicting options")
)

// Config holds all configuration for gitshare.
type Config struct {
	Attribution AttributionConfig `mapstructure:"attribution"`
	Scope       ScopeConfig       `mapstructure:"scope"`
	Output      OutputConfig      `mapstructure:"output"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// AttributionConfig selects whose lines are counted and how.
type AttributionConfig struct {
	// Emails are the target identities. Empty means the repository's
	// configured user.email.
	Emails []string `mapstructure:"emails"`
	// IgnoreUsers are removed from every record before reporting.
	IgnoreUsers []string `mapstructure:"ignore_users"`
	// MaxAge drops contributions older than this, e.g. "6M" or "90d".
	MaxAge string `mapstructure:"max_age"`
	// Overwritten counts every line ever written instead of blaming HEAD.
	Overwritten bool `mapstructure:"overwritten"`
	// Workers is the number of parallel repository handles; 0 uses all CPUs.
	Workers int `mapstructure:"workers"`
}

// ScopeConfig selects which files are attributed.
type ScopeConfig struct {
	Dir                 string   `mapstructure:"dir"`
	SkipVendor          bool     `mapstructure:"skip_vendor"`
	BlacklistedPrefixes []string `mapstructure:"blacklisted_prefixes"`
	Languages           []string `mapstructure:"languages"`
	Whitelist           string   `mapstructure:"whitelist"`
	PeopleDict          string   `mapstructure:"people_dict"`
}

// OutputConfig controls the report.
type OutputConfig struct {
	Format      string `mapstructure:"format"`
	Flat        bool   `mapstructure:"flat"`
	ShowAuthors bool   `mapstructure:"show_authors"`
	MaxAuthors  int    `mapstructure:"max_authors"`
	Reverse     bool   `mapstructure:"reverse"`
	All         bool   `mapstructure:"all"`
	MaxDepth    int    `mapstructure:"max_depth"`
	NoProgress  bool   `mapstructure:"no_progress"`
}

// CacheConfig controls the per-commit delta cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Validate checks the configuration for invalid values and conflicting options.
func (c *Config) Validate() error {
	_, err := c.MaxAgeDuration()
	if err != nil {
		return err
	}

	_, err = c.OutputFormat()
	if err != nil {
		return err
	}

	if c.Attribution.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Attribution.Workers)
	}

	if c.Output.MaxAuthors < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxAuthors, c.Output.MaxAuthors)
	}

	if c.Output.MaxDepth < report.UnlimitedDepth {
		return fmt.Errorf("%w: %d", ErrInvalidMaxDepth, c.Output.MaxDepth)
	}

	_, err = c.SlogLevel()
	if err != nil {
		return err
	}

	return c.validateConflicts()
}

func (c *Config) validateConflicts() error {
	if c.Output.ShowAuthors {
		switch {
		case len(c.Attribution.Emails) > 0:
			return fmt.Errorf("%w: show_authors cannot be combined with emails", ErrConflictingOptions)
		case c.Output.All:
			return fmt.Errorf("%w: show_authors cannot be combined with all", ErrConflictingOptions)
		case c.Output.Reverse:
			return fmt.Errorf("%w: show_authors cannot be combined with reverse", ErrConflictingOptions)
		}
	}

	if c.Output.Flat && c.Output.MaxDepth != report.UnlimitedDepth {
		return fmt.Errorf("%w: flat cannot be combined with max_depth", ErrConflictingOptions)
	}

	return nil
}

// MaxAgeDuration parses Attribution.MaxAge. An empty value means no limit.
func (c *Config) MaxAgeDuration() (time.Duration, error) {
	if strings.TrimSpace(c.Attribution.MaxAge) == "" {
		return 0, nil
	}

	d, err := units.ParseDuration(c.Attribution.MaxAge)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidMaxAge, err)
	}

	return d, nil
}

// OutputFormat parses Output.Format. An empty value selects text.
func (c *Config) OutputFormat() (report.Format, error) {
	if strings.TrimSpace(c.Output.Format) == "" {
		return report.FormatText, nil
	}

	format, err := report.ParseFormat(c.Output.Format)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	return format, nil
}

// SlogLevel maps Logging.Level to a slog level. An empty value selects warn.
func (c *Config) SlogLevel() (slog.Level, error) {
	if strings.TrimSpace(c.Logging.Level) == "" {
		return slog.LevelWarn, nil
	}

	var level slog.Level

	err := level.UnmarshalText([]byte(strings.TrimSpace(c.Logging.Level)))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}
