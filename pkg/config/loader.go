package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/gitshare/pkg/report"
)

// configName is the config file name without extension.
const configName = ".gitshare"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for gitshare settings.
const envPrefix = "GITSHARE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default values.
const (
	DefaultMaxAuthors = 3
	DefaultMaxDepth   = report.UnlimitedDepth
	DefaultFormat     = string(report.FormatText)
	DefaultLogLevel   = "warn"
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or env vars are set.
func Default() *Config {
	viperCfg := viper.New()
	applyDefaults(viperCfg)

	var cfg Config

	// Defaults always decode.
	_ = viperCfg.Unmarshal(&cfg)

	return &cfg
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("attribution.emails", []string{})
	viperCfg.SetDefault("attribution.ignore_users", []string{})
	viperCfg.SetDefault("attribution.max_age", "")
	viperCfg.SetDefault("attribution.overwritten", false)
	viperCfg.SetDefault("attribution.workers", 0)

	viperCfg.SetDefault("scope.dir", "")
	viperCfg.SetDefault("scope.skip_vendor", false)
	viperCfg.SetDefault("scope.blacklisted_prefixes", []string{})
	viperCfg.SetDefault("scope.languages", []string{})
	viperCfg.SetDefault("scope.whitelist", "")
	viperCfg.SetDefault("scope.people_dict", "")

	viperCfg.SetDefault("output.format", DefaultFormat)
	viperCfg.SetDefault("output.flat", false)
	viperCfg.SetDefault("output.show_authors", false)
	viperCfg.SetDefault("output.max_authors", DefaultMaxAuthors)
	viperCfg.SetDefault("output.reverse", false)
	viperCfg.SetDefault("output.all", false)
	viperCfg.SetDefault("output.max_depth", DefaultMaxDepth)
	viperCfg.SetDefault("output.no_progress", false)

	viperCfg.SetDefault("cache.enabled", false)
	viperCfg.SetDefault("cache.dir", "")

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)
}
