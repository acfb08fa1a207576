// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"strings"

	"fjacquet/fueltrack/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Database struct {
		Driver string `mapstructure:"driver" yaml:"driver"`
		Path   string `mapstructure:"path" yaml:"path"`
		URL    string `mapstructure:"url" yaml:"-"` // carries credentials
	} `mapstructure:"database" yaml:"database"`

	Ingest struct {
		KeywordsFile    string `mapstructure:"keywords_file" yaml:"keywords_file"`
		DayFirst        bool   `mapstructure:"day_first" yaml:"day_first"`
		MaxHeaderOffset int    `mapstructure:"max_header_offset" yaml:"max_header_offset"`
		MaxSheets       int    `mapstructure:"max_sheets" yaml:"max_sheets"`
	} `mapstructure:"ingest" yaml:"ingest"`

	Anomaly struct {
		MaxCounterJump float64 `mapstructure:"max_counter_jump" yaml:"max_counter_jump"`
	} `mapstructure:"anomaly" yaml:"anomaly"`

	Processor struct {
		Workers int `mapstructure:"workers" yaml:"workers"`
	} `mapstructure:"processor" yaml:"processor"`

	Export struct {
		Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	} `mapstructure:"export" yaml:"export"`
}

// InitializeConfig loads configuration from defaults, the first config.yaml found in
// $HOME/.fueltrack, .fueltrack or the working directory, and FUELTRACK_* variables.
func InitializeConfig() (*Config, error) {
	return InitializeConfigFile("")
}

// InitializeConfigFile behaves like InitializeConfig but reads an explicit file when
// configFile is not empty. A missing explicit file is an error.
func InitializeConfigFile(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.fueltrack")
		v.AddConfigPath(".fueltrack")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("FUELTRACK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless explicit)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. The hosting platform exposes the database URL unprefixed
	if err := v.BindEnv("database.url", "FUELTRACK_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Database.URL = NormalizeDatabaseURL(config.Database.URL)

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the built-in configuration without reading files or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// defaults always decode
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "fueltrack.db")
	v.SetDefault("database.url", "")

	v.SetDefault("ingest.keywords_file", "")
	v.SetDefault("ingest.day_first", true)
	v.SetDefault("ingest.max_header_offset", 5)
	v.SetDefault("ingest.max_sheets", 2)

	v.SetDefault("anomaly.max_counter_jump", 1000.0)

	v.SetDefault("processor.workers", 1)

	v.SetDefault("export.delimiter", ",")
}

// NormalizeDatabaseURL rewrites the legacy postgres:// scheme some hosts still emit.
func NormalizeDatabaseURL(url string) string {
	if strings.HasPrefix(url, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(url, "postgres://")
	}
	return url
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	switch config.Database.Driver {
	case DriverSQLite:
		if config.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if config.Database.URL == "" {
			return fmt.Errorf("database.url (or DATABASE_URL) is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver: %s (must be sqlite, postgres or memory)", config.Database.Driver)
	}

	if config.Ingest.MaxHeaderOffset < 0 {
		return fmt.Errorf("ingest.max_header_offset must not be negative, got: %d", config.Ingest.MaxHeaderOffset)
	}
	if config.Ingest.MaxSheets < 1 {
		return fmt.Errorf("ingest.max_sheets must be at least 1, got: %d", config.Ingest.MaxSheets)
	}

	if config.Anomaly.MaxCounterJump < 0 {
		return fmt.Errorf("anomaly.max_counter_jump must not be negative, got: %v", config.Anomaly.MaxCounterJump)
	}

	if config.Processor.Workers < 1 || config.Processor.Workers > 64 {
		return fmt.Errorf("processor.workers must be between 1 and 64, got: %d", config.Processor.Workers)
	}

	if len([]rune(config.Export.Delimiter)) != 1 {
		return fmt.Errorf("export delimiter must be a single character, got: %s", config.Export.Delimiter)
	}

	return nil
}

// ConfigureLoggingFromConfig builds the application logger from the Config struct
func ConfigureLoggingFromConfig(config *Config) logging.Logger {
	return logging.NewLogrusAdapter(strings.ToLower(config.Log.Level), strings.ToLower(config.Log.Format))
}

// ExportDelimiter returns the configured export separator as a rune.
func (c *Config) ExportDelimiter() rune {
	r := []rune(c.Export.Delimiter)
	if len(r) == 0 {
		return ','
	}
	return r[0]
}

// Validate checks c after flag overrides have been applied.
func (c *Config) Validate() error {
	return validateConfig(c)
}
