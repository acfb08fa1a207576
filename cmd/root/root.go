// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"

	"fjacquet/fueltrack/internal/config"
	"fjacquet/fueltrack/internal/container"
	"fjacquet/fueltrack/internal/logging"

	"github.com/spf13/cobra"
)

// AnnotationNoStorage marks commands that never touch the database.
const AnnotationNoStorage = "fueltrack/no-storage"

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	Input  string
	Output string
}

// ConfigFlags override configuration values for one invocation.
type ConfigFlags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
	DBDriver   string
	DBPath     string
}

var (
	// Log is the shared logger instance for commands
	Log = logging.NewLogrusAdapter("info", "text")

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "fueltrack",
		Short: "Ingest fleet fuel exports and flag per-vehicle counter anomalies.",
		Long: `fueltrack reads fuel-dispensing exports (xlsx, xls or delimited text with
unknown headers, encodings and date formats), stores a deduplicated per-vehicle
history and rebuilds before/after counter deltas and anomalies from it.`,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		PersistentPreRunE: initialize,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appContainer == nil {
				return
			}
			if err := appContainer.Close(); err != nil {
				Log.WithError(err).Warn("Failed to close container")
			}
			appContainer = nil
		},
	}

	// SharedFlags are accessible to all commands
	SharedFlags = CommonFlags{}

	// Overrides holds the configuration flags
	Overrides = ConfigFlags{}

	appConfig    *config.Config
	appContainer *container.Container
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input file or directory")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file (stdout when empty)")

	Cmd.PersistentFlags().StringVar(&Overrides.ConfigFile, "config", "", "Config file (default: $HOME/.fueltrack/config.yaml)")
	Cmd.PersistentFlags().StringVar(&Overrides.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&Overrides.LogFormat, "log-format", "", "Log format (text, json)")
	Cmd.PersistentFlags().StringVar(&Overrides.DBDriver, "db-driver", "", "Storage driver (sqlite, postgres, memory)")
	Cmd.PersistentFlags().StringVar(&Overrides.DBPath, "db", "", "SQLite database file")
}

func initialize(cmd *cobra.Command, args []string) error {
	config.LoadEnv()

	cfg, err := config.InitializeConfigFile(Overrides.ConfigFile)
	if err != nil {
		return err
	}
	if err := ApplyOverrides(cfg, Overrides); err != nil {
		return err
	}

	appConfig = cfg
	Log = config.ConfigureLoggingFromConfig(cfg)

	var opts []container.Option
	if cmd.Annotations[AnnotationNoStorage] == "true" {
		opts = append(opts, container.WithoutStorage())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := container.NewContainerWithLogger(ctx, cfg, Log, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	appContainer = c
	return nil
}

// ApplyOverrides copies non-empty flag values onto cfg and re-validates it.
func ApplyOverrides(cfg *config.Config, o ConfigFlags) error {
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if o.DBDriver != "" {
		cfg.Database.Driver = o.DBDriver
	}
	if o.DBPath != "" {
		cfg.Database.Path = o.DBPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetContainer returns the container built for the running command.
func GetContainer() *container.Container {
	return appContainer
}

// GetConfig returns the configuration of the running command.
func GetConfig() *config.Config {
	return appConfig
}

// GetLogger returns the configured logger.
func GetLogger() logging.Logger {
	return Log
}
