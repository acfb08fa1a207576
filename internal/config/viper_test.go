package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearTestEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FUELTRACK_LOG_LEVEL", "FUELTRACK_LOG_FORMAT", "FUELTRACK_DATABASE_DRIVER",
		"FUELTRACK_DATABASE_PATH", "FUELTRACK_DATABASE_URL", "DATABASE_URL",
		"FUELTRACK_INGEST_DAY_FIRST", "FUELTRACK_ANOMALY_MAX_COUNTER_JUMP",
		"FUELTRACK_PROCESSOR_WORKERS", "FUELTRACK_EXPORT_DELIMITER",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(original)
	})
}

func TestInitializeConfig_Defaults(t *testing.T) {
	clearTestEnvVars(t)
	chdir(t, t.TempDir())

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, DriverSQLite, config.Database.Driver)
	assert.Equal(t, "fueltrack.db", config.Database.Path)
	assert.True(t, config.Ingest.DayFirst)
	assert.Equal(t, 5, config.Ingest.MaxHeaderOffset)
	assert.Equal(t, 2, config.Ingest.MaxSheets)
	assert.Equal(t, 1000.0, config.Anomaly.MaxCounterJump)
	assert.Equal(t, 1, config.Processor.Workers)
	assert.Equal(t, ",", config.Export.Delimiter)
}

func TestDefault_MatchesInitializedDefaults(t *testing.T) {
	clearTestEnvVars(t)
	chdir(t, t.TempDir())

	loaded, err := InitializeConfig()
	require.NoError(t, err)
	assert.Equal(t, loaded, Default())
}

func TestInitializeConfig_EnvironmentVariables(t *testing.T) {
	clearTestEnvVars(t)
	chdir(t, t.TempDir())

	t.Setenv("FUELTRACK_LOG_LEVEL", "debug")
	t.Setenv("FUELTRACK_DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://fleet:secret@db:5432/fleet")
	t.Setenv("FUELTRACK_ANOMALY_MAX_COUNTER_JUMP", "1500")
	t.Setenv("FUELTRACK_INGEST_DAY_FIRST", "false")

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, DriverPostgres, config.Database.Driver)
	assert.Equal(t, "postgresql://fleet:secret@db:5432/fleet", config.Database.URL)
	assert.Equal(t, 1500.0, config.Anomaly.MaxCounterJump)
	assert.False(t, config.Ingest.DayFirst)
}

func TestInitializeConfig_ConfigFileAndPrecedence(t *testing.T) {
	clearTestEnvVars(t)
	dir := t.TempDir()
	chdir(t, dir)

	content := `
log:
  level: "warn"
  format: "json"
database:
  driver: "memory"
processor:
  workers: 4
export:
  delimiter: ";"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600))
	t.Setenv("FUELTRACK_LOG_LEVEL", "error")

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "error", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, DriverMemory, config.Database.Driver)
	assert.Equal(t, 4, config.Processor.Workers)
	assert.Equal(t, ";", config.Export.Delimiter)
}

func TestInitializeConfigFile_Explicit(t *testing.T) {
	clearTestEnvVars(t)
	chdir(t, t.TempDir())

	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("anomaly:\n  max_counter_jump: 250\n"), 0600))

	config, err := InitializeConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 250.0, config.Anomaly.MaxCounterJump)

	_, err = InitializeConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name         string
		modifyConfig func(*Config)
		expectError  string
	}{
		{"invalid log level", func(c *Config) { c.Log.Level = "chatty" }, "invalid log level"},
		{"invalid log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "unknown database driver"},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.url"},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"negative jump", func(c *Config) { c.Anomaly.MaxCounterJump = -1 }, "max_counter_jump"},
		{"zero workers", func(c *Config) { c.Processor.Workers = 0 }, "processor.workers"},
		{"no sheets", func(c *Config) { c.Ingest.MaxSheets = 0 }, "max_sheets"},
		{"long delimiter", func(c *Config) { c.Export.Delimiter = ";;" }, "delimiter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.modifyConfig(config)
			err := validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}

	assert.NoError(t, validateConfig(Default()))
}

func TestNormalizeDatabaseURL(t *testing.T) {
	assert.Equal(t, "postgresql://u@h/db", NormalizeDatabaseURL("postgres://u@h/db"))
	assert.Equal(t, "postgresql://u@h/db", NormalizeDatabaseURL("postgresql://u@h/db"))
	assert.Equal(t, "", NormalizeDatabaseURL(""))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FUELTRACK_TEST_ONLY=from-dotenv\n"), 0600))
	t.Setenv("FUELTRACK_TEST_ONLY", "")
	require.NoError(t, os.Unsetenv("FUELTRACK_TEST_ONLY"))

	loaded := loadEnvFile(filepath.Join(dir, "absent.env"), envFile)
	assert.Equal(t, envFile, loaded)
	assert.Equal(t, "from-dotenv", GetEnv("FUELTRACK_TEST_ONLY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("FUELTRACK_NOT_SET_ANYWHERE", "fallback"))
}
