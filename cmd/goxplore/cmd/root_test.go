package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigFile(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	tests := []struct {
		name     string
		cfgValue string
		want     string
	}{
		{name: "default config file", cfgValue: "", want: ""},
		{name: "custom config file", cfgValue: "/path/to/custom.yaml", want: "/path/to/custom.yaml"},
		{name: "config file with spaces", cfgValue: "/path/to/my config.yaml", want: "/path/to/my config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgFile = tt.cfgValue
			got := GetConfigFile()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetCLIOverrides(t *testing.T) {
	originalLogLevel := logLevel
	originalLogFormat := logFormat
	originalBatchSize := batchSize
	originalSleepSeconds := sleepSeconds
	defer func() {
		logLevel = originalLogLevel
		logFormat = originalLogFormat
		batchSize = originalBatchSize
		sleepSeconds = originalSleepSeconds
	}()

	tests := []struct {
		name         string
		logLevel     string
		logFormat    string
		batchSize    int
		sleepSeconds float64
		want         CLIOverrides
	}{
		{
			name: "empty overrides",
			want: CLIOverrides{},
		},
		{
			name:         "all overrides set",
			logLevel:     "debug",
			logFormat:    "text",
			batchSize:    500,
			sleepSeconds: 2.5,
			want: CLIOverrides{
				LogLevel:     "debug",
				LogFormat:    "text",
				BatchSize:    500,
				SleepSeconds: 2.5,
			},
		},
		{
			name:         "partial overrides",
			logLevel:     "warn",
			batchSize:    1000,
			sleepSeconds: 0.5,
			want: CLIOverrides{
				LogLevel:     "warn",
				BatchSize:    1000,
				SleepSeconds: 0.5,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logLevel = tt.logLevel
			logFormat = tt.logFormat
			batchSize = tt.batchSize
			sleepSeconds = tt.sleepSeconds

			got := GetCLIOverrides()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootCommandStructure(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "goxplore", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Equal(t, Version, rootCmd.Version)
}

func TestRootCommandPersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	configFlag, err := flags.GetString("config")
	assert.NoError(t, err)
	assert.Equal(t, "goxplore.yaml", configFlag)

	logLevelFlag, err := flags.GetString("log-level")
	assert.NoError(t, err)
	assert.Equal(t, "", logLevelFlag)

	logFormatFlag, err := flags.GetString("log-format")
	assert.NoError(t, err)
	assert.Equal(t, "", logFormatFlag)

	batchSizeFlag, err := flags.GetInt("batch-size")
	assert.NoError(t, err)
	assert.Equal(t, 0, batchSizeFlag)

	sleepFlag, err := flags.GetFloat64("sleep")
	assert.NoError(t, err)
	assert.Equal(t, float64(0), sleepFlag)
}

func TestRootCommandSubcommands(t *testing.T) {
	commands := rootCmd.Commands()
	commandNames := make([]string, len(commands))
	for i, cmd := range commands {
		commandNames[i] = cmd.Name()
	}

	expectedCommands := []string{
		"run",
		"list-jobs",
		"validate",
		"version",
	}

	for _, expected := range expectedCommands {
		assert.Contains(t, commandNames, expected, "Expected command %s not found", expected)
	}
}
