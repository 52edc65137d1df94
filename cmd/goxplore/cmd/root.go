package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	logLevel     string
	logFormat    string
	batchSize    int
	sleepSeconds float64
)

var rootCmd = &cobra.Command{
	Use:   "goxplore",
	Short: "Relational-to-graph comparison pipeline",
	Long: `A CLI tool that profiles a MySQL source database, transforms it into a
target schema, translates the result into a graph, and compares groups
of records over that graph via an Attribute Affinity Graph.

Features:
  - Automatic source metadata generation with type/role inference
  - Declarative mapping from source rows to a target schema
  - Graph translation with key/attribute nodes and typed edges
  - Group-vs-group comparison (prevalence difference/ratio) over the graph
  - Pluggable graph persistence (in-memory or SQLite)`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "goxplore.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Processing overrides
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override batch size for the mapping/transform stage")
	rootCmd.PersistentFlags().Float64Var(&sleepSeconds, "sleep", 0,
		"Override sleep seconds between batches")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel     string
	LogFormat    string
	BatchSize    int
	SleepSeconds float64
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		BatchSize:    batchSize,
		SleepSeconds: sleepSeconds,
	}
}
