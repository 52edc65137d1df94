package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goxplore/internal/config"
	"github.com/dbsmedya/goxplore/internal/database"
	"github.com/dbsmedya/goxplore/internal/logger"
	"github.com/dbsmedya/goxplore/internal/mapping"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/metagen"
	"github.com/dbsmedya/goxplore/internal/rowio"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and every job's mapping",
	Long: `Validate checks the configuration file and, for every configured job,
profiles the source database and validates its mapping against both the
profiled source and the job's target metadata.

Checks performed:
  - Configuration syntax and required fields
  - Source database connectivity
  - Target metadata file reads and parses
  - Mapping file parses and passes internal/mapping.Validate (table
    reachability, PK/FK role and type consistency)

Example:
  goxplore validate --config goxplore.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.BatchSize, overrides.SleepSeconds)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting validation checks")

	dbManager := database.NewManager(cfg)
	ctx := context.Background()

	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	tables, err := listSourceTables(dbManager.Source)
	if err != nil {
		return fmt.Errorf("failed to list source tables: %w", err)
	}

	cmd.Printf("\n=== Configuration Validation ===\n")
	cmd.Printf("Config file: %s\n", configFile)
	cmd.Printf("Jobs found: %d\n\n", len(cfg.Jobs))

	hasErrors := false
	for jobName, jobCfgValue := range cfg.Jobs {
		jobCfg := &jobCfgValue
		cmd.Printf("--- Job: %s ---\n", jobName)
		cmd.Printf("Root table: %s\n", jobCfg.RootTable)

		if err := validateJob(ctx, dbManager, tables, jobCfg); err != nil {
			cmd.Printf("FAILED: %v\n\n", err)
			hasErrors = true
			continue
		}
		cmd.Printf("OK: all checks passed\n\n")
	}

	if hasErrors {
		return fmt.Errorf("validation failed for one or more jobs")
	}

	cmd.Println("=== Validation Complete ===")
	cmd.Println("All jobs validated successfully")
	return nil
}

func validateJob(ctx context.Context, dbManager *database.Manager, tables []string, jobCfg *config.JobConfig) error {
	targetData, err := os.ReadFile(jobCfg.MetadataPath)
	if err != nil {
		return fmt.Errorf("reading target metadata %q: %w", jobCfg.MetadataPath, err)
	}
	target := metadata.New()
	if err := json.Unmarshal(targetData, target); err != nil {
		return fmt.Errorf("parsing target metadata %q: %w", jobCfg.MetadataPath, err)
	}

	source := rowio.NewMySQLSource(dbManager.Source, tables, nil)
	sourceMD, err := metagen.Generate(tables, loaderFor(ctx, source), metagen.DefaultThresholds())
	if err != nil {
		return fmt.Errorf("profiling source database: %w", err)
	}

	mappingData, err := os.ReadFile(jobCfg.MappingPath)
	if err != nil {
		return fmt.Errorf("reading mapping %q: %w", jobCfg.MappingPath, err)
	}
	mp := mapping.New(sourceMD, target)
	if err := json.Unmarshal(mappingData, mp); err != nil {
		return fmt.Errorf("parsing mapping %q: %w", jobCfg.MappingPath, err)
	}
	if err := mp.Validate(); err != nil {
		return fmt.Errorf("invalid mapping: %w", err)
	}
	return nil
}
