package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goxplore/internal/config"
	"github.com/dbsmedya/goxplore/internal/database"
	"github.com/dbsmedya/goxplore/internal/lock"
	"github.com/dbsmedya/goxplore/internal/logger"
	"github.com/dbsmedya/goxplore/internal/pipeline"
	"github.com/dbsmedya/goxplore/internal/prettyprint"
	"github.com/dbsmedya/goxplore/internal/rowio"
)

var (
	runJob   string
	runForce bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a job's pipeline end to end",
	Long: `Run profiles the source database, transforms it into the job's target
schema, translates the result into a graph, computes the Attribute
Affinity Graph over the job's comparison groups, and persists the graph
through the configured backend.

The run follows these steps:
  1. Profile the source database (automatic metadata generation)
  2. Load and validate the job's mapping against the profiled source
  3. Transform source rows into target rows
  4. Translate target rows into a graph and persist it
  5. Generate the Attribute Affinity Graph over the job's groups
  6. Apply the post-filter and report the surviving nodes/edges

Example:
  goxplore run --config goxplore.yaml --job arm-comparison`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runJob, "job", "j", "",
		"Job name from configuration file (required)")
	runCmd.MarkFlagRequired("job")

	runCmd.Flags().BoolVar(&runForce, "force", false,
		"Force execution even if job lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, exists := cfg.Jobs[runJob]; !exists {
		return fmt.Errorf("job '%s' not found in configuration", runJob)
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

	log.Infow("starting pipeline run", "job", runJob, "config", configFile)

	dbManager := database.NewManager(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if !runForce {
		jobLock := lock.NewJobLock(dbManager.Source, runJob)
		if err := jobLock.AcquireOrFail(ctx); err != nil {
			if errors.Is(err, lock.ErrLockTimeout) {
				return fmt.Errorf("job '%s' is already running on another instance (use --force to override)", runJob)
			}
			return fmt.Errorf("failed to acquire job lock: %w", err)
		}
		defer jobLock.ReleaseLock(context.Background())
		log.Infow("acquired advisory lock for job", "job", runJob)
	} else {
		log.Warnw("skipping advisory lock acquisition (--force flag used)", "job", runJob)
	}

	tables, err := listSourceTables(dbManager.Source)
	if err != nil {
		return fmt.Errorf("failed to list source tables: %w", err)
	}
	source := rowio.NewMySQLSource(dbManager.Source, tables, nil)

	orch, err := pipeline.NewOrchestrator(cfg, runJob, source, log)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if err := orch.Initialize(); err != nil {
		return fmt.Errorf("orchestrator initialization failed: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("received shutdown signal - cancelling run")
		cancel()
	}()

	result, err := orch.Execute(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("pipeline run cancelled")
			return nil
		}
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	cmd.Println(prettyprint.Summary(result))

	if !result.Success {
		return fmt.Errorf("pipeline run completed without success")
	}
	return nil
}
