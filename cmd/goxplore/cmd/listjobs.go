package cmd

import (
	"fmt"
	"sort"

	"github.com/dbsmedya/goxplore/internal/config"
	"github.com/spf13/cobra"
)

var listJobsCmd = &cobra.Command{
	Use:   "list-jobs",
	Short: "List all jobs defined in configuration",
	Long: `List-jobs displays all jobs defined in the configuration file
along with their target metadata, mapping, and comparison groups.

Example:
  goxplore list-jobs --config goxplore.yaml`,
	RunE: runListJobs,
}

func init() {
	rootCmd.AddCommand(listJobsCmd)
}

func runListJobs(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	jobNames := cfg.ListJobs()
	if len(jobNames) == 0 {
		cmd.Printf("No jobs defined in %s\n", configFile)
		return nil
	}

	sort.Strings(jobNames)

	cmd.Printf("Jobs defined in %s:\n\n", configFile)

	for i, jobName := range jobNames {
		job, err := cfg.GetJob(jobName)
		if err != nil {
			return fmt.Errorf("failed to get job %q: %w", jobName, err)
		}

		cmd.Printf("%d. %s\n", i+1, jobName)
		cmd.Printf("   Root Table:    %s\n", job.RootTable)
		cmd.Printf("   Metadata:      %s\n", job.MetadataPath)
		cmd.Printf("   Mapping:       %s\n", job.MappingPath)
		cmd.Printf("   Graph backend: %s\n", cfg.Graph.Backend)

		groupNames := make([]string, 0, len(job.Groups))
		for name := range job.Groups {
			groupNames = append(groupNames, name)
		}
		sort.Strings(groupNames)
		cmd.Printf("   Groups:        %d defined\n", len(groupNames))
		for _, name := range groupNames {
			g := job.Groups[name]
			cmd.Printf("      - %s (table: %s)\n", name, g.Table)
		}

		if job.PosNeg != nil {
			cmd.Printf("   Pos/Neg pair:  %s / %s\n", job.PosNeg.Positive, job.PosNeg.Negative)
		} else {
			cmd.Printf("   Pos/Neg pair:  (none, max over all pairs)\n")
		}

		if i < len(jobNames)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d job(s)\n", len(jobNames))
	return nil
}
