package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestRunCommandStructure(t *testing.T) {
	assert.NotNil(t, runCmd)
	assert.Equal(t, "run", runCmd.Use)
	assert.NotEmpty(t, runCmd.Short)
	assert.NotEmpty(t, runCmd.Long)
	assert.NotNil(t, runCmd.RunE)
}

func TestRunCommandFlags(t *testing.T) {
	flags := runCmd.Flags()

	jobFlag := flags.Lookup("job")
	assert.NotNil(t, jobFlag)
	assert.Equal(t, "j", jobFlag.Shorthand)
	assert.Equal(t, "", jobFlag.DefValue)

	requiredAnnotation := jobFlag.Annotations["cobra_annotation_bash_completion_one_required_flag"]
	assert.NotNil(t, requiredAnnotation)

	forceFlag := flags.Lookup("force")
	assert.NotNil(t, forceFlag)
	assert.Equal(t, "false", forceFlag.DefValue)
}

func TestRunIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "run" {
			found = true
			break
		}
	}
	assert.True(t, found, "run command should be added to root command")
}

func TestRunCommandExample(t *testing.T) {
	assert.Contains(t, runCmd.Long, "Example:")
	assert.Contains(t, runCmd.Long, "goxplore run")
}

func TestRunJobVariable(t *testing.T) {
	originalRunJob := runJob
	defer func() {
		runJob = originalRunJob
	}()

	tests := []struct {
		name     string
		jobValue string
	}{
		{name: "empty job", jobValue: ""},
		{name: "simple job name", jobValue: "arm_comparison"},
		{name: "job with hyphens", jobValue: "arm-comparison"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runJob = tt.jobValue
			assert.Equal(t, tt.jobValue, runJob)
		})
	}
}

func TestRunCommandStepsDocumentation(t *testing.T) {
	doc := runCmd.Long
	assert.Contains(t, doc, "Profile")
	assert.Contains(t, doc, "Transform")
	assert.Contains(t, doc, "Affinity")
}

// TestRunCmd_Execute_MissingJobFlag tests execution without required --job flag
func TestRunCmd_Execute_MissingJobFlag(t *testing.T) {
	origCfgFile := cfgFile
	defer func() {
		cfgFile = origCfgFile
		rootCmd.SetArgs(nil)
	}()

	rootCmd.SetArgs([]string{"run"})
	err := rootCmd.Execute()
	assert.Error(t, err)
}

// TestRunCmd_Execute_InvalidJob tests execution with non-existent job name
func TestRunCmd_Execute_InvalidJob(t *testing.T) {
	origCfgFile := cfgFile
	origRunJob := runJob
	defer func() {
		cfgFile = origCfgFile
		runJob = origRunJob
		rootCmd.SetArgs(nil)
	}()

	configFile := createRunTestConfig(t, map[string]interface{}{
		"jobs": map[string]interface{}{
			"valid_job": map[string]interface{}{
				"root_table":    "patient",
				"metadata_path": "target.json",
				"mapping_path":  "mapping.json",
			},
		},
	})

	rootCmd.SetArgs([]string{"run", "--job", "nonexistent_job", "--config", configFile})
	err := rootCmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "job")
	assert.Contains(t, err.Error(), "not found")
}

// TestRunCmd_Execute_MissingConfig tests execution when config file doesn't exist
func TestRunCmd_Execute_MissingConfig(t *testing.T) {
	origCfgFile := cfgFile
	origRunJob := runJob
	defer func() {
		cfgFile = origCfgFile
		runJob = origRunJob
		rootCmd.SetArgs(nil)
	}()

	rootCmd.SetArgs([]string{"run", "--job", "test_job", "--config", "/tmp/nonexistent_goxplore_config.yaml"})
	err := rootCmd.Execute()
	assert.Error(t, err)
}

func createRunTestConfig(t *testing.T, data map[string]interface{}) string {
	t.Helper()

	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "test_config.yaml")

	yamlData, err := yaml.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	err = os.WriteFile(configFile, yamlData, 0644)
	if err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	return configFile
}
