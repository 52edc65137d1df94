package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListJobsCommandStructure(t *testing.T) {
	assert.NotNil(t, listJobsCmd)
	assert.Equal(t, "list-jobs", listJobsCmd.Use)
	assert.NotEmpty(t, listJobsCmd.Short)
	assert.NotEmpty(t, listJobsCmd.Long)
	assert.NotNil(t, listJobsCmd.RunE)
}

func writeListJobsConfig(t *testing.T, dir string) string {
	t.Helper()
	configContent := `source:
  host: 127.0.0.1
  port: 3305
  user: root
  password: test
  database: test_db

graph:
  backend: memory

jobs:
  arm-comparison:
    metadata_path: target.json
    mapping_path: mapping.json
    root_table: patient
    groups:
      treatment:
        table: patient
        condition: "(VARIABLE ARM OF TYPE String IN TABLE patient IS \"treatment\")"
      control:
        table: patient
        condition: "(VARIABLE ARM OF TYPE String IN TABLE patient IS \"control\")"
    pos_neg:
      positive: treatment
      negative: control
`
	path := filepath.Join(dir, "test-config.yaml")
	err := os.WriteFile(path, []byte(configContent), 0644)
	assert.NoError(t, err)
	return path
}

func TestRunListJobs(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	tmpDir := t.TempDir()
	validConfig := writeListJobsConfig(t, tmpDir)

	tests := []struct {
		name       string
		configFile string
		wantErr    bool
	}{
		{name: "valid config with jobs", configFile: validConfig, wantErr: false},
		{name: "nonexistent config", configFile: "nonexistent-config.yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgFile = tt.configFile

			var buf bytes.Buffer
			listJobsCmd.SetOut(&buf)
			listJobsCmd.SetErr(&buf)

			err := runListJobs(listJobsCmd, []string{})

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Contains(t, buf.String(), "Jobs defined in")
			}
		})
	}
}

func TestListJobsCommandOutput(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	tmpDir := t.TempDir()
	cfgFile = writeListJobsConfig(t, tmpDir)

	var buf bytes.Buffer
	listJobsCmd.SetOut(&buf)
	listJobsCmd.SetErr(&buf)

	err := runListJobs(listJobsCmd, []string{})
	assert.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Jobs defined in")
	assert.Contains(t, output, "arm-comparison")
	assert.Contains(t, output, "Root Table:")
	assert.Contains(t, output, "Groups:")
	assert.Contains(t, output, "treatment")
	assert.Contains(t, output, "control")
	assert.Contains(t, output, "Pos/Neg pair:  treatment / control")
	assert.Contains(t, output, "Total: 1 job(s)")
}

func TestListJobsIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "list-jobs" {
			found = true
			break
		}
	}
	assert.True(t, found, "list-jobs command should be added to root command")
}

func TestListjobsCmd_Execute_MissingConfig(t *testing.T) {
	origCfgFile := cfgFile
	defer func() {
		cfgFile = origCfgFile
		rootCmd.SetArgs(nil)
	}()

	rootCmd.SetArgs([]string{"list-jobs", "--config", "/tmp/nonexistent_listjobs_config.yaml"})
	err := rootCmd.Execute()
	assert.Error(t, err)
}
