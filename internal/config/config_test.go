package config

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Source.Port != 3306 {
		t.Errorf("expected source port 3306, got %d", cfg.Source.Port)
	}
	if cfg.Source.TLS != "preferred" {
		t.Errorf("expected source TLS 'preferred', got %s", cfg.Source.TLS)
	}
	if cfg.Source.MaxConnections != 10 {
		t.Errorf("expected source max_connections 10, got %d", cfg.Source.MaxConnections)
	}

	if cfg.Graph.Backend != "memory" {
		t.Errorf("expected graph backend 'memory', got %s", cfg.Graph.Backend)
	}

	if cfg.Processing.BatchSize != 1000 {
		t.Errorf("expected batch_size 1000, got %d", cfg.Processing.BatchSize)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected logging format 'json', got %s", cfg.Logging.Format)
	}
}

func TestJobConfigGroups(t *testing.T) {
	job := JobConfig{
		MetadataPath: "metadata.json",
		MappingPath:  "mapping.json",
		RootTable:    "patient",
		Groups: map[string]GroupConfig{
			"treated":   {Table: "patient", Condition: "patient.arm IS 'treatment'"},
			"untreated": {Table: "patient", Condition: "patient.arm IS 'control'"},
		},
		PosNeg: &PosNegConfig{Positive: "treated", Negative: "untreated"},
	}

	if job.RootTable != "patient" {
		t.Errorf("expected root_table 'patient', got %s", job.RootTable)
	}
	if len(job.Groups) != 2 {
		t.Errorf("expected 2 groups, got %d", len(job.Groups))
	}
	if job.PosNeg.Positive != "treated" {
		t.Errorf("expected pos_neg.positive 'treated', got %s", job.PosNeg.Positive)
	}
}

func TestConfigJobsMap(t *testing.T) {
	cfg := &Config{
		Jobs: map[string]JobConfig{
			"cohort_a": {
				RootTable:    "patient",
				MetadataPath: "a.json",
				MappingPath:  "a_map.json",
			},
			"cohort_b": {
				RootTable:    "patient",
				MetadataPath: "b.json",
				MappingPath:  "b_map.json",
			},
		},
	}

	if len(cfg.Jobs) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(cfg.Jobs))
	}

	job, exists := cfg.Jobs["cohort_a"]
	if !exists {
		t.Error("expected 'cohort_a' job to exist")
	}
	if job.RootTable != "patient" {
		t.Errorf("expected root_table 'patient', got %s", job.RootTable)
	}
}

func TestGetJob(t *testing.T) {
	cfg := &Config{
		Jobs: map[string]JobConfig{
			"cohort_a": {RootTable: "patient"},
		},
	}

	job, err := cfg.GetJob("cohort_a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.RootTable != "patient" {
		t.Errorf("expected root_table 'patient', got %s", job.RootTable)
	}

	if _, err := cfg.GetJob("missing"); err == nil {
		t.Error("expected error for missing job, got nil")
	}
}

func TestListJobs(t *testing.T) {
	cfg := &Config{
		Jobs: map[string]JobConfig{
			"cohort_a": {},
			"cohort_b": {},
		},
	}

	names := cfg.ListJobs()
	if len(names) != 2 {
		t.Errorf("expected 2 job names, got %d", len(names))
	}
}
