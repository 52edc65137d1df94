package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if err := c.validateDatabase("source", &c.Source); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateGraph(); err != nil {
		errors = append(errors, err...)
	}

	if len(c.Jobs) == 0 {
		errors = append(errors, ValidationError{
			Field:   "jobs",
			Message: "at least one job must be defined",
		})
	}
	for name, job := range c.Jobs {
		if err := c.validateJob(name, &job); err != nil {
			errors = append(errors, err...)
		}
	}

	if err := c.validateProcessing(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateGraph() ValidationErrors {
	var errors ValidationErrors

	validBackends := map[string]bool{"sqlite": true, "memory": true, "": true}
	if !validBackends[c.Graph.Backend] {
		errors = append(errors, ValidationError{
			Field:   "graph.backend",
			Message: "backend must be 'sqlite' or 'memory'",
		})
	}

	if c.Graph.Backend == "sqlite" && c.Graph.SQLitePath == "" {
		errors = append(errors, ValidationError{
			Field:   "graph.sqlite_path",
			Message: "sqlite_path is required when backend is 'sqlite'",
		})
	}

	return errors
}

func (c *Config) validateJob(name string, job *JobConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("jobs.%s", name)

	if job.MetadataPath == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".metadata_path",
			Message: "metadata_path is required",
		})
	}

	if job.MappingPath == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".mapping_path",
			Message: "mapping_path is required",
		})
	}

	if job.RootTable == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".root_table",
			Message: "root_table is required",
		})
	}

	for groupName, grp := range job.Groups {
		grpPrefix := fmt.Sprintf("%s.groups.%s", prefix, groupName)
		if grp.Table == "" {
			errors = append(errors, ValidationError{
				Field:   grpPrefix + ".table",
				Message: "table is required",
			})
		}
		if grp.Condition == "" {
			errors = append(errors, ValidationError{
				Field:   grpPrefix + ".condition",
				Message: "condition is required",
			})
		}
	}

	if job.PosNeg != nil {
		if _, ok := job.Groups[job.PosNeg.Positive]; job.PosNeg.Positive != "" && !ok {
			errors = append(errors, ValidationError{
				Field:   prefix + ".pos_neg.positive",
				Message: fmt.Sprintf("group %q is not defined in groups", job.PosNeg.Positive),
			})
		}
		if _, ok := job.Groups[job.PosNeg.Negative]; job.PosNeg.Negative != "" && !ok {
			errors = append(errors, ValidationError{
				Field:   prefix + ".pos_neg.negative",
				Message: fmt.Sprintf("group %q is not defined in groups", job.PosNeg.Negative),
			})
		}
	}

	errors = append(errors, c.validateAAG(prefix, &job.AAG)...)
	errors = append(errors, c.validateFilter(prefix, &job.Filter)...)

	return errors
}

func (c *Config) validateAAG(prefix string, aag *AAGConfig) ValidationErrors {
	var errors ValidationErrors

	if aag.MaxPathLength < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".aag.max_path_length",
			Message: "max_path_length cannot be negative",
		})
	}

	pairs := []struct {
		field     string
		low, high float64
	}{
		{"frequency", aag.FrequencyLow, aag.FrequencyHigh},
		{"distinction_diff", aag.DistinctionDiffLow, aag.DistinctionDiffHigh},
		{"distinction_ratio", aag.DistinctionRatioLow, aag.DistinctionRatioHigh},
	}
	for _, p := range pairs {
		if p.low > 0 && p.high > 0 && p.low > p.high {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.aag.%s_low", prefix, p.field),
				Message: fmt.Sprintf("%s_low must not exceed %s_high", p.field, p.field),
			})
		}
	}

	return errors
}

func (c *Config) validateFilter(prefix string, f *FilterConfig) ValidationErrors {
	var errors ValidationErrors

	if f.PercNofNodes < 0 || f.PercNofNodes > 1 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".filter.perc_nof_nodes",
			Message: "perc_nof_nodes must be between 0 and 1",
		})
	}
	if f.PercNofEdges < 0 || f.PercNofEdges > 1 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".filter.perc_nof_edges",
			Message: "perc_nof_edges must be between 0 and 1",
		})
	}
	if f.MaxNofNodes < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".filter.max_nof_nodes",
			Message: "max_nof_nodes cannot be negative",
		})
	}
	if f.MaxNofEdges < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".filter.max_nof_edges",
			Message: "max_nof_edges cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Processing.SleepSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.sleep_seconds",
			Message: "sleep_seconds cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
