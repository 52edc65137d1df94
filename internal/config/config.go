// Package config provides configuration structures and loading for goxplore.
package config

import "fmt"

// Config represents the complete pipeline configuration.
type Config struct {
	Source     DatabaseConfig       `yaml:"source" mapstructure:"source"`
	Jobs       map[string]JobConfig `yaml:"jobs" mapstructure:"jobs"`
	Processing ProcessingConfig     `yaml:"processing" mapstructure:"processing"`
	Graph      GraphConfig          `yaml:"graph" mapstructure:"graph"`
	Logging    LoggingConfig        `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents a MySQL connection used as a row source (§6).
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// GraphConfig selects where the translated graph (§4.9) is persisted.
type GraphConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"` // "sqlite" or "memory"
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ProcessingConfig represents batch processing settings for the
// mapping/transformation stage (§4.8).
type ProcessingConfig struct {
	BatchSize    int     `yaml:"batch_size" mapstructure:"batch_size"`
	SleepSeconds float64 `yaml:"sleep_seconds" mapstructure:"sleep_seconds"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// JobConfig represents one pipeline run: the target (clean-schema)
// metadata and mapping (§4.8) a job transforms the source database into,
// the group selectors (§4.10) and pos/neg pair it compares, and the
// AAG/filter thresholds (§4.11/§4.12) it applies. Source-side metadata is
// never configured here — internal/pipeline profiles it at run time with
// internal/metagen, since it describes tables the job reads but does not
// own the schema of.
type JobConfig struct {
	MetadataPath string                 `yaml:"metadata_path" mapstructure:"metadata_path"`
	MappingPath  string                 `yaml:"mapping_path" mapstructure:"mapping_path"`
	RootTable    string                 `yaml:"root_table" mapstructure:"root_table"`
	Groups       map[string]GroupConfig `yaml:"groups" mapstructure:"groups"`
	PosNeg       *PosNegConfig          `yaml:"pos_neg,omitempty" mapstructure:"pos_neg"`
	AAG          AAGConfig              `yaml:"aag" mapstructure:"aag"`
	Filter       FilterConfig           `yaml:"filter" mapstructure:"filter"`
}

// GroupConfig names one group selector (§4.10): GroupTable plus a
// textual Condition in the §4.2 printed form, parsed via internal/expr.
type GroupConfig struct {
	Table     string `yaml:"table" mapstructure:"table"`
	Condition string `yaml:"condition" mapstructure:"condition"`
}

// PosNegConfig names the positive/negative group pair the AAG generator
// (§4.11) uses for prevalence_difference/prevalence_ratio, when the run
// compares exactly two groups directionally rather than taking the max
// over every pair.
type PosNegConfig struct {
	Positive string `yaml:"positive" mapstructure:"positive"`
	Negative string `yaml:"negative" mapstructure:"negative"`
}

// AAGConfig holds the §4.11 thresholds a job's AAG generation pass uses.
type AAGConfig struct {
	MaxPathLength        int     `yaml:"max_path_length" mapstructure:"max_path_length"`
	FrequencyLow         float64 `yaml:"frequency_low" mapstructure:"frequency_low"`
	FrequencyHigh        float64 `yaml:"frequency_high" mapstructure:"frequency_high"`
	DistinctionDiffLow   float64 `yaml:"distinction_diff_low" mapstructure:"distinction_diff_low"`
	DistinctionDiffHigh  float64 `yaml:"distinction_diff_high" mapstructure:"distinction_diff_high"`
	DistinctionRatioLow  float64 `yaml:"distinction_ratio_low" mapstructure:"distinction_ratio_low"`
	DistinctionRatioHigh float64 `yaml:"distinction_ratio_high" mapstructure:"distinction_ratio_high"`
}

// FilterConfig holds the §4.12 post-filter settings a job applies to the
// AAG generator's output before a graph write.
type FilterConfig struct {
	PrevalenceMin              *float64 `yaml:"prevalence_min,omitempty" mapstructure:"prevalence_min"`
	PrevalenceMax              *float64 `yaml:"prevalence_max,omitempty" mapstructure:"prevalence_max"`
	MissingRatioMax            *float64 `yaml:"missing_ratio_max,omitempty" mapstructure:"missing_ratio_max"`
	CondPrevalenceMin          *float64 `yaml:"cond_prevalence_min,omitempty" mapstructure:"cond_prevalence_min"`
	PercNofNodes               float64  `yaml:"perc_nof_nodes" mapstructure:"perc_nof_nodes"`
	MaxNofNodes                int      `yaml:"max_nof_nodes" mapstructure:"max_nof_nodes"`
	PercNofEdges               float64  `yaml:"perc_nof_edges" mapstructure:"perc_nof_edges"`
	MaxNofEdges                int      `yaml:"max_nof_edges" mapstructure:"max_nof_edges"`
	IncludeConditionalDecrease bool     `yaml:"include_conditional_decrease" mapstructure:"include_conditional_decrease"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Processing: ProcessingConfig{
			BatchSize:    1000,
			SleepSeconds: 0,
		},
		Graph: GraphConfig{
			Backend: "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// GetJob retrieves a specific job configuration by name.
func (c *Config) GetJob(name string) (*JobConfig, error) {
	job, exists := c.Jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %q not found in configuration", name)
	}
	return &job, nil
}

// ListJobs returns all job names defined in the configuration.
func (c *Config) ListJobs() []string {
	jobs := make([]string, 0, len(c.Jobs))
	for name := range c.Jobs {
		jobs = append(jobs, name)
	}
	return jobs
}
