// Package config provides configuration management for the gdbcheck CLI.
//
// It layers CLI-specific fields (output mode, logging, verbosity) over the
// shared source types from internal/config.
package config

import (
	sharedcfg "github.com/ApiratRepublic/RePublic/internal/config"
)

// SourceConfig is an alias for the shared source configuration.
type SourceConfig = sharedcfg.SourceConfig

// Default values for CLI-only settings.
const (
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultOutput    = "auto"
)

// Config holds all configuration for the CLI.
type Config struct {
	RootDir       string `koanf:"root_dir"`
	ReportDir     string `koanf:"report_dir"`
	OverlapDir    string `koanf:"overlap_dir"`
	SummaryFile   string `koanf:"summary_file"`
	InventoryFile string `koanf:"inventory_file"`
	ReportFormat  string `koanf:"report_format"`

	Workers       int  `koanf:"workers"`
	LayerWorkers  int  `koanf:"layer_workers"`
	StrictNumeric bool `koanf:"strict_numeric"`

	StatePath   string `koanf:"state_path"`
	MetricsFile string `koanf:"metrics_file"`

	LogLevel      string `koanf:"log_level"`
	LogFormat     string `koanf:"log_format"`
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb"`
	LogMaxBackups int    `koanf:"log_max_backups"`
	LogMaxAgeDays int    `koanf:"log_max_age_days"`

	Output  string `koanf:"output"`
	Verbose bool   `koanf:"verbose"`

	Sources []SourceConfig `koanf:"sources"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}
