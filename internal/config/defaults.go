package config

import (
	"os"
	"regexp"
)

// Default configuration values.
const (
	DefaultReportDir     = "reports"
	DefaultOverlapDir    = "overlaps"
	DefaultSummaryFile   = "reports/summary.xlsx"
	DefaultInventoryFile = "reports/inventory.xlsx"
	DefaultReportFormat  = "xlsx"
	DefaultWorkers       = 4
	DefaultLayerWorkers  = 1
	DefaultStateFile     = ".gdbcheck/state.db"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 30
)

// DefaultSources claims GeoPackage and DuckDB files by their usual extensions.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{Type: "gpkg"},
		{Type: "duckdb"},
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}
