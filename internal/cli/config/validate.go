package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/ApiratRepublic/RePublic/internal/cli/output"
	"github.com/ApiratRepublic/RePublic/internal/report"
	"github.com/ApiratRepublic/RePublic/pkg/adapter"
)

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Key     string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Key, e.Value, e.Message)
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := report.ParseFormat(c.ReportFormat); err != nil {
		return &ValidationError{Key: "report_format", Value: c.ReportFormat, Message: err.Error()}
	}
	if mode := strings.ToLower(c.Output); mode != "md" && !slices.Contains(output.Modes(), mode) {
		return &ValidationError{Key: "output", Value: c.Output,
			Message: "valid: " + strings.Join(output.Modes(), ", ")}
	}
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		return &ValidationError{Key: "log_level", Value: c.LogLevel,
			Message: "valid: " + strings.Join(logLevels, ", ")}
	}
	if !slices.Contains(logFormats, strings.ToLower(c.LogFormat)) {
		return &ValidationError{Key: "log_format", Value: c.LogFormat,
			Message: "valid: " + strings.Join(logFormats, ", ")}
	}
	if c.Workers < 1 {
		return &ValidationError{Key: "workers", Value: c.Workers, Message: "must be at least 1"}
	}
	if c.LayerWorkers < 0 {
		return &ValidationError{Key: "layer_workers", Value: c.LayerWorkers, Message: "must not be negative"}
	}
	for i, src := range c.Sources {
		if !adapter.IsRegistered(src.Type) {
			return &ValidationError{Key: fmt.Sprintf("sources[%d].type", i), Value: src.Type,
				Message: "unknown adapter type (available: " + strings.Join(adapter.ListAdapters(), ", ") + ")"}
		}
	}
	return nil
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	info, err := os.Stat(c.RootDir)
	if err != nil {
		return fmt.Errorf("root directory does not exist: %s\nHint: use --root-dir to specify the dataset root", c.RootDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("root_dir is not a directory: %s", c.RootDir)
	}
	return nil
}
