package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sharedcfg "github.com/ApiratRepublic/RePublic/internal/config"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// envPrefix prefixes environment overrides, e.g. GDBCHECK_ROOT_DIR.
const envPrefix = "GDBCHECK_"

var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// flagKeys maps flag names whose config key differs from the snake_case form.
var flagKeys = map[string]string{
	"state": "state_path",
}

// pathFlags are resolved against the working directory when given as flags.
var pathFlags = []string{"root-dir", "report-dir", "overlap-dir", "summary-file", "inventory-file", "state", "metrics-file", "log-file"}

// inferProjectRoot picks the directory relative paths resolve against.
// Priority: explicit config file dir > nearest dir with gdbcheck.yaml > CWD.
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := sharedcfg.FindProjectRoot(cwd, maxUpwardSearchLevels); root != "" {
		return root
	}
	return cwd
}

func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	projectRoot := inferProjectRoot(cfgFile)

	// Paths given as flags are relative to the CWD, not the project root.
	flagPaths := make(map[string]string)
	if flags != nil {
		for _, name := range pathFlags {
			if f := flags.Lookup(name); f != nil && f.Changed && f.Value.String() != "" {
				if abs, err := filepath.Abs(f.Value.String()); err == nil {
					flagPaths[name] = abs
				}
			}
		}
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"root_dir":         ".",
		"report_dir":       sharedcfg.DefaultReportDir,
		"overlap_dir":      sharedcfg.DefaultOverlapDir,
		"summary_file":     sharedcfg.DefaultSummaryFile,
		"inventory_file":   sharedcfg.DefaultInventoryFile,
		"report_format":    sharedcfg.DefaultReportFormat,
		"workers":          sharedcfg.DefaultWorkers,
		"layer_workers":    sharedcfg.DefaultLayerWorkers,
		"strict_numeric":   false,
		"state_path":       DefaultStateFile,
		"log_level":        sharedcfg.DefaultLogLevel,
		"log_format":       sharedcfg.DefaultLogFormat,
		"log_max_size_mb":  sharedcfg.DefaultLogMaxSizeMB,
		"log_max_backups":  sharedcfg.DefaultLogMaxBackups,
		"log_max_age_days": sharedcfg.DefaultLogMaxAgeDays,
		"output":           DefaultOutput,
		"verbose":          false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = sharedcfg.FindConfigFile(projectRoot)
	}
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables: GDBCHECK_REPORT_DIR -> report_dir
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			if key, ok := flagKeys[f.Name]; ok {
				return key, posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	resolve := func(flag string, p *string) {
		if abs, ok := flagPaths[flag]; ok {
			*p = abs
			return
		}
		*p = resolvePathRelativeTo(*p, projectRoot)
	}
	resolve("root-dir", &cfg.RootDir)
	resolve("report-dir", &cfg.ReportDir)
	resolve("overlap-dir", &cfg.OverlapDir)
	resolve("summary-file", &cfg.SummaryFile)
	resolve("inventory-file", &cfg.InventoryFile)
	resolve("state", &cfg.StatePath)
	resolve("metrics-file", &cfg.MetricsFile)
	resolve("log-file", &cfg.LogFile)

	if len(cfg.Sources) == 0 {
		cfg.Sources = sharedcfg.DefaultSources()
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration loaded by the last LoadConfig.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
