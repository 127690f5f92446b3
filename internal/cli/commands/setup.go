// Package commands implements the gdbcheck subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ApiratRepublic/RePublic/internal/cli/config"
	"github.com/ApiratRepublic/RePublic/internal/cli/output"
	sharedcfg "github.com/ApiratRepublic/RePublic/internal/config"
	"github.com/ApiratRepublic/RePublic/internal/engine"
	"github.com/ApiratRepublic/RePublic/internal/report"
	"github.com/spf13/cobra"

	// Register dataset sources.
	_ "github.com/ApiratRepublic/RePublic/pkg/adapters/duckdb"
	_ "github.com/ApiratRepublic/RePublic/pkg/adapters/gpkg"
	_ "github.com/ApiratRepublic/RePublic/pkg/adapters/postgres"
)

// CommandContext bundles what a command needs to run.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// getConfig returns the configuration loaded by the root command.
func getConfig() *config.Config {
	return config.GetCurrentConfig()
}

// NewCommandContext loads the engine for cmd. Callers must call the
// returned cleanup function.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return nil, nil, err
	}
	eng, err := createEngine(cc.Cfg, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.Engine = eng
	cleanup := func() {
		if err := eng.Close(); err != nil {
			cc.Logger.Warn("failed to close engine", slog.String("error", err.Error()))
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutEngine is NewCommandContext for commands that
// only render static information.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}, nil
}

// createEngine maps the CLI configuration onto the engine.
func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	format, err := report.ParseFormat(cfg.ReportFormat)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		RootDir:       cfg.RootDir,
		Sources:       sharedcfg.DiscoverySources(cfg.Sources),
		ReportDir:     cfg.ReportDir,
		ReportFormat:  format,
		OverlapDir:    cfg.OverlapDir,
		SummaryFile:   cfg.SummaryFile,
		InventoryFile: cfg.InventoryFile,
		Workers:       cfg.Workers,
		LayerWorkers:  cfg.LayerWorkers,
		StrictNumeric: cfg.StrictNumeric,
		StatePath:     cfg.StatePath,
		MetricsFile:   cfg.MetricsFile,
		Logger:        logger,
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
