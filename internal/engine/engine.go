// Package engine orchestrates a validation run: it discovers datasets,
// validates them in parallel, writes the reports and records run history.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ApiratRepublic/RePublic/internal/discovery"
	"github.com/ApiratRepublic/RePublic/internal/metrics"
	"github.com/ApiratRepublic/RePublic/internal/report"
	"github.com/ApiratRepublic/RePublic/internal/state"
)

// Engine runs validation and inventory over the configured datasets.
type Engine struct {
	cfg     Config
	logger  *slog.Logger
	store   state.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

// Config holds engine configuration.
type Config struct {
	// RootDir is walked for dataset files
	RootDir string
	// Sources claims files by extension and lists database sources
	Sources []discovery.Source

	// ReportDir receives dated per-dataset error reports (optional)
	ReportDir string
	// ReportFormat of the per-dataset reports
	ReportFormat report.Format
	// OverlapDir receives duplicate-geometry subsets (optional)
	OverlapDir string
	// SummaryFile is the run summary workbook (optional)
	SummaryFile string
	// InventoryFile is the inventory workbook (optional)
	InventoryFile string

	// Workers bounds concurrently validated datasets
	Workers int
	// LayerWorkers bounds concurrently validated layers per dataset
	LayerWorkers int
	// StrictNumeric reports values whose range check could not run
	StrictNumeric bool

	// StatePath is the run history database; empty disables history
	StatePath string
	// MetricsFile is the prometheus textfile written after a run (optional)
	MetricsFile string

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Clock overrides time.Now (optional)
	Clock func() time.Time
}

// New creates an engine and opens the run history store when configured.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	if cfg.ReportFormat == "" {
		cfg.ReportFormat = report.FormatXLSX
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	logger.Debug("initializing engine",
		slog.String("root_dir", cfg.RootDir),
		slog.Int("workers", cfg.Workers),
		slog.Int("layer_workers", cfg.LayerWorkers))

	e := &Engine{cfg: cfg, logger: logger, now: now}
	if cfg.MetricsFile != "" {
		e.metrics = metrics.New()
	}
	if cfg.StatePath != "" {
		store, err := openStore(cfg.StatePath, logger)
		if err != nil {
			return nil, err
		}
		e.store = store
	}
	return e, nil
}

func openStore(path string, logger *slog.Logger) (state.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

// Close releases the state store.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Store returns the run history store, or nil when history is disabled.
func (e *Engine) Store() state.Store {
	return e.store
}

func (e *Engine) discover(ctx context.Context) (*discovery.Result, error) {
	return discovery.Discover(ctx, discovery.Options{Root: e.cfg.RootDir, Sources: e.cfg.Sources}, e.logger)
}
