package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ApiratRepublic/RePublic/internal/discovery"
	"github.com/ApiratRepublic/RePublic/internal/report"
	"github.com/ApiratRepublic/RePublic/pkg/adapter"
	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// Inventory counts the layers of each kind in every discovered dataset and
// writes the inventory workbook when InventoryFile is set. A dataset that
// cannot be enumerated keeps zero counts.
func (e *Engine) Inventory(ctx context.Context) ([]report.Inventory, error) {
	found, err := e.discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	rows := make([]report.Inventory, len(found.Datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, cfg := range found.Datasets {
		g.Go(func() error {
			rows[i] = e.inventoryDataset(gctx, cfg)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return rows, err
	}

	if e.cfg.InventoryFile != "" {
		if err := report.WriteInventory(e.cfg.InventoryFile, rows); err != nil {
			return rows, err
		}
		e.logger.Info("inventory written",
			slog.String("path", e.cfg.InventoryFile),
			slog.Int("datasets", len(rows)))
	}
	return rows, nil
}

func (e *Engine) inventoryDataset(ctx context.Context, cfg core.SourceConfig) report.Inventory {
	row := report.Inventory{Dataset: discovery.Label(cfg), Counts: report.CountKinds(nil)}
	logger := e.logger.With(slog.String("dataset", row.Dataset))

	ds, err := adapter.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open dataset", slog.String("error", err.Error()))
		row.Err = err
		return row
	}
	defer func() { _ = ds.Close() }()
	row.Dataset = ds.Ref()

	layers, err := ds.Layers(ctx)
	if err != nil {
		logger.Error("failed to enumerate layers", slog.String("error", err.Error()))
		row.Err = err
		return row
	}
	row.Counts = report.CountKinds(layers)
	return row
}
