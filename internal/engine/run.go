package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ApiratRepublic/RePublic/internal/audit"
	"github.com/ApiratRepublic/RePublic/internal/discovery"
	"github.com/ApiratRepublic/RePublic/internal/report"
	"github.com/ApiratRepublic/RePublic/internal/state"
	"github.com/ApiratRepublic/RePublic/pkg/adapter"
	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// DatasetOutcome is the result of validating one discovered dataset.
type DatasetOutcome struct {
	Dataset string
	// Result is nil when the dataset could not be opened or enumerated.
	Result *audit.DatasetResult
	// ReportPath is empty when the dataset had no entries.
	ReportPath string
	Err        error
}

// Entries returns the number of ledger entries.
func (o DatasetOutcome) Entries() int {
	if o.Result == nil || o.Result.Ledger == nil {
		return 0
	}
	return o.Result.Ledger.Len()
}

// Layers returns the number of classified layers validated.
func (o DatasetOutcome) Layers() int {
	if o.Result == nil {
		return 0
	}
	return len(o.Result.Layers)
}

// RunResult summarizes one validate run.
type RunResult struct {
	// RunID is empty when history is disabled.
	RunID       string
	Datasets    []DatasetOutcome
	Discovery   []discovery.Error
	SummaryPath string
}

// Totals sums the run counters.
func (r *RunResult) Totals() state.RunTotals {
	t := state.RunTotals{Datasets: len(r.Datasets)}
	for _, d := range r.Datasets {
		t.Layers += d.Layers()
		t.Entries += d.Entries()
	}
	return t
}

// Failed returns the number of datasets that could not be validated.
func (r *RunResult) Failed() int {
	n := 0
	for _, d := range r.Datasets {
		if d.Err != nil {
			n++
		}
	}
	return n
}

// Validate discovers and validates every dataset. Per-dataset failures are
// recorded in the result; the returned error is reserved for discovery
// failures, cancellation and history/summary write errors.
func (e *Engine) Validate(ctx context.Context) (*RunResult, error) {
	started := e.now()
	e.logger.Info("starting validation", slog.String("root_dir", e.cfg.RootDir))

	res := &RunResult{}
	if e.store != nil {
		run, err := e.store.CreateRun(e.cfg.RootDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		res.RunID = run.ID
		e.logger.Debug("created run", slog.String("run_id", run.ID))
	}

	found, err := e.discover(ctx)
	if err != nil {
		e.completeRun(res, state.RunStatusFailed, err)
		return res, fmt.Errorf("discovery failed: %w", err)
	}
	res.Discovery = found.Errors

	summary := report.NewSummary()
	res.Datasets = make([]DatasetOutcome, len(found.Datasets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, cfg := range found.Datasets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				res.Datasets[i] = DatasetOutcome{Dataset: discovery.Label(cfg), Err: err}
				return nil
			}
			out := e.validateDataset(gctx, cfg, started)
			if out.Result != nil {
				summary.Add(started, out.Result)
			}
			e.metrics.ObserveDataset(out.Result)
			res.Datasets[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, d := range res.Datasets {
		if err := e.recordDataset(res.RunID, d); err != nil {
			errs = append(errs, err)
		}
	}

	if e.cfg.SummaryFile != "" {
		if err := summary.Write(e.cfg.SummaryFile); err != nil {
			errs = append(errs, err)
		} else {
			res.SummaryPath = e.cfg.SummaryFile
			e.logger.Info("summary written", slog.String("path", e.cfg.SummaryFile))
		}
	}
	if e.cfg.MetricsFile != "" {
		if err := e.metrics.WriteTextfile(e.cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}

	status := state.RunStatusCompleted
	if ctxErr := ctx.Err(); ctxErr != nil {
		status = state.RunStatusCancelled
		errs = append(errs, ctxErr)
	}
	runErr := errors.Join(errs...)
	e.completeRun(res, status, runErr)

	t := res.Totals()
	e.logger.Info("validation finished",
		slog.Int("datasets", t.Datasets),
		slog.Int("failed", res.Failed()),
		slog.Int("layers", t.Layers),
		slog.Int("entries", t.Entries))
	return res, runErr
}

// validateDataset opens, validates and reports one dataset.
func (e *Engine) validateDataset(ctx context.Context, cfg core.SourceConfig, started time.Time) DatasetOutcome {
	label := discovery.Label(cfg)
	logger := e.logger.With(slog.String("dataset", label))
	out := DatasetOutcome{Dataset: label}

	ds, err := adapter.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open dataset", slog.String("error", err.Error()))
		out.Err = fmt.Errorf("open: %w", err)
		return out
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logger.Warn("failed to close dataset", slog.String("error", err.Error()))
		}
	}()
	out.Dataset = ds.Ref()

	result, err := audit.Run(ctx, ds, audit.Options{
		StrictNumeric: e.cfg.StrictNumeric,
		LayerWorkers:  e.cfg.LayerWorkers,
		OverlapDir:    e.cfg.OverlapDir,
		Basename:      report.Basename(ds.Ref()),
		Clock:         e.now,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("failed to validate dataset", slog.String("error", err.Error()))
		out.Err = err
		return out
	}
	out.Result = result

	if result.Ledger.Empty() {
		logger.Info("no errors found", slog.Int("layers", len(result.Layers)))
		return out
	}
	if e.cfg.ReportDir == "" {
		logger.Info("errors found", slog.Int("entries", result.Ledger.Len()))
		return out
	}
	path := report.ErrorReportPath(e.cfg.ReportDir, started, ds.Ref(), e.cfg.ReportFormat)
	if err := report.WriteErrorReport(path, e.cfg.ReportFormat, result.Ledger.Entries()); err != nil {
		logger.Error("failed to write error report", slog.String("error", err.Error()))
		out.Err = err
		return out
	}
	out.ReportPath = path
	logger.Info("error report written",
		slog.String("path", path),
		slog.Int("entries", result.Ledger.Len()))
	return out
}

func (e *Engine) recordDataset(runID string, d DatasetOutcome) error {
	if e.store == nil {
		return nil
	}
	dr := state.DatasetRun{
		RunID:      runID,
		Dataset:    d.Dataset,
		Status:     state.RunStatusCompleted,
		Layers:     d.Layers(),
		Entries:    d.Entries(),
		ReportPath: d.ReportPath,
	}
	if d.Err != nil {
		dr.Status = state.RunStatusFailed
		dr.Error = d.Err.Error()
	}
	var counts []state.CheckCount
	if d.Result != nil {
		for _, c := range d.Result.Ledger.Counts() {
			counts = append(counts, state.CheckCount{
				Dataset: d.Dataset, Layer: c.Layer, Check: c.Check.String(), Count: c.Count,
			})
		}
	}
	if err := e.store.RecordDataset(dr, counts); err != nil {
		return fmt.Errorf("record dataset %s: %w", d.Dataset, err)
	}
	return nil
}

func (e *Engine) completeRun(res *RunResult, status state.RunStatus, err error) {
	if e.store == nil || res.RunID == "" {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
		if status == state.RunStatusCompleted {
			status = state.RunStatusFailed
		}
	}
	if cerr := e.store.CompleteRun(res.RunID, status, res.Totals(), msg); cerr != nil {
		e.logger.Warn("failed to complete run", slog.String("run_id", res.RunID), slog.String("error", cerr.Error()))
	}
}
