package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ApiratRepublic/RePublic/pkg/core"
	"github.com/ApiratRepublic/RePublic/pkg/rules"
)

// Options configures one dataset run.
type Options struct {
	// StrictNumeric is passed to every evaluator.
	StrictNumeric bool
	// LayerWorkers bounds how many layers are validated at once. Values below
	// one validate sequentially.
	LayerWorkers int
	// OverlapDir receives duplicate-geometry subsets; empty disables them.
	OverlapDir string
	// Basename names overlap artifacts and identity tables.
	Basename string
	// Clock stamps entries; nil uses time.Now.
	Clock Clock
	// Logger is optional.
	Logger *slog.Logger
}

// LayerError is the Failed outcome of one layer: an unexpected failure
// outside rule evaluation.
type LayerError struct {
	Layer string
	Err   error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("layer %s: %v", e.Layer, e.Err)
}

func (e *LayerError) Unwrap() error { return e.Err }

// LayerResult is the outcome of validating one classified layer.
type LayerResult struct {
	Layer    string
	Kind     core.LayerKind
	Records  int64
	CountErr error
	Entries  int
	Artifact string
	Duration time.Duration
	// Err is a *LayerError when the layer failed; its entries up to the
	// failure are still in the ledger.
	Err error
}

// Failed reports whether the layer ended with a Validator Error.
func (r LayerResult) Failed() bool { return r.Err != nil }

// DatasetResult is the outcome of one dataset run.
type DatasetResult struct {
	Dataset string
	Ledger  *Ledger
	Layers  []LayerResult
	// Unclassified lists layers that matched no known kind.
	Unclassified []string
}

// Run validates every classified layer of ds. Only a failure to enumerate
// layers is returned as an error; everything else is recorded in the ledger.
func Run(ctx context.Context, ds core.Dataset, opts Options) (*DatasetResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("dataset", ds.Ref()))

	names, err := ds.Layers(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate layers: %w", err)
	}

	ledger := NewLedger(ds.Ref(), opts.Clock)
	res := &DatasetResult{Dataset: ds.Ref(), Ledger: ledger}

	type job struct {
		layer   string
		catalog *rules.Catalog
	}
	var jobs []job
	for _, name := range names {
		c, ok := rules.ForLayer(name)
		if !ok {
			res.Unclassified = append(res.Unclassified, name)
			continue
		}
		jobs = append(jobs, job{layer: name, catalog: c})
	}
	logger.Debug("layers classified",
		slog.Int("classified", len(jobs)),
		slog.Int("unclassified", len(res.Unclassified)))

	segs := make([]*Segment, len(jobs))
	res.Layers = make([]LayerResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	if opts.LayerWorkers > 0 {
		g.SetLimit(opts.LayerWorkers)
	} else {
		g.SetLimit(1)
	}
	for i, j := range jobs {
		segs[i] = ledger.Segment(j.layer)
		g.Go(func() error {
			res.Layers[i] = dispatch(gctx, ds, j.layer, j.catalog, segs[i], opts, logger)
			return nil
		})
	}
	_ = g.Wait()

	ledger.Merge(segs...)
	return res, nil
}

// dispatch validates one layer and converts any unexpected failure into a
// Validator Error entry.
func dispatch(ctx context.Context, ds core.Dataset, layer string, c *rules.Catalog,
	seg *Segment, opts Options, logger *slog.Logger) (res LayerResult) {
	start := time.Now()
	logger = logger.With(slog.String("layer", layer))
	res = LayerResult{Layer: layer, Kind: c.Kind}

	defer func() {
		if p := recover(); p != nil {
			res.Err = &LayerError{Layer: layer, Err: fmt.Errorf("panic: %v", p)}
		}
		if res.Err != nil {
			seg.AddRecord(core.CheckValidator, core.NoObjectID, "", "", res.Err.Error())
			logger.Error("layer validation failed", slog.String("error", res.Err.Error()))
		}
		res.Entries = seg.Len()
		res.Duration = time.Since(start)
	}()

	if err := validateLayer(ctx, ds, layer, c, seg, opts, logger, &res); err != nil {
		res.Err = &LayerError{Layer: layer, Err: err}
	}
	return res
}

func validateLayer(ctx context.Context, ds core.Dataset, layer string, c *rules.Catalog,
	seg *Segment, opts Options, logger *slog.Logger, res *LayerResult) error {
	fields, err := ds.Fields(ctx, layer)
	if err != nil {
		logger.Warn("field introspection failed", slog.String("error", err.Error()))
		fields = nil
	}
	reg := core.NewFieldRegistry(fields)

	ev := NewEvaluator(c, seg, EvalOptions{StrictNumeric: opts.StrictNumeric})
	if err := ev.CheckSchema(reg); err != nil {
		return err
	}

	cur, err := ds.Cursor(ctx, layer, reg.Present(c.CursorFields()))
	if err != nil {
		ev.Abort(err)
	} else if err := ev.Consume(ctx, cur); err != nil {
		return err
	}
	if err := ev.Finalize(); err != nil {
		return err
	}

	if c.Geometry {
		det := NewOverlapDetector(ds, opts.OverlapDir, opts.Basename, logger)
		out, err := det.Detect(ctx, layer, c.OverlapGroup, seg)
		if err != nil {
			logger.Warn("overlap detection failed", slog.String("error", err.Error()))
		}
		res.Artifact = out.Artifact
	}

	n, err := ds.Count(ctx, layer)
	if err != nil {
		res.CountErr = err
	} else {
		res.Records = n
	}

	logger.Debug("layer validated",
		slog.Int64("records", ev.Records()),
		slog.Int("entries", seg.Len()))
	return nil
}
