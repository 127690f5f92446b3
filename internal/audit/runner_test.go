package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ApiratRepublic/RePublic/internal/testutil"
	"github.com/ApiratRepublic/RePublic/pkg/core"
)

func runOpts(t *testing.T) Options {
	return Options{
		LayerWorkers: 4,
		Basename:     "area_51",
		Clock:        fixedClock,
		Logger:       testutil.NewTestLogger(t),
	}
}

func TestRunClassifiesAndMergesInOrder(t *testing.T) {
	roads := &testutil.Layer{
		Name:    "ROAD_01",
		Fields:  roadFields(),
		Records: []core.Record{road(1, "BRANCH_CODE", "67000001"), road(2)},
	}
	blocks := blockLayer(map[int64]string{1: "A", 2: "A"})
	blocks.Records[1] = blockFix(2, "STREET_NAME", "-", "STREET_CODE", "R002")
	other := &testutil.Layer{Name: "LANDMARK_01"}

	ds := testutil.NewDataset("/data/zone/area/ds.gpkg", roads, other, blocks)
	res, err := Run(context.Background(), ds, runOpts(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"LANDMARK_01"}, res.Unclassified)
	require.Len(t, res.Layers, 2)
	assert.Equal(t, "ROAD_01", res.Layers[0].Layer)
	assert.Equal(t, core.LayerRoad, res.Layers[0].Kind)
	assert.Equal(t, int64(2), res.Layers[0].Records)
	assert.Equal(t, 1, res.Layers[0].Entries)
	assert.Equal(t, "BLOCK_FIX_01", res.Layers[1].Layer)

	entries := res.Ledger.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []core.CheckKind{
		core.CheckConditional,
		core.CheckDataRequired,
		core.CheckDuplicatedPolygon,
	}, checks(entries))
	assert.Equal(t, "ROAD_01", entries[0].Layer)
	assert.Equal(t, "BLOCK_FIX_01", entries[2].Layer)
	for _, e := range entries {
		assert.Equal(t, "/data/zone/area/ds.gpkg", e.Dataset)
		assert.Equal(t, fixedTime, e.Timestamp)
	}
	assert.Empty(t, ds.Artifacts())
}

func TestRunLayerEnumerationFailure(t *testing.T) {
	ds := testutil.NewDataset("ds.gpkg")
	ds.LayersErr = errors.New("corrupt container")

	res, err := Run(context.Background(), ds, runOpts(t))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "corrupt container")
}

func TestRunCleanDatasetHasEmptyLedger(t *testing.T) {
	ds := testutil.NewDataset("ds.gpkg", &testutil.Layer{
		Name:    "ROAD_02",
		Fields:  roadFields(),
		Records: []core.Record{road(1), road(2)},
	})
	res, err := Run(context.Background(), ds, runOpts(t))
	require.NoError(t, err)
	assert.True(t, res.Ledger.Empty())
	assert.Empty(t, res.Layers[0].Artifact)
}

func TestRunRecordsCountFailure(t *testing.T) {
	ds := testutil.NewDataset("ds.gpkg", &testutil.Layer{
		Name:     "PARCEL_REL_01",
		Fields:   nil,
		CountErr: errors.New("count failed"),
	})
	res, err := Run(context.Background(), ds, runOpts(t))
	require.NoError(t, err)
	require.Len(t, res.Layers, 1)
	assert.Error(t, res.Layers[0].CountErr)
	assert.False(t, res.Layers[0].Failed())
	assert.Equal(t, 15, res.Ledger.Len())
}

func TestRunCursorOpenFailure(t *testing.T) {
	ds := testutil.NewDataset("ds.gpkg", &testutil.Layer{
		Name:      "BLOCK_PRICE_01",
		Fields:    blockFixFields(),
		CursorErr: errors.New("locked"),
	})
	res, err := Run(context.Background(), ds, runOpts(t))
	require.NoError(t, err)

	entries := res.Ledger.Entries()
	require.NotEmpty(t, entries)
	assert.Contains(t, checks(entries), core.CheckCursor)
}

type panickyDataset struct {
	*testutil.Dataset
}

func (p panickyDataset) Count(context.Context, string) (int64, error) {
	panic("driver exploded")
}

func TestRunConvertsFailureToValidatorError(t *testing.T) {
	inner := testutil.NewDataset("ds.gpkg",
		&testutil.Layer{Name: "ROAD_01", Fields: roadFields(), Records: []core.Record{road(1)}},
		&testutil.Layer{Name: "ROAD_02", Fields: roadFields(), Records: []core.Record{road(1)}},
	)
	res, err := Run(context.Background(), panickyDataset{inner}, runOpts(t))
	require.NoError(t, err)
	require.Len(t, res.Layers, 2)

	for _, lr := range res.Layers {
		require.True(t, lr.Failed())
		var le *LayerError
		require.ErrorAs(t, lr.Err, &le)
		assert.Equal(t, lr.Layer, le.Layer)
	}

	entries := res.Ledger.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, core.CheckValidator, e.Check)
		assert.Contains(t, e.Message, "driver exploded")
	}
}

func TestLedgerCounts(t *testing.T) {
	l := NewLedger("ds", fixedClock)
	a := l.Segment("ROAD_01")
	b := l.Segment("BLOCK_FIX_01")
	a.AddRecord(core.CheckDataFormat, 1, "F", "", "")
	a.AddRecord(core.CheckDataFormat, 2, "F", "", "")
	a.AddRecord(core.CheckConditional, 3, "F", "", "")
	b.AddRecord(core.CheckDataRequired, 1, "F", "", "")
	l.Merge(a, nil, b)

	assert.Equal(t, 4, l.Len())
	assert.Equal(t, []CheckCount{
		{Layer: "BLOCK_FIX_01", Check: core.CheckDataRequired, Count: 1},
		{Layer: "ROAD_01", Check: core.CheckDataFormat, Count: 2},
		{Layer: "ROAD_01", Check: core.CheckConditional, Count: 1},
	}, l.Counts())
}
