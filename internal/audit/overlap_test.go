package audit

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ApiratRepublic/RePublic/internal/testutil"
	"github.com/ApiratRepublic/RePublic/pkg/core"
	"github.com/ApiratRepublic/RePublic/pkg/rules"
)

func blockLayer(geoms map[int64]string) *testutil.Layer {
	l := &testutil.Layer{Name: "BLOCK_FIX_01", Fields: blockFixFields(), Geometry: geoms}
	for i := int64(1); i <= int64(len(geoms)); i++ {
		l.Records = append(l.Records, blockFix(i))
	}
	return l
}

func detect(t *testing.T, ds *testutil.Dataset, outDir string) ([]core.ErrorEntry, OverlapResult, error) {
	t.Helper()
	seg := NewLedger(ds.Ref(), fixedClock).Segment("BLOCK_FIX_01")
	det := NewOverlapDetector(ds, outDir, "area_51", testutil.NewTestLogger(t))
	det.newID = func() string { return "0123abcd-ffff" }
	res, err := det.Detect(context.Background(), "BLOCK_FIX_01", rules.OverlapBlock, seg)
	return seg.Entries(), res, err
}

func TestOverlapCluster(t *testing.T) {
	ds := testutil.NewDataset("ds.gpkg", blockLayer(map[int64]string{1: "A", 2: "A", 3: "A", 4: "B"}))
	dir := t.TempDir()

	entries, res, err := detect(t, ds, dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, core.CheckDuplicatedPolygon, e.Check)
	assert.Equal(t, "[1, 2, 3]", e.ObjectIDs)
	assert.Equal(t, ShapeField, e.Field)
	assert.Equal(t, "3", e.InvalidValue)
	assert.Equal(t, "3 polygons have identical geometry: 1, 2, 3", e.Message)

	require.Len(t, ds.Copies, 1)
	assert.Equal(t, []int64{1, 2, 3}, ds.Copies[0].OIDs)
	want := filepath.Join(dir, "BLOCK", "area_51_BLOCK_FIX_01_duplicates.gpkg")
	assert.Equal(t, want, ds.Copies[0].Path)
	assert.Equal(t, want, res.Artifact)

	assert.Empty(t, ds.Artifacts())
	assert.Equal(t, []string{"ident_area_51_0123abcd"}, ds.Deleted)
}

func TestOverlapUnionOfClusters(t *testing.T) {
	ds := testutil.NewDataset("ds.gpkg", blockLayer(map[int64]string{1: "A", 2: "B", 3: "A", 4: "B", 5: "C"}))

	entries, res, err := detect(t, ds, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "[1, 2, 3, 4]", entries[0].ObjectIDs)
	assert.Equal(t, []int64{1, 2, 3, 4}, res.Duplicates)
	assert.Empty(t, ds.Copies)
}

func TestOverlapClean(t *testing.T) {
	ds := testutil.NewDataset("ds.gpkg", blockLayer(map[int64]string{1: "A", 2: "B", 3: "C"}))

	entries, res, err := detect(t, ds, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, ds.Copies)
	assert.Empty(t, res.Artifact)
	assert.Empty(t, ds.Artifacts())
}

func TestOverlapPreviewTruncated(t *testing.T) {
	geoms := make(map[int64]string)
	for i := int64(1); i <= 25; i++ {
		geoms[i] = "same"
	}
	ds := testutil.NewDataset("ds.gpkg", blockLayer(geoms))

	entries, _, err := detect(t, ds, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "25", entries[0].InvalidValue)
	assert.True(t, strings.HasSuffix(entries[0].Message, "19, 20, ..."))
	assert.NotContains(t, entries[0].Message, "21")
}

func TestOverlapGroupingFallbacks(t *testing.T) {
	geoms := map[int64]string{1: "A", 2: "A"}

	t.Run("group id column", func(t *testing.T) {
		l := blockLayer(geoms)
		l.IdentityFields = []string{core.IdentityInFID, "GROUPID"}
		entries, _, err := detect(t, testutil.NewDataset("ds.gpkg", l), "")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "[1, 2]", entries[0].ObjectIDs)
	})

	t.Run("no group key", func(t *testing.T) {
		l := blockLayer(geoms)
		l.IdentityFields = []string{core.IdentityInFID}
		entries, _, err := detect(t, testutil.NewDataset("ds.gpkg", l), "")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestOverlapFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*testutil.Layer)
		msg    string
	}{
		{"oid field", func(l *testutil.Layer) { l.OIDErr = errors.New("no oid") }, "object id field: no oid"},
		{"identity", func(l *testutil.Layer) { l.IdentityErr = errors.New("boom") }, "find identical: boom"},
		{"missing in_fid", func(l *testutil.Layer) { l.IdentityFields = []string{core.IdentityFeatSeq} },
			"IN_FID not found in identity table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := blockLayer(map[int64]string{1: "A", 2: "A"})
			tt.mutate(l)
			ds := testutil.NewDataset("ds.gpkg", l)

			entries, _, err := detect(t, ds, t.TempDir())
			require.Error(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, core.CheckGeometry, entries[0].Check)
			assert.Equal(t, "-1", entries[0].ObjectIDs)
			assert.Equal(t, ShapeField, entries[0].Field)
			assert.Equal(t, tt.msg, entries[0].Message)
			assert.Empty(t, ds.Copies)
			assert.Empty(t, ds.Artifacts())
		})
	}
}

func TestSafeIdent(t *testing.T) {
	assert.Equal(t, "zone_a_b_1", SafeIdent("Zone-A b.1"))
	assert.Equal(t, "___", SafeIdent("กขค"))
}
