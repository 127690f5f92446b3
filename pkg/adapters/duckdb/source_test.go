package duckdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ApiratRepublic/RePublic/internal/testutil"
	"github.com/ApiratRepublic/RePublic/pkg/adapter"
	"github.com/ApiratRepublic/RePublic/pkg/core"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ds.duckdb")
	db, err := sql.Open("duckdb", path)
	require.NoError(t, err)

	_, err = db.Exec(`CREATE TABLE ROAD_01 (
		OBJECTID INTEGER, STREET_NAME VARCHAR, STREET_CODE VARCHAR,
		BRANCH_CODE VARCHAR, ROAD_RN INTEGER, SHAPE BLOB)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE lookup (code VARCHAR)`)
	require.NoError(t, err)

	a, b := []byte{1, 2, 3, 4}, []byte{9, 9, 9}
	for i, g := range [][]byte{a, b, a, nil} {
		_, err := db.Exec(`INSERT INTO ROAD_01 VALUES (?, 'Main Rd', 'R1', '66000001', ?, ?)`,
			i+10, i+1, g)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())
	return path
}

func open(t *testing.T, cfg core.SourceConfig) *Dataset {
	t.Helper()
	cfg.Type = Name
	ds, err := adapter.Open(context.Background(), cfg, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds.(*Dataset)
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()

	_, err := New(nil).Open(ctx, core.SourceConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path not specified")

	_, err = New(nil).Open(ctx, core.SourceConfig{
		Path:   writeFixture(t),
		Params: map[string]any{"bogus": true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duckdb params")
}

func TestIntrospection(t *testing.T) {
	ctx := context.Background()
	ds := open(t, core.SourceConfig{Path: writeFixture(t)})

	layers, err := ds.Layers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ROAD_01", "lookup"}, layers)

	fields, err := ds.Fields(ctx, "ROAD_01")
	require.NoError(t, err)
	reg := core.NewFieldRegistry(fields)
	typ, _ := reg.Type("ROAD_RN")
	assert.Equal(t, core.TypeInteger, typ)
	typ, _ = reg.Type("STREET_NAME")
	assert.Equal(t, core.TypeString, typ)

	oid, err := ds.OIDField(ctx, "ROAD_01")
	require.NoError(t, err)
	assert.Equal(t, "OBJECTID", oid)
	oid, err = ds.OIDField(ctx, "lookup")
	require.NoError(t, err)
	assert.Equal(t, "rowid", oid)

	expr, err := ds.GeometryExpr(ctx, "ROAD_01")
	require.NoError(t, err)
	assert.Equal(t, `"SHAPE"`, expr)
	has, err := ds.HasGeometry(ctx, "lookup")
	require.NoError(t, err)
	assert.False(t, has)

	n, err := ds.Count(ctx, "ROAD_01")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestCursorUsesObjectID(t *testing.T) {
	ds := open(t, core.SourceConfig{Path: writeFixture(t)})

	cur, err := ds.Cursor(context.Background(), "ROAD_01", []string{"ROAD_RN", "STREET_CODE"})
	require.NoError(t, err)
	defer cur.Close()

	var oids []int64
	for cur.Next() {
		r := cur.Record()
		oids = append(oids, r.OID)
		assert.Equal(t, core.Text("R1"), r.Get("STREET_CODE"))
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, []int64{10, 11, 12, 13}, oids)
}

func TestFindIdentical(t *testing.T) {
	ctx := context.Background()
	ds := open(t, core.SourceConfig{Path: writeFixture(t)})

	require.NoError(t, ds.FindIdentical(ctx, "ROAD_01", "ident_road"))
	cur, err := ds.Cursor(ctx, "ident_road", []string{core.IdentityInFID, core.IdentityFeatSeq})
	require.NoError(t, err)
	got := map[int64]int64{}
	for cur.Next() {
		fid, _ := cur.Record().Get(core.IdentityInFID).Truncate()
		seq, _ := cur.Record().Get(core.IdentityFeatSeq).Truncate()
		got[fid] = seq
	}
	require.NoError(t, cur.Err())
	require.NoError(t, cur.Close())
	assert.Equal(t, map[int64]int64{10: 1, 11: 2, 12: 1}, got)

	layers, err := ds.Layers(ctx)
	require.NoError(t, err)
	assert.NotContains(t, layers, "ident_road")

	require.NoError(t, ds.Delete(ctx, "ident_road"))
}

func TestCopySubsetParquet(t *testing.T) {
	ctx := context.Background()
	ds := open(t, core.SourceConfig{Path: writeFixture(t)})
	base := filepath.Join(t.TempDir(), "zone_ROAD_01_duplicates")

	path, err := ds.CopySubset(ctx, "ROAD_01", []int64{10, 12}, base)
	require.NoError(t, err)
	assert.Equal(t, base+ParquetExt, path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	var n int
	require.NoError(t, ds.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM read_parquet("+quoteLiteral(path)+")").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestRegistered(t *testing.T) {
	assert.True(t, adapter.IsRegistered(Name))
	src, err := adapter.NewSource(core.SourceConfig{Type: Name}, nil)
	require.NoError(t, err)
	assert.Equal(t, Name, src.Name())
}
