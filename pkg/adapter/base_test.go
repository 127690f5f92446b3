package adapter

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

type stubMeta struct {
	layers []string
	fields []core.Field
	geom   string
}

func (m stubMeta) Layers(context.Context) ([]string, error) { return m.layers, nil }
func (m stubMeta) LayerFields(context.Context, string) ([]core.Field, error) {
	return m.fields, nil
}
func (m stubMeta) OIDField(context.Context, string) (string, error) { return "OBJECTID", nil }
func (m stubMeta) GeometryExpr(context.Context, string) (string, error) {
	return m.geom, nil
}

var roadMeta = stubMeta{
	layers: []string{"ROAD_01"},
	fields: []core.Field{
		{Name: "OBJECTID", Type: core.TypeOID},
		{Name: "STREET_NAME", Type: core.TypeString},
		{Name: "SHAPE", Type: core.TypeGeometry},
	},
	geom: `"SHAPE"`,
}

func newBase(t *testing.T, meta Introspector) (*BaseSQLSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &BaseSQLSource{
		DB:      db,
		Cfg:     core.SourceConfig{Path: "/data/zone/area/ds.gpkg"},
		Dialect: Dialect{Name: "test", Placeholder: QuestionPlaceholder, Qualify: QuoteIdent},
		Meta:    meta,
	}, mock
}

func TestBaseSQLSource_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB"},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLSource{}
			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}
			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseSQLSource_NotConnected(t *testing.T) {
	ctx := context.Background()
	base := &BaseSQLSource{Meta: roadMeta}
	assert.False(t, base.IsConnected())

	tests := []struct {
		name string
		op   func() error
	}{
		{"count", func() error { _, err := base.Count(ctx, "ROAD_01"); return err }},
		{"cursor", func() error { _, err := base.Cursor(ctx, "ROAD_01", nil); return err }},
		{"find identical", func() error { return base.FindIdentical(ctx, "ROAD_01", "ident") }},
		{"subset", func() error { _, err := base.WriteSubset(ctx, "ROAD_01", []int64{1}, "x"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "database connection not established")
		})
	}
}

func TestBaseSQLSource_Count(t *testing.T) {
	base, mock := newBase(t, roadMeta)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "ROAD_01"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "ROAD_02"`)).
		WillReturnError(assert.AnError)

	n, err := base.Count(context.Background(), "ROAD_01")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = base.Count(context.Background(), "ROAD_02")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count ROAD_02")
}

func TestBaseSQLSource_Cursor(t *testing.T) {
	base, mock := newBase(t, roadMeta)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "OBJECTID", "STREET_NAME" FROM "ROAD_01"`)).
		WillReturnRows(sqlmock.NewRows([]string{"OBJECTID", "STREET_NAME"}).
			AddRow(int64(3), "Main Rd").
			AddRow("x", "Side Rd"))

	cur, err := base.Cursor(context.Background(), "ROAD_01", []string{"street_name", "ROAD_RN"})
	require.NoError(t, err)
	defer func() { _ = cur.Close() }()

	require.True(t, cur.Next())
	assert.Equal(t, int64(3), cur.Record().OID)
	assert.Equal(t, core.Text("Main Rd"), cur.Record().Get("STREET_NAME"))

	assert.False(t, cur.Next())
	require.Error(t, cur.Err())
	assert.Contains(t, cur.Err().Error(), "object id")
}

func TestBaseSQLSource_FindIdentical(t *testing.T) {
	ctx := context.Background()
	base, mock := newBase(t, roadMeta)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "OBJECTID", "SHAPE" FROM "ROAD_01" WHERE "SHAPE" IS NOT NULL ORDER BY "OBJECTID"`)).
		WillReturnRows(sqlmock.NewRows([]string{"OBJECTID", "SHAPE"}).
			AddRow(int64(1), []byte{1, 1}).
			AddRow(int64(2), []byte{2, 2}).
			AddRow(int64(3), []byte{1, 1}).
			AddRow(int64(4), []byte{}))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TEMP TABLE "ident_a" ("IN_FID" BIGINT, "FEAT_SEQ" BIGINT)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "ident_a" VALUES (?, ?)`))
	for _, row := range [][2]int64{{1, 1}, {2, 2}, {3, 1}} {
		prep.ExpectExec().WithArgs(row[0], row[1]).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, base.FindIdentical(ctx, "ROAD_01", "ident_a"))

	ok, err := base.Exists(ctx, "ident_a")
	require.NoError(t, err)
	assert.True(t, ok)
	fields, err := base.Fields(ctx, "ident_a")
	require.NoError(t, err)
	assert.Len(t, fields, 2)

	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "ident_a"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, base.Delete(ctx, "ident_a"))

	ok, err = base.Exists(ctx, "ident_a")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLSource_FindIdenticalNoGeometry(t *testing.T) {
	meta := roadMeta
	meta.geom = ""
	base, _ := newBase(t, meta)

	err := base.FindIdentical(context.Background(), "ROAD_01", "ident_b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no geometry column")

	has, err := base.HasGeometry(context.Background(), "ROAD_01")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBaseSQLSource_DeleteRefusesLayers(t *testing.T) {
	base, _ := newBase(t, roadMeta)
	err := base.Delete(context.Background(), "ROAD_01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to delete")

	ok, err := base.Exists(context.Background(), "road_01")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWriteSubset(t *testing.T) {
	ctx := context.Background()
	base, mock := newBase(t, roadMeta)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "OBJECTID", "OBJECTID", "STREET_NAME", "SHAPE" FROM "ROAD_01" WHERE "OBJECTID" IN (?, ?) ORDER BY "OBJECTID"`)).
		WithArgs(int64(4), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d"}).
			AddRow(int64(4), int64(4), "Main Rd", []byte{1, 2}).
			AddRow(int64(9), int64(9), "Main Rd", []byte{1, 2}))

	dest := filepath.Join(t.TempDir(), "zone_area_ROAD_01_duplicates")
	path, err := base.WriteSubset(ctx, "ROAD_01", []int64{4, 9}, dest)
	require.NoError(t, err)
	assert.Equal(t, dest+SubsetExt, path)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var ids []int64
	rows, err := db.Query(`SELECT "SOURCE_OID" FROM "ROAD_01" ORDER BY 1`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int64{4, 9}, ids)
}

func TestMapNativeType(t *testing.T) {
	tests := []struct {
		native string
		want   string
	}{
		{"INTEGER", core.TypeInteger},
		{"bigint", core.TypeInteger},
		{"smallint", core.TypeSmallInteger},
		{"DOUBLE PRECISION", core.TypeDouble},
		{"DECIMAL(10,2)", core.TypeDouble},
		{"float4", core.TypeSingle},
		{"character varying", core.TypeString},
		{"TEXT(50)", core.TypeString},
		{"MULTIPOLYGON", core.TypeGeometry},
		{"geometry", core.TypeGeometry},
		{"bytea", core.TypeBlob},
		{"timestamp with time zone", core.TypeDate},
		{"INTERVAL", "INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			assert.Equal(t, tt.want, MapNativeType(tt.native))
		})
	}
}

func TestIdentifiers(t *testing.T) {
	assert.Equal(t, `"ROAD_01"`, QuoteIdent("ROAD_01"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
	assert.Equal(t, "?", QuestionPlaceholder(3))
	assert.Equal(t, "$3", DollarPlaceholder(3))
}
