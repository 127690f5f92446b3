package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ApiratRepublic/RePublic/pkg/adapter"
	"github.com/ApiratRepublic/RePublic/pkg/core"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		expected string
	}{
		{
			name:     "basic connection",
			params:   Params{Host: "localhost", Port: 5432, Database: "landdb", User: "user", Password: "pass"},
			expected: "host=localhost port=5432 dbname=landdb sslmode=disable user=user password=pass",
		},
		{
			name:     "with custom sslmode",
			params:   Params{Host: "gis.example.com", Database: "landdb", User: "admin", SSLMode: "require"},
			expected: "host=gis.example.com port=5432 dbname=landdb sslmode=require user=admin",
		},
		{
			name:     "defaults",
			params:   Params{Database: "landdb"},
			expected: "host=localhost port=5432 dbname=landdb sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.params))
		})
	}
}

func TestConnString(t *testing.T) {
	dsn, err := connString(core.SourceConfig{DSN: "postgres://u@h/db", Params: map[string]any{"database": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u@h/db", dsn)

	dsn, err = connString(core.SourceConfig{Params: map[string]any{"database": "landdb", "port": "5433"}})
	require.NoError(t, err)
	assert.Equal(t, "host=localhost port=5433 dbname=landdb sslmode=disable", dsn)

	_, err = connString(core.SourceConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "params.database")
}

func newMock(t *testing.T, cfg core.SourceConfig) (*Dataset, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	d := newDataset(db, "landdb", cfg, nil)
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d, mock
}

func columnRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"column_name", "data_type"}).
		AddRow("ogc_fid", "integer").
		AddRow("branch_code", "character varying").
		AddRow("parcel_rn", "bigint").
		AddRow("geom", "geometry")
}

const columnsQuery = "FROM information_schema.columns"

func TestRef(t *testing.T) {
	d, _ := newMock(t, core.SourceConfig{Schema: "zone1"})
	assert.Equal(t, "landdb/zone1", d.Ref())

	d, _ = newMock(t, core.SourceConfig{})
	assert.Equal(t, "landdb/public", d.Ref())
}

func TestLayers(t *testing.T) {
	d, mock := newMock(t, core.SourceConfig{Schema: "zone1"})
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WithArgs("zone1").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("PARCEL_01_01").AddRow("ROAD_01"))

	layers, err := d.Layers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"PARCEL_01_01", "ROAD_01"}, layers)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIntrospection(t *testing.T) {
	ctx := context.Background()
	d, mock := newMock(t, core.SourceConfig{Schema: "zone1"})
	for range 3 {
		mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
			WithArgs("zone1", "PARCEL_01_01").
			WillReturnRows(columnRows())
	}

	fields, err := d.Fields(ctx, "PARCEL_01_01")
	require.NoError(t, err)
	assert.Equal(t, []core.Field{
		{Name: "ogc_fid", Type: core.TypeInteger},
		{Name: "branch_code", Type: core.TypeString},
		{Name: "parcel_rn", Type: core.TypeInteger},
		{Name: "geom", Type: core.TypeGeometry},
	}, fields)

	oid, err := d.OIDField(ctx, "PARCEL_01_01")
	require.NoError(t, err)
	assert.Equal(t, "ogc_fid", oid)

	expr, err := d.GeometryExpr(ctx, "PARCEL_01_01")
	require.NoError(t, err)
	assert.Equal(t, `ST_AsBinary("geom")`, expr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOIDFieldMissing(t *testing.T) {
	d, mock := newMock(t, core.SourceConfig{})
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).AddRow("name", "text"))

	_, err := d.OIDField(context.Background(), "ROAD_01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no object id column")
}

func TestCursor(t *testing.T) {
	ctx := context.Background()
	d, mock := newMock(t, core.SourceConfig{Schema: "zone1"})
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).WillReturnRows(columnRows())
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).WillReturnRows(columnRows())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "ogc_fid", "parcel_rn" FROM "zone1"."PARCEL_01_01"`)).
		WillReturnRows(sqlmock.NewRows([]string{"ogc_fid", "parcel_rn"}).
			AddRow(int64(7), int64(12)).
			AddRow(int64(8), nil).
			AddRow(int64(9), int64(3)).
			RowError(2, errors.New("connection reset")))

	cur, err := d.Cursor(ctx, "PARCEL_01_01", []string{"PARCEL_RN", "LAND_NO"})
	require.NoError(t, err)

	require.True(t, cur.Next())
	assert.Equal(t, int64(7), cur.Record().OID)
	assert.Equal(t, core.Number(12), cur.Record().Get("PARCEL_RN"))

	require.True(t, cur.Next())
	assert.True(t, cur.Record().Get("PARCEL_RN").IsNull())

	assert.False(t, cur.Next())
	require.Error(t, cur.Err())
	assert.Contains(t, cur.Err().Error(), "connection reset")
	require.NoError(t, cur.Close())
}

func TestDiscoverSchemas(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT table_schema")).
		WillReturnRows(sqlmock.NewRows([]string{"table_schema"}).AddRow("public").AddRow("zone1"))

	base := core.SourceConfig{Type: Name, DSN: "postgres://h/landdb"}
	got, err := discoverSchemas(context.Background(), db, base)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "public", got[0].Schema)
	assert.Equal(t, "zone1", got[1].Schema)
	assert.Equal(t, base.DSN, got[1].DSN)
}

func TestDiscoverConfiguredSchema(t *testing.T) {
	cfg := core.SourceConfig{Type: Name, Schema: "zone9"}
	got, err := New(nil).Discover(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []core.SourceConfig{cfg}, got)
}

func TestRegistry(t *testing.T) {
	assert.True(t, adapter.IsRegistered(Name), "postgres source should be registered")

	factory, ok := adapter.Get(Name)
	require.True(t, ok)
	src := factory(nil)
	_, isDiscoverer := src.(adapter.Discoverer)
	assert.True(t, isDiscoverer)
	assert.Equal(t, Name, src.Name())
}
