package gpkg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ApiratRepublic/RePublic/pkg/adapter"
	"github.com/ApiratRepublic/RePublic/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// Name is the registered source type.
const Name = "gpkg"

// Source opens GeoPackage files read-only.
type Source struct {
	logger *slog.Logger
}

// New creates a GeoPackage source.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{logger: logger}
}

// Name returns the registered source type.
func (s *Source) Name() string { return Name }

// Open opens the GeoPackage at cfg.Path. The file is never written; the
// identity tables FindIdentical creates live in the connection's temp schema,
// so the pool is pinned to one connection.
func (s *Source) Open(ctx context.Context, cfg core.SourceConfig) (core.Dataset, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("gpkg: path not specified")
	}
	dsn, err := readOnlyDSN(cfg.Path)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("opening geopackage", slog.String("path", cfg.Path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open geopackage: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open geopackage %s: %w", cfg.Path, err)
	}

	ds := &Dataset{}
	ds.DB = db
	ds.Cfg = cfg
	ds.Logger = s.logger
	ds.Dialect = adapter.Dialect{
		Name:              Name,
		Placeholder:       adapter.QuestionPlaceholder,
		Qualify:           adapter.QuoteIdent,
		NormalizeGeometry: StripHeader,
	}
	ds.Meta = ds
	return ds, nil
}

func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
	return u.String(), nil
}

// Dataset is an open GeoPackage.
type Dataset struct {
	adapter.BaseSQLSource
}

var _ core.Dataset = (*Dataset)(nil)

type column struct {
	name string
	typ  string
	pk   bool
}

func (d *Dataset) columns(ctx context.Context, layer string) ([]column, error) {
	rows, err := d.DB.QueryContext(ctx, "SELECT name, type, pk FROM pragma_table_info(?)", layer)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", layer, err)
	}
	defer func() { _ = rows.Close() }()

	var out []column
	for rows.Next() {
		var c column
		var pk int
		if err := rows.Scan(&c.name, &c.typ, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		c.pk = pk > 0
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", layer, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("layer %s not found", layer)
	}
	return out, nil
}

// Layers lists feature and attribute tables registered in gpkg_contents,
// falling back to every user table for plain SQLite files.
func (d *Dataset) Layers(ctx context.Context) ([]string, error) {
	names, err := d.queryNames(ctx,
		"SELECT table_name FROM gpkg_contents WHERE data_type IN ('features', 'attributes')")
	if err == nil {
		return names, nil
	}
	d.Logger.Debug("gpkg_contents unavailable, listing tables", slog.String("error", err.Error()))
	return d.queryNames(ctx, `SELECT name FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		AND name NOT LIKE 'gpkg\_%' ESCAPE '\'
		AND name NOT LIKE 'rtree\_%' ESCAPE '\'`)
}

func (d *Dataset) queryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// LayerFields introspects a table with pragma_table_info.
func (d *Dataset) LayerFields(ctx context.Context, layer string) ([]core.Field, error) {
	cols, err := d.columns(ctx, layer)
	if err != nil {
		return nil, err
	}
	out := make([]core.Field, len(cols))
	for i, c := range cols {
		out[i] = core.Field{Name: c.name, Type: adapter.MapNativeType(c.typ)}
	}
	return out, nil
}

// OIDField returns the configured id column, the integer primary key, or rowid.
func (d *Dataset) OIDField(ctx context.Context, layer string) (string, error) {
	if d.Cfg.OIDColumn != "" {
		return d.Cfg.OIDColumn, nil
	}
	cols, err := d.columns(ctx, layer)
	if err != nil {
		return "", err
	}
	for _, c := range cols {
		if c.pk && strings.EqualFold(c.typ, "INTEGER") {
			return c.name, nil
		}
	}
	return "rowid", nil
}

// GeometryExpr returns the geometry column registered in
// gpkg_geometry_columns, or the first geometry-typed column.
func (d *Dataset) GeometryExpr(ctx context.Context, layer string) (string, error) {
	if d.Cfg.GeometryColumn != "" {
		return adapter.QuoteIdent(d.Cfg.GeometryColumn), nil
	}
	names, err := d.queryNames(ctx,
		"SELECT column_name FROM gpkg_geometry_columns WHERE lower(table_name) = lower(?)", layer)
	if err == nil && len(names) > 0 {
		return adapter.QuoteIdent(names[0]), nil
	}
	cols, err := d.columns(ctx, layer)
	if err != nil {
		return "", err
	}
	for _, c := range cols {
		if adapter.MapNativeType(c.typ) == core.TypeGeometry {
			return adapter.QuoteIdent(c.name), nil
		}
	}
	return "", nil
}

// CopySubset writes the selected records to a standalone SQLite file.
func (d *Dataset) CopySubset(ctx context.Context, layer string, oids []int64, destBase string) (string, error) {
	return d.WriteSubset(ctx, layer, oids, destBase)
}

// ErrInvalidHeader is returned by ParseHeader for blobs that are not
// GeoPackage geometry.
var ErrInvalidHeader = errors.New("not a geopackage geometry blob")

// envelopeSizes maps the envelope indicator to its byte length.
var envelopeSizes = [...]int{0, 32, 48, 48, 64}

// ParseHeader returns the header length of a GeoPackage geometry blob and
// whether the geometry is flagged empty.
func ParseHeader(b []byte) (size int, empty bool, err error) {
	if len(b) < 8 || b[0] != 'G' || b[1] != 'P' {
		return 0, false, ErrInvalidHeader
	}
	flags := b[3]
	env := int(flags>>1) & 0x07
	if env >= len(envelopeSizes) {
		return 0, false, ErrInvalidHeader
	}
	size = 8 + envelopeSizes[env]
	if len(b) < size {
		return 0, false, ErrInvalidHeader
	}
	return size, flags&0x10 != 0, nil
}

// StripHeader returns the WKB body of a GeoPackage geometry blob. Empty
// geometries yield nil; blobs without a header are returned unchanged.
func StripHeader(b []byte) []byte {
	size, empty, err := ParseHeader(b)
	if err != nil {
		return b
	}
	if empty {
		return nil
	}
	return b[size:]
}
