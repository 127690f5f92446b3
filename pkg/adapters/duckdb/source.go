// Package duckdb opens DuckDB database files as datasets. Each base table in
// the configured schema is a layer.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ApiratRepublic/RePublic/pkg/adapter"
	"github.com/ApiratRepublic/RePublic/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Name is the registered source type.
const Name = "duckdb"

// ParquetExt is the extension of subset files.
const ParquetExt = ".parquet"

const defaultSchema = "main"

// Source opens DuckDB files.
type Source struct {
	logger *slog.Logger
}

// New creates a DuckDB source.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{logger: logger}
}

// Name returns the registered source type.
func (s *Source) Name() string { return Name }

// Open attaches the database at cfg.Path read-only. Extensions, settings and
// secrets from cfg.Params are applied to the single pooled connection.
func (s *Source) Open(ctx context.Context, cfg core.SourceConfig) (core.Dataset, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("duckdb: path not specified")
	}
	params, err := parseParams(cfg.Params)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("opening duckdb", slog.String("path", cfg.Path))
	db, err := sql.Open("duckdb", cfg.Path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open duckdb %s: %w", cfg.Path, err)
	}
	for _, stmt := range params.setupStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("duckdb setup %q: %w", strings.SplitN(stmt, " ", 3)[0], err)
		}
	}

	schema := cfg.Schema
	if schema == "" {
		schema = defaultSchema
	}
	ds := &Dataset{schema: schema}
	ds.DB = db
	ds.Cfg = cfg
	ds.Logger = s.logger
	ds.Dialect = adapter.Dialect{
		Name:        Name,
		Placeholder: adapter.QuestionPlaceholder,
		Qualify: func(table string) string {
			return adapter.QuoteIdent(schema) + "." + adapter.QuoteIdent(table)
		},
	}
	ds.Meta = ds
	return ds, nil
}

// Dataset is an open DuckDB database.
type Dataset struct {
	adapter.BaseSQLSource
	schema string
}

var _ core.Dataset = (*Dataset)(nil)

// Layers lists the base tables of the dataset schema. Temporary tables are
// excluded.
func (d *Dataset) Layers(ctx context.Context) ([]string, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_catalog = current_database()
		AND table_schema = ?
		AND table_type = 'BASE TABLE'
		ORDER BY table_name`, d.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// LayerFields reads column metadata from information_schema.
func (d *Dataset) LayerFields(ctx context.Context, layer string) ([]core.Field, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_catalog = current_database()
		AND table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, d.schema, layer)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Field
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		out = append(out, core.Field{Name: name, Type: adapter.MapNativeType(typ)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("layer %s not found", layer)
	}
	return out, nil
}

// OIDField returns the configured id column, an OBJECTID or FID column, or
// the rowid pseudo-column.
func (d *Dataset) OIDField(ctx context.Context, layer string) (string, error) {
	if d.Cfg.OIDColumn != "" {
		return d.Cfg.OIDColumn, nil
	}
	fields, err := d.LayerFields(ctx, layer)
	if err != nil {
		return "", err
	}
	for _, want := range []string{core.IdentityOID, "FID"} {
		for _, f := range fields {
			if strings.EqualFold(f.Name, want) && core.IsNumericType(f.Type) {
				return f.Name, nil
			}
		}
	}
	return "rowid", nil
}

// GeometryExpr selects geometry as WKB. Spatial GEOMETRY columns go through
// ST_AsWKB and need the spatial extension loaded.
func (d *Dataset) GeometryExpr(ctx context.Context, layer string) (string, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_catalog = current_database()
		AND table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, d.schema, layer)
	if err != nil {
		return "", fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var blobCol string
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return "", fmt.Errorf("failed to scan column metadata: %w", err)
		}
		configured := d.Cfg.GeometryColumn != "" && strings.EqualFold(name, d.Cfg.GeometryColumn)
		switch {
		case strings.EqualFold(typ, "GEOMETRY"):
			if configured || d.Cfg.GeometryColumn == "" {
				return "ST_AsWKB(" + adapter.QuoteIdent(name) + ")", nil
			}
		case configured:
			return adapter.QuoteIdent(name), nil
		case blobCol == "" && strings.EqualFold(typ, "BLOB") && isGeometryName(name):
			blobCol = name
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if blobCol != "" && d.Cfg.GeometryColumn == "" {
		return adapter.QuoteIdent(blobCol), nil
	}
	return "", nil
}

func isGeometryName(name string) bool {
	switch strings.ToUpper(name) {
	case "SHAPE", "GEOM", "GEOMETRY", "WKB_GEOMETRY":
		return true
	}
	return false
}

// CopySubset writes the selected records to destBase+".parquet" with COPY.
func (d *Dataset) CopySubset(ctx context.Context, layer string, oids []int64, destBase string) (string, error) {
	oid, err := d.OIDField(ctx, layer)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(oids))
	for i, id := range oids {
		ids[i] = strconv.FormatInt(id, 10)
	}
	if len(ids) == 0 {
		ids = []string{"NULL"}
	}
	path := destBase + ParquetExt

	//nolint:gosec // identifiers are quoted, ids are formatted integers
	query := fmt.Sprintf("COPY (SELECT %s AS SOURCE_OID, * FROM %s WHERE %s IN (%s) ORDER BY %s) TO %s (FORMAT PARQUET)",
		adapter.QuoteIdent(oid), d.Dialect.Qualify(layer), adapter.QuoteIdent(oid),
		strings.Join(ids, ", "), adapter.QuoteIdent(oid), quoteLiteral(path))
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return "", fmt.Errorf("copy subset %s: %w", layer, err)
	}
	d.Logger.Debug("subset written", slog.String("layer", layer), slog.String("path", path))
	return path, nil
}
