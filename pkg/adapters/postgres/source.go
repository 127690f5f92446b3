package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/ApiratRepublic/RePublic/pkg/adapter"
	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// Name is the registered source type.
const Name = "postgres"

const defaultSchema = "public"

// Params holds connection settings used when no DSN is configured.
type Params struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// buildPostgresDSN constructs a key=value connection string.
func buildPostgresDSN(p Params) string {
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, p.Database, sslmode)
	if p.User != "" {
		dsn += fmt.Sprintf(" user=%s", p.User)
	}
	if p.Password != "" {
		dsn += fmt.Sprintf(" password=%s", p.Password)
	}
	return dsn
}

// connString returns cfg.DSN or one built from cfg.Params.
func connString(cfg core.SourceConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	var p Params
	if err := mapstructure.WeakDecode(cfg.Params, &p); err != nil {
		return "", fmt.Errorf("postgres params: %w", err)
	}
	if p.Database == "" {
		return "", fmt.Errorf("postgres: dsn or params.database required")
	}
	return buildPostgresDSN(p), nil
}

// Source opens PostGIS schemas.
type Source struct {
	logger *slog.Logger
}

// New creates a PostGIS source.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{logger: logger}
}

// Name returns the registered source type.
func (s *Source) Name() string { return Name }

func (s *Source) connect(ctx context.Context, cfg core.SourceConfig) (*sql.DB, string, error) {
	dsn, err := connString(cfg)
	if err != nil {
		return nil, "", err
	}
	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("parse postgres dsn: %w", err)
	}

	s.logger.Debug("connecting to postgres", slog.String("host", cc.Host), slog.String("database", cc.Database))
	db := stdlib.OpenDB(*cc)
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, cc.Database, nil
}

// Open connects and binds the dataset to cfg.Schema ("public" by default).
func (s *Source) Open(ctx context.Context, cfg core.SourceConfig) (core.Dataset, error) {
	db, database, err := s.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newDataset(db, database, cfg, s.logger), nil
}

// Discover lists the non-system schemas that hold at least one table.
// A configured schema is returned as the only dataset.
func (s *Source) Discover(ctx context.Context, cfg core.SourceConfig) ([]core.SourceConfig, error) {
	if cfg.Schema != "" {
		return []core.SourceConfig{cfg}, nil
	}
	db, _, err := s.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return discoverSchemas(ctx, db, cfg)
}

func discoverSchemas(ctx context.Context, db *sql.DB, cfg core.SourceConfig) ([]core.SourceConfig, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT table_schema
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		AND table_schema NOT IN ('pg_catalog', 'information_schema', 'topology', 'tiger')
		AND table_schema NOT LIKE 'pg\_%'
		ORDER BY table_schema`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.SourceConfig
	for rows.Next() {
		var schema string
		if err := rows.Scan(&schema); err != nil {
			return nil, fmt.Errorf("failed to scan schema: %w", err)
		}
		c := cfg
		c.Schema = schema
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ adapter.Discoverer = (*Source)(nil)

// Dataset is one schema of a PostGIS database.
type Dataset struct {
	adapter.BaseSQLSource
	database string
	schema   string
}

var _ core.Dataset = (*Dataset)(nil)

func newDataset(db *sql.DB, database string, cfg core.SourceConfig, logger *slog.Logger) *Dataset {
	schema := cfg.Schema
	if schema == "" {
		schema = defaultSchema
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Dataset{database: database, schema: schema}
	d.DB = db
	d.Cfg = cfg
	d.Logger = logger
	d.Dialect = adapter.Dialect{
		Name:        Name,
		Placeholder: adapter.DollarPlaceholder,
		Qualify: func(table string) string {
			return adapter.QuoteIdent(schema) + "." + adapter.QuoteIdent(table)
		},
	}
	d.Meta = d
	return d
}

// Ref identifies the dataset as database/schema.
func (d *Dataset) Ref() string {
	if d.Cfg.Path != "" {
		return d.Cfg.Path
	}
	return d.database + "/" + d.schema
}

// Layers lists the schema's base tables, leaving out PostGIS metadata.
func (d *Dataset) Layers(ctx context.Context) ([]string, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
		AND table_name <> 'spatial_ref_sys'
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

type column struct {
	name string
	typ  string
}

func (d *Dataset) columns(ctx context.Context, layer string) ([]column, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT column_name,
			CASE WHEN data_type = 'USER-DEFINED' THEN udt_name ELSE data_type END
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, d.schema, layer)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []column
	for rows.Next() {
		var c column
		if err := rows.Scan(&c.name, &c.typ); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("layer %s not found", layer)
	}
	return out, nil
}

// LayerFields reads column metadata from information_schema.
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

// oidCandidates are the id column names written by common loaders.
var oidCandidates = []string{"objectid", "fid", "ogc_fid", "gid", "id"}

// OIDField returns the configured id column or the first numeric column
// with a well-known id name.
func (d *Dataset) OIDField(ctx context.Context, layer string) (string, error) {
	if d.Cfg.OIDColumn != "" {
		return d.Cfg.OIDColumn, nil
	}
	cols, err := d.columns(ctx, layer)
	if err != nil {
		return "", err
	}
	for _, want := range oidCandidates {
		for _, c := range cols {
			if strings.EqualFold(c.name, want) && core.IsNumericType(adapter.MapNativeType(c.typ)) {
				return c.name, nil
			}
		}
	}
	return "", fmt.Errorf("layer %s has no object id column", layer)
}

// GeometryExpr selects the first PostGIS geometry column as WKB.
func (d *Dataset) GeometryExpr(ctx context.Context, layer string) (string, error) {
	cols, err := d.columns(ctx, layer)
	if err != nil {
		return "", err
	}
	for _, c := range cols {
		if d.Cfg.GeometryColumn != "" && !strings.EqualFold(c.name, d.Cfg.GeometryColumn) {
			continue
		}
		switch strings.ToLower(c.typ) {
		case "geometry", "geography":
			return "ST_AsBinary(" + adapter.QuoteIdent(c.name) + ")", nil
		case "bytea":
			if d.Cfg.GeometryColumn != "" {
				return adapter.QuoteIdent(c.name), nil
			}
		}
	}
	return "", nil
}

// CopySubset writes the selected records to a standalone SQLite file.
func (d *Dataset) CopySubset(ctx context.Context, layer string, oids []int64, destBase string) (string, error) {
	return d.WriteSubset(ctx, layer, oids, destBase)
}
