package adapter

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// Dialect captures the SQL differences between sources.
type Dialect struct {
	Name string
	// Placeholder renders the i-th (1-based) bind parameter.
	Placeholder func(i int) string
	// Qualify renders a quoted reference to a layer table.
	Qualify func(table string) string
	// NormalizeGeometry maps a stored geometry value to the bytes compared
	// for identity. Nil compares the stored bytes.
	NormalizeGeometry func(b []byte) []byte
}

// QuoteIdent double-quotes an identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuestionPlaceholder renders "?" bind parameters.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders "$n" bind parameters.
func DollarPlaceholder(i int) string { return "$" + strconv.Itoa(i) }

// Introspector supplies the per-source metadata BaseSQLSource needs.
type Introspector interface {
	Layers(ctx context.Context) ([]string, error)
	LayerFields(ctx context.Context, layer string) ([]core.Field, error)
	OIDField(ctx context.Context, layer string) (string, error)
	// GeometryExpr returns the SQL expression selecting a layer's geometry
	// as bytes, or "" when the layer has none.
	GeometryExpr(ctx context.Context, layer string) (string, error)
}

// BaseSQLSource provides the database/sql implementation of core.Dataset
// shared by the concrete sources. Embed it and set Meta to the embedding
// value; the embedding type supplies Layers, OIDField and CopySubset.
type BaseSQLSource struct {
	DB      *sql.DB
	Cfg     core.SourceConfig
	Logger  *slog.Logger
	Dialect Dialect
	Meta    Introspector

	mu        sync.Mutex
	artifacts map[string][]core.Field
}

// Ref returns the dataset reference used in reports.
func (b *BaseSQLSource) Ref() string { return b.Cfg.Path }

// Close closes the database connection.
func (b *BaseSQLSource) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing dataset", slog.String("dataset", b.Ref()))
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLSource) IsConnected() bool {
	return b.DB != nil
}

func (b *BaseSQLSource) conn() error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	return nil
}

func (b *BaseSQLSource) artifact(name string) ([]core.Field, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.artifacts[name]
	return f, ok
}

func (b *BaseSQLSource) track(name string, fields []core.Field) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.artifacts == nil {
		b.artifacts = make(map[string][]core.Field)
	}
	b.artifacts[name] = fields
}

func (b *BaseSQLSource) untrack(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.artifacts, name)
}

// tableRef returns the quoted reference of a layer or artifact.
func (b *BaseSQLSource) tableRef(name string) string {
	if _, ok := b.artifact(name); ok {
		return QuoteIdent(name)
	}
	return b.Dialect.Qualify(name)
}

// Fields introspects a layer or an artifact created by FindIdentical.
func (b *BaseSQLSource) Fields(ctx context.Context, name string) ([]core.Field, error) {
	if f, ok := b.artifact(name); ok {
		return f, nil
	}
	return b.Meta.LayerFields(ctx, name)
}

// HasGeometry reports whether the layer has a geometry column.
func (b *BaseSQLSource) HasGeometry(ctx context.Context, layer string) (bool, error) {
	expr, err := b.Meta.GeometryExpr(ctx, layer)
	if err != nil {
		return false, err
	}
	return expr != "", nil
}

// Count returns the number of records in a layer.
func (b *BaseSQLSource) Count(ctx context.Context, layer string) (int64, error) {
	if err := b.conn(); err != nil {
		return 0, err
	}
	var n int64
	//nolint:gosec // table reference is quoted
	if err := b.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+b.tableRef(layer)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", layer, err)
	}
	return n, nil
}

// resolve maps requested field names onto the table's actual column names,
// dropping those that do not exist.
func (b *BaseSQLSource) resolve(ctx context.Context, name string, fields []string) (cols, keys []string, err error) {
	actual, err := b.Fields(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	byUpper := make(map[string]string, len(actual))
	for _, f := range actual {
		byUpper[strings.ToUpper(f.Name)] = f.Name
	}
	for _, f := range fields {
		k := strings.ToUpper(f)
		if c, ok := byUpper[k]; ok {
			cols = append(cols, c)
			keys = append(keys, k)
		}
	}
	return cols, keys, nil
}

// Cursor streams the requested fields of a layer or artifact. Records of an
// artifact are numbered from 1 in table order.
func (b *BaseSQLSource) Cursor(ctx context.Context, name string, fields []string) (core.Cursor, error) {
	if err := b.conn(); err != nil {
		return nil, err
	}
	cols, keys, err := b.resolve(ctx, name, fields)
	if err != nil {
		return nil, fmt.Errorf("cursor %s: %w", name, err)
	}

	_, isArtifact := b.artifact(name)
	sel := make([]string, 0, len(cols)+1)
	if !isArtifact {
		oid, err := b.Meta.OIDField(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("cursor %s: %w", name, err)
		}
		sel = append(sel, QuoteIdent(oid))
	}
	for _, c := range cols {
		sel = append(sel, QuoteIdent(c))
	}
	if len(sel) == 0 {
		sel = append(sel, "1")
	}

	//nolint:gosec // identifiers are quoted
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(sel, ", "), b.tableRef(name))
	//nolint:rowserrcheck // rows.Err() is surfaced through Cursor.Err
	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cursor %s: %w", name, err)
	}
	return &sqlCursor{rows: rows, keys: keys, withOID: !isArtifact}, nil
}

type sqlCursor struct {
	rows    *sql.Rows
	keys    []string
	withOID bool
	n       int64
	rec     core.Record
	err     error
}

func (c *sqlCursor) Next() bool {
	if c.err != nil {
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		return false
	}
	width := len(c.keys)
	if c.withOID {
		width++
	}
	vals := make([]any, width)
	ptrs := make([]any, width)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = fmt.Errorf("scan record: %w", err)
		return false
	}

	c.n++
	rec := core.Record{OID: c.n, Values: make(map[string]core.Scalar, len(c.keys))}
	if c.withOID {
		oid, ok := core.FromAny(vals[0]).Truncate()
		if !ok {
			c.err = fmt.Errorf("record %d: object id %v is not an integer", c.n, vals[0])
			return false
		}
		rec.OID = oid
		vals = vals[1:]
	}
	for i, k := range c.keys {
		rec.Values[k] = core.FromAny(vals[i])
	}
	c.rec = rec
	return true
}

func (c *sqlCursor) Record() core.Record { return c.rec }
func (c *sqlCursor) Err() error          { return c.err }
func (c *sqlCursor) Close() error        { return c.rows.Close() }

// FindIdentical groups the layer's records by exact geometry bytes and
// writes a temporary table out(IN_FID, FEAT_SEQ). FEAT_SEQ numbers distinct
// geometries in order of first appearance; null and empty geometries are
// left out.
func (b *BaseSQLSource) FindIdentical(ctx context.Context, layer, out string) error {
	if err := b.conn(); err != nil {
		return err
	}
	geom, err := b.Meta.GeometryExpr(ctx, layer)
	if err != nil {
		return err
	}
	if geom == "" {
		return fmt.Errorf("layer %s has no geometry column", layer)
	}
	oid, err := b.Meta.OIDField(ctx, layer)
	if err != nil {
		return err
	}

	members, err := b.identityRows(ctx, layer, oid, geom)
	if err != nil {
		return err
	}

	//nolint:gosec // identifier is quoted
	create := fmt.Sprintf("CREATE TEMP TABLE %s (%s BIGINT, %s BIGINT)",
		QuoteIdent(out), QuoteIdent(core.IdentityInFID), QuoteIdent(core.IdentityFeatSeq))
	if _, err := b.DB.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create identity table: %w", err)
	}
	b.track(out, []core.Field{
		{Name: core.IdentityInFID, Type: core.TypeInteger},
		{Name: core.IdentityFeatSeq, Type: core.TypeInteger},
	})

	if len(members) == 0 {
		return nil
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin identity insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	//nolint:gosec // identifier is quoted
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s, %s)",
		QuoteIdent(out), b.Dialect.Placeholder(1), b.Dialect.Placeholder(2)))
	if err != nil {
		return fmt.Errorf("prepare identity insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range members {
		if _, err := stmt.ExecContext(ctx, m[0], m[1]); err != nil {
			return fmt.Errorf("insert identity row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit identity rows: %w", err)
	}

	orDiscard(b.Logger).Debug("identity table written",
		slog.String("layer", layer),
		slog.String("table", out),
		slog.Int("rows", len(members)))
	return nil
}

// identityRows reads every geometry and returns (fid, seq) pairs. The rows
// are fully drained before anything is written so the single connection is
// free again.
func (b *BaseSQLSource) identityRows(ctx context.Context, layer, oid, geom string) ([][2]int64, error) {
	//nolint:gosec // identifiers are quoted; geom comes from the source's own introspection
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		QuoteIdent(oid), geom, b.Dialect.Qualify(layer), geom, QuoteIdent(oid))
	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read geometries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seqs := make(map[[sha256.Size]byte]int64)
	var members [][2]int64
	for rows.Next() {
		var fid int64
		var raw any
		if err := rows.Scan(&fid, &raw); err != nil {
			return nil, fmt.Errorf("scan geometry: %w", err)
		}
		g := geometryBytes(raw)
		if b.Dialect.NormalizeGeometry != nil {
			g = b.Dialect.NormalizeGeometry(g)
		}
		if len(g) == 0 {
			continue
		}
		h := sha256.Sum256(g)
		seq, ok := seqs[h]
		if !ok {
			seq = int64(len(seqs) + 1)
			seqs[h] = seq
		}
		members = append(members, [2]int64{fid, seq})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read geometries: %w", err)
	}
	return members, nil
}

func geometryBytes(v any) []byte {
	switch x := v.(type) {
	case []byte:
		return x
	case string:
		return []byte(x)
	default:
		return nil
	}
}

// Exists reports whether name is a layer or an artifact of this dataset.
func (b *BaseSQLSource) Exists(ctx context.Context, name string) (bool, error) {
	if _, ok := b.artifact(name); ok {
		return true, nil
	}
	layers, err := b.Meta.Layers(ctx)
	if err != nil {
		return false, err
	}
	for _, l := range layers {
		if strings.EqualFold(l, name) {
			return true, nil
		}
	}
	return false, nil
}

// Delete drops an artifact created by FindIdentical. Layers are never dropped.
func (b *BaseSQLSource) Delete(ctx context.Context, name string) error {
	if _, ok := b.artifact(name); !ok {
		return fmt.Errorf("refusing to delete %s: not created by this dataset", name)
	}
	if err := b.conn(); err != nil {
		return err
	}
	//nolint:gosec // identifier is quoted
	if _, err := b.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	b.untrack(name)
	return nil
}

// MapNativeType maps a source column type onto the physical type names the
// field registry understands. Unknown types are returned unchanged.
func MapNativeType(native string) string {
	t := strings.ToUpper(strings.TrimSpace(native))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch t {
	case "INTEGER", "INT", "INT4", "INT8", "BIGINT", "MEDIUMINT", "HUGEINT", "UBIGINT", "UINTEGER", "SERIAL", "BIGSERIAL":
		return core.TypeInteger
	case "SMALLINT", "INT2", "TINYINT", "USMALLINT", "UTINYINT", "BOOLEAN", "BOOL":
		return core.TypeSmallInteger
	case "FLOAT4":
		return core.TypeSingle
	case "REAL", "FLOAT", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "NUMERIC", "DECIMAL":
		return core.TypeDouble
	case "TEXT", "VARCHAR", "CHAR", "CHARACTER", "CHARACTER VARYING", "STRING", "BPCHAR", "NAME", "UUID":
		return core.TypeString
	case "BLOB", "BYTEA":
		return core.TypeBlob
	case "GEOMETRY", "POINT", "LINESTRING", "POLYGON", "MULTIPOINT", "MULTILINESTRING",
		"MULTIPOLYGON", "GEOMETRYCOLLECTION", "CURVEPOLYGON", "WKB_BLOB":
		return core.TypeGeometry
	case "DATE", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE",
		"TIMESTAMP WITHOUT TIME ZONE", "TIME":
		return core.TypeDate
	default:
		return native
	}
}
