package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/ApiratRepublic/RePublic/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver for subset files
)

// SubsetExt is the extension of files written by WriteSubset.
const SubsetExt = ".sqlite"

// subsetOIDColumn holds the source object id in subset files.
const subsetOIDColumn = "SOURCE_OID"

// subsetChunk bounds the number of ids bound into one IN (...) list.
const subsetChunk = 500

// WriteSubset copies the records with the given ids into a new SQLite file
// at destBase+SubsetExt, in a table named after the layer. Every column is
// copied as stored, including geometry bytes. An existing file is replaced.
func (b *BaseSQLSource) WriteSubset(ctx context.Context, layer string, oids []int64, destBase string) (string, error) {
	if err := b.conn(); err != nil {
		return "", err
	}
	fields, err := b.Meta.LayerFields(ctx, layer)
	if err != nil {
		return "", fmt.Errorf("subset %s: %w", layer, err)
	}
	oid, err := b.Meta.OIDField(ctx, layer)
	if err != nil {
		return "", fmt.Errorf("subset %s: %w", layer, err)
	}

	rows, err := b.readSubset(ctx, layer, oid, fields, oids)
	if err != nil {
		return "", err
	}

	path := destBase + SubsetExt
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("replace %s: %w", path, err)
	}
	if err := writeSQLiteTable(ctx, path, layer, fields, rows); err != nil {
		return "", err
	}

	orDiscard(b.Logger).Debug("subset written",
		slog.String("layer", layer),
		slog.String("path", path),
		slog.Int("rows", len(rows)))
	return path, nil
}

func (b *BaseSQLSource) readSubset(ctx context.Context, layer, oid string, fields []core.Field, oids []int64) ([][]any, error) {
	sel := []string{QuoteIdent(oid)}
	for _, f := range fields {
		sel = append(sel, QuoteIdent(f.Name))
	}

	var out [][]any
	for start := 0; start < len(oids); start += subsetChunk {
		chunk := oids[start:min(start+subsetChunk, len(oids))]
		marks := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, id := range chunk {
			marks[i] = b.Dialect.Placeholder(i + 1)
			args[i] = id
		}
		//nolint:gosec // identifiers are quoted, values are bound
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s) ORDER BY %s",
			strings.Join(sel, ", "), b.Dialect.Qualify(layer), QuoteIdent(oid),
			strings.Join(marks, ", "), QuoteIdent(oid))

		rows, err := b.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("read subset: %w", err)
		}
		for rows.Next() {
			vals := make([]any, len(sel))
			ptrs := make([]any, len(sel))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("scan subset: %w", err)
			}
			out = append(out, vals)
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("read subset: %w", err)
		}
	}
	return out, nil
}

// sqliteAffinity picks the column type used in subset files.
func sqliteAffinity(physical string) string {
	switch physical {
	case core.TypeInteger, core.TypeSmallInteger, core.TypeOID:
		return "INTEGER"
	case core.TypeDouble, core.TypeSingle:
		return "REAL"
	case core.TypeGeometry, core.TypeBlob:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func writeSQLiteTable(ctx context.Context, path, table string, fields []core.Field, rows [][]any) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	cols := []string{QuoteIdent(subsetOIDColumn) + " INTEGER"}
	marks := []string{"?"}
	for _, f := range fields {
		name := f.Name
		if strings.EqualFold(name, subsetOIDColumn) {
			name += "_1"
		}
		cols = append(cols, QuoteIdent(name)+" "+sqliteAffinity(f.Type))
		marks = append(marks, "?")
	}

	//nolint:gosec // identifiers are quoted
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(table), strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("create subset table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subset insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	//nolint:gosec // identifiers are quoted
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(table), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare subset insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			return fmt.Errorf("insert subset row: %w", err)
		}
	}
	return tx.Commit()
}
