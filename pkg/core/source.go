package core

import "context"

// Identity table columns produced by Dataset.FindIdentical.
const (
	IdentityInFID   = "IN_FID"
	IdentityFeatSeq = "FEAT_SEQ"
	IdentityOID     = "OBJECTID"
)

// Cursor is a sequential, single-pass, read-only stream of records.
// A cursor is not safe for concurrent use.
type Cursor interface {
	// Next advances to the next record. It returns false at the end of the
	// stream or on failure; Err distinguishes the two.
	Next() bool

	// Record returns the current record.
	Record() Record

	// Err returns the failure that stopped iteration, if any.
	Err() error

	// Close releases the cursor.
	Close() error
}

// Dataset is an opened dataset container: a set of named layers with
// introspection, record streaming, and geometry-identity primitives.
type Dataset interface {
	// Ref returns the dataset reference used in reports (file path or schema DSN).
	Ref() string

	// Layers enumerates layer names.
	Layers(ctx context.Context) ([]string, error)

	// Fields introspects a layer or intermediate artifact.
	Fields(ctx context.Context, layer string) ([]Field, error)

	// Count returns the number of records in a layer.
	Count(ctx context.Context, layer string) (int64, error)

	// Cursor opens a record stream over the requested fields.
	Cursor(ctx context.Context, layer string, fields []string) (Cursor, error)

	// OIDField returns the object-id field of a layer.
	OIDField(ctx context.Context, layer string) (string, error)

	// HasGeometry reports whether the layer carries a geometry column.
	HasGeometry(ctx context.Context, layer string) (bool, error)

	// FindIdentical writes an identity table named out with IN_FID and
	// FEAT_SEQ columns grouping records whose geometry is exactly equal.
	FindIdentical(ctx context.Context, layer, out string) error

	// Exists reports whether a layer or intermediate artifact exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes an intermediate artifact created by this dataset.
	Delete(ctx context.Context, name string) error

	// CopySubset materializes the records with the given ids into a new
	// artifact at destBase (extension chosen by the source) and returns its path.
	CopySubset(ctx context.Context, layer string, oids []int64, destBase string) (string, error)

	// Close releases the dataset.
	Close() error
}

// SourceConfig holds configuration for opening one dataset.
type SourceConfig struct {
	Type           string
	Path           string
	DSN            string
	Schema         string
	GeometryColumn string
	OIDColumn      string
	Params         map[string]any
}
