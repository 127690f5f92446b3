package testutil

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// ErrNotFound is returned for unknown layers and artifacts.
var ErrNotFound = errors.New("not found")

// Layer is an in-memory layer of a Dataset.
type Layer struct {
	Name    string
	Fields  []core.Field
	Records []core.Record
	// Geometry maps object ids to a geometry fingerprint; equal strings are
	// identical geometries and missing ids have no geometry.
	Geometry map[int64]string

	FieldsErr error
	CountErr  error
	OIDErr    error
	// CursorErr fails Cursor itself; FailAfter >= 0 with StreamErr stops the
	// stream after that many records.
	CursorErr error
	FailAfter int
	StreamErr error
	// IdentityErr fails FindIdentical; IdentityFields overrides the
	// identity table's columns.
	IdentityErr    error
	IdentityFields []string
	CopyErr        error
}

// Copy records one CopySubset call.
type Copy struct {
	Layer string
	OIDs  []int64
	Path  string
}

// Dataset is an in-memory core.Dataset for tests.
type Dataset struct {
	RefName   string
	LayersErr error

	mu        sync.Mutex
	layers    []*Layer
	artifacts map[string]*Layer
	Copies    []Copy
	Deleted   []string
}

// NewDataset creates a dataset with the given layers, in order.
func NewDataset(ref string, layers ...*Layer) *Dataset {
	for _, l := range layers {
		if l.FailAfter == 0 && l.StreamErr == nil {
			l.FailAfter = -1
		}
	}
	return &Dataset{RefName: ref, layers: layers, artifacts: make(map[string]*Layer)}
}

// TextField and NumberField build schema entries.
func TextField(name string) core.Field   { return core.Field{Name: name, Type: core.TypeString} }
func NumberField(name string) core.Field { return core.Field{Name: name, Type: core.TypeInteger} }

// Rec builds a record from alternating field names and values. Values are
// converted with core.FromAny.
func Rec(oid int64, kv ...any) core.Record {
	values := make(map[string]core.Scalar, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		values[kv[i].(string)] = core.FromAny(kv[i+1])
	}
	return core.NewRecord(oid, values)
}

func (d *Dataset) Ref() string { return d.RefName }

func (d *Dataset) Layers(context.Context) ([]string, error) {
	if d.LayersErr != nil {
		return nil, d.LayersErr
	}
	out := make([]string, len(d.layers))
	for i, l := range d.layers {
		out[i] = l.Name
	}
	return out, nil
}

func (d *Dataset) layer(name string) (*Layer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range d.layers {
		if strings.EqualFold(l.Name, name) {
			return l, nil
		}
	}
	if l, ok := d.artifacts[name]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("layer %s: %w", name, ErrNotFound)
}

func (d *Dataset) Fields(_ context.Context, name string) ([]core.Field, error) {
	l, err := d.layer(name)
	if err != nil {
		return nil, err
	}
	if l.FieldsErr != nil {
		return nil, l.FieldsErr
	}
	return slices.Clone(l.Fields), nil
}

func (d *Dataset) Count(_ context.Context, name string) (int64, error) {
	l, err := d.layer(name)
	if err != nil {
		return 0, err
	}
	if l.CountErr != nil {
		return 0, l.CountErr
	}
	return int64(len(l.Records)), nil
}

func (d *Dataset) Cursor(_ context.Context, name string, fields []string) (core.Cursor, error) {
	l, err := d.layer(name)
	if err != nil {
		return nil, err
	}
	if l.CursorErr != nil {
		return nil, l.CursorErr
	}
	return &cursor{layer: l, fields: fields, pos: -1}, nil
}

func (d *Dataset) OIDField(_ context.Context, name string) (string, error) {
	l, err := d.layer(name)
	if err != nil {
		return "", err
	}
	if l.OIDErr != nil {
		return "", l.OIDErr
	}
	return core.IdentityOID, nil
}

func (d *Dataset) HasGeometry(_ context.Context, name string) (bool, error) {
	l, err := d.layer(name)
	if err != nil {
		return false, err
	}
	return l.Geometry != nil, nil
}

// FindIdentical builds an identity table assigning FEAT_SEQ by first
// appearance of each geometry fingerprint.
func (d *Dataset) FindIdentical(_ context.Context, name, out string) error {
	l, err := d.layer(name)
	if err != nil {
		return err
	}
	if l.IdentityErr != nil {
		return l.IdentityErr
	}
	cols := l.IdentityFields
	if cols == nil {
		cols = []string{core.IdentityInFID, core.IdentityFeatSeq}
	}

	ident := &Layer{Name: out, FailAfter: -1}
	for _, c := range cols {
		ident.Fields = append(ident.Fields, NumberField(c))
	}
	seq := make(map[string]int)
	for i, r := range l.Records {
		g, ok := l.Geometry[r.OID]
		if !ok || g == "" {
			continue
		}
		if _, seen := seq[g]; !seen {
			seq[g] = len(seq) + 1
		}
		values := map[string]core.Scalar{}
		for _, c := range cols {
			switch strings.ToUpper(c) {
			case core.IdentityInFID:
				values[c] = core.Number(float64(r.OID))
			case core.IdentityFeatSeq, "GROUPID":
				values[c] = core.Number(float64(seq[g]))
			}
		}
		ident.Records = append(ident.Records, core.NewRecord(int64(i+1), values))
	}

	d.mu.Lock()
	d.artifacts[out] = ident
	d.mu.Unlock()
	return nil
}

func (d *Dataset) Exists(_ context.Context, name string) (bool, error) {
	_, err := d.layer(name)
	return err == nil, nil
}

func (d *Dataset) Delete(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.artifacts[name]; !ok {
		return fmt.Errorf("artifact %s: %w", name, ErrNotFound)
	}
	delete(d.artifacts, name)
	d.Deleted = append(d.Deleted, name)
	return nil
}

func (d *Dataset) CopySubset(_ context.Context, name string, oids []int64, destBase string) (string, error) {
	l, err := d.layer(name)
	if err != nil {
		return "", err
	}
	if l.CopyErr != nil {
		return "", l.CopyErr
	}
	path := destBase + ".gpkg"
	d.mu.Lock()
	d.Copies = append(d.Copies, Copy{Layer: name, OIDs: slices.Clone(oids), Path: path})
	d.mu.Unlock()
	return path, nil
}

// Artifacts returns the names of intermediate artifacts still present.
func (d *Dataset) Artifacts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for k := range d.artifacts {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (d *Dataset) Close() error { return nil }

type cursor struct {
	layer  *Layer
	fields []string
	pos    int
	err    error
}

func (c *cursor) Next() bool {
	if c.err != nil {
		return false
	}
	next := c.pos + 1
	if c.layer.FailAfter >= 0 && next >= c.layer.FailAfter && c.layer.StreamErr != nil {
		c.err = c.layer.StreamErr
		return false
	}
	if next >= len(c.layer.Records) {
		return false
	}
	c.pos = next
	return true
}

func (c *cursor) Record() core.Record {
	src := c.layer.Records[c.pos]
	values := make(map[string]core.Scalar, len(c.fields))
	for _, f := range c.fields {
		if v, ok := src.Values[strings.ToUpper(f)]; ok {
			values[strings.ToUpper(f)] = v
		}
	}
	return core.Record{OID: src.OID, Values: values}
}

func (c *cursor) Err() error   { return c.err }
func (c *cursor) Close() error { return nil }
