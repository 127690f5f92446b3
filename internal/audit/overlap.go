package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// Overlap entry constants.
const (
	ShapeField     = "Shape"
	PreviewLimit   = 20
	identityPrefix = "ident_"
	groupIDField   = "GROUPID"
)

// OverlapDetector finds records of a layer whose geometries are exactly equal.
type OverlapDetector struct {
	ds       core.Dataset
	outDir   string
	basename string
	logger   *slog.Logger
	newID    func() string
}

// NewOverlapDetector creates a detector. Duplicate subsets are written under
// outDir; an empty outDir disables materialization.
func NewOverlapDetector(ds core.Dataset, outDir, basename string, logger *slog.Logger) *OverlapDetector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OverlapDetector{
		ds:       ds,
		outDir:   outDir,
		basename: basename,
		logger:   logger,
		newID:    func() string { return uuid.NewString() },
	}
}

// OverlapResult describes one detection.
type OverlapResult struct {
	Duplicates []int64
	Artifact   string
}

// Detect groups identical geometries of layer and emits a single
// Duplicated Polygon entry covering every record in a multi-member group.
// Failures become one Geometry Error entry and are also returned. The
// identity artifact is removed on every path.
func (d *OverlapDetector) Detect(ctx context.Context, layer, group string, seg *Segment) (OverlapResult, error) {
	ident := d.identityName()
	d.release(ctx, ident)
	defer d.release(ctx, ident)

	res, err := d.detect(ctx, layer, group, ident, seg)
	if err != nil {
		seg.AddRecord(core.CheckGeometry, core.NoObjectID, ShapeField, "", err.Error())
		return res, err
	}
	return res, nil
}

func (d *OverlapDetector) detect(ctx context.Context, layer, group, ident string, seg *Segment) (OverlapResult, error) {
	var res OverlapResult

	if _, err := d.ds.OIDField(ctx, layer); err != nil {
		return res, fmt.Errorf("object id field: %w", err)
	}
	if err := d.ds.FindIdentical(ctx, layer, ident); err != nil {
		return res, fmt.Errorf("find identical: %w", err)
	}

	fields, err := d.ds.Fields(ctx, ident)
	if err != nil {
		return res, fmt.Errorf("inspect identity table: %w", err)
	}
	reg := core.NewFieldRegistry(fields)
	if !reg.Has(core.IdentityInFID) {
		return res, fmt.Errorf("%s not found in identity table", core.IdentityInFID)
	}
	groupBy := core.IdentityInFID
	switch {
	case reg.Has(core.IdentityFeatSeq):
		groupBy = core.IdentityFeatSeq
	case reg.Has(groupIDField):
		groupBy = groupIDField
	default:
		d.logger.Warn("identity table has no group key, grouping by feature id",
			slog.String("layer", layer))
	}

	ids, err := d.duplicates(ctx, ident, groupBy)
	if err != nil {
		return res, err
	}
	if len(ids) == 0 {
		return res, nil
	}
	res.Duplicates = ids

	seg.Add(core.CheckDuplicatedPolygon, core.FormatObjectIDs(ids), ShapeField,
		strconv.Itoa(len(ids)), overlapMessage(ids))

	if d.outDir == "" {
		return res, nil
	}
	dir := filepath.Join(d.outDir, group)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create overlap dir: %w", err)
	}
	path, err := d.ds.CopySubset(ctx, layer, ids, filepath.Join(dir, d.basename+"_"+layer+"_duplicates"))
	if err != nil {
		return res, fmt.Errorf("copy duplicates: %w", err)
	}
	res.Artifact = path
	d.logger.Info("duplicate geometries written",
		slog.String("layer", layer),
		slog.Int("count", len(ids)),
		slog.String("path", path))
	return res, nil
}

// duplicates returns the sorted union of ids in groups with more than one member.
func (d *OverlapDetector) duplicates(ctx context.Context, ident, groupBy string) ([]int64, error) {
	cols := []string{core.IdentityInFID}
	if groupBy != core.IdentityInFID {
		cols = append(cols, groupBy)
	}
	cur, err := d.ds.Cursor(ctx, ident, cols)
	if err != nil {
		return nil, fmt.Errorf("read identity table: %w", err)
	}
	defer cur.Close()

	groups := make(map[string][]int64)
	var order []string
	for cur.Next() {
		rec := cur.Record()
		fid, ok := rec.Get(core.IdentityInFID).Truncate()
		if !ok {
			continue
		}
		k := rec.Get(groupBy).Key()
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], fid)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("read identity table: %w", err)
	}

	var ids []int64
	for _, k := range order {
		if g := groups[k]; len(g) > 1 {
			ids = append(ids, g...)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (d *OverlapDetector) release(ctx context.Context, ident string) {
	ok, err := d.ds.Exists(ctx, ident)
	if err != nil || !ok {
		return
	}
	if err := d.ds.Delete(ctx, ident); err != nil {
		d.logger.Warn("failed to delete identity table",
			slog.String("name", ident),
			slog.String("error", err.Error()))
	}
}

func (d *OverlapDetector) identityName() string {
	id := strings.ReplaceAll(d.newID(), "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return identityPrefix + SafeIdent(d.basename) + "_" + id
}

func overlapMessage(ids []int64) string {
	preview := ids
	suffix := ""
	if len(ids) > PreviewLimit {
		preview = ids[:PreviewLimit]
		suffix = ", ..."
	}
	parts := make([]string, len(preview))
	for i, id := range preview {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%d polygons have identical geometry: %s%s", len(ids), strings.Join(parts, ", "), suffix)
}

// SafeIdent lower-cases s and replaces everything outside [a-z0-9_] with '_'.
func SafeIdent(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
