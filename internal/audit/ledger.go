// Package audit implements the validation engine: the error ledger, the rule
// evaluator, the uniqueness and one-to-one resolvers, the geometry overlap
// detector and the per-dataset runner that ties them together.
package audit

import (
	"slices"
	"time"

	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// Clock returns the timestamp stamped on new entries.
type Clock func() time.Time

// Ledger is the append-only sequence of error entries for one dataset run.
// It is single-writer: layers running concurrently write to their own
// Segment and the runner merges segments in layer order.
type Ledger struct {
	dataset string
	now     Clock
	entries []core.ErrorEntry
}

// NewLedger creates an empty ledger for the given dataset reference.
// A nil clock uses time.Now.
func NewLedger(dataset string, now Clock) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{dataset: dataset, now: now}
}

// Dataset returns the dataset reference stamped on every entry.
func (l *Ledger) Dataset() string { return l.dataset }

// Segment opens a layer-scoped segment sharing the ledger's clock and dataset.
func (l *Ledger) Segment(layer string) *Segment {
	return &Segment{dataset: l.dataset, layer: layer, now: l.now}
}

// Merge appends the segments' entries in argument order.
func (l *Ledger) Merge(segs ...*Segment) {
	for _, s := range segs {
		if s == nil {
			continue
		}
		l.entries = append(l.entries, s.entries...)
	}
}

// Entries returns a copy of the entries in append order.
func (l *Ledger) Entries() []core.ErrorEntry { return slices.Clone(l.entries) }

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Empty reports whether the run found no defects.
func (l *Ledger) Empty() bool { return len(l.entries) == 0 }

// CheckCount is the number of entries for one layer and check kind.
type CheckCount struct {
	Layer string
	Check core.CheckKind
	Count int
}

// Counts groups entries by layer and check kind, ordered by layer then by
// first appearance of each check kind.
func (l *Ledger) Counts() []CheckCount {
	type key struct {
		layer string
		check core.CheckKind
	}
	idx := make(map[key]int)
	var out []CheckCount
	for _, e := range l.entries {
		k := key{e.Layer, e.Check}
		if i, ok := idx[k]; ok {
			out[i].Count++
			continue
		}
		idx[k] = len(out)
		out = append(out, CheckCount{Layer: e.Layer, Check: e.Check, Count: 1})
	}
	slices.SortStableFunc(out, func(a, b CheckCount) int {
		switch {
		case a.Layer < b.Layer:
			return -1
		case a.Layer > b.Layer:
			return 1
		}
		return 0
	})
	return out
}

// Segment collects the entries of one layer.
type Segment struct {
	dataset string
	layer   string
	now     Clock
	entries []core.ErrorEntry
}

// Layer returns the layer the segment records for.
func (s *Segment) Layer() string { return s.layer }

// Add appends one entry.
func (s *Segment) Add(check core.CheckKind, objectIDs, field, invalid, msg string) {
	s.entries = append(s.entries, core.ErrorEntry{
		Timestamp:    s.now(),
		Dataset:      s.dataset,
		Layer:        s.layer,
		Check:        check,
		ObjectIDs:    objectIDs,
		Field:        field,
		InvalidValue: invalid,
		Message:      msg,
	})
}

// AddRecord appends an entry tied to a single object id.
func (s *Segment) AddRecord(check core.CheckKind, oid int64, field, invalid, msg string) {
	s.Add(check, core.FormatObjectID(oid), field, invalid, msg)
}

// Entries returns a copy of the segment's entries.
func (s *Segment) Entries() []core.ErrorEntry { return slices.Clone(s.entries) }

// Len returns the number of entries.
func (s *Segment) Len() int { return len(s.entries) }
