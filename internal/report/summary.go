package report

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/ApiratRepublic/RePublic/internal/audit"
	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// Summary workbook sheet names.
const (
	AllDataSheet  = "All_DATA"
	ErrorSumSheet = "Error SUM"
)

// countError is rendered in the Count column when counting failed.
const countError = "Error"

// LayerCount is one All_DATA row: the record count of a classified layer.
type LayerCount struct {
	Timestamp time.Time
	Dataset   string
	Layer     string
	Count     int64
	// Failed is set when the count could not be read.
	Failed bool
}

// ErrorSum is one Error SUM row.
type ErrorSum struct {
	Dataset string
	Layer   string
	Check   core.CheckKind
	Count   int
}

// Summary accumulates the rows of the run summary workbook. It is safe for
// concurrent use by dataset workers.
type Summary struct {
	mu     sync.Mutex
	counts []LayerCount
	errors []ErrorSum
}

// NewSummary creates an empty summary.
func NewSummary() *Summary { return &Summary{} }

// Add records one dataset result stamped with the run timestamp.
func (s *Summary) Add(ts time.Time, res *audit.DatasetResult) {
	if res == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range res.Layers {
		s.counts = append(s.counts, LayerCount{
			Timestamp: ts,
			Dataset:   res.Dataset,
			Layer:     l.Layer,
			Count:     l.Records,
			Failed:    l.CountErr != nil,
		})
	}
	if res.Ledger == nil {
		return
	}
	for _, c := range res.Ledger.Counts() {
		s.errors = append(s.errors, ErrorSum{
			Dataset: res.Dataset, Layer: c.Layer, Check: c.Check, Count: c.Count,
		})
	}
}

// Counts returns the All_DATA rows ordered by dataset then layer.
func (s *Summary) Counts() []LayerCount {
	s.mu.Lock()
	out := slices.Clone(s.counts)
	s.mu.Unlock()
	slices.SortStableFunc(out, func(a, b LayerCount) int {
		return cmp.Or(cmp.Compare(a.Dataset, b.Dataset), cmp.Compare(a.Layer, b.Layer))
	})
	return out
}

// Errors returns the Error SUM rows ordered by dataset, layer and check kind.
func (s *Summary) Errors() []ErrorSum {
	s.mu.Lock()
	out := slices.Clone(s.errors)
	s.mu.Unlock()
	slices.SortStableFunc(out, func(a, b ErrorSum) int {
		return cmp.Or(
			cmp.Compare(a.Dataset, b.Dataset),
			cmp.Compare(a.Layer, b.Layer),
			cmp.Compare(a.Check, b.Check),
		)
	})
	return out
}

// Write saves the summary workbook to path. Both sheets are always written,
// with only a header row when there is nothing to report.
func (s *Summary) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create summary directory: %w", err)
	}

	counts := s.Counts()
	all := make([][]any, len(counts))
	for i, c := range counts {
		var n any = c.Count
		if c.Failed {
			n = countError
		}
		all[i] = []any{c.Timestamp.Format(core.TimestampLayout), ShortPath(c.Dataset), c.Layer, n}
	}

	sums := s.Errors()
	errs := make([][]any, len(sums))
	for i, e := range sums {
		errs[i] = []any{ShortPath(e.Dataset), e.Layer, e.Check.String(), e.Count}
	}

	return writeWorkbook(path,
		sheet{name: AllDataSheet, header: []string{"Timestamp", "Dataset", "Layer", "Count"}, rows: all},
		sheet{name: ErrorSumSheet, header: []string{"Dataset", "Layer", "Check_Type", "Error_Count"}, rows: errs},
	)
}
