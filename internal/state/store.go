// Package state records validation run history in SQLite.
// It tracks runs, the datasets each run validated and per-check entry counts.
package state

import "time"

// RunStatus is the lifecycle state of a run or dataset.
type RunStatus string

// Run and dataset statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one invocation of the validate command.
type Run struct {
	ID          string
	RootDir     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Datasets    int
	Layers      int
	Entries     int
	Error       string
}

// RunTotals are the counters written when a run completes.
type RunTotals struct {
	Datasets int
	Layers   int
	Entries  int
}

// DatasetRun is the outcome of validating one dataset within a run.
type DatasetRun struct {
	RunID      string
	Dataset    string
	Status     RunStatus
	Layers     int
	Entries    int
	ReportPath string
	Error      string
}

// CheckCount is the number of ledger entries for one (dataset, layer, check kind).
type CheckCount struct {
	Dataset string
	Layer   string
	Check   string
	Count   int
}

// Store is the run history interface used by the engine.
type Store interface {
	CreateRun(rootDir string) (*Run, error)
	CompleteRun(id string, status RunStatus, totals RunTotals, errMsg string) error
	RecordDataset(d DatasetRun, counts []CheckCount) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)
	ListDatasetRuns(runID string) ([]DatasetRun, error)
	GetCheckCounts(runID string) ([]CheckCount, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
