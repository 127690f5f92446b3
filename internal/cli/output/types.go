package output

// JSON documents emitted by the commands.

// DatasetInfo is one dataset outcome of a validate run.
type DatasetInfo struct {
	Dataset string `json:"dataset"`
	Status  string `json:"status"`
	Layers  int    `json:"layers"`
	Entries int    `json:"entries"`
	Report  string `json:"report,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ValidateSummary totals a validate run.
type ValidateSummary struct {
	Datasets int `json:"datasets"`
	Failed   int `json:"failed"`
	Layers   int `json:"layers"`
	Entries  int `json:"entries"`
}

// Problem is a non-fatal discovery problem.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidateOutput is the result of `gdbcheck validate`.
type ValidateOutput struct {
	RunID       string          `json:"run_id,omitempty"`
	Datasets    []DatasetInfo   `json:"datasets"`
	Summary     ValidateSummary `json:"summary"`
	SummaryFile string          `json:"summary_file,omitempty"`
	Problems    []Problem       `json:"problems,omitempty"`
}

// InventoryRow is one dataset of `gdbcheck inventory`.
type InventoryRow struct {
	Dataset string         `json:"dataset"`
	Counts  map[string]int `json:"counts"`
	Error   string         `json:"error,omitempty"`
}

// InventoryOutput is the result of `gdbcheck inventory`.
type InventoryOutput struct {
	Datasets []InventoryRow `json:"datasets"`
	File     string         `json:"file,omitempty"`
}

// FieldTypeInfo is an expected field type.
type FieldTypeInfo struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
}

// RuleInfo describes one record rule.
type RuleInfo struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Check   string `json:"check"`
	Summary string `json:"summary"`
}

// CatalogInfo describes the rules of one layer kind.
type CatalogInfo struct {
	Kind     string          `json:"kind"`
	Pattern  string          `json:"pattern"`
	Required []string        `json:"required"`
	Types    []FieldTypeInfo `json:"types"`
	Rules    []RuleInfo      `json:"rules"`
	Overlap  string          `json:"overlap,omitempty"`
}

// RulesOutput is the result of `gdbcheck rules`.
type RulesOutput struct {
	Catalogs []CatalogInfo `json:"catalogs"`
}

// RunInfo is one recorded run.
type RunInfo struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RootDir     string `json:"root_dir"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Datasets    int    `json:"datasets"`
	Layers      int    `json:"layers"`
	Entries     int    `json:"entries"`
	Error       string `json:"error,omitempty"`
}

// CheckInfo is the entry count of one (dataset, layer, check kind).
type CheckInfo struct {
	Dataset string `json:"dataset"`
	Layer   string `json:"layer"`
	Check   string `json:"check"`
	Count   int    `json:"count"`
}

// HistoryOutput is the result of `gdbcheck history`.
type HistoryOutput struct {
	Runs []RunInfo `json:"runs"`
}

// RunDetailOutput is the result of `gdbcheck history <run-id>`.
type RunDetailOutput struct {
	Run      RunInfo       `json:"run"`
	Datasets []DatasetInfo `json:"datasets"`
	Checks   []CheckInfo   `json:"checks"`
}
