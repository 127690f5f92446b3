package state

import (
	"fmt"
)

// RecordDataset stores a dataset outcome and its check counts in one
// transaction. Recording the same dataset twice replaces the earlier rows.
func (s *SQLiteStore) RecordDataset(d DatasetRun, counts []CheckCount) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO dataset_runs (run_id, dataset, status, layers, entries, report_path, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.RunID, d.Dataset, string(d.Status), d.Layers, d.Entries, nullString(d.ReportPath), nullString(d.Error),
	); err != nil {
		return fmt.Errorf("failed to record dataset: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM check_counts WHERE run_id = ? AND dataset = ?`, d.RunID, d.Dataset); err != nil {
		return fmt.Errorf("failed to clear check counts: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO check_counts (run_id, dataset, layer, check_kind, count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare check counts: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range counts {
		if _, err := stmt.Exec(d.RunID, d.Dataset, c.Layer, c.Check, c.Count); err != nil {
			return fmt.Errorf("failed to record check count: %w", err)
		}
	}
	return tx.Commit()
}

// ListDatasetRuns returns the datasets recorded for a run, by dataset name.
func (s *SQLiteStore) ListDatasetRuns(runID string) ([]DatasetRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT run_id, dataset, status, layers, entries, report_path, error
		FROM dataset_runs WHERE run_id = ? ORDER BY dataset`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DatasetRun
	for rows.Next() {
		var d DatasetRun
		var status string
		var report, errMsg *string
		if err := rows.Scan(&d.RunID, &d.Dataset, &status, &d.Layers, &d.Entries, &report, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		d.Status = RunStatus(status)
		d.ReportPath = derefString(report)
		d.Error = derefString(errMsg)
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetCheckCounts returns a run's counts ordered by dataset, layer and check kind.
func (s *SQLiteStore) GetCheckCounts(runID string) ([]CheckCount, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT dataset, layer, check_kind, count FROM check_counts
		WHERE run_id = ? ORDER BY dataset, layer, check_kind`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get check counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CheckCount
	for rows.Next() {
		var c CheckCount
		if err := rows.Scan(&c.Dataset, &c.Layer, &c.Check, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan check count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
