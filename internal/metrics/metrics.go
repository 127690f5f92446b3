// Package metrics counts validation outcomes and exports them as a
// node-exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ApiratRepublic/RePublic/internal/audit"
)

// Dataset outcome labels.
const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"
	StatusFailed  = "failed"
)

// Metrics holds the collectors of one run. A nil *Metrics is a no-op.
type Metrics struct {
	reg *prometheus.Registry

	// Error entries by layer kind and check kind
	Entries *prometheus.CounterVec

	// Records read by layer kind
	Records *prometheus.CounterVec

	// Datasets by outcome: valid, invalid, failed
	Datasets *prometheus.CounterVec

	// Per-layer validation time
	LayerDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Entries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gdbcheck_error_entries_total",
			Help: "Error entries reported by layer kind and check kind",
		}, []string{"layer_kind", "check_kind"}),

		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gdbcheck_records_total",
			Help: "Records counted in classified layers by layer kind",
		}, []string{"layer_kind"}),

		Datasets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gdbcheck_datasets_total",
			Help: "Datasets processed by outcome",
		}, []string{"status"}),

		LayerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gdbcheck_layer_duration_seconds",
			Help:    "Duration of one layer validation by layer kind",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"layer_kind"}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// ObserveDataset records a dataset result. A nil result counts as failed.
func (m *Metrics) ObserveDataset(res *audit.DatasetResult) {
	if m == nil {
		return
	}
	if res == nil {
		m.Datasets.WithLabelValues(StatusFailed).Inc()
		return
	}

	kinds := make(map[string]string, len(res.Layers))
	for _, l := range res.Layers {
		kind := l.Kind.String()
		kinds[l.Layer] = kind
		m.Records.WithLabelValues(kind).Add(float64(l.Records))
		m.LayerDuration.WithLabelValues(kind).Observe(l.Duration.Seconds())
	}
	if res.Ledger == nil || res.Ledger.Empty() {
		m.Datasets.WithLabelValues(StatusValid).Inc()
		return
	}
	for _, c := range res.Ledger.Counts() {
		m.Entries.WithLabelValues(kinds[c.Layer], c.Check.String()).Add(float64(c.Count))
	}
	m.Datasets.WithLabelValues(StatusInvalid).Inc()
}

// ObserveFailure counts a dataset that could not be opened or enumerated.
func (m *Metrics) ObserveFailure() {
	if m != nil {
		m.Datasets.WithLabelValues(StatusFailed).Inc()
	}
}

// WriteTextfile writes the metrics in text exposition format. The file is
// written to a temporary name and renamed into place.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
