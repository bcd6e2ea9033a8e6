package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for passport exports.
// Tracks export outcomes, per-file evidence download outcomes and export
// duration. A nil *Metrics records nothing.
type Metrics struct {
	ExportsTotal      *prometheus.CounterVec
	EvidenceDownloads *prometheus.CounterVec
	ExportDuration    *prometheus.HistogramVec
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_exports_total",
			Help: "Total number of passport exports by kind and outcome",
		}, []string{"kind", "outcome"}),
		EvidenceDownloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_evidence_downloads_total",
			Help: "Evidence file downloads by outcome",
		}, []string{"outcome"}),
		ExportDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passport_export_duration_seconds",
			Help:    "Duration of passport exports including evidence downloads",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
	}
}

// ObserveExport records one finished export. Call with time.Now() at the
// start of the operation.
func (m *Metrics) ObserveExport(kind, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.ExportsTotal.WithLabelValues(kind, outcome).Inc()
	m.ExportDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// IncrementEvidenceDownload records one evidence file outcome.
func (m *Metrics) IncrementEvidenceDownload(outcome string) {
	if m == nil {
		return
	}
	m.EvidenceDownloads.WithLabelValues(outcome).Inc()
}
