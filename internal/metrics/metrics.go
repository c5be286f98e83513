// Package metrics groups the Prometheus instruments the pipeline reports
// through, following the promauto-constructed Metrics struct style of the
// samantha example's internal/observability/metrics.go. The download
// instruments (DownloadProgress, DownloadErrors) are registered and exposed,
// but no package in this module updates them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every Prometheus instrument this module exposes.
type Metrics struct {
	ChunksQueued      prometheus.Counter
	ChunksCompleted   prometheus.Counter
	ChunkLossEvents    prometheus.Counter
	SequenceID        prometheus.Gauge
	DownloadProgress  *prometheus.GaugeVec
	DownloadErrors    *prometheus.CounterVec
	TranscriptionErrors prometheus.Counter
}

// New constructs and registers the instruments under namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		ChunksQueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_queued_total",
			Help:      "Total audio chunks handed to the dispatcher.",
		}),
		ChunksCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_completed_total",
			Help:      "Total audio chunks fully processed by a worker.",
		}),
		ChunkLossEvents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_loss_events_total",
			Help:      "Number of times drain verification detected chunk loss.",
		}),
		SequenceID: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sequence_id",
			Help:      "Most recently assigned transcript sequence id.",
		}),
		DownloadProgress: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "qwen_model_download_progress_ratio",
			Help:      "Current download progress per model, 0..1.",
		}, []string{"model"}),
		DownloadErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qwen_model_download_errors_total",
			Help:      "Download errors by model.",
		}, []string{"model"}),
		TranscriptionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Total provider transcription errors.",
		}),
	}
}

// Handler exposes the registered instruments for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
