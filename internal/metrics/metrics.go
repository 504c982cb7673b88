package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors registered against the default registry at package init. Every
// component that wants telemetry reaches for one of these directly instead
// of carrying its own registry reference.
var (
	PipelineItemsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kanalyze_pipeline_items_submitted_total",
		Help: "Items submitted to an ordered pipeline via Add.",
	})

	PipelineItemsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanalyze_pipeline_items_failed_total",
		Help: "Items dropped by an ordered pipeline because the transform or consumer panicked.",
	}, []string{"reason"})

	PipelineItemsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kanalyze_pipeline_items_emitted_total",
		Help: "Items successfully delivered to a pipeline's consumer.",
	})

	ProgressTrackersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kanalyze_progress_trackers_active",
		Help: "Number of tracked tasks currently registered with the progress reporter.",
	})

	ServerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kanalyze_server_requests_total",
		Help: "Request/response server messages handled, by outcome.",
	}, []string{"outcome"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kanalyze_cache_hits_total",
		Help: "Extraction-result cache lookups that found an existing entry.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kanalyze_cache_misses_total",
		Help: "Extraction-result cache lookups that found nothing.",
	})
)

// Handler returns the HTTP handler that serves the default Prometheus
// registry, for wiring into a diagnostics listener alongside the
// request/response server.
func Handler() http.Handler {
	return promhttp.Handler()
}
