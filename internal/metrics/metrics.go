// Package metrics exposes Prometheus collectors for the content-plan service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsTotal                  *prometheus.CounterVec
	stageDurationSeconds       *prometheus.HistogramVec
	llmCallsTotal              *prometheus.CounterVec
	llmCallDurationSeconds     *prometheus.HistogramVec
	clusterUnitsTotal          *prometheus.CounterVec
	enrichmentMatchesTotal     *prometheus.CounterVec
	keywordCacheTotal          *prometheus.CounterVec
	siteFetchesTotal           *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentplan_jobs_total",
				Help: "Total number of plan jobs that reached a final status, labeled by status.",
			},
			[]string{"status"},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contentplan_stage_duration_seconds",
				Help:    "Histogram of pipeline stage durations, labeled by stage.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"stage"},
		)

		llmCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentplan_llm_calls_total",
				Help: "Total number of completion calls, labeled by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		)

		llmCallDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contentplan_llm_call_duration_seconds",
				Help:    "Histogram of completion call latencies, labeled by provider.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		)

		clusterUnitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentplan_cluster_units_total",
				Help: "Total number of cluster generation units, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		enrichmentMatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentplan_enrichment_matches_total",
				Help: "Briefs considered for keyword enrichment, labeled by match kind.",
			},
			[]string{"match"},
		)

		keywordCacheTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentplan_keyword_cache_total",
				Help: "Keyword metric cache lookups, labeled by result.",
			},
			[]string{"result"},
		)

		siteFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentplan_site_fetches_total",
				Help: "Total number of homepage fetches, labeled by site, fetcher and status.",
			},
			[]string{"site", "fetcher", "status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "contentplan_active_workers",
				Help: "Number of workers currently running a plan job.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latencies per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ObserveHTTPRequest(r.Method, route, status, time.Since(start))
	})
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveJob increments the job counter for the given final status.
func ObserveJob(status string) {
	if jobsTotal == nil {
		return
	}
	jobsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records how long a pipeline stage ran.
func ObserveStage(stage string, duration time.Duration) {
	if stageDurationSeconds == nil {
		return
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveLLMCall records one completion call.
func ObserveLLMCall(provider, outcome string, duration time.Duration) {
	if llmCallsTotal == nil {
		return
	}
	llmCallsTotal.WithLabelValues(provider, outcome).Inc()
	llmCallDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveClusterUnit counts a cluster generation unit as "ok" or "failed".
func ObserveClusterUnit(outcome string) {
	if clusterUnitsTotal == nil {
		return
	}
	clusterUnitsTotal.WithLabelValues(outcome).Inc()
}

// ObserveEnrichment counts a brief by how its keyword matched: "exact",
// "partial" or "none".
func ObserveEnrichment(match string) {
	if enrichmentMatchesTotal == nil {
		return
	}
	enrichmentMatchesTotal.WithLabelValues(match).Inc()
}

// ObserveKeywordCache counts a keyword cache "hit" or "miss".
func ObserveKeywordCache(result string) {
	if keywordCacheTotal == nil {
		return
	}
	keywordCacheTotal.WithLabelValues(result).Inc()
}

// ObserveSiteFetch counts one homepage fetch.
func ObserveSiteFetch(site, fetcher, status string) {
	if siteFetchesTotal == nil {
		return
	}
	siteFetchesTotal.WithLabelValues(SanitizeSite(site), fetcher, status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers != nil {
		activeWorkers.Inc()
	}
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers != nil {
		activeWorkers.Dec()
	}
}
