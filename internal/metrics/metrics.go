package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "huddle_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "huddle_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Refresh pass metrics
	RefreshLeagues = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_refresh_leagues_total",
			Help: "Per-league outcomes of background refresh passes",
		},
		[]string{"outcome"}, // outcome: fetched|fresh|failed
	)

	// Provider metrics
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_provider_api_calls_total",
			Help: "Total number of ESPN API calls",
		},
		[]string{"operation", "status"}, // status: success|error
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "huddle_provider_api_latency_seconds",
			Help:    "ESPN API call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)

	// Cache metrics
	CacheReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_cache_reads_total",
			Help: "Shared league cache reads",
		},
		[]string{"outcome"}, // outcome: hit|miss
	)

	// Live session metrics
	LiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_live_sessions",
			Help: "Number of open live scoreboard sessions",
		},
	)

	LiveIterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_live_iterations_total",
			Help: "Live poll loop iterations",
		},
		[]string{"status"}, // status: success|error
	)

	// Registry metrics
	RegisteredLeagues = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_registered_leagues",
			Help: "Number of league configs currently registered",
		},
	)
)

// Init registers all collectors with the default registry. Call once at
// startup.
func Init() {
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)
	prometheus.MustRegister(RefreshLeagues)
	prometheus.MustRegister(ProviderCalls)
	prometheus.MustRegister(ProviderLatency)
	prometheus.MustRegister(CacheReads)
	prometheus.MustRegister(LiveSessions)
	prometheus.MustRegister(LiveIterations)
	prometheus.MustRegister(RegisteredLeagues)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records one worker pass
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordProviderCall records one ESPN API call
func RecordProviderCall(operation string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ProviderCalls.WithLabelValues(operation, status).Inc()
	ProviderLatency.WithLabelValues(operation).Observe(latency.Seconds())
}

// RecordCacheRead records a shared cache hit or miss
func RecordCacheRead(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	CacheReads.WithLabelValues(outcome).Inc()
}

// RecordLiveIteration records one live poll iteration
func RecordLiveIteration(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	LiveIterations.WithLabelValues(status).Inc()
}
