// Package metrics exposes Prometheus metrics for the sweeper.
//
// Metrics implements core.Observer so the pipeline reports file outcomes
// without depending on Prometheus, and provides HTTP middleware that
// records request counts and latency by chi route pattern.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/sweeper/internal/core"
)

const namespace = "sweeper"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	filesTotal        *prometheus.CounterVec
	fileDuration      *prometheus.HistogramVec
	rowsLoaded        *prometheus.CounterVec
	duplicatesRemoved prometheus.Counter
	cellsFilled       prometheus.Counter
	exportBytes       *prometheus.CounterVec
	workspacesEvicted prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ core.Observer = (*Metrics)(nil)

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		filesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Files run through the pipeline, by input format and outcome.",
		}, []string{"format", "outcome"}),
		fileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time spent processing one file.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"format"}),
		rowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Data rows loaded, by input format.",
		}, []string{"format"}),
		duplicatesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_rows_removed_total",
			Help:      "Rows dropped by duplicate removal.",
		}),
		cellsFilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_filled_total",
			Help:      "Missing numeric cells replaced with the column mean.",
		}),
		exportBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Bytes of converted output, by output format.",
		}, []string{"format"}),
		workspacesEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workspaces_evicted_total",
			Help:      "Workspaces removed after their TTL.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.filesTotal,
		m.fileDuration,
		m.rowsLoaded,
		m.duplicatesRemoved,
		m.cellsFilled,
		m.exportBytes,
		m.workspacesEvicted,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TrackService registers gauges that read live state from svc on scrape.
func (m *Metrics) TrackService(svc *core.Service) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workspaces",
			Help:      "Workspaces currently held in memory.",
		}, func() float64 { return float64(svc.Workspaces().Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Pipeline runs currently executing.",
		}, func() float64 { return float64(svc.Limiter().ActiveCount()) }),
	)
}

// Middleware records request metrics. Routes are labelled by their chi
// pattern so ids in the path do not create new series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// FileProcessed implements core.Observer.
func (m *Metrics) FileProcessed(format core.Format, outcome string, elapsed time.Duration) {
	label := formatLabel(format)
	m.filesTotal.WithLabelValues(label, outcome).Inc()
	m.fileDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// RowsLoaded implements core.Observer.
func (m *Metrics) RowsLoaded(format core.Format, rows int) {
	m.rowsLoaded.WithLabelValues(formatLabel(format)).Add(float64(rows))
}

// Cleaned implements core.Observer.
func (m *Metrics) Cleaned(report core.CleanReport) {
	m.duplicatesRemoved.Add(float64(report.DuplicatesRemoved))
	m.cellsFilled.Add(float64(report.Fill.CellsFilled()))
}

// Exported implements core.Observer.
func (m *Metrics) Exported(format core.Format, size int) {
	m.exportBytes.WithLabelValues(formatLabel(format)).Add(float64(size))
}

// WorkspacesEvicted implements core.Observer.
func (m *Metrics) WorkspacesEvicted(n int) {
	m.workspacesEvicted.Add(float64(n))
}

func formatLabel(f core.Format) string {
	if f == "" {
		return "unknown"
	}
	return string(f)
}
