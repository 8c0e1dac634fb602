// Package metrics holds the Prometheus collectors of the dashboard process.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/regionmap/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000}

// Metrics is a set of collectors bound to their own registry.
type Metrics struct {
	registry *prometheus.Registry

	LoadsTotal       *prometheus.CounterVec
	LoadDurationMs   prometheus.Histogram
	Regions          prometheus.Gauge
	RegionsWithData  prometheus.Gauge
	DuplicateRegions prometheus.Gauge
	LastLoadSuccess  prometheus.Gauge

	RequestsTotal     *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
	SSEClients        prometheus.Gauge
}

// New creates and registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "regionmap_loads_total",
			Help: "Region table builds by trigger and outcome",
		}, []string{"trigger", "status"}),
		LoadDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "regionmap_load_duration_ms",
			Help:    "Region table build duration in milliseconds",
			Buckets: durationBuckets,
		}),
		Regions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "regionmap_regions",
			Help: "Regions in the table being served",
		}),
		RegionsWithData: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "regionmap_regions_with_data",
			Help: "Regions in the table being served that carry a value",
		}),
		DuplicateRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "regionmap_duplicate_region_files",
			Help: "Region files skipped by the last successful build because their name was taken",
		}),
		LastLoadSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "regionmap_last_load_success",
			Help: "1 when the last build succeeded, 0 when it failed",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "regionmap_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RequestDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "regionmap_http_request_duration_ms",
			Help:    "HTTP request duration in milliseconds",
			Buckets: durationBuckets,
		}, []string{"route"}),
		SSEClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "regionmap_sse_clients",
			Help: "Connected live-update clients",
		}),
	}

	m.registry.MustRegister(
		m.LoadsTotal, m.LoadDurationMs,
		m.Regions, m.RegionsWithData, m.DuplicateRegions, m.LastLoadSuccess,
		m.RequestsTotal, m.RequestDurationMs, m.SSEClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are bound to.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLoad records a successful build.
func (m *Metrics) ObserveLoad(trigger string, summary core.LoadSummary) {
	m.LoadsTotal.WithLabelValues(trigger, string(core.LoadStatusSucceeded)).Inc()
	m.LoadDurationMs.Observe(float64(summary.Duration.Milliseconds()))
	m.Regions.Set(float64(summary.Regions))
	m.RegionsWithData.Set(float64(summary.WithData))
	m.DuplicateRegions.Set(float64(summary.Duplicates))
	m.LastLoadSuccess.Set(1)
}

// ObserveLoadFailure records a failed build. Table gauges keep the values of
// the table still being served.
func (m *Metrics) ObserveLoadFailure(trigger string) {
	m.LoadsTotal.WithLabelValues(trigger, string(core.LoadStatusFailed)).Inc()
	m.LastLoadSuccess.Set(0)
}

// Middleware records request counts and durations per chi route pattern.
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
		m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}
