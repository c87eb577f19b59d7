// Package prom implements the observability hooks with Prometheus metrics.
//
//	m := prom.New(prometheus.NewRegistry())
//	observability.SetPipelineHooks(m)
//	observability.SetEngineHooks(m)
//	observability.SetCacheHooks(m)
//	observability.SetHTTPHooks(m)
//	http.Handle("/metrics", m.Handler())
package prom

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/pencilgraph/pkg/observability"
)

const namespace = "pencilgraph"

// Metrics holds the collectors behind every hook.
//
// The zero value is not usable - use [New].
type Metrics struct {
	LoadsTotal      *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
	LoadedNodes     prometheus.Histogram
	ExportsTotal    *prometheus.CounterVec
	ExportDuration  prometheus.Histogram
	ExportRecords   prometheus.Histogram
	MismatchesTotal *prometheus.CounterVec

	DrawsInFlight prometheus.Gauge
	DrawsTotal    *prometheus.CounterVec
	DrawDuration  *prometheus.HistogramVec

	CacheRequestsTotal *prometheus.CounterVec
	CacheWrittenBytes  *prometheus.CounterVec

	HTTPRequestsInFlight prometheus.Gauge
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. reg also serves [Metrics.Handler]
// when it is a Gatherer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		LoadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "loads_total",
			Help: "Documents loaded, by outcome.",
		}, []string{"outcome"}),
		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "load_duration_seconds",
			Help:    "Time to decode and build a document.",
			Buckets: prometheus.DefBuckets,
		}),
		LoadedNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "loaded_nodes",
			Help:    "Nodes per loaded document.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ExportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "exports_total",
			Help: "Exports run, by outcome.",
		}, []string{"outcome"}),
		ExportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "export_duration_seconds",
			Help:    "Time to generate export records.",
			Buckets: prometheus.DefBuckets,
		}),
		ExportRecords: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "export_records",
			Help:    "Records per export.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		MismatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "export_mismatches_total",
			Help: "Fields skipped during export, by node type and field.",
		}, []string{"node_type", "field"}),

		DrawsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "draws_in_flight",
			Help: "Renderer draws currently running.",
		}),
		DrawsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "draws_total",
			Help: "Renderer draws, by status.",
		}, []string{"status"}),
		DrawDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "draw_duration_seconds",
			Help:    "Renderer draw latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"status"}),

		CacheRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_requests_total",
			Help: "Cache lookups, by key kind and result.",
		}, []string{"kind", "result"}),
		CacheWrittenBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_written_bytes_total",
			Help: "Bytes written to the cache, by key kind.",
		}, []string{"kind"}),

		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "http_requests_in_flight",
			Help: "HTTP requests being served.",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Register installs m as every observability hook.
func (m *Metrics) Register() {
	observability.SetPipelineHooks(m)
	observability.SetEngineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// =============================================================================
// Pipeline
// =============================================================================

func (m *Metrics) OnLoadStart(context.Context, string) {}

func (m *Metrics) OnLoadComplete(_ context.Context, _ string, nodeCount int, d time.Duration, err error) {
	m.LoadsTotal.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.LoadDuration.Observe(d.Seconds())
		m.LoadedNodes.Observe(float64(nodeCount))
	}
}

func (m *Metrics) OnExportStart(context.Context, int) {}

func (m *Metrics) OnExportComplete(_ context.Context, _ int, records int, d time.Duration, err error) {
	m.ExportsTotal.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.ExportDuration.Observe(d.Seconds())
		m.ExportRecords.Observe(float64(records))
	}
}

func (m *Metrics) OnMismatch(_ context.Context, nodeType, field string) {
	m.MismatchesTotal.WithLabelValues(nodeType, field).Inc()
}

// =============================================================================
// Engine
// =============================================================================

func (m *Metrics) OnDrawStart(context.Context, bool) {
	m.DrawsInFlight.Inc()
}

func (m *Metrics) OnDrawComplete(_ context.Context, status string, d time.Duration) {
	m.DrawsInFlight.Dec()
	m.DrawsTotal.WithLabelValues(status).Inc()
	m.DrawDuration.WithLabelValues(status).Observe(d.Seconds())
}

// =============================================================================
// Cache
// =============================================================================

func (m *Metrics) OnCacheHit(_ context.Context, kind string) {
	m.CacheRequestsTotal.WithLabelValues(kind, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, kind string) {
	m.CacheRequestsTotal.WithLabelValues(kind, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, kind string, size int) {
	m.CacheWrittenBytes.WithLabelValues(kind).Add(float64(size))
}

// =============================================================================
// HTTP
// =============================================================================

func (m *Metrics) OnRequest(context.Context, string, string) {
	m.HTTPRequestsInFlight.Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, statusCode int, d time.Duration) {
	m.HTTPRequestsInFlight.Dec()
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.EngineHooks   = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
