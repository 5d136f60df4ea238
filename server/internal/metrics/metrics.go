// Package metrics owns the service's Prometheus collectors. They live on a
// private registry so tests can create as many instances as they like, and
// are exposed in the text exposition format by Handler.
package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "regionstats"

var (
	durationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	regionBuckets   = []float64{0, 1, 2, 5, 10, 25, 50, 100}
)

// Metrics is the set of collectors recorded by the API.
type Metrics struct {
	reg *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	datasetRecords  prometheus.Gauge
	datasetReady    prometheus.Gauge
	regionLookups   *prometheus.CounterVec
	regionsPerQuery prometheus.Histogram
}

// New creates the collectors and registers them, together with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests.",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers.",
			Buckets:   durationBuckets,
		}, []string{"method", "route"}),
		datasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Number of telemetry records loaded at startup.",
		}),
		datasetReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_ready",
			Help:      "1 if the telemetry dataset loaded successfully, 0 otherwise.",
		}),
		regionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_lookups_total",
			Help:      "Region lookups performed by queries, by outcome.",
		}, []string{"result"}),
		regionsPerQuery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_regions",
			Help:      "Number of regions requested per query.",
			Buckets:   regionBuckets,
		}),
	}

	m.reg.MustRegister(
		m.requestTotal,
		m.requestLatency,
		m.datasetRecords,
		m.datasetReady,
		m.regionLookups,
		m.regionsPerQuery,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// SetDataset records the outcome of the startup load.
func (m *Metrics) SetDataset(records int, ready bool) {
	m.datasetRecords.Set(float64(records))
	if ready {
		m.datasetReady.Set(1)
	} else {
		m.datasetReady.Set(0)
	}
}

// ObserveQuery records the number of regions in one query.
func (m *Metrics) ObserveQuery(regions int) {
	m.regionsPerQuery.Observe(float64(regions))
}

// RegionLookup counts a region lookup as a hit or a miss. Region names come
// from requests and are not used as a label.
func (m *Metrics) RegionLookup(_ string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	m.regionLookups.WithLabelValues(result).Inc()
}

// Gather returns the current metric families.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.reg.Gather()
}

// Handler serves the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mfs, err := m.Gather()
		if err != nil && len(mfs) == 0 {
			http.Error(w, "gather metrics: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if err != nil {
			slog.Warn("metrics: partial gather", "err", err)
		}

		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range mfs {
			if err := enc.Encode(mf); err != nil {
				slog.Warn("metrics: encode family", "name", mf.GetName(), "err", err)
				return
			}
		}
		if c, ok := enc.(expfmt.Closer); ok {
			_ = c.Close()
		}
	})
}
