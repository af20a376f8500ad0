package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Searches          *prometheus.CounterVec
	SearchSeconds     prometheus.Histogram
	Reloads           *prometheus.CounterVec
	ReloadSeconds     prometheus.Histogram
	SnapshotPlaces    prometheus.Gauge
	SnapshotTimestamp prometheus.Gauge
	RateLimited       prometheus.Counter
	HTTPRequests      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Searches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geocoder_searches_total",
			Help: "Total number of reverse geocoding searches by outcome.",
		}, []string{"status"}),
		SearchSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "geocoder_search_duration_seconds",
			Help:    "Time spent answering a reverse geocoding search.",
			Buckets: []float64{.00001, .000025, .00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		}),
		Reloads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geocoder_reloads_total",
			Help: "Total number of snapshot builds by outcome.",
		}, []string{"status"}),
		ReloadSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "geocoder_reload_duration_seconds",
			Help:    "Time spent loading the gazetteer and building a snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		SnapshotPlaces: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "geocoder_snapshot_places",
			Help: "Number of places in the snapshot currently served.",
		}),
		SnapshotTimestamp: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "geocoder_snapshot_timestamp_seconds",
			Help: "Unix time the served snapshot was published.",
		}),
		RateLimited: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geocoder_rate_limited_requests_total",
			Help: "Total number of requests rejected by the per-client rate limiter.",
		}),
		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geocoder_http_requests_total",
			Help: "Total number of HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
}
