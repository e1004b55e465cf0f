package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placequest",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "placequest",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "placequest",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Explore engine metrics
	TileFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placequest",
		Subsystem: "explore",
		Name:      "tile_fetches_total",
		Help:      "Tile fetches by result (ok, error, malformed, stale, invalid)",
	}, []string{"result"})

	TileFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "placequest",
		Subsystem: "explore",
		Name:      "tile_fetch_duration_seconds",
		Help:      "Latency of a single tile fetch",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	FeaturesMerged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "placequest",
		Subsystem: "explore",
		Name:      "features_merged_total",
		Help:      "Features newly added to the feature store",
	})

	Discoveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placequest",
		Subsystem: "explore",
		Name:      "discoveries_total",
		Help:      "Discovery events by rarity",
	}, []string{"rarity"})

	// Backend metrics
	PlacesServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placequest",
		Subsystem: "places",
		Name:      "served_total",
		Help:      "Places returned to clients by query kind",
	}, []string{"query"})

	VisitsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placequest",
		Subsystem: "visits",
		Name:      "recorded_total",
		Help:      "Visit submissions by outcome (created, duplicate)",
	}, []string{"outcome"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placequest",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Upstream provider requests by kind and status",
	}, []string{"kind", "status"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "placequest",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placequest",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placequest",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "placequest",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "placequest",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "placequest",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from a pgxpool.Stat.
func UpdateDBPoolMetrics(stat interface{}) {
	// Matched structurally so this package does not import pgxpool.
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
