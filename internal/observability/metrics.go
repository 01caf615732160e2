package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call lifecycle events tracked by the calls counter.
const (
	CallEventInitiated = "initiated"
	CallEventEnded     = "ended"
	CallEventFailed    = "failed"
	CallEventNoActive  = "no_active_call"
)

// Metrics holds the dashboard's prometheus instruments.
type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	callEvents     *prometheus.CounterVec
	deviceRequests *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers instruments on the given registerer; tests pass
// an isolated registry.
func NewMetricsWith(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dialdash_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dialdash_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		callEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dialdash_call_events_total",
			Help: "Call lifecycle events.",
		}, []string{"event"}),
		deviceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dialdash_device_api_requests_total",
			Help: "Device-control API operations by outcome.",
		}, []string{"operation", "outcome"}),
	}
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordCallEvent(event string) {
	m.callEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordDeviceRequest(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.deviceRequests.WithLabelValues(operation, outcome).Inc()
}
