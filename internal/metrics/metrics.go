// Package metrics exposes prometheus collectors for attendance writes,
// report latency and HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	marks    *prometheus.CounterVec
	reports  *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollcall",
			Name:      "marks_written_total",
			Help:      "Attendance rows written through the daily upsert, by status code.",
		}, []string{"status"}),
		reports: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rollcall",
			Name:      "report_duration_seconds",
			Help:      "Time spent building attendance reports.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"report"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollcall",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(m.marks, m.reports, m.requests)
	return m
}

// MarkWritten counts one upserted attendance row.
func (m *Metrics) MarkWritten(code string) {
	if m == nil {
		return
	}
	m.marks.WithLabelValues(code).Inc()
}

// ObserveReport records how long a report took since start.
func (m *Metrics) ObserveReport(report string, start time.Time) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

// GinMiddleware counts requests per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
