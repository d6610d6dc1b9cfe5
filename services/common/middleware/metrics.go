package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/yashrajoria/markup-backend/pkg/aws"
)

// HTTPMetrics is the part of the CloudWatch client the middleware needs.
type HTTPMetrics interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
	IsEnabled() bool
}

// Metrics records request count, latency and error class per route template,
// so /admin/datasets/:task/reload is a single series. Nothing is sent on the
// request path.
func Metrics(m HTTPMetrics, service string) gin.HandlerFunc {
	if m == nil || !m.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		dims := map[string]string{
			"Service": service,
			"Method":  c.Request.Method,
			"Route":   route,
			"Status":  statusClass(status),
		}
		go recordRequest(m, dims, status, time.Since(start))
	}
}

func recordRequest(m HTTPMetrics, dims map[string]string, status int, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = m.RecordLatency(ctx, awspkg.MetricHTTPLatency, elapsed, dims)
	for _, name := range countersFor(status) {
		_ = m.RecordCount(ctx, name, dims)
	}
}

func countersFor(status int) []string {
	switch {
	case status >= 500:
		return []string{awspkg.MetricHTTPRequests, awspkg.MetricHTTPErrors, awspkg.MetricHTTP5xx}
	case status >= 400:
		return []string{awspkg.MetricHTTPRequests, awspkg.MetricHTTPErrors, awspkg.MetricHTTP4xx}
	default:
		return []string{awspkg.MetricHTTPRequests}
	}
}

// statusClass maps 409 to "4xx".
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
