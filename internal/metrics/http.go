package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	connectorDomain "github.com/allisson/connectors/internal/connector/domain"
)

const unknownLabel = "unknown"

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// HTTPMetricsMiddleware records <namespace>_http_requests_total and
// <namespace>_http_request_duration_seconds labelled by method, route, status code and
// provider. The route is the gin pattern (/v1/connectors/:provider/callback), never the raw
// path. The provider label only takes values of the closed provider set.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	meter := meterProvider.Meter(namespace)

	requests, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests served by the connectors API"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return passThrough
	}

	duration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("Connectors API request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return passThrough
	}

	m := &httpMetrics{requests: requests, duration: duration}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", routeLabel(c.FullPath())),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
			attribute.String("provider", providerLabel(c.Param("provider"))),
		)
		m.requests.Add(c.Request.Context(), 1, attrs)
		m.duration.Record(c.Request.Context(), time.Since(start).Seconds(), attrs)
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

// routeLabel returns the matched route pattern, or "unknown" for unmatched requests.
func routeLabel(fullPath string) string {
	if fullPath == "" {
		return unknownLabel
	}
	return fullPath
}

// providerLabel keeps the label bounded: routes without a provider get "", anything outside
// the provider set gets "unknown".
func providerLabel(value string) string {
	if value == "" {
		return ""
	}
	provider, err := connectorDomain.ParseProvider(value)
	if err != nil {
		return unknownLabel
	}
	return provider.String()
}
