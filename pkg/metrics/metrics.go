// Package metrics documents the Prometheus metrics of the graph client and
// serves them. Each metric is defined with promauto in the package that
// updates it (client, cache, ratelimit, graph).
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer the graph packages register with.
var Registry = prometheus.DefaultRegisterer

// Documented lists every metric the graph packages export.
var Documented = []string{
	// pkg/client
	"graph_requests_total",
	"graph_request_duration_seconds",
	"graph_errors_total",
	"graph_retries_total",
	"graph_retry_backoff_seconds",
	"graph_retry_exhausted_total",

	// pkg/cache
	"graph_cache_hits_total",
	"graph_cache_misses_total",
	"graph_cache_size_bytes",
	"graph_304_responses_total",
	"graph_cache_errors_total",
	"graph_cache_invalidations_total",

	// pkg/ratelimit
	"graph_usage_percent",
	"graph_rate_limit_blocks_total",
	"graph_rate_limit_throttles_total",

	// pkg/graph
	"graph_batch_executions_total",
	"graph_batch_items_total",
}

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// GraphFamilies returns the names of the registered graph_ metric families.
// Vectors appear once a label combination has been observed.
func GraphFamilies(g prometheus.Gatherer) ([]string, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "graph_") {
			names = append(names, f.GetName())
		}
	}
	return names, nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - graph_requests_total{method, status} (Counter)
//   - graph_request_duration_seconds{method} (Histogram)
//   - graph_errors_total{class} (Counter): client, server, rate_limit, network
//
// Retry Metrics (pkg/client):
//   - graph_retries_total{error_class} (Counter)
//   - graph_retry_backoff_seconds{error_class} (Histogram)
//   - graph_retry_exhausted_total{error_class} (Counter)
//
// Cache Metrics (pkg/cache):
//   - graph_cache_hits_total{layer="redis"} (Counter)
//   - graph_cache_misses_total (Counter)
//   - graph_cache_size_bytes{layer="redis"} (Gauge)
//   - graph_304_responses_total (Counter)
//   - graph_cache_errors_total{operation} (Counter)
//   - graph_cache_invalidations_total (Counter): reads dropped after a write to their node
//
// Usage Metrics (pkg/ratelimit):
//   - graph_usage_percent{source} (Gauge): app, business or ad account usage
//   - graph_rate_limit_blocks_total (Counter)
//   - graph_rate_limit_throttles_total (Counter)
//
// Batch Metrics (pkg/graph):
//   - graph_batch_executions_total{result} (Counter)
//   - graph_batch_items_total{outcome} (Counter): success, failure, transient
//
// Example Prometheus Queries:
//
//   # Transient share of batch items
//   sum(rate(graph_batch_items_total{outcome="transient"}[5m])) /
//   sum(rate(graph_batch_items_total[5m]))
//
//   # App usage close to the limit
//   graph_usage_percent{source="app"} > 90
//
//   # P95 call latency
//   histogram_quantile(0.95, rate(graph_request_duration_seconds_bucket[5m]))
