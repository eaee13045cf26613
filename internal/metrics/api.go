package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// API client Prometheus metrics.
var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nludb",
			Name:      "api_requests_total",
			Help:      "Total number of NLUDB API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nludb",
			Name:      "api_request_duration_seconds",
			Help:      "NLUDB API request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nludb",
			Name:      "query_cache_total",
			Help:      "File query cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "bypass"
	)
)

// Register registers the API metrics on reg. Collectors that are already
// registered on reg are left in place.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{APIRequestsTotal, APIRequestDuration, QueryCacheTotal} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return fmt.Errorf("register api metric: %w", err)
		}
	}
	return nil
}
