package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RoundTripper records API request duration and count.
// basePath is stripped from the URL path so the endpoint label stays small
// ("file/query" rather than "/api/v1/file/query").
func RoundTripper(next http.RoundTripper, basePath string) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)
		duration := time.Since(start).Seconds()

		endpoint := normalizeEndpoint(r.URL.Path, basePath)
		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}

		APIRequestDuration.WithLabelValues(r.Method, endpoint).Observe(duration)
		APIRequestsTotal.WithLabelValues(r.Method, endpoint, status).Inc()
		return resp, err //nolint:wrapcheck // transparent decorator
	})
}

// normalizeEndpoint trims the base path to keep label cardinality low.
func normalizeEndpoint(path, basePath string) string {
	p := strings.TrimPrefix(path, strings.TrimRight(basePath, "/"))
	p = strings.Trim(p, "/")
	if p == "" {
		return "unknown"
	}
	return p
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
