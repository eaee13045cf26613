package nludb

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultTaskPollInterval = time.Second
	defaultQueryCacheTTL    = 10 * time.Minute
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey     string
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client

	taskPollInterval time.Duration

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithAPIKey sets the bearer key sent with every request. Required.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithBaseURL overrides the API root (default https://api.nludb.com/api/v1/).
func WithBaseURL(u string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = u
	})
}

// WithHTTPClient injects the HTTP client. The client is copied, not mutated.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// WithTaskPollInterval sets how often Task.Wait polls the task status.
// Default: 1s.
func WithTaskPollInterval(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.taskPollInterval = d
	})
}

// WithRedisQueryCache caches file query results in Redis at addrs
// (one address for a standalone server, several for a cluster).
// A non-positive ttl selects the default of 10 minutes.
func WithRedisQueryCache(addrs []string, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = append([]string(nil), addrs...)
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations, API
// requests, query cache hits) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
