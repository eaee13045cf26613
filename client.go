package nludb

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nludb/nludb-go/internal/db"
	dbRedis "github.com/nludb/nludb-go/internal/db/redis"
	"github.com/nludb/nludb-go/internal/domain"
	"github.com/nludb/nludb-go/internal/metrics"
	"github.com/nludb/nludb-go/internal/repository/querycache"
	"github.com/nludb/nludb-go/internal/transport/rest"
	"github.com/nludb/nludb-go/internal/version"
)

const defaultReadinessTimeout = 10 * time.Second

// API endpoints, relative to the base URL.
const (
	epFileCreate  = "file/create"
	epFileList    = "file/list"
	epFileDelete  = "file/delete"
	epFileClear   = "file/clear"
	epFileRaw     = "file/raw"
	epFileQuery   = "file/query"
	epFileTag     = "file/tag"
	epFileParse   = "file/parse"
	epConvert     = "model/convert"
	epTagCreate   = "tag/create"
	epTagDelete   = "tag/delete"
	epTagList     = "tag/list"
	epIndexCreate = "embedding-index/create"
	epIndexInsert = "embedding-index/insert"
	epIndexSearch = "embedding-index/search"
	epIndexDelete = "embedding-index/delete"
	epTaskStatus  = "task/status"
)

// Внутренние интерфейсы для подмены в тестах.
type apiCaller interface {
	Post(ctx context.Context, endpoint string, payload any) (*domain.Envelope, error)
	PostFile(ctx context.Context, endpoint string, payload any, file domain.FilePart) (*domain.Envelope, error)
	PostRaw(ctx context.Context, endpoint string, payload any) ([]byte, error)
}

type invalidator interface {
	Invalidate(ctx context.Context, fileID string) error
}

// Client is the NLUDB SDK entry point.
type Client struct {
	api          apiCaller
	store        db.Store
	queries      querycache.Querier
	cache        invalidator
	pollInterval time.Duration
	obs          *observer
}

// New creates a Client. The provided context is used for the readiness check
// of the query cache, when one is configured.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		userAgent:        "nludb-go/" + version.Version,
		taskPollInterval: defaultTaskPollInterval,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.apiKey == "" {
		return nil, fmt.Errorf("nludb: %w (use WithAPIKey)", domain.ErrMissingAPIKey)
	}
	if cfg.taskPollInterval <= 0 {
		cfg.taskPollInterval = defaultTaskPollInterval
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	api, err := rest.New(&rest.Config{
		BaseURL:    cfg.baseURL,
		APIKey:     cfg.apiKey,
		UserAgent:  cfg.userAgent,
		Timeout:    cfg.timeout,
		HTTPClient: cfg.httpClient,
		Logger:     cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("nludb: %w", err)
	}

	c := wireClient(api, cfg, obs)
	if len(cfg.cacheAddrs) == 0 {
		return c, nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.cacheAddrs,
		Password: cfg.cachePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("nludb: create query cache: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("nludb: query cache not ready: %w", err)
	}
	c.withCache(store, cfg.cacheTTL, cfg.metricsReg)
	return c, nil
}

func wireClient(api apiCaller, cfg *clientConfig, obs *observer) *Client {
	return &Client{
		api:          api,
		queries:      apiQuerier{api: api},
		pollInterval: cfg.taskPollInterval,
		obs:          obs,
	}
}

// withCache puts a query cache in front of file/query.
func (c *Client) withCache(store db.Store, ttl time.Duration, reg prometheus.Registerer) {
	if ttl <= 0 {
		ttl = defaultQueryCacheTTL
	}
	var counter *prometheus.CounterVec
	if reg != nil {
		counter = metrics.QueryCacheTotal
	}
	cq := querycache.New(apiQuerier{api: c.api}, store, ttl, counter, c.obs.zapLogger())
	c.store = store
	c.queries = cq
	c.cache = cq
}

// Close releases the query cache connection.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Files returns the file service.
func (c *Client) Files() *FileService {
	return &FileService{
		api:      c.api,
		queries:  c.queries,
		cache:    c.cache,
		interval: c.pollInterval,
		obs:      c.obs,
	}
}

// Indexes returns the embedding index service.
func (c *Client) Indexes() *IndexService {
	return &IndexService{api: c.api, interval: c.pollInterval, obs: c.obs}
}

// apiQuerier runs file queries directly against the API.
type apiQuerier struct {
	api apiCaller
}

func (q apiQuerier) Query(ctx context.Context, req *domain.FileQueryRequest) (domain.FileQueryResponse, error) {
	env, err := q.api.Post(ctx, epFileQuery, req)
	if err != nil {
		return domain.FileQueryResponse{}, err
	}
	return rest.Decode[domain.FileQueryResponse](env)
}
