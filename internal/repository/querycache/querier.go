// Package querycache caches file query results in a key-value store.
//
// Entries are keyed by the file's generation counter, so bumping the
// generation after a mutation orphans every cached result for that file
// without scanning keys. Orphans age out through their TTL.
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nludb/nludb-go/internal/db"
	"github.com/nludb/nludb-go/internal/domain"
)

// KeyPrefix namespaces every cache key.
const KeyPrefix = "nludb:"

// Querier runs a block query against a file.
type Querier interface {
	Query(ctx context.Context, req *domain.FileQueryRequest) (domain.FileQueryResponse, error)
}

// store is the consumer interface for the query cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
}

// CachedQuerier caches query responses in a key-value store.
type CachedQuerier struct {
	inner      Querier
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"bypass"), may be nil.
func New(
	inner Querier,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedQuerier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedQuerier{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Query returns a cached response or calls the inner querier.
// Cache failures never fail the query; they only skip the cache.
func (c *CachedQuerier) Query(ctx context.Context, req *domain.FileQueryRequest) (domain.FileQueryResponse, error) {
	gen, ok := c.generation(ctx, req.FileID)
	if !ok {
		c.inc("bypass")
		return c.inner.Query(ctx, req)
	}

	key, err := c.cacheKey(req, gen)
	if err != nil {
		c.inc("bypass")
		return c.inner.Query(ctx, req)
	}

	if resp, ok := c.getFromCache(ctx, key); ok {
		c.inc("hit")
		return resp, nil
	}
	c.inc("miss")

	resp, err := c.inner.Query(ctx, req)
	if err != nil {
		return domain.FileQueryResponse{}, fmt.Errorf("query file: %w", err)
	}

	c.putToCache(ctx, key, resp)
	return resp, nil
}

// Invalidate drops every cached result for fileID.
func (c *CachedQuerier) Invalidate(ctx context.Context, fileID string) error {
	if _, err := c.store.IncrBy(ctx, generationKey(fileID), 1); err != nil {
		return fmt.Errorf("invalidate %s: %w", fileID, err)
	}
	return nil
}

func (c *CachedQuerier) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func generationKey(fileID string) string {
	return KeyPrefix + "gen:" + fileID
}

// generation returns the current generation of fileID; "0" when none was recorded.
func (c *CachedQuerier) generation(ctx context.Context, fileID string) (string, bool) {
	data, err := c.store.Get(ctx, generationKey(fileID))
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return "0", true
	case err != nil:
		c.logger.Warn("Failed to read cache generation", zap.String("file_id", fileID), zap.Error(err))
		return "", false
	default:
		return string(data), true
	}
}

func (c *CachedQuerier) cacheKey(req *domain.FileQueryRequest, gen string) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(body)
	return KeyPrefix + "q:" + req.FileID + ":" + gen + ":" + hex.EncodeToString(h[:]), nil
}

func (c *CachedQuerier) getFromCache(ctx context.Context, key string) (domain.FileQueryResponse, bool) {
	var resp domain.FileQueryResponse
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached query", zap.String("key", key), zap.Error(err))
		}
		return resp, false
	}
	if len(data) == 0 {
		return resp, false
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("Failed to parse cached query", zap.String("key", key), zap.Error(err))
		return resp, false
	}
	return resp, true
}

func (c *CachedQuerier) putToCache(ctx context.Context, key string, resp domain.FileQueryResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache query", zap.String("key", key), zap.Error(err))
	}
}
