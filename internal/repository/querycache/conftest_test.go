package querycache

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nludb/nludb-go/internal/db"
	"github.com/nludb/nludb-go/internal/domain"
)

type mockQuerier struct {
	resp  domain.FileQueryResponse
	err   error
	calls int
}

func (m *mockQuerier) Query(_ context.Context, req *domain.FileQueryRequest) (domain.FileQueryResponse, error) {
	m.calls++
	if m.err != nil {
		return domain.FileQueryResponse{}, m.err
	}
	resp := m.resp
	resp.FileID = req.FileID
	return resp, nil
}

// memKV is an in-memory store; individual operations can be overridden.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration

	getFn  func(ctx context.Context, key string) ([]byte, error)
	setFn  func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	incrFn func(ctx context.Context, key string, val int64) (int64, error)
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memKV) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	if m.incrFn != nil {
		return m.incrFn(ctx, key, val)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(string(m.data[key]), 10, 64)
	n += val
	m.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func newTestCachedQuerier(t *testing.T, inner *mockQuerier) (*CachedQuerier, *memKV) {
	t.Helper()
	kv := newMemKV()
	return New(inner, kv, time.Minute, nil, zap.NewNop()), kv
}
