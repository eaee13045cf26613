package nludb

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nludb/nludb-go/internal/db"
	"github.com/nludb/nludb-go/internal/domain"
	"github.com/nludb/nludb-go/internal/fakeapi"
)

const testAPIKey = "test-key"

// --- apiCaller mock ---

type mockAPI struct {
	postFn     func(ctx context.Context, endpoint string, payload any) (*domain.Envelope, error)
	postFileFn func(ctx context.Context, endpoint string, payload any, file domain.FilePart) (*domain.Envelope, error)
	postRawFn  func(ctx context.Context, endpoint string, payload any) ([]byte, error)
}

func (m *mockAPI) Post(ctx context.Context, endpoint string, payload any) (*domain.Envelope, error) {
	return m.postFn(ctx, endpoint, payload)
}

func (m *mockAPI) PostFile(
	ctx context.Context, endpoint string, payload any, file domain.FilePart,
) (*domain.Envelope, error) {
	return m.postFileFn(ctx, endpoint, payload, file)
}

func (m *mockAPI) PostRaw(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	return m.postRawFn(ctx, endpoint, payload)
}

// dataEnvelope wraps v as the data of a response envelope.
func dataEnvelope(t *testing.T, v any) *domain.Envelope {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &domain.Envelope{Data: raw}
}

// --- db.Store fake ---

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) Close() {}

func (m *memStore) WaitForReady(context.Context, time.Duration) error { return nil }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(string(m.data[key]), 10, 64)
	n += val
	m.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

// newFakeClient starts a fake API and returns a Client talking to it.
func newFakeClient(t *testing.T, opts ...Option) (*Client, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(testAPIKey)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithAPIKey(testAPIKey),
		WithBaseURL(srv.URL + fakeapi.BasePath),
		WithTaskPollInterval(5 * time.Millisecond),
	}, opts...)
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, fake
}
