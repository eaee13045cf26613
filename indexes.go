package nludb

import (
	"context"
	"fmt"
	"time"

	"github.com/nludb/nludb-go/internal/domain"
	"github.com/nludb/nludb-go/internal/transport/rest"
)

// IndexService creates and opens embedding indexes.
type IndexService struct {
	api      apiCaller
	interval time.Duration
	obs      *observer
}

// Create creates an embedding index. With upsert an existing index of the same
// name is returned instead of failing.
func (s *IndexService) Create(ctx context.Context, name, model string, upsert bool) (_ *EmbeddingIndex, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.create", start, err) }()

	return s.create(ctx, name, model, upsert)
}

func (s *IndexService) create(ctx context.Context, name, model string, upsert bool) (*EmbeddingIndex, error) {
	if model == "" {
		model = DefaultIndexModel
	}
	env, err := s.api.Post(ctx, epIndexCreate, domain.CreateIndexRequest{Name: name, Model: model, Upsert: upsert})
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", name, err)
	}
	meta, err := rest.Decode[domain.EmbeddingIndex](env)
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", name, err)
	}
	idx := s.Get(meta.ID)
	idx.Name = meta.Name
	idx.Model = meta.Model
	return idx, nil
}

// Get returns a handle on an existing index without contacting the server.
func (s *IndexService) Get(id string) *EmbeddingIndex {
	return &EmbeddingIndex{ID: id, api: s.api, interval: s.interval, obs: s.obs}
}

// EmbeddingIndex is a server-side index of embedded values.
type EmbeddingIndex struct {
	ID    string
	Name  string
	Model string

	api      apiCaller
	interval time.Duration
	obs      *observer
}

// InsertMany embeds items into the index.
func (i *EmbeddingIndex) InsertMany(
	ctx context.Context, items []IndexItem, reindex bool,
) (_ *Task[IndexInsertResult], err error) {
	start := time.Now()
	defer func() { i.obs.observe("index.insert", start, err) }()

	return i.insertMany(ctx, items, reindex)
}

func (i *EmbeddingIndex) insertMany(ctx context.Context, items []IndexItem, reindex bool) (*Task[IndexInsertResult], error) {
	env, err := i.api.Post(ctx, epIndexInsert, domain.IndexInsertRequest{
		IndexID: i.ID,
		Items:   toIndexItems(items),
		Reindex: reindex,
	})
	if err != nil {
		return nil, fmt.Errorf("insert into index %s: %w", i.ID, err)
	}
	return newTask(ctx, i.api, i.interval, env,
		func(r domain.IndexInsertResponse) IndexInsertResult { return IndexInsertResult(r) },
		nil,
	)
}

// Search returns the k best matches for query. A non-positive k selects DefaultSearchK.
func (i *EmbeddingIndex) Search(ctx context.Context, query string, k int) (_ []IndexHit, err error) {
	start := time.Now()
	defer func() { i.obs.observe("index.search", start, err) }()

	if k <= 0 {
		k = DefaultSearchK
	}
	env, err := i.api.Post(ctx, epIndexSearch, domain.IndexSearchRequest{IndexID: i.ID, Query: query, K: k})
	if err != nil {
		return nil, fmt.Errorf("search index %s: %w", i.ID, err)
	}
	resp, err := rest.Decode[domain.IndexSearchResponse](env)
	if err != nil {
		return nil, fmt.Errorf("search index %s: %w", i.ID, err)
	}
	return fromIndexHits(resp.Hits), nil
}

// Delete removes the index.
func (i *EmbeddingIndex) Delete(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { i.obs.observe("index.delete", start, err) }()

	if _, err := i.api.Post(ctx, epIndexDelete, domain.IndexIDRequest{IndexID: i.ID}); err != nil {
		return fmt.Errorf("delete index %s: %w", i.ID, err)
	}
	return nil
}
