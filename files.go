package nludb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nludb/nludb-go/internal/domain"
	"github.com/nludb/nludb-go/internal/repository/querycache"
	"github.com/nludb/nludb-go/internal/transport/rest"
	"github.com/nludb/nludb-go/pkg/dquery"
)

const defaultUploadConcurrency = 4

// FileService uploads, processes and queries files.
type FileService struct {
	api      apiCaller
	queries  querycache.Querier
	cache    invalidator
	interval time.Duration
	obs      *observer
}

// Upload stores a file from req.Content.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (_ File, err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.upload", start, err) }()

	return s.upload(ctx, req)
}

func (s *FileService) upload(ctx context.Context, req UploadRequest) (File, error) {
	if req.Name == "" || req.Content == nil {
		return File{}, fmt.Errorf("upload: %w: name and content are required", domain.ErrInvalidUpload)
	}
	content, err := io.ReadAll(req.Content)
	if err != nil {
		return File{}, fmt.Errorf("upload %s: read content: %w", req.Name, err)
	}

	env, err := s.api.PostFile(ctx, epFileCreate, domain.FileCreateRequest{
		Type:       domain.UploadTypeFile,
		CorpusID:   req.CorpusID,
		Name:       req.Name,
		FileFormat: req.Format,
		Convert:    req.Convert,
	}, domain.FilePart{Name: req.Name, Content: content})
	if err != nil {
		return File{}, fmt.Errorf("upload %s: %w", req.Name, err)
	}
	f, err := rest.Decode[domain.File](env)
	if err != nil {
		return File{}, fmt.Errorf("upload %s: %w", req.Name, err)
	}
	return fromFile(f), nil
}

// UploadAll uploads files with at most concurrency uploads in flight.
// Results keep the order of reqs; a failed item does not stop the others.
func (s *FileService) UploadAll(ctx context.Context, reqs []UploadRequest, concurrency int) []UploadResult {
	start := time.Now()
	if concurrency <= 0 {
		concurrency = defaultUploadConcurrency
	}

	results := make([]UploadResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			f, err := s.upload(gctx, req)
			results[i] = UploadResult{Name: req.Name, File: f, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	s.obs.observe("file.upload_all", start, errors.Join(errs...))
	return results
}

// Scrape imports the document at url.
func (s *FileService) Scrape(ctx context.Context, url string, opts ScrapeOptions) (_ File, err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.scrape", start, err) }()

	if url == "" {
		return File{}, fmt.Errorf("scrape: %w: url is required", domain.ErrInvalidUpload)
	}
	name := opts.Name
	if name == "" {
		name = url
	}

	env, err := s.api.Post(ctx, epFileCreate, domain.FileCreateRequest{
		Type:       domain.UploadTypeURL,
		CorpusID:   opts.CorpusID,
		Name:       name,
		URL:        url,
		FileFormat: opts.Format,
		Convert:    opts.Convert,
	})
	if err != nil {
		return File{}, fmt.Errorf("scrape %s: %w", url, err)
	}
	f, err := rest.Decode[domain.File](env)
	if err != nil {
		return File{}, fmt.Errorf("scrape %s: %w", url, err)
	}
	return fromFile(f), nil
}

// List returns the files of a corpus; an empty corpusID lists all files.
func (s *FileService) List(ctx context.Context, corpusID string) (_ []File, err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.list", start, err) }()

	env, err := s.api.Post(ctx, epFileList, domain.ListFilesRequest{CorpusID: corpusID})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	resp, err := rest.Decode[domain.ListFilesResponse](env)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return fromFiles(resp.Files), nil
}

// Delete removes a file and returns its id.
func (s *FileService) Delete(ctx context.Context, fileID string) (_ string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.delete", start, err) }()

	return s.fileOp(ctx, epFileDelete, "delete", fileID)
}

// Clear removes the blocks of a file, keeping the upload.
func (s *FileService) Clear(ctx context.Context, fileID string) (_ string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.clear", start, err) }()

	return s.fileOp(ctx, epFileClear, "clear", fileID)
}

func (s *FileService) fileOp(ctx context.Context, endpoint, op, fileID string) (string, error) {
	env, err := s.api.Post(ctx, endpoint, domain.FileIDRequest{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("%s file %s: %w", op, fileID, err)
	}
	s.invalidate(ctx, fileID)
	resp, err := rest.Decode[domain.FileIDResponse](env)
	if err != nil {
		return "", fmt.Errorf("%s file %s: %w", op, fileID, err)
	}
	return resp.FileID, nil
}

// Raw downloads the original content of a file.
func (s *FileService) Raw(ctx context.Context, fileID string) (_ []byte, err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.raw", start, err) }()

	data, err := s.api.PostRaw(ctx, epFileRaw, domain.FileIDRequest{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("raw file %s: %w", fileID, err)
	}
	return data, nil
}

// Convert turns an uploaded file into blocks.
func (s *FileService) Convert(ctx context.Context, fileID, model string) (_ *Task[ConvertResult], err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.convert", start, err) }()

	env, err := s.api.Post(ctx, epConvert, domain.ConvertRequest{
		ID:    fileID,
		Type:  domain.ModelTargetFile,
		Model: model,
	})
	if err != nil {
		return nil, fmt.Errorf("convert file %s: %w", fileID, err)
	}
	s.invalidate(ctx, fileID)
	return newTask(ctx, s.api, s.interval, env,
		func(r domain.ConvertResponse) ConvertResult { return ConvertResult(r) },
		s.invalidator(fileID),
	)
}

// Parse runs a parsing model over the blocks of a file.
func (s *FileService) Parse(ctx context.Context, fileID string, opts ParseOptions) (_ *Task[ParseResult], err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.parse", start, err) }()

	model := opts.Model
	if model == "" {
		model = DefaultParseModel
	}
	env, err := s.api.Post(ctx, epFileParse, domain.ParseRequest{
		FileID:             fileID,
		Model:              model,
		TokenMatchers:      opts.TokenMatchers,
		PhraseMatchers:     opts.PhraseMatchers,
		DependencyMatchers: opts.DependencyMatchers,
	})
	if err != nil {
		return nil, fmt.Errorf("parse file %s: %w", fileID, err)
	}
	s.invalidate(ctx, fileID)
	return newTask(ctx, s.api, s.interval, env,
		func(r domain.ParseResponse) ParseResult { return ParseResult{Blocks: fromBlocks(r.Blocks)} },
		s.invalidator(fileID),
	)
}

// Tag runs a tagging model over a file. An empty model selects the server default.
func (s *FileService) Tag(ctx context.Context, fileID, model string) (_ *Task[TagResult], err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.tag", start, err) }()

	env, err := s.api.Post(ctx, epFileTag, domain.FileTagRequest{FileID: fileID, Model: model})
	if err != nil {
		return nil, fmt.Errorf("tag file %s: %w", fileID, err)
	}
	s.invalidate(ctx, fileID)
	return newTask(ctx, s.api, s.interval, env,
		func(r domain.FileTagResponse) TagResult {
			return TagResult{FileID: r.FileID, Blocks: fromBlocks(r.TagResult.Blocks)}
		},
		s.invalidator(fileID),
	)
}

// Query returns the blocks of a file matching q.
func (s *FileService) Query(ctx context.Context, fileID string, q FileQuery) (_ []Block, err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.query", start, err) }()

	return s.query(ctx, fileID, q)
}

// DQuery returns the blocks of a file matching a dquery expression such as
// `paragraph @person:"Ada" #exact:"notice"`.
func (s *FileService) DQuery(ctx context.Context, fileID, query string) (_ []Block, err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.dquery", start, err) }()

	return s.query(ctx, fileID, fromFilter(dquery.Parse(query)))
}

func (s *FileService) query(ctx context.Context, fileID string, q FileQuery) ([]Block, error) {
	resp, err := s.queries.Query(ctx, toQueryRequest(fileID, q))
	if err != nil {
		return nil, fmt.Errorf("query file %s: %w", fileID, err)
	}
	return fromBlocks(resp.Blocks), nil
}

// Index embeds the blocks of a file into an embedding index and waits for the
// insert to finish. The index is created (or reused, when it already exists)
// unless opts.IndexID names one.
func (s *FileService) Index(ctx context.Context, fileID string, opts IndexOptions) (_ *EmbeddingIndex, err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.index", start, err) }()

	model := opts.Model
	if model == "" {
		model = DefaultIndexModel
	}
	blockType := opts.BlockType
	if blockType == "" {
		blockType = DefaultBlockType
	}

	indexes := &IndexService{api: s.api, interval: s.interval, obs: s.obs}
	var idx *EmbeddingIndex
	if opts.IndexID != "" {
		idx = indexes.Get(opts.IndexID)
	} else {
		name := opts.IndexName
		if name == "" {
			name = fileID + "-" + model
		}
		if idx, err = indexes.create(ctx, name, model, true); err != nil {
			return nil, fmt.Errorf("index file %s: %w", fileID, err)
		}
	}

	blocks, err := s.query(ctx, fileID, FileQuery{BlockType: &blockType})
	if err != nil {
		return nil, fmt.Errorf("index file %s: %w", fileID, err)
	}
	if len(blocks) == 0 {
		return idx, nil
	}

	items := make([]IndexItem, len(blocks))
	for i, b := range blocks {
		items[i] = IndexItem{Value: b.Value, ExternalID: b.ID, ExternalType: domain.ExternalTypeBlock}
	}
	task, err := idx.insertMany(ctx, items, opts.Reindex)
	if err != nil {
		return nil, fmt.Errorf("index file %s: %w", fileID, err)
	}
	if _, err := task.Wait(ctx); err != nil {
		return nil, fmt.Errorf("index file %s: %w", fileID, err)
	}
	return idx, nil
}

// AddTags attaches tags to a file.
func (s *FileService) AddTags(ctx context.Context, fileID string, names ...string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.add_tags", start, err) }()

	upsert := true
	refs := make([]domain.TagRef, len(names))
	for i, n := range names {
		refs[i] = domain.TagRef{Name: n, Upsert: &upsert}
	}
	if _, err := s.api.Post(ctx, epTagCreate, domain.TagObjectRequest{
		Tags: refs, ObjectType: domain.ObjectTypeFile, ObjectID: fileID,
	}); err != nil {
		return fmt.Errorf("add tags to %s: %w", fileID, err)
	}
	return nil
}

// RemoveTags detaches tags from a file.
func (s *FileService) RemoveTags(ctx context.Context, fileID string, names ...string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.remove_tags", start, err) }()

	refs := make([]domain.TagRef, len(names))
	for i, n := range names {
		refs[i] = domain.TagRef{Name: n}
	}
	if _, err := s.api.Post(ctx, epTagDelete, domain.TagObjectRequest{
		Tags: refs, ObjectType: domain.ObjectTypeFile, ObjectID: fileID,
	}); err != nil {
		return fmt.Errorf("remove tags from %s: %w", fileID, err)
	}
	return nil
}

// ListTags returns the tag names attached to a file.
func (s *FileService) ListTags(ctx context.Context, fileID string) (_ []string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("file.list_tags", start, err) }()

	env, err := s.api.Post(ctx, epTagList, domain.ListTagsRequest{
		ObjectType: domain.ObjectTypeFile, ObjectID: fileID,
	})
	if err != nil {
		return nil, fmt.Errorf("list tags of %s: %w", fileID, err)
	}
	resp, err := rest.Decode[domain.ListTagsResponse](env)
	if err != nil {
		return nil, fmt.Errorf("list tags of %s: %w", fileID, err)
	}
	names := make([]string, len(resp.Tags))
	for i, t := range resp.Tags {
		names[i] = t.Name
	}
	return names, nil
}

// invalidate drops cached query results of fileID. Failures are logged only.
func (s *FileService) invalidate(ctx context.Context, fileID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fileID); err != nil {
		if l := s.obs.zapLogger(); l != nil {
			l.Warn("Failed to invalidate query cache", zap.String("file_id", fileID), zap.Error(err))
		}
	}
}

func (s *FileService) invalidator(fileID string) func(context.Context) {
	return func(ctx context.Context) { s.invalidate(ctx, fileID) }
}
