package nludb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nludb/nludb-go/internal/domain"
)

func strPtr(s string) *string { return &s }

func seedContract(t *testing.T, c *Client) string {
	t.Helper()
	f, err := c.Files().Upload(context.Background(), UploadRequest{
		Name:    "contract.txt",
		Content: strings.NewReader("Notice of termination\nAda signs the contract\n"),
		Convert: true,
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return f.ID
}

func TestFileService_UploadAndQuery(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()
	id := seedContract(t, c)

	blocks, err := c.Files().Query(ctx, id, FileQuery{Text: strPtr("Ada")})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Value != "Ada signs the contract" {
		t.Errorf("unexpected blocks: %+v", blocks)
	}
	if fake.Calls("file/create") != 1 {
		t.Errorf("expected one file/create call, got %d", fake.Calls("file/create"))
	}
}

func TestFileService_Upload_Invalid(t *testing.T) {
	c, fake := newFakeClient(t)

	_, err := c.Files().Upload(context.Background(), UploadRequest{Name: "empty.txt"})
	if !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload, got %v", err)
	}
	_, err = c.Files().Upload(context.Background(), UploadRequest{Content: strings.NewReader("x")})
	if !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload, got %v", err)
	}
	if fake.Calls("file/create") != 0 {
		t.Error("invalid uploads must not reach the API")
	}
}

func TestFileService_UploadAll(t *testing.T) {
	c, _ := newFakeClient(t)

	reqs := make([]UploadRequest, 6)
	for i := range reqs {
		reqs[i] = UploadRequest{
			Name:    fmt.Sprintf("doc-%d.txt", i),
			Content: strings.NewReader(fmt.Sprintf("line %d\n", i)),
		}
	}
	reqs[3].Content = nil

	results := c.Files().UploadAll(context.Background(), reqs, 2)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	for i, r := range results {
		if r.Name != reqs[i].Name {
			t.Errorf("result %d out of order: %s", i, r.Name)
		}
		if i == 3 {
			if !errors.Is(r.Err, ErrInvalidUpload) {
				t.Errorf("expected ErrInvalidUpload for item 3, got %v", r.Err)
			}
			continue
		}
		if r.Err != nil || r.File.ID == "" {
			t.Errorf("item %d: file=%+v err=%v", i, r.File, r.Err)
		}
	}

	files, err := c.Files().List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 5 {
		t.Errorf("expected 5 stored files, got %d", len(files))
	}
}

func TestFileService_Scrape(t *testing.T) {
	c, _ := newFakeClient(t)
	ctx := context.Background()

	f, err := c.Files().Scrape(ctx, "https://example.com/terms", ScrapeOptions{CorpusID: "legal"})
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if f.Name != "https://example.com/terms" || f.CorpusID != "legal" {
		t.Errorf("unexpected file: %+v", f)
	}

	if _, err := c.Files().Scrape(ctx, "", ScrapeOptions{}); !errors.Is(err, ErrInvalidUpload) {
		t.Errorf("expected ErrInvalidUpload, got %v", err)
	}

	listed, err := c.Files().List(ctx, "legal")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != f.ID {
		t.Errorf("unexpected list: %+v", listed)
	}
}

func TestFileService_DeleteClearRaw(t *testing.T) {
	c, _ := newFakeClient(t)
	ctx := context.Background()
	id := seedContract(t, c)

	raw, err := c.Files().Raw(ctx, id)
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if !strings.HasPrefix(string(raw), "Notice of termination") {
		t.Errorf("unexpected raw content %q", raw)
	}

	cleared, err := c.Files().Clear(ctx, id)
	if err != nil || cleared != id {
		t.Fatalf("clear: %q %v", cleared, err)
	}
	blocks, err := c.Files().Query(ctx, id, FileQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected no blocks after clear, got %d", len(blocks))
	}

	deleted, err := c.Files().Delete(ctx, id)
	if err != nil || deleted != id {
		t.Fatalf("delete: %q %v", deleted, err)
	}
	if _, err := c.Files().Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestFileService_DQuerySendsFoldedFilter(t *testing.T) {
	c, fake := newFakeClient(t)
	id := fake.SeedFile("people.txt", []domain.Block{
		{ID: "b1", Type: "paragraph", Value: "Ada met Charles", Spans: []domain.Span{{Label: "person", Text: "Ada"}}},
		{ID: "b2", Type: "paragraph", Value: "Charles wrote back", Spans: []domain.Span{{Label: "person", Text: "Charles"}}},
		{ID: "b3", Type: "heading", Value: "Ada", Spans: []domain.Span{{Label: "person", Text: "Ada"}}},
	})

	blocks, err := c.Files().DQuery(context.Background(), id, `paragraph @person:"Ada" #met`)
	if err != nil {
		t.Fatalf("dquery: %v", err)
	}
	if len(blocks) != 1 || blocks[0].ID != "b1" {
		t.Fatalf("unexpected blocks: %+v", blocks)
	}
	if len(blocks[0].Spans) != 1 || blocks[0].Spans[0].Label != "person" {
		t.Errorf("spans not converted: %+v", blocks[0].Spans)
	}

	q := fake.LastQuery()
	if q.BlockType == nil || *q.BlockType != "paragraph" {
		t.Errorf("blockType = %v", q.BlockType)
	}
	if q.Text == nil || *q.Text != "met" || q.TextMode == nil || *q.TextMode != "contains" {
		t.Errorf("text = %v mode = %v", q.Text, q.TextMode)
	}
	if len(q.HasSpans) != 1 || *q.HasSpans[0].Label != "person" || *q.HasSpans[0].Text != "Ada" {
		t.Errorf("hasSpans = %+v", q.HasSpans)
	}
}

func TestFileService_DQueryEmptyQuery(t *testing.T) {
	c, fake := newFakeClient(t)
	id := fake.SeedFile("a.txt", []domain.Block{{ID: "b1", Type: "paragraph", Value: "x"}})

	blocks, err := c.Files().DQuery(context.Background(), id, "   ")
	if err != nil {
		t.Fatalf("dquery: %v", err)
	}
	if len(blocks) != 1 {
		t.Errorf("empty query should match every block, got %d", len(blocks))
	}
	q := fake.LastQuery()
	if q.BlockType != nil || q.Text != nil || q.HasSpans != nil {
		t.Errorf("expected an empty filter, got %+v", q)
	}
}

func TestFileService_ConvertParseTag(t *testing.T) {
	c, fake := newFakeClient(t)
	fake.SetPendingPolls(2)
	ctx := context.Background()

	f, err := c.Files().Upload(ctx, UploadRequest{Name: "a.txt", Content: strings.NewReader("one\ntwo\n")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	conv, err := c.Files().Convert(ctx, f.ID, "")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if conv.Done() {
		t.Fatal("convert task should start running")
	}
	res, err := conv.Wait(ctx)
	if err != nil {
		t.Fatalf("convert wait: %v", err)
	}
	if res.ID != f.ID || res.Type != domain.ModelTargetFile {
		t.Errorf("unexpected convert result: %+v", res)
	}

	parse, err := c.Files().Parse(ctx, f.ID, ParseOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	parsed, err := parse.Wait(ctx)
	if err != nil {
		t.Fatalf("parse wait: %v", err)
	}
	if len(parsed.Blocks) != 2 {
		t.Errorf("expected 2 parsed blocks, got %d", len(parsed.Blocks))
	}

	tag, err := c.Files().Tag(ctx, f.ID, "")
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	tagged, err := tag.Wait(ctx)
	if err != nil {
		t.Fatalf("tag wait: %v", err)
	}
	if tagged.FileID != f.ID || len(tagged.Blocks) != 2 {
		t.Errorf("unexpected tag result: %+v", tagged)
	}
	if got, ok := tag.Result(); !ok || got.FileID != f.ID {
		t.Errorf("Result() = %+v, %v", got, ok)
	}
}

func TestFileService_TaskFailure(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()
	id := seedContract(t, c)
	fake.FailTasks("model crashed")

	task, err := c.Files().Parse(ctx, id, ParseOptions{Model: "custom"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = task.Wait(ctx)
	var te *TaskError
	if !errors.As(err, &te) {
		t.Fatalf("expected TaskError, got %v", err)
	}
	if te.TaskID != task.ID || te.Message != "model crashed" {
		t.Errorf("unexpected task error: %+v", te)
	}
	if !errors.Is(err, ErrTaskFailed) {
		t.Error("expected ErrTaskFailed")
	}
}

func TestFileService_Tags(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()
	id := seedContract(t, c)

	if err := c.Files().AddTags(ctx, id, "legal", "draft"); err != nil {
		t.Fatalf("add tags: %v", err)
	}
	if err := c.Files().RemoveTags(ctx, id, "draft"); err != nil {
		t.Fatalf("remove tags: %v", err)
	}
	tags, err := c.Files().ListTags(ctx, id)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 1 || tags[0] != "legal" {
		t.Errorf("unexpected tags: %v", tags)
	}
	if got := fake.Tags(id); len(got) != 1 {
		t.Errorf("server tags: %v", got)
	}
}

func TestFileService_Index(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()
	id := seedContract(t, c)

	idx, err := c.Files().Index(ctx, id, IndexOptions{BlockType: "paragraph"})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if idx.Name != id+"-"+DefaultIndexModel || idx.Model != DefaultIndexModel {
		t.Errorf("unexpected index: %+v", idx)
	}

	items := fake.IndexItems(idx.ID)
	if len(items) != 2 {
		t.Fatalf("expected 2 indexed items, got %d", len(items))
	}
	for _, it := range items {
		if it.ExternalType != domain.ExternalTypeBlock {
			t.Errorf("externalType = %q", it.ExternalType)
		}
	}

	again, err := c.Files().Index(ctx, id, IndexOptions{BlockType: "paragraph"})
	if err != nil {
		t.Fatalf("second index: %v", err)
	}
	if again.ID != idx.ID {
		t.Errorf("expected index reuse, got %s and %s", idx.ID, again.ID)
	}

	hits, err := idx.Search(ctx, "termination notice", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Value != "Notice of termination" {
		t.Errorf("unexpected hits: %+v", hits)
	}
}

func TestFileService_Index_NoMatchingBlocks(t *testing.T) {
	c, fake := newFakeClient(t)
	id := seedContract(t, c)

	idx, err := c.Files().Index(context.Background(), id, IndexOptions{})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if fake.Calls("embedding-index/insert") != 0 {
		t.Error("no insert expected when no block has the requested type")
	}
	if len(fake.IndexItems(idx.ID)) != 0 {
		t.Error("index should be empty")
	}
}

func TestFileService_APIErrorsSurface(t *testing.T) {
	c, fake := newFakeClient(t)
	fake.FailEndpoint("file/list", http.StatusTooManyRequests, "rate_limited", "slow down")

	_, err := c.Files().List(context.Background(), "")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "slow down" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFileService_QueryCache(t *testing.T) {
	c, fake := newFakeClient(t)
	c.withCache(newMemStore(), time.Minute, nil)
	ctx := context.Background()
	id := seedContract(t, c)

	for range 3 {
		if _, err := c.Files().DQuery(ctx, id, "paragraph"); err != nil {
			t.Fatalf("dquery: %v", err)
		}
	}
	if got := fake.Calls("file/query"); got != 1 {
		t.Fatalf("expected 1 file/query call with cache, got %d", got)
	}

	if _, err := c.Files().Clear(ctx, id); err != nil {
		t.Fatalf("clear: %v", err)
	}
	blocks, err := c.Files().DQuery(ctx, id, "paragraph")
	if err != nil {
		t.Fatalf("dquery: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("stale cached blocks after clear: %+v", blocks)
	}
	if got := fake.Calls("file/query"); got != 2 {
		t.Errorf("expected cache miss after clear, got %d calls", got)
	}
}

func TestFileService_MockedAPIError(t *testing.T) {
	boom := errors.New("boom")
	api := &mockAPI{
		postFn: func(_ context.Context, endpoint string, _ any) (*domain.Envelope, error) {
			if endpoint != epFileList {
				t.Errorf("endpoint = %q", endpoint)
			}
			return nil, boom
		},
	}
	c := wireClient(api, &clientConfig{}, nil)

	_, err := c.Files().List(context.Background(), "")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestFileService_MockedMalformedData(t *testing.T) {
	api := &mockAPI{
		postFn: func(_ context.Context, _ string, _ any) (*domain.Envelope, error) {
			return &domain.Envelope{Data: []byte(`[1,2,3]`)}, nil
		},
	}
	c := wireClient(api, &clientConfig{}, nil)

	_, err := c.Files().Query(context.Background(), "f", FileQuery{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
