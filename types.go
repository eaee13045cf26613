package nludb

import (
	"io"

	"github.com/nludb/nludb-go/internal/domain"
	"github.com/nludb/nludb-go/pkg/dquery"
)

// Default models and values used when an option is left empty.
const (
	DefaultParseModel = "en_default"
	DefaultIndexModel = "qa"
	DefaultBlockType  = "sentence"
	DefaultSearchK    = 1
)

// TaskState is the lifecycle state of a server-side task.
type TaskState = domain.TaskState

// Task states.
const (
	TaskWaiting   = domain.TaskWaiting
	TaskRunning   = domain.TaskRunning
	TaskSucceeded = domain.TaskSucceeded
	TaskFailed    = domain.TaskFailed
)

// File is a stored document.
type File struct {
	ID       string
	Name     string
	Handle   string
	Format   string
	CorpusID string
	SpaceID  string
}

// Block is a contiguous unit of a converted file.
type Block struct {
	ID    string
	Type  string
	Value string
	Spans []Span
}

// Span is an annotated region of a block.
type Span struct {
	ID       string
	Label    string
	Text     string
	StartIdx int
	EndIdx   int
}

// SpanQuery requires a block to contain a span with the given label and text.
// Nil fields match anything.
type SpanQuery struct {
	Text     *string
	Label    *string
	SpanType *string
}

// FileQuery selects blocks of a file. Nil fields are not sent.
type FileQuery struct {
	BlockType *string
	Text      *string
	TextMode  *string
	HasSpans  []SpanQuery
	IsQuote   *bool
}

// UploadRequest describes a file upload.
type UploadRequest struct {
	Name     string
	Content  io.Reader
	Format   string
	CorpusID string
	Convert  bool
}

// UploadResult is the outcome of one item of UploadAll.
type UploadResult struct {
	Name string
	File File
	Err  error
}

// ScrapeOptions configures a URL import.
type ScrapeOptions struct {
	Name     string // defaults to the URL
	CorpusID string
	Format   string
	Convert  bool
}

// TokenMatcher, PhraseMatcher and DependencyMatcher add rule-based spans during parsing.
type (
	TokenMatcher      = domain.TokenMatcher
	PhraseMatcher     = domain.PhraseMatcher
	DependencyMatcher = domain.DependencyMatcher
)

// ParseOptions configures a parse run.
type ParseOptions struct {
	Model              string // default DefaultParseModel
	TokenMatchers      []TokenMatcher
	PhraseMatchers     []PhraseMatcher
	DependencyMatchers []DependencyMatcher
}

// IndexOptions configures Files().Index.
type IndexOptions struct {
	Model     string // default DefaultIndexModel
	IndexName string // default "<fileId>-<model>"
	IndexID   string // reuse an existing index; skips creation
	BlockType string // default DefaultBlockType
	Reindex   bool
}

// IndexItem is a value to embed into an index.
type IndexItem struct {
	Value        string
	ExternalID   string
	ExternalType string
	Metadata     map[string]any
}

// IndexHit is a single index search result.
type IndexHit struct {
	Value        string
	Score        float64
	ExternalID   string
	ExternalType string
}

// ConvertResult is the outcome of a conversion task.
type ConvertResult struct {
	ID   string
	Type string
}

// ParseResult is the outcome of a parse task.
type ParseResult struct {
	Blocks []Block
}

// TagResult is the outcome of a tagging task.
type TagResult struct {
	FileID string
	Blocks []Block
}

// IndexInsertResult is the outcome of an index insert task.
type IndexInsertResult struct {
	ItemIDs []string
}

// Token is a single clause of a dquery expression.
type Token = dquery.Token

// Tokenize splits a dquery expression into tokens.
func Tokenize(query string) []Token {
	return dquery.Tokenize(query)
}

// ParseQuery turns a dquery expression into a FileQuery.
func ParseQuery(query string) FileQuery {
	return fromFilter(dquery.Parse(query))
}

// --- converters ---

func fromFilter(f dquery.Filter) FileQuery {
	q := FileQuery{
		BlockType: f.BlockType,
		Text:      f.Text,
		TextMode:  f.TextMode,
	}
	for _, sq := range f.HasSpans {
		q.HasSpans = append(q.HasSpans, SpanQuery{Label: sq.Label, Text: sq.Text})
	}
	return q
}

func toQueryRequest(fileID string, q FileQuery) *domain.FileQueryRequest {
	req := &domain.FileQueryRequest{
		FileID:    fileID,
		BlockType: q.BlockType,
		Text:      q.Text,
		TextMode:  q.TextMode,
		IsQuote:   q.IsQuote,
	}
	for _, sq := range q.HasSpans {
		req.HasSpans = append(req.HasSpans, domain.SpanQuery(sq))
	}
	return req
}

func fromFile(f domain.File) File {
	return File(f)
}

func fromFiles(files []domain.File) []File {
	out := make([]File, len(files))
	for i, f := range files {
		out[i] = fromFile(f)
	}
	return out
}

func fromBlocks(blocks []domain.Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = Block{ID: b.ID, Type: b.Type, Value: b.Value}
		if len(b.Spans) > 0 {
			out[i].Spans = make([]Span, len(b.Spans))
			for j, s := range b.Spans {
				out[i].Spans[j] = Span(s)
			}
		}
	}
	return out
}

func toIndexItems(items []IndexItem) []domain.IndexItem {
	out := make([]domain.IndexItem, len(items))
	for i, it := range items {
		out[i] = domain.IndexItem(it)
	}
	return out
}

func fromIndexHits(hits []domain.IndexHit) []IndexHit {
	out := make([]IndexHit, len(hits))
	for i, h := range hits {
		out[i] = IndexHit(h)
	}
	return out
}
