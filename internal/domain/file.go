package domain

// UploadType distinguishes file content sources.
type UploadType string

// Upload types.
const (
	UploadTypeFile UploadType = "file"
	UploadTypeURL  UploadType = "url"
)

// File is a stored document.
type File struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Handle   string `json:"handle,omitempty"`
	Format   string `json:"format,omitempty"`
	CorpusID string `json:"corpusId,omitempty"`
	SpaceID  string `json:"spaceId,omitempty"`
}

// FileCreateRequest creates a file from an upload or a URL.
type FileCreateRequest struct {
	Type       UploadType `json:"type"`
	CorpusID   string     `json:"corpusId,omitempty"`
	Name       string     `json:"name,omitempty"`
	URL        string     `json:"url,omitempty"`
	FileFormat string     `json:"fileFormat,omitempty"`
	Convert    bool       `json:"convert,omitempty"`
}

// FileIDRequest addresses a single file (delete, clear, raw).
type FileIDRequest struct {
	FileID string `json:"fileId"`
}

// FileIDResponse echoes the affected file.
type FileIDResponse struct {
	FileID string `json:"fileId"`
}

// FileTagRequest runs a tagging model over a file.
type FileTagRequest struct {
	FileID string `json:"fileId"`
	Model  string `json:"model,omitempty"`
}

// FileTagResponse carries the tagging result.
type FileTagResponse struct {
	FileID    string        `json:"fileId"`
	TagResult ParseResponse `json:"tagResult"`
}

// SpanQuery requires a block to contain a matching span.
type SpanQuery struct {
	Text     *string `json:"text,omitempty"`
	Label    *string `json:"label,omitempty"`
	SpanType *string `json:"spanType,omitempty"`
}

// FileQueryRequest selects blocks of a file.
type FileQueryRequest struct {
	FileID    string      `json:"fileId"`
	BlockType *string     `json:"blockType,omitempty"`
	HasSpans  []SpanQuery `json:"hasSpans,omitempty"`
	Text      *string     `json:"text,omitempty"`
	TextMode  *string     `json:"textMode,omitempty"`
	IsQuote   *bool       `json:"isQuote,omitempty"`
}

// FileQueryResponse carries the matched blocks.
type FileQueryResponse struct {
	FileID string  `json:"fileId"`
	Blocks []Block `json:"blocks"`
}

// ListFilesRequest lists files, optionally within a corpus.
type ListFilesRequest struct {
	CorpusID string `json:"corpusId,omitempty"`
}

// ListFilesResponse carries the file list.
type ListFilesResponse struct {
	Files []File `json:"files"`
}

// FilePart is the binary part of a multipart upload.
type FilePart struct {
	Name    string
	Content []byte
}
