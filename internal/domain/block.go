package domain

// Block is a contiguous unit of a parsed file (paragraph, heading, ...).
type Block struct {
	ID    string `json:"blockId,omitempty"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
	Spans []Span `json:"spans,omitempty"`
}

// Span is an annotated region of a block.
type Span struct {
	ID       string `json:"spanId,omitempty"`
	Label    string `json:"label,omitempty"`
	Text     string `json:"text,omitempty"`
	StartIdx int    `json:"startIdx"`
	EndIdx   int    `json:"endIdx"`
}

// TokenMatcher matches token patterns during parsing.
type TokenMatcher struct {
	Label    string           `json:"label"`
	Patterns []map[string]any `json:"patterns"`
}

// PhraseMatcher matches literal phrases during parsing.
type PhraseMatcher struct {
	Label   string   `json:"label"`
	Phrases []string `json:"phrases"`
	Attr    string   `json:"attr,omitempty"`
}

// DependencyMatcher matches dependency-tree patterns during parsing.
type DependencyMatcher struct {
	Label    string           `json:"label"`
	Patterns []map[string]any `json:"patterns"`
}

// ParseRequest runs a parsing model over a file.
type ParseRequest struct {
	FileID             string              `json:"fileId"`
	Model              string              `json:"model,omitempty"`
	TokenMatchers      []TokenMatcher      `json:"tokenMatchers,omitempty"`
	PhraseMatchers     []PhraseMatcher     `json:"phraseMatchers,omitempty"`
	DependencyMatchers []DependencyMatcher `json:"dependencyMatchers,omitempty"`
}

// ParseResponse carries the parsed blocks.
type ParseResponse struct {
	Blocks []Block `json:"blocks"`
}

// ModelTargetFile is the target type for file-level model runs.
const ModelTargetFile = "file"

// ConvertRequest converts an uploaded file into blocks.
type ConvertRequest struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Model string `json:"model,omitempty"`
}

// ConvertResponse echoes the converted object.
type ConvertResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}
