package domain

// ExternalTypeBlock marks index items that were created from file blocks.
const ExternalTypeBlock = "block"

// EmbeddingIndex is a server-side embedding index.
type EmbeddingIndex struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Model string `json:"model,omitempty"`
}

// CreateIndexRequest creates (or upserts) an index.
type CreateIndexRequest struct {
	Name   string `json:"name"`
	Model  string `json:"model"`
	Upsert bool   `json:"upsert,omitempty"`
}

// IndexItem is a value to embed.
type IndexItem struct {
	Value        string         `json:"value"`
	ExternalID   string         `json:"externalId,omitempty"`
	ExternalType string         `json:"externalType,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// IndexInsertRequest inserts items into an index.
type IndexInsertRequest struct {
	IndexID string      `json:"indexId"`
	Items   []IndexItem `json:"items"`
	Reindex bool        `json:"reindex,omitempty"`
}

// IndexInsertResponse reports inserted item ids.
type IndexInsertResponse struct {
	ItemIDs []string `json:"itemIds"`
}

// IndexSearchRequest searches an index.
type IndexSearchRequest struct {
	IndexID string `json:"indexId"`
	Query   string `json:"query"`
	K       int    `json:"k,omitempty"`
}

// IndexHit is a single search result.
type IndexHit struct {
	Value        string  `json:"value"`
	Score        float64 `json:"score"`
	ExternalID   string  `json:"externalId,omitempty"`
	ExternalType string  `json:"externalType,omitempty"`
}

// IndexSearchResponse carries ranked hits.
type IndexSearchResponse struct {
	Hits []IndexHit `json:"hits"`
}

// IndexIDRequest addresses a single index.
type IndexIDRequest struct {
	IndexID string `json:"indexId"`
}
