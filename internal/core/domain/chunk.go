package domain

// DocumentChunk is one retrievable fragment of a source document. Chunks are
// produced by the corpus loader and are immutable once created; the hybrid
// index owns them for the lifetime of one index generation.
type DocumentChunk struct {
	Content   string `json:"content"`
	SourceID  string `json:"source_id"`
	Page      int    `json:"page,omitempty"`
	Title     string `json:"title,omitempty"`
	OriginURL string `json:"origin_url,omitempty"`
}

// RetrievedChunk is a DocumentChunk with its fused relevance score.
type RetrievedChunk struct {
	DocumentChunk
	Score float64 `json:"score"`
}

// SourceRef points at an acquired source document.
type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

type Answer struct {
	Text    string      `json:"text"`
	Sources []SourceRef `json:"sources,omitempty"`
}
