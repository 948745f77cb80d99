package model

// DocumentChunk is the unit of retrieval: a bounded word window cut from an
// ingested document, plus the metadata needed to cite it. Instances are
// created once at ingestion time and never mutated afterwards; the vector
// store owns the upserted copies, queries return transient ones.
type DocumentChunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	Embedding  []float32         `json:"embedding,omitempty"`
}

// RetrievedMatch pairs a chunk with its similarity score for one query.
type RetrievedMatch struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
}

// Source is a truncated citation returned to the caller alongside a response.
type Source struct {
	DocumentName string  `json:"document_name"`
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
}
