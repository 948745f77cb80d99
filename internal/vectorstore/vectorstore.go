package vectorstore

import (
	"context"

	"ragdesk/internal/model"
)

// QueryResult is a raw similarity match as reported by the backing index.
// Metadata carries whatever was stored at upsert time; the retrieval layer
// decides which fields are required.
type QueryResult struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// VectorStore is the nearest-neighbor search backend. Implementations return
// results ordered by decreasing score, though callers should not rely on it.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []model.DocumentChunk) error
	Query(ctx context.Context, vector []float32, topK int) ([]QueryResult, error)
	Clear(ctx context.Context) error
}
