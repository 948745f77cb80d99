package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"ragdesk/internal/model"
	"ragdesk/internal/vectorstore"
)

const (
	minTopK       = 1
	maxTopK       = 20
	maxCandidates = 50
)

var (
	ErrInvalidConfig        = errors.New("invalid retrieval configuration")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
)

// requiredMetadata are the fields a raw index result must carry to be usable
// as a citation. Results missing any of them are dropped, not fatal.
var requiredMetadata = []string{"document_id", "content", "filename", "chunk_index"}

// Retriever turns a query embedding into a ranked, threshold-filtered list
// of matches. It over-fetches from the index to compensate for matches lost
// to the threshold, then re-sorts defensively since the index ordering is
// not contractual.
type Retriever struct {
	store vectorstore.VectorStore
	log   *zap.Logger
}

func NewRetriever(store vectorstore.VectorStore, log *zap.Logger) *Retriever {
	return &Retriever{store: store, log: log}
}

// Retrieve returns at most topK matches with score >= threshold, in strictly
// non-increasing score order. Ties keep the index's relative order so that
// evaluation runs stay reproducible. Zero surviving matches is a valid
// result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, queryEmbedding []float32, topK int, threshold float64) ([]model.RetrievedMatch, error) {
	if topK < minTopK || topK > maxTopK {
		return nil, fmt.Errorf("%w: top_k %d out of range [%d,%d]", ErrInvalidConfig, topK, minTopK, maxTopK)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: similarity threshold %g out of range [0,1]", ErrInvalidConfig, threshold)
	}
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", ErrInvalidConfig)
	}

	candidatesK := topK * 2
	if candidatesK > maxCandidates {
		candidatesK = maxCandidates
	}

	results, err := r.store.Query(ctx, queryEmbedding, candidatesK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	matches := make([]model.RetrievedMatch, 0, len(results))
	for _, res := range results {
		chunk, ok := r.toChunk(res)
		if !ok {
			continue
		}
		if res.Score < threshold {
			continue
		}
		matches = append(matches, model.RetrievedMatch{Chunk: chunk, Score: res.Score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}

	r.log.Debug("retrieval complete",
		zap.Int("candidates", len(results)),
		zap.Int("matches", len(matches)),
		zap.Float64("threshold", threshold),
	)
	return matches, nil
}

func (r *Retriever) toChunk(res vectorstore.QueryResult) (model.DocumentChunk, bool) {
	for _, field := range requiredMetadata {
		if res.Metadata[field] == "" {
			r.log.Warn("dropping match with incomplete metadata",
				zap.String("id", res.ID),
				zap.String("missing_field", field),
			)
			return model.DocumentChunk{}, false
		}
	}
	return model.DocumentChunk{
		ID:         res.ID,
		DocumentID: res.Metadata["document_id"],
		Content:    res.Metadata["content"],
		Metadata: map[string]string{
			"filename":    res.Metadata["filename"],
			"chunk_index": res.Metadata["chunk_index"],
		},
	}, true
}
