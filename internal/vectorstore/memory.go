package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragdesk/internal/model"
)

type memoryEntry struct {
	id       string
	vector   []float32
	metadata map[string]string
}

// MemoryStore is a brute-force cosine-similarity store. Good enough for a
// single-process corpus of a few thousand chunks; swap in qdrant beyond that.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Upsert(ctx context.Context, chunks []model.DocumentChunk) error {
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", chunks[i].ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range chunks {
		metadata := make(map[string]string, len(chunks[i].Metadata))
		for k, v := range chunks[i].Metadata {
			metadata[k] = v
		}
		s.entries = append(s.entries, memoryEntry{
			id:       chunks[i].ID,
			vector:   chunks[i].Embedding,
			metadata: metadata,
		})
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, topK int) ([]QueryResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]QueryResult, 0, len(s.entries))
	for _, e := range s.entries {
		results = append(results, QueryResult{
			ID:       e.id,
			Score:    cosine(vector, e.vector),
			Metadata: e.metadata,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
