package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ragdesk/internal/model"
	"ragdesk/internal/vectorstore"
)

type fakeStore struct {
	results    []vectorstore.QueryResult
	queryErr   error
	lastTopK   int
	upserted   []model.DocumentChunk
	upsertErr  error
	clearCalls int
}

func (f *fakeStore) Upsert(_ context.Context, chunks []model.DocumentChunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *fakeStore) Query(_ context.Context, _ []float32, topK int) ([]vectorstore.QueryResult, error) {
	f.lastTopK = topK
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.results, nil
}

func (f *fakeStore) Clear(_ context.Context) error {
	f.clearCalls++
	return nil
}

func queryResult(id string, score float64) vectorstore.QueryResult {
	return vectorstore.QueryResult{
		ID:    id,
		Score: score,
		Metadata: map[string]string{
			"document_id": "doc-1",
			"content":     "content of " + id,
			"filename":    "paper.pdf",
			"chunk_index": "0",
		},
	}
}

func TestRetrieveSortsFiltersAndTruncates(t *testing.T) {
	store := &fakeStore{results: []vectorstore.QueryResult{
		queryResult("c", 0.61),
		queryResult("a", 0.93),
		queryResult("low", 0.40),
		queryResult("b", 0.78),
	}}
	r := NewRetriever(store, zap.NewNop())

	matches, err := r.Retrieve(context.Background(), []float32{1, 0}, 2, 0.5)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Chunk.ID)
	assert.Equal(t, "b", matches[1].Chunk.ID)
	assert.Equal(t, 0.93, matches[0].Score)
}

func TestRetrieveOverFetchesCandidates(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(store, zap.NewNop())

	_, err := r.Retrieve(context.Background(), []float32{1}, 5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 10, store.lastTopK)

	_, err = r.Retrieve(context.Background(), []float32{1}, 20, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 40, store.lastTopK)
}

func TestRetrieveDropsIncompleteMetadata(t *testing.T) {
	broken := queryResult("broken", 0.99)
	delete(broken.Metadata, "filename")

	store := &fakeStore{results: []vectorstore.QueryResult{
		broken,
		queryResult("ok", 0.80),
	}}
	r := NewRetriever(store, zap.NewNop())

	matches, err := r.Retrieve(context.Background(), []float32{1}, 5, 0.5)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "ok", matches[0].Chunk.ID)
}

func TestRetrieveNoSurvivorsIsNotAnError(t *testing.T) {
	store := &fakeStore{results: []vectorstore.QueryResult{
		queryResult("a", 0.2),
		queryResult("b", 0.1),
	}}
	r := NewRetriever(store, zap.NewNop())

	matches, err := r.Retrieve(context.Background(), []float32{1}, 5, 0.9)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetrieveStoreFailure(t *testing.T) {
	store := &fakeStore{queryErr: fmt.Errorf("index down")}
	r := NewRetriever(store, zap.NewNop())

	_, err := r.Retrieve(context.Background(), []float32{1}, 5, 0.5)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

func TestRetrieveValidatesInput(t *testing.T) {
	r := NewRetriever(&fakeStore{}, zap.NewNop())
	ctx := context.Background()

	_, err := r.Retrieve(ctx, []float32{1}, 0, 0.5)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = r.Retrieve(ctx, []float32{1}, 21, 0.5)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = r.Retrieve(ctx, []float32{1}, 5, 1.5)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = r.Retrieve(ctx, []float32{1}, 5, -0.1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = r.Retrieve(ctx, nil, 5, 0.5)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.False(t, errors.Is(err, ErrRetrievalUnavailable))
}
