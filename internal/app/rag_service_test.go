package app

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ragdesk/internal/model"
	"ragdesk/internal/vectorstore"
)

type fakeEncoder struct {
	err error
}

func (f *fakeEncoder) Encode(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEncoder) EncodeBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeGenerator struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakePublisher struct {
	published []model.ChatTurn
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, turn model.ChatTurn) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, turn)
	return nil
}

func newTestService(store *fakeStore, gen *fakeGenerator, pub TurnPublisher) *RAGService {
	return NewRAGService(
		&fakeEncoder{},
		NewRetriever(store, zap.NewNop()),
		gen,
		pub,
		nil,
		RAGConfig{TopK: 5, SimilarityThreshold: 0.5, ContextCharBudget: 2500, MaxSessionTurns: 50},
		zap.NewNop(),
	)
}

func TestProcessQueryAnswersWithSources(t *testing.T) {
	store := &fakeStore{results: []vectorstore.QueryResult{
		queryResult("chunk-1", 0.9),
	}}
	gen := &fakeGenerator{response: "Grounded answer."}
	svc := newTestService(store, gen, nil)

	result, err := svc.ProcessQuery(context.Background(), QueryInput{
		Message:             "what does the document say?",
		SimilarityThreshold: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, "Grounded answer.", result.Response)
	assert.NotEmpty(t, result.SessionID)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "paper.pdf", result.Sources[0].DocumentName)
	assert.Equal(t, 0.9, result.Sources[0].Score)
	assert.Equal(t, 1, gen.calls)
}

func TestProcessQueryFallbackSkipsGenerator(t *testing.T) {
	store := &fakeStore{results: []vectorstore.QueryResult{
		queryResult("weak", 0.2),
	}}
	gen := &fakeGenerator{response: "should never be used"}
	svc := newTestService(store, gen, nil)

	result, err := svc.ProcessQuery(context.Background(), QueryInput{
		Message:             "anything in here?",
		SimilarityThreshold: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, FallbackResponse, result.Response)
	assert.Empty(t, result.Sources)
	assert.Zero(t, gen.calls, "generator must not run on empty context")
}

func TestProcessQueryRejectsBlankMessage(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeGenerator{}, nil)

	_, err := svc.ProcessQuery(context.Background(), QueryInput{Message: "   \n\t "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProcessQueryGeneratorFailure(t *testing.T) {
	store := &fakeStore{results: []vectorstore.QueryResult{
		queryResult("chunk-1", 0.9),
	}}
	gen := &fakeGenerator{err: fmt.Errorf("model overloaded")}
	svc := newTestService(store, gen, nil)

	_, err := svc.ProcessQuery(context.Background(), QueryInput{
		Message:             "hello",
		SimilarityThreshold: 0.5,
	})
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
}

func TestProcessQueryRecordsSessionTurns(t *testing.T) {
	store := &fakeStore{results: []vectorstore.QueryResult{
		queryResult("chunk-1", 0.9),
	}}
	gen := &fakeGenerator{response: "answer one"}
	svc := newTestService(store, gen, nil)

	first, err := svc.ProcessQuery(context.Background(), QueryInput{
		Message:             "first question",
		SimilarityThreshold: 0.5,
	})
	require.NoError(t, err)

	gen.response = "answer two"
	second, err := svc.ProcessQuery(context.Background(), QueryInput{
		Message:             "second question",
		SessionID:           first.SessionID,
		SimilarityThreshold: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	turns := svc.SessionTurns(first.SessionID)
	require.Len(t, turns, 4)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "first question", turns[0].Content)
	assert.Equal(t, model.RoleAssistant, turns[1].Role)
	assert.Equal(t, "answer two", turns[3].Content)
}

func TestProcessQueryPublishesTurns(t *testing.T) {
	store := &fakeStore{results: []vectorstore.QueryResult{
		queryResult("chunk-1", 0.9),
	}}
	pub := &fakePublisher{}
	svc := newTestService(store, &fakeGenerator{response: "ok"}, pub)

	_, err := svc.ProcessQuery(context.Background(), QueryInput{
		Message:             "persist me",
		SimilarityThreshold: 0.5,
	})
	require.NoError(t, err)

	require.Len(t, pub.published, 2)
	assert.Equal(t, model.RoleUser, pub.published[0].Role)
	assert.Equal(t, model.RoleAssistant, pub.published[1].Role)
}

func TestProcessQueryPublishFailureDoesNotFailQuery(t *testing.T) {
	store := &fakeStore{results: []vectorstore.QueryResult{
		queryResult("chunk-1", 0.9),
	}}
	pub := &fakePublisher{err: fmt.Errorf("broker down")}
	svc := newTestService(store, &fakeGenerator{response: "ok"}, pub)

	result, err := svc.ProcessQuery(context.Background(), QueryInput{
		Message:             "still works",
		SimilarityThreshold: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Response)
}

func TestProcessQueryRolePrompt(t *testing.T) {
	store := &fakeStore{results: []vectorstore.QueryResult{
		queryResult("chunk-1", 0.9),
	}}
	gen := &fakeGenerator{response: "tailored"}
	svc := newTestService(store, gen, nil)

	_, err := svc.ProcessQuery(context.Background(), QueryInput{
		Message:             "explain the results",
		SimilarityThreshold: 0.5,
		Role:                "data scientist",
	})
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Tailor the answer for a data scientist")
	assert.Contains(t, gen.prompts[0], FallbackResponse)
}

func TestBuildSourcesTruncatesPreview(t *testing.T) {
	long := strings.Repeat("x", 400)
	sources := buildSources([]model.RetrievedMatch{
		{
			Chunk: model.DocumentChunk{
				Content:  long,
				Metadata: map[string]string{"filename": "big.pdf"},
			},
			Score: 0.87654,
		},
	})

	require.Len(t, sources, 1)
	assert.Equal(t, strings.Repeat("x", 300)+"...", sources[0].Content)
	assert.Equal(t, 0.877, sources[0].Score)
}

func TestBuildSourcesPreviewKeepsRuneBoundary(t *testing.T) {
	// 1 ASCII byte then 3-byte runes, so byte 300 falls inside a rune
	long := "a" + strings.Repeat("世", 101)
	require.Greater(t, len(long), sourcePreviewLen)

	sources := buildSources([]model.RetrievedMatch{
		{
			Chunk: model.DocumentChunk{
				Content:  long,
				Metadata: map[string]string{"filename": "cjk.pdf"},
			},
			Score: 0.9,
		},
	})

	require.Len(t, sources, 1)
	assert.True(t, utf8.ValidString(sources[0].Content))
	assert.True(t, strings.HasSuffix(sources[0].Content, "..."))
	assert.Equal(t, "a"+strings.Repeat("世", 99)+"...", sources[0].Content)
}

func TestSessionStoreBoundsRetention(t *testing.T) {
	store := NewSessionStore(4)

	for i := 0; i < 5; i++ {
		store.Append("s", model.ChatTurn{
			SessionID: "s",
			Role:      model.RoleUser,
			Content:   fmt.Sprintf("turn %d", i),
		})
	}

	turns := store.Turns("s")
	require.Len(t, turns, 4)
	assert.Equal(t, "turn 1", turns[0].Content)
	assert.Equal(t, "turn 4", turns[3].Content)
}

func TestSessionStoreUnknownSession(t *testing.T) {
	store := NewSessionStore(10)
	assert.Nil(t, store.Turns("missing"))
}
