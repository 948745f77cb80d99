package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ragdesk/internal/model"
	"ragdesk/internal/pkg/textutil"
	"ragdesk/internal/vectorstore"
)

// DashScope and similar APIs often limit embedding batch size.
const embeddingBatchSize = 10

var (
	ErrIngestBusy = errors.New("a document is already uploaded; reset before uploading another")
	ErrNoContent  = errors.New("document has no readable text")
)

// IngestGate is the one-document-at-a-time latch. Acquired with an atomic
// compare-and-set on upload, held until Reset.
type IngestGate struct {
	busy atomic.Bool
}

func (g *IngestGate) TryAcquire() bool { return g.busy.CompareAndSwap(false, true) }
func (g *IngestGate) Release()         { g.busy.Store(false) }
func (g *IngestGate) Held() bool       { return g.busy.Load() }

// DocumentRegistry records which documents currently back the vector index.
type DocumentRegistry interface {
	Create(doc *model.Document) error
	List() ([]model.Document, error)
	DeleteAll() error
}

// IngestConfig carries the chunking knobs. Validated at construction, never
// clamped.
type IngestConfig struct {
	ChunkSize int
	Overlap   int
}

// IngestService turns raw document text into embedded chunks in the vector
// store: normalize, chunk, embed in batches, upsert, record.
type IngestService struct {
	encoder Encoder
	store   vectorstore.VectorStore
	docs    DocumentRegistry
	gate    *IngestGate
	cfg     IngestConfig
	log     *zap.Logger
}

func NewIngestService(
	encoder Encoder,
	store vectorstore.VectorStore,
	docs DocumentRegistry,
	cfg IngestConfig,
	log *zap.Logger,
) (*IngestService, error) {
	// Reject bad chunking config up front rather than on first upload.
	if _, err := textutil.Chunk("probe", cfg.ChunkSize, cfg.Overlap); err != nil {
		return nil, fmt.Errorf("ingest config: %w", err)
	}
	return &IngestService{
		encoder: encoder,
		store:   store,
		docs:    docs,
		gate:    &IngestGate{},
		cfg:     cfg,
		log:     log,
	}, nil
}

type IngestResult struct {
	Document   model.Document `json:"document"`
	ChunkCount int            `json:"chunk_count"`
}

// Ingest processes one document end to end. The gate stays held on success
// and is released on any failure, so a broken upload can be retried.
func (s *IngestService) Ingest(ctx context.Context, filename, rawText string) (*IngestResult, error) {
	if !s.gate.TryAcquire() {
		return nil, ErrIngestBusy
	}

	result, err := s.ingest(ctx, filename, rawText)
	if err != nil {
		s.gate.Release()
		return nil, err
	}
	return result, nil
}

func (s *IngestService) ingest(ctx context.Context, filename, rawText string) (*IngestResult, error) {
	text := textutil.Normalize(rawText)
	if text == "" {
		return nil, ErrNoContent
	}

	chunks, err := textutil.Chunk(text, s.cfg.ChunkSize, s.cfg.Overlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoContent
	}

	var embeddings [][]float32
	for i := 0; i < len(chunks); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := s.encoder.EncodeBatch(ctx, chunks[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks failed: %w", err)
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings))
	}

	docID := uuid.NewString()
	docChunks := make([]model.DocumentChunk, len(chunks))
	for i := range chunks {
		docChunks[i] = model.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Content:    chunks[i],
			Metadata: map[string]string{
				"document_id": docID,
				"content":     chunks[i],
				"filename":    filename,
				"chunk_index": strconv.Itoa(i),
			},
			Embedding: embeddings[i],
		}
	}

	if err := s.store.Upsert(ctx, docChunks); err != nil {
		return nil, fmt.Errorf("upsert chunks failed: %w", err)
	}

	doc := &model.Document{
		ID:         docID,
		Filename:   filename,
		ChunkCount: len(docChunks),
	}
	if err := s.docs.Create(doc); err != nil {
		return nil, fmt.Errorf("record document failed: %w", err)
	}

	s.log.Info("document ingested",
		zap.String("document_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks", len(docChunks)),
	)
	return &IngestResult{Document: *doc, ChunkCount: len(docChunks)}, nil
}

// Documents lists the documents currently backing the index.
func (s *IngestService) Documents() ([]model.Document, error) {
	return s.docs.List()
}

// Reset drops every vector and document record and reopens the gate.
func (s *IngestService) Reset(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear vector store failed: %w", err)
	}
	if err := s.docs.DeleteAll(); err != nil {
		return fmt.Errorf("clear document registry failed: %w", err)
	}
	s.gate.Release()
	s.log.Info("corpus reset")
	return nil
}
