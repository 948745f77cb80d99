package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragdesk/internal/model"
)

// QdrantConfig holds connection details for a Qdrant collection.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// QdrantStore is a minimal REST client to Qdrant using cosine distance.
type QdrantStore struct {
	cfg    QdrantConfig
	client *http.Client
}

func NewQdrantStore(cfg QdrantConfig) *QdrantStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &QdrantStore{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Init creates the collection if it does not exist yet.
func (s *QdrantStore) Init(ctx context.Context) error {
	if s.cfg.Dimension <= 0 {
		return fmt.Errorf("qdrant dimension must be positive")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.cfg.Dimension,
			"distance": "Cosine",
		},
	}
	url := fmt.Sprintf("%s/collections/%s", s.cfg.URL, s.cfg.Collection)
	return s.do(ctx, http.MethodPut, url, body, nil)
}

func (s *QdrantStore) Upsert(ctx context.Context, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		payload := make(map[string]any, len(chunks[i].Metadata))
		for k, v := range chunks[i].Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      chunks[i].ID,
			"vector":  chunks[i].Embedding,
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.cfg.URL, s.cfg.Collection)
	return s.do(ctx, http.MethodPut, url, body, nil)
}

func (s *QdrantStore) Query(ctx context.Context, vector []float32, topK int) ([]QueryResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.cfg.URL, s.cfg.Collection)
	if err := s.do(ctx, http.MethodPost, url, reqBody, &resp); err != nil {
		return nil, err
	}

	results := make([]QueryResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		metadata := make(map[string]string, len(r.Payload))
		for k, v := range r.Payload {
			if sv, ok := v.(string); ok {
				metadata[k] = sv
			} else {
				metadata[k] = fmt.Sprintf("%v", v)
			}
		}
		results = append(results, QueryResult{
			ID:       fmt.Sprintf("%v", r.ID),
			Score:    r.Score,
			Metadata: metadata,
		})
	}
	return results, nil
}

func (s *QdrantStore) Clear(ctx context.Context) error {
	body := map[string]any{
		"filter": map[string]any{},
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.cfg.URL, s.cfg.Collection)
	return s.do(ctx, http.MethodPost, url, body, nil)
}

func (s *QdrantStore) do(ctx context.Context, method, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal qdrant request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build qdrant request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read qdrant response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant response status %d: %s", resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse qdrant response failed: %w", err)
		}
	}
	return nil
}
