package ai

import (
	"errors"
	"net/http"
	"time"
)

// ErrUnavailable marks encoder/generator calls that failed to produce a
// result (network error, non-2xx status, malformed body). Callers decide on
// retry policy; this package never retries.
var ErrUnavailable = errors.New("llm service unavailable")

// Config holds settings for an OpenAI-compatible API endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Temperature    float64
	MaxTokens      int
}

// Client talks to an OpenAI-compatible HTTP API. It implements both the
// embedding (Encoder) and chat-completion (Generator) collaborators.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}
