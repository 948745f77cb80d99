package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ragdesk/internal/model"
)

const (
	defaultTopK      = 5
	sourcePreviewLen = 300

	// FallbackResponse is returned whenever no retrieved context survives
	// filtering and budgeting. An empty context is a handled state, never an
	// error, and never reaches the generator.
	FallbackResponse = "I don't know based on the uploaded document(s)."
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// Encoder maps texts to fixed-length embedding vectors, one per input,
// preserving order.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a single non-streaming completion for a prompt. It must
// fail with an error rather than return a partial answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TurnPublisher hands chat turns to the async persistence pipeline.
type TurnPublisher interface {
	Publish(ctx context.Context, turn model.ChatTurn) error
}

// HistoryCache fronts the persisted history store. The dirty marker covers
// the lag between publishing a turn and the worker landing it in mysql.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.ChatTurn, bool, error)
	SetHistory(ctx context.Context, sessionID string, turns []model.ChatTurn) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// RAGConfig carries the retrieval and generation knobs of the orchestrator.
type RAGConfig struct {
	TopK                int
	SimilarityThreshold float64
	ContextCharBudget   int
	MaxSessionTurns     int
}

// RAGService drives the full query path: embed, retrieve, budget, generate,
// remember. Collaborators are injected at construction; the service owns
// nothing but its session map.
type RAGService struct {
	encoder      Encoder
	retriever    *Retriever
	generator    Generator
	publisher    TurnPublisher
	historyCache HistoryCache
	sessions     *SessionStore
	cfg          RAGConfig
	log          *zap.Logger
}

// NewRAGService wires the orchestrator. publisher and historyCache may be
// nil; persistence is then disabled (evaluation runs and tests do this).
func NewRAGService(
	encoder Encoder,
	retriever *Retriever,
	generator Generator,
	publisher TurnPublisher,
	historyCache HistoryCache,
	cfg RAGConfig,
	log *zap.Logger,
) *RAGService {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.ContextCharBudget <= 0 {
		cfg.ContextCharBudget = 2500
	}
	return &RAGService{
		encoder:      encoder,
		retriever:    retriever,
		generator:    generator,
		publisher:    publisher,
		historyCache: historyCache,
		sessions:     NewSessionStore(cfg.MaxSessionTurns),
		cfg:          cfg,
		log:          log,
	}
}

// QueryInput is one conversational query. A zero TopK falls back to the
// configured default; SimilarityThreshold is taken as given (0 is a valid
// threshold).
type QueryInput struct {
	Message             string
	SessionID           string
	TopK                int
	SimilarityThreshold float64
	Role                string
}

type QueryResult struct {
	Response  string         `json:"response"`
	Sources   []model.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

// ProcessQuery answers a question grounded in retrieved document chunks.
// Sessions are created lazily on first use of an unknown id.
func (s *RAGService) ProcessQuery(ctx context.Context, input QueryInput) (*QueryResult, error) {
	started := time.Now()

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, ErrInvalidInput
	}
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	topK := input.TopK
	if topK == 0 {
		topK = s.cfg.TopK
	}

	queryEmbedding, err := s.encoder.Encode(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	matches, err := s.retriever.Retrieve(ctx, queryEmbedding, topK, input.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	contextText, usedSources := AssembleContext(matches, s.cfg.ContextCharBudget)

	var response string
	if contextText == "" {
		response = FallbackResponse
	} else {
		prompt := buildPrompt(contextText, message, input.Role)
		response, err = s.generator.Generate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
		}
		if response == "" {
			response = FallbackResponse
		}
	}

	now := time.Now()
	userTurn := model.ChatTurn{SessionID: sessionID, Role: model.RoleUser, Content: message, CreatedAt: now}
	assistantTurn := model.ChatTurn{SessionID: sessionID, Role: model.RoleAssistant, Content: response, CreatedAt: now}
	s.sessions.Append(sessionID, userTurn, assistantTurn)
	s.publishTurns(ctx, userTurn, assistantTurn)

	s.log.Info("query processed",
		zap.String("session_id", sessionID),
		zap.Int("sources", len(usedSources)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &QueryResult{
		Response:  response,
		Sources:   buildSources(usedSources),
		SessionID: sessionID,
	}, nil
}

// SessionTurns exposes the in-memory window of one session.
func (s *RAGService) SessionTurns(sessionID string) []model.ChatTurn {
	return s.sessions.Turns(sessionID)
}

// publishTurns hands turns to the persistence pipeline. Best effort: losing
// a history row must not fail the query that produced it.
func (s *RAGService) publishTurns(ctx context.Context, turns ...model.ChatTurn) {
	if s.publisher == nil {
		return
	}
	if s.historyCache != nil && len(turns) > 0 {
		sessionID := turns[0].SessionID
		_ = s.historyCache.MarkDirty(ctx, sessionID)
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}
	for _, turn := range turns {
		if err := s.publisher.Publish(ctx, turn); err != nil {
			s.log.Warn("publish chat turn failed",
				zap.String("session_id", turn.SessionID),
				zap.Error(err),
			)
		}
	}
}

func buildSources(matches []model.RetrievedMatch) []model.Source {
	sources := make([]model.Source, 0, len(matches))
	for _, m := range matches {
		content := m.Chunk.Content
		if len(content) > sourcePreviewLen {
			// back off to a rune boundary so the preview stays valid UTF-8
			cut := sourcePreviewLen
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut] + "..."
		}
		sources = append(sources, model.Source{
			DocumentName: m.Chunk.Metadata["filename"],
			Content:      content,
			Score:        math.Round(m.Score*1000) / 1000,
		})
	}
	return sources
}

func buildPrompt(contextText, question, role string) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using ONLY the information below.\n")
	sb.WriteString("If the answer is not present, say:\n")
	sb.WriteString("\"" + FallbackResponse + "\"\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(contextText)
	sb.WriteString("\nQuestion:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nInstructions:\n")
	sb.WriteString("- Answer in complete sentences\n")
	sb.WriteString("- If summarizing, use bullet points\n")
	if role != "" {
		sb.WriteString("- Tailor the answer for a " + role + "\n")
	}
	return sb.String()
}
