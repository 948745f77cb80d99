package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/app"
	"ragdesk/internal/transport/http/response"
)

type ChatHandler struct {
	ragService       *app.RAGService
	historyService   *app.HistoryService
	defaultThreshold float64
}

type ChatRequest struct {
	Message             string   `json:"message" binding:"required"`
	SessionID           string   `json:"session_id" binding:"omitempty,max=64"`
	TopK                int      `json:"top_k" binding:"omitempty,gte=1,lte=20"`
	SimilarityThreshold *float64 `json:"similarity_threshold" binding:"omitempty,gte=0,lte=1"`
	Role                string   `json:"role" binding:"omitempty,max=128"`
}

func NewChatHandler(ragService *app.RAGService, historyService *app.HistoryService, defaultThreshold float64) *ChatHandler {
	return &ChatHandler{
		ragService:       ragService,
		historyService:   historyService,
		defaultThreshold: defaultThreshold,
	}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	threshold := h.defaultThreshold
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}

	result, err := h.ragService.ProcessQuery(c.Request.Context(), app.QueryInput{
		Message:             req.Message,
		SessionID:           req.SessionID,
		TopK:                req.TopK,
		SimilarityThreshold: threshold,
		Role:                req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrInvalidConfig):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrRetrievalUnavailable), errors.Is(err, app.ErrGenerationUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session_id")
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	history, err := h.historyService.GetHistory(c.Request.Context(), sessionID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get history failed")
		return
	}

	response.OK(c, gin.H{"session_id": sessionID, "turns": history})
}
