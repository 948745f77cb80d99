package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/eval"
	"ragdesk/internal/transport/http/response"
)

type EvalHandler struct {
	evaluator        *eval.Evaluator
	defaultTopK      int
	defaultThreshold float64
}

type EvaluateRequest struct {
	Samples             []eval.Sample `json:"samples" binding:"required,min=1,dive"`
	TopK                int           `json:"top_k" binding:"omitempty,gte=1,lte=20"`
	SimilarityThreshold *float64      `json:"similarity_threshold" binding:"omitempty,gte=0,lte=1"`
}

type ExportRequest struct {
	Path string `json:"path" binding:"required"`
}

func NewEvalHandler(evaluator *eval.Evaluator, defaultTopK int, defaultThreshold float64) *EvalHandler {
	return &EvalHandler{
		evaluator:        evaluator,
		defaultTopK:      defaultTopK,
		defaultThreshold: defaultThreshold,
	}
}

func (h *EvalHandler) EvaluateDataset(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = h.defaultTopK
	}
	threshold := h.defaultThreshold
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}

	aggregate, err := h.evaluator.EvaluateDataset(c.Request.Context(), req.Samples, topK, threshold)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "evaluation failed: "+err.Error())
		return
	}

	response.OK(c, gin.H{
		"aggregate":      aggregate,
		"sample_count":   len(req.Samples),
		"sample_results": h.evaluator.Results(),
	})
}

func (h *EvalHandler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.evaluator.ExportCSV(req.Path); err != nil {
		if errors.Is(err, eval.ErrNoResults) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "export failed: "+err.Error())
		return
	}

	response.OK(c, gin.H{"path": req.Path})
}
