package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/ai"
	"ragdesk/internal/app"
	"ragdesk/internal/pkg/pdfextract"
	"ragdesk/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

type IngestHandler struct {
	ingestService *app.IngestService
}

func NewIngestHandler(ingestService *app.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: ingestService}
}

// Upload accepts a multipart form with "file" (PDF or plain text) and
// ingests the extracted text as the active document.
func (h *IngestHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" && ext != ".txt" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF and plain text files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	var text string
	if ext == ".pdf" {
		text, err = pdfextract.ExtractText(f)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text from PDF: "+err.Error())
			return
		}
	} else {
		raw, readErr := io.ReadAll(f)
		if readErr != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
			return
		}
		text = string(raw)
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), file.Filename, text)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrIngestBusy):
			response.Error(c, http.StatusConflict, response.CodeIngestConflict, err.Error())
		case errors.Is(err, app.ErrNoContent):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, ai.ErrUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed: "+err.Error())
		}
		return
	}

	response.OK(c, result)
}

func (h *IngestHandler) ListDocuments(c *gin.Context) {
	docs, err := h.ingestService.Documents()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, gin.H{"documents": docs})
}

// Reset clears the vector store and the document registry and releases
// the single-document ingestion gate so a new upload can begin.
func (h *IngestHandler) Reset(c *gin.Context) {
	if err := h.ingestService.Reset(c.Request.Context()); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reset failed: "+err.Error())
		return
	}
	response.OK(c, gin.H{"reset": true})
}
