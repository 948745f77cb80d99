package http

import (
	"github.com/gin-gonic/gin"

	"ragdesk/internal/bootstrap"
	"ragdesk/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	chatHandler := handler.NewChatHandler(app.RAGService, app.HistoryService, app.Config.RAG.SimilarityThreshold)
	ingestHandler := handler.NewIngestHandler(app.IngestService)
	evalHandler := handler.NewEvalHandler(app.Evaluator, app.Config.RAG.TopK, app.Config.RAG.SimilarityThreshold)

	v1 := router.Group("/api/v1")
	v1.POST("/upload", ingestHandler.Upload)
	v1.GET("/documents", ingestHandler.ListDocuments)
	v1.POST("/reset", ingestHandler.Reset)

	v1.POST("/chat", chatHandler.Chat)
	v1.GET("/history", chatHandler.GetHistory)

	v1.POST("/eval", evalHandler.EvaluateDataset)
	v1.POST("/eval/export", evalHandler.Export)

	return router
}
