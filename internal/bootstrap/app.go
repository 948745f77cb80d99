package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ragdesk/internal/ai"
	"ragdesk/internal/app"
	"ragdesk/internal/cache"
	"ragdesk/internal/config"
	"ragdesk/internal/eval"
	"ragdesk/internal/logger"
	"ragdesk/internal/model"
	mysqlClient "ragdesk/internal/platform/mysql"
	rabbitmqClient "ragdesk/internal/platform/rabbitmq"
	redisClient "ragdesk/internal/platform/redis"
	"ragdesk/internal/repository"
	"ragdesk/internal/vectorstore"
	"ragdesk/internal/worker"
)

// App owns every long-lived resource and service of the process. All
// collaborators are constructed here and injected; no package keeps
// process-scoped singletons.
type App struct {
	Config *config.Config
	Log    *zap.Logger

	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	RAGService     *app.RAGService
	IngestService  *app.IngestService
	HistoryService *app.HistoryService
	Evaluator      *eval.Evaluator

	TurnWorker *worker.TurnPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Document{}, &model.ChatTurn{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	store, err := newVectorStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	aiClient := ai.NewClient(ai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		ChatModel:      cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
	})

	docRepo := repository.NewDocumentRepository(mysqlDB)
	turnRepo := repository.NewChatTurnRepository(mysqlDB)
	historyCache := cache.NewHistoryCache(
		redisCli,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	turnPublisher := rabbitmqClient.NewTurnPublisher(mqConn, cfg.RabbitMQ.TurnPersistQueue)

	retriever := app.NewRetriever(store, log)
	ragService := app.NewRAGService(
		aiClient,
		retriever,
		aiClient,
		turnPublisher,
		historyCache,
		app.RAGConfig{
			TopK:                cfg.RAG.TopK,
			SimilarityThreshold: cfg.RAG.SimilarityThreshold,
			ContextCharBudget:   cfg.RAG.ContextCharBudget,
			MaxSessionTurns:     cfg.RAG.MaxSessionTurns,
		},
		log,
	)
	ingestService, err := app.NewIngestService(
		aiClient,
		store,
		docRepo,
		app.IngestConfig{
			ChunkSize: cfg.RAG.ChunkSize,
			Overlap:   cfg.RAG.ChunkOverlap,
		},
		log,
	)
	if err != nil {
		return nil, err
	}
	historyService := app.NewHistoryService(turnRepo, historyCache)
	evaluator := eval.NewEvaluator(ragService, log)

	turnWorker := worker.NewTurnPersistWorker(mqConn, turnRepo, cfg.RabbitMQ.TurnPersistQueue, log)
	if err := turnWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start turn worker failed: %w", err)
	}

	return &App{
		Config:         cfg,
		Log:            log,
		MySQL:          mysqlDB,
		Redis:          redisCli,
		MQConn:         mqConn,
		RAGService:     ragService,
		IngestService:  ingestService,
		HistoryService: historyService,
		Evaluator:      evaluator,
		TurnWorker:     turnWorker,
		StartedAt:      time.Now(),
	}, nil
}

func newVectorStore(ctx context.Context, cfg *config.Config) (vectorstore.VectorStore, error) {
	switch cfg.Vector.Backend {
	case "", "memory":
		return vectorstore.NewMemoryStore(), nil
	case "qdrant":
		store := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			URL:        cfg.Vector.QdrantURL,
			APIKey:     cfg.Vector.QdrantKey,
			Collection: cfg.Vector.Collection,
			Dimension:  cfg.Vector.Dimension,
		})
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("init qdrant failed: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.TurnWorker != nil {
		a.TurnWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return closeErr
}
