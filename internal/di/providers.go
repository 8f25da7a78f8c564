package di

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/docchat/backend-go/internal/auth"
	"github.com/docchat/backend-go/internal/config"
	"github.com/docchat/backend-go/internal/database"
	"github.com/docchat/backend-go/internal/logger"
	"github.com/docchat/backend-go/internal/middleware"
	"github.com/docchat/backend-go/internal/rag"
	"github.com/docchat/backend-go/internal/services"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container) error {
	// 注册配置
	if err := container.Provide(func() (*config.Config, error) {
		cfg := config.GetAppConfig()
		if cfg == nil {
			return nil, fmt.Errorf("config not loaded")
		}
		return cfg, nil
	}); err != nil {
		return err
	}

	// 注册日志
	if err := container.Provide(func() *zap.Logger {
		return logger.GetLogger()
	}); err != nil {
		return err
	}

	// 注册数据库连接（bootstrap阶段已初始化）
	if err := container.Provide(func() *gorm.DB {
		return database.DB
	}); err != nil {
		return err
	}

	// 注册Redis客户端（可能为nil，下游需自行容忍）
	if err := container.Provide(func() *redis.Client {
		return database.RedisClient
	}); err != nil {
		return err
	}

	// 注册对象存储
	if err := container.Provide(func(cfg *config.Config) (*middleware.MinIOService, error) {
		return middleware.NewMinIOService(cfg.Storage)
	}); err != nil {
		return err
	}

	// 注册会话令牌服务
	if err := container.Provide(func(cfg *config.Config) *auth.SessionService {
		return auth.NewSessionService(cfg.JWT.Secret, "docchat", 24*time.Hour)
	}); err != nil {
		return err
	}

	// 注册检索管线组件
	if err := container.Provide(func() rag.TextExtractor {
		return rag.NewPDFExtractor()
	}); err != nil {
		return err
	}

	if err := container.Provide(func(cfg *config.Config) *rag.Chunker {
		return rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(cfg *config.Config) rag.Embedder {
		return rag.NewOpenAIEmbedder(cfg.AI)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(db *gorm.DB, embedder rag.Embedder) rag.VectorStore {
		return rag.NewDatabaseVectorStore(db, embedder.Dimensions())
	}); err != nil {
		return err
	}

	if err := container.Provide(func(cfg *config.Config, embedder rag.Embedder, store rag.VectorStore) *rag.Retriever {
		return rag.NewRetriever(embedder, store, cfg.RAG.TopK)
	}); err != nil {
		return err
	}

	// 注册服务
	if err := container.Provide(func(cfg *config.Config, client *redis.Client) *services.IngestStatusTracker {
		return services.NewIngestStatusTracker(client, time.Duration(cfg.Redis.TTL)*time.Second)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(
		storage *middleware.MinIOService,
		extractor rag.TextExtractor,
		chunker *rag.Chunker,
		embedder rag.Embedder,
		store rag.VectorStore,
		db *gorm.DB,
		status *services.IngestStatusTracker,
		log *zap.Logger,
	) *services.IngestionService {
		return services.NewIngestionService(storage, extractor, chunker, embedder, store, db, status, log)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(cfg *config.Config, retriever *rag.Retriever, log *zap.Logger) *services.ChatService {
		return services.NewChatService(cfg.AI, retriever, log)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(db *gorm.DB, status *services.IngestStatusTracker, log *zap.Logger) *services.DocumentService {
		return services.NewDocumentService(db, status, log)
	}); err != nil {
		return err
	}

	return nil
}
