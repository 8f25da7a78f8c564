package services

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/docchat/backend-go/internal/errors"
	"github.com/docchat/backend-go/internal/models"
	"github.com/docchat/backend-go/internal/rag"
)

// ObjectStorage 对象存储协作方：按文件名取回上传文档的原始字节
type ObjectStorage interface {
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
}

// IngestionService 文档接入服务：下载 → 提取 → 分块 → 向量化 → 入库。
// 任一阶段失败立即中止该文档的后续处理。
type IngestionService struct {
	storage   ObjectStorage
	extractor rag.TextExtractor
	chunker   *rag.Chunker
	embedder  rag.Embedder
	store     rag.VectorStore
	db        *gorm.DB
	status    *IngestStatusTracker
	logger    *zap.Logger
}

// NewIngestionService 创建文档接入服务。db与status可为nil（测试场景）。
func NewIngestionService(
	storage ObjectStorage,
	extractor rag.TextExtractor,
	chunker *rag.Chunker,
	embedder rag.Embedder,
	store rag.VectorStore,
	db *gorm.DB,
	status *IngestStatusTracker,
	logger *zap.Logger,
) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionService{
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		db:        db,
		status:    status,
		logger:    logger,
	}
}

// ProcessDocument 接入一个已上传的文档。
//
// 向量化采用非事务的快速失败策略：块i失败时，块1..i-1保留在存储中，
// 整个文档标记失败，重新接入时从头重嵌（至少一次语义，写入不去重）。
func (s *IngestionService) ProcessDocument(ctx context.Context, fileName, ownerID string) error {
	s.logger.Info("Processing document",
		zap.String("file_name", fileName),
		zap.String("owner_id", ownerID))

	s.status.MarkProcessing(ctx, ownerID, fileName, 0)

	reader, err := s.storage.Download(ctx, fileName)
	if err != nil {
		return s.fail(ctx, fileName, ownerID, err)
	}
	data, readErr := io.ReadAll(reader)
	reader.Close()
	if readErr != nil {
		return s.fail(ctx, fileName, ownerID, apperrors.NewStorageError(readErr))
	}

	text, err := s.extractor.Extract(data)
	if err != nil {
		return s.fail(ctx, fileName, ownerID, err)
	}

	chunks := s.chunker.Split(text)
	s.status.MarkProcessing(ctx, ownerID, fileName, len(chunks))

	doc := s.registerDocument(fileName, ownerID)

	// 按分块器产出顺序逐块向量化并入库
	for i, chunk := range chunks {
		embedding, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			s.markDocumentFailed(doc)
			return s.fail(ctx, fileName, ownerID, err)
		}

		err = s.store.Put(ctx, rag.ChunkRecord{
			DocumentID: fileName,
			OwnerID:    ownerID,
			Index:      i,
			Content:    chunk,
			Embedding:  embedding,
		})
		if err != nil {
			s.markDocumentFailed(doc)
			return s.fail(ctx, fileName, ownerID, err)
		}

		s.status.MarkProgress(ctx, ownerID, fileName, len(chunks), i+1)
	}

	s.markDocumentCompleted(doc, len(chunks))
	s.status.MarkCompleted(ctx, ownerID, fileName, len(chunks))

	s.logger.Info("Document ingested",
		zap.String("file_name", fileName),
		zap.String("owner_id", ownerID),
		zap.Int("chunks", len(chunks)))
	return nil
}

func (s *IngestionService) fail(ctx context.Context, fileName, ownerID string, err error) error {
	s.logger.Error("Document ingestion failed",
		zap.String("file_name", fileName),
		zap.String("owner_id", ownerID),
		zap.Error(err))
	s.status.MarkFailed(ctx, ownerID, fileName, string(apperrors.CodeOf(err)))
	return err
}

func (s *IngestionService) registerDocument(fileName, ownerID string) *models.Document {
	if s.db == nil {
		return nil
	}
	doc := &models.Document{
		FileName:  fileName,
		OwnerID:   ownerID,
		Status:    models.DocumentStatusProcessing,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.Create(doc).Error; err != nil {
		s.logger.Warn("Failed to register document", zap.Error(err))
		return nil
	}
	return doc
}

func (s *IngestionService) markDocumentCompleted(doc *models.Document, chunkCount int) {
	if s.db == nil || doc == nil {
		return
	}
	err := s.db.Model(doc).Updates(map[string]interface{}{
		"status":      models.DocumentStatusCompleted,
		"chunk_count": chunkCount,
		"updated_at":  time.Now(),
	}).Error
	if err != nil {
		s.logger.Warn("Failed to update document status", zap.Error(err))
	}
}

func (s *IngestionService) markDocumentFailed(doc *models.Document) {
	if s.db == nil || doc == nil {
		return
	}
	err := s.db.Model(doc).Updates(map[string]interface{}{
		"status":     models.DocumentStatusFailed,
		"updated_at": time.Now(),
	}).Error
	if err != nil {
		s.logger.Warn("Failed to update document status", zap.Error(err))
	}
}
