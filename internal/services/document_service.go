package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/docchat/backend-go/internal/errors"
	"github.com/docchat/backend-go/internal/models"
)

// DocumentService 文档登记查询服务，所有查询按owner_id隔离
type DocumentService struct {
	db     *gorm.DB
	status *IngestStatusTracker
	logger *zap.Logger
}

// NewDocumentService 创建文档查询服务
func NewDocumentService(db *gorm.DB, status *IngestStatusTracker, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{db: db, status: status, logger: logger}
}

// ListByOwner 列出某个用户的全部文档，按创建时间倒序
func (s *DocumentService) ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	if s.db == nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeInternalServer, "document registry not available")
	}

	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		s.logger.Error("Failed to list documents",
			zap.String("owner_id", ownerID),
			zap.Error(err))
		return nil, apperrors.NewStoreError(err)
	}
	return docs, nil
}

// Status 查询某个文档的接入进度。优先读Redis里的实时状态，
// 没有时回退到数据库里的登记记录。
func (s *DocumentService) Status(ctx context.Context, ownerID, fileName string) (*IngestStatus, error) {
	if st, err := s.status.Get(ctx, ownerID, fileName); err == nil && st != nil {
		return st, nil
	} else if err != nil {
		s.logger.Warn("Failed to read ingest status from redis", zap.Error(err))
	}

	if s.db == nil {
		return nil, nil
	}

	var doc models.Document
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND file_name = ?", ownerID, fileName).
		Order("created_at DESC").
		First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, apperrors.NewStoreError(err)
	}

	return &IngestStatus{
		FileName:    doc.FileName,
		OwnerID:     doc.OwnerID,
		State:       doc.Status,
		ChunkTotal:  doc.ChunkCount,
		ChunkStored: doc.ChunkCount,
	}, nil
}
