package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/docchat/backend-go/internal/errors"
	"github.com/docchat/backend-go/internal/models"
)

// DatabaseVectorStore 基于PostgreSQL的块存储。
// 向量以JSON数组文本落库，相似度在应用侧计算。
// 行级写入原子且读已提交，追加/扫描两侧无需额外锁。
type DatabaseVectorStore struct {
	db         *gorm.DB
	dimensions int
}

// NewDatabaseVectorStore 创建数据库块存储。dimensions>0时校验写入向量维度。
func NewDatabaseVectorStore(db *gorm.DB, dimensions int) *DatabaseVectorStore {
	return &DatabaseVectorStore{db: db, dimensions: dimensions}
}

// Put 追加一条分块记录。已有记录不做原地更新。
func (s *DatabaseVectorStore) Put(ctx context.Context, chunk ChunkRecord) error {
	if len(chunk.Embedding) == 0 {
		return apperrors.NewStoreError(fmt.Errorf("embedding is empty"))
	}
	if s.dimensions > 0 && len(chunk.Embedding) != s.dimensions {
		return apperrors.NewStoreError(
			fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(chunk.Embedding), s.dimensions))
	}

	embeddingJSON, err := json.Marshal(chunk.Embedding)
	if err != nil {
		return apperrors.NewStoreError(err)
	}

	row := models.DocumentChunk{
		DocumentID: chunk.DocumentID,
		OwnerID:    chunk.OwnerID,
		ChunkIndex: chunk.Index,
		Content:    chunk.Content,
		Embedding:  string(embeddingJSON),
		CreatedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return apperrors.NewStoreError(fmt.Errorf("failed to insert chunk: %w", err))
	}
	return nil
}

// Search 返回该owner下与查询向量最相似的limit个块。
// 只扫描owner自己的行，其他租户的块无论相似度多高都不会出现。
func (s *DatabaseVectorStore) Search(ctx context.Context, ownerID string, queryEmbedding []float32, limit int) ([]SearchMatch, error) {
	if len(queryEmbedding) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultTopK
	}

	queryNorm := vectorNorm(queryEmbedding)
	if queryNorm == 0 {
		return nil, apperrors.NewStoreError(fmt.Errorf("query embedding norm is zero"))
	}

	var rows []models.DocumentChunk
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewStoreError(fmt.Errorf("vector search failed: %w", err))
	}

	results := make([]SearchMatch, 0, len(rows))
	for _, row := range rows {
		var embedding []float32
		if err := json.Unmarshal([]byte(row.Embedding), &embedding); err != nil {
			continue
		}
		results = append(results, SearchMatch{
			ChunkID:    row.ID,
			DocumentID: row.DocumentID,
			Content:    row.Content,
			Score:      cosineSimilarity(queryEmbedding, embedding, queryNorm),
		})
	}

	sortMatchesByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
