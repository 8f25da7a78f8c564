package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	apperrors "github.com/docchat/backend-go/internal/errors"
)

// DefaultTopK 检索默认返回块数
const DefaultTopK = 5

// ChunkRecord 待存储的分块记录
type ChunkRecord struct {
	DocumentID string
	OwnerID    string
	Index      int
	Content    string
	Embedding  []float32
}

// SearchMatch 检索命中结果
type SearchMatch struct {
	ChunkID    uint
	DocumentID string
	Content    string
	Score      float64
}

// VectorStore 块存储抽象。写入只追加；检索按owner隔离，
// 相似度降序返回，平分按插入顺序（先插入者在前）。
type VectorStore interface {
	Put(ctx context.Context, chunk ChunkRecord) error
	Search(ctx context.Context, ownerID string, queryEmbedding []float32, limit int) ([]SearchMatch, error)
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a, b []float32, normA float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot float64
	var normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * math.Sqrt(normB))
}

func sortMatchesByScore(matches []SearchMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			// 平分按插入顺序
			return matches[i].ChunkID < matches[j].ChunkID
		}
		return matches[i].Score > matches[j].Score
	})
}

type memoryChunk struct {
	id     uint
	record ChunkRecord
}

// MemoryVectorStore 内存块存储，用于测试与本地开发。
// 追加写入加写锁，检索加读锁。
type MemoryVectorStore struct {
	mu         sync.RWMutex
	dimensions int
	nextID     uint
	chunks     []memoryChunk
}

// NewMemoryVectorStore 创建内存块存储。dimensions>0时校验写入向量维度。
func NewMemoryVectorStore(dimensions int) *MemoryVectorStore {
	return &MemoryVectorStore{dimensions: dimensions}
}

func (s *MemoryVectorStore) Put(ctx context.Context, chunk ChunkRecord) error {
	if len(chunk.Embedding) == 0 {
		return apperrors.NewStoreError(fmt.Errorf("embedding is empty"))
	}
	if s.dimensions > 0 && len(chunk.Embedding) != s.dimensions {
		return apperrors.NewStoreError(
			fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(chunk.Embedding), s.dimensions))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := chunk
	stored.Embedding = make([]float32, len(chunk.Embedding))
	copy(stored.Embedding, chunk.Embedding)
	s.chunks = append(s.chunks, memoryChunk{id: s.nextID, record: stored})
	return nil
}

func (s *MemoryVectorStore) Search(ctx context.Context, ownerID string, queryEmbedding []float32, limit int) ([]SearchMatch, error) {
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

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchMatch
	for _, item := range s.chunks {
		if item.record.OwnerID != ownerID {
			continue
		}
		results = append(results, SearchMatch{
			ChunkID:    item.id,
			DocumentID: item.record.DocumentID,
			Content:    item.record.Content,
			Score:      cosineSimilarity(queryEmbedding, item.record.Embedding, queryNorm),
		})
	}

	sortMatchesByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Len 返回已存储的块数
func (s *MemoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
