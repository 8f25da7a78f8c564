package rag

import (
	"context"
	"strings"
)

// Retriever 语义检索器：向量化查询文本后从块存储取Top-K。
type Retriever struct {
	embedder Embedder
	store    VectorStore
	topK     int
}

// NewRetriever 创建检索器。topK<=0时使用默认值。
func NewRetriever(embedder Embedder, store VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		topK:     topK,
	}
}

// Retrieve 返回该owner下与查询最相关的块，相似度降序。
// 空查询视为无上下文可检索，返回零块。
func (r *Retriever) Retrieve(ctx context.Context, ownerID, query string) ([]SearchMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.store.Search(ctx, ownerID, embedding, r.topK)
}

// TopK 返回检索块数上限
func (r *Retriever) TopK() int {
	return r.topK
}
