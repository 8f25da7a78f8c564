package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docchat/backend-go/internal/config"
	apperrors "github.com/docchat/backend-go/internal/errors"
)

// Embedder 定义文本向量化接口。每块文本一次调用，
// 返回固定维度的向量。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Ready() bool
}

// NoopEmbedder 未配置API Key时的占位实现
type NoopEmbedder struct{}

func (n *NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, apperrors.NewEmbeddingError(errors.New("embedding provider not configured"))
}

func (n *NoopEmbedder) Dimensions() int {
	return 0
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

var embeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder 使用OpenAI Embedding API
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder 创建嵌入向量生成器。API Key为空时返回占位实现。
func NewOpenAIEmbedder(cfg config.AIConfig) Embedder {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return &NoopEmbedder{}
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = "text-embedding-ada-002"
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	dims, ok := embeddingDimensions[model]
	if !ok {
		dims = 1536
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		dimensions: dims,
	}
}

// Embed 向量化单块文本。请求失败、响应为空或维度不符都视为向量化失败，
// 由调用方中止当前文档的后续处理。
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewEmbeddingError(errors.New("text is empty"))
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, apperrors.NewEmbeddingError(err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewEmbeddingError(errors.New("embedding response empty"))
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != e.dimensions {
		return nil, apperrors.NewEmbeddingError(
			fmt.Errorf("unexpected vector dimension: got %d, want %d", len(embedding), e.dimensions))
	}

	result := make([]float32, len(embedding))
	copy(result, embedding)
	return result, nil
}

// Dimensions 返回当前模型的固定向量维度
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}
