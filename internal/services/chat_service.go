package services

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/docchat/backend-go/internal/config"
	apperrors "github.com/docchat/backend-go/internal/errors"
	"github.com/docchat/backend-go/internal/models"
	"github.com/docchat/backend-go/internal/rag"
)

// 对话合成的固定系统提示
const chatSystemPrompt = `You are a helpful AI assistant that helps users find information in their documents.
Answer questions based on the context provided. If you don't know the answer, say so - don't make up information.
Keep responses concise and relevant to the query.`

// StreamDelta 流式回答的一个增量。Done为true表示流结束；
// Error非空时本条为终止信号，内容描述失败原因。
type StreamDelta struct {
	Content string
	Done    bool
	Error   string
}

// ChatService 基于已接入文档的对话合成服务
type ChatService struct {
	client    *openai.Client
	retriever *rag.Retriever
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewChatService 创建对话服务
func NewChatService(cfg config.AIConfig, retriever *rag.Retriever, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.ChatModel
	if model == "" {
		model = openai.GPT4
	}

	return &ChatService{
		client:    openai.NewClientWithConfig(clientConfig),
		retriever: retriever,
		model:     model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// buildMessages 组装发往模型的消息序列：
// 系统提示 + 文档上下文块 + 完整会话历史（顺序保留）。
// 检索结果为空时上下文块仍然保留，正文为空串。
func (s *ChatService) buildMessages(matches []rag.SearchMatch, conversation []models.ChatMessage) []openai.ChatCompletionMessage {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Content)
	}
	contextBlock := strings.Join(parts, "\n")

	messages := make([]openai.ChatCompletionMessage, 0, len(conversation)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: chatSystemPrompt,
	})
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: "Context from documents:\n" + contextBlock,
	})
	for _, msg := range conversation {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return messages
}

// lastUserMessage 取会话中最后一条用户消息作为检索查询
func lastUserMessage(conversation []models.ChatMessage) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == models.RoleUser {
			return conversation[i].Content
		}
	}
	return ""
}

// Chat 对一段会话做检索增强合成，返回增量通道。
//
// 流建立之前的失败（检索失败、模型拒绝请求）直接返回错误；
// 流建立之后的失败通过带Error的终止增量下发，已产出的内容不回收。
func (s *ChatService) Chat(ctx context.Context, ownerID string, conversation []models.ChatMessage) (<-chan StreamDelta, error) {
	if len(conversation) == 0 {
		return nil, apperrors.NewValidationError("conversation must not be empty")
	}

	query := lastUserMessage(conversation)
	matches, err := s.retriever.Retrieve(ctx, ownerID, query)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Retrieved context for chat",
		zap.String("owner_id", ownerID),
		zap.Int("matches", len(matches)))

	req := openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: s.buildMessages(matches, conversation),
		Stream:   true,
	}
	if s.maxTokens > 0 {
		req.MaxTokens = s.maxTokens
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, apperrors.NewSynthesisError(err)
	}

	deltas := make(chan StreamDelta)
	go s.pump(ctx, stream, deltas)
	return deltas, nil
}

func (s *ChatService) pump(ctx context.Context, stream *openai.ChatCompletionStream, deltas chan<- StreamDelta) {
	defer close(deltas)
	defer stream.Close()

	emit := func(d StreamDelta) bool {
		select {
		case deltas <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			emit(StreamDelta{Done: true})
			return
		}
		if err != nil {
			s.logger.Error("Chat stream terminated", zap.Error(err))
			emit(StreamDelta{Done: true, Error: err.Error()})
			return
		}

		if len(response.Choices) == 0 {
			continue
		}
		content := response.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		if !emit(StreamDelta{Content: content}) {
			return
		}
	}
}
