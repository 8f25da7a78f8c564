package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/backend-go/internal/config"
	apperrors "github.com/docchat/backend-go/internal/errors"
	"github.com/docchat/backend-go/internal/models"
	"github.com/docchat/backend-go/internal/rag"
)

// chatFixture 伪OpenAI聊天端点，按预置增量回放SSE流
type chatFixture struct {
	deltas      []string
	failStatus  int
	abortAfter  int // 回放N个增量后直接断开，0表示不断开
	lastRequest openai.ChatCompletionRequest
}

func (f *chatFixture) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&f.lastRequest); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if f.failStatus != 0 {
			http.Error(w, `{"error":{"message":"model overloaded"}}`, f.failStatus)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i, delta := range f.deltas {
			if f.abortAfter > 0 && i == f.abortAfter {
				// 模拟上游中途断流：不发[DONE]直接结束响应
				return
			}
			chunk := openai.ChatCompletionStreamResponse{
				ID:     "chatcmpl-test",
				Object: "chat.completion.chunk",
				Model:  openai.GPT4,
				Choices: []openai.ChatCompletionStreamChoice{{
					Delta: openai.ChatCompletionStreamChoiceDelta{Content: delta},
				}},
			}
			payload, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func newTestChat(t *testing.T, baseURL string, store rag.VectorStore) *ChatService {
	t.Helper()
	retriever := rag.NewRetriever(&countingEmbedder{}, store, 5)
	return NewChatService(config.AIConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL + "/v1",
		ChatModel: openai.GPT4,
	}, retriever, nil)
}

func collect(t *testing.T, deltas <-chan StreamDelta) (string, StreamDelta) {
	t.Helper()
	var sb strings.Builder
	var last StreamDelta
	for d := range deltas {
		last = d
		sb.WriteString(d.Content)
	}
	require.True(t, last.Done, "stream must end with a Done delta")
	return sb.String(), last
}

func seedChunk(t *testing.T, store rag.VectorStore, content string) {
	t.Helper()
	err := store.Put(context.Background(), rag.ChunkRecord{
		DocumentID: "report.pdf",
		OwnerID:    "owner-a",
		Content:    content,
		Embedding:  []float32{1, 0, 0},
	})
	require.NoError(t, err)
}

func TestChatStreamsAnswer(t *testing.T) {
	fixture := &chatFixture{deltas: []string{"The answer ", "is 42."}}
	server := fixture.server(t)
	defer server.Close()

	store := rag.NewMemoryVectorStore(3)
	seedChunk(t, store, "first chunk")
	seedChunk(t, store, "second chunk")

	svc := newTestChat(t, server.URL, store)
	deltas, err := svc.Chat(context.Background(), "owner-a", []models.ChatMessage{
		{Role: models.RoleUser, Content: "what is the answer?"},
	})
	require.NoError(t, err)

	answer, last := collect(t, deltas)
	assert.Equal(t, "The answer is 42.", answer)
	assert.Empty(t, last.Error)
}

func TestChatMessageAssembly(t *testing.T) {
	fixture := &chatFixture{deltas: []string{"ok"}}
	server := fixture.server(t)
	defer server.Close()

	store := rag.NewMemoryVectorStore(3)
	seedChunk(t, store, "first chunk")
	seedChunk(t, store, "second chunk")

	svc := newTestChat(t, server.URL, store)
	conversation := []models.ChatMessage{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "hi"},
		{Role: models.RoleUser, Content: "what do my documents say?"},
	}
	deltas, err := svc.Chat(context.Background(), "owner-a", conversation)
	require.NoError(t, err)
	collect(t, deltas)

	messages := fixture.lastRequest.Messages
	require.Len(t, messages, 5)

	assert.Equal(t, openai.ChatMessageRoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "helpful AI assistant")

	assert.Equal(t, openai.ChatMessageRoleSystem, messages[1].Role)
	assert.True(t, strings.HasPrefix(messages[1].Content, "Context from documents:\n"))
	assert.Contains(t, messages[1].Content, "first chunk\nsecond chunk")

	// 会话历史顺序与角色原样保留
	assert.Equal(t, openai.ChatMessageRoleUser, messages[2].Role)
	assert.Equal(t, "hello", messages[2].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, messages[3].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, messages[4].Role)
	assert.Equal(t, "what do my documents say?", messages[4].Content)

	assert.True(t, fixture.lastRequest.Stream)
}

func TestChatWithNoDocuments(t *testing.T) {
	fixture := &chatFixture{deltas: []string{"I have no documents to go on."}}
	server := fixture.server(t)
	defer server.Close()

	// 空库：上下文块保留但正文为空
	svc := newTestChat(t, server.URL, rag.NewMemoryVectorStore(3))
	deltas, err := svc.Chat(context.Background(), "owner-a", []models.ChatMessage{
		{Role: models.RoleUser, Content: "anything there?"},
	})
	require.NoError(t, err)
	collect(t, deltas)

	messages := fixture.lastRequest.Messages
	require.Len(t, messages, 3)
	assert.Equal(t, "Context from documents:\n", messages[1].Content)
}

func TestChatMidStreamFailure(t *testing.T) {
	fixture := &chatFixture{deltas: []string{"partial ", "never sent"}, abortAfter: 1}
	server := fixture.server(t)
	defer server.Close()

	svc := newTestChat(t, server.URL, rag.NewMemoryVectorStore(3))
	deltas, err := svc.Chat(context.Background(), "owner-a", []models.ChatMessage{
		{Role: models.RoleUser, Content: "question"},
	})
	require.NoError(t, err)

	answer, last := collect(t, deltas)
	assert.Equal(t, "partial ", answer, "content emitted before the failure is kept")
	assert.NotEmpty(t, last.Error)
}

func TestChatUpstreamRejection(t *testing.T) {
	fixture := &chatFixture{failStatus: http.StatusInternalServerError}
	server := fixture.server(t)
	defer server.Close()

	svc := newTestChat(t, server.URL, rag.NewMemoryVectorStore(3))
	_, err := svc.Chat(context.Background(), "owner-a", []models.ChatMessage{
		{Role: models.RoleUser, Content: "question"},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSynthesisFailed, apperrors.CodeOf(err))
}

func TestChatEmptyConversation(t *testing.T) {
	svc := newTestChat(t, "http://127.0.0.1:0", rag.NewMemoryVectorStore(3))
	_, err := svc.Chat(context.Background(), "owner-a", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.CodeOf(err))
}
