package controllers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/docchat/backend-go/internal/errors"
	"github.com/docchat/backend-go/internal/logger"
	"github.com/docchat/backend-go/internal/models"
)

// ChatController 基于文档的流式对话接口
type ChatController struct {
	BaseController
}

// ChatRequest 对话请求：完整会话历史，最后一条用户消息作为检索查询
type ChatRequest struct {
	Messages []models.ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

// textError 流式端点的非流式失败用纯文本响应
func (c *ChatController) textError(status int, message string) {
	c.Ctx.Output.Header("Content-Type", "text/plain; charset=utf-8")
	c.Ctx.Output.SetStatus(status)
	c.Ctx.Output.Body([]byte(message))
}

// Stream 对一段会话做检索增强合成，以分块文本流式返回。
// 流建立前的失败返回非2xx纯文本错误；流开始后的失败直接截断，
// 已发出的内容不回收。
func (c *ChatController) Stream() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		c.textError(http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.textError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.textError(http.StatusBadRequest, "messages must not be empty")
		return
	}

	ctx := c.Ctx.Request.Context()
	deltas, err := chatService.Chat(ctx, userID, req.Messages)
	if err != nil {
		logger.Error("Chat synthesis failed",
			zap.String("owner_id", userID),
			zap.Error(err))
		c.textError(apperrors.HTTPCodeOf(err), "failed to generate response")
		return
	}

	w := c.Ctx.ResponseWriter
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.ResponseWriter.(http.Flusher)

	for delta := range deltas {
		if delta.Content != "" {
			if _, err := w.Write([]byte(delta.Content)); err != nil {
				// 客户端断开，消费剩余增量让生产者退出
				for range deltas {
				}
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if delta.Error != "" {
			logger.Error("Chat stream terminated mid-flight",
				zap.String("owner_id", userID),
				zap.String("reason", delta.Error))
			return
		}
	}
}
