package controllers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/docchat/backend-go/internal/errors"
	"github.com/docchat/backend-go/internal/logger"
)

// DocumentController 文档接入与查询接口
type DocumentController struct {
	BaseController
}

// ProcessDocumentRequest 文档接入请求
type ProcessDocumentRequest struct {
	FileName string `json:"file_name" validate:"required"`
	UserID   string `json:"user_id"`
}

// Upload 接收multipart文件并写入对象存储，不触发接入。
// 客户端随后调用Process按文件名处理。
func (c *DocumentController) Upload() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "未授权")
		return
	}

	file, header, err := c.GetFile("file")
	if err != nil || file == nil {
		c.JSONError(http.StatusBadRequest, "未找到上传文件")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	err = storageService.Upload(c.Ctx.Request.Context(), header.Filename, file, header.Size, contentType)
	if err != nil {
		logger.Error("Document upload failed",
			zap.String("file_name", header.Filename),
			zap.String("owner_id", userID),
			zap.Error(err))
		c.JSONError(apperrors.HTTPCodeOf(err), "文件上传失败")
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"file_name": header.Filename,
		"size":      header.Size,
	})
}

// Process 处理一个已上传到对象存储的文档：
// 提取文本、分块、向量化并写入块存储。同步执行，完成后返回。
func (c *DocumentController) Process() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "未授权")
		return
	}

	var req ProcessDocumentRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "请求参数错误")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, "file_name不能为空")
		return
	}

	// 请求体里的user_id仅在与会话一致时生效，防止跨租户写入
	if req.UserID != "" && req.UserID != userID {
		c.JSONError(http.StatusForbidden, "无权操作其他用户的文档")
		return
	}

	err := ingestionService.ProcessDocument(c.Ctx.Request.Context(), req.FileName, userID)
	if err != nil {
		logger.Error("Document processing failed",
			zap.String("file_name", req.FileName),
			zap.String("owner_id", userID),
			zap.Error(err))
		c.JSONError(apperrors.HTTPCodeOf(err), "文档处理失败")
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"file_name": req.FileName,
	})
}

// List 列出当前用户的全部文档
func (c *DocumentController) List() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "未授权")
		return
	}

	docs, err := documentService.ListByOwner(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.JSONError(apperrors.HTTPCodeOf(err), "查询文档列表失败")
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
	})
}

// Status 查询单个文档的接入进度
func (c *DocumentController) Status() {
	userID, ok := c.getAuthenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "未授权")
		return
	}

	fileName := c.GetString("file_name")
	if fileName == "" {
		c.JSONError(http.StatusBadRequest, "file_name不能为空")
		return
	}

	status, err := documentService.Status(c.Ctx.Request.Context(), userID, fileName)
	if err != nil {
		c.JSONError(apperrors.HTTPCodeOf(err), "查询文档状态失败")
		return
	}
	if status == nil {
		c.JSONError(http.StatusNotFound, "文档不存在")
		return
	}

	c.JSONSuccess(status)
}
