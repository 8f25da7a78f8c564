package controllers

import (
	"net/http"
	"strings"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/docchat/backend-go/internal/config"
	"github.com/docchat/backend-go/internal/logger"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// getAuthenticatedUserID 获取认证用户ID。
// 正式路径是Bearer token经会话服务校验；开发环境允许
// X-User-Id header直通，方便本地调试。
func (c *BaseController) getAuthenticatedUserID() (string, bool) {
	// 1. Authorization: Bearer {token}
	authHeader := c.Ctx.Input.Header("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" && sessionService != nil {
			claims, err := sessionService.ValidateToken(parts[1])
			if err == nil {
				return claims.UserID, true
			}
			logger.Warn("Invalid session token",
				zap.String("path", c.Ctx.Request.RequestURI),
				zap.Error(err))
		}
	}

	// 2. 开发/测试环境：X-User-Id header直通
	cfg := config.GetAppConfig()
	if cfg == nil || cfg.Server.Env != "production" {
		if userID := c.Ctx.Input.Header("X-User-Id"); userID != "" {
			logger.Warn("SECURITY WARNING: Using X-User-Id header in non-production environment",
				zap.String("path", c.Ctx.Request.RequestURI),
				zap.String("method", c.Ctx.Request.Method),
				zap.String("ip", c.getClientIP()))
			return userID, true
		}
	}

	return "", false
}

// getClientIP 获取客户端真实IP地址
func (c *BaseController) getClientIP() string {
	xForwardedFor := c.Ctx.Input.Header("X-Forwarded-For")
	if xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	xRealIP := c.Ctx.Input.Header("X-Real-IP")
	if xRealIP != "" {
		return xRealIP
	}

	return c.Ctx.Input.IP()
}
