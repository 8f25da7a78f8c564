package controllers

import (
	"github.com/go-playground/validator/v10"

	"github.com/docchat/backend-go/internal/auth"
	"github.com/docchat/backend-go/internal/di"
	"github.com/docchat/backend-go/internal/middleware"
	"github.com/docchat/backend-go/internal/services"
)

// Beego按请求反射实例化controller，服务依赖只能走包级单例。
// Init在bootstrap完成后从DI容器取出服务实例。
var (
	sessionService   *auth.SessionService
	ingestionService *services.IngestionService
	chatService      *services.ChatService
	documentService  *services.DocumentService
	storageService   *middleware.MinIOService

	validate = validator.New()
)

// Init 从DI容器解析controller依赖的服务单例
func Init() error {
	return di.Invoke(func(
		session *auth.SessionService,
		ingestion *services.IngestionService,
		chat *services.ChatService,
		document *services.DocumentService,
		storage *middleware.MinIOService,
	) {
		sessionService = session
		ingestionService = ingestion
		chatService = chat
		documentService = document
		storageService = storage
	})
}
