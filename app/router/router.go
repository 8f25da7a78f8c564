package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/docchat/backend-go/app/controllers"
	"github.com/docchat/backend-go/app/middleware"
)

// Init registers all routes. Must be called after config is loaded.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	// 文档接入路由
	documentController := &controllers.DocumentController{}
	web.Router("/api/documents", documentController, "get:List")
	web.Router("/api/documents/upload", documentController, "post:Upload")
	web.Router("/api/documents/process", documentController, "post:Process")
	web.Router("/api/documents/status", documentController, "get:Status")

	// 对话路由
	chatController := &controllers.ChatController{}
	web.Router("/api/chat", chatController, "post:Stream")
}
