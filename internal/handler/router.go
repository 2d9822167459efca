package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/sprint-ai/internal/service"
)

// RegisterRoutes mounts every API endpoint under /api.
func RegisterRoutes(app *fiber.App,
	aiSvc service.AIService,
	chatSvc service.ChatService,
	counts TaskCounter,
) {

	api := app.Group("/api")
	NewAIHandler(aiSvc).Register(api)
	NewChatHandler(chatSvc).Register(api)
	NewProjectHandler(counts).Register(api)
}
