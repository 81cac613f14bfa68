package chat

import (
	"github.com/gofiber/fiber/v3"

	"github.com/barterly/barter-api/internal/middleware"
)

// SetupRoutes wires the conversation and message endpoints
func (s *ChatService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/chats")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetConversations)
	api.Post("/", s.CreateConversation)
	api.Get("/:id/messages", s.GetMessages)
	api.Post("/:id/messages", s.SendMessage)
	api.Put("/:id/read", s.MarkRead)
	api.Post("/:id/hide", s.HideConversation)
}
