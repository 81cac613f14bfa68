package item

import (
	"github.com/gofiber/fiber/v3"

	"github.com/barterly/barter-api/internal/middleware"
)

// SetupRoutes wires the item catalog endpoints
func (s *ItemService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/items")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Post("/create", s.CreateItem)
	api.Get("/my", s.GetMyItems)
	api.Get("/:id", s.GetItem)
	api.Put("/:id", s.UpdateItem)
	api.Put("/:id/availability", s.SetAvailability)
	api.Delete("/:id", s.DeleteItem)
}
