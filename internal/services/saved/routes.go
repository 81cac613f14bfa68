package saved

import (
	"github.com/gofiber/fiber/v3"

	"github.com/barterly/barter-api/internal/middleware"
)

// SetupRoutes wires the saved-items endpoints
func (s *SavedService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/saved")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Post("/", s.SaveItem)
	api.Get("/", s.GetSavedItems)
	api.Get("/check/:id", s.CheckSaved)
	api.Delete("/:id", s.UnsaveItem)
}
