package feed

import (
	"github.com/gofiber/fiber/v3"

	"github.com/barterly/barter-api/internal/middleware"
)

// SetupRoutes registers the discovery feed routes
func (s *FeedService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/feed")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetFeed)
}
