package friendship

import (
	"github.com/gofiber/fiber/v3"

	"github.com/barterly/barter-api/internal/middleware"
)

// SetupRoutes wires the friendship endpoints
func (s *FriendshipService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/friends")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetFriends)
	api.Get("/requests", s.GetPendingRequests)
	api.Post("/requests", s.SendRequest)
	api.Put("/requests/:id", s.RespondToRequest)
	api.Get("/search", s.SearchUsers)
}
