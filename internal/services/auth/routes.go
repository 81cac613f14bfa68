package auth

import (
	"github.com/gofiber/fiber/v3"

	"github.com/barterly/barter-api/internal/middleware"
)

// SetupRoutes wires the authentication and profile endpoints
func (s *AuthService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/auth")
	api.Post("/register", s.Register)
	api.Post("/login", s.Login)

	users := app.Group("/api/users")
	users.Use(middleware.AuthMiddleware(s.jwtService))
	users.Get("/me", s.Me)
	users.Put("/me", s.UpdateProfile)
}
