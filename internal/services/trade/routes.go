package trade

import (
	"github.com/gofiber/fiber/v3"

	"github.com/barterly/barter-api/internal/middleware"
)

// SetupRoutes wires the trade request endpoints
func (s *TradeService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/trades")

	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Post("/", s.CreateTrade)
	api.Get("/", s.GetMyTrades)
	api.Get("/:id", s.GetTrade)
	api.Put("/:id/status", s.UpdateTradeStatus)
}
