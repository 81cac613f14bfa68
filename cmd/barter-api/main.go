package main

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/barterly/barter-api/internal/config"
	"github.com/barterly/barter-api/internal/db"
	"github.com/barterly/barter-api/internal/messaging"
	"github.com/barterly/barter-api/internal/services/auth"
	"github.com/barterly/barter-api/internal/services/chat"
	"github.com/barterly/barter-api/internal/services/cloudinary"
	"github.com/barterly/barter-api/internal/services/feed"
	"github.com/barterly/barter-api/internal/services/friendship"
	"github.com/barterly/barter-api/internal/services/item"
	"github.com/barterly/barter-api/internal/services/saved"
	"github.com/barterly/barter-api/internal/services/trade"
	"github.com/barterly/barter-api/internal/social"
	"github.com/barterly/barter-api/internal/trading"
	"github.com/barterly/barter-api/internal/utils"
	"github.com/barterly/barter-api/internal/websocket"
)

func main() {
	cfg := config.LoadConfig()

	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("initializing database: %v", err)
	}
	defer db.CloseDB()

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("running migrations: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "Barterly API",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Live update fan-out; every engine notifies through it.
	wsManager := websocket.NewManager()
	defer wsManager.Shutdown()

	coordinator := messaging.New(messaging.NewPGStore(db.Pool), wsManager)
	tradeEngine := trading.NewEngine(trading.NewPGStore(db.Pool), coordinator, wsManager)
	socialEngine := social.NewEngine(social.NewPGStore(db.Pool), wsManager)

	cloudinaryService, err := cloudinary.NewCloudinaryService(cfg)
	if err != nil {
		log.Fatalf("initializing cloudinary: %v", err)
	}

	authService := auth.NewAuthService(cfg)
	itemService := item.NewItemService(cfg, cloudinaryService)
	feedService := feed.NewFeedService(cfg)
	savedService := saved.NewSavedService(cfg)
	tradeService := trade.NewTradeService(cfg, tradeEngine)
	chatService := chat.NewChatService(cfg, coordinator)
	friendshipService := friendship.NewFriendshipService(cfg, socialEngine)

	authService.SetupRoutes(app)
	itemService.SetupRoutes(app)
	feedService.SetupRoutes(app)
	savedService.SetupRoutes(app)
	tradeService.SetupRoutes(app)
	chatService.SetupRoutes(app)
	friendshipService.SetupRoutes(app)
	cloudinaryService.SetupRoutes(app)

	wsHandler := websocket.NewHandler(wsManager, utils.NewJWTService(cfg.JWTSecret))
	go func() {
		if err := wsHandler.ListenAndServe(cfg.WSPort); err != nil {
			log.Fatalf("websocket server: %v", err)
		}
	}()

	log.Printf("Barterly API listening on :%s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// errorHandler converts unhandled errors into JSON responses
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
