package http

import (
	"time"

	"github.com/askledger/backend/internal/config"
	"github.com/askledger/backend/internal/http/handlers"
	"github.com/askledger/backend/internal/middleware"
	"github.com/askledger/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	requestHandler *handlers.RequestHandler,
	accountHandler *handlers.AccountHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Token issue (guarded by shared secret, not JWT)
	api.Post("/auth/token", authHandler.IssueToken)

	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Account
	protected.Get("/me/balance", accountHandler.GetBalance)
	protected.Get("/me/deposit-info", accountHandler.GetDepositInfo)

	// Requests
	protected.Post("/requests", middleware.RequirePermission(rbac.PermCreateRequest), requestHandler.Create)
	protected.Get("/requests/my", requestHandler.ListMine)
	protected.Get("/requests/count", requestHandler.Count)
	protected.Get("/requests/:id", requestHandler.Get)
	protected.Post("/requests/:id/fulfill", middleware.RequirePermission(rbac.PermFulfillRequest), requestHandler.Fulfill)
	protected.Post("/requests/:id/reclaim", middleware.RequirePermission(rbac.PermReclaimDeposit), requestHandler.Reclaim)
	protected.Get("/requests/:id/events", requestHandler.GetEvents)

	// Ledger
	protected.Get("/ledger/stats", requestHandler.Stats)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
