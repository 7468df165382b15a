package handlers

import (
	"fitadmin/internal/app"
	"fitadmin/internal/handlers/middleware"
	"fitadmin/internal/logger"
	. "fitadmin/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func newHandler(app *app.App, router fiber.Router, file string) Handler {
	return Handler{
		log:        logger.New("handlers").File(file),
		router:     router,
		middleware: app.Middleware,
	}
}

func Router(router fiber.Router, app *app.App) (err error) {
	setupWebSocketRoute(router, app)

	api := router.Group("/api")
	HealthHandler(api, app)
	api.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	NewSyncHandler(app, api).Register()
	NewPlaybackHandler(app, api).Register()
	NewMemberHandler(app, api).Register()
	NewSubjectHandler(app, api).Register()
	NewResultHandler(app, api).Register()
	NewStatisticsHandler(app, api).Register()

	return nil
}

func setupWebSocketRoute(router fiber.Router, app *app.App) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(func(c *websocket.Conn) {
		app.Websocket.HandleWebSocket(c)
	}))
}

func HealthHandler(router fiber.Router, app *app.App) {
	log := logger.New("handlers").File("router").Function("health")

	router.Get("/health", func(c *fiber.Ctx) error {
		if err := app.Database.Ping(c.Context()); err != nil {
			log.Er("database ping failed", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "unhealthy",
				"version": app.Config.GeneralVersion,
				"error":   "database unavailable",
			})
		}

		return c.JSON(fiber.Map{
			"status":      "ok",
			"version":     app.Config.GeneralVersion,
			"kvsEnabled":  app.Negotiator.Configured(),
			"environment": app.Config.Environment,
		})
	})
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
}

func pageFrom(c *fiber.Ctx) Page {
	return NewPage(c.QueryInt("page", 1), c.QueryInt("pageSize", DefaultPageSize))
}
