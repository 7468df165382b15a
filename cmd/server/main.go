package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitadmin/internal/app"
	"fitadmin/internal/handlers"
	"fitadmin/internal/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	shutdownTimeout    = 15 * time.Second
	sessionPurgePeriod = time.Hour
	maxBodySize        = 16 * 1024 * 1024
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	a, err := app.New()
	if err != nil {
		logger.New("main").Function("run").Er("failed to initialize app", err)
		return err
	}
	defer a.Close()

	logger.SetLevel(a.Config.LogLevel)
	log := logger.New("main").Function("run")

	server := fiber.New(fiber.Config{
		AppName:      "fitadmin " + a.Config.GeneralVersion,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		BodyLimit:    maxBodySize,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	server.Use(recover.New())
	server.Use(fiberLogger.New(fiberLogger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: a.Config.CorsAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	if err := handlers.Router(server, a); err != nil {
		return log.Err("failed to register routes", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeSessions(ctx, a)

	errCh := make(chan error, 1)
	go func() {
		address := fmt.Sprintf(":%d", a.Config.ServerPort)
		log.Info("Starting server", "address", address, "environment", a.Config.Environment)
		errCh <- server.Listen(address)
	}()

	select {
	case err := <-errCh:
		return log.Err("server stopped", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return log.Err("failed to shut down server", err)
	}
	return nil
}

func purgeSessions(ctx context.Context, a *app.App) {
	log := logger.New("main").Function("purgeSessions")

	ticker := time.NewTicker(sessionPurgePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := a.MemberController.PurgeExpiredSessions(ctx)
			if err != nil {
				log.Er("failed to purge expired sessions", err)
				continue
			}
			if purged > 0 {
				log.Info("Purged expired sessions", "count", purged)
			}
		}
	}
}
