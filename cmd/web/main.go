package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crm-web/internal/config"
	"crm-web/internal/crmapi"
	"crm-web/internal/database"
	"crm-web/internal/router"
	"crm-web/internal/service"
	"crm-web/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	log := utils.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewMySQL(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it submissions cannot be queued and
	// dashboard snapshots are kept in memory only.
	var redisClient *redis.Client
	if rc, err := database.NewRedis(cfg); err != nil {
		log.WithError(err).Warn("Redis unavailable, background submission disabled")
	} else {
		redisClient = rc
		defer redisClient.Close()
	}

	engine := html.New("./views", ".html")
	engine.Reload(cfg.IsDevelopment())

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		Views:        engine,
		BodyLimit:    cfg.UploadMaxSize + 1<<20,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Static("/static", "./public")

	// Pollers live as long as the process and stop on shutdown.
	pollCtx, stopPollers := context.WithCancel(context.Background())
	dashboard := service.NewDashboardService(crmapi.New(cfg), redisClient, cfg, log)
	pollers := dashboard.Start(pollCtx)

	router.Setup(app, db, redisClient, cfg, dashboard)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Gracefully shutting down...")
		stopPollers()
		_ = app.Shutdown()
	}()

	port := fmt.Sprintf(":%s", cfg.AppPort)
	log.Infof("Server starting on %s", port)
	if err := app.Listen(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	stopPollers()
	pollers.Wait()
	log.Info("Server exited")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if c.Accepts("text/html", "application/json") == "application/json" {
		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"message": message,
			"error":   err.Error(),
		})
	}

	return c.Status(code).Render("error", fiber.Map{
		"Title":   "Error",
		"Code":    code,
		"Message": message,
	})
}
