package router

import (
	"crm-web/internal/config"
	"crm-web/internal/importer"
	"crm-web/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func Setup(app *fiber.App, db *sqlx.DB, redis *redis.Client, cfg *config.Config, dashboard *service.DashboardService) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"app":    cfg.AppName,
		})
	})

	// Web routes (HTML)
	web := app.Group("")
	setupWebRoutes(web, cfg, dashboard)

	// API routes (JSON)
	api := app.Group("/api/v1")
	SetupAPIRoutes(api, db, redis, cfg, dashboard)
}

func setupWebRoutes(router fiber.Router, cfg *config.Config, dashboard *service.DashboardService) {
	router.Get("/login", func(c *fiber.Ctx) error {
		return c.Render("auth/login", fiber.Map{
			"Title": "Login",
		})
	})

	router.Get("/", func(c *fiber.Ctx) error {
		return c.Render("dashboard/index", fiber.Map{
			"Title":    "Dashboard",
			"FinOps":   dashboard.FinOps(),
			"Activity": dashboard.Activity(),
		})
	})

	router.Get("/imports", func(c *fiber.Ctx) error {
		return c.Render("imports/index", fiber.Map{
			"Title": "Client Imports",
		})
	})

	router.Get("/imports/new", func(c *fiber.Ctx) error {
		return c.Render("imports/new", fiber.Map{
			"Title":         "Import Clients",
			"Headers":       importer.TemplateHeaders(),
			"MaxUploadSize": cfg.UploadMaxSize,
		})
	})
}
