package router

import (
	"crm-web/internal/config"
	"crm-web/internal/handler"
	"crm-web/internal/middleware"
	"crm-web/internal/repository"
	"crm-web/internal/service"
	"crm-web/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func SetupAPIRoutes(
	router fiber.Router,
	db *sqlx.DB,
	redis *redis.Client,
	cfg *config.Config,
	dashboard *service.DashboardService,
) {
	logger := utils.GetLogger()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	importRepo := repository.NewImportSessionRepository(db)

	// Initialize Asynq client (optional - only if Redis is available)
	var queue service.TaskEnqueuer
	if redis != nil {
		queue = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg, logger)
	importService := service.NewImportService(importRepo, service.NewExcelService(), queue, redis, cfg, logger)
	contactService := service.NewContactService()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	importHandler := handler.NewImportHandler(importService, cfg)
	contactHandler := handler.NewContactHandler(contactService)
	dashboardHandler := handler.NewDashboardHandler(dashboard)

	// Public routes
	auth := router.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/register", authHandler.Register)
	auth.Post("/logout", authHandler.Logout)

	// Protected routes
	protected := router.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/auth/me", authHandler.Me)

	// Dashboard routes
	dashboards := protected.Group("/dashboard")
	dashboards.Get("/finops", dashboardHandler.FinOps)
	dashboards.Get("/activity", dashboardHandler.Activity)
	dashboards.Post("/refresh", middleware.AdminOnly(), dashboardHandler.Refresh)

	// Contact routes
	protected.Post("/contacts/check", contactHandler.Check)

	// Import routes
	imports := protected.Group("/imports")
	imports.Post("/", importHandler.Upload)
	imports.Get("/", importHandler.GetSessions)
	imports.Get("/template", importHandler.DownloadTemplate)
	imports.Get("/export", importHandler.ExportSessions)
	imports.Get("/error-report/:filename", importHandler.DownloadErrorReport)
	imports.Get("/:code", importHandler.GetSession)
	imports.Get("/:code/rows", importHandler.GetSessionRows)
	imports.Get("/:code/progress", importHandler.GetProgress)
	imports.Post("/:code/submit", importHandler.Submit)
	imports.Delete("/:code", importHandler.DeleteSession)
}
