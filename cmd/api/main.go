package main

import (
	"context"
	"os"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"backend/pkg/logger"
	"backend/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Certification Operations API
// @version         1.0
// @description     Workflow backend for certificate requests, purchase requisitions, invoicing, and expense tracking.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "certify-api",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Output:      os.Stderr,
	})

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to postgres")

	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	requisitionRepo := repository.NewRequisitionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)

	// Services
	roleService := service.NewRoleService(db, roleRepo)
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("role seeding failed")
	}
	notificationService := service.NewNotificationService(db, notificationRepo, wsHub, log)
	userService := service.NewUserService(db, userRepo, roleService, cfg.JWT)
	requestService := service.NewRequestService(db, requestRepo, historyRepo, auditRepo, roleService, notificationService)
	taskService := service.NewTaskService(db, txManager, taskRepo, requestRepo, historyRepo, auditRepo, notificationService)
	requisitionService := service.NewRequisitionService(db, requisitionRepo, historyRepo, auditRepo, roleService, notificationService)
	invoiceService := service.NewInvoiceService(db, txManager, invoiceRepo, historyRepo, auditRepo, roleService, notificationService)
	expenseService := service.NewExpenseService(db, expenseRepo, auditRepo)
	statisticsService := service.NewStatisticsService(statisticsRepo, expenseRepo)
	auditService := service.NewAuditService(auditRepo)

	// Handlers
	guard := middleware.NewGuard(roleService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	requestHandler := handler.NewRequestHandler(requestService)
	taskHandler := handler.NewTaskHandler(taskService)
	requisitionHandler := handler.NewRequisitionHandler(requisitionService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	expenseHandler := handler.NewExpenseHandler(expenseService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	auditHandler := handler.NewAuditHandler(auditService)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.App.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))
	router.Use(metrics.Middleware())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", metrics.Handler())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, []byte(cfg.JWT.Secret))
	})

	// Public auth endpoints
	userHandler.RegisterPublicRoutes(router.Group(""))

	// Authenticated API
	authed := router.Group("", middleware.AuthRequired(cfg.JWT.Secret))
	userHandler.RegisterRoutes(authed, guard)
	roleHandler.RegisterRoutes(authed, guard)
	requestHandler.RegisterRoutes(authed, guard)
	taskHandler.RegisterRoutes(authed, guard)
	requisitionHandler.RegisterRoutes(authed, guard)
	invoiceHandler.RegisterRoutes(authed, guard)
	expenseHandler.RegisterRoutes(authed, guard)
	statisticsHandler.RegisterRoutes(authed, guard)
	auditHandler.RegisterRoutes(authed, guard)
	notificationHandler.RegisterRoutes(authed, guard)

	log.Info().Str("port", cfg.App.Port).Msg("server listening")
	if err := router.Run(":" + cfg.App.Port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
