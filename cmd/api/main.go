package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "portalwarga/api/swagger" // swagger docs
	"portalwarga/internal/config"
	"portalwarga/internal/database"
	"portalwarga/internal/handler"
	"portalwarga/internal/identity"
	"portalwarga/internal/logger"
	"portalwarga/internal/middleware"
	"portalwarga/internal/repository"
	"portalwarga/internal/service"
	"portalwarga/internal/storage"
	"portalwarga/internal/websocket"
	"portalwarga/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Portal Warga API
// @version         1.0
// @description     Purchase request approval, ledger and budget tracking for the residents' portal.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}
	logger.Init(cfg.Log.Level)
	gin.SetMode(cfg.App.Mode)
	middleware.InitAuth(cfg.Auth.JWTSecret, cfg.IsRelease())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DSN(), *cfg.Database.DebugMode, *cfg.Database.MigrateOnStart)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Info("Connected to PostgreSQL successfully.")

	objectStorage, err := storage.NewMinioStorage(ctx, storage.MinioConfig{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		UseSSL:          *cfg.Storage.UseSSL,
	})
	if err != nil {
		log.Fatalf("Object storage init failed: %v", err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	requestRepo := repository.NewPurchaseRequestRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	identityProvider := identity.NewProfileProvider(profileRepo)
	policy := service.NewRolePolicy(cfg.Roles.Admins, cfg.Roles.Approvers, cfg.Roles.Processors)

	ledgerService := service.NewLedgerService(ledgerRepo, categoryRepo, auditRepo, txManager, identityProvider, policy)
	budgetService := service.NewBudgetService(budgetRepo, ledgerRepo, auditRepo, txManager, identityProvider, policy)
	auditService := service.NewAuditService(auditRepo, identityProvider, policy)
	statisticsService := service.NewStatisticsService(statsRepo)
	requestService := service.NewPurchaseRequestService(
		requestRepo, categoryRepo, auditRepo, txManager,
		ledgerService, budgetService, objectStorage,
		identityProvider, policy, wsHub, cfg.SignedURLTTL(),
	)

	// Initialize Handlers
	meHandler := handler.NewMeHandler(identityProvider, policy)
	requestHandler := handler.NewPurchaseRequestHandler(requestService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	categoryHandler := handler.NewCategoryHandler(ledgerService)
	budgetHandler := handler.NewBudgetHandler(budgetService)
	auditHandler := handler.NewAuditHandler(auditService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.App.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", logger.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/swagger"})))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if err := database.Ping(db); err != nil {
			c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "database unreachable"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	// API Routing
	meHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	ledgerHandler.RegisterRoutes(router.Group(""))
	categoryHandler.RegisterRoutes(router.Group(""))
	budgetHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Gracefully shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error when try gracefully shutting down")
	}
	log.Info("HTTP server successfully stopped")
}
