package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"storevision-service/internal/clients"
	"storevision-service/internal/config"
	"storevision-service/internal/events"
	"storevision-service/internal/handlers"
	"storevision-service/internal/metrics"
	"storevision-service/internal/middleware"
	"storevision-service/internal/models"
	"storevision-service/internal/repository"
	"storevision-service/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.Product{},
		&models.StockHistory{},
		&models.ScanEvent{},
		&models.ScanItem{},
		&models.ScanResult{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize logrus logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis (optional - product cache off when unavailable)
	redisClient, err := config.InitRedis(cfg)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis: %v", err)
		log.Println("Continuing without product caching...")
		redisClient = nil
	} else if redisClient != nil {
		log.Println("Connected to Redis for product caching")
	}

	// Initialize NATS event publisher (optional - graceful degradation if NATS unavailable)
	var eventPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("Warning: Failed to initialize NATS event publisher: %v", err)
			log.Println("Continuing without event publishing...")
		} else {
			log.Println("Connected to NATS JetStream for event publishing")
			defer eventPublisher.Close()
		}
	} else {
		log.Println("NATS_URL not configured, event publishing disabled")
	}

	// Initialize external clients (optional - scan processing refuses when absent)
	var imageStore services.ImageStore
	if cfg.ImageStoreURL != "" {
		imageStore = clients.NewImageStoreClient(cfg.ImageStoreURL, cfg.ImageStoreAPIKey)
	} else {
		log.Println("IMAGE_STORE_URL not configured, scan uploads disabled")
	}

	var detector services.Detector
	if cfg.DetectorURL != "" {
		detector = clients.NewDetectorClient(cfg.DetectorURL, cfg.DetectorAPIKey, cfg.DetectionThreshold)
	} else {
		log.Println("DETECTOR_URL not configured, scan processing disabled")
	}

	var chatProvider services.ChatProvider
	if cfg.ChatProviderURL != "" {
		chatProvider = clients.NewChatClient(cfg.ChatProviderURL, cfg.ChatProviderAPIKey, cfg.ChatModel)
	} else {
		log.Println("CHAT_PROVIDER_URL not configured, assistant chat disabled")
	}

	// Initialize repositories
	inventoryRepo := repository.NewInventoryRepository(db, redisClient)
	scanRepo := repository.NewScanRepository(db)

	// Initialize services
	var stockPublisher services.StockEventPublisher
	var scanPublisher services.ScanEventPublisher
	if eventPublisher != nil {
		stockPublisher = eventPublisher
		scanPublisher = eventPublisher
	}
	inventoryService := services.NewInventoryService(inventoryRepo, stockPublisher, cfg.LowStockThreshold, logger)
	scanService := services.NewScanService(scanRepo, imageStore, detector, scanPublisher, logger)
	insightService := services.NewInsightService(inventoryRepo, scanRepo, logger)
	assistantService := services.NewAssistantService(chatProvider, logger)

	// Initialize handlers
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, logger)
	scanHandler := handlers.NewScanHandler(scanService, logger)
	insightHandler := handlers.NewInsightHandler(insightService, logger)
	assistantHandler := handlers.NewAssistantHandler(assistantService, logger)
	importHandler := handlers.NewImportHandler(inventoryService)
	healthHandler := handlers.NewHealthHandler(db, inventoryRepo, eventPublisher)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/health/extended", healthHandler.ExtendedHealthCheck)
	router.GET("/ready", healthHandler.ReadyCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected API routes
	api := router.Group("/api/v1")

	if cfg.JWTSecret != "" {
		api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	} else {
		if cfg.Environment == "production" {
			log.Fatal("JWT_SECRET is required in production")
		}
		log.Println("JWT_SECRET not configured, using development auth")
		api.Use(middleware.DevelopmentAuthMiddleware())
	}
	api.Use(middleware.StoreMiddleware())

	// Product catalog and stock ledger routes
	products := api.Group("/products")
	{
		products.POST("", inventoryHandler.CreateProduct)
		products.GET("", inventoryHandler.ListProducts)
		products.GET("/stats", inventoryHandler.GetStats)
		products.GET("/low-stock", inventoryHandler.GetLowStock)
		products.GET("/sku/:sku", inventoryHandler.GetProductBySKU)
		products.GET("/:id", inventoryHandler.GetProduct)
		products.PUT("/:id", inventoryHandler.UpdateProduct)
		products.DELETE("/:id", inventoryHandler.DeleteProduct)
		products.POST("/:id/stock", inventoryHandler.UpdateStock)

		// Import
		products.GET("/import/template", importHandler.GetProductImportTemplate)
		products.POST("/import", importHandler.ImportProducts)
	}

	api.GET("/stock-history", inventoryHandler.GetStockHistory)

	// Scan lifecycle routes
	scans := api.Group("/scans")
	{
		scans.POST("", scanHandler.CreateScanEvent)
		scans.GET("", scanHandler.ListScanEvents)
		scans.GET("/queued", scanHandler.ListQueuedScans)
		scans.GET("/processing", scanHandler.ListProcessingScans)
		scans.GET("/:id", scanHandler.GetScanEvent)
		scans.DELETE("/:id", scanHandler.CancelScan)
		scans.POST("/:id/items", scanHandler.AddItem)
		scans.DELETE("/items/:itemId", scanHandler.RemoveItem)
		scans.POST("/:id/upload", scanHandler.Upload)
		scans.POST("/:id/complete", middleware.RequireRole("owner"), scanHandler.CompleteScan)
	}

	// Insight routes
	insights := api.Group("/insights")
	{
		insights.GET("/daily", insightHandler.DailyMovements)
		insights.GET("/scans", insightHandler.ScanActivity)
		insights.GET("/products", insightHandler.ProductPerformance)
		insights.GET("/trends", insightHandler.InventoryTrends)
		insights.GET("/user-activity", insightHandler.UserActivity)
		insights.GET("/restock", insightHandler.RestockRecommendations)
		insights.GET("/sales", insightHandler.SalesInsights)
	}

	// Assistant routes
	ai := api.Group("/ai")
	{
		ai.POST("/chat", assistantHandler.Chat)
	}

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8088"
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Storevision service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down storevision-service...")

	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Println("Storevision service stopped")
}
