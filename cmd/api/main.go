package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"moneta/internal/config"
	"moneta/internal/database"
	"moneta/internal/handlers"
	"moneta/internal/llm"
	"moneta/internal/logger"
	"moneta/internal/middleware"
	"moneta/internal/parser"
	"moneta/internal/services"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Connect to Gemini. A nil client keeps the service fully usable:
	// categorization falls back to rules and chat answers in SQL mode.
	geminiClient, err := llm.NewClient(context.Background(), llm.Config{
		APIKey:     appConfig.GeminiAPIKey,
		Model:      appConfig.GeminiModel,
		EmbedModel: appConfig.EmbeddingModel,
		EmbedDim:   appConfig.EmbeddingDim,
	})
	if err != nil {
		return fmt.Errorf("failed to create gemini client: %w", err)
	}
	if geminiClient == nil {
		log.Warn("GEMINI_API_KEY not set, running with rule-based categorization and SQL-only chat")
	}

	var classifier llm.Classifier
	var planner llm.Planner
	var composer llm.Composer
	var embedder llm.Embedder
	if geminiClient != nil {
		classifier = llm.NewGeminiClassifier(geminiClient)
		planner = llm.NewGeminiPlanner(geminiClient)
		composer = llm.NewGeminiComposer(geminiClient)
		embedder = geminiClient
	}

	// Initialize services
	db := dbManager.DB()
	categoryService := services.NewCategoryService(db)
	if err := categoryService.Seed(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	categorizer := services.NewCategorizer(classifier, services.DefaultCategories)
	merchantService := services.NewMerchantService(db, categorizer, categoryService, appConfig.MerchantNoiseTokens)
	embeddingService := services.NewEmbeddingService(db, embedder)
	statementParser := parser.New(parser.KeyConfig{WithCard: appConfig.DedupWithCard})
	uploadService := services.NewUploadService(db, statementParser, merchantService, embeddingService)
	transactionService := services.NewTransactionService(db)
	chatService := services.NewChatService(db, planner, composer, embeddingService, services.ChatConfig{
		ContextTurns:    appConfig.ChatContextTurns,
		ContextMaxChars: appConfig.ChatContextMaxChars,
		DefaultTopK:     appConfig.ChatDefaultTopK,
		NoiseTokens:     appConfig.MerchantNoiseTokens,
	})

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(uploadService)
	merchantHandler := handlers.NewMerchantHandler(merchantService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	chatHandler := handlers.NewChatHandler(chatService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")
	v1.Use(middleware.APITokenAuth(appConfig.APIToken))

	// Upload routes
	uploads := v1.Group("/uploads")
	uploads.POST("", uploadHandler.Upload)
	uploads.GET("/:id", uploadHandler.GetStatus)

	// Merchant routes
	merchants := v1.Group("/merchants")
	merchants.GET("", merchantHandler.List)
	merchants.PATCH("/:id", merchantHandler.UpdateCategory)

	// Category routes
	v1.GET("/categories", categoryHandler.List)

	// Transaction routes
	v1.GET("/transactions", transactionHandler.List)

	// Chat routes
	chat := v1.Group("/chat")
	chat.POST("", chatHandler.Ask)
	chat.POST("/threads", chatHandler.CreateThread)
	chat.GET("/threads", chatHandler.ListThreads)
	chat.GET("/threads/:id", chatHandler.GetThread)
	chat.PATCH("/threads/:id", chatHandler.UpdateThread)
	chat.DELETE("/threads/:id", chatHandler.DeleteThread)
	chat.GET("/threads/:id/messages", chatHandler.ListMessages)

	log.Infof("Starting Moneta backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
