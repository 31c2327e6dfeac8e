package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sop-assistant/internal/ai"
	"sop-assistant/internal/config"
	"sop-assistant/internal/logger"
	"sop-assistant/internal/telemetry"
	"sop-assistant/internal/vectorstore"
	"sop-assistant/middleware"
	"sop-assistant/routes"
	"sop-assistant/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("sop-assistant")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	// Connect to MongoDB (conversation history)
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	// Embedding provider (shared read-only across all queries)
	ctx := context.Background()
	embedder, err := ai.NewGeminiEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	gemini, err := ai.NewGeminiClient(ctx, cfg)
	if err != nil {
		logger.Warn("LLM client unavailable, using retrieval-only answers", "error", err)
		gemini = nil
	} else {
		defer gemini.Close()
	}

	// Load the vector index built by ingestion. Without it the service
	// cannot answer anything, so refuse to start.
	store, err := vectorstore.Load(cfg.VectorstorePath, cfg.EmbeddingsModel)
	if err != nil {
		if errors.Is(err, vectorstore.ErrNotFound) {
			log.Fatalf("No vector index at %s - run cmd/ingest first", cfg.VectorstorePath)
		}
		log.Fatal("Failed to load vector index:", err)
	}
	logger.Info("Vector index loaded", "chunks", store.Len(), "model", store.Model())

	retriever := services.NewRetriever(cfg, embedder, store)

	// Task queue client for async reindexing
	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("sop-assistant"))
	router.Use(middleware.RequestIDMiddleware())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	// Redis-backed rate limiting. Fail open when Redis is unreachable.
	if rdb, err := config.NewRedisClient(cfg); err != nil {
		logger.Warn("Rate limiting disabled", "error", err)
	} else {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":             "healthy",
			"timestamp":          time.Now(),
			"vectorstore_loaded": retriever.IndexSize() > 0,
			"llm_available":      gemini != nil,
		})
	})

	// API information
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "SOP Assistant API",
			"endpoints": gin.H{
				"GET /health":                      "Health check",
				"POST /ask":                        "Ask a question",
				"GET /ask":                         "Ask a question with streaming response",
				"GET /chat/conversations":          "List conversations",
				"GET /chat/conversations/:session": "Conversation history",
				"POST /ingest":                     "Queue index rebuild",
				"POST /index/reload":               "Reload index from disk",
				"GET /web":                         "Chat front end",
			},
		})
	})

	// Chat front end
	router.Static("/static", "./static")
	router.GET("/web", func(c *gin.Context) {
		c.File("./static/index.html")
	})

	// Setup routes
	routes.SetupAskRoutes(router, cfg, retriever, gemini, metrics, mongoClient)
	routes.SetupChatRoutes(router, cfg, mongoClient)
	routes.SetupIngestRoutes(router, cfg, retriever, queueClient)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
