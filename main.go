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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Mediabooster-Norge/Analyse-sub000/ai"
	"github.com/Mediabooster-Norge/Analyse-sub000/analyzer"
	"github.com/Mediabooster-Norge/Analyse-sub000/fetcher"
	"github.com/Mediabooster-Norge/Analyse-sub000/grader"
	"github.com/Mediabooster-Norge/Analyse-sub000/middleware"
	"github.com/Mediabooster-Norge/Analyse-sub000/pipeline"
	"github.com/Mediabooster-Norge/Analyse-sub000/stats"
	"github.com/Mediabooster-Norge/Analyse-sub000/store"
)

func loadEnv() {
	// Try .env.development first (for local development), then .env.
	if err := godotenv.Load(".env.development"); err != nil {
		_ = godotenv.Load()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	loadEnv()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	mode := envOr("GIN_MODE", gin.ReleaseMode)
	gin.SetMode(mode)

	dataDir := envOr("DATA_DIR", "./data")

	// Persistence: redis when configured, otherwise the JSON-file store.
	var st store.Store
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisStore := store.NewRedisStore(addr)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisStore.Ping(ctx); err != nil {
			logger.Fatal("redis unreachable", zap.String("addr", addr), zap.Error(err))
		}
		cancel()
		st = redisStore
		logger.Info("using redis store", zap.String("addr", addr))
	} else {
		fileStore, err := store.NewFileStore(dataDir)
		if err != nil {
			logger.Fatal("failed to open file store", zap.Error(err))
		}
		st = fileStore
		logger.Info("using file store", zap.String("dir", dataDir))
	}

	statsStorage, err := stats.NewStorage(dataDir)
	if err != nil {
		logger.Fatal("failed to initialize stats storage", zap.Error(err))
	}

	var aiSvc ai.Service
	if baseURL := os.Getenv("AI_BASE_URL"); baseURL != "" {
		aiSvc = ai.NewOpenAIClient(baseURL, os.Getenv("AI_API_KEY"),
			envOr("AI_MODEL", "gpt-4o-mini"), os.Getenv("AI_PREMIUM_MODEL"))
	} else {
		logger.Warn("AI_BASE_URL not set, AI enrichment disabled")
	}

	workers, _ := strconv.Atoi(envOr("COMPETITOR_WORKERS", "4"))

	fetchClient := fetcher.New()
	service := pipeline.New(
		fetchClient,
		analyzer.NewSEOAnalyzer(fetchClient),
		analyzer.NewContentAnalyzer(),
		analyzer.NewSecurityAnalyzer(grader.NewTLSGrader(), grader.NewHeaderGrader()),
		aiSvc,
		st,
		workers,
		logger,
	)

	h := &handlers{service: service, store: st, stats: statsStorage, log: logger}
	rateLimiter := middleware.NewRateLimiter(2, 5)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler(logger))
	r.Use(rateLimiter.RateLimit())
	r.Use(middleware.Stats(statsStorage))

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Cache-Control")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.POST("/analyze", h.analyze)
		api.POST("/competitors", h.analyzeCompetitors)
		api.GET("/analyses/:id", h.getAnalysis)
		api.PUT("/analyses/:id/competitors", h.updateCompetitors)
		api.PUT("/analyses/:id/keywords", h.updateKeywords)
		api.GET("/statistics", h.statistics)
	}

	port := envOr("PORT", "8082")
	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		logger.Info("server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Both JSON stores batch disk writes through a background writer, so the
	// shutdown path must flush them or recent writes are lost.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := statsStorage.Shutdown(); err != nil {
		logger.Error("stats flush failed", zap.Error(err))
	}
	if fileStore, ok := st.(*store.FileStore); ok {
		if err := fileStore.Shutdown(); err != nil {
			logger.Error("store flush failed", zap.Error(err))
		}
	}
}
