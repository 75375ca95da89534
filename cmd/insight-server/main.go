package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/salesight/sales-ai/internal/auth"
	"github.com/salesight/sales-ai/internal/config"
	"github.com/salesight/sales-ai/internal/engine"
	"github.com/salesight/sales-ai/internal/llm"
	"github.com/salesight/sales-ai/internal/observability"
	"github.com/salesight/sales-ai/internal/processor"
	"github.com/salesight/sales-ai/internal/semantic"
	"github.com/salesight/sales-ai/internal/session"
)

func main() {
	ctx := context.Background()
	logger := observability.NewLogger("main")

	cfg := config.NewDefaultLoader().MustLoad(ctx)
	if err := cfg.ValidateWithContext(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	gin.SetMode(cfg.Server.GinMode)

	// Redis backs the result cache and conversation history
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Analytical store, circuit breaker in front
	store, err := engine.NewClient(engine.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		Database:     cfg.Database.Database,
		Username:     cfg.Database.Username,
		Password:     cfg.Database.Password,
		SSLMode:      cfg.Database.SSLMode,
		QueryTimeout: cfg.Query.Timeout,
		MaxRows:      cfg.Query.MaxRows,
	})
	if err != nil {
		log.Fatal("Failed to connect to the sales store: ", err)
	}
	defer store.Close()
	executor := engine.NewCircuitBreakerClient(store, "sales-store", engine.DefaultCircuitBreakerConfig)

	// Translator is optional; without it every question resolves through the
	// fallback catalog
	var translator llm.Client
	if cfg.OpenAI.APIKey != "" {
		openai, err := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
		if err != nil {
			log.Fatal("Failed to initialize translator client: ", err)
		}
		translator = llm.NewCircuitBreakerClient(openai, "openai", llm.DefaultCircuitBreakerConfig)
	} else {
		logger.Warn(ctx, "no translator API key configured, running on fallback catalog only", nil)
	}

	// Exemplar store is best-effort: without it the translator prompt just
	// carries no few-shot examples
	var exemplars semantic.Store
	if pgStore, err := semantic.NewPostgresStore(semantic.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	}); err != nil {
		logger.Warn(ctx, "exemplar store unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		exemplars = pgStore
		defer pgStore.Close()
	}

	catalog := processor.NewFallbackCatalog()
	checker := processor.NewSafetyChecker(cfg.Query.MaxRows)
	resolver := processor.NewQueryResolver(translator, checker, catalog, exemplars, cfg.Query.ExemplarLimit)
	selector := processor.NewChartSelector(cfg.Chart.PieMaxCategories, cfg.Chart.SeriesMaxCardinality)
	history := session.NewHistory(rdb, cfg.Auth.SessionExpiry)

	qp := processor.NewQueryProcessor(resolver, executor, selector, catalog, rdb, history, processor.Config{
		MaxQuestionLength: cfg.Query.MaxQuestionLength,
		CacheTTL:          cfg.Query.CacheTTL,
	})

	authManager := auth.NewAuthManager(auth.AuthConfig{
		JWTSecret:      cfg.Auth.JWTSecret,
		JWTExpiry:      cfg.Auth.JWTExpiry,
		RateLimit:      cfg.Auth.RateLimit,
		AllowAnonymous: cfg.Auth.AllowAnonymous,
	})
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			authManager.CleanupExpired()
		}
	}()

	healthChecker := newHealthChecker(store, rdb, translator)

	router := gin.New()
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(observability.RequestLoggingMiddleware(logger))
	router.Use(observability.CORSWithLogging(logger))
	router.Use(observability.MetricsEndpointMiddleware(observability.GetGlobalMetrics()))
	router.Use(authManager.Middleware())

	router.GET("/health", func(c *gin.Context) {
		response := healthChecker.GetHealthResponse(c.Request.Context())
		statusCode := http.StatusOK
		if response.Status == observability.HealthStatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, response)
	})

	api := router.Group("/api/v1")
	qp.SetupRoutes(api)
	auth.NewAuthHandlers(authManager).SetupRoutes(api)

	logger.Info(ctx, "insight server starting", map[string]interface{}{
		"port":       cfg.Server.Port,
		"gin_mode":   cfg.Server.GinMode,
		"translator": translator != nil,
	})
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Error(ctx, "server stopped", err, nil)
		log.Fatal("Failed to start server: ", err)
	}
}

func newHealthChecker(store *engine.Client, rdb *redis.Client, translator llm.Client) *observability.HealthChecker {
	hc := observability.NewHealthChecker()

	hc.Register("database", observability.DatabaseHealthCheck(func(ctx context.Context) error {
		return store.Ping(ctx)
	}))

	hc.Register("redis", observability.RedisHealthCheck(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}))

	hc.Register("translator", observability.TranslatorHealthCheck(func(ctx context.Context) error {
		if translator == nil {
			return fmt.Errorf("translator not configured")
		}
		return nil
	}))

	hc.Register("dataset", observability.DatasetHealthCheck(func(ctx context.Context) (int, error) {
		summary, err := store.Summarize(ctx)
		if err != nil {
			return 0, err
		}
		return summary.TotalRecords, nil
	}))

	hc.Register("memory", observability.MemoryHealthCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))

	return hc
}
