package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/api"
	"github.com/ejsmile/systech-aidd/internal/config"
	"github.com/ejsmile/systech-aidd/internal/conversation"
	"github.com/ejsmile/systech-aidd/internal/handlers"
	"github.com/ejsmile/systech-aidd/internal/llm"
	"github.com/ejsmile/systech-aidd/internal/stats"
	"github.com/ejsmile/systech-aidd/internal/store"
	"github.com/ejsmile/systech-aidd/internal/text2sql"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := newLogger(cfg)
	ctx := context.Background()

	// Initialize the shared store: PostgreSQL when configured, SQLite
	// otherwise (development).
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		liteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		dataStore = liteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
	}
	defer dataStore.Close()

	// Optional Redis for rate limiting
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		var err error
		redisClient, err = store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisClient.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Conversation core
	repo := conversation.NewRepository(dataStore, logger)
	manager := conversation.NewManager(repo, cfg.MaxHistoryMessages, logger)

	// Collaborators
	llmClient := llm.NewClient(llm.Options{
		APIKey:      cfg.OpenRouterAPIKey,
		BaseURL:     cfg.OpenRouterBaseURL,
		Model:       cfg.ModelName,
		Temperature: cfg.Temperature,
	}, logger)
	// Statistics: mock mode serves generated data so the dashboard can be
	// developed against an empty store.
	var collector stats.Collector
	if cfg.StatsMode == "mock" {
		collector = stats.NewMockCollector(30, 400, 30, time.Now().UnixNano())
		logger.Info().Msg("serving mock statistics")
	} else {
		collector = stats.NewStoreCollector(dataStore, logger)
	}
	admin := text2sql.NewHandler(llmClient, dataStore, loadText2SQLPrompt(), logger)

	// Router
	h := handlers.NewHandler(dataStore, manager, llmClient, collector, admin, cfg.SystemPrompt)
	router := api.NewRouter(logger, h, redisClient, cfg.CORSOrigins)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting AIDD API server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(level).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// loadText2SQLPrompt reads the admin prompt file; an empty result selects
// the handler's built-in prompt.
func loadText2SQLPrompt() string {
	data, err := os.ReadFile("prompts/text2sql.txt")
	if err != nil {
		return ""
	}
	return string(data)
}
