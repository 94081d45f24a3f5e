package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/bot"
	"github.com/ejsmile/systech-aidd/internal/config"
	"github.com/ejsmile/systech-aidd/internal/conversation"
	"github.com/ejsmile/systech-aidd/internal/llm"
	"github.com/ejsmile/systech-aidd/internal/store"
	"github.com/ejsmile/systech-aidd/internal/users"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := newLogger(cfg)

	if cfg.TelegramToken == "" {
		logger.Fatal().Msg("TELEGRAM_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Conversation core
	repo := conversation.NewRepository(dataStore, logger)
	manager := conversation.NewManager(repo, cfg.MaxHistoryMessages, logger)
	userRepo := users.NewRepository(dataStore, logger)

	llmClient := llm.NewClient(llm.Options{
		APIKey:      cfg.OpenRouterAPIKey,
		BaseURL:     cfg.OpenRouterBaseURL,
		Model:       cfg.ModelName,
		Temperature: cfg.Temperature,
	}, logger)

	// The HTTP client timeout must outlast the long poll.
	requestTimeout := time.Duration(cfg.PollTimeout+10) * time.Second
	client := bot.NewClient(cfg.TelegramAPIBase, cfg.TelegramToken, requestTimeout)
	poller := bot.NewPoller(client, manager, userRepo, llmClient, cfg.SystemPrompt, cfg.PollTimeout, logger)

	// Stop polling on interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info().Msg("shutting down bot...")
		cancel()
	}()

	logger.Info().Str("env", cfg.Env).Msg("starting AIDD bot")
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("bot stopped with error")
	}

	logger.Info().Msg("bot stopped")
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
