package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Env      string
	LogLevel string

	// Storage
	DatabaseURL string // PostgreSQL; when empty, SQLite is used
	SQLitePath  string
	RedisURL    string // optional, backs the API rate limiter

	// Telegram front end
	TelegramToken   string
	TelegramAPIBase string
	PollTimeout     int // long-poll timeout, seconds

	// HTTP front end
	Port        string
	CORSOrigins []string

	// Language model
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	ModelName         string
	Temperature       float64

	// Conversation core
	SystemPrompt       string
	MaxHistoryMessages int

	// Statistics: "store" reads the shared store, "mock" generates fake
	// dashboard data
	StatsMode string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/aidd.db"),
		RedisURL:           os.Getenv("REDIS_URL"),
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		TelegramAPIBase:    getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		PollTimeout:        getEnvInt("TELEGRAM_POLL_TIMEOUT", 30),
		Port:               getEnv("PORT", "8080"),
		OpenRouterAPIKey:   os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:  getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		ModelName:          getEnv("MODEL_NAME", "anthropic/claude-3.5-sonnet"),
		Temperature:        getEnvFloat("TEMPERATURE", 0.7),
		SystemPrompt:       getEnv("SYSTEM_PROMPT", "You are a helpful assistant."),
		MaxHistoryMessages: getEnvInt("MAX_HISTORY_MESSAGES", 20),
		StatsMode:          getEnv("STATS_MODE", "store"),
	}

	// Parse CORS origins (comma-separated)
	origins := getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	for _, entry := range strings.Split(origins, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, entry)
		}
	}

	// In production, require the shared store
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
