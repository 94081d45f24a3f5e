package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Env != "development" {
		t.Errorf("expected development env, got %q", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Errorf("unexpected port %q", cfg.Port)
	}
	if cfg.MaxHistoryMessages != 20 {
		t.Errorf("unexpected history window %d", cfg.MaxHistoryMessages)
	}
	if cfg.PollTimeout != 30 {
		t.Errorf("unexpected poll timeout %d", cfg.PollTimeout)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("unexpected temperature %f", cfg.Temperature)
	}
	if len(cfg.CORSOrigins) == 0 {
		t.Error("expected default cors origins")
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode")
	}
	if cfg.StatsMode != "store" {
		t.Errorf("expected store statistics by default, got %q", cfg.StatsMode)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_HISTORY_MESSAGES", "5")
	t.Setenv("TEMPERATURE", "0.2")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STATS_MODE", "mock")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("unexpected port %q", cfg.Port)
	}
	if cfg.MaxHistoryMessages != 5 {
		t.Errorf("unexpected history window %d", cfg.MaxHistoryMessages)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("unexpected temperature %f", cfg.Temperature)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.StatsMode != "mock" {
		t.Errorf("expected mock statistics mode, got %q", cfg.StatsMode)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MAX_HISTORY_MESSAGES", "lots")
	t.Setenv("TEMPERATURE", "warm")

	cfg := Load()

	if cfg.MaxHistoryMessages != 20 {
		t.Errorf("expected default window on parse failure, got %d", cfg.MaxHistoryMessages)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("expected default temperature on parse failure, got %f", cfg.Temperature)
	}
}

func TestLoadProductionRequiresDatabase(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")

	defer func() {
		if recover() == nil {
			t.Error("expected panic without DATABASE_URL in production")
		}
	}()
	Load()
}
