package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel     OTelConfig
	ClickUp  ClickUpConfig
	AgentLLM LLMConfig
	Session  SessionConfig
	Env      string
	Port     string
	// DashboardURL is the frontend origin allowed to open websocket connections.
	DashboardURL string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type ClickUpConfig struct {
	APIKey  string
	TeamID  string
	BaseURL string
}

type LLMConfig struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	BaseURL   string // Optional: for custom endpoints
	Model     string
	MaxTokens int
}

type SessionConfig struct {
	RedisURL string // empty = in-memory session store
	TTL      time.Duration
}

// Load loads configuration from environment variables.
// In development it first loads .env from the working directory.
func Load() (Config, error) {
	if getEnv("TASKDECK_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:          getEnv("TASKDECK_ENV", "development"),
		Port:         getEnv("PORT", "8080"),
		DashboardURL: getEnv("DASHBOARD_URL", "http://localhost:3000"),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "taskdeck-agent"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		ClickUp: ClickUpConfig{
			APIKey:  getEnv("CLICKUP_API_KEY", ""),
			TeamID:  getEnv("CLICKUP_TEAM_ID", ""),
			BaseURL: getEnv("CLICKUP_BASE_URL", "https://api.clickup.com/api/v2"),
		},
		AgentLLM: LLMConfig{
			Provider:  getEnv("AGENT_LLM_PROVIDER", "openai"),
			APIKey:    getEnv("AGENT_LLM_API_KEY", ""),
			BaseURL:   getEnv("AGENT_LLM_BASE_URL", ""),
			Model:     getEnv("AGENT_LLM_MODEL", "gpt-4o"),
			MaxTokens: getEnvInt("AGENT_LLM_MAX_TOKENS", 8192),
		},
		Session: SessionConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		},
	}

	if cfg.ClickUp.APIKey == "" {
		return Config{}, fmt.Errorf("CLICKUP_API_KEY is required")
	}
	if cfg.ClickUp.TeamID == "" {
		return Config{}, fmt.Errorf("CLICKUP_TEAM_ID is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func (c SessionConfig) RedisEnabled() bool {
	return c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
