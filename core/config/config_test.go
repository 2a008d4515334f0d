package config

import (
	"testing"
	"time"
)

func TestLoadRequiresClickUpCredentials(t *testing.T) {
	t.Setenv("TASKDECK_ENV", "test")
	t.Setenv("CLICKUP_API_KEY", "")
	t.Setenv("CLICKUP_TEAM_ID", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without CLICKUP_API_KEY")
	}

	t.Setenv("CLICKUP_API_KEY", "pk_test")
	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without CLICKUP_TEAM_ID")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TASKDECK_ENV", "test")
	t.Setenv("CLICKUP_API_KEY", "pk_test")
	t.Setenv("CLICKUP_TEAM_ID", "9001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.ClickUp.BaseURL != "https://api.clickup.com/api/v2" {
		t.Errorf("ClickUp.BaseURL = %q", cfg.ClickUp.BaseURL)
	}
	if cfg.AgentLLM.Provider != "openai" {
		t.Errorf("AgentLLM.Provider = %q, want openai", cfg.AgentLLM.Provider)
	}
	if cfg.Session.TTL != 120*time.Minute {
		t.Errorf("Session.TTL = %v, want 2h", cfg.Session.TTL)
	}
	if cfg.Session.RedisEnabled() {
		t.Error("RedisEnabled() should be false without REDIS_URL")
	}
	if cfg.OTel.Enabled() {
		t.Error("OTel.Enabled() should be false without endpoint")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TASKDECK_ENV", "production")
	t.Setenv("CLICKUP_API_KEY", "pk_live")
	t.Setenv("CLICKUP_TEAM_ID", "9001")
	t.Setenv("PORT", "9090")
	t.Setenv("AGENT_LLM_PROVIDER", "anthropic")
	t.Setenv("AGENT_LLM_API_KEY", "sk-ant")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("IsProduction() should be true")
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if !cfg.AgentLLM.Enabled() {
		t.Error("AgentLLM.Enabled() should be true")
	}
	if !cfg.Session.RedisEnabled() {
		t.Error("RedisEnabled() should be true")
	}
}
