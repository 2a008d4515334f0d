package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"taskdeck.app/agent/common/id"
	"taskdeck.app/agent/common/llm"
	"taskdeck.app/agent/common/logger"
	"taskdeck.app/agent/common/otel"
	"taskdeck.app/agent/core/config"
	"taskdeck.app/agent/internal/agent"
	"taskdeck.app/agent/internal/clickup"
	"taskdeck.app/agent/internal/http/middleware"
	httprouter "taskdeck.app/agent/internal/http/router"
	"taskdeck.app/agent/internal/hub"
	"taskdeck.app/agent/internal/session"
	"taskdeck.app/agent/internal/state"
	"taskdeck.app/agent/internal/tools"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "taskdeck starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	if !cfg.AgentLLM.Enabled() {
		slog.ErrorContext(ctx, "no usable LLM configuration", "provider", cfg.AgentLLM.Provider)
		os.Exit(1)
	}

	agentClient, err := llm.NewAgentClient(llm.Config{
		Provider: cfg.AgentLLM.Provider,
		APIKey:   cfg.AgentLLM.APIKey,
		BaseURL:  cfg.AgentLLM.BaseURL,
		Model:    cfg.AgentLLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "llm client ready", "provider", cfg.AgentLLM.Provider, "model", agentClient.Model())

	clickupClient, err := clickup.NewClient(clickup.Config{
		APIKey:  cfg.ClickUp.APIKey,
		TeamID:  cfg.ClickUp.TeamID,
		BaseURL: cfg.ClickUp.BaseURL,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create clickup client", "error", err)
		os.Exit(1)
	}

	sessions, cleanup, err := setupSessions(ctx, cfg.Session)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up session store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	stateStore := state.NewStore()
	stateHub := hub.New([]string{originPattern(cfg.DashboardURL)})
	dispatcher := state.NewDispatcher(stateStore, stateHub.BroadcastState)

	catalog := tools.NewCatalog(clickupClient)
	chatAgent := agent.New(agentClient, catalog, dispatcher, sessions, agent.Config{
		MaxTokens: cfg.AgentLLM.MaxTokens,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, chatAgent, stateStore, stateHub)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Long enough for a full agent turn; websocket writes are not
		// bounded by this once the connection is hijacked.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupSessions(ctx context.Context, cfg config.SessionConfig) (session.Store, func(), error) {
	if !cfg.RedisEnabled() {
		slog.InfoContext(ctx, "using in-memory session store", "ttl", cfg.TTL)
		return session.NewMemoryStore(cfg.TTL), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	slog.InfoContext(ctx, "redis session store connected", "ttl", cfg.TTL)
	return session.NewRedisStore(client, cfg.TTL), func() { _ = client.Close() }, nil
}

func setupRouter(cfg config.Config, chat *agent.Agent, store *state.Store, h *hub.Hub) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, chat, store, h, httprouter.Config{
		DashboardURL: cfg.DashboardURL,
		IsProduction: cfg.IsProduction(),
	})

	return router
}

// originPattern strips the scheme so the websocket origin check matches the
// dashboard host regardless of http/https.
func originPattern(dashboardURL string) string {
	for _, prefix := range []string{"https://", "http://"} {
		if len(dashboardURL) > len(prefix) && dashboardURL[:len(prefix)] == prefix {
			return dashboardURL[len(prefix):]
		}
	}
	return dashboardURL
}

const banner = `
████████╗ █████╗ ███████╗██╗  ██╗██████╗ ███████╗ ██████╗██╗  ██╗
╚══██╔══╝██╔══██╗██╔════╝██║ ██╔╝██╔══██╗██╔════╝██╔════╝██║ ██╔╝
   ██║   ███████║███████╗█████╔╝ ██║  ██║█████╗  ██║     █████╔╝
   ██║   ██╔══██║╚════██║██╔═██╗ ██║  ██║██╔══╝  ██║     ██╔═██╗
   ██║   ██║  ██║███████║██║  ██╗██████╔╝███████╗╚██████╗██║  ██╗
   ╚═╝   ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═════╝ ╚══════╝ ╚═════╝╚═╝  ╚═╝
`
