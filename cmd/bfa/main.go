package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatinfra "github.com/evcharge/ev-support-bfa-go/internal/chat/infra"
	chatservice "github.com/evcharge/ev-support-bfa-go/internal/chat/service"
	"github.com/evcharge/ev-support-bfa-go/internal/config"
	"github.com/evcharge/ev-support-bfa-go/internal/continuity"
	"github.com/evcharge/ev-support-bfa-go/internal/domain"
	"github.com/evcharge/ev-support-bfa-go/internal/handler"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/cache"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/client"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/observability"
	"github.com/evcharge/ev-support-bfa-go/internal/infra/resilience"
	"github.com/evcharge/ev-support-bfa-go/internal/service"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("cache_size", cfg.CacheSize),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
		zap.Bool("auth_enabled", cfg.AuthEnabled),
		zap.Strings("default_required_slots", cfg.DefaultRequiredSlots),
	)

	// --- Tracing ---
	shutdown := observability.NoopTracer()
	if cfg.TracingEnabled {
		var err error
		shutdown, err = observability.InitTracer(cfg.OTLPEndpoint, observability.ServiceName)
		if err != nil {
			logger.Fatal("failed to init tracer", zap.Error(err))
		}
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	profileCache := cache.New[*domain.DriverProfile](cfg.CacheSize, cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	profileCB := resilience.NewCircuitBreaker("profile-api")
	intentCB := resilience.NewCircuitBreaker("intent-api")
	agentCB := resilience.NewCircuitBreaker("chat-agent")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	profileClient := client.NewProfileClient(httpClient, cfg.ProfileAPIURL, profileCB, resilienceCfg)
	intentClient := client.NewIntentClient(httpClient, cfg.IntentAPIURL, intentCB, resilienceCfg)
	agentClient := chatinfra.NewChatAgentClient(httpClient, cfg.ChatAgentURL, agentCB, resilienceCfg)

	// --- Continuity engine ---
	engine := &continuity.Engine{
		DefaultRequirements: cfg.DefaultRequiredSlots,
		Resolution:          continuity.ResolutionPolicy{ShortReplyRunes: cfg.ShortReplyRunes},
	}

	// --- Services ---
	chatSvc := chatservice.NewChatService(
		engine,
		agentClient,
		profileClient,
		intentClient,
		profileCache,
		resilience.NewBulkhead(cfg.MaxConcurrency),
		[]chatservice.ChatStrategy{
			chatservice.NewEscalationStrategy(logger),
			chatservice.NewClosingStrategy(logger),
		},
		metrics,
		logger,
	)

	var tokens *service.TokenService
	if cfg.AuthEnabled {
		tokens = service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL, logger)
		logger.Info("service auth enabled for /v1 routes")
	} else {
		logger.Warn("service auth disabled, /v1 routes are open")
	}

	// --- Router ---
	router := handler.NewRouter(chatSvc, tokens, []*gobreaker.CircuitBreaker{profileCB, intentCB, agentCB}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
