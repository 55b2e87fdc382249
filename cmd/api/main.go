package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwebster45206/adventure-console/internal/config"
	"github.com/jwebster45206/adventure-console/internal/game"
	"github.com/jwebster45206/adventure-console/internal/handlers"
	"github.com/jwebster45206/adventure-console/internal/logger"
	"github.com/jwebster45206/adventure-console/internal/middleware"
	"github.com/jwebster45206/adventure-console/internal/services"
	"github.com/jwebster45206/adventure-console/internal/services/events"
	"github.com/jwebster45206/adventure-console/pkg/typewriter"
	"github.com/jwebster45206/adventure-console/pkg/world"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Adventure Console API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	pack, err := world.Default()
	if err != nil {
		log.Error("Failed to load world pack", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	narrator, err := services.NewNarrator(context.Background(), services.ProviderOptions{
		Provider: cfg.LLMProvider,
		Model:    cfg.ModelName,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.APIKey(),
		Timeout:  cfg.LLMTimeout,
	}, pack.NewValidator(), services.NewGeneratorMetrics(registry), log)
	if err != nil {
		log.Error("Failed to configure narrator", "error", err)
		os.Exit(1)
	}

	var (
		publisher   game.Publisher
		broadcaster *events.Broadcaster
		redisSvc    *services.RedisService
	)
	if cfg.RedisURL != "" {
		redisSvc = services.NewRedisService(cfg.RedisURL, log)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := redisSvc.Ping(pingCtx)
		pingCancel()
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		broadcaster = events.NewBroadcaster(redisSvc.Client(), log)
		publisher = broadcaster
		log.Info("Event broadcasting enabled", "channel", broadcaster.Channel())
	}

	speed, _ := typewriter.ParseSpeed(cfg.TextSpeed)
	orch, err := game.New(game.Options{
		Generator: narrator.Generator,
		Worlds:    pack,
		Sound:     services.NewLogPlayer(pack.SoundAsset, log),
		Publisher: publisher,
		Preferences: game.Preferences{
			Muted:     cfg.Muted,
			TextSpeed: speed,
			World:     cfg.World,
		},
		Logger: log,
	})
	if err != nil {
		log.Error("Failed to create orchestrator", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()

	healthChecks := []handlers.HealthCheck{{Name: "narrator", Pinger: narrator}}
	if redisSvc != nil {
		healthChecks = append(healthChecks, handlers.HealthCheck{Name: "redis", Pinger: redisSvc})
	}
	mux.Handle("/health", handlers.NewHealthHandler(log, healthChecks...))

	gameHandler := handlers.NewGameHandler(orch, log)
	mux.Handle("/v1/", gameHandler)

	if broadcaster != nil {
		mux.Handle("/v1/events", handlers.NewEventsHandler(broadcaster, log))
	}

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	handler := middleware.LoggerWith(log, mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout removed to enable streaming - streaming endpoints handle their own timeouts
		IdleTimeout: 60 * time.Second,
	}

	// Request the opening narration in the background so the server is
	// reachable while the narrator warms up.
	go orch.Initialize(context.Background())

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := narrator.Close(); err != nil {
		log.Error("Error closing narrator", "error", err)
	}
	if redisSvc != nil {
		if err := redisSvc.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	log.Info("Server exited")
}
