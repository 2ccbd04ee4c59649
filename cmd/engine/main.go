package main

import (
	"context"
	"errors"
	"fmt"
	"fritter/internal/config"
	"fritter/internal/database"
	"fritter/internal/engine"
	"fritter/internal/handlers"
	"fritter/internal/middleware"
	"fritter/internal/reputation"
	"fritter/internal/utils"
	"fritter/internal/websocket"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
)

// App is the fully wired service.
type App struct {
	Config *config.Config
	Store  database.Store
	System *actor.ActorSystem
	Hub    *websocket.Hub
	Server *handlers.Server

	closeStore func(context.Context) error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialise: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}
	log.Println("Server exiting")
}

// openStore connects the configured backend.
func openStore(cfg *config.DatabaseConfig) (database.Store, func(context.Context) error, error) {
	switch cfg.Type {
	case "memory":
		log.Println("Using in-memory store; data will not survive a restart")
		return database.NewMemoryStore(), func(context.Context) error { return nil }, nil
	case "mongodb":
		mongodb, err := database.NewMongoDB(cfg.URI, cfg.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		log.Printf("Connected to MongoDB database %s", cfg.Name)
		return mongodb, mongodb.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported database type %q", cfg.Type)
}

// NewApp builds every component from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	store, closeStore, err := openStore(cfg.Database)
	if err != nil {
		return nil, err
	}

	metrics := utils.NewMetricsCollector()
	coordinator, err := reputation.NewCoordinator(store, reputation.Options{
		WriteRetries:     cfg.Reputation.WriteRetries,
		RankingCacheSize: cfg.Reputation.RankingCacheSize,
		Metrics:          metrics,
	})
	if err != nil {
		_ = closeStore(context.Background())
		return nil, fmt.Errorf("failed to create reputation coordinator: %w", err)
	}

	limiter, err := middleware.NewUserRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	if err != nil {
		_ = closeStore(context.Background())
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	system := actor.NewActorSystem()
	hub := websocket.NewHub()
	fritterEngine := engine.NewEngine(system, coordinator, hub, metrics, cfg.Server.RequestTimeout)

	server := handlers.NewServer(
		fritterEngine,
		metrics,
		hub,
		middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration),
		limiter,
		middleware.DefaultCORSConfig(cfg.AllowedOrigins),
	)
	server.MetricsEnabled = cfg.Server.MetricsEnabled
	server.RequestTimeout = cfg.Server.RequestTimeout

	return &App{
		Config:     cfg,
		Store:      store,
		System:     system,
		Hub:        hub,
		Server:     server,
		closeStore: closeStore,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains connections and
// releases the actor system and store.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.Hub.Run(hubCtx)

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("Shutting down server...")
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	stopHub()
	a.System.Shutdown()
	if err := a.closeStore(shutdownCtx); err != nil {
		log.Printf("Error closing store: %v", err)
	}
	return runErr
}
