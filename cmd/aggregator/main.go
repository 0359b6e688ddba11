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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/harutk/pricehunter/internal/adapters"
	"github.com/harutk/pricehunter/internal/aggregate"
	"github.com/harutk/pricehunter/internal/api"
	"github.com/harutk/pricehunter/internal/browser"
	"github.com/harutk/pricehunter/internal/config"
	"github.com/harutk/pricehunter/internal/database"
	"github.com/harutk/pricehunter/internal/events"
	"github.com/harutk/pricehunter/internal/fx"
	"github.com/harutk/pricehunter/internal/normalize"
	"github.com/harutk/pricehunter/internal/ratelimit"
	"github.com/harutk/pricehunter/internal/tasks"
	"github.com/harutk/pricehunter/internal/translate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = cfg.Browser.Headless
	browserOpts.Timeout = cfg.Browser.Timeout
	b, err := browser.New(browserOpts)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	orchestrator := buildOrchestrator(cfg, b, redisClient, logger)

	store := database.NewTaskStore(db)
	publisher := events.NewPublisher(redisClient, logger)
	manager := tasks.NewManager(store, orchestrator, publisher, logger, cfg.Aggregation.WorkerPoll)
	go manager.StartWorker(ctx)

	handlers := api.NewHandlers(manager, store, orchestrator, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * cfg.Aggregation.GlobalTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/search", func(r chi.Router) {
			r.Post("/", handlers.CreateSearch)
			r.Post("/now", handlers.SearchNow)
			r.Get("/{taskID}", handlers.GetSearch)
		})
		r.Get("/stats", handlers.GetStats)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildOrchestrator wires the seven adapters in dispatch order with
// their shared collaborators.
func buildOrchestrator(cfg *config.Config, b *browser.Browser, redisClient *redis.Client, logger *slog.Logger) *aggregate.Orchestrator {
	limiter := ratelimit.New(cfg.Adapters.RateInterval)
	httpClient := &http.Client{Timeout: adapters.APITimeout}

	var translator translate.Translator = translate.Passthrough{}
	if cfg.Adapters.TranslateEndpoint != "" {
		translator = translate.NewClient(cfg.Adapters.TranslateEndpoint, logger)
	}

	rates := fx.NewClient(cfg.Adapters.FxEndpoint, redisClient, logger)
	normalizer := normalize.New(rates, logger)

	ads := []adapters.Adapter{
		adapters.NewYahooShopping(cfg.Adapters.YahooAppID, httpClient, limiter, logger),
		adapters.NewRakuten(cfg.Adapters.RakutenAppID, httpClient, limiter, logger),
		adapters.NewYodobashi(httpClient, limiter, cfg.Adapters.UserAgent, logger),
		adapters.NewEbay(cfg.Adapters.EbayToken, httpClient, limiter, translator, logger),
		adapters.NewMercari(b, limiter, logger),
		adapters.NewPayPay(b, limiter, logger),
		adapters.NewRakuma(b, limiter, logger),
	}

	return aggregate.New(ads, normalizer, logger,
		aggregate.WithGlobalTimeout(cfg.Aggregation.GlobalTimeout))
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
