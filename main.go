package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"sjsage522/pricewatch/config"
	"sjsage522/pricewatch/helpers"
	"sjsage522/pricewatch/internal"
	"sjsage522/pricewatch/internal/alert"
	"sjsage522/pricewatch/internal/api"
	"sjsage522/pricewatch/internal/crawler"
	"sjsage522/pricewatch/internal/fleet"
	"sjsage522/pricewatch/internal/store"
	"sjsage522/pricewatch/logger"
	"sjsage522/pricewatch/services/cache"
	"sjsage522/pricewatch/services/notifier"
	"sjsage522/pricewatch/services/publisher"
	"sjsage522/pricewatch/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("db_driver", cfg.DBDriver).
		Str("browser_engine", cfg.BrowserEngine).
		Str("schedule", cfg.ScrapeSchedule).
		Msg("Starting application")

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize services
	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer deps.Close()

	// Core engine
	detector := alert.NewDetector(deps.Store, deps.AlertNotifiers()...)
	recorder := fleet.NewRecorder(deps.Store, detector)
	extractor := crawler.NewExtractor(
		crawler.ConfigFrom(cfg),
		deps.Store,
		crawler.WithCooldown(crawler.NewCooldown(deps.Cache, cfg.BlockTime)),
	)

	orchestrator := fleet.NewOrchestrator(deps.Store, crawler.NewLauncher(cfg), extractor, recorder)
	orchestrator.PaceMin = cfg.PacingMin
	orchestrator.PaceMax = cfg.PacingMax

	synthetic := fleet.NewSynthetic(deps.Store, recorder)

	opts := []fleet.ServiceOption{fleet.WithSingleScrapeMode(cfg.SingleScrapeMode)}
	if deps.Events != nil {
		opts = append(opts, fleet.WithRunPublisher(deps.Events))
	}
	service := fleet.NewService(deps.Store, orchestrator, synthetic, recorder, opts...)

	// Scheduled scraping
	if err := os.MkdirAll(filepath.Dir(cfg.ErrorLogFile), 0o755); err != nil {
		log.Warn().Err(err).Msg("Failed to create error log directory")
	}
	w := worker.NewWorker(ctx, service, helpers.NewLogger(cfg.ErrorLogFile), cfg.ScrapeSchedule)
	if err := w.Start(); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ScrapeSchedule).Msg("Invalid scrape schedule")
	}

	// HTTP API
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(api.NewHandler(deps.Store, service)),
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server exited with error")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	w.Stop()
}

// initializeServices opens the store and connects the optional services
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps.Store = st

	if cfg.SeedDemoData {
		seeded, err := store.Seed(ctx, st, time.Now())
		if err != nil {
			deps.Close()
			return nil, err
		}
		if seeded {
			logger.Info("Seeded demo competitors and price history")
		}
	}

	// Initialize cache service
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Msg("Memcache unavailable, cooldowns disabled")
		} else {
			deps.Cache = mc
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	// Initialize publisher
	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			logger.ForPublisher().Warn().Err(err).Msg("Redis unavailable, events disabled")
			redisPublisher.Close()
		} else {
			deps.Publisher = redisPublisher
			deps.Events = publisher.NewEvents(redisPublisher)
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	// Initialize notifier
	if cfg.TelegramBotToken != "" {
		tg, err := notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			logger.ForNotifier().Warn().Err(err).Msg("Telegram notifications disabled")
		} else {
			deps.Notifiers = append(deps.Notifiers, tg)
		}
	}

	return deps, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	case config.DriverMemory:
		return store.NewMemory(), nil
	default:
		return store.NewSQLite(ctx, cfg.DBPath)
	}
}
