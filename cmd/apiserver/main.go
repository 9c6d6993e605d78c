// Package main runs the binder REST API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/api"
	"github.com/ramonehamilton/mtg-binder/internal/collection"
	"github.com/ramonehamilton/mtg-binder/internal/config"
	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
	"github.com/ramonehamilton/mtg-binder/internal/storage/snapshot"
)

var (
	configPath = flag.String("config", "", "Config file path (default: ~/.mtg-binder/config.toml)")
	port       = flag.Int("port", 0, "API server port (overrides config)")
	dbPath     = flag.String("db-path", "", "Database path (overrides config)")
	driver     = flag.String("driver", "", `Card store driver, "sqlite" or "file" (overrides config)`)
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	busyTimeout, err := cfg.BusyTimeout()
	if err != nil {
		log.Fatalf("Invalid busy timeout: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.DatabasePath), 0o755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	dbConfig := storage.DefaultConfig(cfg.Store.DatabasePath)
	dbConfig.AutoMigrate = true
	dbConfig.BusyTimeout = busyTimeout
	db, err := storage.Open(dbConfig)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	storageService := storage.NewService(db)
	defer func() {
		if err := storageService.Close(); err != nil {
			logger.Error("error closing storage", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := events.NewEventDispatcher(logger)
	dispatcher.Register(events.NewLoggingObserver(logger, cfg.App.DebugMode))

	var cards repository.CardRepository
	var cardDeleter repository.Deleter
	if cfg.Store.Driver == config.DriverFile {
		fileStore := snapshot.NewCardRepository(cfg.Store.SnapshotPath)
		cards, cardDeleter = fileStore, fileStore
		if cfg.Store.WatchSnapshot {
			startSnapshotWatcher(ctx, cfg.Store.SnapshotPath, fileStore, dispatcher, logger)
		}
	} else {
		cards, cardDeleter = storageService.Cards(), storageService.Cards()
	}
	logger.Info("card store selected", "driver", cfg.Store.Driver)

	if cfg.Pricing.Enabled {
		startPriceRefresh(ctx, cfg, storageService, dispatcher, logger)
	}

	server := api.NewServer(&api.Config{
		Port:           cfg.API.Port,
		AllowedOrigins: cfg.API.AllowedOrigins,
		PageSize:       cfg.Pagination.PageSize,
		InitialCount:   cfg.Pagination.InitialCount,
		Logger:         logger,
	}, api.Dependencies{
		Cards:       cards,
		CardDeleter: cardDeleter,
		Collections: collection.NewService(collection.Config{
			Decks:      storageService.Decks(),
			Wishlists:  storageService.Wishlists(),
			Cards:      cards,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		Decks:      storageService.Decks(),
		Wishlists:  storageService.Wishlists(),
		Dispatcher: dispatcher,
	})

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}
	fmt.Printf("API server running at http://localhost:%d\n", cfg.API.Port)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	path := *configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if *port != 0 {
		cfg.API.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.DatabasePath = *dbPath
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *debug {
		cfg.App.DebugMode = true
	}
	return cfg, nil
}

func newLogger(app config.AppConfig) *slog.Logger {
	level := slog.LevelInfo
	if app.DebugMode {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if app.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// startSnapshotWatcher announces external rewrites of the snapshot. Deletes
// made through store are already announced by the bulk mutator.
func startSnapshotWatcher(ctx context.Context, path string, store snapshot.Store, dispatcher events.Dispatcher, logger *slog.Logger) {
	watcher := snapshot.NewWatcher(path, func() {
		dispatcher.Dispatch(events.NewTypedEvent(ctx, events.TypeCatalogChanged, events.CatalogChangedEvent{Source: path}))
		dispatcher.Dispatch(events.Invalidated(ctx, events.PathCards, nil))
	}, logger).IgnoreWritesFrom(store)

	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Error("snapshot watcher stopped", "error", err)
		}
	}()
}

func startPriceRefresh(ctx context.Context, cfg *config.Config, svc *storage.Service, dispatcher events.Dispatcher, logger *slog.Logger) {
	if cfg.Store.Driver == config.DriverFile {
		logger.Warn("price refresh needs the sqlite card store; disabled")
		return
	}

	rateLimit, err := cfg.PricingRateLimit()
	if err != nil {
		log.Fatalf("Invalid pricing rate limit: %v", err)
	}
	interval, err := cfg.PricingInterval()
	if err != nil {
		log.Fatalf("Invalid pricing interval: %v", err)
	}

	refresher := scryfall.NewPriceRefresher(scryfall.RefresherConfig{
		Client: scryfall.NewClient(scryfall.ClientOptions{
			BaseURL:   cfg.Pricing.BaseURL,
			RateLimit: rateLimit,
		}),
		Store:      svc.Cards(),
		BatchSize:  cfg.Pricing.BatchSize,
		Dispatcher: dispatcher,
		Logger:     logger.With("component", "pricing"),
	})
	go refresher.Run(ctx, interval)
}
