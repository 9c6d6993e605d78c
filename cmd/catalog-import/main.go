// Package main copies a JSON card snapshot into the SQLite catalog, exports
// the catalog back to a snapshot, or restores the database from a backup.
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

	"github.com/ramonehamilton/mtg-binder/internal/config"
	"github.com/ramonehamilton/mtg-binder/internal/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
	"github.com/ramonehamilton/mtg-binder/internal/storage/snapshot"
)

var (
	configPath    = flag.String("config", "", "Config file path (default: ~/.mtg-binder/config.toml)")
	dbPath        = flag.String("db-path", "", "Database path (overrides config)")
	input         = flag.String("snapshot", "", "Snapshot file to import")
	export        = flag.String("export", "", "Write the catalog to this snapshot file instead of importing")
	restore       = flag.String("restore", "", "Replace the database with this backup ($BINDER_BACKUP_PASSWORD decrypts it)")
	refreshPrices = flag.Bool("refresh-prices", false, "Refresh prices from Scryfall after importing")
	backup        = flag.Bool("backup", false, "Back up the database before importing ($BINDER_BACKUP_PASSWORD encrypts it)")
	verbose       = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	modes := 0
	for _, v := range []string{*input, *export, *restore} {
		if v != "" {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of -snapshot, -export or -restore is required")
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.DatabasePath), 0o755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	if *restore != "" {
		err := storage.RestoreBackup(context.Background(), *restore, cfg.Store.DatabasePath, os.Getenv("BINDER_BACKUP_PASSWORD"))
		if err != nil {
			logger.Error("restore failed", "backup", *restore, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Restored %s from %s\n", cfg.Store.DatabasePath, *restore)
		return
	}
	dbConfig := storage.DefaultConfig(cfg.Store.DatabasePath)
	dbConfig.AutoMigrate = true
	db, err := storage.Open(dbConfig)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	svc := storage.NewService(db)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("error closing storage", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *export != "" {
		if err := exportCatalog(ctx, svc, *export); err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if *backup {
		info, err := db.Backup(ctx, storage.BackupOptions{Password: os.Getenv("BINDER_BACKUP_PASSWORD")})
		if err != nil {
			logger.Error("backup failed", "error", err)
			os.Exit(1)
		}
		logger.Info("database backed up", "path", info.Path, "encrypted", info.Encrypted, "sha256", info.Checksum)
	}

	if err := importCatalog(ctx, svc, *input, logger); err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}

	if *refreshPrices {
		rateLimit, err := cfg.PricingRateLimit()
		if err != nil {
			log.Fatalf("Invalid pricing rate limit: %v", err)
		}
		refresher := scryfall.NewPriceRefresher(scryfall.RefresherConfig{
			Client: scryfall.NewClient(scryfall.ClientOptions{
				BaseURL:   cfg.Pricing.BaseURL,
				RateLimit: rateLimit,
			}),
			Store:     svc.Cards(),
			BatchSize: cfg.Pricing.BatchSize,
			Logger:    logger,
		})
		result, err := refresher.Refresh(ctx)
		if err != nil {
			logger.Error("price refresh failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Prices: %d requested, %d updated, %d not found\n", result.Requested, result.Updated, result.NotFound)
	}
}

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
	if *dbPath != "" {
		cfg.Store.DatabasePath = *dbPath
	}
	// The import never reads the snapshot driver settings.
	cfg.Store.Driver = config.DriverSQLite
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func importCatalog(ctx context.Context, svc *storage.Service, path string, logger *slog.Logger) error {
	cards, err := snapshot.NewCardRepository(path).GetAllCards(ctx)
	if err != nil {
		return err
	}
	if err := svc.Cards().UpsertCards(ctx, cards); err != nil {
		return err
	}
	logger.Info("catalog imported", "snapshot", path, "cards", len(cards))
	fmt.Printf("Imported %d cards from %s\n", len(cards), path)
	return nil
}

func exportCatalog(ctx context.Context, svc *storage.Service, path string) error {
	cards, err := svc.Cards().GetAllCards(ctx)
	if err != nil {
		return err
	}
	data, err := snapshot.Encode(cards)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	fmt.Printf("Exported %d cards to %s\n", len(cards), path)
	return nil
}
