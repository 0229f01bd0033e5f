// Package main is the entry point for the ghostportfolio server.
// The server tracks crypto buy/sell transactions per user and serves
// portfolio rollups enriched with live market data.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ghostportfolio/server/internal/clients/awesomeapi"
	"github.com/ghostportfolio/server/internal/clients/coingecko"
	"github.com/ghostportfolio/server/internal/config"
	"github.com/ghostportfolio/server/internal/database"
	"github.com/ghostportfolio/server/internal/modules/identity"
	identityhandlers "github.com/ghostportfolio/server/internal/modules/identity/handlers"
	"github.com/ghostportfolio/server/internal/modules/ledger"
	ledgerhandlers "github.com/ghostportfolio/server/internal/modules/ledger/handlers"
	"github.com/ghostportfolio/server/internal/modules/rollup"
	rolluphandlers "github.com/ghostportfolio/server/internal/modules/rollup/handlers"
	"github.com/ghostportfolio/server/internal/observability"
	"github.com/ghostportfolio/server/internal/reliability"
	"github.com/ghostportfolio/server/internal/server"
	"github.com/ghostportfolio/server/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting ghostportfolio server")

	// Users database: accounts and credentials
	usersDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "users.db"),
		Profile: database.ProfileStandard,
		Name:    "users",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open users database")
	}
	defer usersDB.Close()

	// Ledger database: the append-only transaction trail
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	for _, db := range []*database.DB{usersDB, ledgerDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to run migrations")
		}
	}

	metrics := observability.NewMetrics()

	// Market data clients
	geckoClient := coingecko.NewClient(
		cfg.LivePriceURL,
		cfg.CatalogueURL,
		cfg.ReferenceAssetID,
		cfg.FeedTimeout,
		log,
	)
	fiatClient := awesomeapi.NewClient(cfg.FiatRateURL, cfg.FeedTimeout, log)

	// The coin catalogue is fetched once at startup and shared read-only.
	// Without it, transaction names cannot be resolved to market data ids.
	catalogueCtx, catalogueCancel := context.WithTimeout(context.Background(), 30*time.Second)
	catalogue, err := geckoClient.FetchCatalogue(catalogueCtx)
	catalogueCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch coin catalogue")
	}
	log.Info().Int("coins", catalogue.Size()).Msg("Coin catalogue loaded")

	// Wire repositories, services, handlers
	identityRepo := identity.NewRepository(usersDB.Conn(), log)
	identityService := identity.NewService(identityRepo, cfg.JWTSecret, cfg.TokenTTL, log)
	identityHandler := identityhandlers.NewHandler(identityService, log)

	ledgerRepo := ledger.NewRepository(ledgerDB.Conn(), log)
	ledgerService := ledger.NewService(ledgerRepo, log)
	ledgerHandler := ledgerhandlers.NewHandler(ledgerService, metrics, log)

	rollupService := rollup.NewService(
		ledgerRepo,
		geckoClient,
		fiatClient,
		catalogue,
		cfg.FeedTimeout,
		metrics,
		log,
	)
	rollupHandler := rolluphandlers.NewHandler(rollupService, log)

	srv := server.New(server.Config{
		Log:              log,
		Config:           cfg,
		UsersDB:          usersDB,
		LedgerDB:         ledgerDB,
		IdentityService:  identityService,
		IdentityHandlers: identityHandler,
		LedgerHandlers:   ledgerHandler,
		RollupHandlers:   rollupHandler,
	})

	// Background jobs: nightly maintenance, plus cloud backups when configured
	scheduler := cron.New()
	maintenanceJob := reliability.NewMaintenanceJob([]*database.DB{usersDB, ledgerDB}, log)
	if _, err := scheduler.AddJob("0 3 * * *", maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule maintenance job")
	}

	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(
			cfg.Backup.Endpoint,
			cfg.Backup.AccessKey,
			cfg.Backup.SecretKey,
			cfg.Backup.Bucket,
			log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup storage client")
		}

		backupService := reliability.NewBackupService(
			[]*database.DB{usersDB, ledgerDB},
			s3Client,
			cfg.DataDir,
			cfg.Backup.KeepLast,
			metrics,
			log,
		)

		_, err = scheduler.AddFunc(cfg.Backup.Schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			if err := backupService.CreateAndUploadBackup(ctx); err != nil {
				log.Error().Err(err).Msg("Scheduled backup failed")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Backup.Schedule).Msg("Failed to schedule backups")
		}

		log.Info().Str("schedule", cfg.Backup.Schedule).Msg("Cloud backups enabled")
	} else {
		log.Info().Msg("Cloud backups disabled (no credentials configured)")
	}

	scheduler.Start()

	// Start HTTP server
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Wait for any running scheduled job to finish
	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Flush WAL files before closing so the on-disk databases are complete
	for _, db := range []*database.DB{usersDB, ledgerDB} {
		if err := db.Checkpoint(); err != nil {
			log.Warn().Err(err).Str("database", db.Name()).Msg("Final checkpoint failed")
		}
	}

	log.Info().Msg("Server stopped")
}
