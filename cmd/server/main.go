// Package main is the entry point for the tipster dashboard server.
// The server downloads CSV feed exports on a schedule, normalizes them
// into a unified dataset (games, recommendations, settled bets, parlay
// aggregates, Asian handicap lines), and serves that dataset together
// with pre-rendered charts to the embedded frontend.
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

	"github.com/aristath/tipster/internal/clients/feed"
	"github.com/aristath/tipster/internal/config"
	"github.com/aristath/tipster/internal/database"
	"github.com/aristath/tipster/internal/dataset"
	"github.com/aristath/tipster/internal/handicap"
	"github.com/aristath/tipster/internal/ingest"
	"github.com/aristath/tipster/internal/parlay"
	"github.com/aristath/tipster/internal/reliability"
	"github.com/aristath/tipster/internal/scheduler"
	"github.com/aristath/tipster/internal/server"
	"github.com/aristath/tipster/internal/sourcecache"
	"github.com/aristath/tipster/pkg/logger"
)

// main orchestrates the startup sequence:
//  1. Loads configuration from environment variables (.env file)
//  2. Initializes the logging system
//  3. Opens the cache database and applies migrations
//  4. Wires the feed client, parsers, and dataset assembler
//  5. Restores the last dataset snapshot when one exists
//  6. Registers background jobs (refresh, cache cleanup, maintenance, backups)
//  7. Starts the HTTP server and kicks off the first feed load
//  8. Waits for SIGINT/SIGTERM and performs graceful shutdown
func main() {
	// Load configuration first to get the log level
	cfg, err := config.Load()
	if err != nil {
		// Use a fallback logger so the configuration error itself is logged
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

	log.Info().Msg("Starting tipster")

	// Single SQLite database: cached feed sources plus dataset snapshots.
	// Everything else lives in memory and is rebuilt from the feed.
	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	// Ingestion pipeline: feed client -> CSV parsers -> handicap deriver
	// -> parlay builder, assembled into one immutable dataset per load.
	cache := sourcecache.NewRepository(db.Conn())
	feedClient := feed.NewClient(cfg.FeedBaseURL, cache, log)
	parser := ingest.NewParser(log)
	deriver := handicap.NewDeriver(log)
	builder := parlay.NewBuilder(cfg.ParlayStake, log)
	snapshots := dataset.NewSnapshots(cache, log)
	assembler := dataset.NewAssembler(feedClient, parser, deriver, builder, snapshots, log)

	// A restored snapshot serves requests until the first refresh lands.
	// Without one the API answers 503 until the feed has been loaded.
	if assembler.Restore() {
		log.Info().Msg("Serving restored dataset snapshot until the first refresh")
	}

	backups := reliability.NewBackupService(db, filepath.Join(cfg.DataDir, "backups"), log)

	// Offsite backups are optional: enabled only when R2 credentials are
	// configured. A misconfigured client downgrades to local-only backups.
	var r2Backups *reliability.R2BackupService
	if cfg.Backup.Enabled() {
		store, err := reliability.NewR2Client(
			cfg.Backup.AccountID,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			cfg.Backup.Bucket,
			log,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize R2 client, offsite backups disabled")
		} else {
			r2Backups = reliability.NewR2BackupService(store, backups, cfg.DataDir, log)
			log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Offsite backups enabled")
		}
	}

	// Background jobs. The refresh schedule comes from configuration;
	// the housekeeping jobs run off-peak at fixed times.
	sched := scheduler.New(log)

	refreshJob := scheduler.NewRefreshDatasetJob(scheduler.RefreshDatasetConfig{
		Assembler: assembler,
		Log:       log,
	})
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.RefreshSchedule).Msg("Failed to register refresh job")
	}

	if err := sched.AddJob("0 15 * * * *", sourcecache.NewCleanupJob(cache, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}

	maintenanceJob := reliability.NewDailyMaintenanceJob(reliability.DailyMaintenanceConfig{
		DB:      db,
		Cache:   cache,
		DataDir: cfg.DataDir,
		Log:     log,
	})
	if err := sched.AddJob("0 30 3 * * *", maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	if err := sched.AddJob("0 0 4 * * *", reliability.NewDailyBackupJob(backups)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register backup job")
	}

	if r2Backups != nil {
		// Runs after the local backup so the fresh archive gets uploaded.
		r2Job := reliability.NewR2BackupJob(r2Backups, cfg.Backup.RetentionDays)
		if err := sched.AddJob("0 30 4 * * *", r2Job); err != nil {
			log.Fatal().Err(err).Msg("Failed to register offsite backup job")
		}
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		CacheDB:   db,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Assembler: assembler,
		Scheduler: sched,
		R2Backups: r2Backups,
	})
	srv.SetRefreshJob(refreshJob)

	// Start server in goroutine so the first feed load does not block it
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// First load runs in the background: a slow or unreachable feed must
	// not hold up the HTTP server. Until it completes the API serves the
	// restored snapshot, or 503 when there is none.
	go func() {
		if err := sched.RunNow(refreshJob); err != nil {
			log.Error().Err(err).Msg("Initial dataset load failed")
		}
	}()

	// Block until SIGINT (Ctrl+C) or SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// In-flight requests get up to 10 seconds to finish before the
	// server is forced down.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
