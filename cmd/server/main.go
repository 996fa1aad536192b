package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ganot/taskmirror/internal/config"
	"github.com/ganot/taskmirror/internal/directstore"
	"github.com/ganot/taskmirror/internal/domain/aggregate"
	"github.com/ganot/taskmirror/internal/domain/cache"
	"github.com/ganot/taskmirror/internal/domain/syncer"
	"github.com/ganot/taskmirror/internal/sqlite"
	"github.com/ganot/taskmirror/internal/tracker"
	"github.com/ganot/taskmirror/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.Cache.Path); err != nil {
		logger.Error("failed to prepare cache database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.Cache.Path)
	if err != nil {
		logger.Error("failed to open cache database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	client, err := tracker.NewClient(tracker.Config{
		BaseURL:   cfg.Tracker.BaseURL,
		APIKey:    cfg.Tracker.APIKey,
		Workspace: cfg.Tracker.Workspace,
		Timeout:   cfg.Tracker.Timeout,
		Retry:     tracker.Backoff{MaxAttempts: cfg.Tracker.MaxAttempts, BaseDelay: time.Second},
	}, logger)
	if err != nil {
		logger.Error("failed to create tracker client", "error", err)
		os.Exit(1)
	}

	snapshotRepo := sqlite.NewSnapshotRepository(db)
	statusRepo := sqlite.NewSyncStatusRepository(db)

	aggregateSvc := aggregate.NewService(client, client, client, cfg.Tracker.MaxInFlight, logger)
	cacheSvc := cache.NewService(snapshotRepo, nil, logger)
	syncSvc := syncer.NewService(aggregateSvc, snapshotRepo, statusRepo, syncer.LogNotifier{Logger: logger}, logger)

	var store transport.TaskSource
	if cfg.Store.DSN != "" {
		storeDB, err := sql.Open("pgx", cfg.Store.DSN)
		if err != nil {
			logger.Error("failed to open direct store", "error", err)
			os.Exit(1)
		}
		defer storeDB.Close()
		store = directstore.NewReader(storeDB, directstore.PlaceholderDollar, logger)
		logger.Info("direct store read path enabled")
	}

	var authMiddleware func(http.Handler) http.Handler
	if cfg.Server.AuthToken != "" {
		authMiddleware = transport.AuthMiddleware(cfg.Server.AuthToken)
	}

	router := transport.NewServer(aggregateSvc, store, cacheSvc, syncSvc, authMiddleware, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runStaleSweeper(sweepCtx, syncSvc, cfg.Sync, logger)

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer, syncSvc, stopSweep)
}

// runStaleSweeper periodically re-syncs emails whose cache has gone stale.
func runStaleSweeper(ctx context.Context, syncSvc *syncer.Service, cfg config.SyncConfig, logger *slog.Logger) {
	if cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			started, err := syncSvc.SweepStale(ctx, cfg.Staleness, cfg.SweepSpacing)
			if err != nil {
				logger.Error("stale sweep failed", "error", err)
				continue
			}
			if started > 0 {
				logger.Info("stale sweep started refreshes", "count", started)
			}
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server, syncSvc *syncer.Service, stopSweep context.CancelFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	stopSweep()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	// Let in-flight refreshes record their outcome before the process exits.
	syncSvc.Wait()
}
