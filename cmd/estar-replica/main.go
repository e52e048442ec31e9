// estar-replica keeps a local replica of validated documents. It watches a
// spool directory for wire-JSON documents, validates and stores them, prunes
// expired ephemerals on a ticker, and serves prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"earthstar/go-core/internal/config"
	"earthstar/go-core/internal/platform/addrlog"
	"earthstar/go-core/internal/platform/metrics"
	"earthstar/go-core/internal/platform/ratelimiter"
	"earthstar/go-core/internal/replica"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to estar.yaml (optional)")
	dataDir := flag.String("data-dir", "", "directory for replica local data (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("estar-replica version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *dataDir != "" {
		_ = os.Setenv("ESTAR_DATA_DIR", *dataDir)
	}

	cfg, err := config.LoadFromPath(*configPath)
	if err != nil {
		log.Fatalf("estar-replica failed to initialize: %v", err)
	}

	logger := slog.New(addrlog.Wrap(slog.NewTextHandler(os.Stderr, nil)))
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("estar-replica failed: %v", err)
	}
	logger.Info("estar-replica stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := replica.NewPersistentStore(filepath.Join(cfg.DataDir, "replica.json"))
	if err != nil {
		return fmt.Errorf("open replica: %w", err)
	}
	if err := os.MkdirAll(cfg.SpoolDir, 0o700); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}

	limiter := ratelimiter.New(cfg.IngestRPS, cfg.IngestBurst, 10*time.Minute)
	ingestor := replica.NewIngestor(store, limiter, cfg.Shares, logger)
	watcher := replica.NewSpoolWatcher(cfg.SpoolDir, ingestor, time.Second, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err.Error())
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go prune(ctx, store, cfg.PruneInterval, logger)

	logger.Info("estar-replica starting",
		"spool", cfg.SpoolDir,
		"metrics", cfg.MetricsAddr,
		"shares", len(cfg.Shares),
		"peers", len(cfg.BootstrapPeers),
	)
	return watcher.Run(ctx)
}

func prune(ctx context.Context, store *replica.Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := store.PruneExpired(time.Now())
			if err != nil {
				logger.Error("prune failed", "error", err.Error())
				continue
			}
			if pruned > 0 {
				metrics.DocumentsPruned.Add(float64(pruned))
				logger.Info("pruned expired documents", "count", pruned)
			}
		}
	}
}
