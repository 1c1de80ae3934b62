package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appoffline "github.com/distribuidora/backend/internal/application/offline"
	"github.com/distribuidora/backend/internal/infrastructure/config"
	"github.com/distribuidora/backend/internal/infrastructure/localstore"
	"github.com/distribuidora/backend/internal/infrastructure/logger"
	"github.com/distribuidora/backend/internal/infrastructure/serverclient"
	"github.com/distribuidora/backend/internal/infrastructure/telemetry"
	"github.com/distribuidora/backend/internal/interfaces/agentapi"
	"github.com/distribuidora/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = 6 * time.Hour
)

func main() {
	var (
		logLevel    string
		statusLimit int
	)
	flag.StringVar(&logLevel, "log-level", "", "Override the configured log level")
	flag.IntVar(&statusLimit, "limit", 20, "Operations listed per status by the status command")
	flag.Usage = printUsage
	flag.Parse()

	command := "run"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	store, err := localstore.Open(cfg.Agent.DBPath,
		localstore.WithLogger(logger.NewGormLogger(log, logger.MapGormLogLevel("warn"))))
	if err != nil {
		log.Fatal("Failed to open local store", zap.String("path", cfg.Agent.DBPath), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing local store", zap.Error(err))
		}
	}()
	queue := appoffline.NewQueueService(localstore.NewQueueRepository(store), localstore.NewCacheStore(store), log)

	switch command {
	case "run":
		run(cfg, log, queue)
	case "status":
		if err := printStatus(context.Background(), os.Stdout, queue, statusLimit); err != nil {
			log.Fatal("Failed to read queue", zap.Error(err))
		}
	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, queue *appoffline.QueueService) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting distribuidora agent",
		zap.String("server", cfg.Agent.ServerURL),
		zap.String("listen", cfg.Agent.ListenAddr),
		zap.String("db", cfg.Agent.DBPath),
	)

	// a pass interrupted by a crash leaves operations in processing
	if _, err := queue.ReclaimStale(ctx, 0); err != nil {
		log.Error("Failed to reclaim interrupted operations", zap.Error(err))
	}

	client, err := serverclient.New(serverclient.Config{
		BaseURL:  cfg.Agent.ServerURL,
		Username: cfg.Agent.Username,
		Password: cfg.Agent.Password,
		Timeout:  cfg.Agent.RequestTimeout,
	}, log)
	if err != nil {
		log.Fatal("Invalid server configuration", zap.Error(err))
	}

	metrics := telemetry.NewAgentMetrics()
	replayer := appoffline.NewReplayer(queue, client, appoffline.ReplayConfig{
		Batch:       cfg.Agent.ReplayBatch,
		MaxAttempts: cfg.Agent.MaxAttempts,
		Rate:        cfg.Agent.ReplayRate,
		Burst:       cfg.Agent.ReplayBurst,
	}, log)
	replayer.SetObserver(metrics)

	monitor := appoffline.NewMonitor(client, cfg.Agent.ProbeInterval, cfg.Agent.ProbeTimeout, log)
	monitor.OnTransition(metrics.ObserveConnectivity)
	monitor.OnOnline(func() {
		replayer.Trigger(ctx)
		go refreshProducts(ctx, client, queue, log)
	})
	go monitor.Run(ctx)
	go housekeeping(ctx, queue, cfg.Agent.StaleAfter, cfg.Agent.PurgeAfter, log)

	gin.SetMode(gin.ReleaseMode)
	middleware.SetupValidator()
	api := agentapi.New(ctx, agentapi.Deps{
		Queue:     queue,
		Replayer:  replayer,
		Monitor:   monitor,
		Stock:     appoffline.NewStockChecker(queue, log),
		Metrics:   metrics,
		Supported: serverclient.Supported,
		Logger:    log,
	})
	srv := &http.Server{
		Addr:              cfg.Agent.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Agent API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start agent API", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()
	log.Info("Shutting down agent...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Agent API forced to shutdown", zap.Error(err))
	}
	replayer.Wait()
	log.Info("Agent exited")
}

// refreshProducts keeps the stock pre-check cache current while online
func refreshProducts(ctx context.Context, client *serverclient.Client, queue *appoffline.QueueService, log *zap.Logger) {
	products, err := client.FetchProducts(ctx)
	if err != nil {
		log.Warn("Failed to refresh product cache", zap.Error(err))
		return
	}
	if err := queue.CacheData(ctx, appoffline.ProductsCacheKey, products); err != nil {
		log.Warn("Failed to store product cache", zap.Error(err))
	}
}

// housekeeping returns stuck operations to pending and drops old completed ones
func housekeeping(ctx context.Context, queue *appoffline.QueueService, staleAfter, purgeAfter time.Duration, log *zap.Logger) {
	reclaim := time.NewTicker(staleAfter)
	defer reclaim.Stop()
	purge := time.NewTicker(purgeInterval)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reclaim.C:
			if _, err := queue.ReclaimStale(ctx, staleAfter); err != nil {
				log.Warn("Failed to reclaim stale operations", zap.Error(err))
			}
		case <-purge.C:
			if n, err := queue.Purge(ctx, purgeAfter); err != nil {
				log.Warn("Failed to purge completed operations", zap.Error(err))
			} else if n > 0 {
				log.Info("Purged completed operations", zap.Int64("count", n))
			}
		}
	}
}

func printUsage() {
	fmt.Println(`Distribuidora field agent

Usage:
  agent [flags] [command]

Commands:
  run       Serve the local API and replay the offline queue (default)
  status    Print the offline queue as a table

Flags:
  -limit int          Operations listed per status by status (default: 20)
  -log-level string   Override the configured log level

Configuration is read from config.toml and DIST_AGENT_* variables.`)
}
