package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vertextoedge/bulkfetch/internal/adapter/filesystem"
	"github.com/vertextoedge/bulkfetch/internal/adapter/remote"
	"github.com/vertextoedge/bulkfetch/internal/adapter/sqlite"
	"github.com/vertextoedge/bulkfetch/internal/config"
	"github.com/vertextoedge/bulkfetch/internal/logger"
	"github.com/vertextoedge/bulkfetch/internal/port"
	"github.com/vertextoedge/bulkfetch/internal/progress"
	"github.com/vertextoedge/bulkfetch/internal/service/fetcher"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	zapLogger := logger.Get()
	zapLogger.Info("starting bulkfetch",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	targets, err := cfg.Targets()
	if err != nil {
		zapLogger.Error("invalid targets", zap.Error(err))
		return 1
	}

	// Initialize local store
	store, err := filesystem.NewStore(cfg.Download.TempDir, cfg.Download.DownloadDir)
	if err != nil {
		zapLogger.Error("failed to create local store", zap.Error(err))
		return 1
	}

	// Open transfer journal when configured
	var journal port.TransferJournal
	if cfg.Journal.Path != "" {
		js, err := sqlite.Open(cfg.Journal.Path)
		if err != nil {
			zapLogger.Error("failed to open transfer journal",
				zap.Error(err), zap.String("path", cfg.Journal.Path))
			return 1
		}
		defer js.Close()
		journal = js
	}

	clientCfg := &remote.ClientConfig{
		StreamTimeout:       cfg.Download.GetStreamTimeout(),
		ProbeTimeout:        cfg.Download.GetProbeTimeout(),
		ConnectivityTimeout: cfg.Connectivity.GetTimeout(),
		MaxIdleConnsPerHost: cfg.Download.Workers,
		UserAgent:           "bulkfetch/" + version,
	}

	policy := fetcher.Policy{
		MaxRetries:   uint32(cfg.Retry.MaxRetries),
		RetryDelay:   cfg.Retry.GetDelay(),
		PollInterval: cfg.Connectivity.GetPollInterval(),
		ChunkSize:    cfg.Download.GetChunkSize(),
	}
	if cfg.Download.RateLimitKBps > 0 {
		policy.Bandwidth = rate.NewLimiter(
			rate.Limit(cfg.Download.RateLimitKBps*1024),
			cfg.Download.GetChunkSize())
	}

	deps := fetcher.Deps{
		Prober:  remote.NewProber(clientCfg.ProbeTimeout, clientCfg.UserAgent, zapLogger),
		Client:  remote.NewClient(clientCfg),
		Store:   store,
		Network: remote.NewMonitor(cfg.Connectivity.ProbeURL, clientCfg.ConnectivityTimeout, zapLogger),
		Sink:    progress.NewTracker(zapLogger, cfg.Download.GetProgressLogInterval()),
		Journal: journal,
	}

	orch := fetcher.NewOrchestrator(fetcher.Config{
		Workers: cfg.Download.Workers,
		Policy:  policy,
	}, deps, zapLogger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	results := orch.Run(ctx, targets)
	if failed := results.Failed(); failed > 0 {
		zapLogger.Warn("batch completed with failures", zap.Int("failed", failed))
		return 1
	}
	return 0
}
