package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vitalstack/vitals-engine/internal/api"
	"github.com/vitalstack/vitals-engine/internal/archive"
	"github.com/vitalstack/vitals-engine/internal/cache"
	"github.com/vitalstack/vitals-engine/internal/config"
	"github.com/vitalstack/vitals-engine/internal/engine"
	"github.com/vitalstack/vitals-engine/internal/metrics"
	"github.com/vitalstack/vitals-engine/internal/services"
	"github.com/vitalstack/vitals-engine/internal/source"
	"github.com/vitalstack/vitals-engine/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the beacon collector and aggregation engine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting vitals-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, snapshots stay local", slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	}
	defer func() { _ = cacheProvider.Close() }()
	snapshots := cache.NewSnapshotStore(cacheProvider, cfg.Cache.SnapshotTTL)

	var archiver services.Archiver
	if cfg.Archive.Enabled {
		store, err := archive.Open(cfg.Archive.Path, logger)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer func() { _ = store.Close() }()
		archiver = store
	}

	eng, err := engine.New(engineOptions(cfg.Engine), logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	pack, err := engine.LoadRulePack(cfg.Rules.Path)
	if err != nil {
		return fmt.Errorf("load rule pack: %w", err)
	}
	eng.SetRulePack(pack)

	svc := services.NewVitalsService(logger, eng, snapshots, archiver, cfg.Engine.PageOrigin)

	feed := source.NewFeed()
	svc.Attach(feed)
	defer svc.Detach(feed)

	server, err := api.NewServer(cfg.Server, svc, feed, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Rules.Watch {
		go func() {
			if err := engine.WatchRulePack(ctx, cfg.Rules.Path, logger, svc.SetRulePack); err != nil {
				logger.Warn("rule pack watcher stopped", slog.Any("error", err))
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("beacon server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("vitals-engine stopped")
	return nil
}

// engineOptions maps the file configuration onto engine options. DetectIssues
// and TrackAttribution default to on when unset.
func engineOptions(ec config.EngineConfig) engine.Options {
	opts := engine.DefaultOptions()
	opts.Threshold = ec.Threshold
	opts.ReportAllChanges = ec.ReportAllChanges
	opts.Debug = ec.Debug
	if ec.DetectIssues != nil {
		opts.DetectIssues = *ec.DetectIssues
	}
	if ec.TrackAttribution != nil {
		opts.TrackAttribution = *ec.TrackAttribution
	}
	if ec.MinInteractionLatency > 0 {
		opts.MinInteractionLatency = ec.MinInteractionLatency
	}
	if ec.LongTaskThreshold > 0 {
		opts.LongTaskThreshold = ec.LongTaskThreshold
	}
	opts.PageOrigin = ec.PageOrigin
	return opts
}
