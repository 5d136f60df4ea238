package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/regionstats/server/internal/api"
	"github.com/obsidianstack/regionstats/server/internal/config"
	"github.com/obsidianstack/regionstats/server/internal/logging"
	"github.com/obsidianstack/regionstats/server/internal/metrics"
	"github.com/obsidianstack/regionstats/server/internal/telemetry"
)

const defaultConfigPath = "config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to config file")
	dataPath := flag.String("data", "", "telemetry dataset (.json or .parquet); overrides server.data_path")
	flag.Parse()

	cfg, cfgErr := loadConfig(*configPath)
	if cfg == nil {
		cfg = config.Default()
	}
	logging.Init(cfg.Server.Log.SlogLevel(), cfg.Server.Log.Format)

	if cfgErr != nil {
		slog.Error("failed to load config", "err", cfgErr)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Server.DataPath = *dataPath
	}

	slog.Info("regionstats-server starting",
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"data_path", cfg.Server.DataPath,
	)

	// The dataset is loaded exactly once, before the listener opens.
	// A failed load is served as-is: every query then returns 500.
	ds, err := telemetry.Load(cfg.Server.DataPath)
	if err != nil {
		slog.Error("telemetry dataset unavailable, queries will fail",
			"path", cfg.Server.DataPath, "err", err)
	} else {
		slog.Info("telemetry dataset loaded",
			"path", cfg.Server.DataPath,
			"records", ds.Len(),
			"regions", len(ds.Regions()),
		)
	}

	m := metrics.New()
	m.SetDataset(ds.Len(), ds.Err() == nil)

	handler := api.New(ds, m, api.Options{
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		AllowedOrigins:   cfg.Server.CORS.AllowedOrigins,
		AllowCredentials: cfg.Server.CORS.AllowCredentials,
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: handler,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("regionstats-server shutting down")
		shutdownCtx := context.Background()
		if d := cfg.Server.ShutdownTimeout; d > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, d)
			defer cancel()
		}
		return httpSrv.Shutdown(shutdownCtx)
	})

	// Only the log level is hot-reloadable; the dataset stays as loaded.
	if _, err := os.Stat(*configPath); err == nil {
		g.Go(func() error {
			return config.Watch(gctx, *configPath, func(updated *config.Config) {
				logging.SetLevel(updated.Server.Log.SlogLevel())
				if updated.Server.DataPath != cfg.Server.DataPath && *dataPath == "" {
					slog.Warn("config: data_path change ignored until restart",
						"current", cfg.Server.DataPath, "configured", updated.Server.DataPath)
				}
			})
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("regionstats-server stopped", "err", err)
		os.Exit(1)
	}
}

// loadConfig reads path. A missing file at the default path is not an error:
// the service then runs on built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}
