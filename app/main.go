package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/threat-comb/app/api"
	"github.com/lysyi3m/threat-comb/app/cfg"
	"github.com/lysyi3m/threat-comb/app/feed"
	"github.com/lysyi3m/threat-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	// Logs go to stderr so --once output on stdout stays clean JSON.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Threat Comb", "version", appCfg.Version, "feeds_dir", appCfg.FeedsDir)

	configCache := feed.NewConfigCache(appCfg.FeedsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load feed configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Feed configurations loaded", "count", configCache.GetConfigCount())

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	runner := feed.NewRunner(
		feed.NewFetcher(httpClient, appCfg.UserAgent),
		feed.NewParser(),
		feed.NewExtractor(),
		feed.NewContentExtractor(),
		appCfg.Concurrency,
		appCfg.FetchTimeoutDuration(),
	)

	if appCfg.Once {
		if err := runOnce(runner, configCache); err != nil {
			slog.Error("Run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	store := tasks.NewResultStore()

	scheduler := tasks.NewScheduler(configCache, runner, store, appCfg.SchedulerIntervalDuration(), appCfg.WorkerCount)
	scheduler.Start()
	slog.Info("Scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerIntervalDuration().String())

	apiHandler := api.NewHandler(configCache, store, scheduler, appCfg.Version)
	router := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()

	slog.Info("Shutdown complete")
}

// runOnce runs the pipeline over the enabled feeds and writes the result to
// stdout. Per-feed failures are reported in the statuses, not as an error.
func runOnce(runner *feed.Runner, configCache *feed.ConfigCache) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result := runner.Run(ctx, configCache.GetEnabledConfigs())

	for _, status := range result.Statuses {
		if status.Status == feed.StateError {
			slog.Warn("Feed failed", "feed", status.FeedID, "error", status.Error)
		}
	}
	slog.Info("Run completed", "duration", time.Since(start), "feeds", len(result.Statuses), "items", len(result.Items))

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
