// Command trendserver keeps the word cloud fresh and serves it over HTTP.
//
// It regenerates the cloud on refresh.interval, serves the latest page at /
// and the report at GET /api/v1/cloud, lists stored snapshots at
// GET /api/v1/history and accepts POST /api/v1/refresh. With
// history.followEnabled it also adopts clouds published to Kafka by other
// generators.
//
// Usage:
//
//	go run ./cmd/trendserver [-config configs/wordcloud.example.yaml]
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
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/app"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/history"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/server"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/youtube"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and TW_* env vars when empty)")
	flag.Parse()
	os.Exit(run(*configPath, prometheus.DefaultRegisterer))
}

// run serves until a shutdown signal and returns the process exit code.
func run(configPath string, reg prometheus.Registerer) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting trend server", "port", cfg.Server.Port, "profile", cfg.Extract.Profile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(reg)

	a, err := app.New(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		return 1
	}
	defer a.Close()

	opts := server.Options{
		RefreshTimeout: cfg.Refresh.Timeout,
		Profiles:       extract.ProfileNames(),
	}
	if a.Store != nil {
		opts.History = a.Store
	}
	srv := server.New(a.Generator, opts)

	checker := health.NewChecker()
	checker.Register("youtube", youtube.HealthCheck(a.Searcher))
	if a.Store != nil {
		checker.Register("postgres", health.Ping(a.Store.Ping, false))
		loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		latest, err := a.Store.LatestSnapshot(loadCtx)
		cancel()
		if err != nil {
			slog.Warn("could not load latest snapshot", "error", err)
		} else if latest != nil {
			srv.SetLatest(latest)
			slog.Info("restored latest snapshot", "generated_at", latest.GeneratedAt, "words", len(latest.Words))
		}
	}
	if a.Redis != nil {
		checker.Register("redis", health.Ping(a.Redis.Ping, true))
	}

	if cfg.History.FollowEnabled {
		follower := history.NewFollower(cfg.Kafka, srv.SetLatest)
		go func() {
			if err := follower.Start(ctx); err != nil {
				slog.Error("follower stopped", "error", err)
			}
		}()
	}

	go srv.RunRefreshLoop(ctx, cfg.Refresh.Interval)

	handler := srv.Handler(server.RouteOptions{
		Checker:          checker,
		Metrics:          m,
		CORS:             middleware.DefaultCORSConfig(),
		RequestTimeout:   cfg.Server.RequestTimeout,
		RefreshPerMinute: cfg.Server.RefreshPerMinute,
		AdminKeyHashes:   cfg.Server.AdminKeyHashes,
	})
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", handler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("trend server listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		return 1
	}

	slog.Info("trend server stopped")
	return 0
}
