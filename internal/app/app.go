// Package app wires configuration into the running pipeline: the title
// source with its optional Redis cache, the normalizer, the generator and
// the optional PostgreSQL and Kafka history sinks.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/history"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/trend"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/youtube"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/redis"
)

// App holds the wired components. Optional parts are nil when disabled or
// unreachable at startup.
type App struct {
	Config     *config.Config
	Metrics    *metrics.Metrics
	Normalizer *extract.Normalizer
	Searcher   youtube.Searcher
	Generator  *trend.Generator
	Store      *history.Store
	Publisher  *history.Publisher
	Redis      *pkgredis.Client
	Postgres   *postgres.Client

	producer *kafka.Producer
	logger   *slog.Logger
}

// New builds the pipeline for cfg. It fails on an unknown profile and on
// ErrMissingCredentials (youtube.mode=api without a key). Redis, PostgreSQL
// and Kafka problems only disable the affected feature.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*App, error) {
	a := &App{
		Config:  cfg,
		Metrics: m,
		logger:  slog.Default().With("component", "app"),
	}

	profile, err := extract.FromConfig(cfg.Extract)
	if err != nil {
		return nil, err
	}
	a.Normalizer = extract.NewNormalizer(profile)

	deps := youtube.Deps{Metrics: m, CacheTTL: cfg.Redis.CacheTTL}
	if cfg.YouTube.CacheEnabled {
		rc, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			a.logger.Warn("redis unavailable, title cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			a.Redis = rc
			deps.Cache = rc
		}
	}
	a.Searcher, err = youtube.New(cfg.YouTube, deps)
	if err != nil {
		a.Close()
		return nil, err
	}

	var opts trend.GeneratorOptions
	opts.Keywords = cfg.YouTube.Keywords
	opts.Page = cfg.Page
	opts.Metrics = m

	if cfg.History.StoreEnabled {
		if err := a.openStore(ctx); err != nil {
			a.logger.Warn("snapshot storage disabled", "error", err)
		} else {
			opts.Store = a.Store
		}
	}
	if cfg.History.PublishEnabled {
		a.producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CloudGenerated)
		a.Publisher = history.NewPublisher(a.producer)
		opts.Publisher = a.Publisher
	}

	renderer, err := cloud.NewRenderer(cfg.Page.FallbackTitle)
	if err != nil {
		a.Close()
		return nil, err
	}
	collector := trend.NewCollector(a.Searcher, a.Normalizer, trend.CollectorConfig{
		PerKeyword: cfg.YouTube.MaxResultsPerKeyword,
		Limit:      cfg.Ranking.Limit,
	}, m)
	a.Generator = trend.NewGenerator(collector, renderer, opts)

	a.logger.Info("pipeline ready",
		"profile", profile.Name,
		"mode", cfg.YouTube.Mode,
		"keywords", len(cfg.YouTube.Keywords),
		"cache", a.Redis != nil,
		"store", a.Store != nil,
		"publish", a.Publisher != nil,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	db, err := postgres.New(a.Config.Postgres)
	if err != nil {
		return err
	}
	store := history.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return err
	}
	a.Postgres = db
	a.Store = store
	return nil
}

// Close releases every connection the App opened.
func (a *App) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("closing kafka producer", "error", err)
		}
	}
	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			a.logger.Error("closing postgres", "error", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Error("closing redis", "error", err)
		}
	}
}

// WriteFallbackPage writes the "no data" page configured in page. The CLI
// uses it when the title source cannot be built.
func WriteFallbackPage(page config.PageConfig, m *metrics.Metrics) error {
	renderer, err := cloud.NewRenderer(page.FallbackTitle)
	if err != nil {
		return err
	}
	gen := trend.NewGenerator(nil, renderer, trend.GeneratorOptions{Page: page, Metrics: m})
	if err := gen.WriteFallback(); err != nil {
		return fmt.Errorf("writing fallback page to %s: %w", page.OutputPath, err)
	}
	return nil
}
