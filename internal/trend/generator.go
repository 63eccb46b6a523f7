package trend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/tracing"
)

const updatedLayout = "2006-01-02 15:04"

// SnapshotStore persists finished reports.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, r *Report) error
}

// EventPublisher announces finished reports.
type EventPublisher interface {
	PublishGenerated(ctx context.Context, r *Report) error
}

// GeneratorOptions holds the optional parts of a Generator. Store and
// Publisher may be nil.
type GeneratorOptions struct {
	Keywords  []string
	Page      config.PageConfig
	Store     SnapshotStore
	Publisher EventPublisher
	Metrics   *metrics.Metrics
}

// Generator turns one collector run into a written word-cloud page.
type Generator struct {
	collector *Collector
	renderer  *cloud.Renderer
	keywords  []string
	page      config.PageConfig
	scale     cloud.Scale
	links     cloud.LinkBuilder
	store     SnapshotStore
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewGenerator(c *Collector, r *cloud.Renderer, opts GeneratorOptions) *Generator {
	scale, links := cloud.FromConfig(opts.Page)
	return &Generator{
		collector: c,
		renderer:  r,
		keywords:  opts.Keywords,
		page:      opts.Page,
		scale:     scale,
		links:     links,
		store:     opts.Store,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    slog.Default().With("component", "generator"),
		now:       time.Now,
	}
}

// Generate runs the collector, writes the page (the fallback page when no
// keyword survived) and then stores and publishes the report. Storage and
// publication failures are logged only.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	start := time.Now()
	ctx, root := tracing.Start(ctx, "generate")
	defer root.Log(ctx, g.logger, slog.LevelDebug)

	cctx, collect := tracing.Start(ctx, "collect")
	report, err := g.collector.Run(cctx, g.keywords)
	collect.End()
	if err != nil {
		root.End()
		g.record("cancelled", start, nil)
		return report, fmt.Errorf("collecting titles: %w", err)
	}
	report.Words = cloud.Build(report.Entries, g.scale, g.links)
	report.Fallback = len(report.Words) == 0
	report.GeneratedAt = g.now()

	if g.page.OutputPath != "" {
		_, render := tracing.Start(ctx, "render")
		err := cloud.WriteFile(g.page.OutputPath, func(w io.Writer) error {
			return g.RenderPage(w, report)
		})
		render.End()
		if err != nil {
			root.End()
			g.record("error", start, nil)
			return report, fmt.Errorf("writing page: %w", err)
		}
	}
	root.End()
	report.Timings = root.Steps()

	outcome := "ok"
	if report.Fallback {
		outcome = "fallback"
	}
	g.record(outcome, start, report)
	g.logger.Info("word cloud generated",
		"profile", report.Profile,
		"words", len(report.Words),
		"titles", report.TotalTitles,
		"spam", report.SpamTitles,
		"failed_keywords", report.FailedKeywords(),
		"output", g.page.OutputPath,
		"duration", time.Since(start),
	)

	if g.store != nil {
		if err := g.store.SaveSnapshot(ctx, report); err != nil {
			g.logger.Error("saving snapshot failed", "error", err)
		}
	}
	if g.publisher != nil {
		if err := g.publisher.PublishGenerated(ctx, report); err != nil {
			g.logger.Error("publishing generated event failed", "error", err)
		}
	}
	return report, nil
}

// RenderPage writes the page for r.
func (g *Generator) RenderPage(w io.Writer, r *Report) error {
	if r == nil || len(r.Words) == 0 {
		return g.renderer.RenderFallback(w)
	}
	return g.renderer.Render(w, cloud.Page{
		Title:   g.page.Title,
		Heading: g.page.Heading,
		Updated: r.GeneratedAt.Format(updatedLayout),
		Words:   r.Words,
	})
}

// WriteFallback writes the fallback page without running the pipeline. It is
// used when the title source cannot be set up at all.
func (g *Generator) WriteFallback() error {
	if g.page.OutputPath == "" {
		return nil
	}
	if err := cloud.WriteFile(g.page.OutputPath, g.renderer.RenderFallback); err != nil {
		return fmt.Errorf("writing fallback page: %w", err)
	}
	g.record("fallback", time.Now(), nil)
	return nil
}

func (g *Generator) record(outcome string, start time.Time, r *Report) {
	if g.metrics == nil {
		return
	}
	g.metrics.GenerationsTotal.WithLabelValues(outcome).Inc()
	g.metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if r != nil {
		g.metrics.RankedEntries.Set(float64(len(r.Entries)))
		g.metrics.LastGeneration.Set(float64(r.GeneratedAt.Unix()))
	}
}

// TopTokens is a convenience for callers that only need the ranking.
func TopTokens(r *Report, k int) []ranker.Entry {
	if r == nil {
		return nil
	}
	if k <= 0 || k >= len(r.Entries) {
		return r.Entries
	}
	return r.Entries[:k]
}
