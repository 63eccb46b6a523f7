package trend

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/youtube"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/tracing"
)

// CollectorConfig sizes one run.
type CollectorConfig struct {
	PerKeyword int
	Limit      int
}

// Collector fetches titles for each keyword in turn and pools their tokens
// into one frequency table.
type Collector struct {
	searcher   youtube.Searcher
	normalizer *extract.Normalizer
	cfg        CollectorConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewCollector(s youtube.Searcher, n *extract.Normalizer, cfg CollectorConfig, m *metrics.Metrics) *Collector {
	if cfg.PerKeyword <= 0 {
		cfg.PerKeyword = 50
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 80
	}
	return &Collector{
		searcher:   s,
		normalizer: n,
		cfg:        cfg,
		metrics:    m,
		logger:     slog.Default().With("component", "trend-collector"),
		now:        time.Now,
	}
}

// Run searches keywords sequentially. A failed keyword is recorded in the
// report and contributes no titles; the run carries on. When ctx ends the
// partial report is returned together with ctx.Err().
func (c *Collector) Run(ctx context.Context, keywords []string) (*Report, error) {
	report := &Report{
		Profile:   c.normalizer.Profile().Name,
		Keywords:  make([]KeywordStat, 0, len(keywords)),
		StartedAt: c.now(),
	}
	table := ranker.NewTable()
	var ordinal uint32

	for _, kw := range keywords {
		if err := ctx.Err(); err != nil {
			c.finish(report, table)
			return report, err
		}
		kctx, span := tracing.Start(ctx, "keyword")
		span.SetAttr("keyword", kw)
		res := c.searcher.Search(kctx, kw, c.cfg.PerKeyword)
		stat := KeywordStat{Keyword: kw, Source: res.Source, Cached: res.Cached}
		span.SetAttr("source", res.Source)
		span.SetAttr("cached", res.Cached)
		if !res.OK() {
			stat.Error = res.Err.Error()
			span.SetAttr("error", stat.Error)
			span.End()
			report.Keywords = append(report.Keywords, stat)
			if ctx.Err() != nil {
				c.finish(report, table)
				return report, ctx.Err()
			}
			c.logger.Warn("keyword search failed, continuing", "keyword", kw, "source", res.Source, "error", res.Err)
			continue
		}

		for _, title := range res.Titles {
			stat.Titles++
			if c.normalizer.IsSpam(title) {
				stat.Spam++
				continue
			}
			tokens := c.normalizer.Normalize(title)
			table.AddTitle(ordinal, tokens)
			ordinal++
			stat.Tokens += len(tokens)
		}
		span.SetAttr("titles", stat.Titles)
		span.SetAttr("spam", stat.Spam)
		span.End()
		report.Keywords = append(report.Keywords, stat)
		report.TotalTitles += stat.Titles
		report.SpamTitles += stat.Spam

		if c.metrics != nil {
			c.metrics.TitlesFetchedTotal.WithLabelValues(kw).Add(float64(stat.Titles))
			c.metrics.SpamTitlesTotal.Add(float64(stat.Spam))
			c.metrics.TokensCountedTotal.Add(float64(stat.Tokens))
		}
		c.logger.Info("keyword collected",
			"keyword", kw,
			"source", res.Source,
			"cached", res.Cached,
			"titles", stat.Titles,
			"spam", stat.Spam,
			"tokens", stat.Tokens,
		)
	}

	c.finish(report, table)
	return report, nil
}

func (c *Collector) finish(report *Report, table *ranker.Table) {
	report.Entries = table.Top(c.cfg.Limit)
	report.TotalTokens = table.Total()
	report.DistinctTokens = table.Len()
}
