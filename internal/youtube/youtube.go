// Package youtube fetches video titles for seed keywords, either through the
// YouTube Data API v3 or by reading the ytInitialData blob embedded in the
// public results page. Every search returns a Result that states explicitly
// whether it succeeded.
package youtube

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/resilience"
)

const (
	SourceAPI    = "api"
	SourceScrape = "scrape"
)

// Result is the outcome of one keyword search. A failed search has a non-nil
// Err and no titles; a successful search may legitimately have zero titles.
type Result struct {
	Keyword string   `json:"keyword"`
	Titles  []string `json:"titles"`
	Source  string   `json:"source"`
	Cached  bool     `json:"-"`
	Err     error    `json:"-"`
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Failed builds a failure Result.
func Failed(keyword, source string, err error) Result {
	return Result{Keyword: keyword, Source: source, Err: err}
}

// Searcher returns up to limit video titles for keyword.
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) Result
}

// Deps are the optional collaborators New wires in.
type Deps struct {
	Metrics  *metrics.Metrics
	Cache    Cache
	CacheTTL time.Duration
}

// New builds the searcher stack for cfg: the API or scrape client, pacing
// between upstream calls, and the title cache when deps.Cache is set. Mode
// "api" without a key fails with ErrMissingCredentials.
func New(cfg config.YouTubeConfig, deps Deps) (Searcher, error) {
	var base Searcher
	switch cfg.Mode {
	case "api":
		c, err := NewAPIClient(cfg, deps.Metrics)
		if err != nil {
			return nil, err
		}
		base = c
	case "scrape":
		base = NewScrapeClient(cfg, deps.Metrics)
	case "auto", "":
		if cfg.APIKey != "" {
			c, err := NewAPIClient(cfg, deps.Metrics)
			if err != nil {
				return nil, err
			}
			base = c
		} else {
			base = NewScrapeClient(cfg, deps.Metrics)
		}
	default:
		return nil, fmt.Errorf("%w: youtube mode %q", apperrors.ErrInvalidInput, cfg.Mode)
	}

	s := NewPaced(base, cfg.RequestInterval)
	if deps.Cache != nil {
		s = NewCachedSearcher(s, deps.Cache, deps.CacheTTL, deps.Metrics)
	}
	return s, nil
}

func newBreaker(name string, m *metrics.Metrics) *resilience.CircuitBreaker {
	cfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Minute,
	}
	if m != nil {
		cfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return resilience.NewCircuitBreaker(name, cfg)
}

func observe(m *metrics.Metrics, source string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.YouTubeRequestsTotal.WithLabelValues(source, outcome).Inc()
	m.YouTubeLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
