package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/resilience"
)

const (
	videosOnlyFilter = "EgIQAQ%3D%3D"
	maxPageBytes     = 4 << 20
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var initialDataMarkers = [][]byte{
	[]byte("var ytInitialData = "),
	[]byte(`window["ytInitialData"] = `),
}

type videoRenderer struct {
	VideoID string `json:"videoId"`
	Title   struct {
		Runs       []struct{ Text string } `json:"runs"`
		SimpleText string                  `json:"simpleText"`
	} `json:"title"`
}

func (v videoRenderer) title() string {
	if v.Title.SimpleText != "" {
		return v.Title.SimpleText
	}
	var b strings.Builder
	for _, r := range v.Title.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// ScrapeClient reads search results from the public results page. It needs
// no credentials but only sees the first page of results (about 20 videos).
type ScrapeClient struct {
	resultsURL string
	language   string
	timeout    time.Duration
	httpClient *http.Client
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewScrapeClient(cfg config.YouTubeConfig, m *metrics.Metrics) *ScrapeClient {
	resultsURL := cfg.ResultsURL
	if resultsURL == "" {
		resultsURL = "https://www.youtube.com/results"
	}
	return &ScrapeClient{
		resultsURL: resultsURL,
		language:   cfg.Language,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.RetryAttempts,
			InitialDelay: time.Second,
		},
		breaker: newBreaker("youtube-scrape", m),
		metrics: m,
		logger:  slog.Default().With("component", "youtube-scrape"),
	}
}

func (c *ScrapeClient) Search(ctx context.Context, keyword string, limit int) Result {
	start := time.Now()
	var titles []string
	err := resilience.WithTimeout(ctx, c.timeout, "youtube scrape search", func(ctx context.Context) error {
		return c.breaker.Execute(func() error {
			return resilience.Retry(ctx, "youtube.scrape", c.retry, func() error {
				body, err := c.fetch(ctx, keyword)
				if err != nil {
					return err
				}
				titles, err = ParseInitialData(body, limit)
				if err != nil {
					return resilience.Permanent(err)
				}
				return nil
			})
		})
	})
	observe(c.metrics, SourceScrape, start, err)
	if err != nil {
		return Failed(keyword, SourceScrape, err)
	}
	c.logger.Debug("scraped results page", "keyword", keyword, "titles", len(titles))
	return Result{Keyword: keyword, Titles: titles, Source: SourceScrape}
}

func (c *ScrapeClient) fetch(ctx context.Context, keyword string) ([]byte, error) {
	u := c.resultsURL + "?search_query=" + url.QueryEscape(keyword) + "&sp=" + videosOnlyFilter
	if c.language != "" {
		u += "&hl=" + url.QueryEscape(c.language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, resilience.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: results page status %d", apperrors.ErrUpstream, resp.StatusCode)
	default:
		return nil, resilience.Permanent(fmt.Errorf("%w: results page status %d", apperrors.ErrUpstream, resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading results page: %v", apperrors.ErrUpstream, err)
	}
	return body, nil
}

// ParseInitialData extracts up to limit video titles from a results page.
func ParseInitialData(page []byte, limit int) ([]string, error) {
	var blob []byte
	for _, marker := range initialDataMarkers {
		if idx := bytes.Index(page, marker); idx >= 0 {
			blob = extractJSON(page[idx+len(marker):])
			break
		}
	}
	if blob == nil {
		return nil, fmt.Errorf("%w: ytInitialData not found in results page", apperrors.ErrUpstream)
	}
	titles := make([]string, 0, limit)
	collectTitles(json.RawMessage(blob), limit, &titles)
	return titles, nil
}

// extractJSON returns the JSON object starting at b[0] by tracking brace
// depth outside string literals.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// collectTitles walks the JSON tree depth-first. Object keys are visited in
// sorted order so repeated parses of one page yield the same title order.
func collectTitles(v json.RawMessage, limit int, titles *[]string) {
	if len(*titles) >= limit {
		return
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(v, &obj); err == nil {
		if raw, ok := obj["videoRenderer"]; ok {
			var vr videoRenderer
			if err := json.Unmarshal(raw, &vr); err == nil && vr.VideoID != "" {
				if t := vr.title(); t != "" {
					*titles = append(*titles, t)
				}
				return
			}
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectTitles(obj[k], limit, titles)
			if len(*titles) >= limit {
				return
			}
		}
		return
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(v, &arr); err == nil {
		for _, item := range arr {
			collectTitles(item, limit, titles)
			if len(*titles) >= limit {
				return
			}
		}
	}
}
