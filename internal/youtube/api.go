package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/resilience"
)

// maxPageSize is the search.list maxResults ceiling.
const maxPageSize = 50

type searchListResponse struct {
	NextPageToken string           `json:"nextPageToken"`
	Items         []searchListItem `json:"items"`
}

type searchListItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
	} `json:"snippet"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// APIClient searches through the YouTube Data API v3 search.list endpoint.
type APIClient struct {
	baseURL    string
	keys       []string
	language   string
	region     string
	timeout    time.Duration
	httpClient *http.Client
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewAPIClient returns ErrMissingCredentials when no API key is configured.
func NewAPIClient(cfg config.YouTubeConfig, m *metrics.Metrics) (*APIClient, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.New(apperrors.ErrMissingCredentials, http.StatusServiceUnavailable,
			"set youtube.apiKey or YOUTUBE_API_KEY, or use youtube.mode=scrape")
	}
	keys := []string{cfg.APIKey}
	if cfg.APIKeyFallback != "" {
		keys = append(keys, cfg.APIKeyFallback)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/youtube/v3"
	}
	return &APIClient{
		baseURL:    baseURL,
		keys:       keys,
		language:   cfg.Language,
		region:     cfg.Region,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.RetryAttempts,
			InitialDelay: 500 * time.Millisecond,
		},
		breaker: newBreaker("youtube-api", m),
		metrics: m,
		logger:  slog.Default().With("component", "youtube-api"),
	}, nil
}

// Search pages through search.list until limit titles are collected or the
// results run out. A quota error on one key moves on to the fallback key.
func (c *APIClient) Search(ctx context.Context, keyword string, limit int) Result {
	start := time.Now()
	var titles []string
	err := resilience.WithTimeout(ctx, c.timeout, "youtube api search", func(ctx context.Context) error {
		var lastErr error
		for i, key := range c.keys {
			var err error
			titles, err = c.searchWithKey(ctx, keyword, limit, key)
			if err == nil {
				return nil
			}
			lastErr = err
			if !errors.Is(err, apperrors.ErrQuotaExceeded) {
				break
			}
			c.logger.Warn("api key quota exhausted", "key_index", i, "keyword", keyword)
		}
		return lastErr
	})
	observe(c.metrics, SourceAPI, start, err)
	if err != nil {
		return Failed(keyword, SourceAPI, err)
	}
	return Result{Keyword: keyword, Titles: titles, Source: SourceAPI}
}

func (c *APIClient) searchWithKey(ctx context.Context, keyword string, limit int, key string) ([]string, error) {
	titles := make([]string, 0, limit)
	pageToken := ""
	for len(titles) < limit {
		size := limit - len(titles)
		if size > maxPageSize {
			size = maxPageSize
		}
		var page searchListResponse
		err := c.breaker.Execute(func() error {
			return resilience.Retry(ctx, "youtube.search", c.retry, func() error {
				var err error
				page, err = c.fetchPage(ctx, keyword, size, pageToken, key)
				return err
			})
		})
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if item.Snippet.Title == "" {
				continue
			}
			titles = append(titles, html.UnescapeString(item.Snippet.Title))
			if len(titles) == limit {
				break
			}
		}
		if page.NextPageToken == "" || len(page.Items) == 0 {
			break
		}
		pageToken = page.NextPageToken
	}
	return titles, nil
}

func (c *APIClient) fetchPage(ctx context.Context, keyword string, size int, pageToken, key string) (searchListResponse, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", keyword)
	params.Set("maxResults", strconv.Itoa(size))
	params.Set("key", key)
	if c.language != "" {
		params.Set("relevanceLanguage", c.language)
	}
	if c.region != "" {
		params.Set("regionCode", c.region)
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return searchListResponse{}, resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return searchListResponse{}, resilience.Permanent(ctx.Err())
		}
		return searchListResponse{}, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return searchListResponse{}, classifyAPIError(resp)
	}
	var page searchListResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return searchListResponse{}, resilience.Permanent(fmt.Errorf("%w: decoding search.list: %v", apperrors.ErrUpstream, err))
	}
	return page, nil
}

// classifyAPIError maps a non-200 response onto a sentinel. Quota and client
// errors are permanent; 429 and 5xx are retried.
func classifyAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	for _, e := range apiErr.Error.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			return resilience.Permanent(apperrors.Newf(apperrors.ErrQuotaExceeded, http.StatusTooManyRequests, "%s", msg))
		}
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", apperrors.ErrUpstream, resp.StatusCode, msg)
	default:
		return resilience.Permanent(fmt.Errorf("%w: status %d: %s", apperrors.ErrUpstream, resp.StatusCode, msg))
	}
}
