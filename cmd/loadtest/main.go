// Command loadtest drives the read endpoints of a running trendserver and
// prints per-endpoint latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// defaultTargets weights the page and cloud reads over the rarer ones.
var defaultTargets = []string{
	"/",
	"/",
	"/api/v1/cloud",
	"/api/v1/cloud?top=20",
	"/api/v1/cloud?top=20",
	"/api/v1/profiles",
	"/api/v1/history?limit=5",
	"/health/ready",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Targets     []string
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the trend server")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	targets := flag.String("targets", "", "comma-separated paths to request (default: page, cloud, profiles, history, readiness)")
	flag.Parse()

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Targets:     parseTargets(*targets),
	}

	fmt.Println("=== Trend Server Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Paths:       %d\n", len(cfg.Targets))
	fmt.Println()

	start := time.Now()
	stats := runLoadTest(context.Background(), cfg, newHTTPClient(cfg.Concurrency))
	printReport(os.Stdout, stats, time.Since(start))

	if stats.Total() == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the server running?")
		os.Exit(1)
	}
}

func parseTargets(s string) []string {
	if strings.TrimSpace(s) == "" {
		return defaultTargets
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return defaultTargets
	}
	return out
}

func newHTTPClient(concurrency int) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// runLoadTest runs cfg.Concurrency workers until cfg.Duration elapses or ctx
// ends. Each worker walks the target list from its own offset.
func runLoadTest(ctx context.Context, cfg Config, client *http.Client) *Stats {
	stats := NewStats()
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		offset := w
		g.Go(func() error {
			for i := offset; ctx.Err() == nil; i++ {
				path := cfg.Targets[i%len(cfg.Targets)]
				d, status, err := fetch(ctx, client, cfg.BaseURL+path)
				if ctx.Err() != nil {
					return nil
				}
				stats.Record(endpointName(path), d, status, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return stats
}

func fetch(ctx context.Context, client *http.Client, rawURL string) (time.Duration, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return time.Since(start), 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return time.Since(start), resp.StatusCode, nil
}

// endpointName drops the query so /api/v1/cloud?top=20 groups with /api/v1/cloud.
func endpointName(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
