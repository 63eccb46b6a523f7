// Command wordcloud runs the keyword pipeline once and writes the word-cloud
// page.
//
// It searches YouTube for every configured seed keyword, extracts keyword
// tokens from the video titles, ranks them and renders index.html. When no
// API key is available in api mode, or no keyword survives, it writes the
// "No Data Found" page and still exits 0.
//
// Usage:
//
//	go run ./cmd/wordcloud [-config configs/wordcloud.example.yaml] [-profile busan-strict] [-output site/index.html] [-print]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/app"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/trend"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/metrics"
)

// applyFlags overrides cfg with the non-empty command-line values. Blank
// entries in the keyword list are dropped.
func applyFlags(cfg *config.Config, profile, output, keywords string) {
	if profile != "" {
		cfg.Extract.Profile = profile
	}
	if output != "" {
		cfg.Page.OutputPath = output
	}
	if kws := config.SplitList(keywords); len(kws) > 0 {
		cfg.YouTube.Keywords = kws
	}
}

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and TW_* env vars when empty)")
	profile := flag.String("profile", "", "extraction profile, overrides extract.profile")
	output := flag.String("output", "", "output page path, overrides page.outputPath")
	keywords := flag.String("keywords", "", "comma-separated seed keywords, overrides youtube.keywords")
	printTop := flag.Bool("print", false, "print the ranked keywords to stdout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *profile, *output, *keywords)

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	m := metrics.New(prometheus.DefaultRegisterer)
	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	code := run(ctx, cfg, m, *printTop)
	stop()
	if shutdownMetrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = shutdownMetrics(shutdownCtx)
		cancel()
	}
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, m *metrics.Metrics, printTop bool) int {
	a, err := app.New(ctx, cfg, m)
	if errors.Is(err, apperrors.ErrMissingCredentials) {
		slog.Error("youtube api key missing, writing fallback page", "error", err)
		if err := app.WriteFallbackPage(cfg.Page, m); err != nil {
			slog.Error("fallback page failed", "error", err)
			return 1
		}
		return 0
	}
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		return 1
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Refresh.Timeout)
	defer cancel()

	report, err := a.Generator.Generate(ctx)
	if err != nil {
		slog.Error("generation failed", "error", err)
		return 1
	}
	if printTop {
		printReport(report)
	}
	slog.Info("page written", "path", cfg.Page.OutputPath, "words", len(report.Words), "fallback", report.Fallback)
	return 0
}

func printReport(r *trend.Report) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tKEYWORD\tCOUNT\tTITLES\tSIZE")
	for i, e := range r.Entries {
		size := 0.0
		if i < len(r.Words) {
			size = r.Words[i].Size
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.1f\n", i+1, e.Token, e.Count, e.Titles, size)
	}
	tw.Flush()

	fmt.Fprintln(os.Stdout)
	tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEED\tSOURCE\tTITLES\tSPAM\tTOKENS\tERROR")
	for _, k := range r.Keywords {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", k.Keyword, k.Source, k.Titles, k.Spam, k.Tokens, k.Error)
	}
	tw.Flush()
}
