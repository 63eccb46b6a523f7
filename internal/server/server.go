// Package server serves the latest word cloud over HTTP and regenerates it
// on a schedule or on demand.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/history"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/trend"
	"golang.org/x/sync/singleflight"
)

// Generator produces and renders reports. *trend.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context) (*trend.Report, error)
	RenderPage(w io.Writer, r *trend.Report) error
}

// SnapshotLister lists stored reports. *history.Store satisfies it.
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, limit int) ([]history.Snapshot, error)
}

// Options configures a Server. History may be nil when storage is disabled.
type Options struct {
	History        SnapshotLister
	RefreshTimeout time.Duration
	Profiles       []string
}

// Server holds the most recent report and coordinates regeneration. At most
// one generation runs at a time; concurrent triggers share it.
type Server struct {
	gen            Generator
	history        SnapshotLister
	refreshTimeout time.Duration
	profiles       []string

	mu         sync.RWMutex
	latest     *trend.Report
	lastErr    error
	refreshing bool

	group  singleflight.Group
	baseMu sync.Mutex
	base   context.Context
	logger *slog.Logger
}

func New(gen Generator, opts Options) *Server {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 5 * time.Minute
	}
	return &Server{
		gen:            gen,
		history:        opts.History,
		refreshTimeout: opts.RefreshTimeout,
		profiles:       opts.Profiles,
		base:           context.Background(),
		logger:         slog.Default().With("component", "trend-server"),
	}
}

// Latest returns the newest report, or nil before the first generation.
func (s *Server) Latest() *trend.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// SetLatest adopts r when it is newer than the current report. It is fed by
// startup snapshot loading and by the Kafka follower.
func (s *Server) SetLatest(r *trend.Report) {
	if r == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil && r.GeneratedAt.Before(s.latest.GeneratedAt) {
		return
	}
	s.latest = r
}

// Refresh runs one generation and blocks until it finishes. Callers that
// arrive while a generation is running wait for and share its result.
func (s *Server) Refresh(ctx context.Context) (*trend.Report, error) {
	v, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		s.setRefreshing(true)
		defer s.setRefreshing(false)

		ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
		defer cancel()
		start := time.Now()
		report, err := s.gen.Generate(ctx)

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		if err != nil {
			s.logger.Error("refresh failed", "error", err, "duration", time.Since(start))
			return nil, err
		}
		s.SetLatest(report)
		s.logger.Info("refresh complete", "words", len(report.Words), "fallback", report.Fallback, "duration", time.Since(start))
		return report, nil
	})
	if err != nil {
		return nil, fmt.Errorf("refreshing cloud: %w", err)
	}
	return v.(*trend.Report), nil
}

// TriggerRefresh starts a background refresh and reports whether a new one
// was started (false when one is already running).
func (s *Server) TriggerRefresh() bool {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return false
	}
	s.refreshing = true
	s.mu.Unlock()

	go func() {
		if _, err := s.Refresh(s.baseContext()); err != nil {
			s.logger.Warn("triggered refresh failed", "error", err)
		}
	}()
	return true
}

// RunRefreshLoop generates immediately and then every interval until ctx
// is cancelled. A non-positive interval only runs the first generation.
func (s *Server) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	s.baseMu.Lock()
	s.base = ctx
	s.baseMu.Unlock()

	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn("initial generation failed", "error", err)
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("refresh loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh loop stopped")
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Warn("scheduled refresh failed", "error", err)
			}
		}
	}
}

func (s *Server) setRefreshing(v bool) {
	s.mu.Lock()
	s.refreshing = v
	s.mu.Unlock()
}

func (s *Server) isRefreshing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshing
}

func (s *Server) lastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Server) baseContext() context.Context {
	s.baseMu.Lock()
	defer s.baseMu.Unlock()
	return s.base
}
