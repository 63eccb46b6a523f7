package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/history"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/trend"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/middleware"
)

type fakeGenerator struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
	mu      sync.Mutex
	next    time.Time
}

func (g *fakeGenerator) Generate(ctx context.Context) (*trend.Report, error) {
	g.calls.Add(1)
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = g.next.Add(time.Minute)
	return sampleReport(g.next), nil
}

func (g *fakeGenerator) RenderPage(w io.Writer, r *trend.Report) error {
	if r == nil || len(r.Words) == 0 {
		_, err := io.WriteString(w, "<h2>No Data Found</h2>")
		return err
	}
	_, err := fmt.Fprintf(w, "<html>%s</html>", r.Words[0].Text)
	return err
}

func sampleReport(at time.Time) *trend.Report {
	return &trend.Report{
		Profile: "busan-v1",
		Entries: []ranker.Entry{{Token: "돼지국밥", Count: 3}, {Token: "밀면", Count: 2}, {Token: "노포", Count: 1}},
		Words: []cloud.Word{
			{Text: "돼지국밥", Size: 100, Count: 3},
			{Text: "밀면", Size: 71.67, Count: 2},
			{Text: "노포", Size: 43.33, Count: 1},
		},
		GeneratedAt: at,
	}
}

type fakeHistory struct {
	limit int
	err   error
}

func (h *fakeHistory) ListSnapshots(_ context.Context, limit int) ([]history.Snapshot, error) {
	h.limit = limit
	if h.err != nil {
		return nil, h.err
	}
	return []history.Snapshot{{ID: 1, Profile: "busan-v1", WordCount: 3}}, nil
}

func newHandler(s *Server) http.Handler {
	return s.Handler(RouteOptions{CORS: middleware.DefaultCORSConfig(), RequestTimeout: time.Second})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPageBeforeAndAfterGeneration(t *testing.T) {
	s := New(&fakeGenerator{}, Options{})
	h := newHandler(s)

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No Data Found")

	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	rec = get(t, h, "/")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "돼지국밥")
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	assert.Equal(t, http.StatusNotFound, get(t, h, "/favicon.ico").Code)
}

func TestCloudEndpoint(t *testing.T) {
	s := New(&fakeGenerator{}, Options{})
	h := newHandler(s)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/v1/cloud").Code)

	s.SetLatest(sampleReport(time.Now()))
	rec := get(t, h, "/api/v1/cloud?top=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var report trend.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Len(t, report.Entries, 2)
	assert.Len(t, report.Words, 2)
	assert.Len(t, s.Latest().Words, 3, "trimming must not mutate the stored report")

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/cloud?top=zero").Code)
}

func TestHistoryEndpoint(t *testing.T) {
	h := newHandler(New(&fakeGenerator{}, Options{}))
	rec := get(t, h, "/api/v1/history")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "snapshot storage disabled")

	store := &fakeHistory{}
	h = newHandler(New(&fakeGenerator{}, Options{History: store}))
	rec = get(t, h, "/api/v1/history?limit=5000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, history.MaxListLimit, store.limit)
	var body struct {
		Snapshots []history.Snapshot `json:"snapshots"`
		Count     int                `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/history?limit=-1").Code)

	store.err = errors.New("connection reset")
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/api/v1/history").Code)
}

func TestRefreshEndpointRunsOnce(t *testing.T) {
	gen := &fakeGenerator{release: make(chan struct{})}
	s := New(gen, Options{})
	h := newHandler(s)

	post := func() string {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
		require.Equal(t, http.StatusAccepted, rec.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		return body["status"]
	}

	assert.Equal(t, "started", post())
	assert.Equal(t, "already_running", post())

	close(gen.release)
	require.Eventually(t, func() bool { return s.Latest() != nil }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestRefreshRateLimited(t *testing.T) {
	s := New(&fakeGenerator{}, Options{})
	h := s.Handler(RouteOptions{RefreshPerMinute: 1})
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusAccepted, http.StatusTooManyRequests}, codes)
}

func TestRefreshRequiresAdminKey(t *testing.T) {
	s := New(&fakeGenerator{}, Options{})
	h := s.Handler(RouteOptions{AdminKeyHashes: []string{middleware.HashKey("ops-key")}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	req.Header.Set(middleware.APIKeyHeader, "ops-key")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cloud", nil))
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code, "reads stay open")
}

func TestRefreshErrorKeepsPreviousReport(t *testing.T) {
	gen := &fakeGenerator{}
	s := New(gen, Options{})
	first, err := s.Refresh(context.Background())
	require.NoError(t, err)

	gen.err = errors.New("quota")
	_, err = s.Refresh(context.Background())
	require.Error(t, err)
	assert.Same(t, first, s.Latest())
}

func TestSetLatestIgnoresOlderReports(t *testing.T) {
	s := New(&fakeGenerator{}, Options{})
	now := time.Now()
	newer := sampleReport(now)
	s.SetLatest(newer)
	s.SetLatest(sampleReport(now.Add(-time.Hour)))
	assert.Same(t, newer, s.Latest())
	s.SetLatest(nil)
	assert.Same(t, newer, s.Latest())
}

func TestReadiness(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("no titles")}
	s := New(gen, Options{})
	h := newHandler(s)

	rec := get(t, h, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")

	_, _ = s.Refresh(context.Background())
	assert.Contains(t, get(t, h, "/health/ready").Body.String(), "no titles")

	gen.err = nil
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)
	rec = get(t, h, "/health/ready")
	assert.True(t, strings.Contains(rec.Body.String(), `"status":"up"`), rec.Body.String())
	assert.Equal(t, http.StatusOK, get(t, h, "/health/live").Code)
}

func TestRunRefreshLoop(t *testing.T) {
	gen := &fakeGenerator{}
	s := New(gen, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunRefreshLoop(ctx, 10*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool { return gen.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop")
	}
}

func TestProfilesEndpoint(t *testing.T) {
	h := newHandler(New(&fakeGenerator{}, Options{Profiles: []string{"busan-strict", "busan-v1"}}))
	rec := get(t, h, "/api/v1/profiles")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"profiles":["busan-strict","busan-v1"]}`, rec.Body.String())
}
