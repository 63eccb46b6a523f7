package integration

import (
	"context"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/history"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/trend"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/youtube"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/redis"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "wordcloud_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "wordcloud"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// skipIfNoRedis skips the test when Redis is unavailable.
func skipIfNoRedis(t *testing.T) *pkgredis.Client {
	t.Helper()
	rc, err := pkgredis.NewClient(config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		DB:       envOrDefaultInt("TEST_REDIS_DB", 15),
		PoolSize: 2,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { rc.Close() })
	return rc
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	store := history.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema should be idempotent: %v", err)
	}
	if _, err := db.DB.ExecContext(ctx, `DELETE FROM cloud_snapshots WHERE profile = 'integration-test'`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		r := &trend.Report{
			Profile:     "integration-test",
			Entries:     []ranker.Entry{{Token: "돼지국밥", Count: i + 1}},
			Words:       []cloud.Word{{Text: "돼지국밥", Size: 100, Count: i + 1}},
			GeneratedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveSnapshot(ctx, r); err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
	}

	latest, err := store.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest == nil || latest.Entries[0].Count != 3 {
		t.Fatalf("latest = %+v, want the third report", latest)
	}

	snaps, err := store.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	if !snaps[0].GeneratedAt.After(snaps[1].GeneratedAt) {
		t.Error("snapshots not ordered newest first")
	}
	if snaps[0].WordCount != 1 || snaps[0].Report == nil {
		t.Errorf("snapshot = %+v", snaps[0])
	}
}

type countingSearcher struct {
	calls int
}

func (c *countingSearcher) Search(_ context.Context, keyword string, _ int) youtube.Result {
	c.calls++
	return youtube.Result{Keyword: keyword, Titles: []string{"부산 밀면 맛집"}, Source: youtube.SourceAPI}
}

func TestRedisTitleCache(t *testing.T) {
	rc := skipIfNoRedis(t)
	ctx := context.Background()

	next := &countingSearcher{}
	cached := youtube.NewCachedSearcher(next, rc, time.Minute, nil)
	if err := cached.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	first := cached.Search(ctx, "부산 맛집", 50)
	second := cached.Search(ctx, "부산 맛집", 50)
	if !first.OK() || !second.OK() {
		t.Fatalf("searches failed: %v / %v", first.Err, second.Err)
	}
	if next.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", next.calls)
	}
	if !second.Cached || second.Titles[0] != "부산 밀면 맛집" {
		t.Errorf("second result = %+v", second)
	}

	if err := cached.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	cached.Search(ctx, "부산 맛집", 50)
	if next.calls != 2 {
		t.Errorf("upstream calls after invalidate = %d, want 2", next.calls)
	}
}
