package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.YouTubeRequestsTotal.WithLabelValues("api", "ok").Inc()
	m.TitlesFetchedTotal.WithLabelValues("부산 맛집").Add(50)
	m.GenerationsTotal.WithLabelValues("fallback").Inc()
	m.RankedEntries.Set(80)

	if got := testutil.ToFloat64(m.TitlesFetchedTotal.WithLabelValues("부산 맛집")); got != 50 {
		t.Errorf("titles fetched = %v, want 50", got)
	}
	if got := testutil.ToFloat64(m.RankedEntries); got != 80 {
		t.Errorf("ranked entries = %v, want 80", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"youtube_requests_total", "wordcloud_generations_total", "wordcloud_ranked_entries"} {
		if !names[want] {
			t.Errorf("metric %s not gathered", want)
		}
	}
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	New(reg)
}
