package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// endpointStats aggregates results for one target path.
type endpointStats struct {
	requests  int64
	errors    int64
	latencies []time.Duration
	codes     map[int]int64
}

// Stats is safe for concurrent use by the workers.
type Stats struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

func NewStats() *Stats {
	return &Stats{endpoints: make(map[string]*endpointStats)}
}

// Record stores one request. A transport error counts as an error with no
// status code or latency sample.
func (s *Stats) Record(endpoint string, d time.Duration, status int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.endpoints[endpoint]
	if !ok {
		e = &endpointStats{codes: make(map[int]int64)}
		s.endpoints[endpoint] = e
	}
	e.requests++
	if err != nil {
		e.errors++
		return
	}
	if status < 200 || status >= 300 {
		e.errors++
	}
	e.codes[status]++
	e.latencies = append(e.latencies, d)
}

// Summary is the computed view of one endpoint.
type Summary struct {
	Endpoint string
	Requests int64
	Errors   int64
	P50      time.Duration
	P95      time.Duration
	P99      time.Duration
	Max      time.Duration
	Codes    map[int]int64
}

// Summaries returns one Summary per endpoint, sorted by name.
func (s *Stats) Summaries() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Summary, 0, len(s.endpoints))
	for name, e := range s.endpoints {
		sorted := append([]time.Duration(nil), e.latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		sum := Summary{
			Endpoint: name,
			Requests: e.requests,
			Errors:   e.errors,
			P50:      percentile(sorted, 50),
			P95:      percentile(sorted, 95),
			P99:      percentile(sorted, 99),
			Codes:    make(map[int]int64, len(e.codes)),
		}
		if len(sorted) > 0 {
			sum.Max = sorted[len(sorted)-1]
		}
		for c, n := range e.codes {
			sum.Codes[c] = n
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}

// Total sums requests across endpoints.
func (s *Stats) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.endpoints {
		n += e.requests
	}
	return n
}

func printReport(w io.Writer, stats *Stats, elapsed time.Duration) {
	total := stats.Total()
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	if total > 0 && elapsed > 0 {
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/elapsed.Seconds())
	}
	for _, s := range stats.Summaries() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "--- %s ---\n", s.Endpoint)
		fmt.Fprintf(w, "Requests: %d  Errors: %d", s.Requests, s.Errors)
		if s.Requests > 0 {
			fmt.Fprintf(w, " (%.2f%%)", float64(s.Errors)/float64(s.Requests)*100)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "P50: %s  P95: %s  P99: %s  Max: %s\n", s.P50, s.P95, s.P99, s.Max)
		codes := make([]int, 0, len(s.Codes))
		for c := range s.Codes {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		for _, c := range codes {
			fmt.Fprintf(w, "  %d: %d\n", c, s.Codes[c])
		}
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
