package main

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRunReturnsErrorCodeWhenPortTaken(t *testing.T) {
	results := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><script>var ytInitialData = {"contents":{}};</script></html>`)
	}))
	defer results.Close()

	taken, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer taken.Close()
	port := taken.Addr().(*net.TCPAddr).Port

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
server:
  port: %d
youtube:
  mode: scrape
  resultsURL: %s
  keywords: [부산 맛집]
  requestInterval: 0s
  retryAttempts: 1
page:
  outputPath: %s
refresh:
  interval: 1h
logging:
  level: error
`, port, results.URL, filepath.Join(dir, "index.html"))
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	done := make(chan int, 1)
	go func() { done <- run(path, prometheus.NewRegistry()) }()
	select {
	case code := <-done:
		if code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after listen failure")
	}
}

func TestRunReturnsErrorCodeOnBadConfig(t *testing.T) {
	if code := run(filepath.Join(t.TempDir(), "missing.yaml"), prometheus.NewRegistry()); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
