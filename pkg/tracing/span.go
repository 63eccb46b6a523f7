// Package tracing times the stages of a run as a tree of spans carried in
// the context. A finished tree can be logged through slog or flattened into
// Steps for reports.
package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/logger"
)

type contextKey struct{}

// Span is one timed stage.
type Span struct {
	Name     string
	TraceID  string
	start    time.Time
	duration time.Duration
	children []*Span
	attrs    map[string]any
	mu       sync.Mutex
	now      func() time.Time
}

// Step is a flattened span.
type Step struct {
	Name       string         `json:"name"`
	Depth      int            `json:"depth"`
	DurationMS int64          `json:"duration_ms"`
	Attrs      map[string]any `json:"attrs,omitempty"`
}

// Start opens a span. It becomes a child of the span already in ctx, or a
// new root whose trace ID is the request ID when one is set.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	parent := FromContext(ctx)
	span := &Span{Name: name, now: time.Now}
	if parent != nil {
		span.TraceID = parent.TraceID
		span.now = parent.now
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else {
		span.TraceID = logger.RequestID(ctx)
		if span.TraceID == "" {
			span.TraceID = newTraceID()
		}
	}
	span.start = span.now()
	return context.WithValue(ctx, contextKey{}, span), span
}

// FromContext returns the open span in ctx, or nil.
func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(contextKey{}).(*Span)
	return s
}

// End fixes the span's duration. Calling End twice keeps the first value.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.duration == 0 {
		s.duration = s.now().Sub(s.start)
	}
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	if s.attrs == nil {
		s.attrs = make(map[string]any)
	}
	s.attrs[key] = value
	s.mu.Unlock()
}

func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Steps flattens the tree depth-first.
func (s *Span) Steps() []Step {
	var out []Step
	s.flatten(0, &out)
	return out
}

func (s *Span) flatten(depth int, out *[]Step) {
	s.mu.Lock()
	step := Step{Name: s.Name, Depth: depth, DurationMS: s.duration.Milliseconds()}
	if len(s.attrs) > 0 {
		step.Attrs = make(map[string]any, len(s.attrs))
		for k, v := range s.attrs {
			step.Attrs[k] = v
		}
	}
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	*out = append(*out, step)
	for _, c := range children {
		c.flatten(depth+1, out)
	}
}

// Log writes one record per span at level.
func (s *Span) Log(ctx context.Context, l *slog.Logger, level slog.Level) {
	if !l.Enabled(ctx, level) {
		return
	}
	for _, step := range s.Steps() {
		attrs := []any{
			"trace_id", s.TraceID,
			"span", step.Name,
			"depth", step.Depth,
			"duration_ms", step.DurationMS,
		}
		keys := make([]string, 0, len(step.Attrs))
		for k := range step.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = append(attrs, k, step.Attrs[k])
		}
		l.Log(ctx, level, "span", attrs...)
	}
}

func newTraceID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b)
}
