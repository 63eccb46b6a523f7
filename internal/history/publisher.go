package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/trend"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/logger"
)

// EventCloudGenerated is the type header value of generated events.
const EventCloudGenerated = "cloud_generated"

// topTokensInEvent bounds the summary carried next to the full report.
const topTokensInEvent = 10

// GeneratedEvent is the Kafka payload announcing a new word cloud.
type GeneratedEvent struct {
	Type        string         `json:"type"`
	Profile     string         `json:"profile"`
	Words       int            `json:"words"`
	Fallback    bool           `json:"fallback"`
	TopTokens   []ranker.Entry `json:"top_tokens"`
	GeneratedAt time.Time      `json:"generated_at"`
	Report      *trend.Report  `json:"report"`
}

// NewGeneratedEvent summarises r.
func NewGeneratedEvent(r *trend.Report) GeneratedEvent {
	return GeneratedEvent{
		Type:        EventCloudGenerated,
		Profile:     r.Profile,
		Words:       len(r.Words),
		Fallback:    r.Fallback,
		TopTokens:   trend.TopTokens(r, topTokensInEvent),
		GeneratedAt: r.GeneratedAt,
		Report:      r,
	}
}

type eventProducer interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher sends GeneratedEvents keyed by profile name, so every event for
// one profile lands on the same partition in order.
type Publisher struct {
	producer eventProducer
	logger   *slog.Logger
}

func NewPublisher(p *kafka.Producer) *Publisher {
	return newPublisher(p)
}

func newPublisher(p eventProducer) *Publisher {
	return &Publisher{
		producer: p,
		logger:   slog.Default().With("component", "cloud-publisher"),
	}
}

// PublishGenerated satisfies trend.EventPublisher.
func (p *Publisher) PublishGenerated(ctx context.Context, r *trend.Report) error {
	headers := map[string]string{"type": EventCloudGenerated}
	if id := logger.RequestID(ctx); id != "" {
		headers["request_id"] = id
	}
	event := NewGeneratedEvent(r)
	if err := p.producer.Publish(ctx, kafka.Event{
		Key:     r.Profile,
		Value:   event,
		Headers: headers,
	}); err != nil {
		return fmt.Errorf("publishing generated event: %w", err)
	}
	p.logger.Debug("generated event published", "profile", r.Profile, "words", event.Words)
	return nil
}
