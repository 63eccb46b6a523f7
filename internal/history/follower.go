package history

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/internal/trend"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/kafka"
)

// Follower consumes GeneratedEvents and hands each report to apply. A server
// uses it to pick up clouds built elsewhere.
type Follower struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func NewFollower(cfg config.KafkaConfig, apply func(*trend.Report)) *Follower {
	return &Follower{
		consumer: kafka.NewConsumer(cfg, cfg.Topics.CloudGenerated, HandleGenerated(apply)),
		logger:   slog.Default().With("component", "cloud-follower"),
	}
}

// Start blocks until ctx is cancelled.
func (f *Follower) Start(ctx context.Context) error {
	f.logger.Info("following generated clouds")
	return f.consumer.Start(ctx)
}

// HandleGenerated decodes GeneratedEvents. Undecodable messages and events
// of other types are logged and acknowledged.
func HandleGenerated(apply func(*trend.Report)) kafka.MessageHandler {
	logger := slog.Default().With("component", "cloud-follower")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[GeneratedEvent](value)
		if err != nil {
			logger.Error("failed to decode generated event", "key", string(key), "error", err)
			return nil
		}
		if event.Type != EventCloudGenerated || event.Report == nil {
			logger.Warn("ignoring event", "type", event.Type, "key", string(key))
			return nil
		}
		apply(event.Report)
		return nil
	}
}
