package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// Handler processes one decoded feedback event.
type Handler func(ctx context.Context, evt domain.FeedbackEvent) error

// Consumer reads feedback events as part of a consumer group and hands each
// event to a Handler. Offsets are committed after the handler returns, so a
// crashed worker reprocesses at-least-once; weight adjustment is idempotent
// enough for that.
type Consumer struct {
	client *kgo.Client
	topic  string
}

// NewConsumer constructs a Consumer on the default topic.
func NewConsumer(brokers []string, groupID string) (*Consumer, error) {
	return NewConsumerWithTopic(brokers, groupID, TopicFeedback)
}

// NewConsumerWithTopic constructs a Consumer against a specific topic.
func NewConsumerWithTopic(brokers []string, groupID, topic string) (*Consumer, error) {
	slog.Info("creating redpanda consumer",
		slog.Any("brokers", brokers),
		slog.String("group_id", groupID),
		slog.String("topic", topic))
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}

	tracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
		kgo.WithHooks(kotel.NewKotel(kotel.WithTracer(tracer)).Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, topic, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", topic),
			slog.Any("error", err))
	}
	return &Consumer{client: client, topic: topic}, nil
}

// Run polls until ctx is cancelled, invoking handle per event. Malformed
// records are logged and skipped; handler errors skip the commit so the
// event is retried.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(t string, p int32, err error) {
			slog.Error("fetch error", slog.String("topic", t), slog.Int("partition", int(p)), slog.Any("error", err))
		})

		var failed bool
		fetches.EachRecord(func(rec *kgo.Record) {
			if failed {
				return
			}
			var evt domain.FeedbackEvent
			if err := json.Unmarshal(rec.Value, &evt); err != nil {
				slog.Error("malformed feedback event, skipping",
					slog.String("topic", rec.Topic),
					slog.Int64("offset", rec.Offset),
					slog.Any("error", err))
				return
			}
			observability.FeedbackEventsTotal.WithLabelValues("consumed").Inc()
			if err := handle(ctx, evt); err != nil {
				slog.Error("feedback handler failed, will retry",
					slog.String("feedback_id", evt.FeedbackID),
					slog.Any("error", err))
				failed = true
			}
		})
		if failed {
			continue
		}
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			slog.Error("commit offsets failed", slog.Any("error", err))
		}
	}
}

// Close closes the consumer.
func (c *Consumer) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
