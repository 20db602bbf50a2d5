// Package redpanda provides Redpanda/Kafka queue integration for the
// feedback pipeline. The serving process publishes feedback events; the
// weight-adjustment worker consumes them off the serving path.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/mentor-match/internal/adapter/observability"
	"github.com/fairyhunter13/mentor-match/internal/domain"
)

// TopicFeedback is the Kafka topic carrying feedback events.
const TopicFeedback = "feedback-events"

// Producer publishes feedback events and implements domain.FeedbackQueue.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer constructs a Producer against the default topic.
func NewProducer(brokers []string) (*Producer, error) {
	return NewProducerWithTopic(brokers, TopicFeedback)
}

// NewProducerWithTopic constructs a Producer against a specific topic, which
// lets tests isolate themselves.
func NewProducerWithTopic(brokers []string, topic string) (*Producer, error) {
	slog.Info("creating redpanda producer", slog.Any("brokers", brokers), slog.String("topic", topic))
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	if err := createTopicIfNotExists(context.Background(), client, topic, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", topic),
			slog.Any("error", err))
	}
	return &Producer{client: client, topic: topic}, nil
}

// PublishFeedback sends one feedback event, keyed by mentor so events for the
// same mentor stay ordered.
func (p *Producer) PublishFeedback(ctx context.Context, evt domain.FeedbackEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("op=queue.publish_feedback: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(evt.MentorID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "feedback_id", Value: []byte(evt.FeedbackID)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("op=queue.publish_feedback: %w", err)
	}
	observability.FeedbackEventsTotal.WithLabelValues("published").Inc()
	slog.Debug("feedback event published",
		slog.String("feedback_id", evt.FeedbackID),
		slog.String("mentor_id", evt.MentorID))
	return nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
