package redpanda

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// createTopicIfNotExists creates a topic via the Kafka admin API. The
// "topic already exists" error is treated as success.
func createTopicIfNotExists(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	if topic == "" {
		return fmt.Errorf("topic name cannot be empty")
	}
	if partitions <= 0 {
		return fmt.Errorf("partitions must be greater than 0")
	}
	if replicationFactor <= 0 {
		return fmt.Errorf("replication factor must be greater than 0")
	}

	req := kmsg.NewCreateTopicsRequest()
	req.TimeoutMillis = 30000

	topicReq := kmsg.NewCreateTopicsRequestTopic()
	topicReq.Topic = topic
	topicReq.NumPartitions = partitions
	topicReq.ReplicationFactor = replicationFactor
	req.Topics = append(req.Topics, topicReq)

	resp, err := client.Request(ctx, &req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	createTopicsResp, ok := resp.(*kmsg.CreateTopicsResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	for _, topicResp := range createTopicsResp.Topics {
		if topicResp.ErrorCode != 0 {
			// Error code 36 = TOPIC_ALREADY_EXISTS
			if topicResp.ErrorCode == 36 {
				slog.Info("topic already exists", slog.String("topic", topicResp.Topic))
				return nil
			}
			errorMsg := ""
			if topicResp.ErrorMessage != nil {
				errorMsg = *topicResp.ErrorMessage
			}
			return fmt.Errorf("create topic error: %s (code %d)", errorMsg, topicResp.ErrorCode)
		}
		slog.Info("topic created", slog.String("topic", topicResp.Topic), slog.Int("partitions", int(partitions)))
	}
	return nil
}
