package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/azizikri/coursehub/internal/config"
	"github.com/azizikri/coursehub/internal/platform/logger"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

func EnsureTopics(ctx context.Context, client *kgo.Client, cfg *config.Config, log *logger.Logger) error {
	adm := kadm.NewClient(client)

	partitions := map[string]int{
		TopicProgressRequest: cfg.TopicPartitions(),
		TopicProgressRetry:   cfg.RetryPartitions(),
		TopicProgressDLQ:     cfg.RetryPartitions(),
	}
	replicationFactor := cfg.ReplicationFactor()

	for topic, p := range partitions {
		resp, err := adm.CreateTopics(ctx, int32(p), replicationFactor, nil, topic)
		if err != nil {
			return fmt.Errorf("failed to create topic %s: %w", topic, err)
		}
		for _, detail := range resp {
			if detail.Err != nil && !errors.Is(detail.Err, kerr.TopicAlreadyExists) {
				return fmt.Errorf("failed to create topic %s: %w", detail.Topic, detail.Err)
			}
		}
	}

	log.Info("Kafka topics ensured", "count", len(partitions))
	return nil
}
