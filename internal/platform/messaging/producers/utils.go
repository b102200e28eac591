package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alx-travel-payments/internal/config"
	"github.com/segmentio/kafka-go"
)

const (
	partitionReadAttempts = 5
	partitionReadBackoff  = 2 * time.Second
)

// ensureTopic dials the first broker and creates topic when it is missing.
func ensureTopic(cfg *config.KafkaConfig, topic string, logger *slog.Logger) error {
	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return createKafkaTopicIfNotExists(conn, topicSpec(topic, cfg.NumPartitions, cfg.ReplicationFactor), logger)
}

func topicSpec(topic string, numPartitions, replicationFactor int) kafka.TopicConfig {
	tc := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
	if tc.NumPartitions <= 0 {
		tc.NumPartitions = 1
	}
	if tc.ReplicationFactor <= 0 {
		tc.ReplicationFactor = 1
	}
	return tc
}

// createKafkaTopicIfNotExists retries partition reads before falling back to topic creation.
func createKafkaTopicIfNotExists(conn *kafka.Conn, spec kafka.TopicConfig, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for i := 0; i < partitionReadAttempts; i++ {
		partitions, err = conn.ReadPartitions(spec.Topic)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", spec.Topic, "attempt", i+1, "error", err)
		time.Sleep(partitionReadBackoff)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", spec.Topic, "partitions", len(partitions))
		return nil
	}

	log.Info("Creating Kafka topic",
		"topic", spec.Topic,
		"partitions", spec.NumPartitions,
		"replication_factor", spec.ReplicationFactor,
		"last_read_error", err,
	)
	if err := conn.CreateTopics(spec); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", spec.Topic, err)
	}
	return nil
}
