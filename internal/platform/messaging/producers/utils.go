package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/creditx/hold-service/internal/config"
	"github.com/segmentio/kafka-go"
)

const (
	topicProbeAttempts = 5
	topicProbeBackoff  = 2 * time.Second
)

// topicAdmin is the subset of kafka.Conn used to inspect and create topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// EnsureTopics dials the configured broker and creates any missing topics
func EnsureTopics(logger *slog.Logger, cfg *config.KafkaConfig, topics ...string) error {
	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	for _, topic := range topics {
		if err := createTopicIfNotExists(conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, topicProbeBackoff, logger); err != nil {
			return err
		}
	}
	return nil
}

// createTopicIfNotExists creates the topic when no partitions can be read for it
func createTopicIfNotExists(admin topicAdmin, topicName string, numPartitions, replicationFactor int, backoff time.Duration, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for i := 0; i < topicProbeAttempts; i++ {
		partitions, err = admin.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic already exists", "topic", topicName, "partitions", len(partitions))
			return nil
		}
		log.Warn("Failed to read partitions, retrying...", "topic", topicName, "attempt", i+1, "error", err)
		time.Sleep(backoff)
	}

	if numPartitions <= 0 {
		numPartitions = 1
	}
	if replicationFactor <= 0 {
		replicationFactor = 1
	}

	log.Info("Creating Kafka topic", "topic", topicName, "partitions", numPartitions, "replication_factor", replicationFactor)
	if err := admin.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}
	return nil
}
