package publisher

import (
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// createTopicIfNotExists attempts to create the topic if it doesn't exist.
// This is a best-effort operation and failures are logged but don't prevent
// producer creation.
func createTopicIfNotExists(broker, topic string) {
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		slog.Warn("Could not connect to Kafka to check/create topic",
			"broker", broker,
			"topic", topic,
			"error", err,
			"note", "Topic may need to be created manually",
		)
		return
	}
	defer conn.Close()

	// Check if topic exists
	partitions, err := conn.ReadPartitions(topic)
	if err == nil && len(partitions) > 0 {
		slog.Info("Topic already exists",
			"topic", topic,
			"partitions", len(partitions),
		)
		return
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	}

	if err := conn.CreateTopics(topicConfig); err != nil {
		slog.Warn("Could not create topic (may need to be created manually)",
			"topic", topic,
			"error", err,
		)
		return
	}

	slog.Info("Created topic",
		"topic", topic,
		"partitions", 3,
		"replication_factor", 1,
	)

	// Topic creation is asynchronous; wait until partitions are readable
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		time.Sleep(1 * time.Second)
		partitions, err := conn.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			slog.Info("Topic is now available",
				"topic", topic,
				"partitions", len(partitions),
			)
			return
		}
	}

	slog.Warn("Topic created but may not be fully available yet",
		"topic", topic,
		"note", "Producer will surface an error on first write if topic is not ready",
	)
}
