package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

// EnsureTopics проверяет и создает топики событий подписок.
func EnsureTopics(cfg *Config, log *logger.Logger) error {
	if len(cfg.Brokers) == 0 || cfg.Brokers[0] == "" {
		log.Errorw("Kafka broker address is empty")
		return errors.New("kafka broker address is empty")
	}

	admin, err := sarama.NewClusterAdmin(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		log.Errorw("Failed to create Kafka cluster admin", "error", err, "brokers", cfg.Brokers)
		return fmt.Errorf("kafka: failed to create cluster admin: %w", err)
	}
	defer func() {
		if cerr := admin.Close(); cerr != nil {
			log.Warnw("Failed to close Kafka cluster admin", "error", cerr)
		}
	}()

	existing, err := admin.ListTopics()
	if err != nil {
		return fmt.Errorf("kafka: failed to list topics: %w", err)
	}

	return createMissingTopics(admin, existing, requiredTopics(cfg), cfg.Topics, log)
}

type topicCreator interface {
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
}

func createMissingTopics(admin topicCreator, existing map[string]sarama.TopicDetail, topics []string, tc TopicConfig, log *logger.Logger) error {
	for _, topic := range topics {
		if _, ok := existing[topic]; ok {
			log.Debugw("Kafka topic already exists", "topic", topic)
			continue
		}

		detail := &sarama.TopicDetail{
			NumPartitions:     tc.Partitions,
			ReplicationFactor: tc.ReplicationFactor,
		}
		if err := admin.CreateTopic(topic, detail, false); err != nil {
			if errors.Is(err, sarama.ErrTopicAlreadyExists) {
				continue
			}
			log.Errorw("Failed to create Kafka topic", "error", err, "topic", topic)
			return fmt.Errorf("kafka: failed to create topic %s: %w", topic, err)
		}
		log.Infow("Kafka topic created", "topic", topic, "partitions", tc.Partitions)
	}
	return nil
}

func requiredTopics(cfg *Config) []string {
	return []string{
		cfg.TopicFor(domain.SubscriptionEventActivated),
		cfg.TopicFor(domain.SubscriptionEventCancelled),
	}
}
