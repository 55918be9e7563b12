package kafka

import (
	"github.com/IBM/sarama"

	"github.com/Dhoini/fitness-billing/internal/domain"
)

const clientID = "fitness-billing"

// Config конфигурация для Kafka
type Config struct {
	Brokers     []string
	TopicPrefix string
	Producer    ProducerConfig
	Topics      TopicConfig
}

// ProducerConfig конфигурация для продюсера
type ProducerConfig struct {
	MaxMessageBytes int
	Compression     sarama.CompressionCodec
	RequiredAcks    sarama.RequiredAcks
	MaxRetries      int
}

// TopicConfig параметры создаваемых топиков
type TopicConfig struct {
	Partitions        int32
	ReplicationFactor int16
}

// NewConfig создает новую конфигурацию Kafka
func NewConfig(brokers []string, topicPrefix string) *Config {
	return &Config{
		Brokers:     brokers,
		TopicPrefix: topicPrefix,
		Producer: ProducerConfig{
			MaxMessageBytes: 1000000,
			Compression:     sarama.CompressionSnappy,
			RequiredAcks:    sarama.WaitForAll,
			MaxRetries:      3,
		},
		Topics: TopicConfig{
			Partitions:        3,
			ReplicationFactor: 1,
		},
	}
}

// TopicFor возвращает имя топика для типа события, например billing.subscription.activated
func (c *Config) TopicFor(eventType domain.SubscriptionEventType) string {
	return TopicName(c.TopicPrefix, eventType)
}

// TopicName собирает имя топика из префикса и типа события
func TopicName(prefix string, eventType domain.SubscriptionEventType) string {
	if prefix == "" {
		return string(eventType)
	}
	return prefix + "." + string(eventType)
}

// NewSaramaConfig создает новую конфигурацию Sarama
func NewSaramaConfig(cfg *Config) *sarama.Config {
	saramaConfig := sarama.NewConfig()

	// Версия Kafka
	saramaConfig.Version = sarama.V3_3_0_0
	saramaConfig.ClientID = clientID

	// Настройки продюсера
	saramaConfig.Producer.MaxMessageBytes = cfg.Producer.MaxMessageBytes
	saramaConfig.Producer.Compression = cfg.Producer.Compression
	saramaConfig.Producer.RequiredAcks = cfg.Producer.RequiredAcks
	saramaConfig.Producer.Retry.Max = cfg.Producer.MaxRetries
	saramaConfig.Producer.Idempotent = false
	// SyncProducer требует оба канала
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	return saramaConfig
}
