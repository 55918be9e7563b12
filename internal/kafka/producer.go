package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

// Producer публикует события жизненного цикла подписки.
type Producer interface {
	// PublishSubscriptionEvent отправляет событие; ключ сообщения это SubscriptionID,
	// поэтому события одной подписки попадают в одну партицию.
	PublishSubscriptionEvent(ctx context.Context, event domain.SubscriptionEvent) error
	// Close закрывает соединение продюсера Kafka.
	Close() error
}

type saramaProducer struct {
	producer sarama.SyncProducer
	cfg      *Config
	log      *logger.Logger
}

// NewSyncProducer подключается к брокерам и создает продюсер событий
func NewSyncProducer(cfg *Config, log *logger.Logger) (Producer, error) {
	if len(cfg.Brokers) == 0 {
		log.Errorw("Kafka brokers list is empty in config, cannot create producer")
		return nil, errors.New("kafka brokers are not configured")
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		log.Errorw("Failed to create Kafka producer", "error", err, "brokers", cfg.Brokers)
		return nil, fmt.Errorf("kafka: failed to create producer: %w", err)
	}

	log.Infow("Kafka producer initialized", "brokers", cfg.Brokers)
	return NewProducer(producer, cfg, log), nil
}

// NewProducer оборачивает готовый sarama.SyncProducer
func NewProducer(producer sarama.SyncProducer, cfg *Config, log *logger.Logger) Producer {
	return &saramaProducer{
		producer: producer,
		cfg:      cfg,
		log:      log,
	}
}

// PublishSubscriptionEvent сериализует событие в JSON и отправляет в топик его типа.
func (p *saramaProducer) PublishSubscriptionEvent(ctx context.Context, event domain.SubscriptionEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("kafka: context done before publish: %w", err)
	}

	topic := p.cfg.TopicFor(event.Type)

	value, err := json.Marshal(event)
	if err != nil {
		p.log.Errorw("Failed to marshal subscription event", "error", err, "subscriptionID", event.SubscriptionID, "topic", topic)
		return fmt.Errorf("kafka: failed to marshal message data: %w", err)
	}

	timestamp := event.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(event.SubscriptionID),
		Value:     sarama.ByteEncoder(value),
		Timestamp: timestamp,
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Errorw("Failed to write message to Kafka", "error", err, "topic", topic, "subscriptionID", event.SubscriptionID)
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	p.log.Infow("Successfully published message to Kafka",
		"topic", topic,
		"subscriptionID", event.SubscriptionID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close закрывает продюсер. Вызывается при graceful shutdown.
func (p *saramaProducer) Close() error {
	p.log.Infow("Closing Kafka producer...")
	if err := p.producer.Close(); err != nil {
		p.log.Errorw("Failed to close Kafka producer", "error", err)
		return fmt.Errorf("kafka: failed to close producer: %w", err)
	}
	return nil
}
