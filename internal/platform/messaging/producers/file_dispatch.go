package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/payroll-settlement-service/internal/config"
)

type FileDispatchProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates a new file dispatch producer and ensures the dispatch topic exists.
// Writes are synchronous: the outbox poller marks a message PROCESSED only
// after the broker has acknowledged the file descriptor.
func NewFileDispatchProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*FileDispatchProducer, error) {
	if cfg.DispatchTopic == "" {
		return nil, fmt.Errorf("kafka dispatch topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for file dispatch producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.DispatchTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure dispatch topic %s exists for file dispatch producer: %w", cfg.DispatchTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DispatchTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages", "topic", cfg.DispatchTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages", "topic", cfg.DispatchTopic, "count", len(messages))
			}
		},
	}

	return &FileDispatchProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.DispatchTopic,
	}, nil
}

func (p *FileDispatchProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for file dispatch producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message via file dispatch producer",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via file dispatch producer: %w", p.topic, err)
	}

	p.logger.Debug("Published message via file dispatch producer",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *FileDispatchProducer) Close() error {
	p.logger.Info("Closing file dispatch Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close file dispatch kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
